package aggregator

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evalgo-org/sportsxref/keycodec"
	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/typegraph"
	"github.com/evalgo-org/sportsxref/xerrors"
	"github.com/evalgo-org/sportsxref/xlog"
)

var log = xlog.New("aggregator")

// Identity is the external-key tuple rebuild operates on: the raw id
// and scope for simple-keyed types, or the already-composed compound
// key for ranking/staff/keyMoment (callers build those with keycodec).
type Identity struct {
	ExtID string
	Scope string
	// Compound, when non-empty, is used verbatim as the external key
	// instead of composing ExtID/Scope — set this for ranking, staff,
	// and keyMoment identities.
	Compound string
}

// ExternalKey returns the external key this identity denotes, composing
// ExtID/Scope for simple-keyed types or returning Compound verbatim.
func (id Identity) ExternalKey(sep keycodec.Separators) string {
	if id.Compound != "" {
		return id.Compound
	}
	return keycodec.BuildExternalKey(sep, id.ExtID, id.Scope)
}

// Builder rebuilds aggregation records against a Store, following the
// table-driven dispatch the fixed design calls for instead of runtime type
// switching: resourceType resolves to a home collection name via
// typegraph, and every type shares the same rebuild algorithm (§4.3)
// parameterized only by that lookup — so the "dispatch table" is
// typegraph.CollectionOf itself, plus a membership check for which
// types this builder supports.
type Builder struct {
	store                 store.Store
	aggregationCollection string
	separators            keycodec.Separators
}

// NewBuilder constructs a Builder. aggregationCollection is the name of
// the single collection holding every aggregation record.
func NewBuilder(s store.Store, aggregationCollection string, sep keycodec.Separators) *Builder {
	return &Builder{store: s, aggregationCollection: aggregationCollection, separators: sep}
}

// Rebuild implements algorithm for one entity.
func (b *Builder) Rebuild(ctx context.Context, t typegraph.EntityType, id Identity) (*Record, error) {
	collName, ok := typegraph.CollectionOf(t)
	if !ok {
		return nil, &xerrors.UnsupportedType{ResourceType: string(t)}
	}

	key := id.ExternalKey(b.separators)

	source, err := b.store.Collection(collName).FindOne(ctx, store.Document{
		"resourceType": string(t),
		"externalKey":  key,
	})
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, &xerrors.NotFound{ResourceType: string(t), ExternalKey: key}
	}
	if err != nil {
		return nil, &xerrors.StorageError{Op: "rebuild.findSource", Err: err}
	}

	gamedayID := asString(source["_id"])
	extID := asString(source["_externalId"])
	scope := asString(source["_externalIdScope"])
	if gamedayID == "" || (extID == "" && id.Compound == "") {
		return nil, &xerrors.MalformedSource{ResourceType: string(t), ExternalKey: key, Reason: "missing _id or _externalId"}
	}

	record := newRecord(t)
	record.ExternalKey = key
	record.GamedayID = gamedayID
	record.ExternalID = extID
	record.ExternalScope = scope
	record.Name = displayName(source, extID)
	record.LastUpdated = now()

	edges := typegraph.OutgoingEdges(t)
	results := make([]*NeighborSet, len(edges))

	g, gctx := errgroup.WithContext(ctx)
	for i, edge := range edges {
		i, edge := i, edge
		g.Go(func() error {
			ns, err := b.resolveNeighbors(gctx, record, source, edge)
			if err != nil {
				return err
			}
			results[i] = ns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, edge := range edges {
		record.Neighbors[edge.Field] = results[i]
	}

	doc := record.ToDocument()
	if err := b.store.Collection(b.aggregationCollection).MergeUpsert(ctx, store.Document{
		"resourceType": string(t),
		"externalKey":  key,
	}, doc); err != nil {
		return nil, &xerrors.StorageError{Op: "rebuild.upsert", Err: err}
	}

	return record, nil
}

// resolveNeighbors resolves one outgoing edge's neighbor set by looking
// up each referenced entity's home document to obtain its internal id
//. A reference that cannot be resolved (no
// matching document) is logged and skipped rather than failing the
// whole rebuild — the source document is allowed to point at entities
// not yet materialized.
func (b *Builder) resolveNeighbors(ctx context.Context, source *Record, sourceDoc store.Document, edge typegraph.Edge) (*NeighborSet, error) {
	ns := newNeighborSet()
	targetCollection, ok := typegraph.CollectionOf(edge.To)
	if !ok {
		return ns, nil
	}

	for _, ref := range refsOnEdge(sourceDoc, edge) {
		key, err := neighborExternalKey(b.separators, source, edge, ref)
		if err != nil {
			return nil, &xerrors.MalformedSource{
				ResourceType: string(source.ResourceType),
				ExternalKey:  source.ExternalKey,
				Reason:       err.Error(),
			}
		}

		neighbor, err := b.store.Collection(targetCollection).FindOne(ctx, store.Document{
			"resourceType": string(edge.To),
			"externalKey":  key,
		})
		if errors.Is(err, store.ErrNoDocuments) {
			log.WithField("edge", edge.Label()).WithField("key", key).Warn("dangling reference, skipping")
			continue
		}
		if err != nil {
			return nil, &xerrors.StorageError{Op: "rebuild.resolveNeighbor", Err: err}
		}

		ns.add(key, asString(neighbor["_id"]))
	}
	return ns, nil
}

func displayName(doc store.Document, fallback string) string {
	if name, ok := doc["name"].(string); ok && name != "" {
		return name
	}
	return fallback
}

// now is a seam so tests can assert on LastUpdated without depending on
// wall-clock time directly.
var now = time.Now
