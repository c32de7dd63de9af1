package cascade

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/evalgo-org/sportsxref/aggregator"
	"github.com/evalgo-org/sportsxref/keycodec"
	"github.com/evalgo-org/sportsxref/refmaint"
	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/typegraph"
	"github.com/evalgo-org/sportsxref/xerrors"
	"github.com/evalgo-org/sportsxref/xlog"
)

var log = xlog.New("cascade")

// Orchestrator runs C3 (rebuild) and C4 (reference maintenance)
// together for a single entity, and C5's transitive walk over a root.
type Orchestrator struct {
	builder                *aggregator.Builder
	store                  store.Store
	aggregationCollection string
	sep                    keycodec.Separators
}

// NewOrchestrator constructs an Orchestrator sharing one Store with its
// Builder.
func NewOrchestrator(builder *aggregator.Builder, s store.Store, aggregationCollection string, sep keycodec.Separators) *Orchestrator {
	return &Orchestrator{builder: builder, store: s, aggregationCollection: aggregationCollection, sep: sep}
}

// RebuildOne is the write-path entry point for a single entity change
// (data flow: "entity change -> C3 rebuilds -> C4 diffs
// old/new -> update ops applied"). It is exported so a caller outside a
// cascade — a single-entity write endpoint — can use the same sequence
// the orchestrator uses internally for every worklist entry.
func (o *Orchestrator) RebuildOne(ctx context.Context, t typegraph.EntityType, id aggregator.Identity) (*aggregator.Record, error) {
	key := id.ExternalKey(o.sep)

	var oldRec *aggregator.Record
	oldDoc, err := o.store.Collection(o.aggregationCollection).FindOne(ctx, store.Document{
		"resourceType": string(t),
		"externalKey":  key,
	})
	switch {
	case err == nil:
		oldRec = aggregator.FromDocument(oldDoc)
	case errors.Is(err, store.ErrNoDocuments):
		// first-time rebuild; oldRec stays nil.
	default:
		return nil, &xerrors.StorageError{Op: "cascade.readOld", Err: err}
	}

	newRec, err := o.builder.Rebuild(ctx, t, id)
	if err != nil {
		return nil, err
	}

	refmaint.Apply(ctx, o.store, o.aggregationCollection, o.sep, refmaint.Diff(oldRec, newRec))
	return newRec, nil
}

// RebuildTransitively implements C5: rebuilds rootIdentity
// itself, then walks the fixed ten-phase dependency order, tracking
// attempted/completed/failed/skipped sets so no entity is rebuilt twice
// and the walk terminates despite cycles in the typed edge graph.
func (o *Orchestrator) RebuildTransitively(ctx context.Context, rootExtID, rootScope string) (Snapshot, error) {
	runID := uuid.NewString()
	state := newState(runID)
	runLog := log.WithField("runId", runID)

	rootKey := Key{Type: typegraph.Competition, ExternalKey: keycodec.BuildExternalKey(o.sep, rootExtID, rootScope)}
	state.tryAttempt(rootKey)

	runLog.WithField("rootExtId", rootExtID).WithField("rootScope", rootScope).Info("cascade run starting")

	rootRec, err := o.RebuildOne(ctx, typegraph.Competition, aggregator.Identity{ExtID: rootExtID, Scope: rootScope})
	if err != nil {
		state.markFailed(rootKey)
		runLog.WithError(err).Warn("cascade run aborted: root rebuild failed")
		return state.Snapshot(), err
	}
	state.markCompleted(rootKey)

	// Phase 1: sgo neighbors, recursive descent over sgo alone.
	sgoQueue := neighborKeys(rootRec, "sgos")
	for len(sgoQueue) > 0 {
		key := sgoQueue[0]
		sgoQueue = sgoQueue[1:]
		rec := o.rebuildIfNew(ctx, state, typegraph.SGO, key)
		if rec != nil {
			sgoQueue = append(sgoQueue, neighborKeys(rec, "sgos")...)
		}
	}

	// Phase 2: stages of the competition.
	eventWorklist := newWorklist()
	rankingWorklist := newWorklist()
	for _, key := range neighborKeys(rootRec, "stages") {
		rec := o.rebuildIfNew(ctx, state, typegraph.Stage, key)
		if rec == nil {
			continue
		}
		eventWorklist.addAll(neighborKeys(rec, "events"))
		rankingWorklist.addAll(neighborKeys(rec, "rankings"))
	}

	// Phase 3: events of those stages.
	teamWorklist := newWorklist()
	venueWorklist := newWorklist()
	for _, key := range eventWorklist.drain() {
		rec := o.rebuildIfNew(ctx, state, typegraph.Event, key)
		if rec == nil {
			continue
		}
		rankingWorklist.addAll(neighborKeys(rec, "rankings"))
		teamWorklist.addAll(neighborKeys(rec, "teams"))
		venueWorklist.addAll(neighborKeys(rec, "venues"))
	}

	// Phase 4: rankings, from stage and event records.
	for _, key := range rankingWorklist.drain() {
		o.rebuildIfNew(ctx, state, typegraph.Ranking, key)
	}

	// Phase 5: teams, from event records.
	staffWorklist := newWorklist()
	spWorklist := newWorklist()
	clubWorklist := newWorklist()
	nationWorklist := newWorklist()
	for _, key := range teamWorklist.drain() {
		rec := o.rebuildIfNew(ctx, state, typegraph.Team, key)
		if rec == nil {
			continue
		}
		staffWorklist.addAll(neighborKeys(rec, "staff"))
		spWorklist.addAll(neighborKeys(rec, "sportsPersons"))
		clubWorklist.addAll(neighborKeys(rec, "clubs"))
		nationWorklist.addAll(neighborKeys(rec, "nations"))
		venueWorklist.addAll(neighborKeys(rec, "venues"))
	}

	// Phase 6: staff, from team records.
	for _, key := range staffWorklist.drain() {
		rec := o.rebuildIfNew(ctx, state, typegraph.Staff, key)
		if rec == nil {
			continue
		}
		spWorklist.addAll(neighborKeys(rec, "sportsPersons"))
		clubWorklist.addAll(neighborKeys(rec, "clubs"))
		nationWorklist.addAll(neighborKeys(rec, "nations"))
	}

	// Phase 7: sportsPersons, from team and staff records.
	for _, key := range spWorklist.drain() {
		o.rebuildIfNew(ctx, state, typegraph.SportsPerson, key)
	}

	// Phase 8: clubs, from team and staff records.
	for _, key := range clubWorklist.drain() {
		o.rebuildIfNew(ctx, state, typegraph.Club, key)
	}

	// Phase 9: nations, from team and staff records.
	for _, key := range nationWorklist.drain() {
		o.rebuildIfNew(ctx, state, typegraph.Nation, key)
	}

	// Phase 10: venues, from team and event records.
	for _, key := range venueWorklist.drain() {
		o.rebuildIfNew(ctx, state, typegraph.Venue, key)
	}

	return state.Snapshot(), nil
}

// rebuildIfNew rebuilds (type, externalKey) if it has not already been
// attempted this call, classifying the outcome into completed, failed,
// or skipped. It returns nil whenever no new record is available to
// harvest further neighbor keys from — whether because the key was
// already attempted, or because this attempt did not succeed.
func (o *Orchestrator) rebuildIfNew(ctx context.Context, state *State, t typegraph.EntityType, externalKey string) *aggregator.Record {
	key := Key{Type: t, ExternalKey: externalKey}
	if !state.tryAttempt(key) {
		return nil
	}

	rec, err := o.RebuildOne(ctx, t, aggregator.Identity{Compound: externalKey})
	if err == nil {
		state.markCompleted(key)
		return rec
	}

	var unsupported *xerrors.UnsupportedType
	if errors.As(err, &unsupported) {
		state.markSkipped(key)
		return nil
	}

	state.markFailed(key)
	log.WithError(err).WithField("runId", state.runID).WithField("type", string(t)).WithField("externalKey", externalKey).Warn("cascade entry failed, continuing siblings")
	return nil
}

func neighborKeys(r *aggregator.Record, field string) []string {
	ns, ok := r.Neighbors[field]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ns.Keys))
	for k := range ns.Keys {
		out = append(out, k)
	}
	return out
}

// worklist is a set of pending external keys, deduplicated across the
// multiple record types that can contribute to the same downstream
// phase (e.g. venues are harvested from both team and event records).
type worklist struct {
	seen map[string]bool
}

func newWorklist() *worklist {
	return &worklist{seen: map[string]bool{}}
}

func (w *worklist) addAll(keys []string) {
	for _, k := range keys {
		w.seen[k] = true
	}
}

func (w *worklist) drain() []string {
	out := make([]string, 0, len(w.seen))
	for k := range w.seen {
		out = append(out, k)
	}
	return out
}
