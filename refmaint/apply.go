package refmaint

import (
	"context"
	"time"

	"github.com/evalgo-org/sportsxref/keycodec"
	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/typegraph"
	"github.com/evalgo-org/sportsxref/xlog"
)

var log = xlog.New("refmaint")

// compoundTargets are the entity types whose external key cannot be
// decomposed back into a plain extId/scope pair, so Apply does not
// attempt to infer identity fields for them on insert.
var compoundTargets = map[typegraph.EntityType]bool{
	typegraph.Staff:     true,
	typegraph.Ranking:   true,
	typegraph.KeyMoment: true,
}

// Apply batches ops into a single bulk write against the aggregation
// collection. Failures are logged, not returned, so a caller's own
// rebuild success is never undone by a back-pointer maintenance
// failure on a sibling record.
func Apply(ctx context.Context, s store.Store, aggregationCollection string, sep keycodec.Separators, ops []UpdateOp) {
	if len(ops) == 0 {
		return
	}

	models := make([]store.WriteModel, 0, len(ops))
	for _, op := range ops {
		models = append(models, buildWriteModel(sep, op))
	}

	if _, err := s.Collection(aggregationCollection).BulkWrite(ctx, models); err != nil {
		log.WithError(err).WithField("opCount", len(ops)).Warn("reference-maintenance bulk write failed")
	}
}

func buildWriteModel(sep keycodec.Separators, op UpdateOp) store.WriteModel {
	// The filter's resourceType is the *target* type, not the source
	// type of the change — the two are easy to confuse under the shared
	// name `resourceType`, so this field is named `rt` wherever both
	// types are in scope to keep the distinction explicit.
	rt := op.TargetType

	filter := store.Document{
		"resourceType": string(rt),
		"externalKey":  op.TargetKey,
	}

	xsField, _ := typegraph.FieldNameFor(op.SourceType)
	xKeysField := string(op.SourceType) + "Keys"

	if op.Kind == Remove {
		return store.WriteModel{
			Filter: filter,
			Update: store.Document{
				"$pull":  store.Document{xsField: op.SourceGamedayID},
				"$unset": store.Document{xKeysField + "." + op.SourceExternalKey: ""},
				"$set":   store.Document{"lastUpdated": now()},
			},
			Upsert: false,
		}
	}

	setOnInsert := store.Document{
		"resourceType": string(rt),
		"externalKey":  op.TargetKey,
		"gamedayId":    op.NeighborGamedayID,
	}
	if !compoundTargets[rt] {
		if extID, scope, err := keycodec.ParseExternalKey(sep, op.TargetKey); err == nil {
			setOnInsert["_externalId"] = extID
			setOnInsert["_externalIdScope"] = scope
		}
	}

	return store.WriteModel{
		Filter: filter,
		Update: store.Document{
			"$addToSet":    store.Document{xsField: op.SourceGamedayID},
			"$set":         store.Document{xKeysField + "." + op.SourceExternalKey: op.SourceGamedayID, "lastUpdated": now()},
			"$setOnInsert": setOnInsert,
		},
		Upsert: true,
	}
}

var now = time.Now
