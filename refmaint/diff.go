// Package refmaint implements bidirectional reference maintenance (C4):
// diffing an entity's old and new aggregation records to find which
// back-pointers on *other* records need updating, then applying those
// updates best-effort in one bulk write whose failure is logged rather
// than returned, fanning a single source change out across multiple
// logical targets.
package refmaint

import (
	"github.com/evalgo-org/sportsxref/aggregator"
	"github.com/evalgo-org/sportsxref/typegraph"
)

// OpKind distinguishes the two shapes of update the fixed design names.
type OpKind int

const (
	// Remove drops a back-pointer: a neighbor that was present in the
	// old record's TKeys is absent from the new one.
	Remove OpKind = iota
	// UpsertOp adds or refreshes a back-pointer: a neighbor present in
	// the new record's TKeys was absent (or had a different id) before.
	UpsertOp
)

// UpdateOp is one pending mutation against a single aggregation record
// of type TargetType, identified by TargetKey.
type UpdateOp struct {
	Kind       OpKind
	TargetType typegraph.EntityType
	TargetKey  string

	// SourceType and SourceExternalKey/SourceGamedayID identify the
	// record that changed (the new record) — the value being added to
	// or removed from the target's back-pointer slot.
	SourceType        typegraph.EntityType
	SourceExternalKey string
	SourceGamedayID   string

	// NeighborGamedayID is only set on UpsertOp: the internal id the
	// *new* record already recorded for this neighbor, used to seed the
	// target record's own gamedayId field if this op causes an insert.
	NeighborGamedayID string
}

// Diff computes the update operations needed to keep back-pointers
// consistent after replacing oldRec with newRec. oldRec
// may be nil for a first-time rebuild, in which case every neighbor key
// in newRec is treated as added.
func Diff(oldRec, newRec *aggregator.Record) []UpdateOp {
	var ops []UpdateOp

	fieldTarget := map[string]typegraph.EntityType{}
	for _, e := range typegraph.OutgoingEdges(newRec.ResourceType) {
		fieldTarget[e.Field] = e.To
	}

	for field, target := range fieldTarget {
		oldKeys := neighborKeys(oldRec, field)
		newKeys := neighborKeys(newRec, field)

		for k := range oldKeys {
			if _, stillPresent := newKeys[k]; !stillPresent {
				ops = append(ops, UpdateOp{
					Kind:              Remove,
					TargetType:        target,
					TargetKey:         k,
					SourceType:        newRec.ResourceType,
					SourceExternalKey: newRec.ExternalKey,
					SourceGamedayID:   newRec.GamedayID,
				})
			}
		}

		for k, neighborID := range newKeys {
			if prevID, alreadyPresent := oldKeys[k]; alreadyPresent && prevID == neighborID {
				continue
			}
			ops = append(ops, UpdateOp{
				Kind:              UpsertOp,
				TargetType:        target,
				TargetKey:         k,
				SourceType:        newRec.ResourceType,
				SourceExternalKey: newRec.ExternalKey,
				SourceGamedayID:   newRec.GamedayID,
				NeighborGamedayID: neighborID,
			})
		}
	}

	return ops
}

func neighborKeys(r *aggregator.Record, field string) map[string]string {
	if r == nil {
		return nil
	}
	ns, ok := r.Neighbors[field]
	if !ok {
		return nil
	}
	return ns.Keys
}
