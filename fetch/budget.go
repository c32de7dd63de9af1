package fetch

import (
	"github.com/evalgo-org/sportsxref/typegraph"
)

// includedResult is the outcome of budget slicing for one type: which
// ids were included, and which overflowed.
type includedResult struct {
	Included []string
	Overflow []string
}

// applyBudget enforces a single integer budget across includeTypes, in
// request order: the root first if present (wherever it appears in
// order), then every other type in order. Once remaining hits zero,
// every subsequent type contributes zero included ids and its entire
// union becomes overflow.
func applyBudget(budget int, order []typegraph.EntityType, rootType typegraph.EntityType, rootID string, unions map[typegraph.EntityType]*orderedSet) map[typegraph.EntityType]includedResult {
	remaining := budget
	results := map[typegraph.EntityType]includedResult{}

	for _, t := range order {
		if t == rootType {
			if remaining > 0 {
				results[t] = includedResult{Included: []string{rootID}}
				remaining--
			} else {
				results[t] = includedResult{Overflow: []string{rootID}}
			}
			break
		}
	}

	for _, t := range order {
		if t == rootType {
			continue
		}

		u := unions[t]
		if u == nil {
			results[t] = includedResult{}
			continue
		}
		ids := u.items()
		take := remaining
		if take > len(ids) {
			take = len(ids)
		}
		if take < 0 {
			take = 0
		}
		results[t] = includedResult{Included: ids[:take], Overflow: ids[take:]}
		remaining -= take
	}

	return results
}
