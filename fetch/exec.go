package fetch

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/evalgo-org/sportsxref/store"
)

// executeSteps runs the planned steps in order against the aggregation
// collection. Depth-0 steps read directly off the root
// record; deeper steps re-query the aggregation collection for every
// record of the step's source type whose gamedayId appeared in the
// previous step's output, then union+dedup the target field's values.
func executeSteps(ctx context.Context, coll store.Collection, rootDoc store.Document, steps []Step) (map[string][]string, error) {
	outputs := map[string][]string{}

	for _, step := range steps {
		if step.Depth == 0 {
			outputs[step.Key] = asStringSlice(rootDoc[step.Edge.Field])
			continue
		}

		prevIDs := outputs[step.DependsOnKey]
		if len(prevIDs) == 0 {
			outputs[step.Key] = nil
			continue
		}

		pipeline := mongo.Pipeline{
			{{Key: "$match", Value: store.Document{
				"resourceType": string(step.Edge.From),
				"gamedayId":    store.Document{"$in": toInterfaceSlice(prevIDs)},
			}}},
			{{Key: "$unwind", Value: "$" + step.Edge.Field}},
			{{Key: "$group", Value: store.Document{
				"_id": nil,
				"ids": store.Document{"$addToSet": "$" + step.Edge.Field},
			}}},
		}

		res, err := coll.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, fmt.Errorf("traversal step %s: %w", step.Key, err)
		}
		if len(res) == 0 {
			outputs[step.Key] = nil
			continue
		}
		outputs[step.Key] = asStringSlice(res[0]["ids"])
	}

	return outputs, nil
}

// routeFinalIDs returns the id-set a route contributes: the output of
// its last step, or the root's single id-set when the route is empty
// — only reachable for a root that is itself requested as an include
// type, handled separately by the caller since deriveRoutes/
// parseExplicitRoute never emit a route to the root.
func routeFinalIDs(route Route, outputs map[string][]string, rootIDs []string) []string {
	if len(route.Path) == 0 {
		return rootIDs
	}
	last := route.Path[len(route.Path)-1]
	return outputs[last.Label()]
}

func asStringSlice(v interface{}) []string {
	raw := toInterfaceSliceFromAny(v)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}

func toInterfaceSliceFromAny(v interface{}) []interface{} {
	switch vv := v.(type) {
	case []interface{}:
		return vv
	case nil:
		return nil
	default:
		return nil
	}
}

func toInterfaceSlice(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
