package fetch

import (
	"sort"

	"github.com/evalgo-org/sportsxref/keycodec"
	"github.com/evalgo-org/sportsxref/typegraph"
)

// Step is one shared traversal step, keyed by edge label: all routes
// crossing the same edge reuse one computed output instead of
// recomputing it, with the depth and dependency taken from the first
// route that planned that edge.
type Step struct {
	Key          string
	Edge         typegraph.Edge
	Depth        int
	DependsOnKey string
	OutputName   string
}

// planSteps unifies every route's path into a deduplicated, ordered
// list of steps: one per distinct edge label, first-seen depth, sorted
// by (depth ASC, key ASC) so execution can proceed in a single forward
// pass with each step's dependency already computed.
func planSteps(routes []Route) []Step {
	byKey := map[string]*Step{}
	for _, r := range routes {
		var prevKey string
		for depth, edge := range r.Path {
			key := edge.Label()
			if _, ok := byKey[key]; !ok {
				byKey[key] = &Step{
					Key:          key,
					Edge:         edge,
					Depth:        depth,
					DependsOnKey: prevKey,
					OutputName:   keycodec.StepOutputName(key, depth),
				}
			}
			prevKey = key
		}
	}

	out := make([]Step, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Key < out[j].Key
	})
	return out
}
