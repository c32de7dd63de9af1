package fetch

import (
	"sort"
	"strings"

	"github.com/evalgo-org/sportsxref/typegraph"
	"github.com/evalgo-org/sportsxref/xerrors"
)

// deriveRoutes auto-derives a route per target: for each target type in
// targets, enumerate every simple (no node revisited) path from
// rootType bounded by maxDepth that respects the scope regime, and pick
// the one that sorts first under (toggles, hops, lexPath). Targets equal
// to rootType are skipped (the root is materialized without traversal).
func deriveRoutes(rootType typegraph.EntityType, targets []typegraph.EntityType, maxDepth int) ([]Route, error) {
	candidatesByTarget := map[typegraph.EntityType][][]typegraph.Edge{}
	visited := map[typegraph.EntityType]bool{rootType: true}
	var path []typegraph.Edge

	var dfs func(node typegraph.EntityType)
	dfs = func(node typegraph.EntityType) {
		if len(path) > 0 {
			cp := make([]typegraph.Edge, len(path))
			copy(cp, path)
			candidatesByTarget[node] = append(candidatesByTarget[node], cp)
		}
		if len(path) >= maxDepth {
			return
		}
		for _, edge := range typegraph.OutgoingEdges(node) {
			if visited[edge.To] {
				continue
			}
			if !typegraph.ScopeTogglePermitted(rootType, edge.From, edge.To) {
				continue
			}
			visited[edge.To] = true
			path = append(path, edge)
			dfs(edge.To)
			path = path[:len(path)-1]
			visited[edge.To] = false
		}
	}
	dfs(rootType)

	var routes []Route
	for _, target := range targets {
		if target == rootType {
			continue
		}
		candidates := candidatesByTarget[target]
		if len(candidates) == 0 {
			return nil, &xerrors.UnreachableTarget{Target: string(target)}
		}
		best := bestCandidate(candidates)
		routes = append(routes, Route{Key: "auto:" + string(target), To: target, Path: best})
	}
	return routes, nil
}

func bestCandidate(candidates [][]typegraph.Edge) []typegraph.Edge {
	sort.Slice(candidates, func(i, j int) bool {
		ti, tj := scopeToggles(candidates[i]), scopeToggles(candidates[j])
		if ti != tj {
			return ti < tj
		}
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) < len(candidates[j])
		}
		return pathString(candidates[i]) < pathString(candidates[j])
	})
	return candidates[0]
}

func scopeToggles(path []typegraph.Edge) int {
	n := 0
	for _, e := range path {
		if typegraph.IsScopeToggle(e.From, e.To) {
			n++
		}
	}
	return n
}

func pathString(path []typegraph.Edge) string {
	labels := make([]string, len(path))
	for i, e := range path {
		labels[i] = e.Label()
	}
	return strings.Join(labels, ",")
}
