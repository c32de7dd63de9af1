package fetch

import (
	"github.com/evalgo-org/sportsxref/keycodec"
	"github.com/evalgo-org/sportsxref/typegraph"
	"github.com/evalgo-org/sportsxref/xerrors"
)

// parseExplicitRoute implements strict validation of a
// caller-provided route: every hop must chain from the previous hop's
// To (first hop's From = rootType), every edge must exist in the graph
// with the declared To, no node may be revisited, no edge label may
// repeat, and the last hop's To must equal the declared target. Hop
// indices in returned errors are 1-based, matching the fixed design scenario
// 5 ("hop 2").
func parseExplicitRoute(rootType typegraph.EntityType, route RequestRoute) (Route, error) {
	if route.Key == "" {
		return Route{}, &xerrors.RouteInvalid{HopIndex: 0, Reason: "missing route key"}
	}
	if len(route.Via) == 0 {
		return Route{}, &xerrors.RouteInvalid{HopIndex: 0, Reason: "empty via"}
	}

	// Nodes landed on by a hop are tracked here; the root's own type is
	// deliberately not preseeded, since hop 1 of a route anchored at a
	// self-loop type (e.g. root sgo, first hop sgo.sgos->sgo) lands back
	// on the root's type without yet repeating anything — the cycle only
	// trips once that type is landed on a second time, at hop 2.
	visitedNodes := map[typegraph.EntityType]bool{}
	cur := rootType
	path := make([]typegraph.Edge, 0, len(route.Via))

	for i, label := range route.Via {
		hop := i + 1
		from, field, to, err := keycodec.ParseEdgeLabel(label)
		if err != nil {
			return Route{}, &xerrors.RouteInvalid{HopIndex: hop, Reason: "unknown edge label: " + label}
		}
		if from != cur {
			return Route{}, &xerrors.RouteInvalid{HopIndex: hop, Reason: "hop does not chain from the previous hop's target"}
		}

		found := false
		for _, e := range typegraph.OutgoingEdges(from) {
			if e.Field == field && e.To == to {
				found = true
				break
			}
		}
		if !found {
			return Route{}, &xerrors.RouteInvalid{HopIndex: hop, Reason: "edge not present in the graph"}
		}

		// A repeated edge label would always repeat the same "to" node
		// too (the label fully encodes from/field/to), so the node
		// check below also catches a repeated-label route; no separate
		// check is needed.
		if visitedNodes[to] {
			return Route{}, &xerrors.CycleDetected{HopIndex: hop, Node: string(to)}
		}

		visitedNodes[to] = true
		path = append(path, typegraph.Edge{From: from, Field: field, To: to})
		cur = to
	}

	if cur != route.To {
		return Route{}, &xerrors.RouteInvalid{HopIndex: len(route.Via), Reason: "final hop's target does not match the declared route target"}
	}

	return Route{Key: route.Key, To: route.To, Path: path}, nil
}

// graphReachable reports whether target is reachable from root in the
// raw edge graph, ignoring the scope regime — this check is independent
// of any route.
func graphReachable(root, target typegraph.EntityType) bool {
	if root == target {
		return true
	}
	visited := map[typegraph.EntityType]bool{root: true}
	queue := []typegraph.EntityType{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, e := range typegraph.OutgoingEdges(node) {
			if visited[e.To] {
				continue
			}
			if e.To == target {
				return true
			}
			visited[e.To] = true
			queue = append(queue, e.To)
		}
	}
	return false
}

// validateReachability enforces that every requested include type is
// graph-reachable from the root, and is the target of at least one
// resolved route.
func validateReachability(rootType typegraph.EntityType, includeTypes []typegraph.EntityType, routes []Route) error {
	for _, t := range includeTypes {
		if t == rootType {
			continue
		}
		if !graphReachable(rootType, t) {
			return &xerrors.UnreachableByGraph{RootType: string(rootType), Target: string(t)}
		}
	}
	for _, t := range includeTypes {
		if t == rootType {
			continue
		}
		hasRoute := false
		for _, r := range routes {
			if r.To == t {
				hasRoute = true
				break
			}
		}
		if !hasRoute {
			return &xerrors.UnreachableByRoutes{Target: string(t)}
		}
	}
	return nil
}
