// Package fetch implements the read-side planner and fetch composer
// (C6): route derivation and validation, reachability checks,
// shared-prefix traversal planning, traversal execution against the
// materialized aggregation collection, budget enforcement, home
// collection materialization, and projection policy evaluation.
// Grounded on a depth-bounded graph traversal and view-option query
// shapes common across this codebase's storage layer.
package fetch

import (
	"github.com/evalgo-org/sportsxref/typegraph"
)

// RequestRoute is a caller-supplied route: a named path from the root
// to To, expressed as a list of edge labels.
type RequestRoute struct {
	Key string
	To  typegraph.EntityType
	Via []string
}

// Request is one read-side fetch request.
type Request struct {
	RootType        typegraph.EntityType
	RootExternalKey string
	IncludeTypes    []typegraph.EntityType
	Budget          int
	Routes          []RequestRoute
	FieldProjections *FieldProjections
	MaxDepth        int // 0 means use the package default, defaultMaxDepth (6)
}

// TypeProjection is one side (inclusions or exclusions) of a
// FieldProjections: an "all" set applied to every type, plus per-type
// overrides keyed by resourceType string.
type TypeProjection struct {
	All    map[string]bool
	ByType map[string]map[string]bool
}

// FieldProjections is the read request's optional projection policy
//.
type FieldProjections struct {
	Inclusions *TypeProjection
	Exclusions *TypeProjection
}

// TypeResult is one include type's materialized result.
type TypeResult struct {
	Items       []map[string]interface{}
	Overflow    OverflowSet
}

// OverflowSet names the type whose union exceeded budget and the ids
// that were not included.
type OverflowSet struct {
	ResourceType string
	OverflowIDs  []string
}

// Response is the full envelope returned to a caller.
type Response struct {
	Root    RootRef
	Results map[typegraph.EntityType]TypeResult
}

// RootRef names the root entity the response was computed from.
type RootRef struct {
	Type        typegraph.EntityType
	ExternalKey string
}

// Route is a resolved (derived or validated) path from the root to a
// target type, carrying the concrete edges it crosses.
type Route struct {
	Key  string
	To   typegraph.EntityType
	Path []typegraph.Edge
}
