// Package xerrors declares the typed error taxonomy shared by every
// component of the cross-reference index. Callers discriminate with
// errors.As rather than string comparison or sentinel identity.
package xerrors

import "fmt"

// BadRequest signals a malformed read request: missing root, empty
// include types, a negative budget, or a malformed projection.
type BadRequest struct {
	Reason string
}

func (e *BadRequest) Error() string {
	return fmt.Sprintf("bad request: %s", e.Reason)
}

// NotFound signals that an entity could not be located in its home
// collection during a rebuild or a root lookup.
type NotFound struct {
	ResourceType string
	ExternalKey  string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("not found: %s %q", e.ResourceType, e.ExternalKey)
}

// MalformedSource signals that a source document exists but does not
// carry enough information to derive a valid identity or neighbor set.
type MalformedSource struct {
	ResourceType string
	ExternalKey  string
	Reason       string
}

func (e *MalformedSource) Error() string {
	return fmt.Sprintf("malformed source for %s %q: %s", e.ResourceType, e.ExternalKey, e.Reason)
}

// StorageError wraps a failure reported by the storage engine. It is
// caller-retryable; this package never retries on its own.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Deadline signals that the caller-supplied context deadline was
// exceeded while a storage operation was in flight.
type Deadline struct {
	Op string
}

func (e *Deadline) Error() string {
	return fmt.Sprintf("deadline exceeded during %s", e.Op)
}

// BadEdgeLabel signals that an edge label string did not parse as
// "from.field->to".
type BadEdgeLabel struct {
	Label string
}

func (e *BadEdgeLabel) Error() string {
	return fmt.Sprintf("bad edge label %q", e.Label)
}

// BadCompoundKey signals that a compound external key (ranking, staff,
// keyMoment) failed strict parsing.
type BadCompoundKey struct {
	Kind string
	Key  string
}

func (e *BadCompoundKey) Error() string {
	return fmt.Sprintf("bad %s compound key %q", e.Kind, e.Key)
}

// UnreachableByGraph signals that a requested include type has no path
// from the root type in the typed edge graph at all, independent of any
// routes supplied or derived.
type UnreachableByGraph struct {
	RootType string
	Target   string
}

func (e *UnreachableByGraph) Error() string {
	return fmt.Sprintf("%s is not graph-reachable from %s", e.Target, e.RootType)
}

// UnreachableByRoutes signals that a requested include type is
// graph-reachable but no provided or derived route targets it.
type UnreachableByRoutes struct {
	Target string
}

func (e *UnreachableByRoutes) Error() string {
	return fmt.Sprintf("no route targets %s", e.Target)
}

// UnreachableAutoRoute signals that route derivation found no
// scope-regime-permissible simple path to a target within maxDepth.
type UnreachableAutoRoute struct {
	RootType string
	Target   string
	MaxDepth int
}

func (e *UnreachableAutoRoute) Error() string {
	return fmt.Sprintf("no permissible route from %s to %s within depth %d", e.RootType, e.Target, e.MaxDepth)
}

// UnreachableTarget is UnreachableAutoRoute's counterpart raised by
// deriveRoutes itself before the caller-facing
// validation layer wraps it as UnreachableAutoRoute.
type UnreachableTarget struct {
	Target string
}

func (e *UnreachableTarget) Error() string {
	return fmt.Sprintf("no derivable route reaches %s", e.Target)
}

// RootMissing signals that the root aggregation record could not be
// located by (resourceType, externalKey).
type RootMissing struct {
	ResourceType string
	ExternalKey  string
}

func (e *RootMissing) Error() string {
	return fmt.Sprintf("root aggregation record missing: %s %q", e.ResourceType, e.ExternalKey)
}

// CycleDetected signals that an explicit route revisits a node or an
// edge label, or otherwise fails the simple-path discipline.
type CycleDetected struct {
	HopIndex int
	Node     string
}

func (e *CycleDetected) Error() string {
	return fmt.Sprintf("cycle detected at hop %d: %s already visited", e.HopIndex, e.Node)
}

// RouteInvalid signals any other explicit-route validation failure
// (non-contiguous hop, unknown edge, unknown field, wrong final target,
// empty via, missing key), each carrying a distinct Reason and the
// offending HopIndex. A duplicated edge label revisits a node and is
// reported as CycleDetected instead.
type RouteInvalid struct {
	HopIndex int
	Reason   string
}

func (e *RouteInvalid) Error() string {
	return fmt.Sprintf("invalid route at hop %d: %s", e.HopIndex, e.Reason)
}

// UnsupportedType signals that a rebuild was requested for a type with
// no registered handler in the aggregation record builder's dispatch
// table. The cascade orchestrator treats this as the
// distinct *skipped* outcome, not a failure.
type UnsupportedType struct {
	ResourceType string
}

func (e *UnsupportedType) Error() string {
	return fmt.Sprintf("no rebuild handler registered for type %s", e.ResourceType)
}

// InternalInvariant signals a programmer error: an invariant that
// should be impossible to violate given well-formed configuration was
// violated anyway. Fail fast, do not attempt recovery.
type InternalInvariant struct {
	Reason string
}

func (e *InternalInvariant) Error() string {
	return fmt.Sprintf("internal invariant violated: %s", e.Reason)
}
