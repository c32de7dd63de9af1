// Package cascade implements the cascade orchestrator (C5): given a
// root entity, rebuild its transitive closure of reachable aggregation
// records in a fixed per-type dependency order, tracking
// attempted/completed/failed/skipped sets so work is neither repeated
// nor left to recurse forever over the typed graph's cycles. State is
// a mutex-guarded map of small state values with narrow mutator
// methods.
package cascade

import (
	"sort"
	"sync"

	"github.com/evalgo-org/sportsxref/typegraph"
)

// Key identifies one entity instance across the attempted/completed/
// failed/skipped sets.
type Key struct {
	Type        typegraph.EntityType
	ExternalKey string
}

// State holds the attempted/completed/failed/skipped sets for the
// lifetime of one RebuildTransitively call. completed, failed and
// skipped are disjoint; attempted holds every key claimed through
// tryAttempt, so it also contains every key of the other three.
type State struct {
	mu        sync.Mutex
	runID     string
	attempted map[Key]bool
	completed map[Key]bool
	failed    map[Key]bool
	skipped   map[Key]bool
}

func newState(runID string) *State {
	return &State{
		runID:     runID,
		attempted: map[Key]bool{},
		completed: map[Key]bool{},
		failed:    map[Key]bool{},
		skipped:   map[Key]bool{},
	}
}

// tryAttempt marks k attempted if it has not been seen before, and
// reports whether it newly became the caller's to process. Worklists
// from different phases can both enqueue the same key; only the first
// caller gets to rebuild it.
func (s *State) tryAttempt(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempted[k] {
		return false
	}
	s.attempted[k] = true
	return true
}

func (s *State) markCompleted(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[k] = true
}

func (s *State) markFailed(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[k] = true
}

func (s *State) markSkipped(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped[k] = true
}

// Snapshot is a point-in-time, deterministically ordered view of a
// State, suitable for assertions and for reporting cascade outcomes to
// a caller.
type Snapshot struct {
	RunID     string
	Attempted []Key
	Completed []Key
	Failed    []Key
	Skipped   []Key
}

// Snapshot copies out the current contents of every set.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		RunID:     s.runID,
		Attempted: sortedKeys(s.attempted),
		Completed: sortedKeys(s.completed),
		Failed:    sortedKeys(s.failed),
		Skipped:   sortedKeys(s.skipped),
	}
}

func sortedKeys(set map[Key]bool) []Key {
	out := make([]Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ExternalKey < out[j].ExternalKey
	})
	return out
}
