package pulse

import (
	"fmt"
	"sync"
)

// State is a writable leaf value in the reactive graph. Reading it during a
// derivation records a dependency; writing it bumps the revision clock and
// pings every registered watcher.
type State[T any] struct {
	n node

	mu    sync.RWMutex
	value T

	// equal decides whether a write actually changed the value. nil means
	// defaultEquals.
	equal func(T, T) bool
}

// NewState creates a state holding initial.
func NewState[T any](initial T) *State[T] {
	s := &State[T]{value: initial}
	s.n.init()
	return s
}

// WithEquals configures a custom equality comparator and returns the state.
// Comparator-equal writes are suppressed entirely: no clock bump, no
// notification.
func (s *State[T]) WithEquals(fn func(T, T) bool) *State[T] {
	s.equal = fn
	return s
}

// WithWatchHooks configures callbacks fired when the state transitions into
// or out of being watched (directly by a Watcher, or as a dependency of a
// live Computed). Either hook may be nil. Returns the state.
func (s *State[T]) WithWatchHooks(onWatched, onUnwatched func()) *State[T] {
	s.n.onWatched = onWatched
	s.n.onUnwatched = onUnwatched
	return s
}

// ID returns the node's unique identifier.
func (s *State[T]) ID() uint64 {
	return s.n.id
}

// Get returns the current value. When dependency recording is enabled it
// records this state into the active tracking frame and marks the state
// freshly observed. A leaf is never stale with respect to itself, so no
// recomputation is involved.
func (s *State[T]) Get() T {
	tc := currentContext()
	tc.checkNotifying()

	if tc.consuming() {
		tc.record(s)
		s.n.observe()
	}

	s.mu.RLock()
	v := s.value
	s.mu.RUnlock()
	return v
}

// Peek returns the current value without recording a dependency or touching
// the observation stamp.
func (s *State[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set writes a new value. Comparator-equal writes are complete no-ops.
// Otherwise the value is stored, the revision clock advances, and every
// registered watcher is notified synchronously; watchers decide for
// themselves via Pending whether they are affected.
//
// Set panics with ErrSelfReferentialWrite when the computation currently in
// progress has already read this state, and with ErrReentrantNotification
// when called from a notify callback.
func (s *State[T]) Set(value T) {
	tc := currentContext()
	tc.checkNotifying()
	if tc.readInProgress(s.n.id) {
		panic(fmt.Errorf("%w: node %d", ErrSelfReferentialWrite, s.n.id))
	}

	s.mu.Lock()
	if s.equals(s.value, value) {
		s.mu.Unlock()
		engineStats.suppressedWrites.Add(1)
		return
	}
	s.value = value
	s.mu.Unlock()

	s.n.latest.Store(bump())
	engineStats.writes.Add(1)
	notifyWatchers(tc)
}

// Update writes the result of applying fn to the current value, with the same
// suppression and notification rules as Set.
func (s *State[T]) Update(fn func(T) T) {
	s.Set(fn(s.Peek()))
}

func (s *State[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

func (s *State[T]) core() *node {
	return &s.n
}

// refreshNeeded reports whether this leaf changed after a dependent's cache
// was built at rev.
func (s *State[T]) refreshNeeded(rev uint64) bool {
	return s.n.latest.Load() > rev
}

// dirty reports whether the state changed since it was last observed.
func (s *State[T]) dirty() bool {
	return s.n.latest.Load() > s.n.lastObserved.Load()
}

func (s *State[T]) becameLive() {
	if s.n.onWatched != nil {
		s.n.onWatched()
	}
}

func (s *State[T]) becameDead() {
	if s.n.onUnwatched != nil {
		s.n.onUnwatched()
	}
}
