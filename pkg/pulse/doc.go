// Package pulse is a dependency-tracking and memoization engine for a
// reactive-value graph.
//
// The graph has three kinds of nodes. State[T] is a writable leaf value.
// Computed[T] is a derived value, recomputed lazily when read and memoized
// against a global revision clock. Watcher is a liveness root that is
// notified when any transitively watched node changes.
//
// # Core Types
//
// State[T] holds a writable value:
//
//	count := NewState(0)
//	value := count.Get() // read (records a dependency when tracking)
//	count.Set(5)         // write (bumps the clock, notifies watchers)
//
// Computed[T] derives a value from whatever it reads:
//
//	doubled := NewComputed(func() int { return count.Get() * 2 })
//	value := doubled.Get() // recomputes only if a dependency changed
//
// Watcher observes nodes and probes for pending work:
//
//	w := NewWatcher(func() { /* schedule a flush; do not touch signals here */ })
//	w.Watch(count, doubled)
//	for _, s := range w.Pending() { /* flush via Get */ }
//
// Recomputation is pull-based: writing a State never eagerly re-runs any
// derivation. A write only advances the revision clock and pings registered
// watchers; the watchers' owner decides when to flush.
//
// # Contracts
//
// A notify callback must not read or write any signal; doing so panics with
// ErrReentrantNotification. Writing a State that the in-progress computation
// already read panics with ErrSelfReferentialWrite. A panicking compute
// function propagates to the Get caller and leaves the cache invalid, so the
// next Get re-attempts the computation.
//
// # Concurrency
//
// The engine is synchronous and assumes a single mutating goroutine. Tracking
// contexts are per-goroutine, so nested evaluation is stack-disciplined, and
// node state is guarded by small mutexes so read-mostly concurrent use stays
// coherent, but the ordering guarantees of the revision clock only hold under
// exclusive mutation.
package pulse
