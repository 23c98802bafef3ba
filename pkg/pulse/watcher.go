package pulse

import (
	"sync"
	"sync/atomic"
)

// Watcher is a liveness root: a set of watched nodes and a notify callback.
// Any State write pings every registered, armed watcher exactly once; the
// watcher is re-armed by the next Watch call. Registry membership is derived
// from the watched set (registered exactly while non-empty), never toggled
// independently.
//
// The notify callback must not read or write any signal; it only learns
// that something changed. Probe with Pending and flush with Get from outside
// the callback.
type Watcher struct {
	id     uint64
	notify func()

	mu      sync.Mutex
	watched map[uint64]Source

	// armed is cleared when the notify callback fires and set again by any
	// Watch call, including a zero-argument re-arm.
	armed atomic.Bool
}

// NewWatcher creates a watcher with the given notify callback. The watcher
// observes nothing until Watch is called.
func NewWatcher(notify func()) *Watcher {
	return &Watcher{
		id:     nextNodeID(),
		notify: notify,
	}
}

// ID returns the watcher's unique identifier.
func (w *Watcher) ID() uint64 {
	return w.id
}

// Watch adds the given nodes to the watched set and re-arms the notify
// callback. Calling Watch with no arguments is the idiomatic way to re-arm
// after a notification without changing the set. Each node's onWatched hook
// fires only on its overall unwatched→watched transition, which may have
// already happened via another watcher or a live Computed chain.
func (w *Watcher) Watch(signals ...Source) {
	w.mu.Lock()
	if w.watched == nil {
		w.watched = make(map[uint64]Source)
	}
	added := make([]Source, 0, len(signals))
	for _, s := range signals {
		id := s.core().id
		if _, ok := w.watched[id]; ok {
			continue
		}
		w.watched[id] = s
		added = append(added, s)
	}
	registered := len(w.watched) > 0
	w.mu.Unlock()

	for _, s := range added {
		s.core().addWatcher(w)
		retain(s)
	}
	if registered {
		watchers.add(w)
	}
	w.armed.Store(true)
}

// Unwatch removes the given nodes from the watched set. A node's onUnwatched
// hook fires exactly when it becomes unreachable from every watcher, directly
// or through a live Computed chain. When the set empties, the watcher leaves
// the registry and will not be notified again until re-watched.
func (w *Watcher) Unwatch(signals ...Source) {
	w.mu.Lock()
	removed := make([]Source, 0, len(signals))
	for _, s := range signals {
		id := s.core().id
		if _, ok := w.watched[id]; !ok {
			continue
		}
		delete(w.watched, id)
		removed = append(removed, s)
	}
	empty := len(w.watched) == 0
	w.mu.Unlock()

	for _, s := range removed {
		s.core().removeWatcher(w)
		release(s)
	}
	if empty {
		watchers.remove(w)
	}
}

// Pending returns the watched nodes that are currently dirty: States whose
// latest revision outruns their observation stamp, and Computeds with at
// least one recursively stale source. Pending never forces a recomputation;
// Get each returned node to flush it.
func (w *Watcher) Pending() []Source {
	var out []Source
	for _, s := range w.sourceSnapshot() {
		if s.dirty() {
			out = append(out, s)
		}
	}
	return out
}

func (w *Watcher) sourceSnapshot() []Source {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Source, 0, len(w.watched))
	for _, s := range w.watched {
		out = append(out, s)
	}
	return out
}

// watcherRegistry is the process-wide set of watchers with non-empty watched
// sets.
type watcherRegistry struct {
	mu  sync.Mutex
	all map[uint64]*Watcher
}

var watchers watcherRegistry

func (r *watcherRegistry) add(w *Watcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.all == nil {
		r.all = make(map[uint64]*Watcher)
	}
	r.all[w.id] = w
}

func (r *watcherRegistry) remove(w *Watcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.all, w.id)
}

func (r *watcherRegistry) snapshot() []*Watcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Watcher, 0, len(r.all))
	for _, w := range r.all {
		out = append(out, w)
	}
	return out
}

// notifyWatchers fires every registered, armed watcher once, synchronously.
// The copy-before-notify keeps the registry lock out of user code, and the
// notifying flag makes signal access inside a callback fail loudly.
func notifyWatchers(tc *trackingContext) {
	for _, w := range watchers.snapshot() {
		if !w.armed.CompareAndSwap(true, false) {
			continue
		}
		engineStats.notifications.Add(1)
		if h := currentHooks(); h.OnNotify != nil {
			h.OnNotify(w.id)
		}

		tc.notifying = true
		func() {
			defer func() { tc.notifying = false }()
			w.notify()
		}()
	}
}
