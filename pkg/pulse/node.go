package pulse

import (
	"sync"
	"sync/atomic"
)

// Source is any readable graph node that can be depended upon: a State or a
// Computed. The interface is sealed; both implementations live in this
// package.
type Source interface {
	// ID returns the node's unique identifier.
	ID() uint64

	core() *node

	// refreshNeeded reports whether this source has advanced past, or is
	// recursively stale relative to, a dependent whose cache was built at rev.
	refreshNeeded(rev uint64) bool

	// dirty is the read-only staleness probe used by Watcher.Pending.
	dirty() bool

	// becameLive and becameDead fire on the 0→1 and 1→0 transitions of the
	// node's liveness refcount.
	becameLive()
	becameDead()
}

// Dependent is any node with a recorded dependency list: a Computed or a
// Watcher.
type Dependent interface {
	// ID returns the node's unique identifier.
	ID() uint64

	// sourceSnapshot returns a copy of the current dependency list.
	sourceSnapshot() []Source
}

// node carries the per-node bookkeeping shared by State and Computed:
// revision stamps, reverse edges, and the liveness refcount.
type node struct {
	id uint64

	// latest is bumped on every direct mutation of the node.
	latest atomic.Uint64

	// lastObserved is set to latest on every consumption-enabled read.
	// The node is dirty while latest > lastObserved.
	lastObserved atomic.Uint64

	mu sync.Mutex

	// sinks are Computed dependents whose last evaluation read this node.
	// Rebuilt incrementally on each recomputation; never an owning reference.
	sinks map[uint64]Dependent

	// watchers are Watchers whose watched set contains this node directly.
	watchers map[uint64]*Watcher

	// liveCount is the number of watchers watching this node directly plus
	// the number of live Computed sinks that read it last evaluation.
	liveCount int

	onWatched   func()
	onUnwatched func()
}

func (n *node) init() {
	n.id = nextNodeID()
}

// observe marks the node freshly observed.
func (n *node) observe() {
	n.lastObserved.Store(n.latest.Load())
}

func (n *node) isLive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.liveCount > 0
}

func (n *node) addSink(d Dependent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sinks == nil {
		n.sinks = make(map[uint64]Dependent)
	}
	n.sinks[d.ID()] = d
}

func (n *node) removeSink(d Dependent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.sinks, d.ID())
}

func (n *node) addWatcher(w *Watcher) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.watchers == nil {
		n.watchers = make(map[uint64]*Watcher)
	}
	n.watchers[w.ID()] = w
}

func (n *node) removeWatcher(w *Watcher) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.watchers, w.ID())
}

// retain increments a source's liveness refcount, firing its watched
// transition on 0→1. A Computed transitioning to live retains its own sources
// in turn, so liveness flows down the dependency chain.
func retain(s Source) {
	n := s.core()
	n.mu.Lock()
	n.liveCount++
	first := n.liveCount == 1
	n.mu.Unlock()

	if first {
		engineStats.liveTransitions.Add(1)
		s.becameLive()
	}
}

// release decrements a source's liveness refcount, firing its unwatched
// transition on 1→0.
func release(s Source) {
	n := s.core()
	n.mu.Lock()
	n.liveCount--
	last := n.liveCount == 0
	n.mu.Unlock()

	if last {
		engineStats.liveTransitions.Add(1)
		s.becameDead()
	}
}
