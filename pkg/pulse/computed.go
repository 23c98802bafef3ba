package pulse

import (
	"sync"
	"time"
)

// Computed is a derived value. Its compute function is re-run only when a
// consumer reads it and at least one of the sources recorded on the previous
// evaluation has changed; otherwise reads are served from the memo cache.
// A Computed never owns its sources; edges are an index rebuilt on every
// evaluation.
type Computed[T any] struct {
	n node

	compute func() T

	mu      sync.Mutex
	value   T
	valid   bool
	sources []Source

	// computing guards against a derivation re-entering itself; the stale
	// cached value is returned instead of recursing. probing does the same
	// for the recursive staleness probe on erroneously cyclic graphs.
	computing bool
	probing   bool

	// equal only decides the changed flag reported to hooks and consumers.
	// Memoization always uses revision comparison, never this comparator.
	equal func(T, T) bool
}

// NewComputed creates a derived value. compute must be a pure function of the
// signals it reads; it is not invoked until the first Get.
func NewComputed[T any](compute func() T) *Computed[T] {
	c := &Computed[T]{compute: compute}
	c.n.init()
	return c
}

// WithEquals configures the comparator used to report value changes. It does
// not affect memoization, which is revision-based. Returns the computed.
func (c *Computed[T]) WithEquals(fn func(T, T) bool) *Computed[T] {
	c.equal = fn
	return c
}

// WithWatchHooks configures watched/unwatched transition callbacks, as on
// State. Returns the computed.
func (c *Computed[T]) WithWatchHooks(onWatched, onUnwatched func()) *Computed[T] {
	c.n.onWatched = onWatched
	c.n.onUnwatched = onUnwatched
	return c
}

// ID returns the node's unique identifier.
func (c *Computed[T]) ID() uint64 {
	return c.n.id
}

// Get returns the derived value, recomputing first if any recorded source
// changed. On both the memoized and the recompute path the computed records
// itself and, transitively, its sources into any enclosing tracking frame, so
// a memoized read inside another derivation still wires the correct edges.
//
// A compute panic propagates to the caller; the cache is left invalid so the
// next Get re-attempts the computation.
func (c *Computed[T]) Get() T {
	tc := currentContext()
	tc.checkNotifying()

	if c.stale() {
		c.recompute(tc)
	} else {
		engineStats.cacheHits.Add(1)
	}

	if tc.consuming() {
		tc.record(c)
		for _, src := range c.sourceSnapshot() {
			tc.record(src)
		}
		c.n.observe()
	}

	c.mu.Lock()
	v := c.value
	c.mu.Unlock()
	return v
}

// Peek returns the derived value without recording dependencies in the
// enclosing frame. The value is still refreshed if stale.
func (c *Computed[T]) Peek() T {
	return Untrack(c.Get)
}

// stale reports whether the cache must be rebuilt. An uninitialized (or
// failed) cache is always stale. A computed with zero recorded sources is a
// constant: always fresh after its first successful evaluation. Otherwise the
// cache is stale iff some source is recursively stale or has a revision newer
// than the one this node was built at.
func (c *Computed[T]) stale() bool {
	c.mu.Lock()
	if c.probing {
		c.mu.Unlock()
		return false
	}
	c.probing = true
	valid := c.valid
	srcs := c.sources
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.probing = false
		c.mu.Unlock()
	}()

	if !valid {
		return true
	}
	if len(srcs) == 0 {
		return false
	}

	rev := c.n.latest.Load()
	for _, s := range srcs {
		if s.refreshNeeded(rev) {
			return true
		}
	}
	return false
}

func (c *Computed[T]) recompute(tc *trackingContext) {
	c.mu.Lock()
	if c.computing {
		c.mu.Unlock()
		return
	}
	c.computing = true
	old := c.sources
	c.mu.Unlock()

	// Old edges are no longer guaranteed dependencies; drop them before the
	// new evaluation re-records, so the edge index never grows stale entries.
	for _, s := range old {
		s.core().removeSink(c)
	}

	f := newFrame(c)
	start := time.Now()

	var value T
	var completed bool

	defer func() {
		captured := f.sources

		// Swap liveness retains new-first so a source present in both the
		// old and new lists never sees a spurious unwatched/watched flap.
		live := c.n.isLive()
		if live {
			for _, s := range captured {
				retain(s)
			}
		}
		for _, s := range captured {
			s.core().addSink(c)
		}
		if live {
			for _, s := range old {
				release(s)
			}
		}

		changed := false
		c.mu.Lock()
		c.sources = captured
		if completed {
			changed = !c.valid || !c.equals(c.value, value)
			c.value = value
			c.valid = true
		} else {
			c.valid = false
		}
		c.computing = false
		c.mu.Unlock()

		// The revision bumps on every evaluation, not only on value change,
		// so downstream revision comparisons stay valid.
		c.n.latest.Store(bump())
		engineStats.recomputations.Add(1)
		if h := currentHooks(); h.OnRecompute != nil {
			h.OnRecompute(c.n.id, time.Since(start), changed)
		}
	}()

	tc.withFrame(f, func() {
		value = c.compute()
		completed = true
	})
}

func (c *Computed[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}

func (c *Computed[T]) core() *node {
	return &c.n
}

// refreshNeeded reports whether a dependent whose cache was built at rev must
// rebuild because of this node: either this node is itself recursively stale,
// or it recomputed after the dependent's snapshot.
func (c *Computed[T]) refreshNeeded(rev uint64) bool {
	if c.stale() {
		return true
	}
	return c.n.latest.Load() > rev
}

// dirty is the read-only staleness probe: it never forces recomputation.
func (c *Computed[T]) dirty() bool {
	return c.stale()
}

func (c *Computed[T]) becameLive() {
	if c.n.onWatched != nil {
		c.n.onWatched()
	}
	for _, s := range c.sourceSnapshot() {
		retain(s)
	}
}

func (c *Computed[T]) becameDead() {
	for _, s := range c.sourceSnapshot() {
		release(s)
	}
	if c.n.onUnwatched != nil {
		c.n.onUnwatched()
	}
}

func (c *Computed[T]) sourceSnapshot() []Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}
