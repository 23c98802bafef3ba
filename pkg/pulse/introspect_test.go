package pulse

import "testing"

func TestSourcesOfComputedOrdered(t *testing.T) {
	a := NewState(1)
	b := NewState(2)
	c := NewComputed(func() int { return a.Get() + b.Get() })
	c.Get()

	srcs := SourcesOf(c)
	if len(srcs) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(srcs))
	}
	if srcs[0].ID() != a.ID() || srcs[1].ID() != b.ID() {
		t.Errorf("expected sources in read order [a b], got [%d %d]", srcs[0].ID(), srcs[1].ID())
	}
}

func TestSourcesRebuiltOnRecompute(t *testing.T) {
	flip := NewState(true)
	a := NewState(1)
	b := NewState(2)

	c := NewComputed(func() int {
		if flip.Get() {
			return a.Get()
		}
		return b.Get()
	})
	c.Get()

	if got := len(SourcesOf(c)); got != 2 {
		t.Fatalf("expected [flip a], got %d sources", got)
	}
	if len(SinksOf(a)) != 1 {
		t.Errorf("expected a to have the computed as sink")
	}

	flip.Set(false)
	c.Get()

	// Stale edges from the previous evaluation are dropped, not accumulated.
	if HasSinks(a) {
		t.Error("expected a's reverse edge removed after recompute")
	}
	if !HasSinks(b) {
		t.Error("expected b to gain the computed as sink")
	}
}

func TestSinksOfUnion(t *testing.T) {
	s := NewState(1)
	c := NewComputed(func() int { return s.Get() })
	c.Get()

	w := NewWatcher(func() {})
	w.Watch(s)
	defer w.Unwatch(s)

	sinks := SinksOf(s)
	if len(sinks) != 2 {
		t.Fatalf("expected computed and watcher as sinks, got %d", len(sinks))
	}
	ids := map[uint64]bool{}
	for _, d := range sinks {
		ids[d.ID()] = true
	}
	if !ids[c.ID()] || !ids[w.ID()] {
		t.Errorf("expected sink union to contain %d and %d, got %v", c.ID(), w.ID(), ids)
	}
}

func TestHasSourcesHasSinks(t *testing.T) {
	s := NewState(1)
	constant := NewComputed(func() int { return 7 })
	constant.Get()

	if HasSinks(s) {
		t.Error("fresh state must have no sinks")
	}
	if HasSources(constant) {
		t.Error("constant derivation must have no sources")
	}

	c := NewComputed(func() int { return s.Get() })
	c.Get()

	if !HasSinks(s) {
		t.Error("expected state to have a sink")
	}
	if !HasSources(c) {
		t.Error("expected derivation to have a source")
	}

	w := NewWatcher(func() {})
	w.Watch(c)
	defer w.Unwatch(c)

	if !HasSources(w) {
		t.Error("expected watcher to have sources")
	}
	if !HasSinks(c) {
		t.Error("expected computed to have the watcher as sink")
	}
}

func TestIsLiveAndIsDirty(t *testing.T) {
	s := NewState(1)
	c := NewComputed(func() int { return s.Get() })
	c.Get()

	if IsLive(s) || IsLive(c) {
		t.Error("nothing is watched yet")
	}

	w := NewWatcher(func() {})
	w.Watch(c)
	defer w.Unwatch(c)

	if !IsLive(c) {
		t.Error("watched computed must be live")
	}
	if !IsLive(s) {
		t.Error("dependency of a live computed must be live")
	}

	if IsDirty(c) {
		t.Error("freshly read computed must not be dirty")
	}
	s.Set(2)
	if !IsDirty(c) {
		t.Error("computed must be dirty after a source write")
	}
	c.Get()
	if IsDirty(c) {
		t.Error("flushing must clear dirtiness")
	}
}
