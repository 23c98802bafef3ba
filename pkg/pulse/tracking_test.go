package pulse

import "testing"

func TestUntrackSuppressesDependency(t *testing.T) {
	tracked := NewState(1)
	ignored := NewState(10)
	runs := 0

	c := NewComputed(func() int {
		runs++
		base := tracked.Get()
		extra := Untrack(func() int { return ignored.Get() })
		return base + extra
	})

	if c.Get() != 11 {
		t.Errorf("expected 11, got %d", c.Get())
	}

	// A state read only inside Untrack must not invalidate the derivation.
	ignored.Set(100)
	if c.Get() != 11 {
		t.Errorf("untracked read must not invalidate, got %d", c.Get())
	}
	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}

	// The tracked read still does.
	tracked.Set(2)
	if c.Get() != 102 {
		t.Errorf("expected 102, got %d", c.Get())
	}
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestUntrackReturnsResult(t *testing.T) {
	s := NewState("hello")
	got := Untrack(func() string { return s.Get() })
	if got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
}

func TestUntrackNests(t *testing.T) {
	a := NewState(1)
	b := NewState(2)
	runs := 0

	c := NewComputed(func() int {
		runs++
		return Untrack(func() int {
			return Untrack(func() int { return a.Get() }) + b.Get()
		})
	})

	if c.Get() != 3 {
		t.Errorf("expected 3, got %d", c.Get())
	}

	a.Set(5)
	b.Set(6)
	if c.Get() != 3 {
		t.Errorf("nested untracked reads must not invalidate, got %d", c.Get())
	}
	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}
}

func TestUntrackedComputedStillTracksItsOwnSources(t *testing.T) {
	leaf := NewState(1)
	inner := NewComputed(func() int { return leaf.Get() * 2 })

	// Evaluating a derivation inside Untrack shields only the enclosing
	// frame; the derivation itself still records its dependencies.
	got := Untrack(inner.Get)
	if got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if !HasSources(inner) {
		t.Error("inner derivation must have recorded its own sources")
	}

	leaf.Set(3)
	if inner.Get() != 6 {
		t.Errorf("expected 6, got %d", inner.Get())
	}
}

func TestCurrentComputed(t *testing.T) {
	if CurrentComputed() != nil {
		t.Error("expected nil outside any evaluation")
	}

	var seen Dependent
	c := NewComputed(func() int {
		seen = CurrentComputed()
		return 0
	})
	c.Get()

	if seen == nil {
		t.Fatal("expected the in-progress derivation")
	}
	if seen.ID() != c.ID() {
		t.Errorf("expected id %d, got %d", c.ID(), seen.ID())
	}
	if CurrentComputed() != nil {
		t.Error("expected nil after evaluation completes")
	}
}

func TestCurrentComputedNested(t *testing.T) {
	var innerSeen, outerSeen Dependent

	inner := NewComputed(func() int {
		innerSeen = CurrentComputed()
		return 1
	})
	outer := NewComputed(func() int {
		v := inner.Get()
		outerSeen = CurrentComputed()
		return v
	})

	outer.Get()
	if innerSeen == nil || innerSeen.ID() != inner.ID() {
		t.Error("inner frame must report the inner derivation")
	}
	if outerSeen == nil || outerSeen.ID() != outer.ID() {
		t.Error("outer frame must be restored after the nested evaluation")
	}
}

func TestContextRestoredAfterPanic(t *testing.T) {
	s := NewState(1)
	c := NewComputed(func() int {
		s.Get()
		panic("boom")
	})

	func() {
		defer func() { _ = recover() }()
		c.Get()
	}()

	// The frame stack must be back to empty: top-level reads are not
	// recorded anywhere and CurrentComputed is nil.
	if CurrentComputed() != nil {
		t.Error("expected frame stack restored after compute panic")
	}
	s.Set(2)
	if s.Get() != 2 {
		t.Errorf("expected 2, got %d", s.Get())
	}
}
