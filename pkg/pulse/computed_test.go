package pulse

import (
	"errors"
	"testing"
)

func TestComputedMemoization(t *testing.T) {
	computations := 0
	count := NewState(5)

	doubled := NewComputed(func() int {
		computations++
		return count.Get() * 2
	})

	if doubled.Get() != 10 {
		t.Errorf("expected 10, got %d", doubled.Get())
	}
	if computations != 1 {
		t.Errorf("expected 1 computation, got %d", computations)
	}

	// Second read with no intervening write is served from the cache.
	if doubled.Get() != 10 {
		t.Errorf("expected 10, got %d", doubled.Get())
	}
	if computations != 1 {
		t.Errorf("expected still 1 computation, got %d", computations)
	}
}

func TestComputedInvalidation(t *testing.T) {
	computations := 0
	count := NewState(1)

	doubled := NewComputed(func() int {
		computations++
		return count.Get() * 2
	})

	if doubled.Get() != 2 {
		t.Errorf("expected 2, got %d", doubled.Get())
	}

	count.Set(5)
	if doubled.Get() != 10 {
		t.Errorf("expected 10 after write, got %d", doubled.Get())
	}
	if computations != 2 {
		t.Errorf("expected exactly 2 computations, got %d", computations)
	}
}

func TestComputedTransitiveInvalidation(t *testing.T) {
	leaf := NewState(1)
	inner := NewComputed(func() int { return leaf.Get() + 1 })

	outerRuns := 0
	outer := NewComputed(func() int {
		outerRuns++
		return inner.Get() * 10
	})

	if outer.Get() != 20 {
		t.Errorf("expected 20, got %d", outer.Get())
	}

	leaf.Set(4)
	if outer.Get() != 50 {
		t.Errorf("expected 50, got %d", outer.Get())
	}
	if outerRuns != 2 {
		t.Errorf("expected 2 outer runs, got %d", outerRuns)
	}

	// A memoized inner read still wires transitive edges: the outer's
	// sources include both the inner computed and its leaf.
	srcs := SourcesOf(outer)
	ids := make(map[uint64]bool, len(srcs))
	for _, s := range srcs {
		ids[s.ID()] = true
	}
	if !ids[inner.ID()] || !ids[leaf.ID()] {
		t.Errorf("expected outer sources to include inner and leaf, got %v", ids)
	}
}

func TestComputedDiamond(t *testing.T) {
	var bRuns, cRuns, dRuns int
	a := NewState(1)

	b := NewComputed(func() int {
		bRuns++
		return a.Get() + 1
	})
	c := NewComputed(func() int {
		cRuns++
		return a.Get() * 2
	})
	d := NewComputed(func() int {
		dRuns++
		return b.Get() + c.Get()
	})

	if d.Get() != 4 {
		t.Errorf("expected 4, got %d", d.Get())
	}

	bRuns, cRuns, dRuns = 0, 0, 0
	a.Set(10)

	if d.Get() != 31 {
		t.Errorf("expected 31, got %d", d.Get())
	}
	if bRuns != 1 || cRuns != 1 || dRuns != 1 {
		t.Errorf("diamond must re-derive each node exactly once, got b=%d c=%d d=%d", bRuns, cRuns, dRuns)
	}
}

func TestComputedConstant(t *testing.T) {
	computations := 0
	c := NewComputed(func() int {
		computations++
		return 42
	})

	unrelated := NewState(0)

	if c.Get() != 42 {
		t.Errorf("expected 42, got %d", c.Get())
	}
	unrelated.Set(1)
	if c.Get() != 42 {
		t.Errorf("expected 42, got %d", c.Get())
	}
	if computations != 1 {
		t.Errorf("a computed with no sources never recomputes, got %d runs", computations)
	}
}

func TestComputedScenario(t *testing.T) {
	computations := 0
	state := NewState(1)

	computed := NewComputed(func() int {
		computations++
		return state.Get() * 2
	})

	if computed.Get() != 2 {
		t.Errorf("expected 2, got %d", computed.Get())
	}

	state.Set(5)
	if computed.Get() != 10 {
		t.Errorf("expected 10, got %d", computed.Get())
	}
	if computations != 2 {
		t.Errorf("expected the derivation to run exactly twice, got %d", computations)
	}
}

func TestComputedPanicPropagatesAndRetries(t *testing.T) {
	fail := true
	runs := 0
	s := NewState(3)

	c := NewComputed(func() int {
		runs++
		v := s.Get()
		if fail {
			panic("derivation failure")
		}
		return v * v
	})

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected compute panic to propagate")
			}
		}()
		c.Get()
	}()

	// The failed evaluation must not leave a falsely fresh cache.
	fail = false
	if c.Get() != 9 {
		t.Errorf("expected 9 after retry, got %d", c.Get())
	}
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}

	// And the recovered cache memoizes normally again.
	if c.Get() != 9 {
		t.Errorf("expected 9, got %d", c.Get())
	}
	if runs != 2 {
		t.Errorf("expected still 2 runs, got %d", runs)
	}
}

func TestComputedRevisionBumpsOnRecompute(t *testing.T) {
	s := NewState(1)
	// The value never changes, but the revision must still advance on every
	// recomputation so downstream revision checks stay valid.
	c := NewComputed(func() int {
		s.Get()
		return 0
	})

	c.Get()
	first := c.core().latest.Load()

	s.Set(2)
	c.Get()
	second := c.core().latest.Load()

	if second <= first {
		t.Errorf("expected revision to advance on recompute: %d then %d", first, second)
	}
}

func TestComputedCycleGuard(t *testing.T) {
	var c *Computed[int]
	runs := 0
	c = NewComputed(func() int {
		runs++
		if runs > 1 {
			t.Fatal("cycle guard failed to stop recursion")
		}
		return Untrack(func() int { return 0 }) + selfRead(c)
	})

	if c.Get() != 0 {
		t.Errorf("expected 0, got %d", c.Get())
	}
}

// selfRead reads a computed from inside its own evaluation.
func selfRead(c *Computed[int]) int {
	return c.Get()
}

func TestComputedPanicError(t *testing.T) {
	s := NewState(1)
	c := NewComputed(func() int {
		if s.Get() > 0 {
			panic(errors.New("boom"))
		}
		return 0
	})

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || err.Error() != "boom" {
			t.Fatalf("expected original panic value to propagate, got %v", r)
		}
	}()
	c.Get()
}
