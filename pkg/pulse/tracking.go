package pulse

import (
	"fmt"
	"sync"

	"github.com/petermattis/goid"
)

// trackingContext holds the reactive state for one goroutine: the stack of
// recording frames, the untracked-read depth, and the notify reentrancy flag.
// Each goroutine has its own context, so nested evaluation is strictly
// stack-disciplined without a lock.
type trackingContext struct {
	frames    []*frame
	untracked int
	notifying bool
}

// frame accumulates the sources read during one derivation. Sources are kept
// in read order and deduplicated by node ID.
type frame struct {
	owner   Dependent
	ownerID uint64
	sources []Source
	seen    map[uint64]struct{}
}

func newFrame(owner Dependent) *frame {
	return &frame{
		owner:   owner,
		ownerID: owner.ID(),
		seen:    make(map[uint64]struct{}),
	}
}

func (f *frame) record(s Source) {
	id := s.core().id
	// A derivation is never its own source.
	if id == f.ownerID {
		return
	}
	if _, ok := f.seen[id]; ok {
		return
	}
	f.seen[id] = struct{}{}
	f.sources = append(f.sources, s)
}

// trackingContexts stores per-goroutine contexts, keyed by goroutine ID.
var trackingContexts sync.Map

func currentContext() *trackingContext {
	gid := goid.Get()
	if tc, ok := trackingContexts.Load(gid); ok {
		return tc.(*trackingContext)
	}
	tc := &trackingContext{}
	trackingContexts.Store(gid, tc)
	return tc
}

// withFrame installs f as the current recording frame for the duration of fn,
// restoring the previous frame even if fn panics. Entering a frame re-enables
// consumption: a derivation evaluated inside Untrack still records its own
// dependencies, the untracked flag only shields the enclosing frame.
func (tc *trackingContext) withFrame(f *frame, fn func()) {
	tc.frames = append(tc.frames, f)
	savedUntracked := tc.untracked
	tc.untracked = 0

	defer func() {
		tc.untracked = savedUntracked
		tc.frames = tc.frames[:len(tc.frames)-1]
	}()

	fn()
}

// consuming reports whether reads should be recorded and observation stamps
// updated.
func (tc *trackingContext) consuming() bool {
	return tc.untracked == 0
}

// record adds s to the innermost frame, if any.
func (tc *trackingContext) record(s Source) {
	if len(tc.frames) == 0 {
		return
	}
	tc.frames[len(tc.frames)-1].record(s)
}

// readInProgress reports whether any in-progress computation frame on this
// goroutine has already read the node. Used to reject self-referential
// writes.
func (tc *trackingContext) readInProgress(id uint64) bool {
	for _, f := range tc.frames {
		if _, ok := f.seen[id]; ok {
			return true
		}
	}
	return false
}

// checkNotifying panics if called from inside a watcher notify callback.
func (tc *trackingContext) checkNotifying() {
	if tc.notifying {
		panic(fmt.Errorf("%w: flush from outside the callback instead", ErrReentrantNotification))
	}
}

// Untrack runs fn with dependency recording suspended and returns its result.
// Reads inside fn are not recorded into any enclosing frame and do not mark
// nodes as observed, so they never wire up an invalidation edge.
func Untrack[T any](fn func() T) T {
	tc := currentContext()
	tc.untracked++
	defer func() { tc.untracked-- }()
	return fn()
}

// CurrentComputed returns the derivation currently being evaluated on this
// goroutine, or nil outside of any evaluation.
func CurrentComputed() Dependent {
	tc := currentContext()
	if len(tc.frames) == 0 {
		return nil
	}
	return tc.frames[len(tc.frames)-1].owner
}
