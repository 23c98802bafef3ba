package pulse

// The introspection queries answer from the same edge maps the engine
// maintains operationally; they never walk the graph.

// SourcesOf returns the dependency list last recorded by d: in read order for
// a Computed, arbitrary order for a Watcher's watched set.
func SourcesOf(d Dependent) []Source {
	return d.sourceSnapshot()
}

// SinksOf returns every dependent currently wired to s: Computeds whose last
// evaluation read it, and Watchers watching it directly. Order is arbitrary.
func SinksOf(s Source) []Dependent {
	n := s.core()
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Dependent, 0, len(n.sinks)+len(n.watchers))
	for _, d := range n.sinks {
		out = append(out, d)
	}
	for _, w := range n.watchers {
		out = append(out, w)
	}
	return out
}

// HasSinks reports whether anything currently depends on s.
func HasSinks(s Source) bool {
	n := s.core()
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sinks)+len(n.watchers) > 0
}

// HasSources reports whether d recorded any dependency.
func HasSources(d Dependent) bool {
	return len(d.sourceSnapshot()) > 0
}

// IsLive reports whether s is reachable from some watcher, directly or
// through a chain of live Computeds.
func IsLive(s Source) bool {
	return s.core().isLive()
}

// IsDirty is the read-only staleness probe behind Watcher.Pending, exposed
// for diagnostics. It never forces a recomputation.
func IsDirty(s Source) bool {
	return s.dirty()
}
