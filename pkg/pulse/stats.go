package pulse

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of the engine's monotonic counters.
type Stats struct {
	// Writes is the number of State writes that changed a value.
	Writes uint64

	// SuppressedWrites is the number of State writes dropped by equality
	// suppression.
	SuppressedWrites uint64

	// Recomputations is the number of Computed evaluations, including failed
	// ones.
	Recomputations uint64

	// CacheHits is the number of Computed reads served from the memo cache.
	CacheHits uint64

	// Notifications is the number of watcher notify callbacks fired.
	Notifications uint64

	// LiveTransitions is the number of watched/unwatched liveness flips.
	LiveTransitions uint64
}

var engineStats struct {
	writes           atomic.Uint64
	suppressedWrites atomic.Uint64
	recomputations   atomic.Uint64
	cacheHits        atomic.Uint64
	notifications    atomic.Uint64
	liveTransitions  atomic.Uint64
}

// ReadStats returns a snapshot of the engine counters.
func ReadStats() Stats {
	return Stats{
		Writes:           engineStats.writes.Load(),
		SuppressedWrites: engineStats.suppressedWrites.Load(),
		Recomputations:   engineStats.recomputations.Load(),
		CacheHits:        engineStats.cacheHits.Load(),
		Notifications:    engineStats.notifications.Load(),
		LiveTransitions:  engineStats.liveTransitions.Load(),
	}
}

// Hooks receive engine events for observability integrations. Hook functions
// run synchronously on the mutating goroutine and must be cheap; they must
// not read or write signals.
type Hooks struct {
	// OnRecompute fires after each Computed evaluation. changed reports
	// whether the new value differs from the cached one per the node's
	// comparator; it is false for evaluations that panicked.
	OnRecompute func(id uint64, elapsed time.Duration, changed bool)

	// OnNotify fires before each watcher notify callback.
	OnNotify func(watcherID uint64)
}

var installedHooks atomic.Value // Hooks

// SetHooks installs observability hooks, replacing any previous set.
// Pass the zero Hooks to uninstall.
func SetHooks(h Hooks) {
	installedHooks.Store(h)
}

func currentHooks() Hooks {
	if h, ok := installedHooks.Load().(Hooks); ok {
		return h
	}
	return Hooks{}
}
