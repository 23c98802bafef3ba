// Package metrics exposes the pulse engine counters as Prometheus metrics.
//
// The collector reads pulse.ReadStats() on scrape, so the engine itself never
// touches the Prometheus client on the hot path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pulse-dev/pulse/pkg/pulse"
)

// Config configures the Prometheus collector.
type Config struct {
	// Namespace is the metrics namespace (default: "pulse").
	Namespace string

	// Subsystem is the metrics subsystem (default: "engine").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the registry used by Register.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the registry used by Register.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "pulse",
		Subsystem: "engine",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector implements prometheus.Collector over the engine counters.
type Collector struct {
	writes           *prometheus.Desc
	suppressedWrites *prometheus.Desc
	recomputations   *prometheus.Desc
	cacheHits        *prometheus.Desc
	notifications    *prometheus.Desc
	liveTransitions  *prometheus.Desc
}

// NewCollector creates a collector for the engine counters.
func NewCollector(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(config.Namespace, config.Subsystem, name),
			help, nil, config.ConstLabels,
		)
	}

	return &Collector{
		writes:           desc("writes_total", "State writes that changed a value"),
		suppressedWrites: desc("writes_suppressed_total", "State writes dropped by equality suppression"),
		recomputations:   desc("recomputations_total", "Computed evaluations, including failed ones"),
		cacheHits:        desc("cache_hits_total", "Computed reads served from the memo cache"),
		notifications:    desc("notifications_total", "Watcher notify callbacks fired"),
		liveTransitions:  desc("live_transitions_total", "Watched/unwatched liveness transitions"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.writes
	ch <- c.suppressedWrites
	ch <- c.recomputations
	ch <- c.cacheHits
	ch <- c.notifications
	ch <- c.liveTransitions
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := pulse.ReadStats()

	counter := func(desc *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v))
	}

	counter(c.writes, stats.Writes)
	counter(c.suppressedWrites, stats.SuppressedWrites)
	counter(c.recomputations, stats.Recomputations)
	counter(c.cacheHits, stats.CacheHits)
	counter(c.notifications, stats.Notifications)
	counter(c.liveTransitions, stats.LiveTransitions)
}

// Register creates a collector and registers it on the configured registry.
func Register(opts ...Option) (*Collector, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	collector := NewCollector(opts...)
	if err := config.Registry.Register(collector); err != nil {
		return nil, err
	}
	return collector, nil
}
