// Package tracing instruments the pulse engine with OpenTelemetry spans:
// one span per Computed recomputation and one per watcher notification.
//
// Spans are emitted from the engine's observability hooks, after the fact,
// with an explicit start timestamp, so the engine itself stays free of any
// tracing dependency.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pulse-dev/pulse/pkg/pulse"
)

// defaultTracerName is used when no tracer name is configured.
const defaultTracerName = "pulse"

// Config configures the engine instrumentation.
type Config struct {
	// TracerName is the name of the tracer (default: "pulse").
	TracerName string

	// TracerProvider supplies the tracer. Default: the global otel provider.
	TracerProvider trace.TracerProvider

	// SkipUnchanged drops recomputation spans whose value did not change.
	SkipUnchanged bool

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// Option configures the instrumentation.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = provider
	}
}

// WithSkipUnchanged drops spans for recomputations that produced an equal
// value.
func WithSkipUnchanged(skip bool) Option {
	return func(c *Config) {
		c.SkipUnchanged = skip
	}
}

func defaultTracingConfig() Config {
	return Config{
		TracerName: defaultTracerName,
	}
}

// Install wires the engine's hooks to OpenTelemetry, replacing any hooks
// installed before. Call Uninstall to detach.
func Install(opts ...Option) {
	config := defaultTracingConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	pulse.SetHooks(pulse.Hooks{
		OnRecompute: func(id uint64, elapsed time.Duration, changed bool) {
			if config.SkipUnchanged && !changed {
				return
			}
			start := time.Now().Add(-elapsed)
			_, span := config.tracer.Start(context.Background(), "pulse.recompute",
				trace.WithTimestamp(start),
				trace.WithAttributes(
					attribute.Int64("pulse.node_id", int64(id)),
					attribute.Bool("pulse.value_changed", changed),
				),
			)
			span.End()
		},
		OnNotify: func(watcherID uint64) {
			_, span := config.tracer.Start(context.Background(), "pulse.notify",
				trace.WithAttributes(
					attribute.Int64("pulse.watcher_id", int64(watcherID)),
				),
			)
			span.End()
		},
	})
}

// Uninstall restores the engine's no-op hooks.
func Uninstall() {
	pulse.SetHooks(pulse.Hooks{})
}
