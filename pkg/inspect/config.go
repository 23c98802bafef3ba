package inspect

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config configures the inspector server.
type Config struct {
	// Addr is the listen address. The inspector exposes internal graph
	// structure; bind it to loopback unless you know better.
	Addr string `env:"PULSE_INSPECT_ADDR" envDefault:"127.0.0.1:6900"`

	// ReadTimeout bounds request header reads.
	ReadTimeout time.Duration `env:"PULSE_INSPECT_READ_TIMEOUT" envDefault:"5s"`

	// ShutdownTimeout bounds graceful shutdown once the context is canceled.
	ShutdownTimeout time.Duration `env:"PULSE_INSPECT_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// ConfigFromEnv loads the configuration from PULSE_INSPECT_* environment
// variables, applying defaults for anything unset.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
