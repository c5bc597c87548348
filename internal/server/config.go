package server

import (
	"fmt"
	"time"

	"github.com/zeusync/sentry/internal/config"
)

type Config struct {
	Addr string
	// Interval is the minimum wall-clock time between two snapshots sent to viewers.
	Interval     time.Duration
	MaxClients   int
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8080",
		Interval:     100 * time.Millisecond,
		MaxClients:   64,
		WriteTimeout: 5 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidConfig)
	}
	if c.Interval < 0 || c.MaxClients < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: negative limits", ErrInvalidConfig)
	}
	return nil
}

// FromConfig applies the scenario's server section over the defaults.
func FromConfig(c config.Server) Config {
	cfg := DefaultConfig()
	cfg.Addr = c.Addr
	cfg.Interval = c.Interval
	return cfg
}
