package attachment

import (
	"fmt"
	"log/slog"
	"time"
)

// Defaults for the attachment manager.
const (
	// DefaultTimeout is how long an unclaimed or fully-consumed attachment
	// survives before the registry evicts it.
	DefaultTimeout = 12 * time.Hour

	// MinTimeout is the smallest horizon SetAttachmentTimeout accepts.
	MinTimeout = time.Minute

	// DefaultBufferSize is the per-attachment stream capacity in bytes.
	DefaultBufferSize = 512 * 1024
)

// Config holds attachment manager configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Timeout is the eviction horizon for unclaimed attachments.
	// Unlike SetAttachmentTimeout, construction accepts any non-negative
	// value so tests can force eager eviction with a zero horizon.
	Timeout time.Duration

	// BufferSize is the stream capacity, in bytes, of each attachment.
	BufferSize int

	// Clock supplies timestamps for the creation-time index. Defaults to
	// time.Now; inject a fake for eviction tests.
	Clock func() time.Time

	// Logger receives registry lifecycle events.
	Logger *slog.Logger
}

// Option is a functional option for configuring the manager.
type Option func(*Config)

// WithTimeout sets the eviction horizon.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithBufferSize sets the per-attachment stream capacity in bytes.
func WithBufferSize(n int) Option {
	return func(c *Config) {
		c.BufferSize = n
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the logger for registry events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:    DefaultTimeout,
		BufferSize: DefaultBufferSize,
		Clock:      time.Now,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Timeout)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.Clock == nil {
		return fmt.Errorf("clock must not be nil")
	}
	return nil
}
