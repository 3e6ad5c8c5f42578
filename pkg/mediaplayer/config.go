package mediaplayer

import (
	"log/slog"
	"time"
)

// Defaults for playback.
const (
	// DefaultChunkSize is the read granularity in bytes.
	DefaultChunkSize = 4096

	// DefaultReadTimeout is how long a single read waits for data before
	// re-checking for stop requests.
	DefaultReadTimeout = 100 * time.Millisecond

	// DefaultAttachTimeout is how long Play waits for the attachment to
	// be registered by the producer side.
	DefaultAttachTimeout = 5 * time.Second
)

// Config holds player configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// ChunkSize is the read granularity in bytes.
	ChunkSize int

	// ReadTimeout bounds each blocking read.
	ReadTimeout time.Duration

	// AttachTimeout bounds the wait for the attachment to exist.
	AttachTimeout time.Duration

	// Logger receives playback events.
	Logger *slog.Logger
}

// Option is a functional option for configuring the player.
type Option func(*Config)

// WithChunkSize sets the read granularity.
func WithChunkSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ChunkSize = n
		}
	}
}

// WithReadTimeout sets the per-read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = d
	}
}

// WithAttachTimeout sets the attachment wait timeout.
func WithAttachTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.AttachTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:     DefaultChunkSize,
		ReadTimeout:   DefaultReadTimeout,
		AttachTimeout: DefaultAttachTimeout,
	}
}
