package contentfetcher

import (
	"log/slog"
	"net/http"

	"github.com/alexa/avs-device-sdk-go/internal/httpc"
)

// DefaultChunkSize is the copy granularity for body transfers.
const DefaultChunkSize = 8192

// Config holds fetcher configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Client performs the downloads. Defaults to the shared streaming
	// client, which bounds the dial but not the transfer.
	Client *http.Client

	// ChunkSize is the copy granularity in bytes.
	ChunkSize int

	// Logger receives transfer events.
	Logger *slog.Logger
}

// Option is a functional option for configuring the fetcher.
type Option func(*Config)

// WithClient overrides the HTTP client.
func WithClient(client *http.Client) Option {
	return func(c *Config) {
		c.Client = client
	}
}

// WithChunkSize sets the copy granularity.
func WithChunkSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ChunkSize = n
		}
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
		Client:    httpc.StreamingClient,
		ChunkSize: DefaultChunkSize,
	}
}
