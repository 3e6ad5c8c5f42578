package avs

import (
	"log/slog"
	"time"
)

// Connection tuning defaults.
const (
	DefaultGatewayURL = "wss://avs-alexa-na.amazon.com/v1/downchannel"

	handshakeTimeout   = 10 * time.Second
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// Config holds downchannel client configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// GatewayURL is the downchannel endpoint.
	GatewayURL string

	// Reconnect enables automatic reconnection with capped exponential
	// backoff when the connection drops.
	Reconnect bool

	// Logger receives connection and routing events.
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithGatewayURL overrides the downchannel endpoint.
func WithGatewayURL(url string) Option {
	return func(c *Config) {
		c.GatewayURL = url
	}
}

// WithReconnect enables or disables automatic reconnection.
func WithReconnect(enabled bool) Option {
	return func(c *Config) {
		c.Reconnect = enabled
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
		GatewayURL: DefaultGatewayURL,
		Reconnect:  true,
	}
}
