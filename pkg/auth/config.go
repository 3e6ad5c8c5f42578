package auth

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultTokenURL is the Login with Amazon token endpoint.
const DefaultTokenURL = "https://api.amazon.com/auth/o2/token"

// refreshSlack is how long before expiry a token is treated as stale.
const refreshSlack = 30 * time.Second

// Config holds authorization configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// ClientID identifies the device product to the token service.
	ClientID string

	// ClientSecret authenticates the client. Optional for public clients.
	ClientSecret string

	// RefreshToken is the long-lived token obtained during device setup.
	RefreshToken string

	// TokenURL is the OAuth token endpoint.
	TokenURL string

	// HTTPClient performs token requests. Defaults to the shared client.
	HTTPClient *http.Client

	// Logger receives token lifecycle events.
	Logger *slog.Logger
}

// Option is a functional option for configuring the auth delegate.
type Option func(*Config)

// WithClientID sets the OAuth client ID.
func WithClientID(id string) Option {
	return func(c *Config) {
		c.ClientID = id
	}
}

// WithClientSecret sets the OAuth client secret.
func WithClientSecret(secret string) Option {
	return func(c *Config) {
		c.ClientSecret = secret
	}
}

// WithRefreshToken sets the long-lived refresh token.
func WithRefreshToken(token string) Option {
	return func(c *Config) {
		c.RefreshToken = token
	}
}

// WithTokenURL overrides the token endpoint.
func WithTokenURL(url string) Option {
	return func(c *Config) {
		c.TokenURL = url
	}
}

// WithHTTPClient overrides the HTTP client used for token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
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
		TokenURL: DefaultTokenURL,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return ErrNoClientID
	}
	if c.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	return nil
}
