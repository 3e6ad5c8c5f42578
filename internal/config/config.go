// Package config provides environment configuration for device client commands.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Default endpoints for the voice service.
const (
	DefaultGatewayURL = "wss://avs-alexa-na.amazon.com/v1/downchannel"
	DefaultTokenURL   = "https://api.amazon.com/auth/o2/token"
	DefaultDiagPort   = "8077"
)

// LoadDotenv loads a .env file if one is present.
// Missing files are not an error; commands run fine on plain env vars.
func LoadDotenv() {
	_ = godotenv.Load()
}

// GatewayURL returns the downchannel gateway URL from AVS_GATEWAY_URL.
// Falls back to the North America endpoint.
func GatewayURL() string {
	if url := os.Getenv("AVS_GATEWAY_URL"); url != "" {
		return url
	}
	return DefaultGatewayURL
}

// TokenURL returns the OAuth token endpoint from AVS_TOKEN_URL or default.
func TokenURL() string {
	if url := os.Getenv("AVS_TOKEN_URL"); url != "" {
		return url
	}
	return DefaultTokenURL
}

// ClientID returns the OAuth client ID from AVS_CLIENT_ID.
func ClientID() string {
	return os.Getenv("AVS_CLIENT_ID")
}

// ClientSecret returns the OAuth client secret from AVS_CLIENT_SECRET.
func ClientSecret() string {
	return os.Getenv("AVS_CLIENT_SECRET")
}

// RefreshToken returns the long-lived refresh token from AVS_REFRESH_TOKEN.
// Exits with a usage message if not set.
func RefreshToken() string {
	token := os.Getenv("AVS_REFRESH_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "Error: AVS_REFRESH_TOKEN environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: AVS_REFRESH_TOKEN=Atzr|... go run ./cmd/...")
		os.Exit(1)
	}
	return token
}

// DiagPort returns the diagnostics server port from AVS_DIAG_PORT or default.
func DiagPort() string {
	if port := os.Getenv("AVS_DIAG_PORT"); port != "" {
		return port
	}
	return DefaultDiagPort
}
