package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoClientID is returned when the client ID is missing.
	ErrNoClientID = errors.New("auth: client ID required")

	// ErrNoRefreshToken is returned when the refresh token is missing.
	ErrNoRefreshToken = errors.New("auth: refresh token required")
)

// TokenError wraps a token-refresh failure.
type TokenError struct {
	Err error
}

// Error implements the error interface.
func (e *TokenError) Error() string {
	return fmt.Sprintf("auth: token refresh failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TokenError) Unwrap() error {
	return e.Err
}
