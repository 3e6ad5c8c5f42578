package avs

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoRegistry is returned when no attachment registry is supplied.
	ErrNoRegistry = errors.New("avs: attachment registry required")

	// ErrNoTokenProvider is returned when no token provider is supplied.
	ErrNoTokenProvider = errors.New("avs: token provider required")

	// ErrNotConnected is returned when sending on a closed connection.
	ErrNotConnected = errors.New("avs: not connected")

	// ErrMalformedDirective is returned for directives missing their
	// envelope or header.
	ErrMalformedDirective = errors.New("avs: malformed directive")

	// ErrMalformedFrame is returned for attachment frames too short to
	// carry their ID.
	ErrMalformedFrame = errors.New("avs: malformed attachment frame")
)

// ProtocolError wraps a connection or message decoding failure.
type ProtocolError struct {
	// Op names the failed operation, e.g. "dial" or "write".
	// Empty for decoding failures.
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("avs: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("avs: protocol error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
