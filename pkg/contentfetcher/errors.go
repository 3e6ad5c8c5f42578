package contentfetcher

import (
	"errors"
	"fmt"
)

// ErrNoRegistry is returned when no attachment registry is supplied.
var ErrNoRegistry = errors.New("contentfetcher: attachment registry required")

// HTTPError reports a non-200 response for a content URL.
type HTTPError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("contentfetcher: GET %s returned status %d", e.URL, e.StatusCode)
}

// IsNotFound returns true if the content does not exist (HTTP 404).
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsRetryable returns true if the request should be retried.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}
