package sandbox

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError is a failed call to the webtask cluster: either the cluster
// answered with a non-2xx status, or the request never completed (StatusCode
// is 0 and Err holds the transport error).
type RemoteError struct {
	StatusCode int
	Message    string
	RequestID  string

	// RetryAfter is the server's Retry-After hint in seconds on 429 responses
	RetryAfter int

	Err error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("webtask network error: %s: %v", e.Message, e.Err)
	}
	if e.RequestID != "" {
		return fmt.Sprintf("webtask api error (status %d, request_id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}
	return fmt.Sprintf("webtask api error (status %d): %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether the cluster answered 404
func (e *RemoteError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// ValidationError represents a client-side validation error. It is returned
// before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// IsNotFound reports whether err is a RemoteError for a missing resource
func IsNotFound(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.IsNotFound()
}
