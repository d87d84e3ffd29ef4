package notify

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the notification provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notify api error %d: %s", e.StatusCode, e.Body)
}

// TransportError is a failure to reach the provider: connection refused,
// timeout, cancelled context.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notify transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsDispatchError reports whether err originates from the notification
// provider rather than from storage. Dispatch errors map to 502-equivalent
// responses and never roll back committed writes.
func IsDispatchError(err error) bool {
	var apiErr *APIError
	var transportErr *TransportError
	return errors.As(err, &apiErr) || errors.As(err, &transportErr)
}

// StatusCode returns the provider status for an APIError, or fallback for
// any other dispatch error.
func StatusCode(err error, fallback int) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return fallback
}
