package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrRetriesExhausted is wrapped by every error returned after the retry
// budget for a listing was spent.
var ErrRetriesExhausted = errors.New("retry budget exhausted")

// NetworkError indicates a transport failure (DNS, connect, TLS, timeout).
type NetworkError struct {
	URL     string
	Wrapped error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Wrapped)
}

func (e *NetworkError) Unwrap() error {
	return e.Wrapped
}

// StatusError indicates the mirror answered with a non-success status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// retryableStatus lists the codes mirrors emit transiently while a sync is in
// progress or a load balancer rotates a bad node in.
var retryableStatus = map[int]bool{
	http.StatusForbidden:           true,
	http.StatusNotFound:            true,
	http.StatusInternalServerError: true,
}

// IsRetryable reports whether err is a transient mirror failure: a transport
// error, a timeout, or HTTP 403/404/500. Caller cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus[statusErr.StatusCode]
	}
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
