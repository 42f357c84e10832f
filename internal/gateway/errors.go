package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnavailable is returned when retries are exhausted or the request budget ran out.
// Callers treat it as "temporarily unavailable", not as a fatal error.
var ErrUnavailable = errors.New("upstream temporarily unavailable")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: %d %s: %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// IsRetryable returns true for rate limiting and server errors.
func (e *StatusError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
