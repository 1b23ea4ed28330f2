package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an error as safe to retry. The Anthropic client wraps
// retryable API responses (429, 5xx, 529 overloaded) in one of these before
// they reach the retry loop.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status
// code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// transientAPIPatterns match the error types the Anthropic API reports in
// response bodies for failures that resolve on their own. The SDK includes
// the body verbatim in the error string, so a substring check is enough when
// the status code was not preserved through wrapping.
var transientAPIPatterns = []string{
	"overloaded_error",
	"rate_limit_error",
	"api_error",
	"request_timeout",
}

// networkPatterns cover connection-level failures between us and the API
// that wrapped errors from the HTTP client reduce to strings.
var networkPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"tls handshake timeout",
	"i/o timeout",
	"temporary failure in name resolution",
	"no such host",
}

// IsTransient reports whether the error (or any error in its chain) is worth
// retrying: an explicit TransientError, a network timeout, or an error string
// matching a retryable Anthropic API error type.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientAPIPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	for _, p := range networkPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status from the Anthropic
// API indicates a failure that is safe to retry. Invalid-request and auth
// errors (400, 401, 403, 404, 413) are deliberately excluded: retrying a
// malformed extraction request burns tokens without ever succeeding.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // request timeout
		429, // rate limited
		500, // api_error
		502,
		503,
		504,
		529: // overloaded_error
		return true
	default:
		return false
	}
}
