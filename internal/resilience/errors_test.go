package resilience

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient_ExplicitWrap(t *testing.T) {
	err := NewTransientError(errors.New("overloaded"), 529)
	assert.True(t, IsTransient(err))
}

func TestIsTransient_WrappedInChain(t *testing.T) {
	inner := NewTransientError(errors.New("rate limited"), 429)
	wrapped := fmt.Errorf("extract: field payment_terms: %w", inner)
	assert.True(t, IsTransient(wrapped))
}

func TestIsTransient_AnthropicErrorTypes(t *testing.T) {
	transient := []string{
		`anthropic: create message: {"type":"overloaded_error","message":"Overloaded"}`,
		`anthropic: create message: {"type":"rate_limit_error","message":"Number of requests has exceeded your rate limit"}`,
		`anthropic: create message: {"type":"api_error","message":"Internal server error"}`,
		`anthropic: create message: {"type":"request_timeout","message":"Request timed out"}`,
	}
	for _, msg := range transient {
		assert.True(t, IsTransient(errors.New(msg)), msg)
	}

	permanent := []string{
		`anthropic: create message: {"type":"invalid_request_error","message":"prompt is too long"}`,
		`anthropic: create message: {"type":"authentication_error","message":"invalid x-api-key"}`,
		`anthropic: create message: {"type":"permission_error","message":"model not available"}`,
	}
	for _, msg := range permanent {
		assert.False(t, IsTransient(errors.New(msg)), msg)
	}
}

func TestIsTransient_NetworkFailures(t *testing.T) {
	for _, msg := range []string{
		"read tcp: connection reset by peer",
		"net/http: TLS handshake timeout",
		"dial tcp: lookup api.anthropic.com: no such host",
		"context deadline exceeded (Client.Timeout): i/o timeout",
	} {
		assert.True(t, IsTransient(errors.New(msg)), msg)
	}
}

func TestIsTransient_NilAndOrdinaryErrors(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("judge: unparseable verdict")))
	assert.False(t, IsTransient(errors.New("extract: document missing-doc not found")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 413} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("overloaded")
	te := NewTransientError(inner, 529)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "overloaded", te.Error())
	assert.Equal(t, 529, te.StatusCode)
}
