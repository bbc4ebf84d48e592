package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("pexels")

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestAsError_WrappedChain(t *testing.T) {
	inner := NewError(ErrRenderFailed, "ffmpeg exited 1")
	wrapped := fmt.Errorf("segment 2: %w", inner)

	e, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrRenderFailed, e.Code)
	assert.True(t, IsErrorCode(wrapped, ErrRenderFailed))
	assert.False(t, IsErrorCode(errors.New("plain"), ErrRenderFailed))
}

func TestHTTPStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain error", errors.New("x"), http.StatusInternalServerError},
		{"explicit status wins", NewError(ErrNotFound, "x").WithHTTPStatus(http.StatusTeapot), http.StatusTeapot},
		{"not found", NewError(ErrNotFound, "x"), http.StatusNotFound},
		{"rate limited", NewError(ErrRateLimited, "x"), http.StatusTooManyRequests},
		{"not configured", NewNotConfiguredError("dailymotion"), http.StatusServiceUnavailable},
		{"content rejected", NewError(ErrContentRejected, "x"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusOf(tt.err))
		})
	}
}

func TestNewUpstreamError_StatusMapping(t *testing.T) {
	assert.Equal(t, ErrRateLimited, NewUpstreamError("jamendo", 429, "").Code)
	assert.True(t, NewUpstreamError("jamendo", 429, "").Retryable)
	assert.Equal(t, ErrUnauthorized, NewUpstreamError("pexels", 401, "").Code)
	assert.True(t, NewUpstreamError("pexels", 503, "").Retryable)
	assert.False(t, NewUpstreamError("pexels", 400, "").Retryable)
	assert.Equal(t, "pexels", NewUpstreamError("pexels", 400, "").Provider)
}

func TestNewNotConfiguredError_ListsMissing(t *testing.T) {
	err := NewNotConfiguredError("dailymotion", "DAILYMOTION_API_KEY")
	assert.Contains(t, err.Error(), "DAILYMOTION_API_KEY")
	assert.Equal(t, ErrNotConfigured, err.Code)
}
