package providers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/viralshorts/llm"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		msg       string
		code      llm.ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, "bad key", llm.ErrUnauthorized, false},
		{http.StatusForbidden, "nope", llm.ErrForbidden, false},
		{http.StatusTooManyRequests, "slow down", llm.ErrRateLimited, true},
		{http.StatusPaymentRequired, "pay", llm.ErrQuotaExceeded, false},
		{http.StatusBadRequest, "You exceeded your current quota", llm.ErrQuotaExceeded, false},
		{http.StatusBadRequest, "maximum context length is 8192", llm.ErrContextTooLong, false},
		{http.StatusBadRequest, "invalid model", llm.ErrInvalidRequest, false},
		{http.StatusGatewayTimeout, "slow", llm.ErrUpstreamTimeout, true},
		{http.StatusServiceUnavailable, "down", llm.ErrUpstreamError, true},
		{529, "overloaded", llm.ErrModelOverloaded, true},
		{418, "teapot", llm.ErrUpstreamError, false},
	}
	for _, tt := range tests {
		e := MapHTTPError(tt.status, tt.msg, "groq")
		assert.Equal(t, tt.code, e.Code, "status %d", tt.status)
		assert.Equal(t, tt.retryable, e.Retryable, "status %d", tt.status)
		assert.Equal(t, "groq", e.Provider)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 2*time.Second, ParseRetryAfter("2", now))
	assert.Equal(t, 1500*time.Millisecond, ParseRetryAfter("1.5", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon", now))
	assert.Equal(t, 30*time.Second, ParseRetryAfter(now.Add(30*time.Second).Format(http.TimeFormat), now))
}

func TestReadErrorMessage(t *testing.T) {
	assert.Equal(t, "Rate limit reached (type: tokens)",
		ReadErrorMessage(strings.NewReader(`{"error":{"message":"Rate limit reached","type":"tokens"}}`)))
	assert.Equal(t, "plain text", ReadErrorMessage(strings.NewReader("plain text\n")))
}

func TestChooseModel(t *testing.T) {
	assert.Equal(t, "req", ChooseModel(&llm.ChatRequest{Model: "req"}, "def", "fb"))
	assert.Equal(t, "def", ChooseModel(&llm.ChatRequest{}, "def", "fb"))
	assert.Equal(t, "fb", ChooseModel(nil, "", "fb"))
}

func TestToLLMChatResponse(t *testing.T) {
	resp := ToLLMChatResponse(OpenAICompatResponse{
		ID:      "cmpl-1",
		Model:   "llama-3.3-70b-versatile",
		Choices: []OpenAICompatChoice{{Message: OpenAICompatMessage{Role: "assistant", Content: "hi"}, FinishReason: "stop"}},
		Usage:   &OpenAICompatUsage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4},
		Created: 1700000000,
	}, "groq")

	assert.Equal(t, "hi", resp.Content())
	assert.Equal(t, "groq", resp.Provider)
	assert.Equal(t, 4, resp.Usage.TotalTokens)
	assert.Equal(t, int64(1700000000), resp.CreatedAt.Unix())
}
