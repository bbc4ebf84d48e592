package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/internal/metrics"
	"github.com/BaSui01/viralshorts/llm/circuitbreaker"
	"github.com/BaSui01/viralshorts/llm/retry"
	"github.com/BaSui01/viralshorts/llm/tokenizer"
)

// scriptedProvider 按顺序返回预设结果，用完后重复最后一个
type scriptedProvider struct {
	name    string
	mu      sync.Mutex
	results []func(req *ChatRequest) (*ChatResponse, error)
	calls   int
	lastReq ChatRequest
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) HealthCheck(context.Context) (*HealthStatus, error) {
	return &HealthStatus{Healthy: true}, nil
}

func (p *scriptedProvider) Completion(_ context.Context, req *ChatRequest) (*ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	p.calls++
	p.lastReq = *req
	return p.results[idx](req)
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func reply(text string) func(*ChatRequest) (*ChatResponse, error) {
	return func(req *ChatRequest) (*ChatResponse, error) {
		return &ChatResponse{
			Model:   "test-model",
			Choices: []ChatChoice{{Message: Message{Role: RoleAssistant, Content: text}}},
			Usage:   ChatUsage{PromptTokens: 10, CompletionTokens: 5},
		}, nil
	}
}

func failWith(code ErrorCode, status int) func(*ChatRequest) (*ChatResponse, error) {
	return func(*ChatRequest) (*ChatResponse, error) {
		return nil, &Error{Code: code, Message: "scripted", HTTPStatus: status, Retryable: code == ErrRateLimited}
	}
}

func testConfig() FallbackConfig {
	cfg := DefaultFallbackConfig()
	cfg.Retry = retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	cfg.Breaker = circuitbreaker.Config{Threshold: 3, ResetTimeout: time.Hour}
	return cfg
}

func TestNewFallbackCaller_NoProviders(t *testing.T) {
	_, err := NewFallbackCaller(nil, testConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestFallbackCaller_PrimarySucceeds(t *testing.T) {
	primary := &scriptedProvider{name: "groq", results: []func(*ChatRequest) (*ChatResponse, error){reply("  hello  ")}}
	secondary := &scriptedProvider{name: "gemini", results: []func(*ChatRequest) (*ChatResponse, error){reply("unused")}}

	c, err := NewFallbackCaller([]Provider{primary, secondary}, testConfig(), nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"groq", "gemini"}, c.Providers())

	out, err := c.Call(context.Background(), "give me a topic", CallOptions{System: "you are viral"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, 0, secondary.Calls())

	req := primary.lastReq
	require.Len(t, req.Messages, 2)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "give me a topic", req.Messages[1].Content)
	assert.InDelta(t, 0.85, req.Temperature, 1e-6, "default temperature applies")
	assert.Equal(t, 2048, req.MaxTokens)
}

func TestFallbackCaller_RateLimitRetriesThenSucceeds(t *testing.T) {
	primary := &scriptedProvider{name: "groq", results: []func(*ChatRequest) (*ChatResponse, error){
		failWith(ErrRateLimited, http.StatusTooManyRequests),
		reply("after backoff"),
	}}
	c, err := NewFallbackCaller([]Provider{primary}, testConfig(), nil, nil)
	require.NoError(t, err)

	out, err := c.Call(context.Background(), "p", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "after backoff", out)
	assert.Equal(t, 2, primary.Calls())
}

func TestFallbackCaller_RateLimitExhaustedFallsThrough(t *testing.T) {
	primary := &scriptedProvider{name: "groq", results: []func(*ChatRequest) (*ChatResponse, error){
		failWith(ErrRateLimited, http.StatusTooManyRequests),
	}}
	secondary := &scriptedProvider{name: "openrouter", results: []func(*ChatRequest) (*ChatResponse, error){reply("from fallback")}}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg, zap.NewNop())

	c, err := NewFallbackCaller([]Provider{primary, secondary}, testConfig(), collector, zap.NewNop())
	require.NoError(t, err)

	out, err := c.Call(context.Background(), "p", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", out)
	assert.Equal(t, 3, primary.Calls(), "1 initial + 2 retries")
	assert.Equal(t, 1, secondary.Calls())

	n, err := testutil.GatherAndCount(reg, "test_llm_fallbacks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFallbackCaller_ClientErrorSkipsWithoutRetry(t *testing.T) {
	primary := &scriptedProvider{name: "groq", results: []func(*ChatRequest) (*ChatResponse, error){
		failWith(ErrUnauthorized, http.StatusUnauthorized),
	}}
	secondary := &scriptedProvider{name: "deepseek", results: []func(*ChatRequest) (*ChatResponse, error){reply("ok")}}

	c, err := NewFallbackCaller([]Provider{primary, secondary}, testConfig(), nil, nil)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "p", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, primary.Calls())
}

func TestFallbackCaller_AllFail(t *testing.T) {
	a := &scriptedProvider{name: "groq", results: []func(*ChatRequest) (*ChatResponse, error){failWith(ErrUpstreamError, 503)}}
	b := &scriptedProvider{name: "gemini", results: []func(*ChatRequest) (*ChatResponse, error){failWith(ErrForbidden, 403)}}

	c, err := NewFallbackCaller([]Provider{a, b}, testConfig(), nil, nil)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "p", CallOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.True(t, IsCode(err, ErrUpstreamError))
	assert.True(t, IsCode(err, ErrForbidden))
	assert.Contains(t, err.Error(), "groq")
	assert.Contains(t, err.Error(), "gemini")
}

func TestFallbackCaller_BreakerOpensAndSkips(t *testing.T) {
	primary := &scriptedProvider{name: "groq", results: []func(*ChatRequest) (*ChatResponse, error){failWith(ErrUpstreamError, 502)}}
	secondary := &scriptedProvider{name: "gemini", results: []func(*ChatRequest) (*ChatResponse, error){reply("ok")}}

	cfg := testConfig()
	cfg.Breaker.Threshold = 2
	c, err := NewFallbackCaller([]Provider{primary, secondary}, cfg, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := c.Call(context.Background(), "p", CallOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, primary.Calls(), "breaker open after two failures")
	assert.Equal(t, "circuit_open", fallbackReason(circuitbreaker.ErrCircuitOpen))
}

func TestFallbackCaller_PromptOverBudget(t *testing.T) {
	primary := &scriptedProvider{name: "groq", results: []func(*ChatRequest) (*ChatResponse, error){reply("never")}}
	cfg := testConfig()
	cfg.Budget = tokenizer.Budget{MaxPromptTokens: 5}

	c, err := NewFallbackCaller([]Provider{primary}, cfg, nil, nil)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), strings.Repeat("word ", 200), CallOptions{})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrContextTooLong))
	assert.Equal(t, 0, primary.Calls())
}

func TestFallbackCaller_ModelOverridePerProvider(t *testing.T) {
	primary := &scriptedProvider{name: "groq", results: []func(*ChatRequest) (*ChatResponse, error){failWith(ErrUpstreamError, 500)}}
	secondary := &scriptedProvider{name: "gemini", results: []func(*ChatRequest) (*ChatResponse, error){reply("ok")}}

	c, err := NewFallbackCaller([]Provider{primary, secondary}, testConfig(), nil, nil)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "p", CallOptions{
		Models:      map[string]string{"groq": "llama-3.1-8b-instant"},
		Temperature: 0.3,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", primary.lastReq.Model)
	assert.Empty(t, secondary.lastReq.Model, "other providers keep their default model")
	assert.True(t, secondary.lastReq.JSONMode)
	assert.InDelta(t, 0.3, secondary.lastReq.Temperature, 1e-6)
}

func TestFallbackCaller_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &scriptedProvider{name: "groq", results: []func(*ChatRequest) (*ChatResponse, error){
		func(*ChatRequest) (*ChatResponse, error) {
			cancel()
			return nil, &Error{Code: ErrUpstreamTimeout, Message: "cancelled"}
		},
	}}
	secondary := &scriptedProvider{name: "gemini", results: []func(*ChatRequest) (*ChatResponse, error){reply("ok")}}

	c, err := NewFallbackCaller([]Provider{primary, secondary}, testConfig(), nil, nil)
	require.NoError(t, err)

	_, err = c.Call(ctx, "p", CallOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, secondary.Calls())
}

func TestErrorHelpers(t *testing.T) {
	err := &Error{Code: ErrRateLimited, Message: "slow down", Provider: "groq", RetryDelay: 2 * time.Second}
	wrapped := errors.Join(errors.New("x"), err)

	assert.True(t, IsRateLimited(wrapped))
	assert.False(t, IsClientError(wrapped))
	assert.True(t, IsClientError(&Error{Code: ErrQuotaExceeded}))
	assert.Equal(t, 2*time.Second, err.RetryAfter())
	assert.Equal(t, "groq: [LLM_RATE_LIMITED] slow down", err.Error())
	assert.Equal(t, "rate_limited", fallbackReason(err))
	assert.Equal(t, "error", fallbackReason(errors.New("plain")))
}

func TestChatResponse_Content(t *testing.T) {
	var nilResp *ChatResponse
	assert.Empty(t, nilResp.Content())
	assert.Empty(t, (&ChatResponse{}).Content())
}
