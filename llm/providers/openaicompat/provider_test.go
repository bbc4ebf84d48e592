package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/llm"
	"github.com/BaSui01/viralshorts/llm/providers"
)

func userRequest(text string) *llm.ChatRequest {
	return &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: text}}}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{ProviderName: "test"}, nil)
	require.NotNil(t, p)
	assert.Equal(t, "/v1/chat/completions", p.Cfg.EndpointPath)
	assert.Equal(t, "/v1/models", p.Cfg.ModelsEndpoint)
	assert.Equal(t, 60*time.Second, p.Client.Timeout)
	assert.Equal(t, "test", p.Name())

	p = New(Config{ProviderName: "t", Timeout: 10 * time.Second}, nil)
	assert.Equal(t, 10*time.Second, p.Client.Timeout)
}

func TestPresets(t *testing.T) {
	groq := NewGroq(config.ProviderConfig{APIKey: "k"}, 0, nil)
	assert.Equal(t, NameGroq, groq.Name())
	assert.Equal(t, "https://api.groq.com/openai", groq.Cfg.BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", groq.DefaultModel())

	or := NewOpenRouter(config.ProviderConfig{APIKey: "k", Model: "custom/model"}, 0, nil)
	assert.Equal(t, "custom/model", or.DefaultModel())
	assert.Equal(t, "ViralShorts Factory", or.Cfg.ExtraHeaders["X-Title"])

	assert.Equal(t, "deepseek-chat", NewDeepSeek(config.ProviderConfig{}, 0, nil).DefaultModel())
	assert.Equal(t, "gpt-4o-mini", NewOpenAI(config.ProviderConfig{}, 0, nil).DefaultModel())
	assert.Equal(t, "http://local", NewOpenAI(config.ProviderConfig{BaseURL: "http://local"}, 0, nil).Cfg.BaseURL)
}

func TestProvider_Completion_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body providers.OpenAICompatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama-3.3-70b-versatile", body.Model)
		require.NotNil(t, body.ResponseFormat)
		assert.Equal(t, "json_object", body.ResponseFormat.Type)
		assert.InDelta(t, 0.85, body.Temperature, 1e-6)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			ID: "resp-1",
			Choices: []providers.OpenAICompatChoice{{
				FinishReason: "stop",
				Message:      providers.OpenAICompatMessage{Role: "assistant", Content: `{"topics":[]}`},
			}},
			Usage:   &providers.OpenAICompatUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7},
			Created: 1700000000,
		})
	}))
	t.Cleanup(server.Close)

	p := NewGroq(config.ProviderConfig{APIKey: "test-key", BaseURL: server.URL + "/openai"}, 0, zap.NewNop())
	req := userRequest("Hi")
	req.JSONMode = true
	req.Temperature = 0.85

	resp, err := p.Completion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, NameGroq, resp.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", resp.Model, "model filled from request when upstream omits it")
	assert.Equal(t, `{"topics":[]}`, resp.Content())
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestProvider_Completion_ExtraHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ViralShorts Factory", r.Header.Get("X-Title"))
		assert.NotEmpty(t, r.Header.Get("HTTP-Referer"))
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			Choices: []providers.OpenAICompatChoice{{Message: providers.OpenAICompatMessage{Content: "ok"}}},
		})
	}))
	t.Cleanup(server.Close)

	p := NewOpenRouter(config.ProviderConfig{APIKey: "k", BaseURL: server.URL}, 0, nil)
	_, err := p.Completion(context.Background(), userRequest("Hi"))
	require.NoError(t, err)
}

func TestProvider_Completion_HTTPError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		retryAfter string
		wantCode   llm.ErrorCode
		wantDelay  time.Duration
	}{
		{"401 unauthorized", http.StatusUnauthorized, `{"error":{"message":"invalid key","type":"auth"}}`, "", llm.ErrUnauthorized, 0},
		{"429 rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, "3", llm.ErrRateLimited, 3 * time.Second},
		{"500 server error", http.StatusInternalServerError, `{"error":{"message":"oops"}}`, "", llm.ErrUpstreamError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.body)
			}))
			t.Cleanup(server.Close)

			p := New(Config{ProviderName: "test", APIKey: "key", BaseURL: server.URL}, zap.NewNop())
			_, err := p.Completion(context.Background(), userRequest("Hi"))
			require.Error(t, err)

			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.wantCode, llmErr.Code)
			assert.Equal(t, tt.wantDelay, llmErr.RetryAfter())
		})
	}
}

func TestProvider_Completion_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "key", BaseURL: server.URL}, nil)
	_, err := p.Completion(context.Background(), userRequest("Hi"))
	require.Error(t, err)
	assert.True(t, llm.IsCode(err, llm.ErrUpstreamError))
}

func TestProvider_Completion_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"x","choices":[]}`)
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "key", BaseURL: server.URL}, nil)
	_, err := p.Completion(context.Background(), userRequest("Hi"))
	assert.True(t, llm.IsCode(err, llm.ErrUpstreamError))
}

func TestProvider_Completion_MissingKey(t *testing.T) {
	p := New(Config{ProviderName: "test"}, nil)
	_, err := p.Completion(context.Background(), userRequest("Hi"))
	assert.True(t, llm.IsCode(err, llm.ErrProviderUnavailable))
}

func TestProvider_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "key", BaseURL: server.URL}, nil)
	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)

	p.Cfg.ModelsEndpoint = "/missing"
	status, err = p.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
}
