package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/llm"
)

func geminiServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		if seen != nil && r.Method == http.MethodPost {
			raw, _ := io.ReadAll(r.Body)
			m := map[string]any{"path": r.URL.Path}
			_ = json.Unmarshal(raw, &m)
			*seen = m
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

const okBody = `{
  "candidates": [{"content": {"role": "model", "parts": [{"text": "{\"topic\":\"x\"}"}]}, "finishReason": "STOP"}],
  "usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 5, "totalTokenCount": 17},
  "modelVersion": "gemini-2.0-flash-001"
}`

func TestProvider_Defaults(t *testing.T) {
	p := New(config.ProviderConfig{}, 0, nil)
	assert.Equal(t, Name, p.Name())
	assert.Equal(t, "gemini-2.0-flash", p.DefaultModel())
	assert.Equal(t, "gemini-1.5-pro", New(config.ProviderConfig{Model: "gemini-1.5-pro"}, 0, nil).DefaultModel())
}

func TestProvider_NoKeyIsUnavailable(t *testing.T) {
	p := New(config.ProviderConfig{}, 0, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.True(t, llm.IsCode(err, llm.ErrProviderUnavailable))

	_, err = p.HealthCheck(context.Background())
	assert.True(t, llm.IsCode(err, llm.ErrProviderUnavailable))
}

func TestProvider_Completion(t *testing.T) {
	var seen map[string]any
	server := geminiServer(t, http.StatusOK, okBody, &seen)
	p := New(config.ProviderConfig{APIKey: "test-key", BaseURL: server.URL}, 0, nil)

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a viral content strategist."},
			{Role: llm.RoleUser, Content: "Give me a topic"},
		},
		Temperature: 0.85,
		MaxTokens:   512,
		JSONMode:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"topic":"x"}`, resp.Content())
	assert.Equal(t, Name, resp.Provider)
	assert.Equal(t, "gemini-2.0-flash-001", resp.Model)
	assert.Equal(t, 17, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)

	require.NotNil(t, seen)
	assert.True(t, strings.HasSuffix(seen["path"].(string), "models/gemini-2.0-flash:generateContent"))
	assert.Contains(t, seen, "systemInstruction")
	gen, ok := seen["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.EqualValues(t, 512, gen["maxOutputTokens"])
}

func TestProvider_Completion_MapsAPIError(t *testing.T) {
	server := geminiServer(t, http.StatusUnauthorized,
		`{"error": {"code": 401, "message": "API key not valid", "status": "UNAUTHENTICATED"}}`, nil)
	p := New(config.ProviderConfig{APIKey: "test-key", BaseURL: server.URL}, 0, nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	require.Error(t, err)
	lerr, ok := llm.AsError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrUnauthorized, lerr.Code)
	assert.Equal(t, Name, lerr.Provider)
	assert.True(t, llm.IsClientError(err))
}

func TestProvider_Completion_EmptyCandidates(t *testing.T) {
	server := geminiServer(t, http.StatusOK, `{"candidates": [{"finishReason": "SAFETY"}]}`, nil)
	p := New(config.ProviderConfig{APIKey: "test-key", BaseURL: server.URL}, 0, nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	assert.True(t, llm.IsCode(err, llm.ErrContentFiltered))
}

func TestProvider_Completion_RequiresUserContent(t *testing.T) {
	p := New(config.ProviderConfig{APIKey: "test-key", BaseURL: "http://127.0.0.1:1"}, 0, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleSystem, Content: "only system"}}})
	assert.True(t, llm.IsCode(err, llm.ErrInvalidRequest))
}

func TestConvertMessages(t *testing.T) {
	system, contents := convertMessages([]llm.Message{
		{Role: llm.RoleSystem, Content: "a"},
		{Role: llm.RoleSystem, Content: "b"},
		{Role: llm.RoleUser, Content: "q"},
		{Role: llm.RoleAssistant, Content: "r"},
	})
	require.NotNil(t, system)
	assert.Equal(t, "a\n\nb", system.Parts[0].Text)
	require.Len(t, contents, 2)
	assert.Equal(t, "model", contents[1].Role)

	system, _ = convertMessages([]llm.Message{{Role: llm.RoleUser, Content: "q"}})
	assert.Nil(t, system)
}
