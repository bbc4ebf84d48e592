package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/internal/tlsutil"
	"github.com/BaSui01/viralshorts/types"
)

// OpenAITTSConfig configures the OpenAI TTS provider.
type OpenAITTSConfig struct {
	APIKey  string
	BaseURL string
	Model   string // tts-1, tts-1-hd
	Voice   string // alloy, echo, fable, onyx, nova, shimmer
	Timeout time.Duration
}

// OpenAITTSProvider implements TTS using OpenAI's API.
type OpenAITTSProvider struct {
	cfg    OpenAITTSConfig
	client *http.Client
	logger *zap.Logger
}

var _ Synthesizer = (*OpenAITTSProvider)(nil)

// NewOpenAITTSProvider creates a new OpenAI TTS provider.
func NewOpenAITTSProvider(cfg OpenAITTSConfig, logger *zap.Logger) *OpenAITTSProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "onyx"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAITTSProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(timeout),
		logger: logger.With(zap.String("component", "tts"), zap.String("provider", "openai")),
	}
}

func (p *OpenAITTSProvider) Name() string { return "openai-tts" }

type openAITTSRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

// Synthesize converts text to speech and writes it to path.
func (p *OpenAITTSProvider) Synthesize(ctx context.Context, req *Request, path string) (*Result, error) {
	if p.cfg.APIKey == "" {
		return nil, types.NewNotConfiguredError(p.Name(), "OPENAI_API_KEY")
	}
	start := time.Now()
	body := openAITTSRequest{
		Model:          orDefault(req.Model, p.cfg.Model),
		Input:          req.Text,
		Voice:          orDefault(req.Voice, p.cfg.Voice),
		ResponseFormat: orDefault(req.Format, "mp3"),
		Speed:          clampSpeed(req.Speed, 0.25, 4.0),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/audio/speech",
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "openai tts request failed").
			WithCause(err).WithProvider(p.Name()).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, types.NewUpstreamError(p.Name(), resp.StatusCode, string(errBody))
	}

	n, err := writeAudio(path, resp.Body)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("voiceover synthesized", zap.String("path", path), zap.Int64("bytes", n))
	return &Result{
		Provider:  p.Name(),
		Model:     body.Model,
		Path:      path,
		Format:    body.ResponseFormat,
		Bytes:     n,
		CharCount: len(req.Text),
		Elapsed:   time.Since(start),
	}, nil
}
