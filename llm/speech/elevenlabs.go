package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/internal/tlsutil"
	"github.com/BaSui01/viralshorts/types"
)

// ElevenLabsConfig configures the ElevenLabs TTS provider.
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	Model   string // eleven_multilingual_v2
	VoiceID string
	Timeout time.Duration
}

// ElevenLabsProvider 使用 ElevenLabs API 合成配音
type ElevenLabsProvider struct {
	cfg    ElevenLabsConfig
	client *http.Client
	logger *zap.Logger
}

var _ Synthesizer = (*ElevenLabsProvider)(nil)

// NewElevenLabsProvider 创建 ElevenLabs Provider
func NewElevenLabsProvider(cfg ElevenLabsConfig, logger *zap.Logger) *ElevenLabsProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.Model == "" {
		cfg.Model = "eleven_multilingual_v2"
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = "21m00Tcm4TlvDq8ikWAM" // Rachel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ElevenLabsProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(timeout),
		logger: logger.With(zap.String("component", "tts"), zap.String("provider", "elevenlabs")),
	}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

type elevenLabsTTSRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// Synthesize 请求 /v1/text-to-speech/{voice} 并把 mp3 写入 path
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, req *Request, path string) (*Result, error) {
	if p.cfg.APIKey == "" {
		return nil, types.NewNotConfiguredError(p.Name(), "ELEVENLABS_API_KEY")
	}
	start := time.Now()
	model := orDefault(req.Model, p.cfg.Model)
	voiceID := orDefault(req.Voice, p.cfg.VoiceID)
	format := orDefault(req.Format, "mp3_44100_128")

	body := elevenLabsTTSRequest{
		Text:    req.Text,
		ModelID: model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           clampSpeed(req.Speed, 0.7, 1.2),
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.PathEscape(voiceID), url.QueryEscape(format))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "elevenlabs request failed").
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
		Model:     model,
		Path:      path,
		Format:    "mp3",
		Bytes:     n,
		CharCount: len(req.Text),
		Elapsed:   time.Since(start),
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// clampSpeed 返回 [lo, hi] 内的语速，0 表示不设置
func clampSpeed(speed, lo, hi float64) float64 {
	switch {
	case speed <= 0:
		return 0
	case speed < lo:
		return lo
	case speed > hi:
		return hi
	}
	return speed
}
