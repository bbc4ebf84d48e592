package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/types"
)

// Chain 按顺序尝试各个 Synthesizer，第一个成功的结果即返回。
// 未配置凭证的 Provider 会被静默跳过。
type Chain struct {
	synths []Synthesizer
	speed  float64
	logger *zap.Logger
}

var _ Synthesizer = (*Chain)(nil)

// NewChain 创建回退链
func NewChain(logger *zap.Logger, synths ...Synthesizer) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{synths: synths, logger: logger.With(zap.String("component", "tts_chain"))}
}

// NewFromConfig 按 speech.order 组装 Chain
func NewFromConfig(cfg config.SpeechConfig, logger *zap.Logger) *Chain {
	var synths []Synthesizer
	for _, name := range cfg.Order {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "elevenlabs":
			synths = append(synths, NewElevenLabsProvider(ElevenLabsConfig{
				APIKey:  cfg.ElevenLabsKey,
				BaseURL: cfg.ElevenLabsURL,
				VoiceID: cfg.ElevenLabsVoice,
				Timeout: cfg.Timeout,
			}, logger))
		case "openai", "openai-tts":
			synths = append(synths, NewOpenAITTSProvider(OpenAITTSConfig{
				APIKey:  cfg.OpenAIKey,
				BaseURL: cfg.OpenAIURL,
				Voice:   cfg.OpenAIVoice,
				Timeout: cfg.Timeout,
			}, logger))
		default:
			if logger != nil {
				logger.Warn("unknown tts provider ignored", zap.String("name", name))
			}
		}
	}
	c := NewChain(logger, synths...)
	c.speed = cfg.Speed
	return c
}

func (c *Chain) Name() string { return "chain" }

// Len 返回链中 Provider 数量
func (c *Chain) Len() int { return len(c.synths) }

// Synthesize tries each provider in order.
func (c *Chain) Synthesize(ctx context.Context, req *Request, path string) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, types.NewInvalidRequestError("voiceover text is empty")
	}
	if req.Speed == 0 && c.speed > 0 {
		r := *req
		r.Speed = c.speed
		req = &r
	}

	var errs []error
	for _, s := range c.synths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.Synthesize(ctx, req, path)
		if err == nil {
			return res, nil
		}
		if types.IsErrorCode(err, types.ErrNotConfigured) {
			continue
		}
		c.logger.Warn("tts provider failed, trying next",
			zap.String("provider", s.Name()),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	if len(errs) == 0 {
		return nil, ErrNoSynthesizers
	}
	return nil, fmt.Errorf("all tts providers failed: %w", errors.Join(errs...))
}
