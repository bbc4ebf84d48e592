package factory

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/internal/metrics"
	"github.com/BaSui01/viralshorts/llm"
	"github.com/BaSui01/viralshorts/llm/providers/gemini"
	"github.com/BaSui01/viralshorts/llm/providers/openaicompat"
	"github.com/BaSui01/viralshorts/llm/tokenizer"
)

// NewProvider creates a Provider by name from the llm config section.
//
// Supported names: groq, gemini, openrouter, deepseek, openai.
func NewProvider(name string, cfg config.LLMConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case openaicompat.NameGroq:
		return openaicompat.NewGroq(cfg.Groq, cfg.Timeout, logger), nil
	case gemini.Name, "google":
		return gemini.New(cfg.Gemini, cfg.Timeout, logger), nil
	case openaicompat.NameOpenRouter:
		return openaicompat.NewOpenRouter(cfg.OpenRouter, cfg.Timeout, logger), nil
	case openaicompat.NameDeepSeek:
		return openaicompat.NewDeepSeek(cfg.DeepSeek, cfg.Timeout, logger), nil
	case openaicompat.NameOpenAI:
		return openaicompat.NewOpenAI(cfg.OpenAI, cfg.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// NewProviders returns the providers of cfg.Order that have an API key,
// preserving order. Providers without a key are skipped and logged.
func NewProviders(cfg config.LLMConfig, logger *zap.Logger) ([]llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var out []llm.Provider
	for _, name := range cfg.Order {
		if keyFor(name, cfg) == "" {
			logger.Debug("llm provider skipped, no api key", zap.String("provider", name))
			continue
		}
		p, err := NewProvider(name, cfg, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func keyFor(name string, cfg config.LLMConfig) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case openaicompat.NameGroq:
		return cfg.Groq.APIKey
	case gemini.Name, "google":
		return cfg.Gemini.APIKey
	case openaicompat.NameOpenRouter:
		return cfg.OpenRouter.APIKey
	case openaicompat.NameDeepSeek:
		return cfg.DeepSeek.APIKey
	case openaicompat.NameOpenAI:
		return cfg.OpenAI.APIKey
	}
	// unknown names reach NewProvider, which reports them
	return "unknown"
}

// FallbackConfigFrom maps the llm config section onto llm.FallbackConfig.
func FallbackConfigFrom(cfg config.LLMConfig) llm.FallbackConfig {
	fc := llm.DefaultFallbackConfig()
	if cfg.MaxRetries > 0 {
		fc.Retry.MaxRetries = cfg.MaxRetries
	}
	if cfg.BreakerThreshold > 0 {
		fc.Breaker.Threshold = cfg.BreakerThreshold
	}
	if cfg.MaxPromptTokens > 0 {
		fc.Budget = tokenizer.Budget{MaxPromptTokens: cfg.MaxPromptTokens, DefaultMaxTokens: fc.Budget.DefaultMaxTokens}
	}
	if cfg.Temperature > 0 {
		fc.DefaultTemperature = float32(cfg.Temperature)
	}
	return fc
}

// NewCaller assembles the SmartAICaller: ordered fallback chain wrapped by
// the response cache when store is non-nil.
func NewCaller(cfg config.LLMConfig, store llm.ResponseStore, cacheTTL time.Duration,
	collector *metrics.Collector, logger *zap.Logger) (llm.Caller, error) {
	providers, err := NewProviders(cfg, logger)
	if err != nil {
		return nil, err
	}
	fc, err := llm.NewFallbackCaller(providers, FallbackConfigFrom(cfg), collector, logger)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return fc, nil
	}
	return llm.NewCachedCaller(fc, store, cacheTTL, collector, logger), nil
}
