package openaicompat

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
)

// Provider names used in llm.order.
const (
	NameGroq       = "groq"
	NameOpenRouter = "openrouter"
	NameDeepSeek   = "deepseek"
	NameOpenAI     = "openai"
)

// NewGroq is the primary provider.
func NewGroq(cfg config.ProviderConfig, timeout time.Duration, logger *zap.Logger) *Provider {
	return New(Config{
		ProviderName:  NameGroq,
		APIKey:        cfg.APIKey,
		BaseURL:       orDefault(cfg.BaseURL, "https://api.groq.com/openai"),
		DefaultModel:  cfg.Model,
		FallbackModel: "llama-3.3-70b-versatile",
		Timeout:       timeout,
	}, logger)
}

// NewOpenRouter sends the attribution headers OpenRouter asks free-tier apps for.
func NewOpenRouter(cfg config.ProviderConfig, timeout time.Duration, logger *zap.Logger) *Provider {
	return New(Config{
		ProviderName:  NameOpenRouter,
		APIKey:        cfg.APIKey,
		BaseURL:       orDefault(cfg.BaseURL, "https://openrouter.ai/api"),
		DefaultModel:  cfg.Model,
		FallbackModel: "meta-llama/llama-3.3-70b-instruct:free",
		Timeout:       timeout,
		ExtraHeaders: map[string]string{
			"HTTP-Referer": "https://github.com/BaSui01/viralshorts",
			"X-Title":      "ViralShorts Factory",
		},
	}, logger)
}

// NewDeepSeek creates the DeepSeek provider.
func NewDeepSeek(cfg config.ProviderConfig, timeout time.Duration, logger *zap.Logger) *Provider {
	return New(Config{
		ProviderName:  NameDeepSeek,
		APIKey:        cfg.APIKey,
		BaseURL:       orDefault(cfg.BaseURL, "https://api.deepseek.com"),
		DefaultModel:  cfg.Model,
		FallbackModel: "deepseek-chat",
		Timeout:       timeout,
	}, logger)
}

// NewOpenAI creates the OpenAI provider.
func NewOpenAI(cfg config.ProviderConfig, timeout time.Duration, logger *zap.Logger) *Provider {
	return New(Config{
		ProviderName:  NameOpenAI,
		APIKey:        cfg.APIKey,
		BaseURL:       orDefault(cfg.BaseURL, "https://api.openai.com"),
		DefaultModel:  cfg.Model,
		FallbackModel: "gpt-4o-mini",
		Timeout:       timeout,
	}, logger)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
