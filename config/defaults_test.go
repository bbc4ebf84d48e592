package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
	assert.NotEqual(t, RedisConfig{}, cfg.Redis)
	assert.NotEqual(t, DatabaseConfig{}, cfg.Database)
	assert.NotEqual(t, RenderConfig{}, cfg.Render)
	assert.NotEqual(t, DailymotionConfig{}, cfg.Dailymotion)
	assert.NotEqual(t, YouTubeConfig{}, cfg.YouTube)
	assert.NotEqual(t, ObjectStoreConfig{}, cfg.ObjectStore)
	assert.NotEmpty(t, cfg.LLM.Order)
	assert.NotEmpty(t, cfg.Speech.Order)
	assert.NotEmpty(t, cfg.Pipeline.Enhancers)
}

func TestDefaultLLMConfig(t *testing.T) {
	cfg := DefaultLLMConfig()
	assert.Equal(t, "groq", cfg.Order[0])
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Groq.Model)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.EvalModel)
	assert.InDelta(t, 0.85, cfg.Temperature, 0.001)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Empty(t, cfg.Groq.APIKey)
}

func TestDefaultRenderConfig(t *testing.T) {
	cfg := DefaultRenderConfig()
	assert.Equal(t, "ultrafast", cfg.Preset)
	assert.Equal(t, 4, cfg.Threads)
	assert.InDelta(t, 0.12, cfg.MusicVolume, 0.0001)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
}

func TestDefaultMediaConfig(t *testing.T) {
	cfg := DefaultMediaConfig()
	assert.Equal(t, "58c7c0f1", cfg.JamendoClientID)
	assert.Equal(t, "assets/broll", cfg.BrollDir)
	assert.Equal(t, "assets/music", cfg.MusicDir)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
}

func TestDefaultDatabaseConfig(t *testing.T) {
	cfg := DefaultDatabaseConfig()
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "viralshorts.db", cfg.DSN())
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 4, cfg.PhraseTarget)
	assert.InDelta(t, 5.0, cfg.QualityThreshold, 0.001)
	assert.Contains(t, cfg.Enhancers, "quality_gate")
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
	assert.True(t, cfg.EnableCaller)
	assert.False(t, cfg.EnableStacktrace)
}

func TestDailymotionConfig_Configured(t *testing.T) {
	cfg := DefaultDailymotionConfig()
	assert.False(t, cfg.Configured())

	cfg.APIKey, cfg.APISecret, cfg.Username = "k", "s", "u"
	assert.False(t, cfg.Configured(), "password still missing")

	cfg.Password = "p"
	assert.True(t, cfg.Configured())
}
