// =============================================================================
// 📦 ViralShorts 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:      DefaultServerConfig(),
		Log:         DefaultLogConfig(),
		Telemetry:   DefaultTelemetryConfig(),
		Redis:       DefaultRedisConfig(),
		Database:    DefaultDatabaseConfig(),
		LLM:         DefaultLLMConfig(),
		Speech:      DefaultSpeechConfig(),
		Media:       DefaultMediaConfig(),
		Render:      DefaultRenderConfig(),
		Dailymotion: DefaultDailymotionConfig(),
		YouTube:     DefaultYouTubeConfig(),
		ObjectStore: DefaultObjectStoreConfig(),
		Pipeline:    DefaultPipelineConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "viralshorts",
		SampleRate:   0.1,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		CacheTTL:     6 * time.Hour,
	}
}

// DefaultDatabaseConfig 默认使用本地 sqlite 文件
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "viralshorts",
		Name:            "viralshorts.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置（Groq 为主，其余按序回退）
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Order: []string{"groq", "gemini", "openrouter", "deepseek", "openai"},
		Groq: ProviderConfig{
			BaseURL: "https://api.groq.com/openai",
			Model:   "llama-3.3-70b-versatile",
		},
		Gemini: ProviderConfig{
			Model: "gemini-2.0-flash",
		},
		OpenRouter: ProviderConfig{
			BaseURL: "https://openrouter.ai/api",
			Model:   "meta-llama/llama-3.3-70b-instruct:free",
		},
		DeepSeek: ProviderConfig{
			BaseURL: "https://api.deepseek.com",
			Model:   "deepseek-chat",
		},
		OpenAI: ProviderConfig{
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4o-mini",
		},
		EvalModel:        "llama-3.1-8b-instant",
		Temperature:      0.85,
		Timeout:          60 * time.Second,
		MaxRetries:       3,
		BreakerThreshold: 5,
		MaxPromptTokens:  6000,
	}
}

// DefaultSpeechConfig 返回默认配音配置
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{
		Order:           []string{"elevenlabs", "openai"},
		ElevenLabsURL:   "https://api.elevenlabs.io",
		ElevenLabsVoice: "21m00Tcm4TlvDq8ikWAM",
		OpenAIURL:       "https://api.openai.com",
		OpenAIVoice:     "onyx",
		Speed:           1.1,
		Timeout:         60 * time.Second,
	}
}

// DefaultMediaConfig 返回默认素材配置
func DefaultMediaConfig() MediaConfig {
	return MediaConfig{
		JamendoClientID: "58c7c0f1",
		BrollDir:        "assets/broll",
		MusicDir:        "assets/music",
		Concurrency:     4,
		Timeout:         60 * time.Second,
	}
}

// DefaultRenderConfig 返回默认渲染配置
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		OutputDir:   "output",
		TempDir:     "temp",
		Preset:      "ultrafast",
		Threads:     4,
		MusicVolume: 0.12,
	}
}

// DefaultDailymotionConfig 返回默认 Dailymotion 配置
func DefaultDailymotionConfig() DailymotionConfig {
	return DailymotionConfig{
		BaseURL:    "https://api.dailymotion.com",
		DailyLimit: 50,
	}
}

// DefaultYouTubeConfig 返回默认 YouTube 配置
func DefaultYouTubeConfig() YouTubeConfig {
	return YouTubeConfig{
		BaseURL: "https://www.googleapis.com/youtube/v3",
	}
}

// DefaultObjectStoreConfig 返回默认对象存储配置
func DefaultObjectStoreConfig() ObjectStoreConfig {
	return ObjectStoreConfig{
		Enabled: false,
		Bucket:  "viralshorts",
		Region:  "us-east-1",
		Prefix:  "renders/",
		UseSSL:  true,
	}
}

// DefaultPipelineConfig 返回默认流水线配置
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Workers:          2,
		QueueSize:        64,
		JobTimeout:       20 * time.Minute,
		QualityThreshold: 5,
		Enhancers:        []string{"prompt_boost", "quality_gate", "algorithm_signals"},
		PhraseTarget:     4,
	}
}
