// =============================================================================
// 📦 ViralShorts 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("VIRALSHORTS").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → VIRALSHORTS_* 环境变量 → 常规 API Key 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 ViralShorts 的完整配置结构
type Config struct {
	Server      ServerConfig      `yaml:"server" env:"SERVER"`
	Log         LogConfig         `yaml:"log" env:"LOG"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" env:"TELEMETRY"`
	Redis       RedisConfig       `yaml:"redis" env:"REDIS"`
	Database    DatabaseConfig    `yaml:"database" env:"DATABASE"`
	LLM         LLMConfig         `yaml:"llm" env:"LLM"`
	Speech      SpeechConfig      `yaml:"speech" env:"SPEECH"`
	Media       MediaConfig       `yaml:"media" env:"MEDIA"`
	Render      RenderConfig      `yaml:"render" env:"RENDER"`
	Dailymotion DailymotionConfig `yaml:"dailymotion" env:"DAILYMOTION"`
	YouTube     YouTubeConfig     `yaml:"youtube" env:"YOUTUBE"`
	ObjectStore ObjectStoreConfig `yaml:"object_store" env:"OBJECT_STORE"`
	Pipeline    PipelineConfig    `yaml:"pipeline" env:"PIPELINE"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每个 IP 的请求速率
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 速率突发
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 允许的 CORS 来源，空表示 *
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 静态 API Key 列表（X-API-Key）
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// JWT HMAC 密钥，为空时不接受 Bearer token
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// RedisConfig Redis 配置，Enabled=false 时 LLM 响应缓存关闭
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	Addr         string        `yaml:"addr" env:"ADDR"`
	Password     string        `yaml:"password" env:"PASSWORD"`
	DB           int           `yaml:"db" env:"DB"`
	PoolSize     int           `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 时为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// ProviderConfig 单个 LLM Provider 的凭证与模型
type ProviderConfig struct {
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	Model   string `yaml:"model" env:"MODEL"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// Provider 调用顺序，首个为主 Provider，其余为 429 回退链
	Order      []string       `yaml:"order" env:"ORDER"`
	Groq       ProviderConfig `yaml:"groq" env:"GROQ"`
	Gemini     ProviderConfig `yaml:"gemini" env:"GEMINI"`
	OpenRouter ProviderConfig `yaml:"openrouter" env:"OPENROUTER"`
	DeepSeek   ProviderConfig `yaml:"deepseek" env:"DEEPSEEK"`
	OpenAI     ProviderConfig `yaml:"openai" env:"OPENAI"`
	// 评估所用的轻量模型
	EvalModel string `yaml:"eval_model" env:"EVAL_MODEL"`
	// 创意类提示词的温度
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 429 时每个 Provider 的最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 熔断阈值
	BreakerThreshold int `yaml:"breaker_threshold" env:"BREAKER_THRESHOLD"`
	// Prompt token 预算
	MaxPromptTokens int `yaml:"max_prompt_tokens" env:"MAX_PROMPT_TOKENS"`
}

// SpeechConfig 配音配置
type SpeechConfig struct {
	// 调用顺序: elevenlabs, openai
	Order           []string      `yaml:"order" env:"ORDER"`
	ElevenLabsKey   string        `yaml:"elevenlabs_api_key" env:"ELEVENLABS_API_KEY"`
	ElevenLabsURL   string        `yaml:"elevenlabs_base_url" env:"ELEVENLABS_BASE_URL"`
	ElevenLabsVoice string        `yaml:"elevenlabs_voice" env:"ELEVENLABS_VOICE"`
	OpenAIKey       string        `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIURL       string        `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	OpenAIVoice     string        `yaml:"openai_voice" env:"OPENAI_VOICE"`
	Speed           float64       `yaml:"speed" env:"SPEED"`
	Timeout         time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// MediaConfig B-roll 与背景音乐配置
type MediaConfig struct {
	PexelsAPIKey    string `yaml:"pexels_api_key" env:"PEXELS_API_KEY"`
	PixabayAPIKey   string `yaml:"pixabay_api_key" env:"PIXABAY_API_KEY"`
	JamendoClientID string `yaml:"jamendo_client_id" env:"JAMENDO_CLIENT_ID"`
	BrollDir        string `yaml:"broll_dir" env:"BROLL_DIR"`
	MusicDir        string `yaml:"music_dir" env:"MUSIC_DIR"`
	// 并发下载数
	Concurrency int           `yaml:"concurrency" env:"CONCURRENCY"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RenderConfig ffmpeg 渲染配置
type RenderConfig struct {
	FFmpegPath  string  `yaml:"ffmpeg_path" env:"FFMPEG_PATH"`
	FFprobePath string  `yaml:"ffprobe_path" env:"FFPROBE_PATH"`
	OutputDir   string  `yaml:"output_dir" env:"OUTPUT_DIR"`
	TempDir     string  `yaml:"temp_dir" env:"TEMP_DIR"`
	FontFile    string  `yaml:"font_file" env:"FONT_FILE"`
	Preset      string  `yaml:"preset" env:"PRESET"`
	Threads     int     `yaml:"threads" env:"THREADS"`
	MusicVolume float64 `yaml:"music_volume" env:"MUSIC_VOLUME"`
}

// DailymotionConfig Dailymotion 上传配置
type DailymotionConfig struct {
	APIKey    string `yaml:"api_key" env:"API_KEY"`
	APISecret string `yaml:"api_secret" env:"API_SECRET"`
	Username  string `yaml:"username" env:"USERNAME"`
	Password  string `yaml:"password" env:"PASSWORD"`
	Channel   string `yaml:"channel" env:"CHANNEL"`
	BaseURL   string `yaml:"base_url" env:"BASE_URL"`
	// 每日上传预算
	DailyLimit int `yaml:"daily_limit" env:"DAILY_LIMIT"`
}

// Configured 仅当四项凭证齐全时返回 true
func (d DailymotionConfig) Configured() bool {
	return d.APIKey != "" && d.APISecret != "" && d.Username != "" && d.Password != ""
}

// YouTubeConfig 频道分析配置
type YouTubeConfig struct {
	APIKey   string   `yaml:"api_key" env:"API_KEY"`
	BaseURL  string   `yaml:"base_url" env:"BASE_URL"`
	Channels []string `yaml:"channels" env:"CHANNELS"`
}

// ObjectStoreConfig S3 兼容对象存储（渲染归档）
type ObjectStoreConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	Region    string `yaml:"region" env:"REGION"`
	Prefix    string `yaml:"prefix" env:"PREFIX"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
}

// PipelineConfig 生产流水线配置
type PipelineConfig struct {
	// 并发作业数
	Workers int `yaml:"workers" env:"WORKERS"`
	// 队列长度
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`
	// 单个作业超时
	JobTimeout time.Duration `yaml:"job_timeout" env:"JOB_TIMEOUT"`
	// 质量门槛（0-10），低于此分数的题材被拒绝
	QualityThreshold float64 `yaml:"quality_threshold" env:"QUALITY_THRESHOLD"`
	// 启用的增强器
	Enhancers []string `yaml:"enhancers" env:"ENHANCERS"`
	// 每条视频的短语数
	PhraseTarget int `yaml:"phrase_target" env:"PHRASE_TARGET"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "VIRALSHORTS",
		lookupEnv:  os.LookupEnv,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	l.applyConventionalEnv(cfg)

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := l.lookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// applyConventionalEnv 读取各服务约定俗成的变量名（GROQ_API_KEY 等），
// 只填充仍为空的字段
func (l *Loader) applyConventionalEnv(cfg *Config) {
	bind := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := l.lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	bind(&cfg.LLM.Groq.APIKey, "GROQ_API_KEY")
	bind(&cfg.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	bind(&cfg.LLM.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	bind(&cfg.LLM.DeepSeek.APIKey, "DEEPSEEK_API_KEY")
	bind(&cfg.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	bind(&cfg.Speech.ElevenLabsKey, "ELEVENLABS_API_KEY")
	bind(&cfg.Speech.OpenAIKey, "OPENAI_API_KEY")
	bind(&cfg.Media.PexelsAPIKey, "PEXELS_API_KEY")
	bind(&cfg.Media.PixabayAPIKey, "PIXABAY_API_KEY")
	bind(&cfg.YouTube.APIKey, "YOUTUBE_API_KEY")
	bind(&cfg.Dailymotion.APIKey, "DAILYMOTION_API_KEY")
	bind(&cfg.Dailymotion.APISecret, "DAILYMOTION_API_SECRET")
	bind(&cfg.Dailymotion.Username, "DAILYMOTION_USERNAME")
	bind(&cfg.Dailymotion.Password, "DAILYMOTION_PASSWORD")
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			field.Set(reflect.ValueOf(out))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "llm temperature must be between 0 and 2")
	}
	if len(c.LLM.Order) == 0 {
		errs = append(errs, "llm order must name at least one provider")
	}
	for _, name := range c.LLM.Order {
		if _, ok := c.LLM.Provider(name); !ok {
			errs = append(errs, fmt.Sprintf("unknown llm provider %q", name))
		}
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Pipeline.Workers <= 0 {
		errs = append(errs, "pipeline workers must be positive")
	}
	if c.Pipeline.QualityThreshold < 0 || c.Pipeline.QualityThreshold > 10 {
		errs = append(errs, "pipeline quality_threshold must be between 0 and 10")
	}
	if c.Render.MusicVolume < 0 || c.Render.MusicVolume > 1 {
		errs = append(errs, "render music_volume must be between 0 and 1")
	}
	if c.ObjectStore.Enabled && (c.ObjectStore.Endpoint == "" || c.ObjectStore.Bucket == "") {
		errs = append(errs, "object_store requires endpoint and bucket when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Provider 按名称返回 LLM Provider 配置
func (c LLMConfig) Provider(name string) (ProviderConfig, bool) {
	switch strings.ToLower(name) {
	case "groq":
		return c.Groq, true
	case "gemini":
		return c.Gemini, true
	case "openrouter":
		return c.OpenRouter, true
	case "deepseek":
		return c.DeepSeek, true
	case "openai":
		return c.OpenAI, true
	default:
		return ProviderConfig{}, false
	}
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
