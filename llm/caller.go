package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/internal/ctxkeys"
	"github.com/BaSui01/viralshorts/internal/metrics"
	"github.com/BaSui01/viralshorts/internal/telemetry"
	"github.com/BaSui01/viralshorts/llm/circuitbreaker"
	"github.com/BaSui01/viralshorts/llm/retry"
	"github.com/BaSui01/viralshorts/llm/tokenizer"
)

var (
	// ErrNoProviders 没有配置任何 Provider
	ErrNoProviders = errors.New("no llm providers configured")
	// ErrAllProvidersFailed 所有 Provider 都失败，错误链中包含每个 Provider 的错误
	ErrAllProvidersFailed = errors.New("all llm providers failed")
)

// CallOptions 单次文本生成的参数
type CallOptions struct {
	// System 系统提示词
	System string
	// Temperature 为 0 时使用调用器默认值
	Temperature float32
	// MaxTokens 为 0 时由 token 预算决定
	MaxTokens int
	// JSON 要求模型返回 JSON 对象
	JSON bool
	// Models 按 Provider 名覆盖模型（例如评估使用 groq 的小模型）
	Models map[string]string
	// NoCache 跳过响应缓存（创意类生成每次都需要新结果）
	NoCache bool
}

// Caller 是 content / evaluator / analyzer 使用的文本生成接口
type Caller interface {
	Call(ctx context.Context, prompt string, opts CallOptions) (string, error)
}

// CallerFunc 函数适配器
type CallerFunc func(ctx context.Context, prompt string, opts CallOptions) (string, error)

func (f CallerFunc) Call(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	return f(ctx, prompt, opts)
}

// DefaultModeler 由能报告默认模型的 Provider 实现，用于选择分词器
type DefaultModeler interface {
	DefaultModel() string
}

// FallbackConfig 配置 FallbackCaller
type FallbackConfig struct {
	Retry              retry.Policy
	Breaker            circuitbreaker.Config
	Budget             tokenizer.Budget
	DefaultTemperature float32
}

// DefaultFallbackConfig 返回默认配置：429 最多重试 3 次，连续 5 次失败熔断
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		Retry:              retry.DefaultPolicy(),
		Breaker:            circuitbreaker.DefaultConfig(),
		Budget:             tokenizer.Budget{MaxPromptTokens: 6000, DefaultMaxTokens: 2048},
		DefaultTemperature: 0.85,
	}
}

type providerEntry struct {
	provider  Provider
	breaker   *circuitbreaker.Breaker
	tokenizer tokenizer.Tokenizer
}

// FallbackCaller 按顺序尝试 Provider：每个 Provider 经过自己的熔断器调用，
// 遇到 429 按退避策略重试，之后落到下一个 Provider；客户端错误直接跳到下一个。
type FallbackCaller struct {
	entries     []providerEntry
	retryer     *retry.Retryer
	budget      tokenizer.Budget
	defaultTemp float32
	metrics     *metrics.Collector
	logger      *zap.Logger
}

// NewFallbackCaller 创建 SmartAICaller，providers 的顺序即优先级
func NewFallbackCaller(providers []Provider, cfg FallbackConfig, collector *metrics.Collector, logger *zap.Logger) (*FallbackCaller, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "llm_fallback"))

	policy := cfg.Retry
	policy.RetryIf = IsRateLimited

	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = func(err error) bool { return !IsClientError(err) }

	entries := make([]providerEntry, 0, len(providers))
	for _, p := range providers {
		model := ""
		if dm, ok := p.(DefaultModeler); ok {
			model = dm.DefaultModel()
		}
		entries = append(entries, providerEntry{
			provider:  p,
			breaker:   circuitbreaker.New(p.Name(), breakerCfg, logger),
			tokenizer: tokenizer.ForModel(model),
		})
	}

	return &FallbackCaller{
		entries:     entries,
		retryer:     retry.New(policy, logger),
		budget:      cfg.Budget,
		defaultTemp: cfg.DefaultTemperature,
		metrics:     collector,
		logger:      logger,
	}, nil
}

// Providers 返回按优先级排列的 Provider 名称
func (f *FallbackCaller) Providers() []string {
	names := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		names = append(names, e.provider.Name())
	}
	return names
}

// Call 实现 Caller
func (f *FallbackCaller) Call(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	req := &ChatRequest{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		JSONMode:    opts.JSON,
	}
	if req.Temperature == 0 {
		req.Temperature = f.defaultTemp
	}
	if opts.System != "" {
		req.Messages = append(req.Messages, Message{Role: RoleSystem, Content: opts.System})
	}
	req.Messages = append(req.Messages, Message{Role: RoleUser, Content: prompt})

	resp, err := f.complete(ctx, req, opts.Models)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content()), nil
}

// Complete 依次尝试每个 Provider，返回第一个成功的响应
func (f *FallbackCaller) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return f.complete(ctx, req, nil)
}

func (f *FallbackCaller) complete(ctx context.Context, req *ChatRequest, models map[string]string) (*ChatResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "llm.completion",
		attribute.Int("llm.providers", len(f.entries)),
	)
	var spanErr error
	defer func() { telemetry.EndSpan(span, spanErr) }()

	logger := f.logger
	if jobID, ok := ctxkeys.JobID(ctx); ok {
		logger = logger.With(zap.String("job_id", jobID))
	}

	tokMsgs := make([]tokenizer.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		tokMsgs = append(tokMsgs, tokenizer.Message{Role: string(m.Role), Content: m.Content})
	}

	var errs []error
	for i, e := range f.entries {
		name := e.provider.Name()
		attempt := *req
		if m, ok := models[name]; ok && m != "" {
			attempt.Model = m
		}

		promptTokens, maxTokens, err := f.budget.Check(e.tokenizer, tokMsgs, req.MaxTokens)
		if err != nil {
			lerr := &Error{
				Code: ErrContextTooLong, Message: err.Error(),
				HTTPStatus: http.StatusBadRequest, Provider: name, Cause: err,
			}
			errs = append(errs, lerr)
			f.metrics.RecordLLMFallback(name, string(ErrContextTooLong))
			continue
		}
		attempt.MaxTokens = maxTokens

		start := time.Now()
		resp, err := retry.Do(ctx, f.retryer, func(ctx context.Context) (*ChatResponse, error) {
			return circuitbreaker.Call(ctx, e.breaker, func(ctx context.Context) (*ChatResponse, error) {
				return e.provider.Completion(ctx, &attempt)
			})
		})
		duration := time.Since(start)

		if err == nil {
			if resp.Provider == "" {
				resp.Provider = name
			}
			prompt := resp.Usage.PromptTokens
			if prompt == 0 {
				prompt = promptTokens
			}
			f.metrics.RecordLLMRequest(name, resp.Model, "success", duration, prompt, resp.Usage.CompletionTokens)
			if i > 0 {
				logger.Info("llm fallback succeeded",
					zap.String("provider", name),
					zap.Int("position", i),
				)
			}
			span.SetAttributes(attribute.String("llm.provider", name), attribute.String("llm.model", resp.Model))
			return resp, nil
		}

		if ctx.Err() != nil {
			spanErr = fmt.Errorf("llm call cancelled: %w", ctx.Err())
			return nil, spanErr
		}

		reason := fallbackReason(err)
		f.metrics.RecordLLMRequest(name, attempt.Model, "error", duration, promptTokens, 0)
		f.metrics.RecordLLMFallback(name, reason)
		logger.Warn("llm provider failed, falling back",
			zap.String("provider", name),
			zap.String("reason", reason),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}

	spanErr = fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
	return nil, spanErr
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyCallsInHalfOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	if e, ok := AsError(err); ok {
		return strings.ToLower(strings.TrimPrefix(string(e.Code), "LLM_"))
	}
	return "error"
}
