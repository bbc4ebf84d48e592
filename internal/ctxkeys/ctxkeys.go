// Package ctxkeys 定义跨包共享的 context 键。
package ctxkeys

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	jobIDKey     contextKey = "job_id"
	stageKey     contextKey = "stage"
	llmModelKey  contextKey = "llm_model"
	boostKey     contextKey = "prompt_boost"
)

func withString(ctx context.Context, key contextKey, v string) context.Context {
	return context.WithValue(ctx, key, v)
}

func getString(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithRequestID 设置 HTTP 请求 ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

// RequestID 获取 HTTP 请求 ID
func RequestID(ctx context.Context) (string, bool) { return getString(ctx, requestIDKey) }

// WithJobID 设置当前生产作业 ID
func WithJobID(ctx context.Context, id string) context.Context {
	return withString(ctx, jobIDKey, id)
}

// JobID 获取当前生产作业 ID
func JobID(ctx context.Context) (string, bool) { return getString(ctx, jobIDKey) }

// WithStage 设置流水线阶段名
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// Stage 获取流水线阶段名
func Stage(ctx context.Context) (string, bool) { return getString(ctx, stageKey) }

// WithLLMModel 覆盖本次调用使用的模型（如评估走轻量模型）
func WithLLMModel(ctx context.Context, model string) context.Context {
	return withString(ctx, llmModelKey, model)
}

// LLMModel 获取覆盖的模型
func LLMModel(ctx context.Context) (string, bool) { return getString(ctx, llmModelKey) }

// WithPromptBoost 附加本次生成要注入提示词末尾的指引
func WithPromptBoost(ctx context.Context, text string) context.Context {
	return withString(ctx, boostKey, text)
}

// PromptBoost 获取注入指引
func PromptBoost(ctx context.Context) (string, bool) { return getString(ctx, boostKey) }
