package tokenizer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPromptTooLong 提示词超过预算
var ErrPromptTooLong = errors.New("prompt exceeds token budget")

// Tokenizer 是统一的 token 计数接口
type Tokenizer interface {
	// CountTokens 返回文本的 token 数
	CountTokens(text string) (int, error)

	// CountMessages 返回消息列表的总 token 数（含每条消息的角色/分隔符开销）
	CountMessages(messages []Message) (int, error)

	// MaxTokens 返回模型上下文窗口
	MaxTokens() int

	// Name 返回分词器名称
	Name() string
}

// Message 是 tokenizer 使用的轻量消息结构，避免与 llm 包循环依赖
type Message struct {
	Role    string
	Content string
}

// 模型上下文窗口；llama / deepseek 没有公开的 tiktoken 编码，用 cl100k_base 近似
var modelWindows = []struct {
	prefix   string
	encoding string
	window   int
}{
	{"gpt-4o", "o200k_base", 128000},
	{"gpt-4", "cl100k_base", 8192},
	{"gpt-3.5", "cl100k_base", 16385},
	{"llama-3.1-8b", "cl100k_base", 131072},
	{"llama-3.3-70b", "cl100k_base", 131072},
	{"meta-llama/", "cl100k_base", 131072},
	{"deepseek", "cl100k_base", 65536},
	{"gemini", "cl100k_base", 1048576},
}

func lookup(model string) (encoding string, window int) {
	m := strings.ToLower(model)
	for _, w := range modelWindows {
		if strings.HasPrefix(m, w.prefix) {
			return w.encoding, w.window
		}
	}
	return "cl100k_base", 8192
}

// ForModel 返回模型对应的分词器；tiktoken 编码不可用时（如离线）回退到估算器
func ForModel(model string) Tokenizer {
	encoding, window := lookup(model)
	return newFallback(NewTiktokenTokenizer(model, encoding, window), NewEstimatorTokenizer(model, window))
}

// fallback 优先使用 primary，初始化失败后固定使用 estimator
type fallback struct {
	primary   Tokenizer
	estimator Tokenizer
}

func newFallback(primary, estimator Tokenizer) Tokenizer {
	return &fallback{primary: primary, estimator: estimator}
}

func (f *fallback) CountTokens(text string) (int, error) {
	if n, err := f.primary.CountTokens(text); err == nil {
		return n, nil
	}
	return f.estimator.CountTokens(text)
}

func (f *fallback) CountMessages(messages []Message) (int, error) {
	if n, err := f.primary.CountMessages(messages); err == nil {
		return n, nil
	}
	return f.estimator.CountMessages(messages)
}

func (f *fallback) MaxTokens() int { return f.primary.MaxTokens() }

func (f *fallback) Name() string {
	return fmt.Sprintf("%s|%s", f.primary.Name(), f.estimator.Name())
}

// Budget 在发送前检查提示词长度并钳制 max_tokens
type Budget struct {
	// MaxPromptTokens 提示词上限，0 表示仅受上下文窗口约束
	MaxPromptTokens int
	// DefaultMaxTokens 请求未指定 max_tokens 时使用
	DefaultMaxTokens int
}

// Check 返回提示词 token 数与钳制后的 max_tokens。
// 提示词超过 MaxPromptTokens 或占满上下文窗口时返回 ErrPromptTooLong。
func (b Budget) Check(t Tokenizer, messages []Message, requested int) (promptTokens, maxTokens int, err error) {
	promptTokens, err = t.CountMessages(messages)
	if err != nil {
		return 0, 0, fmt.Errorf("count prompt tokens: %w", err)
	}

	window := t.MaxTokens()
	if b.MaxPromptTokens > 0 && promptTokens > b.MaxPromptTokens {
		return promptTokens, 0, fmt.Errorf("%w: %d > %d", ErrPromptTooLong, promptTokens, b.MaxPromptTokens)
	}
	if promptTokens >= window {
		return promptTokens, 0, fmt.Errorf("%w: %d >= context window %d", ErrPromptTooLong, promptTokens, window)
	}

	maxTokens = requested
	if maxTokens <= 0 {
		maxTokens = b.DefaultMaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	if remaining := window - promptTokens; maxTokens > remaining {
		maxTokens = remaining
	}
	return promptTokens, maxTokens, nil
}
