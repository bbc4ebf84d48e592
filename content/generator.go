package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/internal/ctxkeys"
	"github.com/BaSui01/viralshorts/llm"
)

// ErrNoCaller 未配置任何 LLM 时由需要 AI 的方法返回
var ErrNoCaller = errors.New("content: no llm caller configured")

// CreativeTemperature 创意类提示词使用的温度
const CreativeTemperature = 0.85

// fallbackPhraseKeywords AI 不可用时的逐句 B-roll 关键词
var fallbackPhraseKeywords = []string{"dark cityscape", "thinking person", "abstract motion", "success celebration"}

// failedPhraseKeyword AI 调用失败时每句使用的关键词
const failedPhraseKeyword = "dramatic scene"

// PromptBooster 提供注入到生成提示词末尾的病毒模式指引
type PromptBooster interface {
	PromptBoost() string
}

// Option 配置 Generator
type Option func(*Generator)

// WithBooster 启用提示词增强注入
func WithBooster(b PromptBooster) Option {
	return func(g *Generator) { g.booster = b }
}

// WithEvalModels 评估类调用按 Provider 覆盖模型
func WithEvalModels(models map[string]string) Option {
	return func(g *Generator) { g.evalModels = models }
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand 替换随机源
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// Generator 使用 LLM 生成选题、关键词、评估与配音脚本
type Generator struct {
	caller     llm.Caller
	booster    PromptBooster
	evalModels map[string]string
	now        func() time.Time
	rng        *rand.Rand
	logger     *zap.Logger
}

// NewGenerator 创建内容生成器，caller 可以为 nil（仅使用降级路径）
func NewGenerator(caller llm.Caller, logger *zap.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{
		caller: caller,
		now:    time.Now,
		logger: logger.With(zap.String("component", "content_generator")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HasCaller 报告是否配置了 LLM
func (g *Generator) HasCaller() bool { return g.caller != nil }

func (g *Generator) call(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
	if g.caller == nil {
		return "", ErrNoCaller
	}
	return g.caller.Call(ctx, prompt, opts)
}

// boost 追加静态 booster 与 context 中的注入指引
func (g *Generator) boost(ctx context.Context, prompt string) string {
	var parts []string
	if g.booster != nil {
		if extra := strings.TrimSpace(g.booster.PromptBoost()); extra != "" {
			parts = append(parts, extra)
		}
	}
	if extra, ok := ctxkeys.PromptBoost(ctx); ok {
		parts = append(parts, strings.TrimSpace(extra))
	}
	if len(parts) == 0 {
		return prompt
	}
	return prompt + "\n\n" + strings.Join(parts, "\n\n")
}

// Topics 生成 count 个病毒选题，所有文本字段去除 emoji
func (g *Generator) Topics(ctx context.Context, count int) ([]Topic, error) {
	if count <= 0 {
		count = 3
	}
	now := g.now()
	prompt, err := render(topicsTemplate, TopicsData{
		Date:           now.Format("January 02, 2006"),
		DayOfWeek:      now.Weekday().String(),
		Season:         Season(now.Month()),
		TrendingThemes: TrendingThemes,
		Count:          count,
	})
	if err != nil {
		return nil, fmt.Errorf("render topics prompt: %w", err)
	}

	out, err := g.call(ctx, g.boost(ctx, prompt), llm.CallOptions{
		Temperature: CreativeTemperature,
		MaxTokens:   2000,
		NoCache:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate topics: %w", err)
	}

	topics, err := parseTopics(out)
	if err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	for i := range topics {
		t := &topics[i]
		t.Topic = StripEmojis(t.Topic)
		t.Hook = StripEmojis(t.Hook)
		t.Content = StripEmojis(t.Content)
		t.CallToAction = StripEmojis(t.CallToAction)
		t.WhyViral = StripEmojis(t.WhyViral)
		t.BrollKeywords = stripAll(t.BrollKeywords)
	}
	g.logger.Debug("topics generated", zap.Int("requested", count), zap.Int("got", len(topics)))
	return topics, nil
}

// parseTopics 接受数组、单个对象或 {"topics": [...]} 三种形态
func parseTopics(text string) ([]Topic, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var list []Topic
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Topics []Topic `json:"topics"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && len(wrapped.Topics) > 0 {
		return wrapped.Topics, nil
	}
	var single Topic
	if err := json.Unmarshal([]byte(raw), &single); err != nil {
		return nil, err
	}
	if single.Hook == "" && single.Content == "" {
		return nil, ErrNoJSON
	}
	return []Topic{single}, nil
}

// BrollKeywords 为整段内容规划 B-roll
func (g *Generator) BrollKeywords(ctx context.Context, content, mood string) (*BrollPlan, error) {
	prompt, err := render(brollTemplate, BrollData{Content: content, Mood: mood})
	if err != nil {
		return nil, fmt.Errorf("render broll prompt: %w", err)
	}
	out, err := g.call(ctx, prompt, llm.CallOptions{Temperature: CreativeTemperature, MaxTokens: 500})
	if err != nil {
		return nil, fmt.Errorf("generate broll keywords: %w", err)
	}
	var plan BrollPlan
	if err := DecodeJSON(out, &plan); err != nil {
		return nil, fmt.Errorf("parse broll keywords: %w", err)
	}
	plan.SearchTerms = stripAll(plan.SearchTerms)
	return &plan, nil
}

// PhraseKeywords 为每个短语选择一个 B-roll 关键词，永不返回错误：
// 没有 LLM 时使用固定列表，调用或解析失败时每句都用 "dramatic scene"。
func (g *Generator) PhraseKeywords(ctx context.Context, phrases []string) []string {
	if len(phrases) == 0 {
		return nil
	}
	if g.caller == nil {
		out := make([]string, len(phrases))
		for i := range phrases {
			out[i] = fallbackPhraseKeywords[i%len(fallbackPhraseKeywords)]
		}
		return out
	}

	failed := func(err error) []string {
		g.logger.Warn("phrase keyword generation failed", zap.Error(err))
		out := make([]string, len(phrases))
		for i := range out {
			out[i] = failedPhraseKeyword
		}
		return out
	}

	prompt, err := render(phraseKeywordsTemplate, PhraseKeywordsData{Phrases: phrases})
	if err != nil {
		return failed(err)
	}
	out, err := g.call(ctx, prompt, llm.CallOptions{Temperature: 0.7, MaxTokens: 200})
	if err != nil {
		return failed(err)
	}
	var keywords []string
	if err := DecodeJSON(out, &keywords); err != nil {
		return failed(err)
	}
	keywords = stripAll(keywords)
	for len(keywords) < len(phrases) {
		keywords = append(keywords, failedPhraseKeyword)
	}
	return keywords[:len(phrases)]
}

// Evaluate 对 hook 与正文做病毒潜力评估
func (g *Generator) Evaluate(ctx context.Context, hook, content, videoType string) (*ContentEvaluation, error) {
	prompt, err := render(evaluationTemplate, EvaluationData{Hook: hook, Content: content, VideoType: videoType})
	if err != nil {
		return nil, fmt.Errorf("render evaluation prompt: %w", err)
	}
	out, err := g.call(ctx, prompt, llm.CallOptions{
		Temperature: CreativeTemperature,
		MaxTokens:   800,
		Models:      g.evalModels,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate content: %w", err)
	}
	var ev ContentEvaluation
	if err := DecodeJSON(out, &ev); err != nil {
		return nil, fmt.Errorf("parse evaluation: %w", err)
	}
	return &ev, nil
}

// Voiceover 把内容改写为配音脚本
func (g *Generator) Voiceover(ctx context.Context, content string) (*VoiceoverScript, error) {
	prompt, err := render(voiceoverTemplate, VoiceoverData{Content: content})
	if err != nil {
		return nil, fmt.Errorf("render voiceover prompt: %w", err)
	}
	out, err := g.call(ctx, prompt, llm.CallOptions{Temperature: CreativeTemperature, MaxTokens: 500})
	if err != nil {
		return nil, fmt.Errorf("generate voiceover: %w", err)
	}
	var vo VoiceoverScript
	if err := DecodeJSON(out, &vo); err != nil {
		return nil, fmt.Errorf("parse voiceover: %w", err)
	}
	vo.Script = StripEmojis(vo.Script)
	if vo.Script == "" {
		return nil, errors.New("voiceover script is empty")
	}
	return &vo, nil
}
