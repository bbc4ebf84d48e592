// Package analyzer learns viral patterns from successful Shorts channels and
// from our own best videos, and turns them into prompt guidance.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/content"
	"github.com/BaSui01/viralshorts/llm"
)

const (
	// MinSubscribers 只分析已"毕业"（可变现）的频道
	MinSubscribers = 1000

	topTitles       = 10
	defaultAvgLen   = 20
	patternSource   = "channel_analysis"
	extractMaxToken = 500
)

var (
	// ErrChannelTooSmall 订阅数不足
	ErrChannelTooSmall = errors.New("analyzer: channel below subscriber threshold")
	// ErrNoShorts 频道近期没有 Shorts
	ErrNoShorts = errors.New("analyzer: channel has no recent shorts")
)

// PatternStore 持久化学到的模式
type PatternStore interface {
	LoadPatterns(ctx context.Context) (map[string][]string, error)
	SavePatterns(ctx context.Context, kind, source string, values []string) error
}

// ChannelInsight 从一个成功频道提取的结论
type ChannelInsight struct {
	ChannelID           string   `json:"channel_id"`
	ChannelName         string   `json:"channel_name"`
	SubscriberCount     int64    `json:"subscriber_count"`
	AvgViewsPerShort    int64    `json:"avg_views_per_short"`
	TopPerformingTitles []string `json:"top_performing_titles"`
	TitlePatterns       []string `json:"common_title_patterns"`
	HookTechniques      []string `json:"hook_techniques"`
	AvgVideoLength      int      `json:"avg_video_length"`
	PostingFrequency    string   `json:"posting_frequency"`
	Niche               string   `json:"niche"`
}

// Analyzer 频道分析与提示词增强
type Analyzer struct {
	yt     *YouTube
	caller llm.Caller
	store  PatternStore
	models map[string]string
	logger *zap.Logger

	mu    sync.Mutex
	saved map[string][]string
	rng   *rand.Rand
}

// Option 配置 Analyzer
type Option func(*Analyzer)

// WithStore 启用模式持久化
func WithStore(s PatternStore) Option {
	return func(a *Analyzer) { a.store = s }
}

// WithModels 模式提取使用的模型（按 Provider）
func WithModels(m map[string]string) Option {
	return func(a *Analyzer) { a.models = m }
}

// WithRand 固定随机源
func WithRand(r *rand.Rand) Option {
	return func(a *Analyzer) { a.rng = r }
}

// New 创建 Analyzer；yt、caller 都可以为 nil
func New(yt *YouTube, caller llm.Caller, logger *zap.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		yt:     yt,
		caller: caller,
		logger: logger.With(zap.String("component", "analyzer")),
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xda3e39cb94b95bdb)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Refresh 从存储重新加载已学到的模式
func (a *Analyzer) Refresh(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	saved, err := a.store.LoadPatterns(ctx)
	if err != nil {
		return fmt.Errorf("load patterns: %w", err)
	}
	a.mu.Lock()
	a.saved = saved
	a.mu.Unlock()
	return nil
}

// Patterns 返回内置模式与已学模式的合集
func (a *Analyzer) Patterns() Patterns {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ProvenPatterns().Merge(a.saved)
}

// PromptBoost 生成注入到生成提示词末尾的指引：3 个标题公式、2 个钩子技巧、
// 最优参数和 2 个互动诱导
func (a *Analyzer) PromptBoost() string {
	p := a.Patterns()
	titles := a.sample(p.TitleFormulas, 3)
	hooks := a.sample(p.HookTechniques, 2)
	baits := p.EngagementTactics
	if len(baits) == 0 {
		baits = []string{"Comment below!"}
	}
	baits = a.sample(baits, 2)
	o := p.Optimal

	var b strings.Builder
	b.WriteString("\n=== VIRAL PATTERNS (Learned from successful channels) ===\n\n")
	b.WriteString("TITLE FORMULAS that get views:\n")
	writeList(&b, titles)
	b.WriteString("\nHOOK TECHNIQUES that stop the scroll:\n")
	writeList(&b, hooks)
	b.WriteString("\nOPTIMAL METRICS:\n")
	fmt.Fprintf(&b, "- Video length: %d-%d seconds (CRITICAL!)\n", o.VideoLengthSeconds.Min, o.VideoLengthSeconds.Max)
	fmt.Fprintf(&b, "- Hook: First %d-%d seconds must grab attention\n", o.HookLengthSeconds.Min, o.HookLengthSeconds.Max)
	fmt.Fprintf(&b, "- Phrases: %d-%d short phrases (%d-%d words each)\n",
		o.PhrasesCount.Min, o.PhrasesCount.Max, o.WordsPerPhrase.Min, o.WordsPerPhrase.Max)
	b.WriteString("- End with engagement question\n")
	b.WriteString("\nENGAGEMENT BAITS (use one at the end):\n")
	writeList(&b, baits)
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteByte('\n')
	}
}

// sample 无放回随机抽取 n 个
func (a *Analyzer) sample(items []string, n int) []string {
	n = min(n, len(items))
	a.mu.Lock()
	idx := a.rng.Perm(len(items))[:n]
	a.mu.Unlock()
	out := make([]string, n)
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

// AnalyzeChannel 分析一个频道的 Shorts：订阅不足 1000 返回 ErrChannelTooSmall；
// 提取到的标题模式和钩子技巧写入存储。
func (a *Analyzer) AnalyzeChannel(ctx context.Context, channelID string) (*ChannelInsight, error) {
	if a.yt == nil {
		return nil, errors.New("analyzer: youtube client not configured")
	}
	ch, err := a.yt.Channel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch channel: %w", err)
	}
	if ch.Subscribers < MinSubscribers {
		a.logger.Info("skipping small channel", zap.String("channel", channelID), zap.Int64("subscribers", ch.Subscribers))
		return nil, fmt.Errorf("%w: %d subscribers", ErrChannelTooSmall, ch.Subscribers)
	}

	videos, err := a.yt.Shorts(ctx, ch.UploadsPlaylist, 20)
	if err != nil {
		return nil, fmt.Errorf("fetch shorts: %w", err)
	}
	if len(videos) == 0 {
		return nil, ErrNoShorts
	}

	var views int64
	var seconds int
	for _, v := range videos {
		views += v.Views
		seconds += v.Duration
	}
	sort.SliceStable(videos, func(i, j int) bool { return videos[i].Views > videos[j].Views })
	titles := make([]string, 0, topTitles)
	for _, v := range videos[:min(topTitles, len(videos))] {
		titles = append(titles, v.Title)
	}

	insight := &ChannelInsight{
		ChannelID:           ch.ID,
		ChannelName:         orDefault(ch.Title, "Unknown"),
		SubscriberCount:     ch.Subscribers,
		AvgViewsPerShort:    views / int64(len(videos)),
		TopPerformingTitles: titles,
		AvgVideoLength:      seconds / len(videos),
		PostingFrequency:    "daily",
		Niche:               "general",
	}
	if insight.AvgVideoLength == 0 {
		insight.AvgVideoLength = defaultAvgLen
	}

	ex := a.extractPatterns(ctx, titles)
	insight.TitlePatterns = ex.TitlePatterns
	insight.HookTechniques = ex.HookTechniques
	if ex.Niche != "" {
		insight.Niche = ex.Niche
	}

	a.persist(ctx, insight)
	return insight, nil
}

type extracted struct {
	TitlePatterns  []string `json:"title_patterns"`
	HookTechniques []string `json:"hook_techniques"`
	Niche          string   `json:"niche"`
	AvgWordCount   float64  `json:"avg_word_count"`
}

// extractPatterns 失败时返回空结果，不影响频道分析
func (a *Analyzer) extractPatterns(ctx context.Context, titles []string) extracted {
	if a.caller == nil || len(titles) == 0 {
		return extracted{}
	}
	list, _ := json.MarshalIndent(titles, "", "  ")
	prompt := fmt.Sprintf(`Analyze these viral YouTube Shorts titles and extract reusable patterns:

TITLES:
%s

Extract:
1. Title patterns/formulas that could be reused
2. Hook techniques used
3. Common themes/niches
4. Word count patterns

Return JSON:
{
    "title_patterns": ["pattern with {placeholders}", ...],
    "hook_techniques": ["technique 1", ...],
    "niche": "main category",
    "avg_word_count": number
}

JSON ONLY.`, list)

	out, err := a.caller.Call(ctx, prompt, llm.CallOptions{
		Temperature: 0.7,
		MaxTokens:   extractMaxToken,
		Models:      a.models,
	})
	if err != nil {
		a.logger.Warn("pattern extraction failed", zap.Error(err))
		return extracted{}
	}
	var ex extracted
	if err := content.DecodeJSON(out, &ex); err != nil {
		a.logger.Warn("pattern extraction returned invalid json", zap.Error(err))
		return extracted{}
	}
	return ex
}

func (a *Analyzer) persist(ctx context.Context, in *ChannelInsight) {
	if a.store == nil {
		return
	}
	for kind, values := range map[string][]string{KindTitle: in.TitlePatterns, KindHook: in.HookTechniques} {
		if len(values) == 0 {
			continue
		}
		if err := a.store.SavePatterns(ctx, kind, patternSource+":"+in.ChannelID, values); err != nil {
			a.logger.Warn("save patterns failed", zap.String("kind", kind), zap.Error(err))
		}
	}
	if err := a.Refresh(ctx); err != nil {
		a.logger.Warn("refresh patterns failed", zap.Error(err))
	}
}

// Performance 我们自己视频的表现
type Performance struct {
	Category string
	Hook     string
	Views    int64
	Likes    int64
	Duration float64
}

// OurBest 自我学习结果
type OurBest struct {
	Categories []string `json:"our_best_categories,omitempty"`
	Hooks      []string `json:"our_best_hooks,omitempty"`
	AvgLength  float64  `json:"avg_best_length,omitempty"`
}

// LearnFromOurBest ranks videos by views + likes*10 and summarises the top
// five. Empty input yields the zero value. AvgLength averages only videos
// with a known duration and stays 0 when none has one.
func LearnFromOurBest(videos []Performance) OurBest {
	if len(videos) == 0 {
		return OurBest{}
	}
	ranked := append([]Performance(nil), videos...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Views+ranked[i].Likes*10 > ranked[j].Views+ranked[j].Likes*10
	})
	top := ranked[:min(5, len(ranked))]

	var out OurBest
	seen := map[string]bool{}
	var (
		total float64
		timed int
	)
	for _, v := range top {
		if v.Category != "" && !seen[v.Category] {
			seen[v.Category] = true
			out.Categories = append(out.Categories, v.Category)
		}
		if v.Hook != "" && len(out.Hooks) < 3 {
			out.Hooks = append(out.Hooks, v.Hook)
		}
		if v.Duration > 0 {
			total += v.Duration
			timed++
		}
	}
	if timed > 0 {
		out.AvgLength = total / float64(timed)
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
