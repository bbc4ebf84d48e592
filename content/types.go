package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
)

// VideoType 视频内容类型
type VideoType string

const (
	TypeWouldYouRather VideoType = "wyr"
	TypeScaryFacts     VideoType = "scary_facts"
	TypeMoneyFacts     VideoType = "money_facts"
	TypeAIQuotes       VideoType = "ai_quotes"
	TypeKids           VideoType = "kids"

	// TypeRandom 是伪类型：按权重随机选择一种真实类型
	TypeRandom VideoType = "random"
)

// TypeWeight 类型及其随机权重
type TypeWeight struct {
	Type   VideoType
	Weight float64
}

// TypeWeights 随机选择时各类型的权重，总和为 1
var TypeWeights = []TypeWeight{
	{TypeWouldYouRather, 0.30},
	{TypeScaryFacts, 0.25},
	{TypeMoneyFacts, 0.20},
	{TypeAIQuotes, 0.15},
	{TypeKids, 0.10},
}

// AllTypes 返回所有真实类型（不含 random）
func AllTypes() []VideoType {
	out := make([]VideoType, len(TypeWeights))
	for i, tw := range TypeWeights {
		out[i] = tw.Type
	}
	return out
}

// ParseVideoType 解析类型名，接受 random
func ParseVideoType(s string) (VideoType, error) {
	t := VideoType(strings.ToLower(strings.TrimSpace(s)))
	if t == TypeRandom {
		return t, nil
	}
	for _, tw := range TypeWeights {
		if tw.Type == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown video type %q", s)
}

// PickType 按 TypeWeights 加权随机选择；rng 为 nil 时使用全局随机源
func PickType(rng *rand.Rand) VideoType {
	var r float64
	if rng != nil {
		r = rng.Float64()
	} else {
		r = rand.Float64()
	}
	var acc float64
	for _, tw := range TypeWeights {
		acc += tw.Weight
		if r < acc {
			return tw.Type
		}
	}
	return TypeWeights[len(TypeWeights)-1].Type
}

// Resolve 把 random 替换为一个加权随机的真实类型
func (t VideoType) Resolve(rng *rand.Rand) VideoType {
	if t == TypeRandom || t == "" {
		return PickType(rng)
	}
	return t
}

// IsFact 报告该类型是否使用事实类模板渲染
func (t VideoType) IsFact() bool {
	return t == TypeScaryFacts || t == TypeMoneyFacts
}

// Topic 是 LLM 生成的一个病毒式选题
type Topic struct {
	Topic                 string   `json:"topic"`
	VideoType             string   `json:"video_type"`
	Hook                  string   `json:"hook"`
	Content               string   `json:"content"`
	CallToAction          string   `json:"call_to_action"`
	BrollKeywords         []string `json:"broll_keywords"`
	MusicMood             string   `json:"music_mood"`
	ViralityScore         Score    `json:"virality_score"`
	PsychologicalTriggers []string `json:"psychological_triggers"`
	WhyViral              string   `json:"why_viral"`
}

// topicTypeAliases 选题提示词里使用的单数类别名
var topicTypeAliases = map[string]VideoType{
	"scary_fact":       TypeScaryFacts,
	"money_fact":       TypeMoneyFacts,
	"ai_quote":         TypeAIQuotes,
	"quote":            TypeAIQuotes,
	"would_you_rather": TypeWouldYouRather,
	"kids_fact":        TypeKids,
}

// Type 把模型给出的 video_type 映射为真实类型；无法识别（如 life_hack）时返回 false
func (t Topic) Type() (VideoType, bool) {
	name := strings.ToLower(strings.TrimSpace(t.VideoType))
	if vt, ok := topicTypeAliases[name]; ok {
		return vt, true
	}
	vt, err := ParseVideoType(name)
	if err != nil || vt == TypeRandom {
		return "", false
	}
	return vt, true
}

// Narration 返回 hook 与正文拼接后的完整旁白
func (t Topic) Narration() string {
	return strings.TrimSpace(t.Hook + " " + t.Content)
}

// VideoContent 多类型生成器的输出
type VideoContent struct {
	Type            VideoType `json:"type"`
	Hook            string    `json:"hook"`
	MainText        string    `json:"main_text"`
	SecondaryText   string    `json:"secondary_text,omitempty"`
	VoiceoverScript string    `json:"voiceover_script"`
	BrollKeywords   []string  `json:"broll_keywords,omitempty"`
	PercentageA     Percent   `json:"percentage_a,omitempty"`
	MusicMood       string    `json:"music_mood,omitempty"`
}

// BrollPlan B-roll 关键词规划
type BrollPlan struct {
	Primary     string   `json:"primary"`
	Secondary   string   `json:"secondary"`
	Detail      string   `json:"detail"`
	Atmosphere  string   `json:"atmosphere"`
	Transition  string   `json:"transition"`
	SearchTerms []string `json:"search_terms"`
}

// DimensionScore 单个维度的评分
type DimensionScore struct {
	Score  Score  `json:"score"`
	Reason string `json:"reason"`
}

// ContentEvaluation 内容病毒潜力评估
type ContentEvaluation struct {
	ScrollStop   DimensionScore `json:"scroll_stop"`
	InfoValue    DimensionScore `json:"info_value"`
	Emotion      DimensionScore `json:"emotion"`
	Shareability DimensionScore `json:"shareability"`
	CommentBait  DimensionScore `json:"comment_bait"`
	Overall      Score          `json:"overall"`
	Verdict      string         `json:"verdict"` // VIRAL|GOOD|WEAK|TRASH
	Improvements []string       `json:"improvements"`
}

// VoiceoverScript 配音脚本
type VoiceoverScript struct {
	Script                   string   `json:"script"`
	WordCount                int      `json:"word_count"`
	EstimatedDurationSeconds Score    `json:"estimated_duration_seconds"`
	EmphasisWords            []string `json:"emphasis_words"`
	HookLine                 string   `json:"hook_line"`
	ClosingLine              string   `json:"closing_line"`
}

// ============================================================
// 宽松数值：模型常把数字写成 "8"、"62.5%" 或 62.5
// ============================================================

// Score 接受 JSON 数字或数字字符串
type Score float64

func (s *Score) UnmarshalJSON(b []byte) error {
	f, err := lenientNumber(b)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	*s = Score(f)
	return nil
}

// Percent 接受整数、小数或字符串，四舍五入为整数百分比
type Percent int

func (p *Percent) UnmarshalJSON(b []byte) error {
	f, err := lenientNumber(b)
	if err != nil {
		return fmt.Errorf("percent: %w", err)
	}
	*p = Percent(math.Round(f))
	return nil
}

// lenientNumber 解析数字、带引号的数字（可带 % 后缀）；null 与空字符串为 0
func lenientNumber(b []byte) (float64, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return 0, err
		}
		str = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "%"))
		if str == "" {
			return 0, nil
		}
		return strconv.ParseFloat(str, 64)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return 0, err
	}
	return f, nil
}
