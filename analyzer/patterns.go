package analyzer

import "slices"

// 存储中的模式类别
const (
	KindTitle      = "title_formulas"
	KindHook       = "hook_techniques"
	KindEngagement = "engagement_tactics"
)

// Range 闭区间
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// OptimalMetrics 经验最优参数
type OptimalMetrics struct {
	VideoLengthSeconds Range `json:"video_length_seconds"`
	HookLengthSeconds  Range `json:"hook_length_seconds"`
	PhrasesCount       Range `json:"phrases_count"`
	WordsPerPhrase     Range `json:"words_per_phrase"`
}

// Patterns 病毒模式集合
type Patterns struct {
	TitleFormulas     []string       `json:"title_formulas"`
	HookTechniques    []string       `json:"hook_techniques"`
	EngagementTactics []string       `json:"engagement_tactics"`
	Optimal           OptimalMetrics `json:"optimal_metrics"`
}

// ProvenPatterns returns a fresh copy of the hand-researched patterns.
func ProvenPatterns() Patterns {
	return Patterns{
		TitleFormulas: []string{
			"{Number}% of people can't do this",
			"This {thing} will blow your mind",
			"Watch till the end for the reveal",
			"Only {type} people understand this",
			"What happens if you {action}?",
			"The truth about {topic} no one tells you",
			"I tested {claim} and here's what happened",
			"You've been doing {action} wrong",
			"Why {thing} is {adjective}er than you think",
			"This {number} second trick changes everything",
		},
		HookTechniques: []string{
			"Pattern interrupt (STOP, WAIT, HOLD UP)",
			"Question opener (Did you know...?)",
			"Controversy hook (Everyone thinks X but actually Y)",
			"Curiosity gap (What I'm about to show you...)",
			"Challenge hook (Try this and see if you can...)",
			"Urgency hook (Before this gets taken down...)",
			"Social proof (Millions of people don't know this)",
			"Personal story (I just discovered something...)",
		},
		EngagementTactics: []string{
			"End with question forcing comment",
			"Ask for prediction before reveal",
			"Create poll-like choices (A or B?)",
			"Promise part 2 for followers",
			"Time-limited exclusive content",
			"Save for later CTA",
			"Share with someone who needs this",
		},
		Optimal: OptimalMetrics{
			VideoLengthSeconds: Range{15, 25},
			HookLengthSeconds:  Range{1, 3},
			PhrasesCount:       Range{3, 5},
			WordsPerPhrase:     Range{8, 15},
		},
	}
}

// Merge 追加已保存的模式，跳过重复项；saved 以类别为 key
func (p Patterns) Merge(saved map[string][]string) Patterns {
	p.TitleFormulas = appendNew(p.TitleFormulas, saved[KindTitle])
	p.HookTechniques = appendNew(p.HookTechniques, saved[KindHook])
	p.EngagementTactics = appendNew(p.EngagementTactics, saved[KindEngagement])
	return p
}

func appendNew(dst, items []string) []string {
	out := slices.Clone(dst)
	for _, it := range items {
		if it != "" && !slices.Contains(out, it) {
			out = append(out, it)
		}
	}
	return out
}
