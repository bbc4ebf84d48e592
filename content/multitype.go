package content

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/llm"
)

// typeInstructions 每种类型的生成指令
var typeInstructions = map[VideoType]string{
	TypeWouldYouRather: `Write a "Would You Rather" dilemma where both options are genuinely hard to choose. main_text is option A, secondary_text is option B, percentage_a is the share of people you expect to pick A (20-80).`,
	TypeScaryFacts:     "Write one unsettling but true fact. main_text is the fact, secondary_text names a credible source.",
	TypeMoneyFacts:     "Write one surprising, verifiable money or finance fact with a takeaway. main_text is the fact, secondary_text names a source.",
	TypeAIQuotes:       "Write an original, quotable line about ambition, discipline or resilience. main_text is the quote, secondary_text is the attribution.",
	TypeKids:           "Write a cheerful, safe fun fact for children aged 6-10. main_text is the fact, secondary_text is a playful follow-up question.",
}

// evergreen AI 不可用时各类型的兜底内容
var evergreen = map[VideoType][]VideoContent{
	TypeWouldYouRather: {
		{Hook: "This choice splits everyone", MainText: "Have unlimited money", SecondaryText: "Have unlimited time", PercentageA: 60, MusicMood: "fun",
			VoiceoverScript: "Would you rather have unlimited money... or unlimited time? Comment your pick."},
	},
	TypeScaryFacts: {
		{Hook: "You will never sleep the same", MainText: "Your brain keeps one hemisphere half-alert the first night in a new place.", SecondaryText: "Source: Current Biology, 2016", MusicMood: "mysterious",
			VoiceoverScript: "The first night in a new place... half your brain stays on guard. Scientists call it the first-night effect.", BrollKeywords: []string{"dark bedroom at night", "brain scan"}},
	},
	TypeMoneyFacts: {
		{Hook: "Banks hope you never learn this", MainText: "Investing 100 dollars a month from age 20 can outgrow 300 a month started at 40.", SecondaryText: "Compound interest at 7 percent", MusicMood: "energetic",
			VoiceoverScript: "Start at twenty with a hundred a month... and you can beat someone investing three times more from forty. That is compound interest.", BrollKeywords: []string{"coins stacking", "city skyline timelapse"}},
	},
	TypeAIQuotes: {
		{Hook: "Read this twice", MainText: "Discipline is choosing what you want most over what you want now.", SecondaryText: "ViralShorts", MusicMood: "chill",
			VoiceoverScript: "Discipline... is choosing what you want MOST over what you want NOW.", BrollKeywords: []string{"sunrise mountain", "calm ocean waves"}},
	},
	TypeKids: {
		{Hook: "Did you know this about octopuses", MainText: "An octopus has three hearts and blue blood!", SecondaryText: "How many hearts do you have?", MusicMood: "fun",
			VoiceoverScript: "An octopus has THREE hearts... and its blood is blue! How many hearts do you have?", BrollKeywords: []string{"octopus underwater", "coral reef"}},
	},
}

// ForType 为指定类型生成 VideoContent；random 先按权重解析。
// LLM 不可用或输出无法解析时返回该类型的兜底内容。
func (g *Generator) ForType(ctx context.Context, t VideoType) (*VideoContent, error) {
	t = t.Resolve(g.rng)
	instruction, ok := typeInstructions[t]
	if !ok {
		return nil, fmt.Errorf("unknown video type %q", t)
	}

	vc, err := g.generateForType(ctx, t, instruction)
	if err != nil {
		g.logger.Warn("type content generation failed, using evergreen content",
			zap.String("type", string(t)), zap.Error(err))
		return g.evergreenFor(t), nil
	}
	return vc, nil
}

func (g *Generator) generateForType(ctx context.Context, t VideoType, instruction string) (*VideoContent, error) {
	prompt, err := render(typeTemplate, TypeData{Type: t, Instruction: instruction})
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, g.boost(ctx, prompt), llm.CallOptions{
		Temperature: CreativeTemperature,
		MaxTokens:   600,
		NoCache:     true,
	})
	if err != nil {
		return nil, err
	}
	var vc VideoContent
	if err := DecodeJSON(out, &vc); err != nil {
		return nil, err
	}
	vc.Type = t
	vc.Hook = StripEmojis(vc.Hook)
	vc.MainText = StripEmojis(vc.MainText)
	vc.SecondaryText = StripEmojis(vc.SecondaryText)
	vc.VoiceoverScript = StripEmojis(vc.VoiceoverScript)
	vc.BrollKeywords = stripAll(vc.BrollKeywords)
	if vc.MainText == "" {
		return nil, fmt.Errorf("empty main_text")
	}
	if vc.VoiceoverScript == "" {
		vc.VoiceoverScript = vc.Hook + " " + vc.MainText
	}
	if t == TypeWouldYouRather && (vc.PercentageA <= 0 || vc.PercentageA >= 100) {
		vc.PercentageA = 60
	}
	return &vc, nil
}

func (g *Generator) evergreenFor(t VideoType) *VideoContent {
	pool := evergreen[t]
	var i int
	if g.rng != nil {
		i = g.rng.IntN(len(pool))
	} else {
		i = rand.IntN(len(pool))
	}
	vc := pool[i]
	vc.Type = t
	vc.BrollKeywords = append([]string(nil), vc.BrollKeywords...)
	return &vc
}
