package content

import (
	"strings"
	"text/template"
)

// TrendingThemes 选题提示词中的常青热点
const TrendingThemes = "AI technology, economic uncertainty, self-improvement, mental health awareness, conspiracy theories, financial tips"

// TopicsData 选题模板参数
type TopicsData struct {
	Date           string
	DayOfWeek      string
	Season         string
	TrendingThemes string
	Count          int
}

var topicsTemplate = template.Must(template.New("topics").Parse(`You are the lead strategist of a YouTube Shorts studio whose videos have reached billions of views, and you know the persuasion research behind why people share.

Task: generate video ideas that will spread on YouTube Shorts.

CONTEXT
- Date: {{.Date}}
- Day: {{.DayOfWeek}}
- Season: {{.Season}}
- Trending themes: {{.TrendingThemes}}

PSYCHOLOGICAL TRIGGERS (use 2-3 per idea): curiosity gap, controversy, fear/threat, social proof, scarcity, identity, emotional resonance, pattern interrupt.

B-ROLL KEYWORDS must be specific ("neon city lights at night", not "abstract"), visually dynamic, emotionally evocative and findable on Pexels or Pixabay.

RULES
1. No emojis in any field.
2. The hook must create curiosity within 2 seconds.
3. Content must surprise, not just list trivia.
4. Include an actionable insight or revelation.

Generate {{.Count}} ideas. Each idea is an object:
{
  "topic": "2-4 word topic name",
  "video_type": "scary_fact|money_fact|psychology_fact|life_hack|mind_blow",
  "hook": "7-10 word attention grabber",
  "content": "60-100 words: a shocking claim, the evidence, what it means for the viewer",
  "call_to_action": "comment prompt that drives engagement",
  "broll_keywords": ["visual 1", "visual 2", "visual 3", "visual 4"],
  "music_mood": "suspense|dramatic|inspirational|energetic|emotional",
  "virality_score": 1-10,
  "psychological_triggers": ["trigger1", "trigger2"],
  "why_viral": "one sentence on why it will spread"
}

Return a JSON array of {{.Count}} objects and nothing else.`))

// EvaluationData 内容评估模板参数
type EvaluationData struct {
	Hook      string
	Content   string
	VideoType string
}

var evaluationTemplate = template.Must(template.New("evaluation").Parse(`You have studied millions of viral Shorts and know what the algorithm rewards.

Evaluate this video for viral potential:

HOOK: "{{.Hook}}"
CONTENT: "{{.Content}}"
TYPE: {{.VideoType}}

Score each dimension 1-10 with a short reason:
1. scroll_stop: does the first half second stop the scroll?
2. info_value: does the viewer learn something useful or surprising?
3. emotion: does it trigger fear, anger, joy, surprise or awe?
4. shareability: would someone send it to a friend?
5. comment_bait: does it invite an opinion without being offensive?

Return JSON:
{
  "scroll_stop": {"score": 1-10, "reason": "why"},
  "info_value": {"score": 1-10, "reason": "why"},
  "emotion": {"score": 1-10, "reason": "why"},
  "shareability": {"score": 1-10, "reason": "why"},
  "comment_bait": {"score": 1-10, "reason": "why"},
  "overall": 1-10,
  "verdict": "VIRAL|GOOD|WEAK|TRASH",
  "improvements": ["improvement 1", "improvement 2"]
}`))

// BrollData B-roll 关键词模板参数
type BrollData struct {
	Content string
	Mood    string
}

var brollTemplate = template.Must(template.New("broll").Parse(`You are a documentary video editor. Suggest stock footage that strengthens the emotion, illustrates the ideas and keeps attention.

CONTENT: "{{.Content}}"
MOOD: {{.Mood}}

Avoid generic terms like "abstract", "motion" or "colorful". Good examples: "dramatic storm clouds time lapse", "person looking worried close up", "money falling slow motion".

Return JSON with exactly 5 searchable search terms:
{
  "primary": "main visual",
  "secondary": "supporting visual",
  "detail": "close-up shot",
  "atmosphere": "mood-setting background",
  "transition": "visual for transitions",
  "search_terms": ["term 1", "term 2", "term 3", "term 4", "term 5"]
}`))

// VoiceoverData 配音脚本模板参数
type VoiceoverData struct {
	Content string
}

var voiceoverTemplate = template.Must(template.New("voiceover").Parse(`You coach narrators for short-form video. Write a voiceover script that hooks in the first second, builds curiosity, pays off, and ends with an engagement prompt.

CONTENT TO ADAPT: "{{.Content}}"
TARGET: 15-30 seconds (about 50-80 words)

PACING
- Sentences of 5-10 words
- Pauses written as "..."
- Emphasis words in CAPS
- No filler words

Return JSON:
{
  "script": "complete script",
  "word_count": 0,
  "estimated_duration_seconds": 0,
  "emphasis_words": ["WORD1", "WORD2"],
  "hook_line": "first line",
  "closing_line": "last line"
}`))

// PhraseKeywordsData 逐句 B-roll 模板参数
type PhraseKeywordsData struct {
	Phrases []string
}

var phraseKeywordsTemplate = template.Must(template.New("phrase_keywords").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(`You are a video editor. For each phrase suggest ONE specific B-roll search keyword.

Phrases:
{{range $i, $p := .Phrases}}{{inc $i}}. {{$p}}
{{end}}
Rules:
- Specific and searchable ("person looking at phone", not "technology")
- Match the emotion of the phrase

Return ONLY a JSON array with one keyword per phrase.`))

// TypeData 多类型内容模板参数
type TypeData struct {
	Type        VideoType
	Instruction string
}

var typeTemplate = template.Must(template.New("video_type").Parse(`You write short-form video scripts. {{.Instruction}}

No emojis. Keep main_text under 40 words so it fits on screen.

Return JSON:
{
  "hook": "5-8 word opener shown in the first seconds",
  "main_text": "the on-screen text",
  "secondary_text": "source, author or second option",
  "voiceover_script": "20-60 words read aloud",
  "broll_keywords": ["visual 1", "visual 2"],
  "music_mood": "dramatic|mysterious|fun|chill|energetic",
  "percentage_a": 0
}`))

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
