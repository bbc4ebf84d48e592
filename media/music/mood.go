package music

import "strings"

// Mood 背景音乐情绪
type Mood string

const (
	MoodFun        Mood = "fun"
	MoodDramatic   Mood = "dramatic"
	MoodMysterious Mood = "mysterious"
	MoodEnergetic  Mood = "energetic"
	MoodChill      Mood = "chill"
	MoodDefault    Mood = "default"
)

// moodTags 情绪到 Jamendo/Pixabay 标签的映射
var moodTags = map[Mood][]string{
	MoodFun:        {"happy", "upbeat", "playful"},
	MoodDramatic:   {"epic", "cinematic", "dramatic"},
	MoodMysterious: {"ambient", "dark", "atmospheric"},
	MoodEnergetic:  {"energetic", "electronic", "dance"},
	MoodChill:      {"chill", "ambient", "calm"},
	MoodDefault:    {"pop", "electronic", "ambient"},
}

// Tags 返回情绪对应的标签，未知情绪使用 default
func Tags(m Mood) []string {
	if tags, ok := moodTags[Mood(strings.ToLower(string(m)))]; ok {
		return tags
	}
	return moodTags[MoodDefault]
}

// 按顺序匹配，先命中的规则生效
var moodRules = []struct {
	mood  Mood
	words []string
}{
	{MoodEnergetic, []string{"money", "rich", "million", "billion", "wealthy"}},
	{MoodDramatic, []string{"die", "death", "never", "forever", "scary"}},
	{MoodFun, []string{"super", "power", "fly", "invisible", "magic"}},
	{MoodChill, []string{"love", "relationship", "friend", "family"}},
}

// MoodForText picks a mood from the two options of a question by substring
// match. Text matching no rule is "fun".
func MoodForText(a, b string) Mood {
	text := strings.ToLower(a + " " + b)
	for _, r := range moodRules {
		for _, w := range r.words {
			if strings.Contains(text, w) {
				return r.mood
			}
		}
	}
	return MoodFun
}
