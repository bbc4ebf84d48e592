package content

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrNoJSON 表示文本中找不到可解析的 JSON
var ErrNoJSON = errors.New("content: no JSON found in response")

const (
	// DefaultPhraseTarget 默认切分的短语数
	DefaultPhraseTarget = 4

	longSentenceRunes = 60
	mergeBelowRunes   = 40

	// MinPhraseDuration 每个短语片段的最短时长
	MinPhraseDuration = 2 * time.Second
)

// isEmoji 覆盖表情、象形符号、交通、旗帜、杂项符号与装饰符号，
// 以及 ZWJ 和变体选择符。CJK 等普通文字不受影响。
func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // emoticons, pictographs, transport, flags, supplemental
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2B55:
		return true
	case r >= 0x2300 && r <= 0x23FF: // misc technical (watch, play buttons)
		return true
	case r == 0x200D, r == 0xFE0F, r == 0xFE0E, r == 0x20E3, r == 0x3030, r == 0x24C2:
		return true
	case r >= 0xE0020 && r <= 0xE007F: // tag sequences
		return true
	}
	return false
}

// StripEmojis 移除无法渲染的 emoji 并去掉首尾空白
func StripEmojis(text string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, text))
}

var fencePattern = regexp.MustCompile("(?s)```(json)?\\s*(.*?)```")

// ExtractJSON 依次尝试 ```json 代码块、任意 ``` 代码块、最外层 {...} 或 [...]，
// 返回第一个合法的 JSON 片段。
func ExtractJSON(text string) (string, error) {
	var candidates []string
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		if m[1] == "json" {
			candidates = append(candidates, m[2])
		}
	}
	for _, m := range matches {
		if m[1] != "json" {
			candidates = append(candidates, m[2])
		}
	}
	candidates = append(candidates, outermost(text)...)
	candidates = append(candidates, text)

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c != "" && json.Valid([]byte(c)) {
			return c, nil
		}
	}
	return "", ErrNoJSON
}

// outermost 返回最外层对象与数组候选，起始位置靠前者优先
func outermost(text string) []string {
	span := func(open, close string) (int, string) {
		start := strings.Index(text, open)
		end := strings.LastIndex(text, close)
		if start == -1 || end <= start {
			return -1, ""
		}
		return start, text[start : end+1]
	}
	oi, obj := span("{", "}")
	ai, arr := span("[", "]")
	switch {
	case oi == -1 && ai == -1:
		return nil
	case oi == -1:
		return []string{arr}
	case ai == -1:
		return []string{obj}
	case ai < oi:
		return []string{arr, obj}
	default:
		return []string{obj, arr}
	}
}

// DecodeJSON 提取并解码 LLM 回复中的 JSON
func DecodeJSON(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// SplitPhrases 把旁白切分为适合逐句换 B-roll 的短语：
// 按 .!? 断句，超过 60 字符的句子再按逗号切分，
// 相邻短语在合并后不足 40 字符时合并，最多返回 target 个。
func SplitPhrases(content string, target int) []string {
	if target <= 0 {
		target = DefaultPhraseTarget
	}

	var phrases []string
	for _, s := range sentenceEnd.Split(content, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if utf8.RuneCountInString(s) > longSentenceRunes {
			for _, part := range strings.Split(s, ",") {
				if part = strings.TrimSpace(part); part != "" {
					phrases = append(phrases, part)
				}
			}
			continue
		}
		phrases = append(phrases, s)
	}

	var (
		merged []string
		buffer string
	)
	for _, p := range phrases {
		if utf8.RuneCountInString(buffer)+utf8.RuneCountInString(p) < mergeBelowRunes {
			if buffer == "" {
				buffer = p
			} else {
				buffer += " " + p
			}
			continue
		}
		if buffer != "" {
			merged = append(merged, buffer)
		}
		buffer = p
	}
	if buffer != "" {
		merged = append(merged, buffer)
	}

	if len(merged) > target {
		merged = merged[:target]
	}
	return merged
}

// PhraseDurations 按字符占比分配总时长，每段不少于 MinPhraseDuration
func PhraseDurations(phrases []string, total time.Duration) []time.Duration {
	out := make([]time.Duration, len(phrases))
	var chars int
	for _, p := range phrases {
		chars += utf8.RuneCountInString(p)
	}
	for i, p := range phrases {
		d := MinPhraseDuration
		if chars > 0 {
			share := float64(utf8.RuneCountInString(p)) / float64(chars)
			if v := time.Duration(share * float64(total)); v > d {
				d = v
			}
		}
		out[i] = d
	}
	return out
}

// Season 返回月份对应的季节描述，用于选题提示词
func Season(month time.Month) string {
	switch month {
	case time.December, time.January, time.February:
		return "winter - holiday themes, new year goals, cozy content"
	case time.March, time.April, time.May:
		return "spring - fresh starts, outdoor activities, allergies"
	case time.June, time.July, time.August:
		return "summer - vacation, heat, freedom, adventure"
	default:
		return "fall - back to school, Halloween approaching, cozy vibes"
	}
}

func stripAll(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = StripEmojis(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
