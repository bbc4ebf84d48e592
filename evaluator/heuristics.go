package evaluator

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Weights used by ScoreScrollStopPower. The base plus every bonus sums to 10.
const (
	scrollBase          = 2.5
	scrollNumber        = 1.5 // "92%", "3 seconds"
	scrollInterrupt     = 1.5 // opens with STOP / WAIT / NEVER ...
	scrollQuestion      = 1.0
	scrollDirectAddress = 1.0 // "you", "your"
	scrollLength        = 1.0 // 5-10 words
	scrollPowerWord     = 1.0
	scrollCaps          = 0.5 // at least one fully capitalised word
	scrollLongPenalty   = 1.5 // more than 14 words
)

var (
	interruptOpeners = []string{"stop", "wait", "hold up", "never", "don't", "do not", "warning", "this is why"}
	powerWords       = []string{"secret", "shocking", "truth", "nobody", "mistake", "hidden", "banned", "dangerous", "illegal", "insane", "never"}
	curiosityWords   = []string{"why", "how", "what happens", "secret", "truth", "nobody", "actually"}
	commentPrompts   = []string{"comment", "would you", "which one", "tell me", "do you agree", "let me know", "a or b", "your answer"}

	digitPattern = regexp.MustCompile(`\d`)
	wordPattern  = regexp.MustCompile(`[\p{L}\p{N}'%]+`)
)

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasCapsWord(words []string) bool {
	for _, w := range words {
		letters := 0
		upper := true
		for _, r := range w {
			if unicode.IsLetter(r) {
				letters++
				if !unicode.IsUpper(r) {
					upper = false
				}
			}
		}
		if letters >= 3 && upper {
			return true
		}
	}
	return false
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// ScoreScrollStopPower rates how likely a hook stops the scroll, 0-10.
func ScoreScrollStopPower(hook string) float64 {
	hook = strings.TrimSpace(hook)
	if hook == "" {
		return 0
	}
	lower := strings.ToLower(hook)
	words := wordPattern.FindAllString(hook, -1)

	score := scrollBase
	if digitPattern.MatchString(hook) {
		score += scrollNumber
	}
	for _, op := range interruptOpeners {
		if strings.HasPrefix(lower, op) {
			score += scrollInterrupt
			break
		}
	}
	if strings.Contains(hook, "?") {
		score += scrollQuestion
	}
	for _, w := range words {
		lw := strings.ToLower(w)
		if lw == "you" || lw == "your" || lw == "you're" {
			score += scrollDirectAddress
			break
		}
	}
	switch n := len(words); {
	case n >= 5 && n <= 10:
		score += scrollLength
	case n > 14:
		score -= scrollLongPenalty
	}
	if containsAny(lower, powerWords) {
		score += scrollPowerWord
	}
	if hasCapsWord(words) {
		score += scrollCaps
	}
	return round1(math.Max(0, math.Min(10, score)))
}

// PredictCTR estimates click-through rate (0-1) from title and hook. The
// baseline of 2% is a typical Shorts feed CTR; the hook contributes up to 3
// points through its scroll-stop score.
func PredictCTR(title, hook string) float64 {
	title = strings.TrimSpace(title)
	lower := strings.ToLower(title)
	n := len([]rune(title))

	ctr := 0.02
	if digitPattern.MatchString(title) {
		ctr += 0.015
	}
	if n >= 20 && n <= 60 {
		ctr += 0.01
	} else if n > 100 {
		ctr -= 0.01
	}
	if strings.Contains(title, "?") {
		ctr += 0.01
	}
	if containsAny(lower, curiosityWords) {
		ctr += 0.01
	}
	ctr += ScoreScrollStopPower(hook) / 10 * 0.03
	return math.Round(math.Max(0, math.Min(1, ctr))*10000) / 10000
}

// Signals are algorithm-facing estimates for a narration.
type Signals struct {
	WordCount             int     `json:"word_count"`
	EstimatedWatchSeconds float64 `json:"estimated_watch_seconds"`
	LoopScore             float64 `json:"loop_score"`
	CommentBait           float64 `json:"comment_bait"`
	InOptimalRange        bool    `json:"in_optimal_range"`
}

// WordsPerSecond is the narration pace used for watch-time estimates (150 wpm).
const WordsPerSecond = 2.5

// AlgorithmSignals scores a narration on watch time, loop-ability and
// comment bait.
//
// Loop score: 4 when the last sentence repeats a word of at least four
// letters from the first, 3 for an open ending ("..." or "?"), 3 for a length
// within the 15-25s sweet spot. Comment bait: 4 for a closing question,
// 2 per comment prompt (max 4), 2 for a direct "you".
func AlgorithmSignals(narration string) Signals {
	words := wordPattern.FindAllString(narration, -1)
	s := Signals{WordCount: len(words)}
	if len(words) == 0 {
		return s
	}
	s.EstimatedWatchSeconds = round1(float64(len(words)) / WordsPerSecond)
	s.InOptimalRange = s.EstimatedWatchSeconds >= 15 && s.EstimatedWatchSeconds <= 25

	trimmed := strings.TrimSpace(narration)
	lower := strings.ToLower(trimmed)

	sentences := splitSentences(trimmed)
	if len(sentences) > 1 {
		first := keyWords(sentences[0])
		for w := range keyWords(sentences[len(sentences)-1]) {
			if first[w] {
				s.LoopScore += 4
				break
			}
		}
	}
	if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, "?") {
		s.LoopScore += 3
	}
	if s.InOptimalRange {
		s.LoopScore += 3
	}

	if strings.HasSuffix(trimmed, "?") {
		s.CommentBait += 4
	}
	prompts := 0
	for _, p := range commentPrompts {
		if strings.Contains(lower, p) {
			prompts++
		}
	}
	s.CommentBait += math.Min(4, float64(prompts*2))
	for _, w := range words {
		if strings.EqualFold(w, "you") {
			s.CommentBait += 2
			break
		}
	}
	return s
}

func splitSentences(text string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '!' || r == '?' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func keyWords(sentence string) map[string]bool {
	m := map[string]bool{}
	for _, w := range wordPattern.FindAllString(sentence, -1) {
		if len([]rune(w)) >= 4 {
			m[strings.ToLower(w)] = true
		}
	}
	return m
}
