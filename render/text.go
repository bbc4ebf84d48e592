package render

import (
	"strings"
	"unicode/utf8"
)

// WrapText 按字符数贪心折行，单个超长单词独占一行
func WrapText(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return []string{strings.Join(words, " ")}
	}
	var (
		lines []string
		cur   strings.Builder
		n     int
	)
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		if n > 0 && n+1+wl > maxChars {
			lines = append(lines, cur.String())
			cur.Reset()
			n = 0
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(w)
		n += wl
	}
	if n > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// charsPerLine 估算给定字号下一行可容纳的字符数（平均字宽约 0.55 倍字号）
func charsPerLine(fontSize, margin int) int {
	return max(int(float64(Width-margin)/(0.55*float64(fontSize))), 8)
}

// 第一层：drawtext 选项值转义；第二层：filtergraph 转义
var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// EscapeDrawtext escapes s for use as a drawtext option value inside a
// -filter_complex argument. Newlines become spaces.
func EscapeDrawtext(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	return graphEscaper.Replace(optionEscaper.Replace(s))
}
