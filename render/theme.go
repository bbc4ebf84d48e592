package render

import (
	"math/rand/v2"
	"strings"

	"github.com/BaSui01/viralshorts/content"
)

// Theme 背景渐变与强调色（ffmpeg 颜色语法 0xRRGGBB）
type Theme struct {
	Name     string
	Gradient [2]string
	Accent   string
}

// Themes 可选主题
var Themes = []Theme{
	{Name: "midnight", Gradient: [2]string{"0x0f0c29", "0x302b63"}, Accent: "0x8e9eff"},
	{Name: "sunset_gold", Gradient: [2]string{"0xf12711", "0xf5af19"}, Accent: "0xffd700"},
	{Name: "ocean", Gradient: [2]string{"0x1a2980", "0x26d0ce"}, Accent: "0x7fdbff"},
	{Name: "neon", Gradient: [2]string{"0x41295a", "0x2f0743"}, Accent: "0xff00cc"},
	{Name: "forest", Gradient: [2]string{"0x134e5e", "0x71b280"}, Accent: "0xb8f5a0"},
	{Name: "crimson", Gradient: [2]string{"0x3a0000", "0x8e0e00"}, Accent: "0xff5252"},
}

// ThemeByName 按名称查找主题
func ThemeByName(name string) (Theme, bool) {
	for _, t := range Themes {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}

// PickTheme 随机选择主题
func PickTheme(rng *rand.Rand) Theme {
	if rng == nil {
		return Themes[rand.IntN(len(Themes))]
	}
	return Themes[rng.IntN(len(Themes))]
}

// ThemeFor 恐怖事实优先夜色主题，金钱事实优先金色主题，其他类型随机
func ThemeFor(t content.VideoType, rng *rand.Rand) Theme {
	var want []string
	switch t {
	case content.TypeScaryFacts:
		want = []string{"night"}
	case content.TypeMoneyFacts:
		want = []string{"gold", "sunset"}
	}
	for _, th := range Themes {
		for _, w := range want {
			if strings.Contains(th.Name, w) {
				return th
			}
		}
	}
	return PickTheme(rng)
}
