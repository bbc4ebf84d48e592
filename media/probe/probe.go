// Package probe reads media durations with ffprobe.
package probe

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/viralshorts/internal/command"
)

// Prober 封装 ffprobe
type Prober struct {
	bin    string
	runner command.Runner
}

// New 创建 Prober；bin 为空时使用 PATH 中的 ffprobe
func New(bin string, runner command.Runner) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{bin: bin, runner: runner}
}

// Duration 返回媒体文件时长
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	out, err := p.runner.Run(ctx, p.bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	return ParseSeconds(string(out))
}

// ParseSeconds 解析 ffprobe 输出的秒数（如 "12.345000"）
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("no duration in ffprobe output")
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if sec < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return time.Duration(sec * float64(time.Second)), nil
}
