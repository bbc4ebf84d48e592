package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/internal/command"
	"github.com/BaSui01/viralshorts/internal/metrics"
	"github.com/BaSui01/viralshorts/types"
)

// 输出规格
const (
	Width      = 1080
	Height     = 1920
	FPS        = 24
	VideoCodec = "libx264"
	AudioCodec = "aac"

	DefaultPreset      = "ultrafast"
	DefaultThreads     = 4
	DefaultMusicVolume = 0.12

	// brollBrightness 逐句片段与事实视频的 B-roll 亮度系数
	brollBrightness = 0.5
	quoteBrightness = 0.6
)

// Runner 执行 ffmpeg
type Runner = command.Runner

// Result 渲染结果
type Result struct {
	Path     string
	Duration time.Duration
	Elapsed  time.Duration
}

// Renderer 负责构建 ffmpeg 参数并执行
type Renderer struct {
	ffmpeg      string
	fontFile    string
	preset      string
	threads     int
	musicVolume float64
	tempDir     string

	runner    Runner
	collector *metrics.Collector
	logger    *zap.Logger
}

// New 创建 Renderer
func New(cfg config.RenderConfig, runner Runner, collector *metrics.Collector, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Renderer{
		ffmpeg:      cfg.FFmpegPath,
		fontFile:    cfg.FontFile,
		preset:      cfg.Preset,
		threads:     cfg.Threads,
		musicVolume: cfg.MusicVolume,
		tempDir:     cfg.TempDir,
		runner:      runner,
		collector:   collector,
		logger:      logger.With(zap.String("component", "render")),
	}
	if r.ffmpeg == "" {
		r.ffmpeg = "ffmpeg"
	}
	if r.preset == "" {
		r.preset = DefaultPreset
	}
	if r.threads <= 0 {
		r.threads = DefaultThreads
	}
	if r.musicVolume <= 0 {
		r.musicVolume = DefaultMusicVolume
	}
	return r
}

func (r *Renderer) run(ctx context.Context, args []string) error {
	if _, err := r.runner.Run(ctx, r.ffmpeg, args...); err != nil {
		return types.NewError(types.ErrRenderFailed, "ffmpeg failed").WithCause(err)
	}
	return nil
}

// finish 记录指标并包装结果
func (r *Renderer) finish(kind string, start time.Time, out string, d time.Duration, err error) (*Result, error) {
	elapsed := time.Since(start)
	if err != nil {
		r.collector.RecordRender(kind, "error", elapsed)
		r.logger.Error("render failed", zap.String("kind", kind), zap.String("output", out), zap.Error(err))
		return nil, err
	}
	r.collector.RecordRender(kind, "success", elapsed)
	r.logger.Info("render finished",
		zap.String("kind", kind),
		zap.String("output", out),
		zap.Duration("video_duration", d),
		zap.Duration("elapsed", elapsed))
	return &Result{Path: out, Duration: d, Elapsed: elapsed}, nil
}

func (r *Renderer) encodeArgs() []string {
	return []string{
		"-c:v", VideoCodec,
		"-preset", r.preset,
		"-threads", strconv.Itoa(r.threads),
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(FPS),
	}
}

func (r *Renderer) workDir() (string, error) {
	base := r.tempDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return os.MkdirTemp(base, "render-*")
}

func usable(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir() && st.Size() > 0
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// ============================================================
// 滤镜构建
// ============================================================

// textStyle 一组文字行的样式。Y < 0 表示整体垂直居中。
type textStyle struct {
	Size       int
	LineHeight int
	Color      string
	Y          int
	Shadow     int
	Enable     string
}

func (r *Renderer) drawText(text string, st textStyle, margin int) []string {
	lines := WrapText(text, charsPerLine(st.Size, margin))
	if len(lines) == 0 {
		return nil
	}
	y := st.Y
	if y < 0 {
		y = (Height - len(lines)*st.LineHeight) / 2
	}
	font := ""
	if r.fontFile != "" {
		font = "fontfile=" + EscapeDrawtext(r.fontFile) + ":"
	}
	enable := ""
	if st.Enable != "" {
		enable = ":enable=" + st.Enable
	}
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		out = append(out, fmt.Sprintf(
			"drawtext=%stext=%s:expansion=none:fontsize=%d:fontcolor=%s:shadowcolor=black@0.7:shadowx=%d:shadowy=%d:x=(w-text_w)/2:y=%d%s",
			font, EscapeDrawtext(line), st.Size, st.Color, st.Shadow, st.Shadow, y+i*st.LineHeight, enable))
	}
	return out
}

// between 生成 enable 表达式，逗号按 filtergraph 规则转义
func between(from, to time.Duration) string {
	return fmt.Sprintf(`between(t\,%s\,%s)`, seconds(from), seconds(to))
}

// fitFilter 缩放并裁切到竖屏画幅
func fitFilter() string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d",
		Width, Height, Width, Height, FPS)
}

func dimFilter(factor float64) string {
	f := strconv.FormatFloat(factor, 'f', 2, 64)
	return "colorchannelmixer=rr=" + f + ":gg=" + f + ":bb=" + f
}

func gradientSource(th Theme, d time.Duration) string {
	return fmt.Sprintf("gradients=s=%dx%d:r=%d:d=%s:c0=%s:c1=%s:x0=0:y0=0:x1=%d:y1=%d:nb_colors=2",
		Width, Height, FPS, seconds(d), th.Gradient[0], th.Gradient[1], Width, Height)
}

// chain 把滤镜串成 "[in]a,b,c[out]"，没有滤镜时使用 null
func chain(in string, filters []string, out string) string {
	if len(filters) == 0 {
		filters = []string{"null"}
	}
	return in + strings.Join(filters, ",") + out
}
