package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BaSui01/viralshorts/types"
)

// Segment 一句旁白对应的画面
type Segment struct {
	Text     string
	Duration time.Duration
	Broll    string
	Theme    Theme
}

var phraseStyle = textStyle{Size: 52, LineHeight: 70, Color: "white", Y: -1, Shadow: 2}

// segmentArgs 有 B-roll 时循环、裁切并压暗；否则使用主题渐变
func (r *Renderer) segmentArgs(seg Segment, out string) []string {
	args := []string{"-y"}
	var filters []string
	if usable(seg.Broll) {
		args = append(args, "-stream_loop", "-1", "-i", seg.Broll)
		filters = append(filters, fitFilter(), dimFilter(brollBrightness))
	} else {
		args = append(args, "-f", "lavfi", "-i", gradientSource(seg.Theme, seg.Duration))
		filters = append(filters, "format=yuv420p")
	}
	filters = append(filters, r.drawText(seg.Text, phraseStyle, 80)...)

	args = append(args,
		"-filter_complex", chain("[0:v]", filters, "[v]"),
		"-map", "[v]",
		"-an",
		"-t", seconds(seg.Duration),
	)
	args = append(args, r.encodeArgs()...)
	return append(args, out)
}

// RenderSegment 渲染单个片段（无音频）
func (r *Renderer) RenderSegment(ctx context.Context, seg Segment, out string) error {
	if seg.Duration <= 0 {
		return types.NewInvalidRequestError("segment duration must be positive")
	}
	if err := ensureDir(out); err != nil {
		return err
	}
	return r.run(ctx, r.segmentArgs(seg, out))
}

// writeConcatList 写入 concat demuxer 列表文件
func writeConcatList(dir string, files []string) (string, error) {
	var b strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	list := filepath.Join(dir, "concat.txt")
	if err := os.WriteFile(list, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return list, nil
}

func (r *Renderer) concatArgs(list, out string) []string {
	return []string{"-y", "-f", "concat", "-safe", "0", "-i", list, "-c", "copy", out}
}

// mixArgs 视频流直接复制；旁白补静音，音乐循环并降低音量，统一裁到视频长度
func (r *Renderer) mixArgs(video, voiceover, music string, total time.Duration, out string) []string {
	args := []string{"-y", "-i", video, "-i", voiceover}
	graph := "[1:a]apad[a]"
	if usable(music) {
		args = append(args, "-stream_loop", "-1", "-i", music)
		graph = fmt.Sprintf("[1:a]apad[vo];[2:a]volume=%.3f[bg];[vo][bg]amix=inputs=2:duration=first:normalize=0[a]", r.musicVolume)
	}
	return append(args,
		"-filter_complex", graph,
		"-map", "0:v",
		"-map", "[a]",
		"-c:v", "copy",
		"-c:a", AudioCodec,
		"-b:a", "192k",
		"-t", seconds(total),
		"-movflags", "+faststart",
		out,
	)
}
