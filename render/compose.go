package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/types"
)

// DynamicInput 逐句 B-roll 视频
type DynamicInput struct {
	Segments  []Segment
	Voiceover string
	Music     string
	Output    string
}

// ComposeDynamic 渲染每个片段、拼接，再混入旁白和音乐
func (r *Renderer) ComposeDynamic(ctx context.Context, in DynamicInput) (*Result, error) {
	start := time.Now()
	if len(in.Segments) == 0 {
		return nil, types.NewInvalidRequestError("no segments to render")
	}
	if !usable(in.Voiceover) {
		return nil, types.NewError(types.ErrAssetMissing, "voiceover missing: "+in.Voiceover)
	}
	total, err := r.composeDynamic(ctx, in)
	return r.finish("dynamic", start, in.Output, total, err)
}

func (r *Renderer) composeDynamic(ctx context.Context, in DynamicInput) (time.Duration, error) {
	dir, err := r.workDir()
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(dir)

	var (
		files []string
		total time.Duration
	)
	for i, seg := range in.Segments {
		out := filepath.Join(dir, "seg_"+strconv.Itoa(i)+".mp4")
		if err := r.RenderSegment(ctx, seg, out); err != nil {
			return 0, fmt.Errorf("segment %d: %w", i, err)
		}
		r.logger.Debug("segment rendered", zap.Int("index", i), zap.Duration("duration", seg.Duration))
		files = append(files, out)
		total += seg.Duration
	}

	list, err := writeConcatList(dir, files)
	if err != nil {
		return 0, err
	}
	joined := filepath.Join(dir, "joined.mp4")
	if err := r.run(ctx, r.concatArgs(list, joined)); err != nil {
		return 0, fmt.Errorf("concat: %w", err)
	}

	if err := ensureDir(in.Output); err != nil {
		return 0, err
	}
	if err := r.run(ctx, r.mixArgs(joined, in.Voiceover, in.Music, total, in.Output)); err != nil {
		return 0, fmt.Errorf("mix audio: %w", err)
	}
	return total, nil
}

// FactInput 事实类视频（恐怖事实、金钱事实）
type FactInput struct {
	Hook              string
	Fact              string
	Source            string
	Voiceover         string
	VoiceoverDuration time.Duration
	Broll             []string
	Theme             Theme
	Output            string
}

// FactDurations 返回画面总长 max(vo+5s, 15s) 与成片长度 min(总长, vo+3s)
func FactDurations(vo time.Duration) (total, final time.Duration) {
	total = max(vo+5*time.Second, 15*time.Second)
	return total, min(total, vo+3*time.Second)
}

// QuoteDurations 返回画面总长 max(vo+3s, 12s) 与成片长度 min(总长, vo+3s)
func QuoteDurations(vo time.Duration) (total, final time.Duration) {
	total = max(vo+3*time.Second, 12*time.Second)
	return total, min(total, vo+3*time.Second)
}

const hookWindow = 3 * time.Second

func (r *Renderer) factArgs(in FactInput) ([]string, time.Duration) {
	total, final := FactDurations(in.VoiceoverDuration)

	var clips []string
	for _, c := range in.Broll {
		if usable(c) && len(clips) < 3 {
			clips = append(clips, c)
		}
	}

	args := []string{"-y"}
	var graph string
	if len(clips) > 0 {
		share := total / time.Duration(len(clips))
		for _, c := range clips {
			args = append(args, "-stream_loop", "-1", "-t", seconds(share), "-i", c)
		}
		if len(clips) == 1 {
			graph = "[0:v]" + fitFilter() + "[bg];"
		} else {
			concatIn := ""
			for i := range clips {
				graph += fmt.Sprintf("[%d:v]%s[b%d];", i, fitFilter(), i)
				concatIn += fmt.Sprintf("[b%d]", i)
			}
			graph += fmt.Sprintf("%sconcat=n=%d:v=1:a=0[bg];", concatIn, len(clips))
		}
	} else {
		args = append(args, "-f", "lavfi", "-i", gradientSource(in.Theme, total))
		graph = "[0:v]format=yuv420p[bg];"
	}
	voIndex := max(len(clips), 1)
	args = append(args, "-i", in.Voiceover)

	var filters []string
	if len(clips) > 0 {
		filters = append(filters, dimFilter(brollBrightness))
	}
	filters = append(filters, r.drawText(in.Hook, textStyle{
		Size: 48, LineHeight: 58, Color: accentOr(in.Theme), Y: 100, Shadow: 3,
		Enable: between(0, hookWindow),
	}, 80)...)
	filters = append(filters, r.drawText(in.Fact, textStyle{
		Size: 42, LineHeight: 52, Color: "white", Y: -1, Shadow: 3,
		Enable: fmt.Sprintf(`gte(t\,%s)`, seconds(hookWindow)),
	}, 80)...)
	if in.Source != "" {
		from := max(final-hookWindow, 0)
		filters = append(filters, r.drawText(in.Source, textStyle{
			Size: 32, LineHeight: 40, Color: "white", Y: Height - 200, Shadow: 3,
			Enable: between(from, final),
		}, 80)...)
	}
	graph += chain("[bg]", filters, "[v]")

	args = append(args,
		"-filter_complex", graph,
		"-map", "[v]",
		"-map", strconv.Itoa(voIndex)+":a",
		"-t", seconds(final),
	)
	args = append(args, r.encodeArgs()...)
	args = append(args, "-c:a", AudioCodec, "-b:a", "192k", "-movflags", "+faststart", in.Output)
	return args, final
}

// ComposeFact renders hook (first 3s), fact (from 3s) and source (last 3s)
// over up to three darkened B-roll clips or the theme gradient.
func (r *Renderer) ComposeFact(ctx context.Context, in FactInput) (*Result, error) {
	start := time.Now()
	if !usable(in.Voiceover) {
		return nil, types.NewError(types.ErrAssetMissing, "voiceover missing: "+in.Voiceover)
	}
	if in.VoiceoverDuration <= 0 {
		return nil, types.NewInvalidRequestError("voiceover duration must be positive")
	}
	if err := ensureDir(in.Output); err != nil {
		return nil, err
	}
	args, final := r.factArgs(in)
	return r.finish("fact", start, in.Output, final, r.run(ctx, args))
}

// QuoteInput 名言视频
type QuoteInput struct {
	Hook              string
	Quote             string
	Author            string
	Voiceover         string
	VoiceoverDuration time.Duration
	Broll             string
	Theme             Theme
	Output            string
}

const quoteHookWindow = 2 * time.Second

func (r *Renderer) quoteArgs(in QuoteInput) ([]string, time.Duration) {
	total, final := QuoteDurations(in.VoiceoverDuration)

	args := []string{"-y"}
	var filters []string
	if usable(in.Broll) {
		args = append(args, "-stream_loop", "-1", "-i", in.Broll)
		filters = append(filters, fitFilter(), dimFilter(quoteBrightness))
	} else {
		args = append(args, "-f", "lavfi", "-i", gradientSource(in.Theme, total))
		filters = append(filters, "format=yuv420p")
	}
	args = append(args, "-i", in.Voiceover)

	quote := "“" + in.Quote + "”"
	lines := WrapText(quote, charsPerLine(46, 100))
	filters = append(filters, r.drawText(quote, textStyle{
		Size: 46, LineHeight: 60, Color: "white", Y: -1, Shadow: 2,
	}, 100)...)
	if in.Author != "" {
		authorY := (Height-len(lines)*60)/2 + len(lines)*60 + 20
		filters = append(filters, r.drawText("- "+in.Author, textStyle{
			Size: 32, LineHeight: 40, Color: "0xc8c8c8", Y: authorY, Shadow: 2,
		}, 100)...)
	}
	filters = append(filters, r.drawText(in.Hook, textStyle{
		Size: 48, LineHeight: 58, Color: accentOr(in.Theme), Y: 50, Shadow: 3,
		Enable: between(0, quoteHookWindow),
	}, 80)...)

	args = append(args,
		"-filter_complex", chain("[0:v]", filters, "[v]"),
		"-map", "[v]",
		"-map", "1:a",
		"-t", seconds(final),
	)
	args = append(args, r.encodeArgs()...)
	args = append(args, "-c:a", AudioCodec, "-b:a", "192k", "-movflags", "+faststart", in.Output)
	return args, final
}

// ComposeQuote renders a centred quote with its author over a lightly
// darkened clip, with the hook on screen for the first two seconds.
func (r *Renderer) ComposeQuote(ctx context.Context, in QuoteInput) (*Result, error) {
	start := time.Now()
	if !usable(in.Voiceover) {
		return nil, types.NewError(types.ErrAssetMissing, "voiceover missing: "+in.Voiceover)
	}
	if in.VoiceoverDuration <= 0 {
		return nil, types.NewInvalidRequestError("voiceover duration must be positive")
	}
	if err := ensureDir(in.Output); err != nil {
		return nil, err
	}
	args, final := r.quoteArgs(in)
	return r.finish("quote", start, in.Output, final, r.run(ctx, args))
}

func accentOr(th Theme) string {
	if th.Accent == "" {
		return "white"
	}
	return th.Accent
}
