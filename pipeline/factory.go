package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/content"
	"github.com/BaSui01/viralshorts/internal/ctxkeys"
	"github.com/BaSui01/viralshorts/internal/metrics"
	"github.com/BaSui01/viralshorts/internal/objectstore"
	"github.com/BaSui01/viralshorts/internal/telemetry"
	"github.com/BaSui01/viralshorts/llm/speech"
	"github.com/BaSui01/viralshorts/media/music"
	"github.com/BaSui01/viralshorts/render"
	"github.com/BaSui01/viralshorts/store"
	"github.com/BaSui01/viralshorts/types"
	"github.com/BaSui01/viralshorts/upload"
)

// ============================================================
// 依赖接口
// ============================================================

// Writer 生成内容
type Writer interface {
	Topics(ctx context.Context, count int) ([]content.Topic, error)
	ForType(ctx context.Context, t content.VideoType) (*content.VideoContent, error)
	PhraseKeywords(ctx context.Context, phrases []string) []string
}

// BrollFetcher 按关键词获取 B-roll，失败的位置为空字符串
type BrollFetcher interface {
	FetchAll(ctx context.Context, keywords []string) ([]string, error)
}

// MusicSource 按情绪获取背景音乐
type MusicSource interface {
	Get(ctx context.Context, mood music.Mood) (string, error)
}

// Prober 读取媒体时长
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Composer 渲染成片
type Composer interface {
	ComposeDynamic(ctx context.Context, in render.DynamicInput) (*render.Result, error)
	ComposeFact(ctx context.Context, in render.FactInput) (*render.Result, error)
	ComposeQuote(ctx context.Context, in render.QuoteInput) (*render.Result, error)
}

// Uploader 发布到视频平台
type Uploader interface {
	Name() string
	Upload(ctx context.Context, path string, meta upload.Metadata) (*upload.Video, error)
}

// VideoRepository 持久化视频
type VideoRepository interface {
	CreateVideo(ctx context.Context, v *store.Video) error
	MarkUploaded(ctx context.Context, id, platform, platformID, url string) error
	SetArchiveURL(ctx context.Context, id, url string) error
}

// Deps Factory 的依赖。Archiver、Uploader、Events、Metrics 可以为空。
type Deps struct {
	Writer    Writer
	Broll     BrollFetcher
	Music     MusicSource
	Voice     speech.Synthesizer
	Prober    Prober
	Composer  Composer
	Videos    VideoRepository
	Archiver  objectstore.Archiver
	Uploader  Uploader
	Enhancers []Enhancer
	Events    *Bus
	Metrics   *metrics.Collector
}

// FactoryConfig 生产参数
type FactoryConfig struct {
	OutputDir    string
	TempDir      string
	PhraseTarget int
	// MaxAttempts 内容被拒绝后的最大生成次数
	MaxAttempts int
}

// Request 单个视频的生产请求
type Request struct {
	JobID   string
	Type    content.VideoType
	Dynamic bool
	Upload  bool
}

// ============================================================
// Factory
// ============================================================

// Factory 按固定阶段生产单个视频
type Factory struct {
	deps   Deps
	cfg    FactoryConfig
	rng    *rand.Rand
	logger *zap.Logger
}

// NewFactory 创建 Factory
func NewFactory(deps Deps, cfg FactoryConfig, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PhraseTarget <= 0 {
		cfg.PhraseTarget = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Factory{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "factory")),
	}
}

// WithRand 固定主题与类型选择的随机源
func (f *Factory) WithRand(r *rand.Rand) *Factory {
	f.rng = r
	return f
}

// Enhancers 已启用的增强器
func (f *Factory) Enhancers() []Enhancer { return f.deps.Enhancers }

func (f *Factory) emit(e Event) { f.deps.Events.Publish(e) }

// Produce 生产一个视频：内容 -> 素材 -> 配音 -> 渲染 -> 归档 -> 持久化 -> 上传
func (f *Factory) Produce(ctx context.Context, req Request) (*store.Video, error) {
	d := &Draft{
		ID:      uuid.NewString(),
		JobID:   req.JobID,
		Type:    req.Type.Resolve(f.rng),
		Dynamic: req.Dynamic,
	}
	log := f.logger.With(zap.String("job_id", d.JobID), zap.String("video_id", d.ID))

	ctx, span := telemetry.StartSpan(ctx, "pipeline.produce",
		attribute.String("video.id", d.ID),
		attribute.String("video.type", string(d.Type)),
	)
	v, err := f.produce(ctx, d, req.Upload, log)
	telemetry.EndSpan(span, err)
	return v, err
}

func (f *Factory) produce(ctx context.Context, d *Draft, publish bool, log *zap.Logger) (*store.Video, error) {
	defer func() {
		if d.Voiceover != "" {
			_ = os.Remove(d.Voiceover)
		}
	}()

	if err := f.enhance(ctx, d, PhasePrepare); err != nil {
		return nil, err
	}
	if d.Boost != "" {
		ctx = ctxkeys.WithPromptBoost(ctx, d.Boost)
	}

	for attempt := 1; ; attempt++ {
		if err := f.stage(ctx, d, "content", f.generate); err != nil {
			return nil, err
		}
		err := f.enhance(ctx, d, PhaseContent)
		if err == nil {
			break
		}
		f.emit(Event{Type: EventVideoRejected, JobID: d.JobID, VideoID: d.ID, Message: err.Error()})
		log.Info("content rejected", zap.Int("attempt", attempt), zap.Error(err))
		if attempt >= f.cfg.MaxAttempts {
			return nil, types.NewError(types.ErrContentRejected,
				fmt.Sprintf("content rejected after %d attempts", attempt)).WithCause(err)
		}
		d.resetContent()
	}

	stages := []struct {
		name string
		fn   func(context.Context, *Draft) error
	}{
		{"phrases", f.phrases},
		{"keywords", f.keywords},
		{"broll", f.broll},
		{"voiceover", f.voiceover},
		{"durations", f.durations},
		{"music", f.music},
		{"render", f.render},
	}
	for _, s := range stages {
		if err := f.stage(ctx, d, s.name, s.fn); err != nil {
			return nil, err
		}
	}
	if err := f.enhance(ctx, d, PhaseRendered); err != nil {
		log.Warn("rendered-phase rejection ignored", zap.Error(err))
	}
	d.metadata()

	v := d.record(store.VideoRendered)
	if f.deps.Archiver != nil {
		_ = f.stage(ctx, d, "archive", func(ctx context.Context, d *Draft) error {
			url, err := f.deps.Archiver.Archive(ctx, d.Output)
			if err != nil {
				log.Warn("archive failed", zap.Error(err))
				return nil
			}
			v.ArchiveURL = url
			return nil
		})
	}

	if err := f.stage(ctx, d, "persist", func(ctx context.Context, _ *Draft) error {
		return f.deps.Videos.CreateVideo(ctx, v)
	}); err != nil {
		return nil, err
	}

	if publish && f.deps.Uploader != nil {
		_ = f.stage(ctx, d, "upload", func(ctx context.Context, d *Draft) error {
			res, err := f.deps.Uploader.Upload(ctx, d.Output, upload.Metadata{
				Title:       d.Title,
				Description: d.Description,
				Tags:        d.Tags,
			})
			if err != nil {
				log.Warn("upload failed", zap.String("platform", f.deps.Uploader.Name()), zap.Error(err))
				f.emit(Event{Type: EventStage, JobID: d.JobID, VideoID: d.ID, Stage: "upload", Message: "upload failed: " + err.Error()})
				return nil
			}
			if err := f.deps.Videos.MarkUploaded(ctx, v.ID, f.deps.Uploader.Name(), res.ID, res.URL); err != nil {
				return err
			}
			v.Status = store.VideoUploaded
			v.Platform = f.deps.Uploader.Name()
			v.PlatformVideoID = res.ID
			v.PlatformURL = res.URL
			return nil
		})
	}

	log.Info("video produced",
		zap.String("type", string(d.Type)),
		zap.String("path", d.Output),
		zap.Duration("duration", d.Duration),
		zap.Float64("quality", d.QualityScore),
	)
	return v, nil
}

// stage 运行一个阶段并记录 span、耗时与事件
func (f *Factory) stage(ctx context.Context, d *Draft, name string, fn func(context.Context, *Draft) error) error {
	ctx = ctxkeys.WithStage(ctx, name)
	ctx, span := telemetry.StartSpan(ctx, "pipeline."+name)
	start := time.Now()

	err := fn(ctx, d)

	f.deps.Metrics.RecordStage(name, time.Since(start))
	telemetry.EndSpan(span, err)
	if err != nil {
		f.emit(Event{Type: EventVideoFailed, JobID: d.JobID, VideoID: d.ID, Stage: name, Message: err.Error()})
		return fmt.Errorf("%s: %w", name, err)
	}
	f.emit(Event{Type: EventStage, JobID: d.JobID, VideoID: d.ID, Stage: name})
	return nil
}

// enhance 运行某阶段的增强器；只返回拒绝错误
func (f *Factory) enhance(ctx context.Context, d *Draft, phase Phase) error {
	for _, e := range f.deps.Enhancers {
		if e.Phase() != phase {
			continue
		}
		err := safeApply(ctx, e, d)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrRejected) {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		f.deps.Metrics.RecordEnhancerFailure(e.Name())
		f.logger.Warn("enhancer failed, skipping",
			zap.String("enhancer", e.Name()),
			zap.String("phase", string(phase)),
			zap.Error(err),
		)
		f.emit(Event{Type: EventEnhancer, JobID: d.JobID, VideoID: d.ID, Stage: e.Name(), Message: err.Error()})
	}
	return nil
}

// ============================================================
// 阶段
// ============================================================

func (f *Factory) generate(ctx context.Context, d *Draft) error {
	if d.Dynamic {
		topics, err := f.deps.Writer.Topics(ctx, 1)
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			return types.NewError(types.ErrContentRejected, "no topic generated")
		}
		d.applyTopic(topics[0])
		return nil
	}
	vc, err := f.deps.Writer.ForType(ctx, d.Type)
	if err != nil {
		return err
	}
	d.applyContent(vc)
	return nil
}

// layout 渲染模板：dynamic（逐句片段）、fact 或 quote
func (d *Draft) layout() string {
	switch {
	case d.Dynamic:
		return "dynamic"
	case d.Type.IsFact():
		return "fact"
	case d.Type == content.TypeAIQuotes:
		return "quote"
	default:
		return "dynamic"
	}
}

func (f *Factory) phrases(_ context.Context, d *Draft) error {
	switch {
	case d.layout() != "dynamic":
		d.Phrases = []string{d.MainText}
	case !d.Dynamic && d.Type == content.TypeWouldYouRather:
		d.Phrases = wyrPhrases(d)
	default:
		d.Phrases = content.SplitPhrases(d.Narration, f.cfg.PhraseTarget)
	}
	if len(d.Phrases) == 0 {
		return types.NewError(types.ErrContentRejected, "narration has no phrases")
	}
	return nil
}

func wyrPhrases(d *Draft) []string {
	out := []string{firstNonEmpty(d.Hook, "Would you rather...")}
	out = append(out, "A: "+d.MainText, "OR", "B: "+d.SecondaryText)
	if d.PercentageA > 0 {
		out = append(out, fmt.Sprintf("%d%% picked A", d.PercentageA))
	}
	return out
}

func (f *Factory) keywords(ctx context.Context, d *Draft) error {
	if d.layout() == "dynamic" || len(d.Keywords) == 0 {
		d.Keywords = f.deps.Writer.PhraseKeywords(ctx, d.Phrases)
	}
	limit := 3
	switch d.layout() {
	case "dynamic":
		limit = len(d.Phrases)
	case "quote":
		limit = 1
	}
	if len(d.Keywords) > limit {
		d.Keywords = d.Keywords[:limit]
	}
	return nil
}

func (f *Factory) broll(ctx context.Context, d *Draft) error {
	if f.deps.Broll == nil || len(d.Keywords) == 0 {
		d.Broll = make([]string, len(d.Keywords))
		return nil
	}
	clips, err := f.deps.Broll.FetchAll(ctx, d.Keywords)
	if err != nil {
		return err
	}
	d.Broll = clips
	return nil
}

func (f *Factory) voiceover(ctx context.Context, d *Draft) error {
	if f.deps.Voice == nil {
		return types.NewNotConfiguredError("voiceover", "speech provider")
	}
	path := filepath.Join(f.cfg.TempDir, d.ID+"_vo.mp3")
	res, err := f.deps.Voice.Synthesize(ctx, &speech.Request{Text: d.Narration, Format: "mp3"}, path)
	if err != nil {
		return err
	}
	d.Voiceover = res.Path
	return nil
}

func (f *Factory) durations(ctx context.Context, d *Draft) error {
	dur, err := f.deps.Prober.Duration(ctx, d.Voiceover)
	if err != nil {
		return err
	}
	d.VoiceDuration = dur
	if d.layout() == "dynamic" {
		d.Durations = content.PhraseDurations(d.Phrases, dur)
	}
	return nil
}

func (f *Factory) music(ctx context.Context, d *Draft) error {
	if f.deps.Music == nil || d.layout() != "dynamic" {
		return nil
	}
	mood := music.Mood(d.Mood)
	if mood == "" {
		mood = music.MoodForText(d.MainText, d.SecondaryText)
	}
	path, err := f.deps.Music.Get(ctx, mood)
	if err != nil {
		f.logger.Warn("no background music, rendering without",
			zap.String("mood", string(mood)), zap.Error(err))
		return nil
	}
	d.Music = path
	return nil
}

func (f *Factory) render(ctx context.Context, d *Draft) error {
	d.Theme = render.ThemeFor(d.Type, f.rng)
	d.Output = filepath.Join(f.cfg.OutputDir, fmt.Sprintf("%s_%s.mp4", d.category(), d.ID[:8]))

	var (
		res *render.Result
		err error
	)
	switch d.layout() {
	case "fact":
		res, err = f.deps.Composer.ComposeFact(ctx, render.FactInput{
			Hook:              d.Hook,
			Fact:              d.MainText,
			Source:            d.SecondaryText,
			Voiceover:         d.Voiceover,
			VoiceoverDuration: d.VoiceDuration,
			Broll:             d.Broll,
			Theme:             d.Theme,
			Output:            d.Output,
		})
	case "quote":
		var clip string
		if len(d.Broll) > 0 {
			clip = d.Broll[0]
		}
		res, err = f.deps.Composer.ComposeQuote(ctx, render.QuoteInput{
			Hook:              d.Hook,
			Quote:             d.MainText,
			Author:            d.SecondaryText,
			Voiceover:         d.Voiceover,
			VoiceoverDuration: d.VoiceDuration,
			Broll:             clip,
			Theme:             d.Theme,
			Output:            d.Output,
		})
	default:
		segs := make([]render.Segment, len(d.Phrases))
		for i, p := range d.Phrases {
			segs[i] = render.Segment{Text: p, Duration: d.Durations[i], Theme: d.Theme}
			if i < len(d.Broll) {
				segs[i].Broll = d.Broll[i]
			}
		}
		res, err = f.deps.Composer.ComposeDynamic(ctx, render.DynamicInput{
			Segments:  segs,
			Voiceover: d.Voiceover,
			Music:     d.Music,
			Output:    d.Output,
		})
	}
	if err != nil {
		return err
	}
	d.Output = res.Path
	d.Duration = res.Duration
	return nil
}
