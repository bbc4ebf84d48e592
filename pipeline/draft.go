package pipeline

import (
	"strings"
	"time"

	"github.com/BaSui01/viralshorts/content"
	"github.com/BaSui01/viralshorts/evaluator"
	"github.com/BaSui01/viralshorts/render"
	"github.com/BaSui01/viralshorts/store"
)

// Draft 一个正在生产中的视频。各阶段与增强器在其上读写。
type Draft struct {
	ID      string
	JobID   string
	Type    content.VideoType
	Dynamic bool

	// Boost 注入到生成提示词末尾的指引
	Boost string

	Topic         string
	Hook          string
	MainText      string
	SecondaryText string
	Narration     string
	PercentageA   int
	Mood          string
	Keywords      []string

	Phrases       []string
	Broll         []string
	Voiceover     string
	VoiceDuration time.Duration
	Durations     []time.Duration
	Music         string
	Theme         render.Theme
	Output        string
	Duration      time.Duration

	QualityScore float64
	ScrollStop   float64
	PredictedCTR float64
	Signals      evaluator.Signals

	Title       string
	Description string
	Tags        []string
}

// category 用于统计与学习的分类
func (d *Draft) category() string {
	if d.Dynamic {
		return "dynamic"
	}
	return string(d.Type)
}

// applyTopic 填充动态选题；模型给出可识别的类型时覆盖随机解析出的类型
func (d *Draft) applyTopic(t content.Topic) {
	if vt, ok := t.Type(); ok {
		d.Type = vt
	}
	d.Topic = t.Topic
	d.Hook = t.Hook
	d.MainText = t.Content
	d.Narration = t.Narration()
	d.Mood = t.MusicMood
	d.Keywords = t.BrollKeywords
}

// applyContent 填充类型化内容
func (d *Draft) applyContent(vc *content.VideoContent) {
	d.Type = vc.Type
	d.Topic = vc.MainText
	d.Hook = vc.Hook
	d.MainText = vc.MainText
	d.SecondaryText = vc.SecondaryText
	d.Narration = vc.VoiceoverScript
	d.PercentageA = int(vc.PercentageA)
	d.Mood = vc.MusicMood
	d.Keywords = vc.BrollKeywords
}

// resetContent 在内容被拒绝后清空生成结果，保留 ID 与注入指引
func (d *Draft) resetContent() {
	*d = Draft{ID: d.ID, JobID: d.JobID, Type: d.Type, Dynamic: d.Dynamic, Boost: d.Boost}
}

// metadata 生成上传标题、描述与标签
func (d *Draft) metadata() {
	if d.Title == "" {
		d.Title = firstNonEmpty(d.Hook, d.Topic, d.MainText)
	}
	if d.Description == "" {
		d.Description = strings.TrimSpace(d.Narration + "\n\n#shorts #viral")
	}
	if len(d.Tags) == 0 {
		d.Tags = []string{"viral", "shorts", strings.ReplaceAll(d.category(), "_", "")}
	}
}

func (d *Draft) record(status string) *store.Video {
	return &store.Video{
		ID:              d.ID,
		JobID:           d.JobID,
		VideoType:       string(d.Type),
		Topic:           d.Topic,
		Title:           d.Title,
		Hook:            d.Hook,
		Content:         d.Narration,
		Category:        d.category(),
		FilePath:        d.Output,
		DurationSeconds: d.Duration.Seconds(),
		QualityScore:    d.QualityScore,
		PredictedCTR:    d.PredictedCTR,
		Status:          status,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
