package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/viralshorts/content"
	"github.com/BaSui01/viralshorts/internal/ctxkeys"
	"github.com/BaSui01/viralshorts/llm/speech"
	"github.com/BaSui01/viralshorts/media/music"
	"github.com/BaSui01/viralshorts/render"
	"github.com/BaSui01/viralshorts/store"
	"github.com/BaSui01/viralshorts/types"
	"github.com/BaSui01/viralshorts/upload"
)

type fakeWriter struct {
	mu       sync.Mutex
	content  map[content.VideoType]content.VideoContent
	topics   []content.Topic
	forType  int
	boosts   []string
	keywords [][]string
}

func (w *fakeWriter) Topics(ctx context.Context, count int) ([]content.Topic, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, _ := ctxkeys.PromptBoost(ctx)
	w.boosts = append(w.boosts, b)
	return w.topics, nil
}

func (w *fakeWriter) ForType(ctx context.Context, t content.VideoType) (*content.VideoContent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.forType++
	b, _ := ctxkeys.PromptBoost(ctx)
	w.boosts = append(w.boosts, b)
	vc, ok := w.content[t]
	if !ok {
		return nil, errors.New("no content for " + string(t))
	}
	vc.Type = t
	return &vc, nil
}

func (w *fakeWriter) PhraseKeywords(_ context.Context, phrases []string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keywords = append(w.keywords, phrases)
	out := make([]string, len(phrases))
	for i := range phrases {
		out[i] = "kw" + string(rune('a'+i))
	}
	return out
}

type fakeBroll struct{ dir string }

func (b fakeBroll) FetchAll(_ context.Context, keywords []string) ([]string, error) {
	out := make([]string, len(keywords))
	for i, k := range keywords {
		out[i] = filepath.Join(b.dir, strings.ReplaceAll(k, " ", "_")+".mp4")
	}
	return out, nil
}

type fakeMusic struct {
	moods []music.Mood
	err   error
}

func (m *fakeMusic) Get(_ context.Context, mood music.Mood) (string, error) {
	m.moods = append(m.moods, mood)
	if m.err != nil {
		return "", m.err
	}
	return "/music/" + string(mood) + ".mp3", nil
}

type fakeVoice struct{ err error }

func (fakeVoice) Name() string { return "fake" }

func (v fakeVoice) Synthesize(_ context.Context, req *speech.Request, path string) (*speech.Result, error) {
	if v.err != nil {
		return nil, v.err
	}
	if err := os.WriteFile(path, []byte(req.Text), 0o644); err != nil {
		return nil, err
	}
	return &speech.Result{Provider: "fake", Path: path}, nil
}

type fakeProber struct{ d time.Duration }

func (p fakeProber) Duration(context.Context, string) (time.Duration, error) { return p.d, nil }

type fakeComposer struct {
	mu      sync.Mutex
	dynamic []render.DynamicInput
	fact    []render.FactInput
	quote   []render.QuoteInput
	voExist []bool
}

func (c *fakeComposer) seen(vo string) {
	_, err := os.Stat(vo)
	c.voExist = append(c.voExist, err == nil)
}

func (c *fakeComposer) ComposeDynamic(_ context.Context, in render.DynamicInput) (*render.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen(in.Voiceover)
	c.dynamic = append(c.dynamic, in)
	var total time.Duration
	for _, s := range in.Segments {
		total += s.Duration
	}
	return &render.Result{Path: in.Output, Duration: total}, nil
}

func (c *fakeComposer) ComposeFact(_ context.Context, in render.FactInput) (*render.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen(in.Voiceover)
	c.fact = append(c.fact, in)
	_, final := render.FactDurations(in.VoiceoverDuration)
	return &render.Result{Path: in.Output, Duration: final}, nil
}

func (c *fakeComposer) ComposeQuote(_ context.Context, in render.QuoteInput) (*render.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen(in.Voiceover)
	c.quote = append(c.quote, in)
	_, final := render.QuoteDurations(in.VoiceoverDuration)
	return &render.Result{Path: in.Output, Duration: final}, nil
}

type fakeUploader struct {
	metas []upload.Metadata
	err   error
}

func (u *fakeUploader) Name() string { return "dailymotion" }

func (u *fakeUploader) Upload(_ context.Context, _ string, meta upload.Metadata) (*upload.Video, error) {
	u.metas = append(u.metas, meta)
	if u.err != nil {
		return nil, u.err
	}
	return &upload.Video{ID: "x8abc", URL: "https://www.dailymotion.com/video/x8abc"}, nil
}

type fakeArchiver struct{}

func (fakeArchiver) Archive(_ context.Context, p string) (string, error) {
	return "s3://renders/" + filepath.Base(p), nil
}

// memRepo 内存版作业与视频仓储
type memRepo struct {
	mu     sync.Mutex
	jobs   map[string]*store.Job
	videos map[string]*store.Video
}

func newMemRepo() *memRepo {
	return &memRepo{jobs: map[string]*store.Job{}, videos: map[string]*store.Video{}}
}

func (m *memRepo) CreateJob(_ context.Context, job *store.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memRepo) GetJob(_ context.Context, id string) (*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "job not found")
	}
	cp := *j
	return &cp, nil
}

func (m *memRepo) MarkJobRunning(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.jobs[id].Status = store.JobRunning
	m.jobs[id].StartedAt = &now
	return nil
}

func (m *memRepo) FinishJob(_ context.Context, id, status, errMsg string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status, j.Error, j.VideoIDs = status, errMsg, ids
	return nil
}

func (m *memRepo) CreateVideo(_ context.Context, v *store.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.videos[v.ID] = &cp
	return nil
}

func (m *memRepo) MarkUploaded(_ context.Context, id, platform, pid, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.videos[id]
	v.Status, v.Platform, v.PlatformVideoID, v.PlatformURL = store.VideoUploaded, platform, pid, url
	return nil
}

func (m *memRepo) SetArchiveURL(_ context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[id].ArchiveURL = url
	return nil
}

func (m *memRepo) video(id string) *store.Video {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.videos[id]
}

// stubEnhancer 可编程增强器
type stubEnhancer struct {
	name  string
	phase Phase
	apply func(*Draft) error
	calls int
}

func (s *stubEnhancer) Name() string { return s.name }
func (s *stubEnhancer) Phase() Phase { return s.phase }

func (s *stubEnhancer) Apply(_ context.Context, d *Draft) error {
	s.calls++
	return s.apply(d)
}

type staticBooster string

func (b staticBooster) PromptBoost() string { return string(b) }
