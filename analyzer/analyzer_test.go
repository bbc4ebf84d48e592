package analyzer

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/llm"
	"github.com/BaSui01/viralshorts/types"
)

type memStore struct {
	mu    sync.Mutex
	data  map[string][]string
	saves int
}

func (m *memStore) LoadPatterns(ctx context.Context) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]string{}
	for k, v := range m.data {
		out[k] = append([]string(nil), v...)
	}
	return out, nil
}

func (m *memStore) SavePatterns(ctx context.Context, kind, source string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]string{}
	}
	m.data[kind] = append(m.data[kind], values...)
	m.saves++
	return nil
}

func youtubeServer(t *testing.T, subscribers string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yt-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"items":[{"id":"UC1","snippet":{"title":"Facts Daily"},
			"statistics":{"subscriberCount":"` + subscribers + `"},
			"contentDetails":{"relatedPlaylists":{"uploads":"UU1"}}}]}`))
	})
	mux.HandleFunc("/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "UU1", r.URL.Query().Get("playlistId"))
		w.Write([]byte(`{"items":[
			{"snippet":{"resourceId":{"videoId":"a"}}},
			{"snippet":{"resourceId":{"videoId":"b"}}},
			{"snippet":{"resourceId":{"videoId":"c"}}}]}`))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a,b,c", r.URL.Query().Get("id"))
		w.Write([]byte(`{"items":[
			{"id":"a","snippet":{"title":"Low"},"statistics":{"viewCount":"100","likeCount":"1"},"contentDetails":{"duration":"PT20S"}},
			{"id":"b","snippet":{"title":"High"},"statistics":{"viewCount":"900","likeCount":"9"},"contentDetails":{"duration":"PT40S"}},
			{"id":"c","snippet":{"title":"Long"},"statistics":{"viewCount":"99999"},"contentDetails":{"duration":"PT10M"}}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestYouTube_NotConfigured(t *testing.T) {
	_, err := NewYouTube("", "", http.DefaultClient).Channel(context.Background(), "x")
	assert.True(t, types.IsErrorCode(err, types.ErrNotConfigured))
}

func TestYouTube_ShortsFiltersLongVideos(t *testing.T) {
	srv := youtubeServer(t, "5000")
	shorts, err := NewYouTube("yt-key", srv.URL, srv.Client()).Shorts(context.Background(), "UU1", 20)
	require.NoError(t, err)
	require.Len(t, shorts, 2)
	assert.Equal(t, "a", shorts[0].ID)
	assert.EqualValues(t, 900, shorts[1].Views)
	assert.Equal(t, 40, shorts[1].Duration)
}

func TestAnalyzeChannel(t *testing.T) {
	srv := youtubeServer(t, "5000")
	caller := llm.CallerFunc(func(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
		assert.Contains(t, prompt, `"High"`)
		assert.Equal(t, 500, opts.MaxTokens)
		return "```json\n{\"title_patterns\":[\"Why {x} is wild\"],\"hook_techniques\":[\"Shock stat\"],\"niche\":\"science\"}\n```", nil
	})
	store := &memStore{}
	a := New(NewYouTube("yt-key", srv.URL, srv.Client()), caller, zap.NewNop(), WithStore(store))

	insight, err := a.AnalyzeChannel(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Equal(t, "Facts Daily", insight.ChannelName)
	assert.EqualValues(t, 5000, insight.SubscriberCount)
	assert.EqualValues(t, 500, insight.AvgViewsPerShort)
	assert.Equal(t, []string{"High", "Low"}, insight.TopPerformingTitles)
	assert.Equal(t, 30, insight.AvgVideoLength)
	assert.Equal(t, "science", insight.Niche)

	assert.Equal(t, 2, store.saves)
	p := a.Patterns()
	assert.Contains(t, p.TitleFormulas, "Why {x} is wild")
	assert.Contains(t, p.HookTechniques, "Shock stat")
}

func TestAnalyzeChannel_SmallChannel(t *testing.T) {
	srv := youtubeServer(t, "999")
	a := New(NewYouTube("yt-key", srv.URL, srv.Client()), nil, nil)
	_, err := a.AnalyzeChannel(context.Background(), "UC1")
	assert.ErrorIs(t, err, ErrChannelTooSmall)
}

func TestAnalyzeChannel_ExtractionFailureDegrades(t *testing.T) {
	srv := youtubeServer(t, "5000")
	caller := llm.CallerFunc(func(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
		return "", errors.New("all providers down")
	})
	a := New(NewYouTube("yt-key", srv.URL, srv.Client()), caller, nil)
	insight, err := a.AnalyzeChannel(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Empty(t, insight.TitlePatterns)
	assert.Equal(t, "general", insight.Niche)
}

func TestPatterns_MergeDeduplicates(t *testing.T) {
	p := ProvenPatterns().Merge(map[string][]string{
		KindTitle:      {"Watch till the end for the reveal", "New formula"},
		KindEngagement: {"Tag a friend"},
	})
	assert.Len(t, p.TitleFormulas, 11)
	assert.Len(t, p.EngagementTactics, 8)
	assert.Len(t, ProvenPatterns().TitleFormulas, 10)
}

func TestPromptBoost(t *testing.T) {
	a := New(nil, nil, nil, WithRand(rand.New(rand.NewPCG(1, 1))))
	boost := a.PromptBoost()

	assert.Contains(t, boost, "=== VIRAL PATTERNS")
	assert.Contains(t, boost, "Video length: 15-25 seconds")
	assert.Contains(t, boost, "Phrases: 3-5 short phrases (8-15 words each)")

	sections := strings.Split(boost, "\n\n")
	count := func(prefix string) int {
		for _, s := range sections {
			if strings.HasPrefix(strings.TrimSpace(s), prefix) {
				return strings.Count(s, "\n- ")
			}
		}
		return -1
	}
	assert.Equal(t, 3, count("TITLE FORMULAS"))
	assert.Equal(t, 2, count("HOOK TECHNIQUES"))
	assert.Equal(t, 2, count("ENGAGEMENT BAITS"))
}

func TestRefresh_LoadsSavedPatterns(t *testing.T) {
	store := &memStore{data: map[string][]string{KindHook: {"Whisper hook"}}}
	a := New(nil, nil, nil, WithStore(store))
	assert.NotContains(t, a.Patterns().HookTechniques, "Whisper hook")
	require.NoError(t, a.Refresh(context.Background()))
	assert.Contains(t, a.Patterns().HookTechniques, "Whisper hook")
}

func TestLearnFromOurBest(t *testing.T) {
	// 排名分数：1100, 1000, 600, 400, 300, 1
	got := LearnFromOurBest([]Performance{
		{Category: "scary", Hook: "h1", Views: 100, Likes: 100, Duration: 18},
		{Category: "money", Hook: "h2", Views: 1000, Likes: 0, Duration: 22},
		{Category: "scary", Hook: "h3", Views: 500, Likes: 10},
		{Category: "", Hook: "h4", Views: 400},
		{Category: "quotes", Hook: "h5", Views: 300, Duration: 30},
		{Category: "kids", Hook: "h6", Views: 1},
	})
	assert.Equal(t, []string{"scary", "money", "quotes"}, got.Categories)
	assert.Equal(t, []string{"h1", "h2", "h3"}, got.Hooks)
	assert.InDelta(t, (18+22+30)/3.0, got.AvgLength, 1e-9)

	assert.Equal(t, OurBest{}, LearnFromOurBest(nil))
	assert.Equal(t, OurBest{}, LearnFromOurBest([]Performance{}))

	untimed := LearnFromOurBest([]Performance{{Category: "kids", Views: 10}})
	assert.Equal(t, []string{"kids"}, untimed.Categories)
	assert.Zero(t, untimed.AvgLength)
}
