package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/internal/database"
	"github.com/BaSui01/viralshorts/internal/migration"
	"github.com/BaSui01/viralshorts/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	pm, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Name: path}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pm.Close() })

	m, err := migration.NewWithDB(migration.DatabaseTypeSQLite, pm.SQLDB())
	require.NoError(t, err)
	require.NoError(t, m.Up(context.Background()))

	return New(pm.DB(), zap.NewNop())
}

func TestStringList_ValueScan(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var l StringList
	require.NoError(t, l.Scan(`["a","b"]`))
	assert.Equal(t, StringList{"a", "b"}, l)
	require.NoError(t, l.Scan([]byte(`["c"]`)))
	assert.Equal(t, StringList{"c"}, l)
	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)
	assert.Error(t, l.Scan(42))
}

func TestStore_JobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &Job{ID: "job-1", VideoType: "wyr", Count: 2, Dynamic: true}
	require.NoError(t, s.CreateJob(ctx, job))
	assert.Equal(t, JobQueued, job.Status)

	require.NoError(t, s.MarkJobRunning(ctx, "job-1"))
	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobRunning, got.Status)
	assert.True(t, got.Dynamic)
	require.NotNil(t, got.StartedAt)

	require.NoError(t, s.FinishJob(ctx, "job-1", JobSucceeded, "", []string{"v1", "v2"}))
	got, err = s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobSucceeded, got.Status)
	assert.Equal(t, StringList{"v1", "v2"}, got.VideoIDs)
	assert.NotNil(t, got.FinishedAt)

	jobs, err := s.ListJobs(ctx, JobSucceeded, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	jobs, err = s.ListJobs(ctx, JobFailed, 0)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetJob(ctx, "missing")
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))
	_, err = s.GetVideo(ctx, "missing")
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))
	assert.True(t, types.IsErrorCode(s.MarkJobRunning(ctx, "missing"), types.ErrNotFound))
	assert.True(t, types.IsErrorCode(s.UpdateStats(ctx, "missing", 1, 1), types.ErrNotFound))
}

func TestStore_Videos(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	videos := []*Video{
		{ID: "a", JobID: "j1", VideoType: "wyr", Title: "A", CreatedAt: base},
		{ID: "b", JobID: "j1", VideoType: "scary_facts", Title: "B", CreatedAt: base.Add(time.Minute)},
		{ID: "c", JobID: "j2", VideoType: "wyr", Title: "C", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, v := range videos {
		require.NoError(t, s.CreateVideo(ctx, v))
	}

	list, err := s.ListVideos(ctx, VideoFilter{JobID: "j1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	list, err = s.ListVideos(ctx, VideoFilter{Type: "wyr", Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c", list[0].ID)

	require.NoError(t, s.MarkUploaded(ctx, "a", "dailymotion", "x8abc", "https://www.dailymotion.com/video/x8abc"))
	require.NoError(t, s.SetArchiveURL(ctx, "a", "s3://bucket/a.mp4"))
	got, err := s.GetVideo(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, VideoUploaded, got.Status)
	assert.Equal(t, "x8abc", got.PlatformVideoID)
	assert.Equal(t, "s3://bucket/a.mp4", got.ArchiveURL)

	uploaded, err := s.ListVideos(ctx, VideoFilter{Status: VideoUploaded})
	require.NoError(t, err)
	assert.Len(t, uploaded, 1)
}

func TestStore_TopPerforming(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, v := range []*Video{
		{ID: "views", VideoType: "wyr"},
		{ID: "likes", VideoType: "wyr"},
		{ID: "none", VideoType: "wyr"},
	} {
		require.NoError(t, s.CreateVideo(ctx, v))
	}
	require.NoError(t, s.UpdateStats(ctx, "views", 500, 0))
	require.NoError(t, s.UpdateStats(ctx, "likes", 100, 50))

	top, err := s.TopPerforming(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "likes", top[0].ID)
	assert.Equal(t, "views", top[1].ID)
}

func TestStore_Patterns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePatterns(ctx, "hook_techniques", "proven", []string{"Question hook", "", "Shock stat"}))
	require.NoError(t, s.UpsertPattern(ctx, "hook_techniques", "Shock stat", "channel_analysis:UC1"))
	require.NoError(t, s.UpsertPattern(ctx, "title_formulas", "You won't believe X", "proven"))

	hooks, err := s.ListPatterns(ctx, "hook_techniques")
	require.NoError(t, err)
	require.Len(t, hooks, 2)
	assert.Equal(t, "Shock stat", hooks[0].Value)
	assert.InDelta(t, 2.0, hooks[0].Weight, 0.001)

	all, err := s.LoadPatterns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shock stat", "Question hook"}, all["hook_techniques"])
	assert.Equal(t, []string{"You won't believe X"}, all["title_formulas"])
}
