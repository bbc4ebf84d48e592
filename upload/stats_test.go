package upload

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/internal/database"
	"github.com/BaSui01/viralshorts/internal/migration"
	"github.com/BaSui01/viralshorts/store"
	"github.com/BaSui01/viralshorts/types"
)

func newSQLiteStore(t *testing.T) *store.Store {
	t.Helper()
	pm, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Name: filepath.Join(t.TempDir(), "stats.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pm.Close() })

	m, err := migration.NewWithDB(migration.DatabaseTypeSQLite, pm.SQLDB())
	require.NoError(t, err)
	require.NoError(t, m.Up(context.Background()))
	return store.New(pm.DB(), zap.NewNop())
}

func seedUploaded(t *testing.T, s *store.Store, id, platformID, hook string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateVideo(ctx, &store.Video{ID: id, VideoType: "wyr", Hook: hook, Status: store.VideoRendered}))
	if platformID != "" {
		require.NoError(t, s.MarkUploaded(ctx, id, Platform, platformID, "https://www.dailymotion.com/video/"+platformID))
	}
}

func TestRefreshStats_ChangesRanking(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	seedUploaded(t, s, "v-old", "x1", "old hook")
	seedUploaded(t, s, "v-new", "x2", "new hook")
	seedUploaded(t, s, "v-gone", "x3", "deleted upstream")
	seedUploaded(t, s, "v-local", "", "never uploaded")

	// 未回填前全部为 0，排名只按创建时间
	top, err := s.TopPerforming(ctx, 10)
	require.NoError(t, err)
	for _, v := range top {
		assert.Zero(t, v.Views+v.Likes)
	}

	f := newFakeDailymotion(t)
	f.stats = map[string][2]int64{
		"x1": {5000, 300},
		"x2": {100, 2},
	}
	d := NewDailymotion(testConfig(f.URL), nil, nil, WithHTTPClient(f.Client()))

	n, err := d.RefreshStats(ctx, s, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	top, err = s.TopPerforming(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "v-old", top[0].ID)
	assert.EqualValues(t, 5000, top[0].Views)
	assert.EqualValues(t, 300, top[0].Likes)
	assert.Equal(t, "v-new", top[1].ID)

	gone, err := s.GetVideo(ctx, "v-gone")
	require.NoError(t, err)
	assert.Zero(t, gone.Views)
}

func TestRefreshStats_NotConfigured(t *testing.T) {
	s := newSQLiteStore(t)
	seedUploaded(t, s, "v1", "x1", "hook")

	d := NewDailymotion(config.DailymotionConfig{}, nil, zap.NewNop())
	n, err := d.RefreshStats(context.Background(), s, 5)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrNotConfigured))
	assert.Zero(t, n)
}
