package media

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/viralshorts/types"
)

func TestDownloader_Download(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "nested", "clip.mp4")
	n, err := NewDownloaderWithClient(srv.Client()).Download(context.Background(), srv.URL, dest, 100)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloader_TooSmallLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "x.mp3")
	_, err := NewDownloaderWithClient(srv.Client()).Download(context.Background(), srv.URL, dest, 10000)
	assert.ErrorIs(t, err, ErrTooSmall)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestDownloader_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewDownloaderWithClient(srv.Client()).Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x"), 0)
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

func TestGetJSON_SendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	h := http.Header{}
	h.Set("Authorization", "secret")
	require.NoError(t, GetJSON(context.Background(), srv.Client(), "test", srv.URL, h, &out))
	assert.True(t, out.OK)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "dark_cityscape", Slug("Dark Cityscape"))
	assert.Equal(t, "whats_next", Slug("What's next?"))
	assert.Equal(t, "clip", Slug("???"))
	assert.Len(t, Slug(string(bytes.Repeat([]byte("a"), 100))), 64)
}
