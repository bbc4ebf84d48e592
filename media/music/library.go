// Package music finds copyright-safe background music: a local cache first,
// then Jamendo, then Pixabay.
package music

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/internal/metrics"
	"github.com/BaSui01/viralshorts/internal/tlsutil"
	"github.com/BaSui01/viralshorts/media"
	"github.com/BaSui01/viralshorts/types"
)

const (
	DefaultJamendoURL = "https://api.jamendo.com/v3.0"
	DefaultPixabayURL = "https://pixabay.com/api/"

	// MinTrackBytes 小于等于该大小的下载视为失败
	MinTrackBytes = 10000

	jamendoLimit    = 20
	jamendoTopPicks = 5
	fallbackTags    = "instrumental+ambient"
)

// ErrNoMusic 缓存和所有在线来源都没有结果
var ErrNoMusic = types.NewError(types.ErrAssetMissing, "no background music available")

// Library 背景音乐库
type Library struct {
	dir        string
	jamendoID  string
	pixabayKey string
	jamendoURL string
	pixabayURL string

	api        *http.Client
	downloader *media.Downloader
	collector  *metrics.Collector
	logger     *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option 配置 Library
type Option func(*Library)

// WithEndpoints 覆盖 Jamendo 与 Pixabay 的 API 地址
func WithEndpoints(jamendo, pixabay string) Option {
	return func(l *Library) {
		if jamendo != "" {
			l.jamendoURL = strings.TrimRight(jamendo, "/")
		}
		if pixabay != "" {
			l.pixabayURL = pixabay
		}
	}
}

// WithHTTPClient 同时用于 API 请求和文件下载
func WithHTTPClient(c *http.Client) Option {
	return func(l *Library) {
		l.api = c
		l.downloader = media.NewDownloaderWithClient(c)
	}
}

// WithRand 固定随机源
func WithRand(r *rand.Rand) Option {
	return func(l *Library) { l.rng = r }
}

// NewLibrary 从 MediaConfig 创建音乐库
func NewLibrary(cfg config.MediaConfig, collector *metrics.Collector, logger *zap.Logger, opts ...Option) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	dir := cfg.MusicDir
	if dir == "" {
		dir = filepath.Join("assets", "music")
	}
	l := &Library{
		dir:        dir,
		jamendoID:  cfg.JamendoClientID,
		pixabayKey: cfg.PixabayAPIKey,
		jamendoURL: DefaultJamendoURL,
		pixabayURL: DefaultPixabayURL,
		api:        tlsutil.SecureHTTPClient(15 * time.Second),
		downloader: media.NewDownloader(timeout),
		collector:  collector,
		logger:     logger.With(zap.String("component", "music")),
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get 返回匹配情绪的 mp3 路径。在线来源的失败只记录日志，最终无结果时返回 ErrNoMusic。
func (l *Library) Get(ctx context.Context, mood Mood) (string, error) {
	if mood == "" {
		mood = MoodFun
	}
	if path := l.cached(mood); path != "" {
		l.collector.RecordMediaDownload("cache", "music", "hit", 0)
		l.logger.Debug("using cached music", zap.String("path", path))
		return path, nil
	}

	path, err := l.fromJamendo(ctx, mood)
	if err == nil {
		return path, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	l.logger.Warn("jamendo lookup failed", zap.String("mood", string(mood)), zap.Error(err))

	path, err = l.fromPixabay(ctx, mood)
	if err == nil {
		return path, nil
	}
	l.logger.Warn("pixabay music lookup failed", zap.String("mood", string(mood)), zap.Error(err))
	l.collector.RecordMediaDownload("none", "music", "miss", 0)
	return "", ErrNoMusic
}

func (l *Library) cached(mood Mood) string {
	for _, dir := range []string{filepath.Join(l.dir, string(mood)), l.dir} {
		files, _ := filepath.Glob(filepath.Join(dir, "*.mp3"))
		if len(files) > 0 {
			return files[l.intN(len(files))]
		}
	}
	return ""
}

type jamendoResponse struct {
	Results []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Audio string `json:"audio"`
	} `json:"results"`
}

var errNoTracks = errors.New("no tracks")

func (l *Library) fromJamendo(ctx context.Context, mood Mood) (string, error) {
	if l.jamendoID == "" {
		return "", types.NewNotConfiguredError("jamendo", "jamendo_client_id")
	}
	tags := Tags(mood)
	var errs []error
	for _, t := range []string{strings.Join(tags[:2], "+"), fallbackTags} {
		path, err := l.jamendoSearch(ctx, mood, t)
		if err == nil {
			return path, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errs = append(errs, fmt.Errorf("tags %s: %w", t, err))
	}
	return "", errors.Join(errs...)
}

func (l *Library) jamendoSearch(ctx context.Context, mood Mood, tags string) (string, error) {
	q := url.Values{}
	q.Set("client_id", l.jamendoID)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(jamendoLimit))
	q.Set("order", "popularity_week")
	q.Set("audioformat", "mp32")
	q.Set("include", "musicinfo")
	q.Set("speed", "90_160")
	// Jamendo 把 + 解释为标签之间的 AND，不能被编码成 %2B
	endpoint := l.jamendoURL + "/tracks?" + q.Encode() + "&tags=" + tags

	var resp jamendoResponse
	if err := media.GetJSON(ctx, l.api, "jamendo", endpoint, nil, &resp); err != nil {
		return "", err
	}
	tracks := resp.Results
	if len(tracks) == 0 {
		return "", errNoTracks
	}
	tracks = tracks[:min(jamendoTopPicks, len(tracks))]
	track := tracks[l.intN(len(tracks))]
	if track.Audio == "" {
		return "", errors.New("track without audio url")
	}
	return l.download(ctx, "jamendo", track.Audio, "jamendo_"+orUnknown(track.ID), mood)
}

type pixabayResponse struct {
	Hits []struct {
		ID     int64 `json:"id"`
		Videos struct {
			Medium struct {
				URL string `json:"url"`
			} `json:"medium"`
		} `json:"videos"`
	} `json:"hits"`
}

func (l *Library) fromPixabay(ctx context.Context, mood Mood) (string, error) {
	if l.pixabayKey == "" {
		return "", types.NewNotConfiguredError("pixabay", "pixabay_api_key")
	}
	q := url.Values{}
	q.Set("key", l.pixabayKey)
	q.Set("q", Tags(mood)[0])
	q.Set("category", "music")
	q.Set("per_page", "10")
	q.Set("order", "popular")

	var resp pixabayResponse
	if err := media.GetJSON(ctx, l.api, "pixabay", l.pixabayURL+"?"+q.Encode(), nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Hits) == 0 {
		return "", errNoTracks
	}
	hit := resp.Hits[l.intN(len(resp.Hits))]
	if hit.Videos.Medium.URL == "" {
		return "", errors.New("hit without audio url")
	}
	return l.download(ctx, "pixabay", hit.Videos.Medium.URL, "pixabay_"+strconv.FormatInt(hit.ID, 10), mood)
}

func (l *Library) download(ctx context.Context, source, src, trackID string, mood Mood) (string, error) {
	dest := filepath.Join(l.dir, string(mood), trackID+".mp3")
	if media.FileSize(dest) > MinTrackBytes {
		l.collector.RecordMediaDownload(source, "music", "hit", 0)
		return dest, nil
	}
	n, err := l.downloader.Download(ctx, src, dest, MinTrackBytes)
	if err != nil {
		l.collector.RecordMediaDownload(source, "music", "error", 0)
		return "", err
	}
	l.collector.RecordMediaDownload(source, "music", "downloaded", n)
	l.logger.Info("music downloaded", zap.String("source", source), zap.String("path", dest), zap.Int64("bytes", n))
	return dest, nil
}

func (l *Library) intN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

func orUnknown(id string) string {
	if id == "" {
		return "unknown"
	}
	return id
}
