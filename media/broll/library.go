package broll

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/internal/metrics"
	"github.com/BaSui01/viralshorts/internal/tlsutil"
	"github.com/BaSui01/viralshorts/media"
	"github.com/BaSui01/viralshorts/types"
)

// minClipBytes 小于该大小的视频视为损坏
const minClipBytes = 1024

// Library 按关键词缓存 B-roll 片段
type Library struct {
	dir         string
	sources     []Source
	downloader  *media.Downloader
	concurrency int
	collector   *metrics.Collector
	logger      *zap.Logger
}

type Option func(*Library)

// WithSources 替换默认的 Pexels/Pixabay 来源
func WithSources(sources ...Source) Option {
	return func(l *Library) { l.sources = sources }
}

// WithDownloadClient 使用自定义下载客户端
func WithDownloadClient(c *http.Client) Option {
	return func(l *Library) { l.downloader = media.NewDownloaderWithClient(c) }
}

// NewLibrary 按配置创建素材库：Pexels 优先，Pixabay 兜底，未配置 key 的来源不加入
func NewLibrary(cfg config.MediaConfig, collector *metrics.Collector, logger *zap.Logger, opts ...Option) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	dir := cfg.BrollDir
	if dir == "" {
		dir = filepath.Join("assets", "broll")
	}
	api := tlsutil.SecureHTTPClient(15 * time.Second)
	l := &Library{
		dir:         dir,
		downloader:  media.NewDownloader(timeout),
		concurrency: max(cfg.Concurrency, 1),
		collector:   collector,
		logger:      logger.With(zap.String("component", "broll")),
	}
	if cfg.PexelsAPIKey != "" {
		l.sources = append(l.sources, NewPexels(cfg.PexelsAPIKey, "", api))
	}
	if cfg.PixabayAPIKey != "" {
		l.sources = append(l.sources, NewPixabay(cfg.PixabayAPIKey, "", api))
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enabled reports whether any source is configured.
func (l *Library) Enabled() bool { return len(l.sources) > 0 }

// CachePath 缓存文件路径：<dir>/phrase_<keyword>_<index>.mp4
func (l *Library) CachePath(keyword string, index int) string {
	return filepath.Join(l.dir, fmt.Sprintf("phrase_%s_%d.mp4", media.Slug(keyword), index))
}

// Fetch 返回关键词对应的本地片段，缓存命中时不访问网络
func (l *Library) Fetch(ctx context.Context, keyword string, index int) (string, error) {
	dest := l.CachePath(keyword, index)
	if media.FileSize(dest) > minClipBytes {
		l.collector.RecordMediaDownload("cache", "broll", "hit", 0)
		return dest, nil
	}
	if !l.Enabled() {
		return "", types.NewNotConfiguredError("broll", "pexels_api_key", "pixabay_api_key")
	}

	var errs []error
	for _, src := range l.sources {
		clip, err := src.Search(ctx, keyword)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if !errors.Is(err, ErrNoClip) {
				l.collector.RecordMediaDownload(src.Name(), "broll", "error", 0)
			}
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		n, err := l.downloader.Download(ctx, clip.URL, dest, minClipBytes)
		if err != nil {
			l.collector.RecordMediaDownload(src.Name(), "broll", "error", 0)
			errs = append(errs, fmt.Errorf("%s download: %w", src.Name(), err))
			continue
		}
		l.collector.RecordMediaDownload(src.Name(), "broll", "downloaded", n)
		l.logger.Debug("broll downloaded",
			zap.String("keyword", keyword),
			zap.String("source", src.Name()),
			zap.String("clip_id", clip.ID),
			zap.Int64("bytes", n))
		return dest, nil
	}
	l.collector.RecordMediaDownload("none", "broll", "miss", 0)
	return "", types.NewError(types.ErrAssetMissing, "no broll for "+keyword).WithCause(errors.Join(errs...))
}

// FetchAll 并发下载每个关键词的片段。单个关键词失败时对应位置为空字符串
// （渲染时使用渐变背景），只有 ctx 取消才返回错误。
func (l *Library) FetchAll(ctx context.Context, keywords []string) ([]string, error) {
	paths := make([]string, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, kw := range keywords {
		g.Go(func() error {
			path, err := l.Fetch(gctx, kw, i)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				l.logger.Warn("broll unavailable, using gradient",
					zap.Int("index", i), zap.String("keyword", kw), zap.Error(err))
				return nil
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
