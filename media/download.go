// Package media holds what the B-roll and music libraries share: streaming
// downloads into a cache directory and cache-key naming.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BaSui01/viralshorts/internal/pool"
	"github.com/BaSui01/viralshorts/internal/tlsutil"
	"github.com/BaSui01/viralshorts/types"
)

// ErrTooSmall 下载结果小于最小字节数（通常是错误页或空文件）
var ErrTooSmall = errors.New("media: downloaded file too small")

// Downloader 把远程文件流式写入本地，先写临时文件再 rename
type Downloader struct {
	client *http.Client
}

// NewDownloader 创建下载器；headerTimeout 只限制等待响应头的时间
func NewDownloader(headerTimeout time.Duration) *Downloader {
	if headerTimeout <= 0 {
		headerTimeout = 30 * time.Second
	}
	return &Downloader{client: tlsutil.DownloadClient(headerTimeout)}
}

// NewDownloaderWithClient 使用自定义 http.Client（测试用）
func NewDownloaderWithClient(c *http.Client) *Downloader {
	return &Downloader{client: c}
}

// Download 下载 url 到 dest，文件不超过 minBytes 时删除并返回 ErrTooSmall
func (d *Downloader) Download(ctx context.Context, url, dest string, minBytes int64) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, types.NewError(types.ErrUpstreamError, "download failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, types.NewUpstreamError(hostOf(url), resp.StatusCode, "")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".dl-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	n, err := pool.Downloads.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && n <= minBytes {
		err = fmt.Errorf("%w: %d bytes", ErrTooSmall, n)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("move download into place: %w", err)
	}
	return n, nil
}

// GetJSON 发起 GET 并把 JSON 响应写入 v
func GetJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return types.NewError(types.ErrUpstreamError, provider+" request failed").
			WithCause(err).WithProvider(provider).WithRetryable(true)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return types.NewUpstreamError(provider, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return decodeJSON(resp.Body, v)
}

// FileSize 返回文件大小，不存在时返回 0
func FileSize(path string) int64 {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return 0
	}
	return st.Size()
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9_\-]+`)

// Slug 把关键词转成可用作文件名的片段
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeChars.ReplaceAllString(s, "")
	if len(s) > 64 {
		s = s[:64]
	}
	if s == "" {
		s = "clip"
	}
	return s
}

func hostOf(url string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}
