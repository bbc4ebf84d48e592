// Package upload publishes rendered videos. Dailymotion is the only
// platform with a free public upload API, so it is the only one wired.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/internal/metrics"
	"github.com/BaSui01/viralshorts/internal/pool"
	"github.com/BaSui01/viralshorts/internal/tlsutil"
	"github.com/BaSui01/viralshorts/store"
	"github.com/BaSui01/viralshorts/types"
)

const (
	Platform = "dailymotion"

	DefaultBaseURL    = "https://api.dailymotion.com"
	DefaultChannel    = "videogames"
	DefaultDailyLimit = 50
	defaultTags       = "viral,shorts"

	maxTitle       = 255
	maxDescription = 3000
	maxTags        = 20

	// tokenSkew 提前刷新 access token
	tokenSkew = time.Minute
)

// Metadata 视频元数据
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	Channel     string
}

// Video 上传结果
type Video struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Dailymotion 上传客户端
type Dailymotion struct {
	cfg     config.DailymotionConfig
	baseURL string
	api     *http.Client
	files   *http.Client
	limiter *rate.Limiter

	mu      sync.Mutex
	token   string
	expires time.Time

	collector *metrics.Collector
	logger    *zap.Logger
}

// Option 配置 Dailymotion
type Option func(*Dailymotion)

// WithHTTPClient 同时替换 API 与文件上传客户端
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dailymotion) {
		d.api = c
		d.files = c
	}
}

// NewDailymotion 创建上传客户端。每日预算通过令牌桶实现：
// 桶容量为 DailyLimit，每 24h/DailyLimit 补充一个。
func NewDailymotion(cfg config.DailymotionConfig, collector *metrics.Collector, logger *zap.Logger, opts ...Option) *Dailymotion {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.DailyLimit
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	d := &Dailymotion{
		cfg:       cfg,
		baseURL:   base,
		api:       tlsutil.SecureHTTPClient(30 * time.Second),
		files:     tlsutil.DownloadClient(60 * time.Second),
		limiter:   rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(limit)), limit),
		collector: collector,
		logger:    logger.With(zap.String("component", "uploader"), zap.String("platform", Platform)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dailymotion) Name() string { return Platform }

// Configured 四项凭证齐全
func (d *Dailymotion) Configured() bool { return d.cfg.Configured() }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate 使用 password grant 获取 manage_videos 权限的 token
func (d *Dailymotion) Authenticate(ctx context.Context) error {
	if !d.Configured() {
		return types.NewNotConfiguredError(Platform, missing(d.cfg)...)
	}
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {d.cfg.APIKey},
		"client_secret": {d.cfg.APISecret},
		"username":      {d.cfg.Username},
		"password":      {d.cfg.Password},
		"scope":         {"manage_videos"},
	}
	var tok tokenResponse
	if err := d.postForm(ctx, d.baseURL+"/oauth/token", "", form, &tok); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if tok.AccessToken == "" {
		return types.NewError(types.ErrUnauthorized, "dailymotion returned an empty access token").WithProvider(Platform)
	}
	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	d.mu.Lock()
	d.token = tok.AccessToken
	d.expires = time.Now().Add(ttl - tokenSkew)
	d.mu.Unlock()
	d.logger.Info("authenticated")
	return nil
}

func (d *Dailymotion) accessToken(ctx context.Context) (string, error) {
	d.mu.Lock()
	tok, exp := d.token, d.expires
	d.mu.Unlock()
	if tok != "" && time.Now().Before(exp) {
		return tok, nil
	}
	if err := d.Authenticate(ctx); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token, nil
}

// Upload 三步上传：获取上传地址、multipart 上传文件、创建视频条目
func (d *Dailymotion) Upload(ctx context.Context, path string, meta Metadata) (*Video, error) {
	video, err := d.upload(ctx, path, meta)
	if err != nil {
		status := "error"
		if types.IsErrorCode(err, types.ErrQuotaExceeded) {
			status = "quota_exceeded"
		}
		d.collector.RecordUpload(Platform, status)
		d.logger.Error("upload failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	d.collector.RecordUpload(Platform, "success")
	d.logger.Info("video uploaded", zap.String("id", video.ID), zap.String("url", video.URL))
	return video, nil
}

func (d *Dailymotion) upload(ctx context.Context, path string, meta Metadata) (*Video, error) {
	if !d.Configured() {
		return nil, types.NewNotConfiguredError(Platform, missing(d.cfg)...)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, types.NewError(types.ErrAssetMissing, "video not found: "+path).WithCause(err)
	}
	// 预算只在视频条目创建成功后扣减，失败的尝试不占用名额
	if d.limiter.Tokens() < 1 {
		return nil, types.NewError(types.ErrQuotaExceeded, "daily upload budget exhausted").
			WithProvider(Platform).WithHTTPStatus(http.StatusTooManyRequests)
	}
	token, err := d.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var target struct {
		UploadURL string `json:"upload_url"`
	}
	if err := d.getJSON(ctx, d.baseURL+"/file/upload", token, &target); err != nil {
		return nil, fmt.Errorf("get upload url: %w", err)
	}
	if target.UploadURL == "" {
		return nil, types.NewError(types.ErrUploadFailed, "empty upload_url").WithProvider(Platform)
	}

	fileURL, err := d.sendFile(ctx, target.UploadURL, path)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	form := entryForm(fileURL, meta, d.cfg.Channel)
	var created struct {
		ID string `json:"id"`
	}
	if err := d.postForm(ctx, d.baseURL+"/me/videos", token, form, &created); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}
	if created.ID == "" {
		return nil, types.NewError(types.ErrUploadFailed, "dailymotion returned no video id").WithProvider(Platform)
	}
	d.limiter.Allow()
	return &Video{ID: created.ID, URL: "https://www.dailymotion.com/video/" + created.ID}, nil
}

// entryForm 按平台限制截断标题、描述与标签
func entryForm(fileURL string, meta Metadata, channel string) url.Values {
	tags := defaultTags
	if len(meta.Tags) > 0 {
		tags = strings.Join(meta.Tags[:min(len(meta.Tags), maxTags)], ",")
	}
	if meta.Channel != "" {
		channel = meta.Channel
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return url.Values{
		"url":                 {fileURL},
		"title":               {truncate(meta.Title, maxTitle)},
		"description":         {truncate(meta.Description, maxDescription)},
		"tags":                {tags},
		"channel":             {channel},
		"published":           {"true"},
		"is_created_for_kids": {"false"},
	}
}

// sendFile 流式 multipart 上传，不把整个文件读入内存
func (d *Dailymotion) sendFile(ctx context.Context, uploadURL, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = pool.Downloads.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := d.files.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrUploadFailed, "file upload failed").WithCause(err).WithProvider(Platform).WithRetryable(true)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", upstream(resp)
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.URL == "" {
		return "", types.NewError(types.ErrUploadFailed, "upload response has no url").WithProvider(Platform)
	}
	return out.URL, nil
}

// Limits 查询账号上传限制（/me?fields=limits）
func (d *Dailymotion) Limits(ctx context.Context) (map[string]any, error) {
	token, err := d.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := d.getJSON(ctx, d.baseURL+"/me?fields=limits", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VideoStats 平台侧的播放与点赞数
type VideoStats struct {
	Views int64 `json:"views_total"`
	Likes int64 `json:"likes_total"`
}

// Stats 读取单个视频的统计（/video/{id}?fields=views_total,likes_total）
func (d *Dailymotion) Stats(ctx context.Context, videoID string) (*VideoStats, error) {
	if videoID == "" {
		return nil, types.NewInvalidRequestError("video id is required")
	}
	token, err := d.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var out VideoStats
	endpoint := d.baseURL + "/video/" + url.PathEscape(videoID) + "?fields=views_total,likes_total"
	if err := d.getJSON(ctx, endpoint, token, &out); err != nil {
		return nil, fmt.Errorf("video stats %s: %w", videoID, err)
	}
	return &out, nil
}

// StatsRepository 统计回填所需的存储操作，由 *store.Store 实现
type StatsRepository interface {
	ListVideos(ctx context.Context, f store.VideoFilter) ([]store.Video, error)
	UpdateStats(ctx context.Context, id string, views, likes int64) error
}

// RefreshStats 为最近 limit 个已上传到 Dailymotion 的视频回填统计，返回更新条数。
// 单个视频查询失败只记录日志并跳过。
func (d *Dailymotion) RefreshStats(ctx context.Context, repo StatsRepository, limit int) (int, error) {
	if !d.Configured() {
		return 0, types.NewNotConfiguredError(Platform, missing(d.cfg)...)
	}
	videos, err := repo.ListVideos(ctx, store.VideoFilter{Status: store.VideoUploaded, Limit: limit})
	if err != nil {
		return 0, fmt.Errorf("list uploaded videos: %w", err)
	}
	updated := 0
	for _, v := range videos {
		if v.Platform != Platform || v.PlatformVideoID == "" {
			continue
		}
		st, err := d.Stats(ctx, v.PlatformVideoID)
		if err != nil {
			if ctx.Err() != nil {
				return updated, ctx.Err()
			}
			d.logger.Warn("stats refresh failed", zap.String("video_id", v.ID), zap.Error(err))
			continue
		}
		if err := repo.UpdateStats(ctx, v.ID, st.Views, st.Likes); err != nil {
			return updated, err
		}
		updated++
	}
	d.logger.Info("stats refreshed", zap.Int("videos", len(videos)), zap.Int("updated", updated))
	return updated, nil
}

// Remaining 本地令牌桶中剩余的上传次数
func (d *Dailymotion) Remaining() int {
	return int(d.limiter.Tokens())
}

func (d *Dailymotion) getJSON(ctx context.Context, endpoint, token string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return d.do(req, v)
}

func (d *Dailymotion) postForm(ctx context.Context, endpoint, token string, form url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return d.do(req, v)
}

func (d *Dailymotion) do(req *http.Request, v any) error {
	resp, err := d.api.Do(req)
	if err != nil {
		return types.NewError(types.ErrUpstreamError, "dailymotion request failed").
			WithCause(err).WithProvider(Platform).WithRetryable(true)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if resp.StatusCode == http.StatusUnauthorized {
			d.mu.Lock()
			d.token = ""
			d.mu.Unlock()
		}
		return upstream(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func upstream(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return types.NewUpstreamError(Platform, resp.StatusCode, strings.TrimSpace(string(body)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func missing(cfg config.DailymotionConfig) []string {
	var out []string
	if cfg.APIKey == "" {
		out = append(out, "DAILYMOTION_API_KEY")
	}
	if cfg.APISecret == "" {
		out = append(out, "DAILYMOTION_API_SECRET")
	}
	if cfg.Username == "" {
		out = append(out, "DAILYMOTION_USERNAME")
	}
	if cfg.Password == "" {
		out = append(out, "DAILYMOTION_PASSWORD")
	}
	return out
}
