// Package store persists jobs, videos and learned patterns with GORM. The
// schema itself is owned by internal/migration.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/viralshorts/types"
)

const defaultListLimit = 50

// Store 仓储
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New 创建仓储
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "store"))}
}

func notFound(what, id string) error {
	return types.NewError(types.ErrNotFound, what+" not found: "+id).WithHTTPStatus(404)
}

func limitOr(n int) int {
	if n <= 0 || n > 500 {
		return defaultListLimit
	}
	return n
}

// ============================================================
// Jobs
// ============================================================

func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	if job.Status == "" {
		job.Status = JobQueued
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	var job Job
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("job", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// ListJobs 按创建时间倒序；status 为空时不过滤
func (s *Store) ListJobs(ctx context.Context, status string, limit int) ([]Job, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limitOr(limit))
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var jobs []Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// MarkJobRunning 记录开始时间
func (s *Store) MarkJobRunning(ctx context.Context, id string) error {
	now := time.Now()
	return s.updateJob(ctx, id, map[string]any{"status": JobRunning, "started_at": &now})
}

// FinishJob 写入最终状态、错误信息与生成的视频 ID
func (s *Store) FinishJob(ctx context.Context, id, status, errMsg string, videoIDs []string) error {
	now := time.Now()
	return s.updateJob(ctx, id, map[string]any{
		"status":      status,
		"error":       errMsg,
		"video_ids":   StringList(videoIDs),
		"finished_at": &now,
	})
}

func (s *Store) updateJob(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("job", id)
	}
	return nil
}

// ============================================================
// Videos
// ============================================================

func (s *Store) CreateVideo(ctx context.Context, v *Video) error {
	if v.Status == "" {
		v.Status = VideoRendered
	}
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	return nil
}

func (s *Store) GetVideo(ctx context.Context, id string) (*Video, error) {
	var v Video
	err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("video", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return &v, nil
}

// VideoFilter 列表过滤条件
type VideoFilter struct {
	JobID  string
	Status string
	Type   string
	Limit  int
}

func (s *Store) ListVideos(ctx context.Context, f VideoFilter) ([]Video, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limitOr(f.Limit))
	if f.JobID != "" {
		q = q.Where("job_id = ?", f.JobID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("video_type = ?", f.Type)
	}
	var out []Video
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return out, nil
}

// MarkUploaded 记录平台视频 ID 和地址
func (s *Store) MarkUploaded(ctx context.Context, id, platform, platformID, url string) error {
	return s.updateVideo(ctx, id, map[string]any{
		"status":            VideoUploaded,
		"platform":          platform,
		"platform_video_id": platformID,
		"platform_url":      url,
	})
}

// SetArchiveURL 记录对象存储中的归档地址
func (s *Store) SetArchiveURL(ctx context.Context, id, url string) error {
	return s.updateVideo(ctx, id, map[string]any{"archive_url": url})
}

// UpdateStats 更新平台统计
func (s *Store) UpdateStats(ctx context.Context, id string, views, likes int64) error {
	return s.updateVideo(ctx, id, map[string]any{"views": views, "likes": likes})
}

func (s *Store) updateVideo(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&Video{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update video: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("video", id)
	}
	return nil
}

// TopPerforming 按 views + likes*10 排序
func (s *Store) TopPerforming(ctx context.Context, n int) ([]Video, error) {
	var out []Video
	err := s.db.WithContext(ctx).
		Order("views + likes * 10 DESC").
		Order("created_at DESC").
		Limit(limitOr(n)).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("top performing: %w", err)
	}
	return out, nil
}

// ============================================================
// Patterns
// ============================================================

// UpsertPattern 新增模式；已存在时 weight 加一
func (s *Store) UpsertPattern(ctx context.Context, kind, value, source string) error {
	p := Pattern{Kind: kind, Value: value, Source: source, Weight: 1}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "kind"}, {Name: "value"}},
		DoUpdates: clause.Assignments(map[string]any{
			"weight":     gorm.Expr("patterns.weight + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("upsert pattern: %w", err)
	}
	return nil
}

// SavePatterns 批量写入同一类别的模式
func (s *Store) SavePatterns(ctx context.Context, kind, source string, values []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs := &Store{db: tx, logger: s.logger}
		for _, v := range values {
			if v == "" {
				continue
			}
			if err := txs.UpsertPattern(ctx, kind, v, source); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListPatterns 按权重倒序；kind 为空时返回全部
func (s *Store) ListPatterns(ctx context.Context, kind string) ([]Pattern, error) {
	q := s.db.WithContext(ctx).Order("weight DESC").Order("id ASC")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var out []Pattern
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	return out, nil
}

// LoadPatterns 以类别分组返回全部模式
func (s *Store) LoadPatterns(ctx context.Context) (map[string][]string, error) {
	all, err := s.ListPatterns(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, p := range all {
		out[p.Kind] = append(out[p.Kind], p.Value)
	}
	return out, nil
}
