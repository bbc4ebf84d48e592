package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/content"
	"github.com/BaSui01/viralshorts/internal/ctxkeys"
	"github.com/BaSui01/viralshorts/internal/metrics"
	"github.com/BaSui01/viralshorts/internal/pool"
	"github.com/BaSui01/viralshorts/store"
	"github.com/BaSui01/viralshorts/types"
)

// MaxCount 单个作业最多生成的视频数
const MaxCount = 20

// JobRepository 持久化作业状态
type JobRepository interface {
	CreateJob(ctx context.Context, job *store.Job) error
	GetJob(ctx context.Context, id string) (*store.Job, error)
	MarkJobRunning(ctx context.Context, id string) error
	FinishJob(ctx context.Context, id, status, errMsg string, videoIDs []string) error
}

// Producer 生产单个视频
type Producer interface {
	Produce(ctx context.Context, req Request) (*store.Video, error)
}

// JobRequest 作业请求
type JobRequest struct {
	Type    string `json:"type"`
	Count   int    `json:"count"`
	Upload  bool   `json:"upload"`
	Dynamic bool   `json:"dynamic"`
}

// Validate 规范化并校验请求
func (r *JobRequest) Validate() error {
	if r.Type == "" {
		r.Type = string(content.TypeRandom)
	}
	t, err := content.ParseVideoType(r.Type)
	if err != nil {
		return types.NewInvalidRequestError(err.Error())
	}
	r.Type = string(t)
	if r.Count == 0 {
		r.Count = 1
	}
	if r.Count < 0 || r.Count > MaxCount {
		return types.NewInvalidRequestError(fmt.Sprintf("count must be between 1 and %d", MaxCount))
	}
	return nil
}

// RunnerConfig 作业运行参数
type RunnerConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// Runner 在 worker pool 上执行作业
type Runner struct {
	producer Producer
	jobs     JobRepository
	pool     *pool.WorkerPool
	bus      *Bus
	timeout  time.Duration

	// base 作业的父 context，Close 时取消
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	collector *metrics.Collector
	logger    *zap.Logger
}

// NewRunner 创建作业运行器
func NewRunner(producer Producer, jobs JobRepository, bus *Bus, cfg RunnerConfig, collector *metrics.Collector, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = NewBus(0, logger)
	}
	base, cancel := context.WithCancel(context.Background())
	return &Runner{
		producer: producer,
		jobs:     jobs,
		pool: pool.New(pool.Config{
			Workers:   cfg.Workers,
			QueueSize: cfg.QueueSize,
		}, logger),
		bus:       bus,
		timeout:   cfg.JobTimeout,
		base:      base,
		cancel:    cancel,
		collector: collector,
		logger:    logger.With(zap.String("component", "job_runner")),
	}
}

// Events 事件总线
func (r *Runner) Events() *Bus { return r.bus }

// Stats worker pool 状态
func (r *Runner) Stats() pool.Stats { return r.pool.Stats() }

func (r *Runner) create(ctx context.Context, req JobRequest) (*store.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := &store.Job{
		ID:        uuid.NewString(),
		VideoType: req.Type,
		Count:     req.Count,
		Upload:    req.Upload,
		Dynamic:   req.Dynamic,
		Status:    store.JobQueued,
	}
	if err := r.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Enqueue 创建作业并异步执行
func (r *Runner) Enqueue(ctx context.Context, req JobRequest) (*store.Job, error) {
	job, err := r.create(ctx, req)
	if err != nil {
		return nil, err
	}

	r.wg.Add(1)
	err = r.pool.Submit(r.base, func(ctx context.Context) error {
		defer r.wg.Done()
		return r.execute(ctx, job.ID, req)
	})
	if err != nil {
		r.wg.Done()
		msg := "job queue unavailable: " + err.Error()
		_ = r.jobs.FinishJob(ctx, job.ID, store.JobFailed, msg, nil)
		if errors.Is(err, pool.ErrPoolFull) {
			return nil, types.NewError(types.ErrRateLimited, "job queue is full").
				WithHTTPStatus(503).WithRetryable(true)
		}
		return nil, fmt.Errorf("submit job: %w", err)
	}

	r.bus.Publish(Event{Type: EventJobQueued, JobID: job.ID})
	r.logger.Info("job queued", zap.String("job_id", job.ID), zap.String("type", req.Type), zap.Int("count", req.Count))
	return job, nil
}

// Run 同步执行作业，返回最终状态
func (r *Runner) Run(ctx context.Context, req JobRequest) (*store.Job, error) {
	job, err := r.create(ctx, req)
	if err != nil {
		return nil, err
	}
	runErr := r.execute(ctx, job.ID, req)
	final, err := r.jobs.GetJob(context.WithoutCancel(ctx), job.ID)
	if err != nil {
		return nil, err
	}
	return final, runErr
}

// execute 逐个生产视频；至少一个成功即视为作业成功
func (r *Runner) execute(ctx context.Context, jobID string, req JobRequest) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ctx = ctxkeys.WithJobID(ctx, jobID)
	log := r.logger.With(zap.String("job_id", jobID))

	if err := r.jobs.MarkJobRunning(ctx, jobID); err != nil {
		return err
	}
	r.collector.JobStarted()
	r.bus.Publish(Event{Type: EventJobStarted, JobID: jobID})
	start := time.Now()

	var (
		ids  []string
		errs []string
	)
	for i := 0; i < req.Count; i++ {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err().Error())
			break
		}
		v, err := r.producer.Produce(ctx, Request{
			JobID:   jobID,
			Type:    content.VideoType(req.Type),
			Dynamic: req.Dynamic,
			Upload:  req.Upload,
		})
		if err != nil {
			log.Warn("video failed", zap.Int("index", i), zap.Error(err))
			errs = append(errs, err.Error())
			continue
		}
		ids = append(ids, v.ID)
		r.bus.Publish(Event{Type: EventVideoDone, JobID: jobID, VideoID: v.ID, Message: v.FilePath})
	}

	status := store.JobSucceeded
	if len(ids) == 0 {
		status = store.JobFailed
	}
	msg := strings.Join(errs, "; ")

	// 作业超时后仍需写入最终状态
	if err := r.jobs.FinishJob(context.WithoutCancel(ctx), jobID, status, msg, ids); err != nil {
		log.Error("persist job result failed", zap.Error(err))
	}
	r.collector.JobFinished(status)
	r.bus.Publish(Event{Type: EventJobFinished, JobID: jobID, Message: status})
	log.Info("job finished",
		zap.String("status", status),
		zap.Int("videos", len(ids)),
		zap.Int("failures", len(errs)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if status == store.JobFailed {
		return types.NewError(types.ErrInternalError, "job failed: "+msg)
	}
	return nil
}

// Close 停止接收作业，等待进行中的作业结束或 ctx 超时后取消它们
func (r *Runner) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		r.cancel()
		err = ctx.Err()
	}
	r.cancel()
	if perr := r.pool.Close(ctx); perr != nil && err == nil {
		err = perr
	}
	return err
}
