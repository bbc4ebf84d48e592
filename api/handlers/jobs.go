package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/api"
	"github.com/BaSui01/viralshorts/pipeline"
	"github.com/BaSui01/viralshorts/store"
	"github.com/BaSui01/viralshorts/types"
)

// JobQueue 作业入队与事件订阅
type JobQueue interface {
	Enqueue(ctx context.Context, req pipeline.JobRequest) (*store.Job, error)
	Events() *pipeline.Bus
}

// JobReader 作业与视频的只读查询
type JobReader interface {
	GetJob(ctx context.Context, id string) (*store.Job, error)
	ListJobs(ctx context.Context, status string, limit int) ([]store.Job, error)
	ListVideos(ctx context.Context, f store.VideoFilter) ([]store.Video, error)
}

// JobHandler 作业处理器
type JobHandler struct {
	queue  JobQueue
	reader JobReader
	logger *zap.Logger

	// OriginPatterns 允许的 WebSocket Origin，空表示只允许同源
	OriginPatterns []string
}

// NewJobHandler 创建作业处理器
func NewJobHandler(queue JobQueue, reader JobReader, logger *zap.Logger) *JobHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobHandler{queue: queue, reader: reader, logger: logger.With(zap.String("handler", "jobs"))}
}

// HandleCreate POST /api/v1/jobs
func (h *JobHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateJobRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	job, err := h.queue.Enqueue(r.Context(), req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, http.StatusAccepted, api.JobResponse{Job: job})
}

// HandleList GET /api/v1/jobs?status=&limit=
func (h *JobHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.reader.ListJobs(r.Context(), r.URL.Query().Get("status"), QueryInt(r, "limit", 0))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, http.StatusOK, api.NewList(jobs))
}

// HandleGet GET /api/v1/jobs/{id}
func (h *JobHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, r, types.NewInvalidRequestError("job id is required"), h.logger)
		return
	}

	job, err := h.reader.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	videos, err := h.reader.ListVideos(r.Context(), store.VideoFilter{JobID: id})
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, http.StatusOK, api.JobResponse{Job: job, Videos: videos})
}

// HandleEvents GET /api/v1/jobs/{id}/events
//
// 升级为 WebSocket 并推送该作业的事件。作业已结束时立即发送一条
// job_finished 后关闭；否则在收到 job_finished 或客户端断开后关闭。
func (h *JobHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := h.reader.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	// 先订阅再判断状态，避免错过在两步之间结束的作业
	events, cancel := h.queue.Events().Subscribe(id)
	defer cancel()

	// 事件流是长连接，取消服务器级别的写超时
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())

	if job.Status == store.JobSucceeded || job.Status == store.JobFailed {
		_ = h.send(ctx, conn, pipeline.Event{
			Type: pipeline.EventJobFinished, JobID: id, Message: job.Status, Timestamp: time.Now(),
		})
		_ = conn.Close(websocket.StatusNormalClosure, "job finished")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := h.send(ctx, conn, ev); err != nil {
				h.logger.Debug("websocket write failed", zap.String("job_id", id), zap.Error(err))
				return
			}
			if ev.Type == pipeline.EventJobFinished {
				_ = conn.Close(websocket.StatusNormalClosure, "job finished")
				return
			}
		}
	}
}

func (h *JobHandler) send(ctx context.Context, conn *websocket.Conn, ev pipeline.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
