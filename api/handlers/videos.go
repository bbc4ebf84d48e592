package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/api"
	"github.com/BaSui01/viralshorts/store"
)

// VideoHandler 视频查询
type VideoHandler struct {
	reader JobReader
	logger *zap.Logger
}

// NewVideoHandler 创建视频处理器
func NewVideoHandler(reader JobReader, logger *zap.Logger) *VideoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoHandler{reader: reader, logger: logger.With(zap.String("handler", "videos"))}
}

// HandleList GET /api/v1/videos?job_id=&status=&type=&limit=
func (h *VideoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	videos, err := h.reader.ListVideos(r.Context(), store.VideoFilter{
		JobID:  q.Get("job_id"),
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Limit:  QueryInt(r, "limit", 0),
	})
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, http.StatusOK, api.NewList(videos))
}
