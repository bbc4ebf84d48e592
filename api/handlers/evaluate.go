package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/api"
	"github.com/BaSui01/viralshorts/evaluator"
	"github.com/BaSui01/viralshorts/types"
)

// BatchEvaluator AI 批量评分
type BatchEvaluator interface {
	BatchEvaluate(ctx context.Context, questions []evaluator.Question, limit int) evaluator.BatchReport
}

// EvaluateHandler 评估处理器
type EvaluateHandler struct {
	eval   BatchEvaluator
	logger *zap.Logger
}

// NewEvaluateHandler 创建评估处理器。eval 为 nil 时只提供启发式评分。
func NewEvaluateHandler(eval BatchEvaluator, logger *zap.Logger) *EvaluateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluateHandler{eval: eval, logger: logger.With(zap.String("handler", "evaluate"))}
}

// HandleEvaluate POST /api/v1/evaluate
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req api.EvaluateRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	hasHeuristic := req.Hook != "" || req.Title != "" || req.Narration != ""
	if len(req.Questions) == 0 && !hasHeuristic {
		WriteError(w, r, types.NewInvalidRequestError("questions or hook/title/narration required"), h.logger)
		return
	}

	var resp api.EvaluateResponse
	if len(req.Questions) > 0 {
		if h.eval == nil {
			WriteError(w, r, types.NewNotConfiguredError("evaluator", "llm"), h.logger)
			return
		}
		report := h.eval.BatchEvaluate(r.Context(), req.Questions, req.Limit)
		resp.Batch = &report
	}
	if hasHeuristic {
		hook := req.Hook
		if hook == "" {
			hook = req.Title
		}
		resp.Heuristics = &api.Heuristics{
			ScrollStopPower: evaluator.ScoreScrollStopPower(hook),
			PredictedCTR:    evaluator.PredictCTR(req.Title, hook),
			Signals:         evaluator.AlgorithmSignals(req.Narration),
		}
	}
	WriteSuccess(w, r, http.StatusOK, resp)
}
