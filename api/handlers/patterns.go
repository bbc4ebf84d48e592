package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/analyzer"
	"github.com/BaSui01/viralshorts/api"
	"github.com/BaSui01/viralshorts/store"
)

// PatternSource 当前生效的病毒模式
type PatternSource interface {
	Patterns() analyzer.Patterns
	PromptBoost() string
}

// PatternLister 存储中的带权重模式
type PatternLister interface {
	ListPatterns(ctx context.Context, kind string) ([]store.Pattern, error)
}

// PatternHandler 病毒模式处理器
type PatternHandler struct {
	source PatternSource
	lister PatternLister
	logger *zap.Logger
}

// NewPatternHandler 创建模式处理器
func NewPatternHandler(source PatternSource, lister PatternLister, logger *zap.Logger) *PatternHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternHandler{source: source, lister: lister, logger: logger.With(zap.String("handler", "patterns"))}
}

// HandleList GET /api/v1/patterns?kind=
func (h *PatternHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	learned, err := h.lister.ListPatterns(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if learned == nil {
		learned = []store.Pattern{}
	}

	resp := api.PatternsResponse{Patterns: analyzer.ProvenPatterns(), Learned: learned}
	if h.source != nil {
		resp.Patterns = h.source.Patterns()
		resp.Boost = h.source.PromptBoost()
	}
	WriteSuccess(w, r, http.StatusOK, resp)
}
