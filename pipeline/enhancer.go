package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/content"
	"github.com/BaSui01/viralshorts/evaluator"
)

// Phase 增强器挂载点
type Phase string

const (
	// PhasePrepare 在内容生成之前
	PhasePrepare Phase = "prepare"
	// PhaseContent 在内容生成之后、素材获取之前
	PhaseContent Phase = "content"
	// PhaseRendered 在渲染完成之后、归档与上传之前
	PhaseRendered Phase = "rendered"
)

// ErrRejected 由增强器返回，表示内容不合格需要重新生成
var ErrRejected = errors.New("content rejected")

// Enhancer 可选的流水线步骤。除 ErrRejected 外，返回的错误和 panic 只会
// 被记录，不会中断生产。
type Enhancer interface {
	Name() string
	Phase() Phase
	Apply(ctx context.Context, d *Draft) error
}

// Rejection 携带拒绝原因
func Rejection(reason string) error {
	return fmt.Errorf("%w: %s", ErrRejected, reason)
}

// safeApply 捕获 panic 并转换为错误
func safeApply(ctx context.Context, e Enhancer, d *Draft) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enhancer %s panicked: %v", e.Name(), r)
		}
	}()
	return e.Apply(ctx, d)
}

// ============================================================
// 内置增强器
// ============================================================

// Booster 提供学习到的病毒模式指引
type Booster interface {
	PromptBoost() string
}

// PromptBoost 把病毒模式指引注入本次生成的提示词
type PromptBoost struct {
	booster Booster
}

func NewPromptBoost(b Booster) *PromptBoost { return &PromptBoost{booster: b} }

func (p *PromptBoost) Name() string { return "prompt_boost" }
func (p *PromptBoost) Phase() Phase { return PhasePrepare }

func (p *PromptBoost) Apply(_ context.Context, d *Draft) error {
	if p.booster == nil {
		return errors.New("no booster configured")
	}
	d.Boost = p.booster.PromptBoost()
	return nil
}

// ContentScorer 对非问答类内容做 AI 病毒潜力评估
type ContentScorer interface {
	Evaluate(ctx context.Context, hook, body, videoType string) (*content.ContentEvaluation, error)
}

// QualityGate 低于阈值的内容被拒绝。WYR 问题走问题评分，其他类型走内容评估。
type QualityGate struct {
	eval      *evaluator.Evaluator
	scorer    ContentScorer
	threshold float64
	logger    *zap.Logger
}

func NewQualityGate(eval *evaluator.Evaluator, scorer ContentScorer, threshold float64, logger *zap.Logger) *QualityGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QualityGate{eval: eval, scorer: scorer, threshold: threshold, logger: logger}
}

func (q *QualityGate) Name() string { return "quality_gate" }
func (q *QualityGate) Phase() Phase { return PhaseContent }

func (q *QualityGate) Apply(ctx context.Context, d *Draft) error {
	var score float64
	switch {
	case d.Type == content.TypeWouldYouRather && !d.Dynamic && q.eval != nil:
		s := q.eval.EvaluateQuestion(ctx, d.MainText, d.SecondaryText)
		if s.Verdict == evaluator.VerdictSkip {
			d.QualityScore = s.Overall
			return Rejection("verdict " + s.Verdict)
		}
		score = s.Overall
	case q.scorer != nil:
		ev, err := q.scorer.Evaluate(ctx, d.Hook, d.Narration, string(d.Type))
		if err != nil {
			return err
		}
		score = float64(ev.Overall)
	default:
		return errors.New("no evaluator configured")
	}

	d.QualityScore = score
	if score < q.threshold {
		return Rejection(fmt.Sprintf("score %.1f below %.1f", score, q.threshold))
	}
	return nil
}

// AlgorithmSignals 计算滑动停留力、预测点击率与算法信号
type AlgorithmSignals struct{}

func (AlgorithmSignals) Name() string { return "algorithm_signals" }
func (AlgorithmSignals) Phase() Phase { return PhaseRendered }

func (AlgorithmSignals) Apply(_ context.Context, d *Draft) error {
	d.metadata()
	d.ScrollStop = evaluator.ScoreScrollStopPower(d.Hook)
	d.PredictedCTR = evaluator.PredictCTR(d.Title, d.Hook)
	d.Signals = evaluator.AlgorithmSignals(d.Narration)
	return nil
}

// ============================================================
// 注册表
// ============================================================

// Registry 按名称构建增强器
type Registry map[string]func() Enhancer

// Build 按 names 顺序实例化，未知名称返回错误
func (r Registry) Build(names []string) ([]Enhancer, error) {
	out := make([]Enhancer, 0, len(names))
	for _, n := range names {
		ctor, ok := r[n]
		if !ok {
			return nil, fmt.Errorf("unknown enhancer %q (known: %v)", n, r.Names())
		}
		out = append(out, ctor())
	}
	return out, nil
}

// Names 已注册的名称，排序后返回
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
