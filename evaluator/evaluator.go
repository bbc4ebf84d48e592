// Package evaluator scores generated content before and after rendering.
//
// AI-backed checks (EvaluateQuestion, EvaluateConcept, BatchEvaluate) never
// fail: without a caller, or on any provider or parse error, they return a
// neutral score so the pipeline can keep going. The heuristic scorers in
// heuristics.go need no AI at all.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/viralshorts/content"
	"github.com/BaSui01/viralshorts/llm"
)

// Verdicts returned by EvaluateQuestion.
const (
	VerdictViralWorthy = "VIRAL_WORTHY"
	VerdictNeedsWork   = "NEEDS_WORK"
	VerdictSkip        = "SKIP"
)

// Batch quality bands.
const (
	QualityLow  = "LOW"
	QualityOK   = "OK"
	QualityGood = "GOOD"
)

const (
	// NeutralScore is reported whenever AI evaluation is unavailable.
	NeutralScore = 5.0

	// DefaultBatchLimit caps how many questions BatchEvaluate sends to the AI.
	DefaultBatchLimit = 10

	batchConcurrency = 3

	systemPrompt = "You are a viral content expert. Rate questions honestly. Be harsh - only truly engaging content gets high scores."
)

// Question is a "Would You Rather" pair.
type Question struct {
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
}

// QuestionScore is the AI rating of a question.
type QuestionScore struct {
	Overall      float64 `json:"overall_score"`
	Engagement   float64 `json:"engagement"`
	Relatability float64 `json:"relatability"`
	Balance      float64 `json:"balance"`
	Hook         float64 `json:"hook"`
	Shareability float64 `json:"shareability"`
	Verdict      string  `json:"verdict"`
	Suggestions  string  `json:"suggestions,omitempty"`

	// Feedback is set when the score is the neutral fallback.
	Feedback string `json:"feedback,omitempty"`
}

// ConceptVerdict decides whether a concept is worth rendering.
type ConceptVerdict struct {
	ShouldGenerate bool    `json:"should_generate"`
	Score          float64 `json:"score"`
	Reason         string  `json:"reason,omitempty"`
}

// BatchReport aggregates BatchEvaluate.
type BatchReport struct {
	Scores      []QuestionScore `json:"scores"`
	Average     float64         `json:"average"`
	ViralWorthy int             `json:"viral_worthy"`
	NeedsWork   int             `json:"needs_work"`
	Skip        int             `json:"skip"`
	Quality     string          `json:"quality,omitempty"`
}

// Evaluator wraps an llm.Caller with prompts and graceful fallbacks.
type Evaluator struct {
	caller llm.Caller
	models map[string]string
	logger *zap.Logger
}

// New creates an Evaluator. caller may be nil; models overrides the model per
// provider (the small Groq model by default in production config).
func New(caller llm.Caller, models map[string]string, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		caller: caller,
		models: models,
		logger: logger.With(zap.String("component", "evaluator")),
	}
}

func neutralQuestion(feedback string) QuestionScore {
	return QuestionScore{
		Overall:  NeutralScore,
		Verdict:  VerdictNeedsWork,
		Feedback: feedback,
	}
}

// EvaluateQuestion rates a question on engagement, relatability, balance,
// hook and shareability.
func (e *Evaluator) EvaluateQuestion(ctx context.Context, optionA, optionB string) QuestionScore {
	if e.caller == nil {
		return neutralQuestion("AI evaluation unavailable (no API key)")
	}

	prompt := fmt.Sprintf(`Rate this "Would You Rather" question for viral YouTube Shorts potential.

Question: Would you rather...
A: %s
B: %s

Rate 1-10 on these criteria:
1. ENGAGEMENT: Will viewers debate in comments?
2. RELATABILITY: Can most people imagine both scenarios?
3. BALANCE: Are both options truly difficult to choose between?
4. HOOK: Does it grab attention immediately?
5. SHAREABILITY: Would viewers share this?

Return JSON only:
{
  "overall_score": 1-10,
  "engagement": 1-10,
  "relatability": 1-10,
  "balance": 1-10,
  "hook": 1-10,
  "shareability": 1-10,
  "verdict": "VIRAL_WORTHY" or "NEEDS_WORK" or "SKIP",
  "suggestions": "1-2 sentence improvement suggestion"
}`, optionA, optionB)

	out, err := e.caller.Call(ctx, prompt, llm.CallOptions{
		System:      systemPrompt,
		Temperature: 0.3,
		MaxTokens:   300,
		Models:      e.models,
	})
	if err != nil {
		e.logger.Warn("question evaluation failed", zap.Error(err))
		return neutralQuestion(fmt.Sprintf("Evaluation error: %v", err))
	}

	var score QuestionScore
	if err := content.DecodeJSON(out, &score); err != nil {
		return neutralQuestion("Failed to parse AI response")
	}
	return normalizeQuestion(score)
}

func normalizeQuestion(s QuestionScore) QuestionScore {
	s.Overall = clampScore(s.Overall)
	s.Engagement = clampScore(s.Engagement)
	s.Relatability = clampScore(s.Relatability)
	s.Balance = clampScore(s.Balance)
	s.Hook = clampScore(s.Hook)
	s.Shareability = clampScore(s.Shareability)
	switch v := strings.ToUpper(strings.TrimSpace(s.Verdict)); v {
	case VerdictViralWorthy, VerdictSkip:
		s.Verdict = v
	default:
		s.Verdict = VerdictNeedsWork
	}
	return s
}

// EvaluateConcept is a quick go/no-go check before spending render time.
// It degrades to {true, 5}.
func (e *Evaluator) EvaluateConcept(ctx context.Context, optionA, optionB, theme string) ConceptVerdict {
	fallback := ConceptVerdict{ShouldGenerate: true, Score: NeutralScore}
	if e.caller == nil {
		return fallback
	}

	prompt := fmt.Sprintf(`Quick assessment - should we generate a video for this content?

Question: Would you rather %s OR %s?
Visual Theme: %s

Criteria:
- Is this question interesting enough for YouTube Shorts?
- Will it generate comments and engagement?
- Is it appropriate and non-offensive?

Return JSON:
{
  "should_generate": true/false,
  "score": 1-10,
  "reason": "1 sentence reason"
}`, optionA, optionB, theme)

	out, err := e.caller.Call(ctx, prompt, llm.CallOptions{
		Temperature: 0.2,
		MaxTokens:   150,
		Models:      e.models,
	})
	if err != nil {
		e.logger.Warn("concept evaluation failed", zap.Error(err))
		return fallback
	}
	var v ConceptVerdict
	if err := content.DecodeJSON(out, &v); err != nil {
		return fallback
	}
	v.Score = clampScore(v.Score)
	return v
}

// BatchEvaluate rates up to limit questions (DefaultBatchLimit when <= 0)
// and summarises them.
func (e *Evaluator) BatchEvaluate(ctx context.Context, questions []Question, limit int) BatchReport {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	if len(questions) > limit {
		questions = questions[:limit]
	}

	scores := make([]QuestionScore, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, q := range questions {
		g.Go(func() error {
			scores[i] = e.EvaluateQuestion(gctx, q.OptionA, q.OptionB)
			return nil
		})
	}
	_ = g.Wait()

	return Summarize(scores)
}

// Summarize computes the average, verdict counts and quality band.
func Summarize(scores []QuestionScore) BatchReport {
	r := BatchReport{Scores: scores}
	if len(scores) == 0 {
		return r
	}
	var sum float64
	for _, s := range scores {
		sum += s.Overall
		switch s.Verdict {
		case VerdictViralWorthy:
			r.ViralWorthy++
		case VerdictSkip:
			r.Skip++
		default:
			r.NeedsWork++
		}
	}
	r.Average = sum / float64(len(scores))
	switch {
	case r.Average < 5:
		r.Quality = QualityLow
	case r.Average >= 7:
		r.Quality = QualityGood
	default:
		r.Quality = QualityOK
	}
	return r
}

// LoadQuestions reads a JSON array of questions from path.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var qs []Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("parse questions %s: %w", path, err)
	}
	return qs, nil
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return NeutralScore
	}
	return math.Max(0, math.Min(10, v))
}
