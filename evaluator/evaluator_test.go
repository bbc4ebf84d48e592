package evaluator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/viralshorts/llm"
)

func fixed(reply string, err error) llm.Caller {
	return llm.CallerFunc(func(context.Context, string, llm.CallOptions) (string, error) {
		return reply, err
	})
}

func TestEvaluateQuestion_NoCaller(t *testing.T) {
	s := New(nil, nil, nil).EvaluateQuestion(context.Background(), "a", "b")
	assert.Equal(t, NeutralScore, s.Overall)
	assert.Equal(t, "AI evaluation unavailable (no API key)", s.Feedback)
}

func TestEvaluateQuestion_Degrades(t *testing.T) {
	s := New(fixed("", errors.New("rate limited")), nil, nil).EvaluateQuestion(context.Background(), "a", "b")
	assert.Equal(t, NeutralScore, s.Overall)
	assert.Contains(t, s.Feedback, "rate limited")

	s = New(fixed("I think it's great", nil), nil, nil).EvaluateQuestion(context.Background(), "a", "b")
	assert.Equal(t, NeutralScore, s.Overall)
	assert.Equal(t, "Failed to parse AI response", s.Feedback)
}

func TestEvaluateQuestion_Parses(t *testing.T) {
	var gotOpts llm.CallOptions
	var gotPrompt string
	caller := llm.CallerFunc(func(_ context.Context, prompt string, opts llm.CallOptions) (string, error) {
		gotPrompt, gotOpts = prompt, opts
		return `Here you go: {"overall_score": 12, "engagement": 8, "balance": 6, "verdict": "viral_worthy", "suggestions": "Raise stakes"}`, nil
	})
	e := New(caller, map[string]string{"groq": "llama-3.1-8b-instant"}, nil)

	s := e.EvaluateQuestion(context.Background(), "fly", "be invisible")
	assert.Equal(t, 10.0, s.Overall)
	assert.Equal(t, 8.0, s.Engagement)
	assert.Equal(t, VerdictViralWorthy, s.Verdict)
	assert.Empty(t, s.Feedback)

	assert.Contains(t, gotPrompt, "A: fly")
	assert.Contains(t, gotPrompt, "B: be invisible")
	assert.Equal(t, systemPrompt, gotOpts.System)
	assert.InDelta(t, 0.3, gotOpts.Temperature, 1e-6)
	assert.Equal(t, 300, gotOpts.MaxTokens)
	assert.Equal(t, "llama-3.1-8b-instant", gotOpts.Models["groq"])
}

func TestEvaluateConcept(t *testing.T) {
	v := New(nil, nil, nil).EvaluateConcept(context.Background(), "a", "b", "neon")
	assert.Equal(t, ConceptVerdict{ShouldGenerate: true, Score: 5}, v)

	v = New(fixed("", errors.New("down")), nil, nil).EvaluateConcept(context.Background(), "a", "b", "neon")
	assert.True(t, v.ShouldGenerate)

	v = New(fixed(`{"should_generate": false, "score": 2, "reason": "boring"}`, nil), nil, nil).
		EvaluateConcept(context.Background(), "a", "b", "neon")
	assert.False(t, v.ShouldGenerate)
	assert.Equal(t, 2.0, v.Score)
	assert.Equal(t, "boring", v.Reason)
}

func TestBatchEvaluate(t *testing.T) {
	var calls atomic.Int32
	caller := llm.CallerFunc(func(_ context.Context, prompt string, _ llm.CallOptions) (string, error) {
		calls.Add(1)
		switch {
		case strings.Contains(prompt, "A: great"):
			return `{"overall_score": 9, "verdict": "VIRAL_WORTHY"}`, nil
		case strings.Contains(prompt, "A: bad"):
			return `{"overall_score": 2, "verdict": "SKIP"}`, nil
		default:
			return `{"overall_score": 6, "verdict": "NEEDS_WORK"}`, nil
		}
	})

	qs := []Question{{OptionA: "great"}, {OptionA: "bad"}, {OptionA: "meh"}}
	for i := 0; i < 12; i++ {
		qs = append(qs, Question{OptionA: "extra"})
	}
	r := New(caller, nil, nil).BatchEvaluate(context.Background(), qs, 0)
	assert.Equal(t, int32(DefaultBatchLimit), calls.Load())
	require.Len(t, r.Scores, DefaultBatchLimit)
	assert.Equal(t, 9.0, r.Scores[0].Overall)
	assert.Equal(t, 1, r.ViralWorthy)
	assert.Equal(t, 1, r.Skip)
	assert.Equal(t, 8, r.NeedsWork)
	assert.InDelta(t, (9+2+6*8)/10.0, r.Average, 1e-9)
	assert.Equal(t, QualityOK, r.Quality)
}

func TestSummarize_QualityBands(t *testing.T) {
	assert.Equal(t, QualityLow, Summarize([]QuestionScore{{Overall: 4.9}}).Quality)
	assert.Equal(t, QualityOK, Summarize([]QuestionScore{{Overall: 5}}).Quality)
	assert.Equal(t, QualityGood, Summarize([]QuestionScore{{Overall: 7}}).Quality)
	assert.Empty(t, Summarize(nil).Quality)
}

func TestLoadQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"option_a":"x","option_b":"y"}]`), 0o644))
	qs, err := LoadQuestions(path)
	require.NoError(t, err)
	assert.Equal(t, []Question{{OptionA: "x", OptionB: "y"}}, qs)

	_, err = LoadQuestions(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
