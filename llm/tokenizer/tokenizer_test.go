package tokenizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingTokenizer struct{}

func (failingTokenizer) CountTokens(string) (int, error)      { return 0, errors.New("offline") }
func (failingTokenizer) CountMessages([]Message) (int, error) { return 0, errors.New("offline") }
func (failingTokenizer) MaxTokens() int                       { return 8192 }
func (failingTokenizer) Name() string                         { return "failing" }

func TestEstimator_CountTokens(t *testing.T) {
	e := NewEstimatorTokenizer("llama-3.3-70b-versatile", 0)
	assert.Equal(t, 4096, e.MaxTokens())

	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, _ = e.CountTokens("a")
	assert.Equal(t, 1, n, "non-empty text is at least one token")

	n, _ = e.CountTokens(strings.Repeat("abcd", 100))
	assert.Equal(t, 100, n)

	n, _ = e.CountTokens("你好世界吗哈")
	assert.Equal(t, 4, n)
}

func TestEstimator_CountMessages(t *testing.T) {
	e := NewEstimatorTokenizer("m", 100)
	n, err := e.CountMessages([]Message{
		{Role: "system", Content: strings.Repeat("x", 40)},
		{Role: "user", Content: strings.Repeat("y", 40)},
	})
	require.NoError(t, err)
	assert.Equal(t, 10+4+10+4+3, n)
}

func TestLookup(t *testing.T) {
	enc, window := lookup("gpt-4o-mini")
	assert.Equal(t, "o200k_base", enc)
	assert.Equal(t, 128000, window)

	_, window = lookup("llama-3.3-70b-versatile")
	assert.Equal(t, 131072, window)

	enc, window = lookup("unknown-model")
	assert.Equal(t, "cl100k_base", enc)
	assert.Equal(t, 8192, window)
}

func TestFallback_UsesEstimatorWhenPrimaryFails(t *testing.T) {
	f := newFallback(failingTokenizer{}, NewEstimatorTokenizer("m", 8192))
	n, err := f.CountTokens(strings.Repeat("abcd", 10))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 8192, f.MaxTokens())
	assert.Equal(t, "failing|estimator", f.Name())
}

func TestBudget_Check(t *testing.T) {
	tok := NewEstimatorTokenizer("m", 1000)
	msgs := []Message{{Role: "user", Content: strings.Repeat("abcd", 100)}} // 100 + 4 + 3

	prompt, maxTokens, err := Budget{MaxPromptTokens: 500, DefaultMaxTokens: 256}.Check(tok, msgs, 0)
	require.NoError(t, err)
	assert.Equal(t, 107, prompt)
	assert.Equal(t, 256, maxTokens)

	_, maxTokens, err = Budget{}.Check(tok, msgs, 5000)
	require.NoError(t, err)
	assert.Equal(t, 1000-107, maxTokens, "clamped to remaining context")

	_, _, err = Budget{MaxPromptTokens: 50}.Check(tok, msgs, 0)
	assert.ErrorIs(t, err, ErrPromptTooLong)

	small := NewEstimatorTokenizer("m", 100)
	_, _, err = Budget{}.Check(small, msgs, 0)
	assert.ErrorIs(t, err, ErrPromptTooLong)
}

func TestForModel_CountsWithoutError(t *testing.T) {
	tok := ForModel("llama-3.3-70b-versatile")
	n, err := tok.CountTokens("Would you rather fly or be invisible?")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	assert.Equal(t, 131072, tok.MaxTokens())
}
