package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/internal/cache"
)

type countingCaller struct {
	calls int
	reply string
	err   error
}

func (c *countingCaller) Call(context.Context, string, CallOptions) (string, error) {
	c.calls++
	return c.reply, c.err
}

func newTestStore(t *testing.T) *cache.Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	m, err := cache.NewManager(cache.Config{Addr: mr.Addr(), Namespace: "test"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestCachedCaller_HitAfterMiss(t *testing.T) {
	next := &countingCaller{reply: `{"score": 8}`}
	c := NewCachedCaller(next, newTestStore(t), time.Hour, nil, nil)
	ctx := context.Background()
	opts := CallOptions{Temperature: 0.3, JSON: true}

	first, err := c.Call(ctx, "evaluate this", opts)
	require.NoError(t, err)
	second, err := c.Call(ctx, "evaluate this", opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)

	// 不同温度是不同的键
	_, err = c.Call(ctx, "evaluate this", CallOptions{Temperature: 0.9, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedCaller_NoCacheBypasses(t *testing.T) {
	next := &countingCaller{reply: "fresh"}
	c := NewCachedCaller(next, newTestStore(t), time.Hour, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := c.Call(context.Background(), "topics", CallOptions{NoCache: true})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, next.calls)
}

func TestCachedCaller_ErrorsAreNotCached(t *testing.T) {
	next := &countingCaller{err: errors.New("all down")}
	c := NewCachedCaller(next, newTestStore(t), time.Hour, nil, nil)

	_, err := c.Call(context.Background(), "p", CallOptions{})
	require.Error(t, err)
	_, _ = c.Call(context.Background(), "p", CallOptions{})
	assert.Equal(t, 2, next.calls)
}

func TestCachedCaller_NilStorePassesThrough(t *testing.T) {
	next := &countingCaller{reply: "x"}
	c := NewCachedCaller(next, nil, time.Hour, nil, nil)
	out, err := c.Call(context.Background(), "p", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestResponseKey_StableModelOrder(t *testing.T) {
	a := responseKey("p", CallOptions{Models: map[string]string{"groq": "a", "gemini": "b"}})
	b := responseKey("p", CallOptions{Models: map[string]string{"gemini": "b", "groq": "a"}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, responseKey("q", CallOptions{}))
}
