package pool

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestWorkerPool_SubmitWaitReturnsTaskError(t *testing.T) {
	p := New(Config{Workers: 2, QueueSize: 4}, zap.NewNop())
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	boom := errors.New("boom")
	err := p.SubmitWait(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	require.NoError(t, p.SubmitWait(context.Background(), func(ctx context.Context) error { return nil }))

	st := p.Stats()
	assert.Equal(t, int64(2), st.Submitted)
	assert.Equal(t, int64(1), st.Completed)
	assert.Equal(t, int64(1), st.Failed)
}

func TestWorkerPool_PanicIsRecovered(t *testing.T) {
	p := New(Config{Workers: 1, QueueSize: 1}, nil)
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	err := p.SubmitWait(context.Background(), func(ctx context.Context) error { panic("ffmpeg exploded") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg exploded")

	// the worker survives the panic
	assert.NoError(t, p.SubmitWait(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	p := New(Config{Workers: 2, QueueSize: 16}, zap.NewNop())

	var running, peak atomic.Int32
	for i := 0; i < 8; i++ {
		require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		}))
	}

	require.NoError(t, p.Close(context.Background()))
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int64(8), p.Stats().Completed)
}

func TestWorkerPool_SubmitFullQueue(t *testing.T) {
	p := New(Config{Workers: 1, QueueSize: 1}, zap.NewNop())
	release := make(chan struct{})
	started := make(chan struct{})
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error { return nil }))

	err := p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolFull)
	assert.Equal(t, int64(1), p.Stats().Rejected)
	close(release)
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	p := New(DefaultConfig(), zap.NewNop())
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))

	assert.ErrorIs(t, p.Submit(context.Background(), func(ctx context.Context) error { return nil }), ErrPoolClosed)
	assert.ErrorIs(t, p.SubmitWait(context.Background(), func(ctx context.Context) error { return nil }), ErrPoolClosed)
}

func TestWorkerPool_CancelledContextSkipsTask(t *testing.T) {
	p := New(Config{Workers: 1, QueueSize: 1}, zap.NewNop())
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Bool
	err := p.SubmitWait(ctx, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())
}

func TestBufferPool_Copy(t *testing.T) {
	bp := NewBufferPool(8)
	var dst bytes.Buffer
	n, err := bp.Copy(&dst, strings.NewReader("viral shorts factory"))
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)
	assert.Equal(t, "viral shorts factory", dst.String())

	_, _ = bp.Copy(&bytes.Buffer{}, strings.NewReader("x"))
	assert.GreaterOrEqual(t, bp.HitRate(), 0.0)
}

func TestWorkerPool_CloseStopsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := New(Config{Workers: 3, QueueSize: 8}, zap.NewNop())
	for i := 0; i < 6; i++ {
		require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			return nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))
	assert.Zero(t, p.Stats().Workers)
}
