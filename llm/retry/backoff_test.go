package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

type hintErr struct{ after time.Duration }

func (e hintErr) Error() string             { return "rate limited" }
func (e hintErr) RetryAfter() time.Duration { return e.after }

func TestRetryer_SucceedsFirstTry(t *testing.T) {
	r := New(fastPolicy(), zap.NewNop())
	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "应该只调用一次")
}

func TestRetryer_RetriesThenSucceeds(t *testing.T) {
	r := New(fastPolicy(), nil)
	calls := 0
	got, err := Do(context.Background(), r, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("temporary")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetryer_Exhausted(t *testing.T) {
	r := New(fastPolicy(), zap.NewNop())
	base := errors.New("still down")
	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return base
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, 4, calls, "1 次初始调用 + 3 次重试")
}

func TestRetryer_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("bad request")
	p := fastPolicy()
	p.RetryIf = func(err error) bool { return !errors.Is(err, fatal) }
	r := New(p, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestRetryer_ContextCancelled(t *testing.T) {
	p := fastPolicy()
	p.InitialDelay = time.Hour
	p.MaxDelay = time.Hour
	r := New(p, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryer_OnRetryCallback(t *testing.T) {
	var attempts []int
	p := fastPolicy()
	p.MaxRetries = 2
	p.OnRetry = func(attempt int, err error, delay time.Duration) { attempts = append(attempts, attempt) }
	r := New(p, zap.NewNop())

	_ = r.Do(context.Background(), func(ctx context.Context) error { return errors.New("x") })
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetryer_DelayGrowthAndCap(t *testing.T) {
	r := New(Policy{MaxRetries: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond, Multiplier: 2}, nil)
	assert.Equal(t, 100*time.Millisecond, r.delayFor(1, nil))
	assert.Equal(t, 200*time.Millisecond, r.delayFor(2, nil))
	assert.Equal(t, 350*time.Millisecond, r.delayFor(3, nil))
	assert.Equal(t, 350*time.Millisecond, r.delayFor(8, nil))
}

func TestRetryer_RetryAfterHintIsFloor(t *testing.T) {
	r := New(Policy{MaxRetries: 1, InitialDelay: 10 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}, nil)
	assert.Equal(t, 500*time.Millisecond, r.delayFor(1, hintErr{after: 500 * time.Millisecond}))
	assert.Equal(t, time.Second, r.delayFor(1, hintErr{after: time.Minute}), "hint is capped by MaxDelay")
}

func TestRetryer_JitterWithinBounds(t *testing.T) {
	r := New(Policy{MaxRetries: 1, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, Jitter: true}, nil)
	for i := 0; i < 50; i++ {
		d := r.delayFor(2, nil)
		assert.GreaterOrEqual(t, d, 150*time.Millisecond)
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}
}

func TestNew_NormalizesPolicy(t *testing.T) {
	r := New(Policy{MaxRetries: -1, Multiplier: 0.5}, nil)
	p := r.Policy()
	assert.Equal(t, 0, p.MaxRetries)
	assert.Equal(t, time.Second, p.InitialDelay)
	assert.Equal(t, 30*time.Second, p.MaxDelay)
	assert.Equal(t, 2.0, p.Multiplier)
}
