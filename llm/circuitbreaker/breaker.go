package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态（正常工作）
	StateClosed State = iota
	// StateOpen 打开状态（熔断中）
	StateOpen
	// StateHalfOpen 半开状态（试探性恢复）
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// 错误定义
var (
	ErrCircuitOpen            = errors.New("circuit breaker is open")
	ErrTooManyCallsInHalfOpen = errors.New("too many calls in half-open state")
)

// Config 熔断器配置
type Config struct {
	// Threshold 连续失败次数阈值（触发熔断）
	Threshold int

	// Timeout 单次调用超时时间，0 表示不额外限制
	Timeout time.Duration

	// ResetTimeout 熔断恢复等待时间（Open -> HalfOpen）
	ResetTimeout time.Duration

	// HalfOpenMaxCalls 半开状态下允许的并发探测数
	HalfOpenMaxCalls int

	// IsFailure 判断错误是否计入失败；为 nil 时所有错误都计入
	IsFailure func(err error) bool

	// OnStateChange 状态变更回调（在锁外同步调用）
	OnStateChange func(name string, from, to State)
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		Timeout:          0,
		ResetTimeout:     60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Breaker 以名字区分的熔断器，FallbackCaller 为每个 Provider 持有一个
type Breaker struct {
	name   string
	config Config
	logger *zap.Logger
	now    func() time.Time

	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
}

// New 创建熔断器
func New(name string, config Config, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = def.ResetTimeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return &Breaker{
		name:   name,
		config: config,
		logger: logger.With(zap.String("component", "circuit_breaker"), zap.String("breaker", name)),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Do 经熔断器执行 fn；熔断打开时直接返回 ErrCircuitOpen
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	halfOpen, err := b.before()
	if err != nil {
		return err
	}

	callCtx := ctx
	if b.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}

	callErr := fn(callCtx)
	failed := callErr != nil && (b.config.IsFailure == nil || b.config.IsFailure(callErr))
	// 调用方主动取消不算上游故障
	if callErr != nil && ctx.Err() != nil {
		failed = false
	}
	b.after(halfOpen, failed)
	return callErr
}

// Call 是 Do 的泛型版本
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

func (b *Breaker) before() (bool, error) {
	b.mu.Lock()
	var transition func()
	defer func() {
		b.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.ResetTimeout {
			return false, ErrCircuitOpen
		}
		transition = b.setState(StateHalfOpen)
		b.halfOpenInFlight = 1
		return true, nil
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.config.HalfOpenMaxCalls {
			return false, ErrTooManyCallsInHalfOpen
		}
		b.halfOpenInFlight++
		return true, nil
	default:
		return false, nil
	}
}

func (b *Breaker) after(halfOpen, failed bool) {
	b.mu.Lock()
	var transition func()
	defer func() {
		b.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	if halfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	if !failed {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.logger.Info("circuit breaker recovered")
			transition = b.setState(StateClosed)
		}
		return
	}

	b.failures++
	switch b.state {
	case StateClosed:
		if b.failures >= b.config.Threshold {
			b.logger.Warn("circuit breaker opened",
				zap.Int("failures", b.failures),
				zap.Int("threshold", b.config.Threshold),
			)
			b.openedAt = b.now()
			transition = b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.logger.Warn("half-open probe failed, reopening")
		b.openedAt = b.now()
		b.halfOpenInFlight = 0
		transition = b.setState(StateOpen)
	}
}

// setState 必须持锁调用，返回需要在锁外执行的回调
func (b *Breaker) setState(to State) func() {
	from := b.state
	b.state = to
	if from == to || b.config.OnStateChange == nil {
		return nil
	}
	cb := b.config.OnStateChange
	name := b.name
	return func() { cb(name, from, to) }
}

// State 获取当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name 返回熔断器名
func (b *Breaker) Name() string { return b.name }

// Reset 手动恢复为关闭状态
func (b *Breaker) Reset() {
	b.mu.Lock()
	transition := b.setState(StateClosed)
	b.failures = 0
	b.halfOpenInFlight = 0
	b.mu.Unlock()

	b.logger.Info("circuit breaker reset")
	if transition != nil {
		transition()
	}
}
