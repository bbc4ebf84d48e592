package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/internal/cache"
	"github.com/BaSui01/viralshorts/internal/metrics"
)

// ResponseStore 是响应缓存的最小依赖，*cache.Manager 满足该接口
type ResponseStore interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CachedCaller 对相同 (model, system, prompt, temperature) 的请求复用 Redis 中的响应
type CachedCaller struct {
	next    Caller
	store   ResponseStore
	ttl     time.Duration
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewCachedCaller 包装 next；store 为 nil 时直接透传
func NewCachedCaller(next Caller, store ResponseStore, ttl time.Duration, collector *metrics.Collector, logger *zap.Logger) *CachedCaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCaller{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: collector,
		logger:  logger.With(zap.String("component", "llm_cache")),
	}
}

type cachedResponse struct {
	Text     string    `json:"text"`
	CachedAt time.Time `json:"cached_at"`
}

// Call 实现 Caller
func (c *CachedCaller) Call(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	if c.store == nil || opts.NoCache {
		return c.next.Call(ctx, prompt, opts)
	}

	key := responseKey(prompt, opts)
	var hit cachedResponse
	err := c.store.GetJSON(ctx, key, &hit)
	switch {
	case err == nil:
		c.metrics.RecordCacheHit("llm")
		return hit.Text, nil
	case !cache.IsCacheMiss(err):
		c.logger.Warn("llm cache read failed", zap.Error(err))
	}
	c.metrics.RecordCacheMiss("llm")

	text, err := c.next.Call(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	if err := c.store.SetJSON(ctx, key, cachedResponse{Text: text, CachedAt: time.Now().UTC()}, c.ttl); err != nil {
		c.logger.Warn("llm cache write failed", zap.Error(err))
	}
	return text, nil
}

func responseKey(prompt string, opts CallOptions) string {
	names := make([]string, 0, len(opts.Models))
	for name := range opts.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	models := make([]string, 0, len(names))
	for _, name := range names {
		models = append(models, name+"="+opts.Models[name])
	}

	return "llm:" + cache.HashKey(
		strings.Join(models, ","),
		opts.System,
		prompt,
		fmt.Sprintf("t=%.2f", opts.Temperature),
		fmt.Sprintf("json=%t", opts.JSON),
		fmt.Sprintf("max=%d", opts.MaxTokens),
	)
}
