package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。nil *Collector 的所有方法都是空操作，
// 组件可以不判空直接调用。
type Collector struct {
	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// LLM
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec
	llmFallbacks       *prometheus.CounterVec

	// 缓存
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 素材
	mediaDownloads     *prometheus.CounterVec
	mediaDownloadBytes *prometheus.CounterVec

	// 渲染 / 上传
	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	uploadsTotal   *prometheus.CounterVec

	// 流水线
	jobsTotal        *prometheus.CounterVec
	jobsInFlight     prometheus.Gauge
	stageDuration    *prometheus.HistogramVec
	enhancerFailures *prometheus.CounterVec

	// 数据库
	dbConnectionsOpen prometheus.Gauge
	dbConnectionsIdle prometheus.Gauge

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到 reg；reg 为 nil 时使用默认 Registry
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.httpRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	c.httpRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds",
		Help: "HTTP request duration in seconds", Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	c.llmRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "llm_requests_total",
		Help: "Total number of LLM requests",
	}, []string{"provider", "model", "status"})
	c.llmRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "llm_request_duration_seconds",
		Help: "LLM request duration in seconds", Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider", "model"})
	c.llmTokensUsed = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "llm_tokens_used_total",
		Help: "Total number of tokens used",
	}, []string{"provider", "model", "type"})
	c.llmFallbacks = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "llm_fallbacks_total",
		Help: "Provider fall-throughs in the fallback chain",
	}, []string{"from", "reason"})

	c.cacheHits = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "cache_hits_total", Help: "Cache hits",
	}, []string{"cache"})
	c.cacheMisses = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "cache_misses_total", Help: "Cache misses",
	}, []string{"cache"})

	c.mediaDownloads = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "media_downloads_total",
		Help: "Stock media lookups by source, kind and outcome",
	}, []string{"source", "kind", "status"})
	c.mediaDownloadBytes = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "media_download_bytes_total",
		Help: "Bytes downloaded from stock media sources",
	}, []string{"source"})

	c.rendersTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "renders_total", Help: "ffmpeg renders",
	}, []string{"kind", "status"})
	c.renderDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "render_duration_seconds",
		Help: "Render wall time", Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"kind"})
	c.uploadsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "uploads_total", Help: "Video uploads",
	}, []string{"platform", "status"})

	c.jobsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "jobs_total", Help: "Finished production jobs",
	}, []string{"status"})
	c.jobsInFlight = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "jobs_in_flight", Help: "Jobs currently running",
	})
	c.stageDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "pipeline_stage_duration_seconds",
		Help: "Duration of each pipeline stage", Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"stage"})
	c.enhancerFailures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "enhancer_failures_total",
		Help: "Enhancer errors and panics that were skipped",
	}, []string{"enhancer"})

	c.dbConnectionsOpen = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_connections_open", Help: "Open DB connections",
	})
	c.dbConnectionsIdle = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_connections_idle", Help: "Idle DB connections",
	})

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLLMRequest 记录一次 Provider 调用
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if promptTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordLLMFallback 记录从某个 Provider 回退到下一个
func (c *Collector) RecordLLMFallback(from, reason string) {
	if c == nil {
		return
	}
	c.llmFallbacks.WithLabelValues(from, reason).Inc()
}

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cache string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cache string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordMediaDownload 记录素材获取；kind 为 broll / music，status 为 hit / downloaded / miss / error
func (c *Collector) RecordMediaDownload(source, kind, status string, bytes int64) {
	if c == nil {
		return
	}
	c.mediaDownloads.WithLabelValues(source, kind, status).Inc()
	if bytes > 0 {
		c.mediaDownloadBytes.WithLabelValues(source).Add(float64(bytes))
	}
}

// RecordRender 记录一次渲染
func (c *Collector) RecordRender(kind, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.rendersTotal.WithLabelValues(kind, status).Inc()
	c.renderDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordUpload 记录一次上传
func (c *Collector) RecordUpload(platform, status string) {
	if c == nil {
		return
	}
	c.uploadsTotal.WithLabelValues(platform, status).Inc()
}

// JobStarted 作业开始
func (c *Collector) JobStarted() {
	if c == nil {
		return
	}
	c.jobsInFlight.Inc()
}

// JobFinished 作业结束
func (c *Collector) JobFinished(status string) {
	if c == nil {
		return
	}
	c.jobsInFlight.Dec()
	c.jobsTotal.WithLabelValues(status).Inc()
}

// RecordStage 记录流水线阶段耗时
func (c *Collector) RecordStage(stage string, duration time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordEnhancerFailure 记录被跳过的增强器失败
func (c *Collector) RecordEnhancerFailure(enhancer string) {
	if c == nil {
		return
	}
	c.enhancerFailures.WithLabelValues(enhancer).Inc()
}

// RecordDBConnections 记录连接池状态
func (c *Collector) RecordDBConnections(open, idle int) {
	if c == nil {
		return
	}
	c.dbConnectionsOpen.Set(float64(open))
	c.dbConnectionsIdle.Set(float64(idle))
}
