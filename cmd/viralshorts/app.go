package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/analyzer"
	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/content"
	"github.com/BaSui01/viralshorts/evaluator"
	"github.com/BaSui01/viralshorts/internal/cache"
	"github.com/BaSui01/viralshorts/internal/command"
	"github.com/BaSui01/viralshorts/internal/database"
	"github.com/BaSui01/viralshorts/internal/metrics"
	"github.com/BaSui01/viralshorts/internal/migration"
	"github.com/BaSui01/viralshorts/internal/objectstore"
	"github.com/BaSui01/viralshorts/internal/telemetry"
	"github.com/BaSui01/viralshorts/internal/tlsutil"
	"github.com/BaSui01/viralshorts/llm"
	llmfactory "github.com/BaSui01/viralshorts/llm/factory"
	"github.com/BaSui01/viralshorts/llm/speech"
	"github.com/BaSui01/viralshorts/media/broll"
	"github.com/BaSui01/viralshorts/media/music"
	"github.com/BaSui01/viralshorts/media/probe"
	"github.com/BaSui01/viralshorts/pipeline"
	"github.com/BaSui01/viralshorts/render"
	"github.com/BaSui01/viralshorts/store"
	"github.com/BaSui01/viralshorts/upload"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// app 持有一次进程运行所需的全部组件。可选组件（Redis、对象存储、
// Dailymotion、LLM）未配置时为 nil，相应功能降级。
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	telemetry *telemetry.Providers
	metrics   *metrics.Collector
	db        *database.PoolManager
	cache     *cache.Manager
	store     *store.Store

	caller    llm.Caller
	generator *content.Generator
	evaluator *evaluator.Evaluator
	analyzer  *analyzer.Analyzer

	broll    *broll.Library
	music    *music.Library
	voice    *speech.Chain
	renderer *render.Renderer
	prober   *probe.Prober
	uploader *upload.Dailymotion
	archive  *objectstore.Store

	bus     *pipeline.Bus
	factory *pipeline.Factory
	runner  *pipeline.Runner
}

// newApp 装配组件。reg 为 nil 时指标注册到独立 registry（CLI 场景不暴露 /metrics）。
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	otel, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	a.telemetry = otel

	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	a.metrics = metrics.NewCollector("viralshorts", reg, logger)

	if err := a.initStore(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.initCache()
	a.initLLM()

	a.evaluator = evaluator.New(a.caller, a.evalModels(), logger)
	a.analyzer = analyzer.New(
		analyzer.NewYouTube(cfg.YouTube.APIKey, cfg.YouTube.BaseURL, tlsutil.SecureHTTPClient(30*time.Second)),
		a.caller, logger,
		analyzer.WithStore(a.store),
		analyzer.WithModels(a.evalModels()),
	)
	if err := a.analyzer.Refresh(ctx); err != nil {
		logger.Warn("failed to load learned patterns", zap.Error(err))
	}

	enhancers, err := a.buildEnhancers()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	genOpts := []content.Option{content.WithEvalModels(a.evalModels())}
	if !hasEnhancer(enhancers, "prompt_boost") {
		// 未启用 prompt_boost 增强器时直接在生成器上注入
		genOpts = append(genOpts, content.WithBooster(a.analyzer))
	}
	a.generator = content.NewGenerator(a.caller, logger, genOpts...)

	runner := command.NewExecRunner(logger)
	a.broll = broll.NewLibrary(cfg.Media, a.metrics, logger)
	a.music = music.NewLibrary(cfg.Media, a.metrics, logger)
	a.voice = speech.NewFromConfig(cfg.Speech, logger)
	a.renderer = render.New(cfg.Render, runner, a.metrics, logger)
	a.prober = probe.New(cfg.Render.FFprobePath, runner)

	if cfg.Dailymotion.Configured() {
		a.uploader = upload.NewDailymotion(cfg.Dailymotion, a.metrics, logger)
	}
	if cfg.ObjectStore.Enabled {
		if a.archive, err = objectstore.New(cfg.ObjectStore, logger); err != nil {
			logger.Warn("object store disabled", zap.Error(err))
		} else if err := a.archive.EnsureBucket(ctx); err != nil {
			logger.Warn("object store bucket unavailable, archiving disabled", zap.Error(err))
			a.archive = nil
		}
	}

	deps := pipeline.Deps{
		Writer:    a.generator,
		Broll:     a.broll,
		Music:     a.music,
		Voice:     a.voice,
		Prober:    a.prober,
		Composer:  a.renderer,
		Videos:    a.store,
		Enhancers: enhancers,
		Metrics:   a.metrics,
	}
	if a.archive != nil {
		deps.Archiver = a.archive
	}
	if a.uploader != nil {
		deps.Uploader = a.uploader
	}

	a.bus = pipeline.NewBus(0, logger)
	deps.Events = a.bus
	a.factory = pipeline.NewFactory(deps, pipeline.FactoryConfig{
		OutputDir:    cfg.Render.OutputDir,
		TempDir:      cfg.Render.TempDir,
		PhraseTarget: cfg.Pipeline.PhraseTarget,
	}, logger)
	a.runner = pipeline.NewRunner(a.factory, a.store, a.bus, pipeline.RunnerConfig{
		Workers:    cfg.Pipeline.Workers,
		QueueSize:  cfg.Pipeline.QueueSize,
		JobTimeout: cfg.Pipeline.JobTimeout,
	}, a.metrics, logger)

	logger.Info("components initialized",
		zap.Bool("llm", a.caller != nil),
		zap.Bool("redis", a.cache != nil),
		zap.Bool("upload", a.uploader != nil),
		zap.Bool("archive", a.archive != nil),
		zap.Bool("broll", a.broll.Enabled()),
		zap.Strings("enhancers", enhancerNames(enhancers)),
	)
	return a, nil
}

// initStore 先用独立连接跑迁移，再打开业务连接池
func (a *app) initStore(ctx context.Context) error {
	m, err := migration.NewFromConfig(a.cfg.Database, a.logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	upErr := m.Up(ctx)
	if err := m.Close(); err != nil {
		a.logger.Warn("failed to close migrator", zap.Error(err))
	}
	if upErr != nil {
		return fmt.Errorf("migrate database: %w", upErr)
	}

	pm, err := database.Open(a.cfg.Database, a.logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = pm
	a.store = store.New(pm.DB(), a.logger)
	return nil
}

func (a *app) initCache() {
	rc := a.cfg.Redis
	if !rc.Enabled {
		return
	}
	cc := cache.DefaultConfig()
	cc.Addr = rc.Addr
	cc.Password = rc.Password
	cc.DB = rc.DB
	if rc.PoolSize > 0 {
		cc.PoolSize = rc.PoolSize
	}
	cc.MinIdleConns = rc.MinIdleConns
	if rc.CacheTTL > 0 {
		cc.DefaultTTL = rc.CacheTTL
	}
	m, err := cache.NewManager(cc, a.logger)
	if err != nil {
		a.logger.Warn("redis unavailable, llm response cache disabled", zap.Error(err))
		return
	}
	a.cache = m
}

func (a *app) initLLM() {
	var rs llm.ResponseStore
	if a.cache != nil {
		rs = a.cache
	}
	caller, err := llmfactory.NewCaller(a.cfg.LLM, rs, a.cfg.Redis.CacheTTL, a.metrics, a.logger)
	switch {
	case errors.Is(err, llm.ErrNoProviders):
		a.logger.Warn("no llm provider configured, using evergreen content only")
	case err != nil:
		a.logger.Warn("llm caller unavailable", zap.Error(err))
	default:
		a.caller = caller
	}
}

// evalModels 评估类调用使用主 Provider 的轻量模型
func (a *app) evalModels() map[string]string {
	if a.cfg.LLM.EvalModel == "" || len(a.cfg.LLM.Order) == 0 {
		return nil
	}
	return map[string]string{a.cfg.LLM.Order[0]: a.cfg.LLM.EvalModel}
}

// registry 所有内置增强器
func (a *app) registry() pipeline.Registry {
	return pipeline.Registry{
		"prompt_boost": func() pipeline.Enhancer { return pipeline.NewPromptBoost(a.analyzer) },
		"quality_gate": func() pipeline.Enhancer {
			return pipeline.NewQualityGate(a.evaluator, a.generatorScorer(), a.cfg.Pipeline.QualityThreshold, a.logger)
		},
		"algorithm_signals": func() pipeline.Enhancer { return pipeline.AlgorithmSignals{} },
	}
}

// generatorScorer 延迟解析生成器，增强器在生成器之前构建
func (a *app) generatorScorer() pipeline.ContentScorer {
	return scorerFunc(func(ctx context.Context, hook, body, videoType string) (*content.ContentEvaluation, error) {
		return a.generator.Evaluate(ctx, hook, body, videoType)
	})
}

func (a *app) buildEnhancers() ([]pipeline.Enhancer, error) {
	enhancers, err := a.registry().Build(a.cfg.Pipeline.Enhancers)
	if err != nil {
		return nil, fmt.Errorf("build enhancers: %w", err)
	}
	return enhancers, nil
}

type scorerFunc func(ctx context.Context, hook, body, videoType string) (*content.ContentEvaluation, error)

func (f scorerFunc) Evaluate(ctx context.Context, hook, body, videoType string) (*content.ContentEvaluation, error) {
	return f(ctx, hook, body, videoType)
}

func hasEnhancer(list []pipeline.Enhancer, name string) bool {
	for _, e := range list {
		if e.Name() == name {
			return true
		}
	}
	return false
}

func enhancerNames(list []pipeline.Enhancer) []string {
	names := make([]string, 0, len(list))
	for _, e := range list {
		names = append(names, e.Name())
	}
	return names
}

// Close 按依赖逆序释放资源
func (a *app) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if a.runner != nil {
		if err := a.runner.Close(ctx); err != nil {
			a.logger.Warn("job runner shutdown error", zap.Error(err))
		}
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("redis close error", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("database close error", zap.Error(err))
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown error", zap.Error(err))
	}
}
