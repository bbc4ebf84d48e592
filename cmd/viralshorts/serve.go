package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/api/handlers"
	"github.com/BaSui01/viralshorts/internal/server"
)

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and metrics servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts.logger.Info("Starting ViralShorts",
				zap.String("version", Version),
				zap.String("build_time", BuildTime),
				zap.String("git_commit", GitCommit),
			)

			a, err := newApp(ctx, opts.cfg, opts.logger, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			srv := NewServer(a)
			if err := srv.Start(); err != nil {
				srv.Shutdown(context.WithoutCancel(ctx))
				return err
			}

			select {
			case <-ctx.Done():
			case err = <-srv.Errors():
			}
			srv.Shutdown(context.WithoutCancel(ctx))
			opts.logger.Info("ViralShorts stopped")
			return err
		},
	}
}

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server 组合 API 服务器与 Metrics 服务器
type Server struct {
	app    *app
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	rateLimiterCancel context.CancelFunc
}

// NewServer 创建服务器
func NewServer(a *app) *Server {
	return &Server{app: a, logger: a.logger}
}

// publicPaths 不需要认证的路径
var publicPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version"}

// Handler 构建带中间件链的 API 路由
func (s *Server) Handler(ctx context.Context) http.Handler {
	a := s.app
	cfg := a.cfg.Server

	health := handlers.NewHealthHandler(s.logger)
	health.RegisterCheck(handlers.NewFuncCheck("database", a.db.Ping))
	if a.cache != nil {
		health.RegisterCheck(handlers.NewFuncCheck("redis", a.cache.Ping))
	}
	if a.archive != nil {
		health.RegisterCheck(handlers.NewFuncCheck("object_store", a.archive.Ping))
	}

	jobs := handlers.NewJobHandler(a.runner, a.store, s.logger)
	jobs.OriginPatterns = originHosts(cfg.CORSAllowedOrigins)
	videos := handlers.NewVideoHandler(a.store, s.logger)
	patterns := handlers.NewPatternHandler(a.analyzer, a.store, s.logger)
	var eval handlers.BatchEvaluator
	if a.caller != nil {
		eval = a.evaluator
	}
	evaluate := handlers.NewEvaluateHandler(eval, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /healthz", health.HandleHealth)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /readyz", health.HandleReady)
	mux.HandleFunc("GET /version", health.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("POST /api/v1/jobs", jobs.HandleCreate)
	mux.HandleFunc("GET /api/v1/jobs", jobs.HandleList)
	mux.HandleFunc("GET /api/v1/jobs/{id}", jobs.HandleGet)
	mux.HandleFunc("GET /api/v1/jobs/{id}/events", jobs.HandleEvents)
	mux.HandleFunc("GET /api/v1/videos", videos.HandleList)
	mux.HandleFunc("POST /api/v1/evaluate", evaluate.HandleEvaluate)
	mux.HandleFunc("GET /api/v1/patterns", patterns.HandleList)

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(a.metrics),
		CORS(cfg.CORSAllowedOrigins),
		RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, s.logger),
		Auth(cfg.APIKeys, cfg.JWTSecret, publicPaths, s.logger),
	)
}

// originHosts 把 CORS 来源（https://host:port）转换为 WebSocket Origin 匹配模式
func originHosts(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		if o = strings.TrimRight(o, "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Start 启动 API 与 Metrics 服务器（非阻塞）
func (s *Server) Start() error {
	cfg := s.app.cfg.Server

	rlCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	s.httpManager = server.NewManager("api", s.Handler(rlCtx),
		server.ForPort(cfg.HTTPPort, cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout), s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metricsManager = server.NewManager("metrics", mux,
			server.ForPort(cfg.MetricsPort, cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout), s.logger)
		if err := s.metricsManager.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.httpManager.Addr()),
		zap.Int("metrics_port", cfg.MetricsPort),
	)
	return nil
}

// Errors 任一服务器异常退出时收到错误
func (s *Server) Errors() <-chan error {
	out := make(chan error, 2)
	forward := func(m *server.Manager) {
		if m == nil {
			return
		}
		go func() {
			if err, ok := <-m.Errors(); ok {
				out <- err
			}
		}()
	}
	forward(s.httpManager)
	forward(s.metricsManager)
	return out
}

// Shutdown 优雅关闭所有服务器
func (s *Server) Shutdown(ctx context.Context) {
	s.logger.Info("Starting graceful shutdown...")

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	var errs []error
	if s.httpManager != nil {
		errs = append(errs, s.httpManager.Shutdown(ctx))
	}
	if s.metricsManager != nil {
		errs = append(errs, s.metricsManager.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("server shutdown error", zap.Error(err))
	}
}
