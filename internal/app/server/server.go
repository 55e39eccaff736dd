package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"hrreview/internal/domain/audit"
	"hrreview/internal/domain/auth"
	"hrreview/internal/domain/core"
	"hrreview/internal/domain/cycle"
	"hrreview/internal/domain/evaluation"
	"hrreview/internal/platform/cache"
	"hrreview/internal/platform/config"
	"hrreview/internal/platform/db"
	"hrreview/internal/platform/jobs"
	"hrreview/internal/platform/metrics"
)

type Services struct {
	Auth        *auth.Service
	Core        *core.Service
	Evaluations *evaluation.Service
	Cycles      *cycle.Service
	Audit       audit.Reader
	Perms       auth.StaticPermissions
}

type App struct {
	Config   config.Config
	Services Services
	Router   http.Handler
	Jobs     *jobs.Service
	Cache    *cache.Cache
	Metrics  *metrics.Collector

	backend *backend
}

// New opens the configured store, wires every service and builds the
// router. Background jobs are not started until Run.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		slog.Warn("JWT_SECRET not set, using an ephemeral secret; tokens will not survive a restart")
	}
	policy, err := cycle.LoadPolicy(cfg.DeadlinePolicyFile)
	if err != nil {
		return nil, err
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}
	summaryCache := cache.New(cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   "hrreview:",
	})
	if err := summaryCache.Ping(ctx); err != nil {
		slog.Warn("redis unavailable, summaries are computed on every read", "err", err)
		_ = summaryCache.Close()
		summaryCache = cache.New(cache.Options{})
	}

	authSvc := auth.NewService(b.auth, cfg.JWTSecret, cfg.JWTTTL)
	authSvc.Audit = b.audit

	coreSvc := core.NewService(b.core, b.auth, b.audit)

	cycleSvc := cycle.NewService(b.cycles, coreSvc, b.audit)
	cycleSvc.Policy = policy
	cycleSvc.Cache = summaryCache
	if cfg.SummaryCacheTTL > 0 {
		cycleSvc.SummaryTTL = cfg.SummaryCacheTTL
	}
	cycleSvc.Metrics = collector

	evalSvc := evaluation.NewService(b.evaluations, coreSvc, b.audit)
	evalSvc.Cycles = cycleSvc
	evalSvc.Listener = cycleSvc
	evalSvc.Metrics = collector

	if cfg.RunSeed {
		if err := db.Seed(ctx, authSvc, cfg); err != nil {
			b.close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	app := &App{
		Config: cfg,
		Services: Services{
			Auth:        authSvc,
			Core:        coreSvc,
			Evaluations: evalSvc,
			Cycles:      cycleSvc,
			Audit:       b.audit,
		},
		Jobs:    jobs.New(b.runs, collector),
		Cache:   summaryCache,
		Metrics: collector,
		backend: b,
	}
	app.Jobs.Every(jobs.JobOverdueSweep, cfg.OverdueSweepInterval, app.SweepOverdue)
	app.Router = NewRouter(app)
	return app, nil
}

// SweepOverdue is the job body shared by the scheduler and the CLI.
func (a *App) SweepOverdue(ctx context.Context) (any, error) {
	return a.Services.Cycles.SweepOverdue(ctx)
}

// Ready reports whether the store answers. The cache is optional.
func (a *App) Ready(ctx context.Context) error {
	return a.backend.ping(ctx)
}

func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		slog.Warn("cache close failed", "err", err)
	}
	a.backend.close()
}

// Serve runs the HTTP server and background jobs until ctx is cancelled,
// then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	a.Jobs.Start(jobCtx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("hrreview server listening", "addr", a.Config.Addr, "driver", a.Config.StoreDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	slog.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// SetupLogger installs the process-wide slog handler: text in development,
// JSON elsewhere.
func SetupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Environment == "development" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func Run() {
	cfg := config.Load()
	SetupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Serve(ctx); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
