package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	audithandler "hrreview/internal/transport/http/handlers/audit"
	authhandler "hrreview/internal/transport/http/handlers/auth"
	corehandler "hrreview/internal/transport/http/handlers/core"
	cyclehandler "hrreview/internal/transport/http/handlers/cycle"
	evaluationhandler "hrreview/internal/transport/http/handlers/evaluation"
	"hrreview/internal/transport/http/middleware"
)

func NewRouter(app *App) http.Handler {
	cfg := app.Config
	svc := app.Services

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(app.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := app.Ready(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if app.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", app.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		var limits []middleware.LimitOption
		if app.Cache.Enabled() {
			limits = append(limits, middleware.WithCounter(app.Cache))
		}
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, limits...))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute, limits...))

		authhandler.NewHandler(svc.Auth, svc.Perms).RegisterRoutes(r)
		corehandler.NewHandler(svc.Core, svc.Perms).RegisterRoutes(r)
		evaluationhandler.NewHandler(svc.Evaluations, svc.Perms).RegisterRoutes(r)
		cyclehandler.NewHandler(svc.Cycles, svc.Perms).RegisterRoutes(r)
		audithandler.NewHandler(svc.Audit, svc.Perms).RegisterRoutes(r)
	})

	return router
}
