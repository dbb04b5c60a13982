package web

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sejin-p/webforge/internal/db"
	"github.com/sejin-p/webforge/internal/generation"
	"github.com/sejin-p/webforge/internal/task"
	"github.com/sejin-p/webforge/internal/web/handlers"
	"github.com/sejin-p/webforge/internal/web/middleware"
)

type Config struct {
	RateLimitMax    int
	RateLimitWindow int
}

type Router struct {
	repo  db.Repository
	log   *slog.Logger
	tasks *task.Manager
	svc   *generation.Service
	cfg   Config

	rateLimiter *middleware.IPRateLimiter
}

func NewRouter(repo db.Repository, log *slog.Logger, tasks *task.Manager, svc *generation.Service, cfg Config) *Router {
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 20
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = 60
	}
	return &Router{repo: repo, log: log, tasks: tasks, svc: svc, cfg: cfg}
}

func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	generationHandler := handlers.NewGenerationHandler(r.repo, r.log, r.tasks, r.svc)
	sessionHandler := handlers.NewSessionHandler(r.repo, r.log)
	templateHandler := handlers.NewTemplateHandler(r.log)
	statsHandler := handlers.NewStatsHandler(r.repo, r.log)

	r.rateLimiter = middleware.NewRateLimiter(r.cfg.RateLimitMax, r.cfg.RateLimitWindow)

	mux.Handle("POST /api/v1/generations",
		middleware.Chain(
			http.HandlerFunc(generationHandler.Create),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.RateLimit(r.rateLimiter),
		),
	)

	mux.Handle("GET /api/v1/generations/{id}",
		middleware.Chain(
			http.HandlerFunc(generationHandler.Get),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
		),
	)

	mux.Handle("GET /api/v1/generations/{id}/events",
		middleware.Chain(
			http.HandlerFunc(generationHandler.Events),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
		),
	)

	mux.Handle("GET /api/v1/generations/{id}/download",
		middleware.Chain(
			http.HandlerFunc(generationHandler.Download),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
		),
	)

	mux.Handle("GET /api/v1/sessions/{id}/history",
		middleware.Chain(
			http.HandlerFunc(sessionHandler.History),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
		),
	)

	mux.Handle("DELETE /api/v1/sessions/{id}/history",
		middleware.Chain(
			http.HandlerFunc(sessionHandler.ClearHistory),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.RateLimit(r.rateLimiter),
		),
	)

	mux.Handle("GET /api/v1/templates",
		middleware.Chain(
			http.HandlerFunc(templateHandler.List),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.CacheControl("public, max-age=3600"),
		),
	)

	mux.Handle("GET /api/v1/templates/{name}",
		middleware.Chain(
			http.HandlerFunc(templateHandler.Get),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.CacheControl("public, max-age=3600"),
		),
	)

	mux.Handle("GET /api/v1/stats",
		middleware.Chain(
			http.HandlerFunc(statsHandler.Get),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.CacheControl("public, s-maxage=5, max-age=0"),
		),
	)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.CORS(mux)
}

// Close stops background goroutines owned by the router.
func (r *Router) Close() {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}
}
