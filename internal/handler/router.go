package handler

import (
	"net/http"
	"time"

	"registrationportal/internal/logging"
	"registrationportal/internal/metrics"
	"registrationportal/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Logger          *logging.Logger
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	Limiter         middleware.Reserver
	RateLimitWindow time.Duration
}

func NewRouter(h *RegistrationHandler, cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.NewMetricsMiddleware(cfg.Metrics))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	h.RegisterRoutes(r, middleware.NewRateLimitMiddleware(cfg.Limiter, cfg.RateLimitWindow, h.Reject))
	return r
}
