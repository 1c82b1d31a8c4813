package server

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hongminglow/taskql/internal/auth"
	"github.com/hongminglow/taskql/internal/config"
	"github.com/hongminglow/taskql/internal/graph"
	"github.com/hongminglow/taskql/internal/http/handlers"
	"github.com/hongminglow/taskql/internal/metrics"
	"github.com/hongminglow/taskql/internal/middleware"
	"github.com/hongminglow/taskql/internal/storage"
	"github.com/hongminglow/taskql/internal/tasks"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner   *http.Server
	limiter *middleware.RateLimiter
}

// New wires services, middleware and routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, logger *slog.Logger) (*Server, error) {
	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(prometheus.NewRegistry())
	authSvc, err := auth.NewService(store, hasher, tokens, logger, collector)
	if err != nil {
		return nil, err
	}
	taskSvc := tasks.NewService(store, logger)

	schema, err := graph.NewSchema(graph.NewResolver(authSvc, taskSvc, store, logger))
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger, collector))
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewCORSMiddleware(cfg.CORSOrigins))

	handlers.NewHealthHandler(time.Now(), store, logger).Register(r)
	r.Method(http.MethodGet, "/metrics", collector.Handler())

	s := &Server{}
	r.Group(func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			s.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
				Rate:  rate.Limit(cfg.RateLimitRPS),
				Burst: max(cfg.RateLimitBurst, int(math.Ceil(cfg.RateLimitRPS))),
			}, collector)
			r.Use(s.limiter.Middleware())
		}

		handlers.NewAuthHandler(authSvc, logger).Register(r)

		r.With(middleware.NewAuthMiddleware(authSvc, logger)).
			Handle("/graphql", handlers.NewGraphQLHandler(&schema, cfg.GraphiQL))
	})

	s.inner = &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.inner.Shutdown(ctx)
}
