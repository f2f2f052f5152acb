// Package api provides the REST API server for the Star Wars data service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v0 "github.com/holocron-dev/holocron/internal/api/v0"
	"github.com/holocron-dev/holocron/internal/logger"
)

// ServerOption configures the API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	serviceName string
	pinger      func(ctx context.Context) error
	middlewares []func(http.Handler) http.Handler
	routeOpts   []v0.RoutesOption
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithServiceName sets the name reported by the root metadata endpoint.
func WithServiceName(name string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.serviceName = name
	}
}

// WithReadinessPinger sets the database probe used by the readiness endpoint.
func WithReadinessPinger(pinger func(ctx context.Context) error) ServerOption {
	return func(cfg *serverConfig) {
		cfg.pinger = pinger
	}
}

// WithDefaultPageSize overrides the page size used when list requests omit
// the limit parameter.
func WithDefaultPageSize(n int) ServerOption {
	return func(cfg *serverConfig) {
		cfg.routeOpts = append(cfg.routeOpts, v0.WithDefaultPageSize(n))
	}
}

// NewServer creates and configures the HTTP router with the given
// dependencies and options
func NewServer(store v0.Store, runner v0.Runner, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		serviceName: "Holocron API",
		middlewares: []func(http.Handler) http.Handler{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Recoverer)
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Mount("/", v0.Router(cfg.serviceName, cfg.pinger, store, runner, cfg.routeOpts...))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debugf("HTTP %s %s %d %s %s",
			r.Method,
			r.URL.Path,
			ww.Status(),
			time.Since(start),
			middleware.GetReqID(r.Context()),
		)
	})
}
