// Package server exposes the HTTP surface of the edge cache service: the
// read-through document proxy, the privileged cache invalidation and status
// endpoints, and the operational probes.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/calderamotors/edge-cache/pkg/docstore"
	"github.com/calderamotors/edge-cache/pkg/edge"
	"github.com/calderamotors/edge-cache/pkg/edgecache"
	"github.com/calderamotors/edge-cache/pkg/invalidate"
	"github.com/calderamotors/edge-cache/pkg/rates"
)

// Config holds the server's dependencies and the non-secret settings it
// echoes on the status endpoint.
type Config struct {
	Docs       *docstore.Client
	Store      edgecache.Store
	Provider   edge.Provider
	Dispatcher *invalidate.Dispatcher
	Rates      *rates.Cache

	// Secret guards /cache/* operations.
	Secret string

	// CacheType and ProjectID are echoed by /cache/status.
	CacheType string
	ProjectID string

	// AllowedOrigins is the CORS allow-list.
	AllowedOrigins []string

	Logger zerolog.Logger
}

// Server holds the handler dependencies.
type Server struct {
	docs       *docstore.Client
	store      edgecache.Store
	provider   edge.Provider
	dispatcher *invalidate.Dispatcher
	rates      *rates.Cache
	secret     string
	cacheType  string
	projectID  string
	origins    []string
	logger     zerolog.Logger
}

// New creates a server from its dependencies.
func New(cfg Config) *Server {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		docs:       cfg.Docs,
		store:      cfg.Store,
		provider:   cfg.Provider,
		dispatcher: cfg.Dispatcher,
		rates:      cfg.Rates,
		secret:     cfg.Secret,
		cacheType:  cfg.CacheType,
		projectID:  cfg.ProjectID,
		origins:    origins,
		logger:     cfg.Logger,
	}
}

// Router builds the HTTP handler. The edge cache middleware wraps the
// whole surface; the policy engine keeps /cache/*, /metrics and /healthz
// out of the cache by classifying them as bypass.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(recoveryMiddleware(s.logger))
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "X-Request-ID"},
		ExposedHeaders: []string{"ETag", "X-Cache", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/documents", s.handleDocuments)
	r.Get("/rates", s.handleRates)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/cache", func(r chi.Router) {
		r.Use(bearerAuth(s.secret))
		r.Post("/invalidate", s.handleInvalidate)
		r.Get("/status", s.handleCacheStatus)
	})

	return edgecache.NewMiddleware(s.store, s.logger).Wrap(r)
}
