package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/calderamotors/edge-cache/internal/config"
	"github.com/calderamotors/edge-cache/internal/server"
	"github.com/calderamotors/edge-cache/pkg/docstore"
	"github.com/calderamotors/edge-cache/pkg/edge"
	"github.com/calderamotors/edge-cache/pkg/edgecache"
	"github.com/calderamotors/edge-cache/pkg/invalidate"
	"github.com/calderamotors/edge-cache/pkg/logging"
	"github.com/calderamotors/edge-cache/pkg/rates"
)

func main() {
	cfg := config.MustLoad()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger.Info().Str("project", cfg.Docstore.ProjectID).Msg("Starting edge cache service")

	// Edge cache store
	var store edgecache.Store
	if cfg.Cache.Type == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			logger.Fatal().Err(err).Str("addr", cfg.Cache.RedisAddress()).Msg("Redis connection failed")
		}
		cancel()
		store = edgecache.NewRedisStore(redisClient)
		logger.Info().Str("addr", cfg.Cache.RedisAddress()).Msg("Redis cache store initialized")
	} else {
		store = edgecache.NewMemoryStore()
		logger.Info().Msg("In-memory cache store initialized")
	}
	defer store.Close()

	// Edge provider; missing credentials degrade purges to no-ops.
	var provider edge.Provider
	if cfg.Edge.HasCredentials() {
		zoneClient, err := edge.NewZoneClient(edge.Config{
			BaseURL:  cfg.Edge.BaseURL,
			ZoneID:   cfg.Edge.ZoneID,
			APIToken: cfg.Edge.APIToken,
			TagPurge: cfg.Edge.TagPurge,
			Timeout:  cfg.Edge.Timeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Edge provider initialization failed")
		}
		provider = zoneClient
		logger.Info().Str("zone", cfg.Edge.ZoneID).Bool("tag_purge", cfg.Edge.TagPurge).Msg("Edge provider initialized")
	} else {
		provider = edge.NewNoop(logging.NewLogger("edge"))
	}

	// Origin revalidator
	var revalidator invalidate.Revalidator
	if cfg.Server.PublicBaseURL != "" {
		httpReval, err := invalidate.NewHTTPRevalidator(cfg.Server.PublicBaseURL, cfg.Invalidation.RevalidationSecret, cfg.Invalidation.Timeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("Revalidator initialization failed")
		}
		revalidator = httpReval
	} else {
		revalidator = invalidate.NewNoopRevalidator(logging.NewLogger("revalidator"))
	}

	dispatcher := invalidate.New(store, provider, revalidator, logging.NewLogger("invalidate"))

	// Document store client
	docsCfg := docstore.DefaultConfig(cfg.Docstore.ProjectID)
	if cfg.Docstore.BaseURL != "" {
		docsCfg.BaseURL = cfg.Docstore.BaseURL
	}
	docsCfg.APIKey = cfg.Docstore.APIKey
	docsCfg.Timeout = cfg.Docstore.Timeout
	docsCfg.PageSize = cfg.Docstore.PageSize
	docs, err := docstore.New(docsCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Document store client initialization failed")
	}

	// Currency rates (optional)
	var rateCache *rates.Cache
	if cfg.Rates.URL != "" {
		source, err := rates.NewHTTPSource(cfg.Rates.URL, cfg.Docstore.Timeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("Rate source initialization failed")
		}
		rateCache = rates.NewCache(source, cfg.Rates.Currency, logging.NewLogger("rates"),
			rates.WithTTL(cfg.Rates.TTL))
	}

	srv := server.New(server.Config{
		Docs:           docs,
		Store:          store,
		Provider:       provider,
		Dispatcher:     dispatcher,
		Rates:          rateCache,
		Secret:         cfg.Invalidation.Secret,
		CacheType:      cfg.Cache.Type,
		ProjectID:      cfg.Docstore.ProjectID,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logging.NewLogger("http"),
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Address()).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}

	logger.Info().Msg("Server stopped")
}
