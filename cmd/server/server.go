package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/contextstack/internal/aggregator"
	"github.com/eldtechnologies/contextstack/internal/api"
	"github.com/eldtechnologies/contextstack/internal/api/middleware"
	"github.com/eldtechnologies/contextstack/internal/cache"
	"github.com/eldtechnologies/contextstack/internal/config"
	"github.com/eldtechnologies/contextstack/internal/handlers"
	"github.com/eldtechnologies/contextstack/internal/nlp"
	"github.com/eldtechnologies/contextstack/internal/store"
)

// app holds the wired service and the resources to release at shutdown.
type app struct {
	handler http.Handler
	store   store.DataStore
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp opens the store and cache and wires the router. Only the message
// store is required: an unreachable Redis leaves the service running uncached.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}

	// Message store: PostgreSQL when configured, SQLite otherwise
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.store = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.store = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
	}
	a.closers = append(a.closers, a.store.Close)

	// Cache and rate limit backend: Redis when configured, in-process otherwise
	var (
		contextCache cache.Cache
		cachePinger  handlers.Pinger
		limitBackend middleware.Backend
	)
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, logger, cache.RedisOptions{Timeout: cfg.CacheTimeout})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = redisCache.Close() })
		contextCache = redisCache
		cachePinger = redisCache
		limitBackend = middleware.NewRedisBackend(redisCache.Client())
	} else {
		contextCache = cache.NewMemoryCache(cfg.MemoryCacheSize, cfg.CacheTTL)
		limitBackend = middleware.NewLocalBackend(0, 0)
		logger.Warn().Msg("REDIS_URL not set, using in-process cache and rate limits")
	}

	nlpClient := nlp.NewClient(cfg.NLPURL, cfg.NLPTimeout)

	agg := aggregator.New(aggregator.Deps{
		Repository: a.store,
		Cache:      contextCache,
		Actions:    nlpClient,
		Docs:       nlpClient,
		Logger:     logger,
	}, aggregator.Config{
		CacheTTL:          cfg.CacheTTL,
		CapabilityTimeout: cfg.NLPTimeout,
		RepositoryTimeout: cfg.RepositoryTimeout,
	})

	h := handlers.NewHandler(handlers.Deps{
		Store:               a.store,
		Contexts:            agg,
		NLP:                 nlpClient,
		Cache:               cachePinger,
		Logger:              logger,
		ContextDefaultLimit: cfg.ContextDefaultLimit,
	})

	limiter := middleware.NewRateLimiter(limitBackend, logger, middleware.RateLimiterConfig{
		Whitelist: cfg.RateLimitWhitelist,
	})

	a.handler = api.NewRouter(logger, h, limiter)
	return a, nil
}
