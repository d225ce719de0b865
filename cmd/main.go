package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fmt"

	"github.com/redis/go-redis/v9"

	httpadapter "adserver/internal/adapter/http"
	"adserver/internal/adapter/postgres"
	redisadapter "adserver/internal/adapter/redis"
	"adserver/internal/adapter/usecase"
	"adserver/internal/config"
	"adserver/internal/db"
	"adserver/internal/metrics"
)

// main is the entry point of the ad server. It loads configuration,
// optionally runs database migrations and seeding, initializes the
// database pool, the Redis client and the repositories, starts the flight
// snapshot refresher and the offer retention janitor, then starts the HTTP
// server. On receiving a termination signal it gracefully shuts down the
// server.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		// Initialise structured logger based on configuration.
		var handler slog.Handler
		level := cfg.Log.SlogLevel()
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		default:
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		logger = slog.New(handler)
	}

	clickWindows, err := usecase.ParseRateWindows(cfg.Ads.ClickRateLimits)
	if err != nil {
		logger.Error("bad click rate limits", slog.Any("error", err))
		os.Exit(1)
	}
	viewWindows, err := usecase.ParseRateWindows(cfg.Ads.ViewRateLimits)
	if err != nil {
		logger.Error("bad view rate limits", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.Psql.RunMigrations {
		if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
			logger.Error("migration error", slog.Any("error", err))
		} else {
			logger.Info("migrations applied successfully")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		logger.Error("database connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Psql.Seed {
		if err = db.Seed(ctx, pool); err != nil {
			logger.Error("seed error", slog.Any("error", err))
		} else {
			logger.Info("demo data seeded")
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	kv := redisadapter.NewKV(rdb)

	flightRepo := postgres.NewFlightRepository(pool)
	offerRepo := postgres.NewOfferRepository(pool)

	inventory := usecase.NewFlightCache(flightRepo, cfg.Ads.SnapshotTTL, logger)
	if err = inventory.Start(ctx); err != nil {
		logger.Error("initial flight snapshot failed", slog.Any("error", err))
		os.Exit(1)
	}

	m := metrics.New()
	svc := usecase.NewService(inventory, flightRepo, offerRepo, kv, kv, usecase.Config{
		StickyTTL:           cfg.Ads.StickyTTL,
		OfferMaxAge:         cfg.Ads.OfferMaxAge,
		ClickRateWindows:    clickWindows,
		ViewRateWindows:     viewWindows,
		InternalIPs:         cfg.Ads.InternalIPs,
		BlockedUserAgents:   cfg.Ads.BlockedUserAgents,
		BlockedReferrers:    cfg.Ads.BlockedReferrers,
		FallbackRedirectURL: cfg.Ads.FallbackRedirectURL,
		RecordViews:         cfg.Ads.RecordViews,
	}, logger, m)

	// Offer retention janitor. Aggregated counters survive pruning.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-cfg.Ads.OfferRetention)
				deleted, err := offerRepo.DeleteOlderThan(ctx, cutoff)
				if err != nil {
					logger.Error("offer prune error", slog.Any("error", err))
				} else if deleted > 0 {
					logger.Info("pruned old offers", slog.Int64("deleted", deleted))
				}
			}
		}
	}()

	handler := httpadapter.NewHandler(svc, logger, m)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	value := <-quit
	exitCode = 128 + int(value.(syscall.Signal))

	ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("server gracefully stopped")
	}
}
