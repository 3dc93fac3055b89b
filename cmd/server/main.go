package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/chefmarket/backend/config"
	httpDelivery "github.com/chefmarket/backend/internal/delivery/http"
	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/infrastructure/cache"
	"github.com/chefmarket/backend/internal/infrastructure/metrics"
	"github.com/chefmarket/backend/internal/infrastructure/scraper"
	"github.com/chefmarket/backend/internal/infrastructure/sqlite"
	"github.com/chefmarket/backend/internal/logging"
	"github.com/chefmarket/backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Server.Environment, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting ChefMarket backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache_type", cfg.Cache.Type),
		zap.String("database", cfg.Database.Path))

	collector := metrics.NewCollector("chefmarket")

	// Initialize infrastructure dependencies
	store, err := cache.NewStore(cache.Options{
		Type:      cfg.Cache.Type,
		RedisURL:  cfg.Cache.RedisURL,
		KeyPrefix: cfg.Cache.KeyPrefix,
		OpTimeout: cfg.Cache.OpTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("build cache: %w", err)
	}
	defer func() { _ = store.Close() }()
	if !store.Enabled() {
		logger.Warn("cache unavailable, continuing without it")
	}

	codec, err := cache.NewCodec(cfg.Cache.Codec)
	if err != nil {
		return fmt.Errorf("build cache codec: %w", err)
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	sourceRepo := sqlite.NewPriceSourceRepository(db)
	priceRepo := sqlite.NewScrapedPriceRepository(db)

	client := scraper.NewClient(scraper.ClientOptions{
		Timeout:           cfg.Scraper.Timeout,
		UserAgent:         cfg.Scraper.UserAgent,
		RequestsPerSecond: cfg.Scraper.RequestsPerSecond,
		Burst:             cfg.Scraper.Burst,
		BreakerFailures:   cfg.Scraper.BreakerFailures,
		BreakerCooldown:   cfg.Scraper.BreakerCooldown,
		MaxBodyBytes:      cfg.Scraper.MaxBodyBytes,
	}, logger)
	engine := scraper.NewEngine(client, priceRepo, cfg.Scraper.DefaultCurrency, logger)

	// Initialize usecase layer
	window := domain.FreshnessWindow(cfg.Scraper.FreshnessWindow)

	comparisons := usecase.NewComparisonService(
		priceRepo,
		store,
		codec,
		usecase.ComparisonServiceConfig{Window: window, CacheTTL: cfg.Cache.ComparisonTTL},
		collector,
		logger,
	)
	sources := usecase.NewPriceSourceService(
		sourceRepo,
		cache.NewNamespace(store, codec, "price_sources", "v1",
			cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
			cache.WithObserver(collector),
			cache.WithLogger(logger),
		),
		comparisons,
		usecase.PriceSourceServiceConfig{CacheTTL: cfg.Cache.SourceTTL},
		logger,
	)
	scrapes := usecase.NewScrapeService(
		sources,
		engine,
		usecase.NewFreshnessCache(priceRepo, window, logger),
		priceRepo,
		comparisons,
		collector,
		usecase.ScrapeServiceConfig{
			MaxConcurrency:  cfg.Scraper.MaxConcurrency,
			FreshnessWindow: window,
		},
		logger,
	)

	handler := httpDelivery.NewHandler(httpDelivery.Dependencies{
		Sources:     sources,
		Scrapes:     scrapes,
		Comparisons: comparisons,
		CacheAdmin:  usecase.NewCacheAdminService(store, logger),
	}, logger)

	router := httpDelivery.SetupRouter(cfg, handler, httpDelivery.RouterOptions{
		Logger:   logger,
		Observer: collector,
		Metrics:  collector.Handler(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
