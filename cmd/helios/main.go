package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/helios-b2b/helios/internal/app"
	"github.com/helios-b2b/helios/internal/catalog"
	"github.com/helios-b2b/helios/internal/migrate"
	"github.com/helios-b2b/helios/internal/observability"
	"github.com/helios-b2b/helios/internal/platform/cache"
	"github.com/helios-b2b/helios/internal/platform/db"
	"github.com/helios-b2b/helios/internal/pricing"
	"github.com/helios-b2b/helios/internal/stock"
	"github.com/helios-b2b/helios/internal/sync"
	"github.com/helios-b2b/helios/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := migrate.Up(cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, logger)
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	catalogRepo := catalog.NewRepository(pool)
	syncService := sync.NewService(catalogRepo, logger, metrics, jobsClient, sync.ServiceConfig{
		RejectStaleStock: cfg.SyncRejectStaleStock,
	})
	syncHandler := sync.NewHandler(logger, syncService, cfg.SyncSecret)

	quoteCache := pricing.NewQuoteCache(redisClient, cfg.PriceCacheTTL)
	pricingRepo := pricing.NewRepository(pool)
	pricingService := pricing.NewService(pricingRepo, quoteCache, metrics, logger)
	pricingHandler := pricing.NewHandler(logger, pricingService)

	stockService := stock.NewService(stock.NewRepository(pool))
	stockHandler := stock.NewHandler(logger, stockService)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SyncHandler:    syncHandler,
		PricingHandler: pricingHandler,
		StockHandler:   stockHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
