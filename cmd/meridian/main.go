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
	"golang.org/x/sync/errgroup"

	"github.com/meridian-wms/meridian/internal/app"
	"github.com/meridian-wms/meridian/internal/insights"
	"github.com/meridian-wms/meridian/internal/inventory"
	"github.com/meridian-wms/meridian/internal/live"
	"github.com/meridian-wms/meridian/internal/masterdata/brokers"
	"github.com/meridian-wms/meridian/internal/notify"
	"github.com/meridian-wms/meridian/internal/observability"
	"github.com/meridian-wms/meridian/internal/orders"
	"github.com/meridian-wms/meridian/internal/platform/cache"
	"github.com/meridian-wms/meridian/internal/platform/db"
	"github.com/meridian-wms/meridian/internal/shipping/inbound"
	"github.com/meridian-wms/meridian/internal/shipping/outbound"
	"github.com/meridian-wms/meridian/internal/shipping/workflow"
	"github.com/meridian-wms/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

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

	broadcaster := live.NewBroadcaster(redisClient, logger)
	alerts := notify.NewService(pool, broadcaster, logger)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	engine := inventory.NewEngine(logger)

	brokerRepo := brokers.NewRepository(pool)
	brokerService := brokers.NewService(brokerRepo, logger)
	brokerHandler := brokers.NewHandler(logger, brokerService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, pool, engine, broadcaster, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	inboundFees := workflow.NewMachine(inbound.NewFeeStore(pool), alerts, broadcaster, logger)
	inboundRepo := inbound.NewRepository(pool, engine)
	inboundService := inbound.NewService(inbound.ServiceParams{
		Repo:     inboundRepo,
		Fees:     inboundFees,
		Alerts:   alerts,
		Live:     broadcaster,
		Brokers:  brokerService,
		Mail:     jobsClient,
		OpsEmail: cfg.OpsEmail,
		Logger:   logger,
	})
	inboundHandler := inbound.NewHandler(logger, inboundService)

	outboundFees := workflow.NewMachine(outbound.NewFeeStore(pool), alerts, broadcaster, logger)
	outboundRepo := outbound.NewRepository(pool)
	outboundService := outbound.NewService(outboundRepo, outboundFees, alerts, broadcaster, brokerService, logger)
	outboundHandler := outbound.NewHandler(logger, outboundService)

	orderRepo := orders.NewRepository(pool, engine)
	orderService := orders.NewService(orderRepo, alerts, broadcaster, logger)
	orderHandler := orders.NewHandler(logger, orderService)

	insightsCache := insights.NewCache(redisClient, cfg.InsightsCacheTTL)
	insightsService := insights.NewService(pool, insightsCache, logger)
	insightsHandler := insights.NewHandler(logger, insightsService)

	notifyHandler := notify.NewHandler(logger, alerts)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()
	sseHandler := live.NewSSEHandler(redisClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Metrics:       metrics,
		Inventory:     inventoryHandler,
		Inbound:       inboundHandler,
		Outbound:      outboundHandler,
		Orders:        orderHandler,
		Brokers:       brokerHandler,
		Insights:      insightsHandler,
		Notifications: notifyHandler,
		Jobs:          jobHandler,
		LiveStream:    sseHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
