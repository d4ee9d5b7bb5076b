package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetfilter/internal/amqp"
	"budgetfilter/internal/backend"
	"budgetfilter/internal/cache"
	"budgetfilter/internal/cli"
	"budgetfilter/internal/dimension"
	"budgetfilter/internal/filter"
	apphttp "budgetfilter/internal/http"
	"budgetfilter/internal/log"
	"budgetfilter/internal/options"
	"budgetfilter/internal/session"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	registry := dimension.Default()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	opts, err := backend.NewFactory(logger, registry.Fields()).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize option source", log.FieldError, err, log.FieldBackend, cfg.OptionsBackend)
		os.Exit(1)
	}

	// Warm the option cache; failures only mean a cold first request.
	if catalog, err := options.LoadAll(ctx, opts.Source, registry.Fields()); err != nil {
		logger.Warn("Option preload incomplete", log.FieldError, err, log.FieldCount, len(catalog))
	}

	sessions := session.NewMemoryStore(cfg.SessionTTL, cfg.PreviewUsers)

	sweeper := cache.NewManager(func(removed int) {
		logger.Debug("Expired entries swept", log.FieldComponent, log.ComponentCache, log.FieldCount, removed)
	})
	sweeper.Register(sessions)
	if opts.Cache != nil {
		sweeper.Register(opts.Cache)
	}
	sweeper.StartCleanup(5 * time.Minute)

	var renderer filter.Renderer = filter.VerbatimRenderer{}
	if cfg.CriteriaParameterized {
		renderer = filter.ParamRenderer{}
	}

	var (
		publisher  amqp.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(ctx, amqp.Config{
			URL:             cfg.AMQPURL,
			Exchange:        cfg.AMQPExchange,
			Queue:           cfg.AMQPQueue,
			ConnectAttempts: 3,
			Logger:          logger,
		})
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without criteria publication", log.FieldError, err)
		} else {
			publisher = amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:      ":" + cfg.Port,
		Registry:  registry,
		Renderer:  renderer,
		Options:   opts.Source,
		Sessions:  sessions,
		Ready:     opts.Ready,
		Publisher: publisher,
		Logger:    logger,
	})

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		sweeper.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := opts.Close(); err != nil {
			logger.Error("Option source cleanup failed", log.FieldError, err)
		}
	})

	logger.Info("Starting filter service",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		log.FieldBackend, cfg.OptionsBackend,
		"parameterized", cfg.CriteriaParameterized,
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
}
