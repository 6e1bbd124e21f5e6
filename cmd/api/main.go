package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/factory-onboarding/config"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/bootstrap"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/events"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/llm"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	logger, err := bootstrap.NewLogger(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		// The sink is best effort; onboarding works without it.
		logger.Warn("redis unavailable, decision records disabled", zap.Error(err))
	}
	var sink events.DecisionSink = events.NopSink{}
	if rdb != nil {
		defer rdb.Close()
		sink = events.NewRedisPublisher(rdb, cfg.Redis.DecisionChannel)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(registry)

	grammar, err := domain.NewIDGrammar(cfg.Onboarding.MachineIDPattern, cfg.Onboarding.JobIDPattern)
	if err != nil {
		logger.Fatal("invalid id grammar", zap.Error(err))
	}
	extractor := llm.NewHTTPExtractor(llm.Options{
		BaseURL:    cfg.LLM.BaseURL,
		ResultPath: cfg.LLM.ResultPath,
		Timeout:    cfg.Onboarding.ExtractTimeout,
		RatePerSec: cfg.LLM.RatePerSec,
		Burst:      cfg.LLM.Burst,
	})

	onboarding, err := service.NewOnboardingService(service.Settings{
		Grammar:            grammar,
		CoverageThreshold:  cfg.Onboarding.CoverageThreshold,
		DefaultDueTimeHour: cfg.Onboarding.DefaultDueTimeHour,
		ExtractTimeout:     cfg.Onboarding.ExtractTimeout,
	}, extractor, sink, logger, metrics)
	if err != nil {
		logger.Fatal("failed to create onboarding service", zap.Error(err))
	}

	probe := service.NewUpstreamProbe(extractor, metrics, logger)
	if err := probe.Start(cfg.LLM.ProbeSpec); err != nil {
		logger.Warn("upstream probe disabled", zap.Error(err))
	}
	defer probe.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "factory-onboarding",
		Version:     cfg.App.Version,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		APIKey:      cfg.Server.APIKey,
		Onboarding:  onboarding,
		Redis:       rdb,
		Upstream:    extractor,
		Registry:    registry,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
