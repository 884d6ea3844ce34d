package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"stroomweg/internal/broker"
	"stroomweg/internal/config"
	cronrunner "stroomweg/internal/cron"
	"stroomweg/internal/datex"
	"stroomweg/internal/db"
	"stroomweg/internal/ingest"
	"stroomweg/internal/logger"
	gormrepository "stroomweg/internal/repository/gorm"
)

func main() {
	cfgPath := os.Getenv("SW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SW_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := broker.Open(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("redis open failed", zap.Error(err))
	}
	defer redisClient.Close()

	store := gormrepository.New(dbConn.Gorm)
	feedClient := &datex.Client{HTTP: &http.Client{Timeout: cfg.Feeds.FetchTimeout}}

	runner := &ingest.Runner{
		Reference: &ingest.ReferenceLoader{
			Client: feedClient,
			Repo:   store,
			Logger: logger,
			URL:    cfg.Feeds.MeasurementURL,
		},
		Speeds: &ingest.SpeedNormalizer{
			Client: feedClient,
			Logger: logger,
			URL:    cfg.Feeds.TrafficSpeedURL,
		},
		JourneyTimes: &ingest.JourneyTimeNormalizer{
			Client: feedClient,
			Logger: logger,
			URL:    cfg.Feeds.TravelTimeURL,
		},
		Repo:         store,
		Publisher:    &broker.Publisher{Redis: redisClient, Logger: logger},
		Logger:       logger,
		PollInterval: cfg.Ingest.PollInterval,
	}

	// The index mapping must exist before the first cycle; without it every
	// speed snapshot decodes to zero readings.
	logger.Info("loading site metadata", zap.String("url", cfg.Feeds.MeasurementURL))
	if err := runner.RefreshReference(ctx); err != nil {
		logger.Fatal("initial metadata load failed", zap.Error(err))
	}

	cronRunner := cronrunner.New(logger, ctx)
	_, err = cronRunner.Add(cfg.Ingest.ReferenceRefresh, func(ctx context.Context) {
		if err := runner.RefreshReference(ctx); err != nil {
			logger.Warn("metadata refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Warn("cron register metadata refresh failed", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	logger.Info("ingest loop starting", zap.Duration("interval", cfg.Ingest.PollInterval))
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("ingest loop stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
