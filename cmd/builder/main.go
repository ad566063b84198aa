package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opennutrition/fdc-builder/internal/adapter"
	"github.com/opennutrition/fdc-builder/internal/config"
	"github.com/opennutrition/fdc-builder/internal/domain"
	"github.com/opennutrition/fdc-builder/internal/logger"
	"github.com/opennutrition/fdc-builder/internal/pipeline"
	"github.com/opennutrition/fdc-builder/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	resumeOnly = flag.Bool("resume", false, "Skip schema reset and dimension loads; continue the fact import from its last checkpoint")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadBuilderConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Cancel on interrupt so the importer stops at a batch boundary; the
	// checkpoint log makes the next run resume where this one stopped
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "builder",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("Starting FDC database builder")

	// Open database
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err), zap.String("path", cfg.Database.Path))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}
	logger.Info("Opened database",
		zap.String("path", cfg.Database.Path),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)

	dataStore := store.NewSQLiteStore(db)
	clock := adapter.NewClock()

	builder := pipeline.NewBuilder(cfg, dataStore, clock)
	report, err := builder.Run(ctx, *resumeOnly)
	if err != nil {
		logger.Error(err, zap.String("build_id", buildID(report)))
		if errors.Is(err, domain.ErrImportInterrupted) {
			logger.Info("Re-run with -resume to continue from the last checkpoint")
		}
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func buildID(report *pipeline.Report) string {
	if report == nil {
		return ""
	}
	return report.BuildID
}
