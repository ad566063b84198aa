package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opennutrition/fdc-builder/internal/config"
	"github.com/opennutrition/fdc-builder/internal/logger"
	"github.com/opennutrition/fdc-builder/internal/store"
	"github.com/opennutrition/fdc-builder/internal/verify"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadVerifierConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx := context.Background()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "verify",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	// Open database
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err), zap.String("path", cfg.Database.Path))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}

	dataStore := store.NewSQLiteStore(db)

	result, err := verify.New(dataStore, cfg.Verify.Strict).Run(ctx)
	if result != nil {
		for table, count := range result.TableCounts {
			logger.Info("table count", zap.String("table", table), zap.Int64("rows", count))
		}
		logger.Info("integrity checks",
			zap.Bool("ok", result.OK()),
			zap.Int64("orphaned_facts", result.OrphanedFacts),
			zap.Int64("foods_missing_density_score", result.FoodsMissingDensityScore),
		)
	}
	if err != nil {
		logger.Error(err)
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
}
