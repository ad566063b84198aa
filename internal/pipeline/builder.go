// Package pipeline sequences the build phases and emits the end-of-run
// report. Each phase is its own transaction boundary, so a failure in phase N
// never rolls back committed phase N-1 work.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opennutrition/fdc-builder/internal/adapter"
	"github.com/opennutrition/fdc-builder/internal/classifier"
	"github.com/opennutrition/fdc-builder/internal/config"
	"github.com/opennutrition/fdc-builder/internal/importer"
	"github.com/opennutrition/fdc-builder/internal/logger"
	"github.com/opennutrition/fdc-builder/internal/ranking"
	"github.com/opennutrition/fdc-builder/internal/store"
	"github.com/opennutrition/fdc-builder/internal/verify"
)

// Builder orchestrates a full (or resumed) database build
type Builder struct {
	cfg   *config.BuilderConfig
	store store.Store
	clock adapter.Clock
}

// NewBuilder creates a build orchestrator
func NewBuilder(cfg *config.BuilderConfig, s store.Store, clock adapter.Clock) *Builder {
	return &Builder{cfg: cfg, store: s, clock: clock}
}

// Report is the structured end-of-run summary
type Report struct {
	BuildID    string
	ResumeOnly bool
	StartedAt  time.Time
	Duration   time.Duration

	Nutrients         int64
	NutrientsSkipped  int64
	Categories        int64
	CategoriesSkipped int64
	Foods             *importer.FoodLoadResult
	Portions          int64
	PortionsSkipped   int64
	Facts             *importer.FactImportResult
	Ranking           *ranking.Result
	Verify            *verify.Result
}

// Log writes the report through the structured logger
func (r *Report) Log() {
	fields := []zap.Field{
		zap.String("build_id", r.BuildID),
		zap.Bool("resume_only", r.ResumeOnly),
		zap.Duration("duration", r.Duration),
	}
	if r.Foods != nil {
		fields = append(fields,
			zap.Int64("foods", r.Foods.Loaded),
			zap.Int64("foods_default_category", r.Foods.DefaultCategory),
			zap.Int64("nutrients", r.Nutrients),
			zap.Int64("nutrients_skipped", r.NutrientsSkipped),
			zap.Int64("categories", r.Categories),
			zap.Int64("portions", r.Portions),
			zap.Int64("portions_skipped", r.PortionsSkipped),
		)
	}
	if r.Facts != nil {
		fields = append(fields,
			zap.Bool("facts_resumed", r.Facts.Resumed),
			zap.Int64("facts_processed", r.Facts.Processed),
			zap.Int64("facts_upserted", r.Facts.Upserted),
			zap.Int64("facts_skipped_amount", r.Facts.SkippedAmount),
			zap.Int64("facts_skipped_parse", r.Facts.SkippedParse),
			zap.Int64("facts_dropped_unknown_food", r.Facts.DroppedUnknownFood),
			zap.Int64("fact_flushes", r.Facts.Flushes),
		)
	}
	if r.Ranking != nil {
		fields = append(fields,
			zap.Int64("rankings", r.Ranking.Rankings),
			zap.Int64("density_scores", r.Ranking.DensityScores),
		)
	}
	if r.Verify != nil {
		fields = append(fields,
			zap.Bool("verify_ok", r.Verify.OK()),
			zap.Int64("orphaned_facts", r.Verify.OrphanedFacts),
			zap.Int64("foods_missing_density_score", r.Verify.FoodsMissingDensityScore),
		)
	}
	logger.Info("build finished", fields...)
}

// Run executes the build. resumeOnly skips the destructive schema reset and
// dimension loads and goes straight to the fact import, which continues from
// the last committed checkpoint, then re-derives and verifies.
func (b *Builder) Run(ctx context.Context, resumeOnly bool) (*Report, error) {
	report := &Report{
		BuildID:    uuid.NewString(),
		ResumeOnly: resumeOnly,
		StartedAt:  b.clock.Now(),
	}
	logger.Info("build starting",
		zap.String("build_id", report.BuildID),
		zap.Bool("resume_only", resumeOnly),
		zap.String("source_dir", b.cfg.Source.Dir),
		zap.String("database", b.cfg.Database.Path),
	)

	if !resumeOnly {
		if err := b.loadDimensions(ctx, report); err != nil {
			return report, err
		}
	}

	facts := importer.NewFactImporter(b.store, importer.FactImporterConfig{
		BatchSize:          b.cfg.Importer.BatchSize,
		CheckpointInterval: b.cfg.Importer.CheckpointInterval,
		PoolSize:           b.cfg.Importer.Worker.PoolSize,
		QueueSize:          b.cfg.Importer.Worker.QueueSize,
	}, b.clock)
	factResult, err := facts.Import(ctx, b.cfg.Source.Dir)
	report.Facts = factResult
	if err != nil {
		return report, fmt.Errorf("fact import failed: %w", err)
	}

	rankResult, err := ranking.New(b.store, b.clock).Run(ctx)
	if err != nil {
		return report, fmt.Errorf("ranking failed: %w", err)
	}
	report.Ranking = rankResult

	verifyResult, err := verify.New(b.store, b.cfg.Verify.Strict).Run(ctx)
	report.Verify = verifyResult
	if err != nil {
		return report, fmt.Errorf("verification failed: %w", err)
	}

	report.Duration = b.clock.Since(report.StartedAt)
	report.Log()
	return report, nil
}

// loadDimensions resets the schema and rebuilds the dimension tables
func (b *Builder) loadDimensions(ctx context.Context, report *Report) error {
	if err := b.store.ResetSchema(ctx); err != nil {
		return fmt.Errorf("schema reset failed: %w", err)
	}
	logger.Info("schema reset")

	loader := importer.NewDimensionLoader(b.store, b.clock)
	dir := b.cfg.Source.Dir

	loaded, skipped, err := loader.LoadCategories(ctx, dir)
	if err != nil {
		return fmt.Errorf("category load failed: %w", err)
	}
	report.Categories, report.CategoriesSkipped = loaded, skipped
	logger.Info("categories loaded", zap.Int64("rows", loaded), zap.Int64("skipped", skipped))

	loaded, skipped, err = loader.LoadNutrients(ctx, dir)
	if err != nil {
		return fmt.Errorf("nutrient load failed: %w", err)
	}
	report.Nutrients, report.NutrientsSkipped = loaded, skipped
	logger.Info("nutrients loaded", zap.Int64("rows", loaded), zap.Int64("skipped", skipped))

	cls, err := b.buildClassifier(ctx)
	if err != nil {
		return err
	}

	foods, err := loader.LoadFoods(ctx, dir, cls)
	if err != nil {
		return fmt.Errorf("food load failed: %w", err)
	}
	report.Foods = foods
	logger.Info("foods loaded",
		zap.Int64("rows", foods.Loaded),
		zap.Int64("default_category", foods.DefaultCategory),
	)

	loaded, skipped, err = loader.LoadPortions(ctx, dir)
	if err != nil {
		return fmt.Errorf("portion load failed: %w", err)
	}
	report.Portions, report.PortionsSkipped = loaded, skipped
	logger.Info("portions loaded", zap.Int64("rows", loaded), zap.Int64("skipped", skipped))

	return nil
}

// buildClassifier assembles the classifier from the loaded category dimension
// and the curated synonym tables
func (b *Builder) buildClassifier(ctx context.Context) (*classifier.Classifier, error) {
	categories, err := b.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	byID := make(map[int64]string, len(categories))
	for _, c := range categories {
		byID[c.ID] = c.Name
	}
	return classifier.New(classifier.Config{
		DefaultCategoryID: b.cfg.Classifier.DefaultCategoryID,
		Categories:        byID,
		Variants:          classifier.DefaultVariants,
		Brands:            classifier.DefaultBrands,
	}), nil
}
