// Package importer loads the dimension tables and runs the checkpointed bulk
// import of the food-nutrient fact table.
package importer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/opennutrition/fdc-builder/internal/adapter"
	"github.com/opennutrition/fdc-builder/internal/classifier"
	"github.com/opennutrition/fdc-builder/internal/domain"
	"github.com/opennutrition/fdc-builder/internal/logger"
	"github.com/opennutrition/fdc-builder/internal/source"
	"github.com/opennutrition/fdc-builder/internal/store"
	"github.com/opennutrition/fdc-builder/internal/store/schema"
)

// foodInsertBatch is how many foods are buffered before an InsertFoods call
const foodInsertBatch = 5000

// DimensionLoader loads the small reference tables in full on every build
type DimensionLoader struct {
	store store.Store
	clock adapter.Clock
}

// NewDimensionLoader creates a dimension loader
func NewDimensionLoader(s store.Store, clock adapter.Clock) *DimensionLoader {
	return &DimensionLoader{store: s, clock: clock}
}

// FoodLoadResult summarizes a food dimension load
type FoodLoadResult struct {
	Loaded int64
	// DefaultCategory is how many foods fell back to the default category
	DefaultCategory int64
	Stats           *classifier.Stats
}

// LoadNutrients fully reloads the nutrients table from nutrient.csv. Rows
// that fail to parse are logged and skipped.
func (l *DimensionLoader) LoadNutrients(ctx context.Context, dir string) (loaded, skipped int64, err error) {
	f, err := source.Open(filepath.Join(dir, source.NutrientFile))
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	var nutrients []schema.Nutrient
	for {
		row, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, domain.Tag(domain.ErrSourceFile, err)
		}

		rec, err := source.ParseNutrient(f.Cols(), row)
		if err != nil {
			logger.Warn("skipping nutrient row",
				zap.Int64("row", f.Line()),
				zap.Error(domain.Tag(domain.ErrRowValidation, err)),
			)
			skipped++
			continue
		}
		nutrients = append(nutrients, schema.Nutrient{
			ID:          rec.ID,
			Name:        rec.Name,
			Unit:        rec.Unit,
			NutrientNbr: rec.NutrientNbr,
			Rank:        rec.Rank,
		})
	}

	if err := l.store.ReplaceNutrients(ctx, nutrients); err != nil {
		return 0, skipped, err
	}
	return int64(len(nutrients)), skipped, nil
}

// LoadCategories upserts the category dimension from food_category.csv. Rows
// that fail to parse are logged and skipped.
func (l *DimensionLoader) LoadCategories(ctx context.Context, dir string) (loaded, skipped int64, err error) {
	f, err := source.Open(filepath.Join(dir, source.FoodCategoryFile))
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	var categories []schema.FoodCategory
	for {
		row, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, domain.Tag(domain.ErrSourceFile, err)
		}

		rec, err := source.ParseCategory(f.Cols(), row)
		if err != nil {
			logger.Warn("skipping category row",
				zap.Int64("row", f.Line()),
				zap.Error(domain.Tag(domain.ErrRowValidation, err)),
			)
			skipped++
			continue
		}
		categories = append(categories, schema.FoodCategory{ID: rec.ID, Name: rec.Name})
	}

	if err := l.store.UpsertCategories(ctx, categories); err != nil {
		return 0, skipped, err
	}
	return int64(len(categories)), skipped, nil
}

// LoadFoods clears the fact and derived tables, classifies every row of
// food.csv, and rebuilds the food dimension. Unlike the other loads, any row
// failure aborts the import: food ids are referenced everywhere downstream,
// so a partial food dimension is worse than none.
func (l *DimensionLoader) LoadFoods(ctx context.Context, dir string, cls *classifier.Classifier) (*FoodLoadResult, error) {
	f, err := source.Open(filepath.Join(dir, source.FoodFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if err := l.store.ClearFoodData(ctx); err != nil {
		return nil, err
	}

	result := &FoodLoadResult{Stats: classifier.NewStats()}
	batch := make([]schema.Food, 0, foodInsertBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.store.InsertFoods(ctx, batch); err != nil {
			return err
		}
		result.Loaded += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		row, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, domain.Tag(domain.ErrSourceFile, err)
		}

		rec, err := source.ParseFood(f.Cols(), row)
		if err != nil {
			return nil, domain.Tag(domain.ErrRowValidation,
				fmt.Errorf("food row %d: %w", f.Line(), err))
		}

		categoryID, method := cls.Classify(rec.Name, rec.RawCategory)
		result.Stats.Record(method)
		if method == classifier.MatchDefault {
			result.DefaultCategory++
		}

		batch = append(batch, schema.Food{
			FdcID:            rec.FdcID,
			Name:             rec.Name,
			CategoryID:       &categoryID,
			BaseServingSize:  100.0,
			BaseServingUnit:  "g",
			DataQualityScore: 1.0,
			LastUpdated:      l.clock.Now(),
		})
		if len(batch) == foodInsertBatch {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	for _, method := range classifier.Methods {
		if n := result.Stats.Count(method); n > 0 {
			logger.Info("category match method",
				zap.String("method", string(method)),
				zap.Int64("foods", n),
				zap.Float64("share", float64(n)/float64(result.Stats.Total())),
			)
		}
	}

	return result, nil
}

// LoadPortions reloads common_portions from food_portion.csv. Malformed rows
// and rows for unknown foods are skipped and counted.
func (l *DimensionLoader) LoadPortions(ctx context.Context, dir string) (loaded, skipped int64, err error) {
	f, err := source.Open(filepath.Join(dir, source.FoodPortionFile))
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	foodIDs, err := l.store.FoodIDsByFdcID(ctx)
	if err != nil {
		return 0, 0, err
	}

	var portions []schema.CommonPortion
	for {
		row, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, domain.Tag(domain.ErrSourceFile, err)
		}

		rec, err := source.ParsePortion(f.Cols(), row)
		if err != nil {
			skipped++
			continue
		}
		foodID, ok := foodIDs[rec.FdcID]
		if !ok {
			skipped++
			continue
		}
		portions = append(portions, schema.CommonPortion{
			FoodID:           foodID,
			Description:      rec.Description,
			GramWeight:       rec.GramWeight,
			HouseholdMeasure: rec.Modifier,
		})
	}

	if err := l.store.ReplacePortions(ctx, portions); err != nil {
		return 0, skipped, err
	}
	return int64(len(portions)), skipped, nil
}
