package store

import (
	"context"

	"github.com/opennutrition/fdc-builder/internal/store/schema"
)

// FactRow is a single positive-amount fact emitted by the ordered scan used
// for ranking computation.
type FactRow struct {
	FoodID     int64
	NutrientID int64
	Amount     float64
}

// DensityInput is the slice of a common-nutrients row the density scoring
// pass reads.
type DensityInput struct {
	FoodID   int64   `gorm:"column:food_id"`
	Calories float64 `gorm:"column:calories"`
	Protein  float64 `gorm:"column:protein"`
	Fiber    float64 `gorm:"column:fiber"`
	VitaminC float64 `gorm:"column:vitamin_c"`
	Iron     float64 `gorm:"column:iron"`
	Calcium  float64 `gorm:"column:calcium"`
}

// Store defines the interface for database operations used by the build
// pipeline. The query-serving layer never goes through this interface; it
// only reads the derived tables.
type Store interface {
	// ResetSchema drops all build-owned tables in dependency order and
	// recreates them with their foreign keys and secondary indexes, in one
	// transaction. The checkpoint log is created if missing but never
	// dropped, so an aborted fact import stays resumable.
	ResetSchema(ctx context.Context) error

	// ReplaceNutrients deletes all nutrients and inserts the given set
	ReplaceNutrients(ctx context.Context, nutrients []schema.Nutrient) error
	// UpsertCategories inserts or updates the given categories by id
	UpsertCategories(ctx context.Context, categories []schema.FoodCategory) error
	// ListCategories returns all categories ordered by id
	ListCategories(ctx context.Context) ([]schema.FoodCategory, error)
	// ClearFoodData deletes fact and derived rows, then all foods, so the
	// food dimension can be rebuilt without foreign-key violations
	ClearFoodData(ctx context.Context) error
	// InsertFoods bulk-inserts foods, replacing rows with the same fdc_id
	InsertFoods(ctx context.Context, foods []schema.Food) error
	// FoodIDsByFdcID returns the fdc_id -> internal id mapping for all foods
	FoodIDsByFdcID(ctx context.Context) (map[int64]int64, error)
	// ReplacePortions deletes all common portions and inserts the given set
	ReplacePortions(ctx context.Context, portions []schema.CommonPortion) error

	// DeleteFoodNutrients removes all fact rows (fresh fact import)
	DeleteFoodNutrients(ctx context.Context) error
	// FlushFactBatch upserts the staged fact rows and appends the checkpoint
	// in a single transaction, so a crash loses at most one flush interval
	FlushFactBatch(ctx context.Context, facts []schema.FoodNutrient, cp schema.ImportCheckpoint) error
	// LatestCheckpoint returns the most recent checkpoint entry for a table,
	// or nil when the log has no entry for it
	LatestCheckpoint(ctx context.Context, table string) (*schema.ImportCheckpoint, error)
	// AppendCheckpoint appends an entry to the checkpoint log
	AppendCheckpoint(ctx context.Context, cp schema.ImportCheckpoint) error

	// PositiveFactsByNutrient streams fact rows with amount > 0 ordered by
	// (nutrient_id, amount) to the visitor
	PositiveFactsByNutrient(ctx context.Context, visit func(FactRow) error) error
	// ReplaceNutrientRankings deletes all rankings and inserts the given set
	// in one transaction
	ReplaceNutrientRankings(ctx context.Context, rankings []schema.NutrientRanking) error
	// RebuildCommonNutrients recomputes the common_nutrients_mv table from
	// food_nutrients joined with nutrients, one row per food
	RebuildCommonNutrients(ctx context.Context) error
	// DensityInputs returns the per-food component amounts the density
	// scoring pass consumes
	DensityInputs(ctx context.Context) ([]DensityInput, error)
	// ReplaceDensityScores deletes all density scores and inserts the given
	// set in one transaction
	ReplaceDensityScores(ctx context.Context, scores []schema.FoodDensityScore) error

	// TableCounts returns row counts for every build-owned table
	TableCounts(ctx context.Context) (map[string]int64, error)
	// OrphanedFactCount counts fact rows whose food_id has no matching food
	OrphanedFactCount(ctx context.Context) (int64, error)
	// MissingDensityScoreCount counts foods without a density score row
	MissingDensityScoreCount(ctx context.Context) (int64, error)
}
