package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/opennutrition/fdc-builder/internal/domain"
	"github.com/opennutrition/fdc-builder/internal/store/schema"
)

// insertBatchSize keeps batched inserts well under SQLite's bound-parameter
// limit for the widest model.
const insertBatchSize = 500

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLiteStore creates a new SQLite-backed store instance
func NewSQLiteStore(db *gorm.DB) Store {
	return &sqliteStore{db: db}
}

// Open opens (creating if necessary) the SQLite database file with the
// pragmas the build needs: foreign keys on, WAL journaling, and a busy
// timeout so the importer's writer never fails on a transient lock.
func Open(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_fk=1&_journal_mode=WAL&_busy_timeout=10000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	return db, nil
}

// ConfigureConnectionPool configures the connection pool of a GORM SQLite
// connection. The build is a single-writer job, so the defaults are small:
// MaxOpenConns 4, MaxIdleConns 2, ConnMaxLifetime unlimited.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 4
	}
	if maxIdleConns == 0 {
		maxIdleConns = 2
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return nil
}

// droppedOnReset lists the tables ResetSchema removes, children before
// parents so foreign keys never dangle mid-transaction. The checkpoint log is
// deliberately absent.
var droppedOnReset = []interface{}{
	&schema.FoodNutrient{},
	&schema.NutrientRanking{},
	&schema.FoodDensityScore{},
	&schema.CommonPortion{},
	&schema.CommonNutrients{},
	&schema.Food{},
	&schema.Nutrient{},
	&schema.FoodCategory{},
}

// migratedOnReset lists every build-owned table, parents first
var migratedOnReset = []interface{}{
	&schema.FoodCategory{},
	&schema.Nutrient{},
	&schema.Food{},
	&schema.FoodNutrient{},
	&schema.NutrientRanking{},
	&schema.CommonNutrients{},
	&schema.FoodDensityScore{},
	&schema.CommonPortion{},
	&schema.ImportCheckpoint{},
}

// ResetSchema drops and recreates all build-owned tables in one transaction
func (s *sqliteStore) ResetSchema(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range droppedOnReset {
			if !tx.Migrator().HasTable(model) {
				continue
			}
			if err := tx.Migrator().DropTable(model); err != nil {
				return fmt.Errorf("failed to drop table: %w", err)
			}
		}
		if err := tx.AutoMigrate(migratedOnReset...); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
		return nil
	})
	return domain.Tag(domain.ErrSchema, err)
}

// ReplaceNutrients deletes all nutrients and inserts the given set
func (s *sqliteStore) ReplaceNutrients(ctx context.Context, nutrients []schema.Nutrient) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM nutrients").Error; err != nil {
			return fmt.Errorf("failed to clear nutrients: %w", err)
		}
		if len(nutrients) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(nutrients, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert nutrients: %w", err)
		}
		return nil
	})
}

// UpsertCategories inserts or updates the given categories by id
func (s *sqliteStore) UpsertCategories(ctx context.Context, categories []schema.FoodCategory) error {
	if len(categories) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).CreateInBatches(categories, insertBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert categories: %w", err)
	}
	return nil
}

// ListCategories returns all categories ordered by id
func (s *sqliteStore) ListCategories(ctx context.Context) ([]schema.FoodCategory, error) {
	var categories []schema.FoodCategory
	err := s.db.WithContext(ctx).Order("id").Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ClearFoodData deletes fact and derived rows, then all foods
func (s *sqliteStore) ClearFoodData(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{
			"food_nutrients",
			"nutrient_rankings",
			"food_density_scores",
			"common_portions",
			"common_nutrients_mv",
			"foods",
		} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// InsertFoods bulk-inserts foods, replacing rows with the same fdc_id
func (s *sqliteStore) InsertFoods(ctx context.Context, foods []schema.Food) error {
	if len(foods) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "fdc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "category_id", "base_serving_size", "base_serving_unit",
			"data_quality_score", "last_updated",
		}),
	}).CreateInBatches(foods, insertBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to insert foods: %w", err)
	}
	return nil
}

// FoodIDsByFdcID returns the fdc_id -> internal id mapping for all foods
func (s *sqliteStore) FoodIDsByFdcID(ctx context.Context) (map[int64]int64, error) {
	rows, err := s.db.WithContext(ctx).Model(&schema.Food{}).
		Select("fdc_id, id").Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to scan food ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[int64]int64)
	for rows.Next() {
		var fdcID, id int64
		if err := rows.Scan(&fdcID, &id); err != nil {
			return nil, fmt.Errorf("failed to scan food id row: %w", err)
		}
		ids[fdcID] = id
	}
	return ids, rows.Err()
}

// ReplacePortions deletes all common portions and inserts the given set
func (s *sqliteStore) ReplacePortions(ctx context.Context, portions []schema.CommonPortion) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM common_portions").Error; err != nil {
			return fmt.Errorf("failed to clear portions: %w", err)
		}
		if len(portions) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(portions, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert portions: %w", err)
		}
		return nil
	})
}

// DeleteFoodNutrients removes all fact rows
func (s *sqliteStore) DeleteFoodNutrients(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec("DELETE FROM food_nutrients").Error; err != nil {
		return fmt.Errorf("failed to clear food nutrients: %w", err)
	}
	return nil
}

// FlushFactBatch upserts the staged fact rows and appends the checkpoint in a
// single transaction
func (s *sqliteStore) FlushFactBatch(ctx context.Context, facts []schema.FoodNutrient, cp schema.ImportCheckpoint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(facts) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "food_id"}, {Name: "nutrient_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"amount", "confidence_score"}),
			}).CreateInBatches(facts, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to upsert fact batch: %w", err)
			}
		}
		if err := tx.Create(&cp).Error; err != nil {
			return fmt.Errorf("failed to append checkpoint: %w", err)
		}
		return nil
	})
}

// PositiveFactsByNutrient streams fact rows with amount > 0 ordered by
// (nutrient_id, amount)
func (s *sqliteStore) PositiveFactsByNutrient(ctx context.Context, visit func(FactRow) error) error {
	rows, err := s.db.WithContext(ctx).Model(&schema.FoodNutrient{}).
		Select("food_id, nutrient_id, amount").
		Where("amount > 0").
		Order("nutrient_id, amount").
		Rows()
	if err != nil {
		return fmt.Errorf("failed to scan facts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var row FactRow
		if err := rows.Scan(&row.FoodID, &row.NutrientID, &row.Amount); err != nil {
			return fmt.Errorf("failed to scan fact row: %w", err)
		}
		if err := visit(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ReplaceNutrientRankings deletes all rankings and inserts the given set
func (s *sqliteStore) ReplaceNutrientRankings(ctx context.Context, rankings []schema.NutrientRanking) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM nutrient_rankings").Error; err != nil {
			return fmt.Errorf("failed to clear rankings: %w", err)
		}
		if len(rankings) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rankings, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert rankings: %w", err)
		}
		return nil
	})
}

// RebuildCommonNutrients recomputes the common_nutrients_mv table from the
// fact table joined with nutrients. The headline columns pick the maximum
// amount among nutrients whose name contains the key (SQLite LIKE is
// case-insensitive for ASCII); data_completeness caps the distinct-nutrient
// count at 10.
func (s *sqliteStore) RebuildCommonNutrients(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM common_nutrients_mv").Error; err != nil {
			return fmt.Errorf("failed to clear common nutrients: %w", err)
		}
		err := tx.Exec(`
			INSERT INTO common_nutrients_mv (
				food_id, name, calories, protein, fat, carbohydrates,
				fiber, sugar, calcium, iron, vitamin_c, vitamin_d,
				vitamin_b12, data_completeness
			)
			SELECT
				f.id,
				f.name,
				COALESCE(MAX(CASE WHEN n.name LIKE '%Energy%' THEN fn.amount END), 0),
				COALESCE(MAX(CASE WHEN n.name LIKE '%Protein%' THEN fn.amount END), 0),
				COALESCE(MAX(CASE WHEN n.name LIKE '%Total lipid%' THEN fn.amount END), 0),
				COALESCE(MAX(CASE WHEN n.name LIKE '%Carbohydrate%' THEN fn.amount END), 0),
				COALESCE(MAX(CASE WHEN n.name LIKE '%Fiber%' THEN fn.amount END), 0),
				COALESCE(MAX(CASE WHEN n.name LIKE '%Sugars%' THEN fn.amount END), 0),
				COALESCE(MAX(CASE WHEN n.name LIKE '%Calcium%' THEN fn.amount END), 0),
				COALESCE(MAX(CASE WHEN n.name LIKE '%Iron%' THEN fn.amount END), 0),
				COALESCE(MAX(CASE WHEN n.name LIKE '%Vitamin C%' THEN fn.amount END), 0),
				COALESCE(MAX(CASE WHEN n.name LIKE '%Vitamin D%' THEN fn.amount END), 0),
				COALESCE(MAX(CASE WHEN n.name LIKE '%Vitamin B-12%' THEN fn.amount END), 0),
				MIN(COUNT(DISTINCT fn.nutrient_id) / 10.0, 1.0)
			FROM foods f
			LEFT JOIN food_nutrients fn ON f.id = fn.food_id
			LEFT JOIN nutrients n ON fn.nutrient_id = n.id
			GROUP BY f.id, f.name
		`).Error
		if err != nil {
			return fmt.Errorf("failed to rebuild common nutrients: %w", err)
		}
		return nil
	})
}

// DensityInputs returns the per-food component amounts for density scoring
func (s *sqliteStore) DensityInputs(ctx context.Context) ([]DensityInput, error) {
	var inputs []DensityInput
	err := s.db.WithContext(ctx).Model(&schema.CommonNutrients{}).
		Select("food_id, calories, protein, fiber, vitamin_c, iron, calcium").
		Order("food_id").
		Find(&inputs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read density inputs: %w", err)
	}
	return inputs, nil
}

// ReplaceDensityScores deletes all density scores and inserts the given set
func (s *sqliteStore) ReplaceDensityScores(ctx context.Context, scores []schema.FoodDensityScore) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM food_density_scores").Error; err != nil {
			return fmt.Errorf("failed to clear density scores: %w", err)
		}
		if len(scores) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(scores, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert density scores: %w", err)
		}
		return nil
	})
}

// TableCounts returns row counts for every build-owned table
func (s *sqliteStore) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, model := range migratedOnReset {
		stmt := &gorm.Statement{DB: s.db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to resolve table name: %w", err)
		}
		var count int64
		if err := s.db.WithContext(ctx).Table(stmt.Schema.Table).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", stmt.Schema.Table, err)
		}
		counts[stmt.Schema.Table] = count
	}
	return counts, nil
}

// OrphanedFactCount counts fact rows whose food_id has no matching food
func (s *sqliteStore) OrphanedFactCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM food_nutrients fn
		LEFT JOIN foods f ON fn.food_id = f.id
		WHERE f.id IS NULL
	`).Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count orphaned facts: %w", err)
	}
	return count, nil
}

// MissingDensityScoreCount counts foods without a density score row
func (s *sqliteStore) MissingDensityScoreCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM foods f
		LEFT JOIN food_density_scores fds ON f.id = fds.food_id
		WHERE fds.food_id IS NULL
	`).Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count missing density scores: %w", err)
	}
	return count, nil
}

// errNotFound reports whether err is gorm's record-not-found
func errNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
