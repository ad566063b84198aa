package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opennutrition/fdc-builder/internal/store/schema"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, ConfigureConnectionPool(db, 0, 0, 0))

	s := NewSQLiteStore(db)
	require.NoError(t, s.ResetSchema(context.Background()))
	return s
}

func TestResetSchemaPreservesCheckpointLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendCheckpoint(ctx, schema.ImportCheckpoint{
		Table:         "food_nutrients",
		LastProcessed: 500000,
		Status:        schema.CheckpointInProgress,
	}))

	// A second reset drops and recreates every table except the checkpoint
	// log, so an aborted import survives the destructive phase
	require.NoError(t, s.ResetSchema(ctx))

	cp, err := s.LatestCheckpoint(ctx, "food_nutrients")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, int64(500000), cp.LastProcessed)

	counts, err := s.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts["foods"])
	assert.Equal(t, int64(1), counts["import_checkpoint"])
}

func TestLatestCheckpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cp, err := s.LatestCheckpoint(ctx, "food_nutrients")
	require.NoError(t, err)
	assert.Nil(t, cp, "empty log returns nil, not an error")

	for _, entry := range []schema.ImportCheckpoint{
		{Table: "food_nutrients", LastProcessed: 100, Status: schema.CheckpointInProgress},
		{Table: "food_nutrients", LastProcessed: 200, Status: schema.CheckpointInProgress},
		{Table: "other_table", LastProcessed: 999, Status: schema.CheckpointCompleted},
	} {
		require.NoError(t, s.AppendCheckpoint(ctx, entry))
	}

	cp, err = s.LatestCheckpoint(ctx, "food_nutrients")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, int64(200), cp.LastProcessed, "the most recent entry wins")
	assert.Equal(t, schema.CheckpointInProgress, cp.Status)
	assert.False(t, cp.CreatedAt.IsZero())
}

func TestInsertFoodsReplacesByFdcID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertFoods(ctx, []schema.Food{
		{FdcID: 100, Name: "Old name", BaseServingSize: 100, BaseServingUnit: "g", DataQualityScore: 1},
	}))
	require.NoError(t, s.InsertFoods(ctx, []schema.Food{
		{FdcID: 100, Name: "New name", BaseServingSize: 100, BaseServingUnit: "g", DataQualityScore: 1},
	}))

	ids, err := s.FoodIDsByFdcID(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	counts, err := s.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["foods"])
}

func TestFlushFactBatchUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertFoods(ctx, []schema.Food{
		{FdcID: 100, Name: "Food", BaseServingSize: 100, BaseServingUnit: "g", DataQualityScore: 1},
	}))
	require.NoError(t, s.ReplaceNutrients(ctx, []schema.Nutrient{{ID: 1003, Name: "Protein", Unit: "G"}}))
	ids, err := s.FoodIDsByFdcID(ctx)
	require.NoError(t, err)

	cp := schema.ImportCheckpoint{Table: "food_nutrients", LastProcessed: 1, Status: schema.CheckpointInProgress}
	require.NoError(t, s.FlushFactBatch(ctx, []schema.FoodNutrient{
		{FoodID: ids[100], NutrientID: 1003, Amount: 10, ConfidenceScore: 1},
	}, cp))

	// Second flush for the same pair replaces, not duplicates
	cp.LastProcessed = 2
	require.NoError(t, s.FlushFactBatch(ctx, []schema.FoodNutrient{
		{FoodID: ids[100], NutrientID: 1003, Amount: 20, ConfidenceScore: 1},
	}, cp))

	counts, err := s.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["food_nutrients"])
	assert.Equal(t, int64(2), counts["import_checkpoint"])

	var amounts []float64
	err = s.PositiveFactsByNutrient(ctx, func(row FactRow) error {
		amounts = append(amounts, row.Amount)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{20}, amounts)
}

func TestPositiveFactsByNutrientOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertFoods(ctx, []schema.Food{
		{FdcID: 1, Name: "A", BaseServingSize: 100, BaseServingUnit: "g", DataQualityScore: 1},
		{FdcID: 2, Name: "B", BaseServingSize: 100, BaseServingUnit: "g", DataQualityScore: 1},
	}))
	require.NoError(t, s.ReplaceNutrients(ctx, []schema.Nutrient{
		{ID: 10, Name: "N10", Unit: "G"},
		{ID: 20, Name: "N20", Unit: "G"},
	}))
	ids, err := s.FoodIDsByFdcID(ctx)
	require.NoError(t, err)

	require.NoError(t, s.FlushFactBatch(ctx, []schema.FoodNutrient{
		{FoodID: ids[1], NutrientID: 20, Amount: 5, ConfidenceScore: 1},
		{FoodID: ids[2], NutrientID: 10, Amount: 9, ConfidenceScore: 1},
		{FoodID: ids[1], NutrientID: 10, Amount: 3, ConfidenceScore: 1},
		{FoodID: ids[2], NutrientID: 20, Amount: 0, ConfidenceScore: 1},
	}, schema.ImportCheckpoint{Table: "food_nutrients", LastProcessed: 4, Status: schema.CheckpointCompleted}))

	type seen struct {
		nutrientID int64
		amount     float64
	}
	var rows []seen
	err = s.PositiveFactsByNutrient(ctx, func(row FactRow) error {
		rows = append(rows, seen{nutrientID: row.NutrientID, amount: row.Amount})
		return nil
	})
	require.NoError(t, err)

	// Zero amounts excluded; ordered by nutrient then amount
	assert.Equal(t, []seen{
		{nutrientID: 10, amount: 3},
		{nutrientID: 10, amount: 9},
		{nutrientID: 20, amount: 5},
	}, rows)
}

func TestRebuildCommonNutrients(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertFoods(ctx, []schema.Food{
		{FdcID: 100, Name: "Cheddar Cheese", BaseServingSize: 100, BaseServingUnit: "g", DataQualityScore: 1},
	}))
	require.NoError(t, s.ReplaceNutrients(ctx, []schema.Nutrient{
		{ID: 1003, Name: "Protein", Unit: "G"},
		{ID: 1008, Name: "Energy", Unit: "KCAL"},
		{ID: 1106, Name: "Vitamin D (D2 + D3)", Unit: "UG"},
	}))
	ids, err := s.FoodIDsByFdcID(ctx)
	require.NoError(t, err)

	require.NoError(t, s.FlushFactBatch(ctx, []schema.FoodNutrient{
		{FoodID: ids[100], NutrientID: 1003, Amount: 25, ConfidenceScore: 1},
		{FoodID: ids[100], NutrientID: 1008, Amount: 400, ConfidenceScore: 1},
		{FoodID: ids[100], NutrientID: 1106, Amount: 0.6, ConfidenceScore: 1},
	}, schema.ImportCheckpoint{Table: "food_nutrients", LastProcessed: 3, Status: schema.CheckpointCompleted}))

	require.NoError(t, s.RebuildCommonNutrients(ctx))

	inputs, err := s.DensityInputs(ctx)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, 25.0, inputs[0].Protein)
	assert.Equal(t, 400.0, inputs[0].Calories)
	assert.Equal(t, 0.0, inputs[0].Fiber, "absent nutrients default to 0")
}

func TestMissingDensityScoreCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertFoods(ctx, []schema.Food{
		{FdcID: 1, Name: "A", BaseServingSize: 100, BaseServingUnit: "g", DataQualityScore: 1},
		{FdcID: 2, Name: "B", BaseServingSize: 100, BaseServingUnit: "g", DataQualityScore: 1},
	}))

	missing, err := s.MissingDensityScoreCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), missing)

	ids, err := s.FoodIDsByFdcID(ctx)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceDensityScores(ctx, []schema.FoodDensityScore{
		{FoodID: ids[1], TotalScore: 10},
	}))

	missing, err = s.MissingDensityScoreCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), missing)

	orphans, err := s.OrphanedFactCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), orphans)
}
