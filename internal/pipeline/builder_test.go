package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opennutrition/fdc-builder/internal/adapter"
	"github.com/opennutrition/fdc-builder/internal/config"
	"github.com/opennutrition/fdc-builder/internal/logger"
	"github.com/opennutrition/fdc-builder/internal/store"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeDistribution(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeCSV(t, dir, "food_category.csv",
		"id,code,description\n"+
			"1,0100,Dairy and Egg Products\n"+
			"14,1400,Beverages\n")
	writeCSV(t, dir, "nutrient.csv",
		"id,name,unit_name,nutrient_nbr,rank\n"+
			"1003,Protein,G,203,600\n"+
			"1008,Energy,KCAL,208,300\n"+
			"1079,\"Fiber, total dietary\",G,291,1200\n"+
			"1087,\"Calcium, Ca\",MG,301,5300\n"+
			"1089,\"Iron, Fe\",MG,303,5400\n"+
			"1162,\"Vitamin C, total ascorbic acid\",MG,401,6300\n")
	writeCSV(t, dir, "food.csv",
		"fdc_id,data_type,description,food_category_id,publication_date\n"+
			"100,foundation_food,Cheddar Cheese,,2024-04-01\n"+
			"200,foundation_food,Orange Juice,14,2024-04-01\n")
	writeCSV(t, dir, "food_nutrient.csv",
		"id,fdc_id,nutrient_id,amount\n"+
			"1,100,1003,25\n"+
			"2,100,1079,5\n"+
			"3,100,1162,45\n"+
			"4,100,1089,9\n"+
			"5,100,1087,500\n"+
			"6,100,1008,400\n"+
			"7,200,1003,0.7\n"+
			"8,200,1008,45\n"+
			"9,200,1162,33\n")
	writeCSV(t, dir, "food_portion.csv",
		"id,fdc_id,amount,portion_description,modifier,gram_weight\n"+
			"1,100,1.0,1 cup shredded,shredded,113\n"+
			"2,200,1.0,1 cup,cup,248\n")
	return dir
}

func testConfig(t *testing.T, dir string) *config.BuilderConfig {
	t.Helper()
	cfg := &config.BuilderConfig{}
	cfg.Database.Path = filepath.Join(t.TempDir(), "build.db")
	cfg.Source.Dir = dir
	cfg.Importer.BatchSize = 4
	cfg.Importer.CheckpointInterval = 4
	cfg.Importer.Worker.PoolSize = 2
	cfg.Classifier.DefaultCategoryID = 1
	cfg.Verify.Strict = true
	return cfg
}

func TestBuilderFullRun(t *testing.T) {
	dir := writeDistribution(t)
	cfg := testConfig(t, dir)

	db, err := store.Open(cfg.Database.Path)
	require.NoError(t, err)
	s := store.NewSQLiteStore(db)

	report, err := NewBuilder(cfg, s, adapter.NewClock()).Run(context.Background(), false)
	require.NoError(t, err)

	assert.NotEmpty(t, report.BuildID)
	assert.Equal(t, int64(2), report.Categories)
	assert.Equal(t, int64(6), report.Nutrients)
	require.NotNil(t, report.Foods)
	assert.Equal(t, int64(2), report.Foods.Loaded)
	assert.Equal(t, int64(2), report.Portions)

	require.NotNil(t, report.Facts)
	assert.Equal(t, int64(9), report.Facts.Processed)
	assert.Equal(t, int64(9), report.Facts.Upserted)
	assert.False(t, report.Facts.Resumed)

	require.NotNil(t, report.Ranking)
	assert.Equal(t, int64(9), report.Ranking.Rankings)
	assert.Equal(t, int64(2), report.Ranking.DensityScores)

	require.NotNil(t, report.Verify)
	assert.True(t, report.Verify.OK())

	// The reference density example: protein 25, fiber 5, vitamin C 45,
	// iron 9, calcium 500 scores 44.0
	inputs, err := s.DensityInputs(context.Background())
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	for _, in := range inputs {
		if in.Protein == 25 {
			assert.Equal(t, 5.0, in.Fiber)
			assert.Equal(t, 45.0, in.VitaminC)
			assert.Equal(t, 9.0, in.Iron)
			assert.Equal(t, 500.0, in.Calcium)
		}
	}
}

func TestBuilderRerunIsClean(t *testing.T) {
	dir := writeDistribution(t)
	cfg := testConfig(t, dir)

	db, err := store.Open(cfg.Database.Path)
	require.NoError(t, err)
	s := store.NewSQLiteStore(db)
	builder := NewBuilder(cfg, s, adapter.NewClock())
	ctx := context.Background()

	first, err := builder.Run(ctx, false)
	require.NoError(t, err)
	second, err := builder.Run(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, first.Foods.Loaded, second.Foods.Loaded)
	assert.Equal(t, first.Facts.Upserted, second.Facts.Upserted)
	assert.Equal(t, first.Ranking.Rankings, second.Ranking.Rankings)
	assert.True(t, second.Verify.OK())
}

func TestBuilderResumeOnly(t *testing.T) {
	dir := writeDistribution(t)
	cfg := testConfig(t, dir)

	db, err := store.Open(cfg.Database.Path)
	require.NoError(t, err)
	s := store.NewSQLiteStore(db)
	builder := NewBuilder(cfg, s, adapter.NewClock())
	ctx := context.Background()

	_, err = builder.Run(ctx, false)
	require.NoError(t, err)

	// Resume mode must not touch the dimensions; the completed checkpoint
	// makes the fact import a full reimport over the existing schema
	report, err := builder.Run(ctx, true)
	require.NoError(t, err)
	assert.True(t, report.ResumeOnly)
	assert.Nil(t, report.Foods)
	require.NotNil(t, report.Facts)
	assert.False(t, report.Facts.Resumed)
	assert.True(t, report.Verify.OK())
}
