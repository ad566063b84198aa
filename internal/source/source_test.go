package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opennutrition/fdc-builder/internal/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSourceFile))
}

func TestFileStreaming(t *testing.T) {
	f, err := Open(writeFile(t, "id,name\n1,Protein\n2,Energy\n3,Water\n"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.True(t, f.Cols().Has("id"))
	assert.True(t, f.Cols().Has("name"))
	assert.False(t, f.Cols().Has("unit"))

	require.NoError(t, f.Skip(1))
	assert.Equal(t, int64(1), f.Line())

	row, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, "Energy", f.Cols().Get(row, "name"))
	assert.Equal(t, int64(2), f.Line())

	_, err = f.Next()
	require.NoError(t, err)
	_, err = f.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSkipPastEOF(t *testing.T) {
	f, err := Open(writeFile(t, "id\n1\n"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.Error(t, f.Skip(5))
}

func TestParseNutrient(t *testing.T) {
	f, err := Open(writeFile(t,
		"id,name,unit_name,nutrient_nbr,rank\n"+
			"1003,Protein,G,203,600.5\n"+
			"2047,Energy (Atwater General Factors),KCAL,,\n"+
			"x,Bad,G,,\n"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	row, _ := f.Next()
	rec, err := ParseNutrient(f.Cols(), row)
	require.NoError(t, err)
	assert.Equal(t, int64(1003), rec.ID)
	assert.Equal(t, "Protein", rec.Name)
	assert.Equal(t, "G", rec.Unit)
	require.NotNil(t, rec.NutrientNbr)
	assert.Equal(t, "203", *rec.NutrientNbr)
	require.NotNil(t, rec.Rank)
	assert.Equal(t, 600.5, *rec.Rank)

	row, _ = f.Next()
	rec, err = ParseNutrient(f.Cols(), row)
	require.NoError(t, err)
	assert.Nil(t, rec.NutrientNbr)
	assert.Nil(t, rec.Rank)

	row, _ = f.Next()
	_, err = ParseNutrient(f.Cols(), row)
	require.Error(t, err)
}

func TestParseFact(t *testing.T) {
	f, err := Open(writeFile(t,
		"id,fdc_id,nutrient_id,amount\n"+
			"1,100,1003,25.5\n"+
			"2,100,1008,\n"+
			"3,100,1051,n/a\n"+
			"4,bogus,1003,1\n"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	row, _ := f.Next()
	rec, ok, err := ParseFact(f.Cols(), row)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(100), rec.FdcID)
	assert.Equal(t, int64(1003), rec.NutrientID)
	assert.Equal(t, 25.5, rec.Amount)

	// Null amount: not an error, just not a fact
	row, _ = f.Next()
	_, ok, err = ParseFact(f.Cols(), row)
	require.NoError(t, err)
	assert.False(t, ok)

	// Non-numeric amount: same
	row, _ = f.Next()
	_, ok, err = ParseFact(f.Cols(), row)
	require.NoError(t, err)
	assert.False(t, ok)

	// Broken id: a real parse error
	row, _ = f.Next()
	_, _, err = ParseFact(f.Cols(), row)
	require.Error(t, err)
}

func TestParseFood(t *testing.T) {
	f, err := Open(writeFile(t,
		"fdc_id,data_type,description,food_category_id\n"+
			"321358,foundation_food,\"Cheese, cheddar\",1\n"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	row, _ := f.Next()
	rec, err := ParseFood(f.Cols(), row)
	require.NoError(t, err)
	assert.Equal(t, int64(321358), rec.FdcID)
	assert.Equal(t, "Cheese, cheddar", rec.Name)
	assert.Equal(t, "1", rec.RawCategory)
}

func TestParsePortion(t *testing.T) {
	f, err := Open(writeFile(t,
		"id,fdc_id,amount,portion_description,modifier,gram_weight\n"+
			"1,100,1.0,1 cup shredded,shredded,113\n"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	row, _ := f.Next()
	rec, err := ParsePortion(f.Cols(), row)
	require.NoError(t, err)
	assert.Equal(t, int64(100), rec.FdcID)
	assert.Equal(t, 1.0, rec.Amount)
	assert.Equal(t, 113.0, rec.GramWeight)
	assert.Equal(t, "1 cup shredded", rec.Description)
	assert.Equal(t, "shredded", rec.Modifier)
}
