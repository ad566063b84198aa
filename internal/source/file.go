// Package source streams typed records out of the FoodData Central CSV
// distribution. Files are comma-separated with a header row; columns are
// located by header name so extra columns in a newer distribution are
// harmless.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opennutrition/fdc-builder/internal/domain"
)

// Input file names within the distribution directory
const (
	NutrientFile     = "nutrient.csv"
	FoodCategoryFile = "food_category.csv"
	FoodFile         = "food.csv"
	FoodNutrientFile = "food_nutrient.csv"
	FoodPortionFile  = "food_portion.csv"
)

// Columns maps lowercase header names to their field index
type Columns map[string]int

// Get returns the named field of row, or "" when the column is absent
func (c Columns) Get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Has reports whether the file carries the named column
func (c Columns) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// File is an open CSV source file positioned after its header row
type File struct {
	path string
	f    *os.File
	r    *csv.Reader
	cols Columns
	line int64
}

// Open opens a source file and consumes its header row. A missing or
// headerless file is a hard error for the stage that needs it.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.Tag(domain.ErrSourceFile, fmt.Errorf("failed to open source file %s: %w", path, err))
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, domain.Tag(domain.ErrSourceFile, fmt.Errorf("failed to read header of %s: %w", path, err))
	}

	cols := make(Columns, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return &File{path: path, f: f, r: r, cols: cols}, nil
}

// Cols returns the header column mapping
func (s *File) Cols() Columns {
	return s.cols
}

// Path returns the file path
func (s *File) Path() string {
	return s.path
}

// Line returns the number of data rows read so far, header excluded
func (s *File) Line() int64 {
	return s.line
}

// Next returns the next data row, or io.EOF when the file is exhausted
func (s *File) Next() ([]string, error) {
	row, err := s.r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read %s row %d: %w", s.path, s.line+1, err)
	}
	s.line++
	return row, nil
}

// Skip discards n data rows. Used to fast-forward to a resume offset.
func (s *File) Skip(n int64) error {
	for i := int64(0); i < n; i++ {
		if _, err := s.Next(); err != nil {
			if err == io.EOF {
				return fmt.Errorf("failed to skip to row %d of %s: file has only %d rows", n, s.path, s.line)
			}
			return err
		}
	}
	return nil
}

// Close closes the underlying file
func (s *File) Close() error {
	return s.f.Close()
}
