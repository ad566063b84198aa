package source

import (
	"fmt"
	"strconv"
	"strings"
)

// NutrientRecord is one parsed row of nutrient.csv
type NutrientRecord struct {
	ID          int64
	Name        string
	Unit        string
	NutrientNbr *string
	Rank        *float64
}

// CategoryRecord is one parsed row of food_category.csv
type CategoryRecord struct {
	ID   int64
	Name string
}

// FoodRecord is one parsed row of food.csv. RawCategory carries the
// food_category_id column verbatim; the classifier interprets it.
type FoodRecord struct {
	FdcID       int64
	Name        string
	RawCategory string
}

// FactRecord is one parsed row of food_nutrient.csv with a numeric amount
type FactRecord struct {
	FdcID      int64
	NutrientID int64
	Amount     float64
}

// PortionRecord is one parsed row of food_portion.csv
type PortionRecord struct {
	FdcID       int64
	Amount      float64
	GramWeight  float64
	Description string
	Modifier    string
}

// ParseNutrient parses a nutrient.csv row
func ParseNutrient(cols Columns, row []string) (NutrientRecord, error) {
	id, err := parseInt(cols.Get(row, "id"), "id")
	if err != nil {
		return NutrientRecord{}, err
	}
	name := strings.TrimSpace(cols.Get(row, "name"))
	if name == "" {
		return NutrientRecord{}, fmt.Errorf("nutrient %d has empty name", id)
	}

	rec := NutrientRecord{
		ID:   id,
		Name: name,
		Unit: strings.TrimSpace(cols.Get(row, "unit_name")),
	}
	if nbr := strings.TrimSpace(cols.Get(row, "nutrient_nbr")); nbr != "" {
		rec.NutrientNbr = &nbr
	}
	if raw := strings.TrimSpace(cols.Get(row, "rank")); raw != "" {
		rank, err := parseFloat(raw, "rank")
		if err != nil {
			return NutrientRecord{}, err
		}
		rec.Rank = &rank
	}
	return rec, nil
}

// ParseCategory parses a food_category.csv row
func ParseCategory(cols Columns, row []string) (CategoryRecord, error) {
	id, err := parseInt(cols.Get(row, "id"), "id")
	if err != nil {
		return CategoryRecord{}, err
	}
	name := strings.TrimSpace(cols.Get(row, "description"))
	if name == "" {
		return CategoryRecord{}, fmt.Errorf("category %d has empty description", id)
	}
	return CategoryRecord{ID: id, Name: name}, nil
}

// ParseFood parses a food.csv row
func ParseFood(cols Columns, row []string) (FoodRecord, error) {
	fdcID, err := parseInt(cols.Get(row, "fdc_id"), "fdc_id")
	if err != nil {
		return FoodRecord{}, err
	}
	name := strings.TrimSpace(cols.Get(row, "description"))
	if name == "" {
		return FoodRecord{}, fmt.Errorf("food %d has empty description", fdcID)
	}
	return FoodRecord{
		FdcID:       fdcID,
		Name:        name,
		RawCategory: strings.TrimSpace(cols.Get(row, "food_category_id")),
	}, nil
}

// ParseFact parses a food_nutrient.csv row. ok is false when the amount is
// null or non-numeric; such rows are skipped, not errors.
func ParseFact(cols Columns, row []string) (rec FactRecord, ok bool, err error) {
	fdcID, err := parseInt(cols.Get(row, "fdc_id"), "fdc_id")
	if err != nil {
		return FactRecord{}, false, err
	}
	nutrientID, err := parseInt(cols.Get(row, "nutrient_id"), "nutrient_id")
	if err != nil {
		return FactRecord{}, false, err
	}

	raw := strings.TrimSpace(cols.Get(row, "amount"))
	if raw == "" {
		return FactRecord{}, false, nil
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return FactRecord{}, false, nil
	}

	return FactRecord{FdcID: fdcID, NutrientID: nutrientID, Amount: amount}, true, nil
}

// ParsePortion parses a food_portion.csv row
func ParsePortion(cols Columns, row []string) (PortionRecord, error) {
	fdcID, err := parseInt(cols.Get(row, "fdc_id"), "fdc_id")
	if err != nil {
		return PortionRecord{}, err
	}
	gramWeight, err := parseFloat(cols.Get(row, "gram_weight"), "gram_weight")
	if err != nil {
		return PortionRecord{}, err
	}

	rec := PortionRecord{
		FdcID:       fdcID,
		GramWeight:  gramWeight,
		Description: strings.TrimSpace(cols.Get(row, "portion_description")),
		Modifier:    strings.TrimSpace(cols.Get(row, "modifier")),
	}
	if raw := strings.TrimSpace(cols.Get(row, "amount")); raw != "" {
		amount, err := parseFloat(raw, "amount")
		if err != nil {
			return PortionRecord{}, err
		}
		rec.Amount = amount
	}
	return rec, nil
}

func parseInt(raw, field string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return v, nil
}

func parseFloat(raw, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return v, nil
}
