package schema

import (
	"time"

	"gorm.io/datatypes"
)

// FoodDensityScore represents the food_density_scores derived table: a
// composite nutrient-density metric per food computed from the common
// nutrients row against fixed reference-intake denominators.
type FoodDensityScore struct {
	// FoodID references foods.id
	FoodID int64 `gorm:"column:food_id;primaryKey"`
	// TotalScore is the composite density score
	TotalScore float64 `gorm:"column:total_score"`
	// NutrientCompleteness is the fraction (0..1) of the five score
	// components present with a positive amount
	NutrientCompleteness float64 `gorm:"column:nutrient_completeness"`
	// CaloriesPer100G is the energy amount carried over for display
	CaloriesPer100G float64 `gorm:"column:calories_per_100g"`
	// CategoryScores holds each score component's raw amount as JSON
	// (protein, fiber, vitamin_c, iron, calcium)
	CategoryScores datatypes.JSON `gorm:"column:category_scores"`
	// LastUpdated is the time this row was recomputed
	LastUpdated time.Time `gorm:"column:last_updated;not null;autoUpdateTime"`
}

// TableName specifies the table name for the FoodDensityScore model
func (FoodDensityScore) TableName() string {
	return "food_density_scores"
}
