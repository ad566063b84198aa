package schema

// FoodNutrient represents the food_nutrients fact table: one measured amount
// per (food, nutrient) pair. Later imports for the same pair replace the row.
type FoodNutrient struct {
	// FoodID references foods.id
	FoodID int64 `gorm:"column:food_id;primaryKey;index:idx_food_nutrients_food"`
	// NutrientID references nutrients.id
	NutrientID int64 `gorm:"column:nutrient_id;primaryKey;index:idx_food_nutrients_nutrient"`
	// Amount is the measured amount per base serving, non-negative
	Amount float64 `gorm:"column:amount;not null"`
	// ConfidenceScore is a 0..1 confidence in the measurement
	ConfidenceScore float64 `gorm:"column:confidence_score;default:1.0"`

	// Associations
	Food     *Food     `gorm:"foreignKey:FoodID"`
	Nutrient *Nutrient `gorm:"foreignKey:NutrientID"`
}

// TableName specifies the table name for the FoodNutrient model
func (FoodNutrient) TableName() string {
	return "food_nutrients"
}
