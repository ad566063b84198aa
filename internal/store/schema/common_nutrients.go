package schema

// CommonNutrients represents the common_nutrients_mv derived table: one
// wide-format row per food holding the headline nutrients the query layer
// reads most often. Fully recomputed from food_nutrients joined with
// nutrients.
type CommonNutrients struct {
	// FoodID references foods.id
	FoodID int64 `gorm:"column:food_id;primaryKey"`
	// Name is the food name, denormalized for single-table reads
	Name string `gorm:"column:name;type:text"`
	// Calories is the energy amount per base serving (KCAL)
	Calories float64 `gorm:"column:calories"`
	// Protein is the protein amount (G)
	Protein float64 `gorm:"column:protein"`
	// Fat is the total lipid amount (G)
	Fat float64 `gorm:"column:fat"`
	// Carbohydrates is the carbohydrate-by-difference amount (G)
	Carbohydrates float64 `gorm:"column:carbohydrates"`
	// Fiber is the total dietary fiber amount (G)
	Fiber float64 `gorm:"column:fiber"`
	// Sugar is the total sugars amount (G)
	Sugar float64 `gorm:"column:sugar"`
	// Calcium is the calcium amount (MG)
	Calcium float64 `gorm:"column:calcium"`
	// Iron is the iron amount (MG)
	Iron float64 `gorm:"column:iron"`
	// VitaminC is the vitamin C amount (MG)
	VitaminC float64 `gorm:"column:vitamin_c"`
	// VitaminD is the vitamin D amount (IU)
	VitaminD float64 `gorm:"column:vitamin_d"`
	// VitaminB12 is the vitamin B-12 amount (UG)
	VitaminB12 float64 `gorm:"column:vitamin_b12"`
	// DataCompleteness is min(distinct nutrients recorded / 10, 1.0)
	DataCompleteness float64 `gorm:"column:data_completeness"`
}

// TableName specifies the table name for the CommonNutrients model
func (CommonNutrients) TableName() string {
	return "common_nutrients_mv"
}
