package schema

// Nutrient represents the nutrients dimension table. The table is fully
// deleted and reinserted on every build.
type Nutrient struct {
	// ID is the nutrient identifier from the source file
	ID int64 `gorm:"column:id;primaryKey"`
	// Name is the nutrient display name (e.g. "Protein", "Vitamin B-12")
	Name string `gorm:"column:name;not null;type:text"`
	// Unit is the measurement unit (G, MG, UG, KCAL, ...)
	Unit string `gorm:"column:unit;not null;type:text"`
	// NutrientNbr is the legacy nutrient number, when present in the source
	NutrientNbr *string `gorm:"column:nutrient_nbr;type:text"`
	// Rank is the display ordering hint, when present in the source
	Rank *float64 `gorm:"column:rank"`
}

// TableName specifies the table name for the Nutrient model
func (Nutrient) TableName() string {
	return "nutrients"
}
