package schema

// CommonPortion represents the common_portions table: household portion
// descriptions with gram weights, loaded from the portion reference file.
type CommonPortion struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// FoodID references foods.id
	FoodID int64 `gorm:"column:food_id;not null;index:idx_common_portions_food"`
	// Description is the portion description from the source file
	Description string `gorm:"column:description;type:text"`
	// GramWeight is the portion weight in grams
	GramWeight float64 `gorm:"column:gram_weight"`
	// HouseholdMeasure is the free-text portion modifier (e.g. "cup, sliced")
	HouseholdMeasure string `gorm:"column:household_measure;type:text"`

	// Associations
	Food *Food `gorm:"foreignKey:FoodID"`
}

// TableName specifies the table name for the CommonPortion model
func (CommonPortion) TableName() string {
	return "common_portions"
}
