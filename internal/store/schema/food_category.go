package schema

// FoodCategory represents the food_categories dimension table. Categories are
// loaded in full from the reference CSV at the start of every build and are
// immutable afterwards.
type FoodCategory struct {
	// ID is the category identifier from the source file
	ID int64 `gorm:"column:id;primaryKey"`
	// Name is the category description, unique across the table
	Name string `gorm:"column:name;not null;uniqueIndex;type:text"`
}

// TableName specifies the table name for the FoodCategory model
func (FoodCategory) TableName() string {
	return "food_categories"
}
