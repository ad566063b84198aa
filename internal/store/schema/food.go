package schema

import (
	"time"
)

// Food represents the foods table. The internal ID is a surrogate key stable
// within one build; FdcID is the business key carried by every source file.
type Food struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// FdcID is the FoodData Central identifier, unique across the table
	FdcID int64 `gorm:"column:fdc_id;not null;uniqueIndex:idx_foods_fdc"`
	// Name is the food description from the source file
	Name string `gorm:"column:name;not null;type:text"`
	// CategoryID references food_categories; every non-nil value must exist
	// in food_categories or be the configured default category
	CategoryID *int64 `gorm:"column:category_id;index:idx_foods_category"`
	// BaseServingSize is the reference serving size all amounts are scaled to
	BaseServingSize float64 `gorm:"column:base_serving_size"`
	// BaseServingUnit is the unit of BaseServingSize
	BaseServingUnit string `gorm:"column:base_serving_unit;type:text"`
	// DataQualityScore is a 0..1 confidence in the source record
	DataQualityScore float64 `gorm:"column:data_quality_score"`
	// LastUpdated is the time this record was written by the build
	LastUpdated time.Time `gorm:"column:last_updated;not null;autoUpdateTime"`

	// Associations
	Category *FoodCategory `gorm:"foreignKey:CategoryID"`
}

// TableName specifies the table name for the Food model
func (Food) TableName() string {
	return "foods"
}
