package schema

// NutrientRanking represents the nutrient_rankings derived table: the
// statistical standing of each positive-amount fact row within its nutrient.
// Fully recomputed from food_nutrients; never hand-edited.
type NutrientRanking struct {
	// FoodID references foods.id
	FoodID int64 `gorm:"column:food_id;primaryKey"`
	// NutrientID references nutrients.id
	NutrientID int64 `gorm:"column:nutrient_id;primaryKey"`
	// Amount is the fact amount the ranking was computed from
	Amount float64 `gorm:"column:amount"`
	// PercentileRank is rank*100/count in (0, 100]; ties share a rank
	PercentileRank float64 `gorm:"column:percentile_rank"`
	// ZScore is (amount-mean)/(max-min), 0 when max==min. This is a
	// min-max-normalized deviation, not a standard-deviation z-score;
	// downstream consumers depend on this scale.
	ZScore float64 `gorm:"column:z_score"`
}

// TableName specifies the table name for the NutrientRanking model
func (NutrientRanking) TableName() string {
	return "nutrient_rankings"
}
