// Package ranking derives the statistical tables from the completed fact
// table: per-nutrient percentile ranks and z-scores, the denormalized
// common-nutrients rows, and per-food density scores. All passes are full
// delete-then-insert recomputations and therefore idempotent.
package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/opennutrition/fdc-builder/internal/adapter"
	"github.com/opennutrition/fdc-builder/internal/logger"
	"github.com/opennutrition/fdc-builder/internal/store"
	"github.com/opennutrition/fdc-builder/internal/store/schema"
)

// Reference daily-intake denominators for the five density components
const (
	proteinRDA  = 50.0
	fiberRDA    = 25.0
	vitaminCRDA = 90.0
	ironRDA     = 18.0
	calciumRDA  = 1000.0
)

// Engine runs the three derivation passes in fixed order
type Engine struct {
	store store.Store
	clock adapter.Clock
}

// New creates a ranking engine
func New(s store.Store, clock adapter.Clock) *Engine {
	return &Engine{store: s, clock: clock}
}

// Result summarizes one engine run
type Result struct {
	Rankings      int64
	DensityScores int64
	Duration      time.Duration
}

// Run executes rankings, common-nutrients denormalization, and density
// scoring. The passes depend on each other in that order; each is its own
// transaction boundary.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := e.clock.Now()
	result := &Result{}

	rankings, err := e.rebuildRankings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild rankings: %w", err)
	}
	result.Rankings = rankings
	logger.Info("nutrient rankings rebuilt", zap.Int64("rows", rankings))

	if err := e.store.RebuildCommonNutrients(ctx); err != nil {
		return nil, fmt.Errorf("failed to rebuild common nutrients: %w", err)
	}
	logger.Info("common nutrients rebuilt")

	scores, err := e.rebuildDensityScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild density scores: %w", err)
	}
	result.DensityScores = scores
	logger.Info("density scores rebuilt", zap.Int64("rows", scores))

	result.Duration = e.clock.Since(start)
	return result, nil
}

// rebuildRankings streams positive-amount facts grouped by nutrient and
// computes competition ranks, percentiles, and min-max-normalized deviations
// in one ordered pass, then replaces the table
func (e *Engine) rebuildRankings(ctx context.Context) (int64, error) {
	var (
		rankings []schema.NutrientRanking
		group    []store.FactRow
		current  int64 = -1
	)

	finish := func() {
		if len(group) > 0 {
			rankings = append(rankings, rankGroup(group)...)
			group = group[:0]
		}
	}

	err := e.store.PositiveFactsByNutrient(ctx, func(row store.FactRow) error {
		if row.NutrientID != current {
			finish()
			current = row.NutrientID
		}
		group = append(group, row)
		return nil
	})
	if err != nil {
		return 0, err
	}
	finish()

	if err := e.store.ReplaceNutrientRankings(ctx, rankings); err != nil {
		return 0, err
	}
	return int64(len(rankings)), nil
}

// rankGroup ranks one nutrient's rows, already sorted ascending by amount.
// Competition ranking: ties share a rank, the next distinct amount takes
// rank = its 1-based position. The deviation uses (amount-mean)/(max-min),
// not a standard-deviation z-score; downstream consumers depend on that
// scale.
func rankGroup(rows []store.FactRow) []schema.NutrientRanking {
	n := len(rows)
	var sum float64
	for _, r := range rows {
		sum += r.Amount
	}
	mean := sum / float64(n)
	min := rows[0].Amount
	max := rows[n-1].Amount
	spread := max - min

	out := make([]schema.NutrientRanking, 0, n)
	rank := 1
	for idx, r := range rows {
		if idx > 0 && r.Amount != rows[idx-1].Amount {
			rank = idx + 1
		}
		var z float64
		if spread != 0 {
			z = (r.Amount - mean) / spread
		}
		out = append(out, schema.NutrientRanking{
			FoodID:         r.FoodID,
			NutrientID:     r.NutrientID,
			Amount:         r.Amount,
			PercentileRank: float64(rank) * 100.0 / float64(n),
			ZScore:         z,
		})
	}
	return out
}

// rebuildDensityScores computes the composite density score per food from
// its common-nutrients row and replaces the table
func (e *Engine) rebuildDensityScores(ctx context.Context) (int64, error) {
	inputs, err := e.store.DensityInputs(ctx)
	if err != nil {
		return 0, err
	}

	now := e.clock.Now()
	scores := make([]schema.FoodDensityScore, 0, len(inputs))
	for _, in := range inputs {
		total, completeness, contributions := DensityScore(in)
		raw, err := json.Marshal(contributions)
		if err != nil {
			return 0, fmt.Errorf("failed to encode category scores for food %d: %w", in.FoodID, err)
		}
		scores = append(scores, schema.FoodDensityScore{
			FoodID:               in.FoodID,
			TotalScore:           total,
			NutrientCompleteness: completeness,
			CaloriesPer100G:      in.Calories,
			CategoryScores:       datatypes.JSON(raw),
			LastUpdated:          now,
		})
	}

	if err := e.store.ReplaceDensityScores(ctx, scores); err != nil {
		return 0, err
	}
	return int64(len(scores)), nil
}

// DensityScore computes the composite 0-100-ish density score from the five
// reference-intake components. contributions holds each component's raw
// amount for later display. The sum is accumulated in a fixed component
// order so repeated runs over unchanged inputs reproduce the score bit for
// bit.
func DensityScore(in store.DensityInput) (total, completeness float64, contributions map[string]float64) {
	contributions = map[string]float64{
		"protein":   in.Protein,
		"fiber":     in.Fiber,
		"vitamin_c": in.VitaminC,
		"iron":      in.Iron,
		"calcium":   in.Calcium,
	}

	var positive int
	for _, component := range []float64{in.Protein, in.Fiber, in.VitaminC, in.Iron, in.Calcium} {
		if component > 0 {
			positive++
		}
	}

	sum := in.Protein/proteinRDA +
		in.Fiber/fiberRDA +
		in.VitaminC/vitaminCRDA +
		in.Iron/ironRDA +
		in.Calcium/calciumRDA

	total = 100.0 * sum / 5.0
	completeness = float64(positive) / 5.0
	return total, completeness, contributions
}
