// Package verify runs read-only post-build consistency checks. It never
// mutates data and is safe to run at any time for diagnostics.
package verify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opennutrition/fdc-builder/internal/domain"
	"github.com/opennutrition/fdc-builder/internal/logger"
	"github.com/opennutrition/fdc-builder/internal/store"
)

// Verifier runs the integrity checks
type Verifier struct {
	store store.Store
	// strict turns discrepancies into build failures instead of warnings
	strict bool
}

// New creates a verifier
func New(s store.Store, strict bool) *Verifier {
	return &Verifier{store: s, strict: strict}
}

// Result is the structured summary of one verification run
type Result struct {
	// TableCounts holds the row count of every build-owned table
	TableCounts map[string]int64
	// OrphanedFacts is the number of fact rows whose food is missing; must be
	// zero by construction
	OrphanedFacts int64
	// FoodsMissingDensityScore is the number of foods without a density
	// score; should be zero after a full scoring pass
	FoodsMissingDensityScore int64
}

// OK reports whether every check passed
func (r *Result) OK() bool {
	return r.OrphanedFacts == 0 && r.FoodsMissingDensityScore == 0
}

// Run executes all checks. In strict mode a failed check returns an
// integrity-violation error; otherwise discrepancies are logged as warnings.
func (v *Verifier) Run(ctx context.Context) (*Result, error) {
	counts, err := v.store.TableCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tables: %w", err)
	}

	orphans, err := v.store.OrphanedFactCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orphaned facts: %w", err)
	}

	missing, err := v.store.MissingDensityScoreCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count missing density scores: %w", err)
	}

	result := &Result{
		TableCounts:              counts,
		OrphanedFacts:            orphans,
		FoodsMissingDensityScore: missing,
	}

	for table, count := range counts {
		logger.Debug("table count", zap.String("table", table), zap.Int64("rows", count))
	}

	if result.OK() {
		return result, nil
	}

	if v.strict {
		return result, domain.Tag(domain.ErrIntegrityViolation,
			fmt.Errorf("%d orphaned facts, %d foods without density scores",
				orphans, missing))
	}

	logger.Warn("integrity checks found discrepancies",
		zap.Int64("orphaned_facts", orphans),
		zap.Int64("foods_missing_density_score", missing),
	)
	return result, nil
}
