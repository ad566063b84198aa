package store

import (
	"context"
	"fmt"

	"github.com/opennutrition/fdc-builder/internal/store/schema"
)

// LatestCheckpoint returns the most recent checkpoint entry for a table, or
// nil when the log has no entry for it. Resume decisions look only at this
// entry: an in_progress tail means the import stopped mid-run, anything else
// means start over.
func (s *sqliteStore) LatestCheckpoint(ctx context.Context, table string) (*schema.ImportCheckpoint, error) {
	var cp schema.ImportCheckpoint
	err := s.db.WithContext(ctx).
		Where("table_name = ?", table).
		Order("id DESC").
		First(&cp).Error
	if err != nil {
		if errNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint for %s: %w", table, err)
	}
	return &cp, nil
}

// AppendCheckpoint appends an entry to the checkpoint log
func (s *sqliteStore) AppendCheckpoint(ctx context.Context, cp schema.ImportCheckpoint) error {
	if err := s.db.WithContext(ctx).Create(&cp).Error; err != nil {
		return fmt.Errorf("failed to append checkpoint: %w", err)
	}
	return nil
}
