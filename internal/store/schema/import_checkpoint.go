package schema

import (
	"time"
)

// CheckpointStatus represents the state of a bulk import recorded in the
// checkpoint log
type CheckpointStatus string

const (
	// CheckpointInProgress marks a durable flush of a partially completed import
	CheckpointInProgress CheckpointStatus = "in_progress"
	// CheckpointCompleted marks the terminal entry of a finished import
	CheckpointCompleted CheckpointStatus = "completed"
)

// ImportCheckpoint represents the import_checkpoint table: an append-only log
// of bulk-import progress. The importer resumes from the most recent entry
// when it is still in progress; query-time code never reads this table.
type ImportCheckpoint struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Table is the destination table the import writes into
	Table string `gorm:"column:table_name;not null;index:idx_import_checkpoint_table;type:text"`
	// LastProcessed is the source-row offset reached by the flush
	LastProcessed int64 `gorm:"column:last_processed;not null"`
	// TotalRecords is the total number of source rows, when known
	TotalRecords int64 `gorm:"column:total_records"`
	// Status is in_progress for intermediate flushes, completed for the
	// terminal entry
	Status CheckpointStatus `gorm:"column:status;not null;type:text"`
	// CreatedAt is the time the checkpoint was written
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

// TableName specifies the table name for the ImportCheckpoint model
func (ImportCheckpoint) TableName() string {
	return "import_checkpoint"
}
