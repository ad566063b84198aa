package importer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/opennutrition/fdc-builder/internal/adapter"
	"github.com/opennutrition/fdc-builder/internal/domain"
	"github.com/opennutrition/fdc-builder/internal/logger"
	"github.com/opennutrition/fdc-builder/internal/source"
	"github.com/opennutrition/fdc-builder/internal/store"
	"github.com/opennutrition/fdc-builder/internal/store/schema"
)

// FactTable is the checkpoint log key of the fact import
const FactTable = "food_nutrients"

// FactImporterConfig holds fact importer tuning knobs
type FactImporterConfig struct {
	// BatchSize is how many source rows each parse task covers
	BatchSize int64
	// CheckpointInterval is how many source rows pass between durable flushes
	CheckpointInterval int64
	// PoolSize bounds the parse worker pool
	PoolSize int
	// QueueSize bounds how many parsed batches may wait for the writer
	QueueSize int
	// FlushRetryTime bounds how long a failing flush is retried before the
	// import gives up
	FlushRetryTime time.Duration
}

// FactImporter streams food_nutrient.csv through an in-memory staging area
// into the fact table in bounded batches, persisting checkpoints so an
// interrupted run resumes without reprocessing or duplicating completed work.
type FactImporter struct {
	store store.Store
	cfg   FactImporterConfig
	clock adapter.Clock
}

// NewFactImporter creates a fact importer
func NewFactImporter(s store.Store, cfg FactImporterConfig, clock adapter.Clock) *FactImporter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100000
	}
	if cfg.CheckpointInterval < cfg.BatchSize {
		cfg.CheckpointInterval = 5 * cfg.BatchSize
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 2 * cfg.PoolSize
	}
	if cfg.FlushRetryTime <= 0 {
		cfg.FlushRetryTime = 2 * time.Minute
	}
	return &FactImporter{store: s, cfg: cfg, clock: clock}
}

// FactImportResult summarizes a fact import run
type FactImportResult struct {
	// Resumed is true when the run continued a previous in_progress import
	Resumed bool
	// ResumeOffset is the source-row offset the run started from
	ResumeOffset int64
	// Processed is how many source rows this run consumed
	Processed int64
	// Offset is the final source-row offset, equal to the total row count on
	// a completed run
	Offset int64
	// Upserted is how many fact rows were written across all flushes
	Upserted int64
	// SkippedAmount counts rows with a null or non-numeric amount
	SkippedAmount int64
	// SkippedParse counts rows whose ids could not be parsed
	SkippedParse int64
	// DroppedUnknownFood counts rows referencing foods absent from the
	// dimension; these are silently dropped, not errors
	DroppedUnknownFood int64
	// Flushes is how many checkpointed flush transactions committed
	Flushes  int64
	Duration time.Duration
}

type factKey struct {
	fdcID      int64
	nutrientID int64
}

// parsedChunk is the output of one parallel parse task
type parsedChunk struct {
	facts         []source.FactRecord
	skippedAmount int64
	skippedParse  int64
}

// Import runs the checkpointed fact import from food_nutrient.csv in dir
func (i *FactImporter) Import(ctx context.Context, dir string) (*FactImportResult, error) {
	start := i.clock.Now()
	result := &FactImportResult{}

	// Resume is a pure function of the last checkpoint entry: an in_progress
	// tail means continue from its offset, anything else means full reimport.
	cp, err := i.store.LatestCheckpoint(ctx, FactTable)
	if err != nil {
		return nil, err
	}
	if cp != nil && cp.Status == schema.CheckpointInProgress {
		result.Resumed = true
		result.ResumeOffset = cp.LastProcessed
		logger.Info("resuming fact import",
			zap.Int64("offset", cp.LastProcessed),
			zap.Time("checkpoint_at", cp.CreatedAt),
		)
	} else {
		if err := i.store.DeleteFoodNutrients(ctx); err != nil {
			return nil, err
		}
	}

	f, err := source.Open(filepath.Join(dir, source.FoodNutrientFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if result.ResumeOffset > 0 {
		if err := f.Skip(result.ResumeOffset); err != nil {
			return nil, domain.Tag(domain.ErrSourceFile, err)
		}
	}

	foodIDs, err := i.store.FoodIDsByFdcID(ctx)
	if err != nil {
		return nil, err
	}

	if err := i.run(ctx, f, foodIDs, result); err != nil {
		// Committed flushes stay durable; re-invoking the importer resumes
		// from the last checkpoint.
		return result, domain.Tag(domain.ErrImportInterrupted, err)
	}

	result.Duration = i.clock.Since(start)
	return result, nil
}

// run drives the parse pool and the single writer loop
func (i *FactImporter) run(ctx context.Context, f *source.File, foodIDs map[int64]int64, result *FactImportResult) error {
	pool := pond.NewResultPool[parsedChunk](
		i.cfg.PoolSize,
		pond.WithQueueSize(i.cfg.QueueSize),
	)
	defer pool.StopAndWait()

	staging := make(map[factKey]float64)
	offset := result.ResumeOffset
	lastFlush := result.ResumeOffset

	// apply folds one parsed chunk into staging in submission order, so
	// duplicate pairs keep last-write-wins semantics across the whole run
	apply := func(chunk parsedChunk, rows int64) error {
		for _, rec := range chunk.facts {
			staging[factKey{fdcID: rec.FdcID, nutrientID: rec.NutrientID}] = rec.Amount
		}
		result.SkippedAmount += chunk.skippedAmount
		result.SkippedParse += chunk.skippedParse
		result.Processed += rows
		offset += rows

		if offset-lastFlush >= i.cfg.CheckpointInterval {
			if err := i.flush(ctx, staging, foodIDs, offset, 0, schema.CheckpointInProgress, result); err != nil {
				return err
			}
			staging = make(map[factKey]float64)
			lastFlush = offset
		}
		return nil
	}

	// pending holds in-flight parse tasks in submission order; the writer
	// consumes them FIFO
	type inflight struct {
		task pond.Result[parsedChunk]
		rows int64
	}
	var pending []inflight
	maxPending := i.cfg.PoolSize + i.cfg.QueueSize

	drainOne := func() error {
		head := pending[0]
		pending = pending[1:]
		chunk, err := head.task.Wait()
		if err != nil {
			return fmt.Errorf("failed to parse fact batch: %w", err)
		}
		return apply(chunk, head.rows)
	}

	cols := f.Cols()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := i.readChunk(f)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}

		batch := rows
		task := pool.Submit(func() parsedChunk {
			return parseFactChunk(cols, batch)
		})
		pending = append(pending, inflight{task: task, rows: int64(len(rows))})

		if len(pending) >= maxPending {
			if err := drainOne(); err != nil {
				return err
			}
		}
	}

	for len(pending) > 0 {
		if err := drainOne(); err != nil {
			return err
		}
	}

	// Terminal flush: remaining staged rows plus the completed checkpoint
	return i.flush(ctx, staging, foodIDs, offset, offset, schema.CheckpointCompleted, result)
}

// readChunk reads up to BatchSize raw rows
func (i *FactImporter) readChunk(f *source.File) ([][]string, error) {
	rows := make([][]string, 0, i.cfg.BatchSize)
	for int64(len(rows)) < i.cfg.BatchSize {
		row, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseFactChunk parses one chunk of raw rows. Runs on the worker pool.
func parseFactChunk(cols source.Columns, rows [][]string) parsedChunk {
	chunk := parsedChunk{facts: make([]source.FactRecord, 0, len(rows))}
	for _, row := range rows {
		rec, ok, err := source.ParseFact(cols, row)
		if err != nil {
			chunk.skippedParse++
			continue
		}
		if !ok {
			chunk.skippedAmount++
			continue
		}
		chunk.facts = append(chunk.facts, rec)
	}
	return chunk
}

// flush resolves staged rows to internal food ids and commits them with a
// checkpoint in one transaction, retried with exponential backoff so a
// transient lock never kills a multi-million-row import
func (i *FactImporter) flush(
	ctx context.Context,
	staging map[factKey]float64,
	foodIDs map[int64]int64,
	offset, total int64,
	status schema.CheckpointStatus,
	result *FactImportResult,
) error {
	facts := make([]schema.FoodNutrient, 0, len(staging))
	for key, amount := range staging {
		foodID, ok := foodIDs[key.fdcID]
		if !ok {
			result.DroppedUnknownFood++
			continue
		}
		facts = append(facts, schema.FoodNutrient{
			FoodID:          foodID,
			NutrientID:      key.nutrientID,
			Amount:          amount,
			ConfidenceScore: 1.0,
		})
	}
	sort.Slice(facts, func(a, b int) bool {
		if facts[a].FoodID != facts[b].FoodID {
			return facts[a].FoodID < facts[b].FoodID
		}
		return facts[a].NutrientID < facts[b].NutrientID
	})

	cp := schema.ImportCheckpoint{
		Table:         FactTable,
		LastProcessed: offset,
		TotalRecords:  total,
		Status:        status,
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = i.cfg.FlushRetryTime

	var attempts int
	operation := func() error {
		return i.store.FlushFactBatch(ctx, facts, cp)
	}
	notify := func(err error, next time.Duration) {
		attempts++
		logger.Warn("fact flush failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempts),
			zap.Duration("next_retry_in", next),
		)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("failed to flush fact batch at offset %d: %w", offset, err)
	}

	result.Upserted += int64(len(facts))
	result.Flushes++
	result.Offset = offset
	logger.Info("fact batch flushed",
		zap.Int64("offset", offset),
		zap.Int("rows", len(facts)),
		zap.String("status", string(status)),
	)
	return nil
}
