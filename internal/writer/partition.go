package writer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/quant-archive/internal/model"
)

// PartitionStore is the database surface the writer needs.
type PartitionStore interface {
	// DeletePartition removes every row where column = value, in its own
	// transaction, and returns the number removed.
	DeletePartition(ctx context.Context, table, column, value string) (int64, error)

	// CopyRows bulk-loads a tab-delimited payload into the named columns, in
	// its own transaction, and returns the number of rows copied.
	CopyRows(ctx context.Context, table string, columns []string, payload io.Reader) (int64, error)

	// ReplacePartition performs the delete and the copy in one transaction.
	ReplacePartition(ctx context.Context, table, column, value string, columns []string, payload io.Reader) (deleted, inserted int64, err error)
}

// Phase names the step of a partition replace that failed.
type Phase string

const (
	PhaseEncode Phase = "encode"
	PhaseDelete Phase = "delete"
	PhaseLoad   Phase = "load"
	PhaseAtomic Phase = "replace"
)

// ErrDuplicateKey is returned when a frame repeats a primary key.
var ErrDuplicateKey = errors.New("duplicate primary key in frame")

// Sentinel errors matched by PhaseError.Is.
var (
	ErrDeletePhase = errors.New("partition delete failed")
	ErrLoadPhase   = errors.New("partition load failed")
)

// PhaseError reports a failed partition replace.
type PhaseError struct {
	Table     string
	Partition string
	Phase     Phase
	Err       error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s %s=%s: %s phase: %v", e.Table, model.ArchiveDateColumn, e.Partition, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Is matches ErrDeletePhase and ErrLoadPhase by phase.
func (e *PhaseError) Is(target error) bool {
	switch target {
	case ErrDeletePhase:
		return e.Phase == PhaseDelete
	case ErrLoadPhase:
		return e.Phase == PhaseLoad || e.Phase == PhaseAtomic
	}
	return false
}

// EmptyPartition reports whether the failure left the partition with no rows.
// Only a two-phase load failure does; it must be rerun.
func (e *PhaseError) EmptyPartition() bool {
	return e.Phase == PhaseLoad
}

// PartitionWriter replaces archive partitions in a PartitionStore.
type PartitionWriter struct {
	cfg    WriterConfig
	logger *slog.Logger
	store  PartitionStore

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewPartitionWriter creates a new PartitionWriter.
func NewPartitionWriter(cfg WriterConfig, store PartitionStore, logger *slog.Logger) *PartitionWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeTwoPhase
	}
	return &PartitionWriter{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// Stats returns current metrics.
func (w *PartitionWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Replace makes the partition schema.PartitionColumn = partition contain
// exactly the rows of f.
//
// An empty f is skipped without touching the store. The partition column is
// added to f when absent. Rows dated outside the partition and rows repeating
// schema.Key are rejected before the store is touched. In two-phase mode a delete failure aborts before
// any load; a load failure leaves the partition empty.
func (w *PartitionWriter) Replace(ctx context.Context, schema model.Schema, partition string, f *model.Frame) (LoadResult, error) {
	res := LoadResult{Table: schema.Table, Partition: partition}
	logger := w.logger.With("table", schema.Table, "partition", partition)

	if f.Len() == 0 {
		res.Skipped = true
		w.record(func(m *WriterMetrics) { m.Skips++ })
		logger.Info("no rows to load, skipping partition")
		return res, nil
	}

	start := time.Now()

	f = f.WithConstant(schema.PartitionColumn, partition)
	if err := checkPartition(f, schema.PartitionColumn, partition); err != nil {
		return res, w.fail(logger, &PhaseError{Table: schema.Table, Partition: partition, Phase: PhaseEncode, Err: err})
	}
	if err := checkKey(f, schema.Key); err != nil {
		return res, w.fail(logger, &PhaseError{Table: schema.Table, Partition: partition, Phase: PhaseEncode, Err: err})
	}
	columns, err := pinColumns(schema, f)
	if err != nil {
		return res, w.fail(logger, &PhaseError{Table: schema.Table, Partition: partition, Phase: PhaseEncode, Err: err})
	}
	payload, err := encodeRows(f, columns)
	if err != nil {
		return res, w.fail(logger, &PhaseError{Table: schema.Table, Partition: partition, Phase: PhaseEncode, Err: err})
	}

	switch w.cfg.Mode {
	case ModeAtomic:
		res.Deleted, res.Inserted, err = w.store.ReplacePartition(ctx, schema.Table, schema.PartitionColumn, partition, columns, payload)
		if err != nil {
			return res, w.fail(logger, &PhaseError{Table: schema.Table, Partition: partition, Phase: PhaseAtomic, Err: err})
		}
	default:
		res.Deleted, err = w.store.DeletePartition(ctx, schema.Table, schema.PartitionColumn, partition)
		if err != nil {
			return res, w.fail(logger, &PhaseError{Table: schema.Table, Partition: partition, Phase: PhaseDelete, Err: err})
		}
		logger.Info("partition cleared", "deleted", res.Deleted)

		res.Inserted, err = w.store.CopyRows(ctx, schema.Table, columns, payload)
		if err != nil {
			return res, w.fail(logger, &PhaseError{Table: schema.Table, Partition: partition, Phase: PhaseLoad, Err: err})
		}
	}

	res.Duration = time.Since(start)
	w.record(func(m *WriterMetrics) {
		m.Loads++
		m.Deletes += res.Deleted
		m.Inserts += res.Inserted
	})

	logger.Info("partition loaded",
		"mode", w.cfg.Mode,
		"deleted", res.Deleted,
		"inserted", res.Inserted,
		"rows", f.Len(),
		"duration", res.Duration,
	)
	return res, nil
}

// checkPartition rejects rows dated outside the partition being replaced.
func checkPartition(f *model.Frame, column, partition string) error {
	values, err := f.Column(column)
	if err != nil {
		return err
	}
	for r, v := range values {
		if formatValue(v) != partition {
			return fmt.Errorf("row %d has %s=%v, want %s", r, column, v, partition)
		}
	}
	return nil
}

// checkKey rejects frames with two rows sharing the table's primary key, so a
// load that COPY would refuse fails before the partition is cleared.
func checkKey(f *model.Frame, key []string) error {
	if len(key) == 0 {
		return nil
	}
	seen := make(map[string]int, f.Len())
	parts := make([]string, len(key))
	for r := 0; r < f.Len(); r++ {
		for i, c := range key {
			parts[i] = formatValue(f.Value(r, c))
		}
		id := strings.Join(parts, "\x00")
		if first, dup := seen[id]; dup {
			return fmt.Errorf("%w: rows %d and %d share (%s) = (%s)",
				ErrDuplicateKey, first, r, strings.Join(key, ", "), strings.Join(parts, ", "))
		}
		seen[id] = r
	}
	return nil
}

func (w *PartitionWriter) fail(logger *slog.Logger, err *PhaseError) error {
	w.record(func(m *WriterMetrics) { m.Errors++ })
	if err.EmptyPartition() {
		logger.Error("partition load failed, partition left empty, rerun required",
			"phase", err.Phase, "error", err.Err)
	} else {
		logger.Error("partition replace failed, previous rows kept",
			"phase", err.Phase, "error", err.Err)
	}
	return err
}

func (w *PartitionWriter) record(fn func(*WriterMetrics)) {
	w.mu.Lock()
	fn(&w.metrics)
	w.mu.Unlock()
}
