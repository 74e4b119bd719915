// Package pipeline runs the daily archive sync: strategy rankings, industry
// analysis and the consolidated report, each loaded into its own date
// partition.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/quant-archive/internal/mapper"
	"github.com/rickgao/quant-archive/internal/model"
	"github.com/rickgao/quant-archive/internal/writer"
)

// Loader replaces one table partition with a frame.
type Loader interface {
	Replace(ctx context.Context, schema model.Schema, partition string, f *model.Frame) (writer.LoadResult, error)
}

// Inputs are the day's fully materialized frames.
type Inputs struct {
	Report   *model.Frame            // consolidated report, possibly indexed by 股票代码
	Industry *model.Frame            // industry momentum analysis
	Raw      map[string]*model.Frame // raw strategy pools by key
}

// StepResult is the outcome of one table sync.
type StepResult struct {
	Table  string
	Result writer.LoadResult
	Err    error
}

// Failed reports whether the step returned an error or panicked.
func (r StepResult) Failed() bool {
	return r.Err != nil
}

// PanicError is a recovered panic from a sync step.
type PanicError struct {
	Table string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("sync %s panicked: %v", e.Table, e.Value)
}

// Syncer runs the three table syncs for a trading day.
type Syncer struct {
	loader Loader
	pools  []model.StrategyPool
	logger *slog.Logger
}

// NewSyncer creates a Syncer. Raw strategy pools are consolidated in the
// order of pools; nil pools selects model.DefaultStrategyPools.
func NewSyncer(loader Loader, pools []model.StrategyPool, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(pools) == 0 {
		pools = model.DefaultStrategyPools
	}
	return &Syncer{loader: loader, pools: pools, logger: logger}
}

type step struct {
	schema model.Schema
	run    func(ctx context.Context, logger *slog.Logger, date string, in Inputs) (writer.LoadResult, error)
}

// SyncAll runs the strategy ranking, industry and report syncs in that order
// for the partition date (YYYY-MM-DD). A source missing a required column is
// logged and its step skipped. A failing or panicking step is logged and
// recorded in its result; later steps still run.
func (s *Syncer) SyncAll(ctx context.Context, date string, in Inputs) []StepResult {
	logger := s.logger.With("run_id", uuid.NewString(), "date", date)
	logger.Info("starting archive sync")
	start := time.Now()

	steps := []step{
		{model.RankingSchema, s.syncRankings},
		{model.IndustrySchema, s.syncIndustry},
		{model.ReportSchema, s.syncReport},
	}

	results := make([]StepResult, 0, len(steps))
	failed := 0
	for _, st := range steps {
		res := s.runStep(ctx, logger.With("table", st.schema.Table), date, in, st)
		if res.Failed() {
			failed++
		}
		results = append(results, res)
	}

	logger.Info("archive sync finished",
		"steps", len(results),
		"failed", failed,
		"duration", time.Since(start),
	)
	return results
}

func (s *Syncer) runStep(ctx context.Context, logger *slog.Logger, date string, in Inputs, st step) (res StepResult) {
	res.Table = st.schema.Table
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logger.Error("sync step panicked", "panic", r, "stack", string(stack))
			res.Err = &PanicError{Table: st.schema.Table, Value: r, Stack: stack}
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		logger.Error("sync step not started", "error", err)
		return res
	}

	res.Result, res.Err = st.run(ctx, logger, date, in)
	if res.Err != nil {
		logger.Error("sync step failed", "error", res.Err)
	}
	return res
}

// syncRankings unions the raw strategy pools, tagged with their strategy
// label, into ods_ak_ranking_stocks.
func (s *Syncer) syncRankings(ctx context.Context, logger *slog.Logger, date string, in Inputs) (writer.LoadResult, error) {
	sources := make([]mapper.LabeledFrame, 0, len(s.pools))
	for _, p := range s.pools {
		f := in.Raw[p.Key]
		if f.Len() == 0 {
			logger.Debug("strategy pool empty", "pool", p.Key)
			continue
		}
		sources = append(sources, mapper.LabeledFrame{Label: p.Label, Frame: f})
	}

	merged, errs := mapper.Consolidate(sources, model.RankingSourceSchema, model.StrategyTypeColumn)
	for _, err := range errs {
		logger.Warn("strategy pool skipped", "error", err)
	}

	return s.loader.Replace(ctx, model.RankingSchema, date, merged)
}

// syncIndustry maps the industry analysis frame.
func (s *Syncer) syncIndustry(ctx context.Context, logger *slog.Logger, date string, in Inputs) (writer.LoadResult, error) {
	if in.Industry.Len() == 0 {
		logger.Warn("industry frame empty, skipping")
		return skipped(model.IndustrySchema, date), nil
	}

	mapped, err := mapper.MapTable(in.Industry, model.IndustrySchema)
	if errors.Is(err, mapper.ErrMissingColumn) {
		logger.Warn("source rejected, skipping", "error", err)
		return skipped(model.IndustrySchema, date), nil
	}
	if err != nil {
		return writer.LoadResult{Table: model.IndustrySchema.Table, Partition: date}, err
	}
	return s.loader.Replace(ctx, model.IndustrySchema, date, mapped)
}

// syncReport maps the consolidated report, promoting a stock code index to
// a column first.
func (s *Syncer) syncReport(ctx context.Context, logger *slog.Logger, date string, in Inputs) (writer.LoadResult, error) {
	if in.Report.Len() == 0 {
		logger.Info("report frame empty, skipping")
		return skipped(model.ReportSchema, date), nil
	}

	f := in.Report
	if f.IndexName == model.ReportIndexName {
		f = f.ResetIndex()
	}

	mapped, err := mapper.MapTable(f, model.ReportSchema)
	if errors.Is(err, mapper.ErrMissingColumn) {
		logger.Warn("source rejected, skipping", "error", err)
		return skipped(model.ReportSchema, date), nil
	}
	if err != nil {
		return writer.LoadResult{Table: model.ReportSchema.Table, Partition: date}, err
	}
	return s.loader.Replace(ctx, model.ReportSchema, date, mapped)
}

func skipped(schema model.Schema, date string) writer.LoadResult {
	return writer.LoadResult{Table: schema.Table, Partition: date, Skipped: true}
}
