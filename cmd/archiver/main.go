package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rickgao/quant-archive/internal/config"
	"github.com/rickgao/quant-archive/internal/database"
	"github.com/rickgao/quant-archive/internal/model"
	"github.com/rickgao/quant-archive/internal/pipeline"
	"github.com/rickgao/quant-archive/internal/source"
	"github.com/rickgao/quant-archive/internal/version"
	"github.com/rickgao/quant-archive/internal/writer"
)

// Dataset file name prefixes under sources.dir.
const (
	reportDataset   = "consolidated_report"
	industryDataset = "industry_analysis"
)

func main() {
	configPath := flag.String("config", "configs/archiver.local.yaml", "path to config file")
	dateFlag := flag.String("date", time.Now().Format(source.DateLayout), "trading day, YYYY-MM-DD or YYYYMMDD")
	flag.Parse()

	os.Exit(run(*configPath, *dateFlag))
}

func run(configPath, dateFlag string) int {
	// Load configuration
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	// Set up structured logging
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting archiver", append(version.LogArgs(),
		"config", configPath,
		"instance_id", cfg.Instance.ID,
	)...)

	date, err := source.ParseDate(dateFlag)
	if err != nil {
		logger.Error("invalid -date", "error", err)
		return 1
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	store, closeStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		return 1
	}
	defer closeStore()

	// Read the day's source files before touching the database
	names := []string{reportDataset, industryDataset}
	for _, p := range cfg.StrategyPools {
		names = append(names, p.Key)
	}
	frames, err := source.LoadDay(ctx, cfg.Sources.Dir, date, names, source.LoadOptions{
		ReadOptions: source.ReadOptions{Encoding: cfg.Sources.Encoding},
		Concurrency: cfg.Sources.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to load sources", "dir", cfg.Sources.Dir, "error", err)
		return 1
	}

	cache := source.NewIndustryCache(cfg.Cache.Dir, logger)
	industry, err := cache.ReadThrough(date, func() (*model.Frame, error) {
		return frames[industryDataset], nil
	})
	if err != nil {
		logger.Error("failed to read industry snapshot", "error", err)
		return 1
	}

	mode, _ := writer.ParseMode(cfg.Loader.Mode)
	w := writer.NewPartitionWriter(writer.WriterConfig{Mode: mode}, store, logger)
	syncer := pipeline.NewSyncer(w, cfg.StrategyPools, logger)

	results := syncer.SyncAll(ctx, date.Format(source.DateLayout), pipeline.Inputs{
		Report:   frames[reportDataset],
		Industry: industry,
		Raw:      frames,
	})

	printSummary(os.Stdout, results)

	stats := w.Stats()
	logger.Info("archiver stopped",
		"loads", stats.Loads,
		"skips", stats.Skips,
		"deleted", stats.Deletes,
		"inserted", stats.Inserts,
		"errors", stats.Errors,
	)

	for _, res := range results {
		if res.Failed() {
			return 1
		}
	}
	return 0
}

// openStore opens the configured archive store and returns its close function.
func openStore(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (writer.PartitionStore, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		logger.Info("opening sqlite archive", "path", cfg.Path)
		s, err := database.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureTables(ctx, model.ArchiveSchemas...); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		logger.Info("connecting to database",
			"host", cfg.Host,
			"port", cfg.Port,
			"database", cfg.Name,
		)
		s, err := database.Open(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("database connected")
		return s, s.Close, nil
	}
}

func printSummary(out io.Writer, results []pipeline.StepResult) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"表", "分区", "删除", "写入", "耗时", "状态"})
	for _, res := range results {
		status := "ok"
		switch {
		case res.Failed():
			status = "failed: " + res.Err.Error()
		case res.Result.Skipped:
			status = "skipped"
		}
		t.AppendRow(table.Row{
			res.Table,
			res.Result.Partition,
			res.Result.Deleted,
			res.Result.Inserted,
			res.Result.Duration.Round(time.Millisecond),
			status,
		})
	}
	t.Render()
}
