package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/quant-archive/internal/model"
)

// DateLayout is the stored archive_date format.
const DateLayout = "2006-01-02"

// CompactLayout is the date format used in dataset file names.
const CompactLayout = "20060102"

// ParseDate accepts YYYY-MM-DD or YYYYMMDD.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, CompactLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or YYYYMMDD", s)
}

// DatasetPath returns the file holding dataset name for date:
// <dir>/<name>_<yyyymmdd>.txt.
func DatasetPath(dir, name string, date time.Time) string {
	return filepath.Join(dir, name+"_"+date.Format(CompactLayout)+".txt")
}

// LoadOptions controls LoadDay.
type LoadOptions struct {
	ReadOptions
	Concurrency int // files read at once; <= 0 means 4
	Logger      *slog.Logger
}

// LoadDay reads the named datasets for date from dir concurrently. Every frame
// is fully read before LoadDay returns. A dataset whose file does not exist is
// absent from the result; any other read error fails the load.
func LoadDay(ctx context.Context, dir string, date time.Time, names []string, opts LoadOptions) (map[string]*model.Frame, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	var (
		mu     sync.Mutex
		frames = make(map[string]*model.Frame, len(names))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := DatasetPath(dir, name, date)
			f, err := ReadTSV(path, opts.ReadOptions)
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("dataset file not found", "dataset", name, "path", path)
				return nil
			}
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			logger.Debug("dataset loaded", "dataset", name, "rows", f.Len())

			mu.Lock()
			frames[name] = f
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}
