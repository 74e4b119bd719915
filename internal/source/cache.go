package source

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rickgao/quant-archive/internal/model"
)

// IndustryCachePrefix names the same-day industry snapshot files.
const IndustryCachePrefix = "行业权重趋势"

// IndustryCache keeps one industry analysis snapshot per trading day so a
// rerun on the same day does not recompute it.
type IndustryCache struct {
	Dir    string
	logger *slog.Logger
}

// NewIndustryCache creates a cache rooted at dir.
func NewIndustryCache(dir string, logger *slog.Logger) *IndustryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndustryCache{Dir: dir, logger: logger}
}

// Path returns the snapshot file for date.
func (c *IndustryCache) Path(date time.Time) string {
	return DatasetPath(c.Dir, IndustryCachePrefix, date)
}

// ReadThrough returns the snapshot for date when one is readable and
// non-empty. Otherwise it calls compute and stores a non-empty result.
// A failed store is logged and the computed frame is still returned.
func (c *IndustryCache) ReadThrough(date time.Time, compute func() (*model.Frame, error)) (*model.Frame, error) {
	path := c.Path(date)
	logger := c.logger.With("path", path)

	f, err := ReadTSV(path, ReadOptions{Encoding: EncodingUTF8})
	switch {
	case err == nil && f.Len() > 0:
		logger.Info("industry snapshot loaded from cache", "rows", f.Len())
		return f, nil
	case err != nil && !os.IsNotExist(err):
		logger.Warn("industry cache unreadable, recomputing", "error", err)
	}

	f, err = compute()
	if err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return f, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("industry cache not written", "error", err)
		return f, nil
	}
	if err := WriteTSV(path, f); err != nil {
		logger.Warn("industry cache not written", "error", err)
		return f, nil
	}
	logger.Info("industry snapshot cached", "rows", f.Len())
	return f, nil
}
