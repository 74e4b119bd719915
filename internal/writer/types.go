package writer

import (
	"fmt"
	"time"
)

// Mode selects how a partition replace is committed.
type Mode string

const (
	ModeTwoPhase Mode = "two_phase"
	ModeAtomic   Mode = "atomic"
)

// ParseMode validates a configured mode name. Empty selects ModeTwoPhase.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeTwoPhase:
		return ModeTwoPhase, nil
	case ModeAtomic:
		return ModeAtomic, nil
	default:
		return "", fmt.Errorf("unknown loader mode %q", s)
	}
}

// WriterConfig contains configuration for the partition writer.
type WriterConfig struct {
	// Mode is the commit strategy for a partition replace.
	Mode Mode
}

// DefaultWriterConfig returns the two-phase configuration.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Mode: ModeTwoPhase,
	}
}

// LoadResult describes one partition replace.
type LoadResult struct {
	Table     string
	Partition string
	Deleted   int64 // rows removed from the partition
	Inserted  int64 // rows copied into the partition
	Skipped   bool  // no rows were given; the store was not touched
	Duration  time.Duration
}

// WriterMetrics holds cumulative counters for a writer.
type WriterMetrics struct {
	Loads   int64
	Skips   int64
	Deletes int64
	Inserts int64
	Errors  int64
}
