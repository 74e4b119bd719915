package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rickgao/quant-archive/internal/writer"
)

// Validate checks that all required fields are set and values are valid.
func (c *ArchiveConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if _, err := writer.ParseMode(c.Loader.Mode); err != nil {
		return fmt.Errorf("loader.mode: %w", err)
	}

	switch strings.ToLower(c.Sources.Encoding) {
	case EncodingUTF8, "utf8", EncodingGBK:
	default:
		return fmt.Errorf("sources.encoding must be %q or %q, got %q", EncodingUTF8, EncodingGBK, c.Sources.Encoding)
	}
	if c.Sources.Concurrency < 1 {
		return errors.New("sources.concurrency must be >= 1")
	}

	seen := make(map[string]bool, len(c.StrategyPools))
	for i, p := range c.StrategyPools {
		if p.Key == "" || p.Label == "" {
			return fmt.Errorf("strategy_pools[%d]: key and label are required", i)
		}
		if seen[p.Key] {
			return fmt.Errorf("strategy_pools[%d]: duplicate key %q", i, p.Key)
		}
		seen[p.Key] = true
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	switch db.Driver {
	case DriverSQLite:
		if db.Path == "" {
			return fmt.Errorf("%s.path is required for driver %s", prefix, DriverSQLite)
		}
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("%s.driver must be %q or %q, got %q", prefix, DriverPostgres, DriverSQLite, db.Driver)
	}

	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	if db.ConnectTimeout < 0 {
		return fmt.Errorf("%s.connect_timeout must be >= 0", prefix)
	}
	return nil
}
