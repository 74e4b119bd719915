package config

import (
	"time"

	"github.com/rickgao/quant-archive/internal/model"
	"github.com/rickgao/quant-archive/internal/source"
	"github.com/rickgao/quant-archive/internal/writer"
)

// Default values for optional configuration fields.
const (
	DefaultDriver             = DriverPostgres
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultConnectTimeout     = 10 * time.Second
	DefaultLoaderMode         = string(writer.ModeTwoPhase)
	DefaultSourcesDir         = "data"
	DefaultSourceEncoding     = EncodingUTF8
	DefaultSourcesConcurrency = 4
	DefaultCacheDir           = "data/cache"
	DefaultLogLevel           = "info"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Supported source file encodings.
const (
	EncodingUTF8 = source.EncodingUTF8
	EncodingGBK  = source.EncodingGBK
)

func (c *ArchiveConfig) applyDefaults() {
	applyDBDefaults(&c.Database)

	// Loader defaults
	if c.Loader.Mode == "" {
		c.Loader.Mode = DefaultLoaderMode
	}

	// Sources defaults
	if c.Sources.Dir == "" {
		c.Sources.Dir = DefaultSourcesDir
	}
	if c.Sources.Encoding == "" {
		c.Sources.Encoding = DefaultSourceEncoding
	}
	if c.Sources.Concurrency == 0 {
		c.Sources.Concurrency = DefaultSourcesConcurrency
	}

	if c.Cache.Dir == "" {
		c.Cache.Dir = DefaultCacheDir
	}

	if len(c.StrategyPools) == 0 {
		c.StrategyPools = append([]model.StrategyPool(nil), model.DefaultStrategyPools...)
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Driver == "" {
		db.Driver = DefaultDriver
	}
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
	if db.ConnectTimeout == 0 {
		db.ConnectTimeout = DefaultConnectTimeout
	}
}
