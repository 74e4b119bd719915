package config

import (
	"time"

	"github.com/rickgao/quant-archive/internal/model"
)

// ArchiveConfig is the root configuration for the daily archive job.
type ArchiveConfig struct {
	Instance      InstanceConfig       `yaml:"instance"`
	Database      DBConfig             `yaml:"database"`
	Loader        LoaderConfig         `yaml:"loader"`
	Sources       SourcesConfig        `yaml:"sources"`
	Cache         CacheConfig          `yaml:"cache"`
	StrategyPools []model.StrategyPool `yaml:"strategy_pools"`
	Log           LogConfig            `yaml:"log"`
}

// InstanceConfig identifies this job.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DBConfig holds the archive database connection.
type DBConfig struct {
	Driver         string        `yaml:"driver"` // "postgres" or "sqlite"
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Name           string        `yaml:"name"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	SSLMode        string        `yaml:"ssl_mode"`
	MaxConns       int           `yaml:"max_conns"`
	MinConns       int           `yaml:"min_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Path           string        `yaml:"path"` // SQLite file path
}

// LoaderConfig holds partition writer settings.
type LoaderConfig struct {
	Mode string `yaml:"mode"` // "two_phase" or "atomic"
}

// SourcesConfig locates the day's source frames.
type SourcesConfig struct {
	Dir         string `yaml:"dir"`
	Encoding    string `yaml:"encoding"` // "utf-8" or "gbk"
	Concurrency int    `yaml:"concurrency"`
}

// CacheConfig locates the same-day industry snapshot.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}
