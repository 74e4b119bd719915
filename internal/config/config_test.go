package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickgao/quant-archive/internal/model"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: archive-daily
database:
  host: localhost
  port: 5433
  name: quant
  user: quant
  password: testpass
  connect_timeout: 5s
loader:
  mode: atomic
strategy_pools:
  - key: strong_stocks_raw
    label: 强势股池
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "archive-daily" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "archive-daily")
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("Database.Port = %d, want 5433", cfg.Database.Port)
	}
	if cfg.Database.ConnectTimeout != 5*time.Second {
		t.Errorf("Database.ConnectTimeout = %v, want 5s", cfg.Database.ConnectTimeout)
	}
	if cfg.Loader.Mode != "atomic" {
		t.Errorf("Loader.Mode = %q, want atomic", cfg.Loader.Mode)
	}
	if len(cfg.StrategyPools) != 1 || cfg.StrategyPools[0].Label != "强势股池" {
		t.Errorf("StrategyPools = %+v", cfg.StrategyPools)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "p@ss:word")

	yaml := `
instance:
  id: archive-daily
database:
  host: localhost
  name: quant
  user: quant
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "p@ss:word" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "p@ss:word")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: archive-daily
database:
  host: localhost
  name: quant
  user: quant
  password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Database.Driver = %q, want default %q", cfg.Database.Driver, DriverPostgres)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Database.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("Database.ConnectTimeout = %v, want default %v", cfg.Database.ConnectTimeout, DefaultConnectTimeout)
	}
	if cfg.Loader.Mode != DefaultLoaderMode {
		t.Errorf("Loader.Mode = %q, want default %q", cfg.Loader.Mode, DefaultLoaderMode)
	}
	if cfg.Sources.Encoding != DefaultSourceEncoding {
		t.Errorf("Sources.Encoding = %q, want default %q", cfg.Sources.Encoding, DefaultSourceEncoding)
	}
	if len(cfg.StrategyPools) != len(model.DefaultStrategyPools) {
		t.Errorf("StrategyPools = %d entries, want %d", len(cfg.StrategyPools), len(model.DefaultStrategyPools))
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	validDB := DBConfig{Driver: DriverPostgres, Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 4, MinConns: 1}
	valid := func() ArchiveConfig {
		return ArchiveConfig{
			Instance:      InstanceConfig{ID: "test"},
			Database:      validDB,
			Loader:        LoaderConfig{Mode: "two_phase"},
			Sources:       SourcesConfig{Encoding: "utf-8", Concurrency: 2},
			StrategyPools: model.DefaultStrategyPools,
			Log:           LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ArchiveConfig)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *ArchiveConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing host",
			mutate:  func(c *ArchiveConfig) { c.Database.Host = "" },
			wantErr: "database.host is required",
		},
		{
			name:    "missing password",
			mutate:  func(c *ArchiveConfig) { c.Database.Password = "" },
			wantErr: "database.password is required",
		},
		{
			name:    "min_conns exceeds max_conns",
			mutate:  func(c *ArchiveConfig) { c.Database.MinConns = 10 },
			wantErr: "database.min_conns (10) cannot exceed max_conns (4)",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *ArchiveConfig) { c.Database.Driver = "mysql" },
			wantErr: `database.driver must be "postgres" or "sqlite", got "mysql"`,
		},
		{
			name:    "sqlite needs path",
			mutate:  func(c *ArchiveConfig) { c.Database = DBConfig{Driver: DriverSQLite} },
			wantErr: "database.path is required for driver sqlite",
		},
		{
			name:    "sqlite with path",
			mutate:  func(c *ArchiveConfig) { c.Database = DBConfig{Driver: DriverSQLite, Path: "archive.db"} },
			wantErr: "",
		},
		{
			name:    "bad loader mode",
			mutate:  func(c *ArchiveConfig) { c.Loader.Mode = "merge" },
			wantErr: `loader.mode: unknown loader mode "merge"`,
		},
		{
			name:    "bad encoding",
			mutate:  func(c *ArchiveConfig) { c.Sources.Encoding = "latin1" },
			wantErr: `sources.encoding must be "utf-8" or "gbk", got "latin1"`,
		},
		{
			name: "duplicate pool",
			mutate: func(c *ArchiveConfig) {
				c.StrategyPools = []model.StrategyPool{{Key: "a", Label: "x"}, {Key: "a", Label: "y"}}
			},
			wantErr: `strategy_pools[1]: duplicate key "a"`,
		},
		{
			name:    "bad log level",
			mutate:  func(c *ArchiveConfig) { c.Log.Level = "trace" },
			wantErr: `log.level must be one of debug, info, warn, error, got "trace"`,
		},
		{
			name:    "valid config",
			mutate:  func(c *ArchiveConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
