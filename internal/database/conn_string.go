package database

import (
	"fmt"
	"net/url"
	"time"

	"github.com/rickgao/quant-archive/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)

	// libpq takes whole seconds; round sub-second timeouts up.
	if cfg.ConnectTimeout > 0 {
		secs := int((cfg.ConnectTimeout + time.Second - 1) / time.Second)
		connStr += fmt.Sprintf("&connect_timeout=%d", secs)
	}

	return connStr
}
