package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/quant-archive/internal/config"
)

// Store loads archive partitions into PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to PostgreSQL and returns a ready Store. The caller owns the
// Store and must Close it.
func Open(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Connect creates a connection pool whose connections are pinged before use.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func poolConfig(cfg config.DBConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	// Drop connections the server closed while they sat idle.
	poolCfg.PrepareConn = func(ctx context.Context, conn *pgx.Conn) (bool, error) {
		return conn.Ping(ctx) == nil, nil
	}

	return poolCfg, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("database pool closed")
	}
}

// Ping verifies the connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// DeletePartition removes the partition in its own transaction.
func (s *Store) DeletePartition(ctx context.Context, table, column, value string) (int64, error) {
	var deleted int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		deleted, err = deleteIn(ctx, tx, table, column, value)
		return err
	})
	return deleted, err
}

// CopyRows streams payload into table with COPY in its own transaction.
func (s *Store) CopyRows(ctx context.Context, table string, columns []string, payload io.Reader) (int64, error) {
	var copied int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		copied, err = copyIn(ctx, tx, table, columns, payload)
		return err
	})
	return copied, err
}

// ReplacePartition deletes the partition and copies payload in one transaction.
func (s *Store) ReplacePartition(ctx context.Context, table, column, value string, columns []string, payload io.Reader) (deleted, inserted int64, err error) {
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		if deleted, err = deleteIn(ctx, tx, table, column, value); err != nil {
			return err
		}
		inserted, err = copyIn(ctx, tx, table, columns, payload)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return deleted, inserted, nil
}

// inTx runs fn in a transaction. The connection returns to the pool when the
// transaction ends, on every path.
func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func deleteIn(ctx context.Context, tx pgx.Tx, table, column, value string) (int64, error) {
	tag, err := tx.Exec(ctx, deleteSQL(table, column), value)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func copyIn(ctx context.Context, tx pgx.Tx, table string, columns []string, payload io.Reader) (int64, error) {
	tag, err := tx.Conn().PgConn().CopyFrom(ctx, payload, copySQL(table, columns))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// deleteSQL returns the partition delete statement with one placeholder.
func deleteSQL(table, column string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", quoteIdent(table), quoteIdent(column))
}

// copySQL returns a COPY statement for tab-delimited CSV with an explicit
// column list.
func copySQL(table string, columns []string) string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, DELIMITER E'\\t')",
		quoteIdent(table), quoteIdents(columns))
}

// quoteIdent quotes a possibly schema-qualified name ("ods.t" -> "ods"."t").
func quoteIdent(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = pgx.Identifier{n}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
