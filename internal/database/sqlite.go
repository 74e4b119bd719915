package database

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/rickgao/quant-archive/internal/model"
	"github.com/rickgao/quant-archive/internal/writer"
)

// SQLiteStore is a PartitionStore backed by a SQLite file. It accepts the
// same tab-delimited payload as Store and inserts it row by row.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at path. Use ":memory:" for
// a private in-process database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; an in-memory database exists only on the
	// connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureTables creates any missing archive tables.
func (s *SQLiteStore) EnsureTables(ctx context.Context, schemas ...model.Schema) error {
	for _, schema := range schemas {
		if _, err := s.db.ExecContext(ctx, createTableSQL(schema)); err != nil {
			return fmt.Errorf("create table %s: %w", schema.Table, err)
		}
	}
	return nil
}

// CountPartition returns the number of rows where column = value.
func (s *SQLiteStore) CountPartition(ctx context.Context, table, column, value string) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", quoteIdent(table), quoteIdent(column))
	if err := s.db.QueryRowContext(ctx, q, value).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// PartitionRows returns the named columns of every row where column = value,
// ordered by the first requested column.
func (s *SQLiteStore) PartitionRows(ctx context.Context, table, column, value string, columns ...string) ([][]any, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s",
		quoteIdents(columns), quoteIdent(table), quoteIdent(column), quoteIdent(columns[0]))
	rows, err := s.db.QueryContext(ctx, q, value)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

// DeletePartition removes the partition in its own transaction.
func (s *SQLiteStore) DeletePartition(ctx context.Context, table, column, value string) (int64, error) {
	var deleted int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = sqliteDelete(ctx, tx, table, column, value)
		return err
	})
	return deleted, err
}

// CopyRows inserts every payload record in its own transaction.
func (s *SQLiteStore) CopyRows(ctx context.Context, table string, columns []string, payload io.Reader) (int64, error) {
	var copied int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		copied, err = sqliteCopy(ctx, tx, table, columns, payload)
		return err
	})
	return copied, err
}

// ReplacePartition deletes the partition and inserts payload in one transaction.
func (s *SQLiteStore) ReplacePartition(ctx context.Context, table, column, value string, columns []string, payload io.Reader) (deleted, inserted int64, err error) {
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if deleted, err = sqliteDelete(ctx, tx, table, column, value); err != nil {
			return err
		}
		inserted, err = sqliteCopy(ctx, tx, table, columns, payload)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return deleted, inserted, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sqliteDelete(ctx context.Context, tx *sql.Tx, table, column, value string) (int64, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(table), quoteIdent(column))
	res, err := tx.ExecContext(ctx, q, value)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return res.RowsAffected()
}

// sqliteCopy reads the COPY payload and inserts it. Empty fields become NULL,
// as they do under COPY ... FORMAT csv.
func sqliteCopy(ctx context.Context, tx *sql.Tx, table string, columns []string, payload io.Reader) (int64, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), quoteIdents(columns), placeholders)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	r := csv.NewReader(payload)
	r.Comma = writer.Delimiter
	r.FieldsPerRecord = len(columns)

	var n int64
	args := make([]any, len(columns))
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read payload for %s: %w", table, err)
		}
		for i, field := range rec {
			if field == "" {
				args[i] = nil
			} else {
				args[i] = field
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d into %s: %w", n+1, table, err)
		}
		n++
	}
	return n, nil
}

// createTableSQL renders the table for schema with SQLite type affinities so
// numeric text from the payload is stored as numbers.
func createTableSQL(schema model.Schema) string {
	defs := make([]string, 0, len(schema.Columns)+2)
	for _, c := range schema.Columns {
		defs = append(defs, quoteIdent(c.Name)+" "+sqliteType(c.Coercion))
	}
	if schema.PartitionColumn != "" {
		defs = append(defs, quoteIdent(schema.PartitionColumn)+" TEXT NOT NULL")
	}
	if len(schema.Key) > 0 {
		defs = append(defs, "PRIMARY KEY ("+quoteIdents(schema.Key)+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", quoteIdent(schema.Table), strings.Join(defs, ",\n  "))
}

func sqliteType(c model.Coercion) string {
	switch c {
	case model.CoerceNumber:
		return "REAL"
	case model.CoerceInteger:
		return "INTEGER"
	default:
		return "TEXT"
	}
}
