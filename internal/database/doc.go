// Package database provides the stores the partition writer loads into.
//
//   - Store: PostgreSQL through a pgx connection pool. Rows are bulk-loaded
//     with COPY FROM STDIN.
//   - SQLiteStore: a local SQLite file for development runs and tests. COPY
//     is replayed as prepared INSERTs.
//
// Stores are created once at process start and closed at shutdown; nothing
// in this package holds a process-wide pool.
package database
