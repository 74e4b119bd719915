// Package writer implements the partitioned bulk loader for archive tables.
//
// Every archive table is partitioned by archive_date. A load replaces one
// partition: the rows for that date are deleted, then the new rows are
// streamed with COPY using an explicit column list pinned to the table's
// physical column order.
//
// Modes:
//   - two_phase: delete and copy run in separate transactions. A failed copy
//     leaves the partition empty until the load is rerun.
//   - atomic: delete and copy share one transaction; a failure keeps the
//     previous rows.
//
// Concurrent loads of the same (table, date) are not coordinated; callers
// must serialize them.
package writer
