// Package model defines the in-memory frame and the canonical table schemas
// shared by the archive pipeline.
//
// Conventions:
//   - Frames are row-major; values are untyped (any) until mapped.
//   - Column order of a Schema is the physical column order of its table.
//   - The partition column (archive_date) is always last and never mapped
//     from source data.
package model
