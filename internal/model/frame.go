package model

import (
	"errors"
	"fmt"
)

// ErrColumnNotFound is returned when a frame has no column of the given name.
var ErrColumnNotFound = errors.New("column not found")

// Frame is an in-memory table: ordered column names and row-major values.
//
// A frame may carry a named index (e.g. stock code) kept apart from its
// columns. Frames are not safe for concurrent mutation.
type Frame struct {
	columns []string
	pos     map[string]int
	rows    [][]any

	// IndexName names the index; empty when the frame has none.
	IndexName string
	// Index holds one value per row when IndexName is set.
	Index []any
}

// NewFrame creates a frame. Every row must have exactly len(columns) values
// and column names must be unique.
func NewFrame(columns []string, rows [][]any) (*Frame, error) {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := pos[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		pos[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return &Frame{
		columns: append([]string(nil), columns...),
		pos:     pos,
		rows:    rows,
	}, nil
}

// EmptyFrame returns a frame with the given columns and no rows.
func EmptyFrame(columns ...string) *Frame {
	f, err := NewFrame(columns, nil)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the number of rows. A nil frame has zero rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.rows)
}

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.columns...)
}

// Has reports whether the frame has a column named name.
func (f *Frame) Has(name string) bool {
	return f.ColumnIndex(name) >= 0
}

// ColumnIndex returns the position of name, or -1.
func (f *Frame) ColumnIndex(name string) int {
	if f == nil {
		return -1
	}
	i, ok := f.pos[name]
	if !ok {
		return -1
	}
	return i
}

// Column returns the values of one column.
func (f *Frame) Column(name string) ([]any, error) {
	i := f.ColumnIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	out := make([]any, len(f.rows))
	for r, row := range f.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Value returns the cell at row r in column name, or nil if the column is absent.
func (f *Frame) Value(r int, name string) any {
	i := f.ColumnIndex(name)
	if i < 0 {
		return nil
	}
	return f.rows[r][i]
}

// Row returns a copy of row r.
func (f *Frame) Row(r int) []any {
	return append([]any(nil), f.rows[r]...)
}

// AppendRow adds a row to the frame.
func (f *Frame) AppendRow(values ...any) error {
	if len(values) != len(f.columns) {
		return fmt.Errorf("row has %d values, want %d", len(values), len(f.columns))
	}
	f.rows = append(f.rows, values)
	return nil
}

// SetIndex attaches a named index to the frame.
func (f *Frame) SetIndex(name string, values []any) error {
	if len(values) != len(f.rows) {
		return fmt.Errorf("index has %d values, want %d", len(values), len(f.rows))
	}
	f.IndexName = name
	f.Index = values
	return nil
}

// ResetIndex returns a frame with the index promoted to a leading column.
// Frames without an index, or whose index name is already a column, are
// returned as a copy with the index dropped.
func (f *Frame) ResetIndex() *Frame {
	if f.IndexName == "" || f.Has(f.IndexName) || len(f.Index) != len(f.rows) {
		out, _ := NewFrame(f.columns, f.copyRows())
		return out
	}
	cols := append([]string{f.IndexName}, f.columns...)
	rows := make([][]any, len(f.rows))
	for r, row := range f.rows {
		rows[r] = append([]any{f.Index[r]}, row...)
	}
	out, _ := NewFrame(cols, rows)
	return out
}

// WithConstant returns a frame with column name set to v on every row.
// If the column already exists the frame is returned unchanged.
func (f *Frame) WithConstant(name string, v any) *Frame {
	if f.Has(name) {
		return f
	}
	cols := append(f.Columns(), name)
	rows := make([][]any, len(f.rows))
	for r, row := range f.rows {
		rows[r] = append(append(make([]any, 0, len(row)+1), row...), v)
	}
	out, _ := NewFrame(cols, rows)
	return out
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		idx[i] = f.ColumnIndex(n)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, n)
		}
	}
	rows := make([][]any, len(f.rows))
	for r, row := range f.rows {
		out := make([]any, len(idx))
		for i, j := range idx {
			out[i] = row[j]
		}
		rows[r] = out
	}
	return NewFrame(names, rows)
}

func (f *Frame) copyRows() [][]any {
	rows := make([][]any, len(f.rows))
	for r, row := range f.rows {
		rows[r] = append([]any(nil), row...)
	}
	return rows
}
