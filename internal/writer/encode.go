package writer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cast"

	"github.com/rickgao/quant-archive/internal/model"
)

// ErrUnknownColumn is returned when a frame column is not part of the target table.
var ErrUnknownColumn = errors.New("column not in table schema")

// Delimiter separates fields in the COPY payload.
const Delimiter = '\t'

// pinColumns returns the COPY column list for f: every frame column, ordered
// by the table's physical column order. A column the table does not declare
// is an error; it is never matched by position.
func pinColumns(schema model.Schema, f *model.Frame) ([]string, error) {
	for _, c := range f.Columns() {
		if schema.Position(c) < 0 {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, schema.Table, c)
		}
	}
	cols := make([]string, 0, len(f.Columns()))
	for _, c := range schema.ColumnNames() {
		if f.Has(c) {
			cols = append(cols, c)
		}
	}
	return cols, nil
}

// encodeRows serializes f as tab-delimited CSV with fields in columns order.
// nil values are written as unquoted empty fields (NULL under COPY csv).
func encodeRows(f *model.Frame, columns []string) (*bytes.Buffer, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = f.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s", model.ErrColumnNotFound, c)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = Delimiter

	record := make([]string, len(columns))
	for r := 0; r < f.Len(); r++ {
		row := f.Row(r)
		for i, j := range idx {
			record[i] = formatValue(row[j])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", r, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush payload: %w", err)
	}
	return &buf, nil
}

// formatValue renders one cell in COPY text form.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return formatValue(float64(x))
	case time.Time:
		return x.Format("2006-01-02 15:04:05.999999Z07:00")
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
