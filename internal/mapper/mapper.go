// Package mapper reconciles provider frames with the archive's canonical
// table schemas.
//
// Providers name columns inconsistently ("代码", "证券代码", "code", ...).
// MapTable resolves each canonical column against its synonym list, drops
// everything else, and coerces values. Consolidate unions several mapped
// strategy pools into one tagged frame.
package mapper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rickgao/quant-archive/internal/model"
)

// ErrMissingColumn is returned when a source lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// MissingColumnError names the required column no synonym matched.
type MissingColumnError struct {
	Table    string
	Column   string
	Synonyms []string
}

func (e *MissingColumnError) Error() string {
	table := e.Table
	if table == "" {
		table = "source"
	}
	return fmt.Sprintf("%s: %s: %s (tried %s)", table, ErrMissingColumn, e.Column, strings.Join(e.Synonyms, ", "))
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

// candidates returns the source headers accepted for c, in match order.
func candidates(c model.Column) []string {
	out := make([]string, 0, len(c.Synonyms)+1)
	out = append(out, c.Synonyms...)
	return append(out, c.Name)
}

// resolve returns the source position of c in src, or -1.
func resolve(src *model.Frame, c model.Column) int {
	for _, name := range candidates(c) {
		if i := src.ColumnIndex(name); i >= 0 {
			return i
		}
	}
	return -1
}

// MapTable renames, filters, and coerces src into schema's canonical columns.
//
// Columns appear in the schema's declared order. Optional columns missing
// from src are omitted; a missing required column rejects the whole source.
// The partition column is never taken from src.
func MapTable(src *model.Frame, schema model.Schema) (*model.Frame, error) {
	if src == nil {
		return model.EmptyFrame(), nil
	}

	type binding struct {
		col model.Column
		pos int
	}
	bindings := make([]binding, 0, len(schema.Columns))
	for _, c := range schema.Columns {
		pos := resolve(src, c)
		if pos < 0 {
			if c.Required {
				return nil, &MissingColumnError{Table: schema.Table, Column: c.Name, Synonyms: candidates(c)}
			}
			continue
		}
		bindings = append(bindings, binding{col: c, pos: pos})
	}

	norm := schema.Normalizer()
	cols := make([]string, len(bindings))
	for i, b := range bindings {
		cols[i] = b.col.Name
	}

	rows := make([][]any, src.Len())
	for r := range rows {
		raw := src.Row(r)
		row := make([]any, len(bindings))
		for i, b := range bindings {
			v := raw[b.pos]
			switch b.col.Coercion {
			case model.CoerceNumber:
				row[i] = norm.Parse(v)
			case model.CoerceInteger:
				row[i] = norm.Int(v)
			default:
				row[i] = v
			}
		}
		rows[r] = row
	}

	return model.NewFrame(cols, rows)
}
