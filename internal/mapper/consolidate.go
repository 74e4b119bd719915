package mapper

import (
	"fmt"

	"github.com/rickgao/quant-archive/internal/model"
)

// LabeledFrame is one source frame and the label its rows are tagged with.
type LabeledFrame struct {
	Label string
	Frame *model.Frame
}

// SourceError reports a source rejected during consolidation.
type SourceError struct {
	Label string
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Label, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Consolidate maps every source with schema, deduplicates each source on the
// schema's first required column, tags rows with labelColumn, and unions the
// results in source order.
//
// Dedup is per source: a key may appear once under each label. Rejected
// sources are returned as *SourceError and do not stop the others. When no
// source yields rows the result is an empty frame.
func Consolidate(sources []LabeledFrame, schema model.Schema, labelColumn string) (*model.Frame, []error) {
	key := keyColumn(schema)

	type part struct {
		label string
		frame *model.Frame
	}
	var (
		parts []part
		errs  []error
	)
	present := make(map[string]bool)

	for _, src := range sources {
		if src.Frame.Len() == 0 {
			continue
		}
		mapped, err := MapTable(src.Frame, schema)
		if err != nil {
			errs = append(errs, &SourceError{Label: src.Label, Err: err})
			continue
		}
		mapped, err = dedup(mapped, key)
		if err != nil {
			errs = append(errs, &SourceError{Label: src.Label, Err: err})
			continue
		}
		for _, c := range mapped.Columns() {
			present[c] = true
		}
		parts = append(parts, part{label: src.Label, frame: mapped})
	}

	cols := []string{key, labelColumn}
	for _, c := range schema.Columns {
		if c.Name != key && c.Name != labelColumn && present[c.Name] {
			cols = append(cols, c.Name)
		}
	}

	out := model.EmptyFrame(cols...)
	for _, p := range parts {
		for r := 0; r < p.frame.Len(); r++ {
			row := make([]any, len(cols))
			row[0] = p.frame.Value(r, key)
			row[1] = p.label
			for i := 2; i < len(cols); i++ {
				row[i] = p.frame.Value(r, cols[i])
			}
			if err := out.AppendRow(row...); err != nil {
				errs = append(errs, &SourceError{Label: p.label, Err: err})
				break
			}
		}
	}
	return out, errs
}

// keyColumn is the schema's natural key: its first required column.
func keyColumn(schema model.Schema) string {
	for _, c := range schema.Columns {
		if c.Required {
			return c.Name
		}
	}
	return schema.Columns[0].Name
}

// dedup keeps the first row for each distinct key value.
func dedup(f *model.Frame, key string) (*model.Frame, error) {
	keys, err := f.Column(key)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(keys))
	rows := make([][]any, 0, len(keys))
	for r, k := range keys {
		id := fmt.Sprint(k)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, f.Row(r))
	}
	return model.NewFrame(f.Columns(), rows)
}
