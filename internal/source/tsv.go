// Package source reads the tab-separated dataset files produced by the daily
// screening jobs and keeps the same-day industry snapshot cache.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/rickgao/quant-archive/internal/model"
)

// Supported file encodings.
const (
	EncodingUTF8 = "utf-8"
	EncodingGBK  = "gbk"
)

// ReadOptions controls how a dataset file is decoded.
type ReadOptions struct {
	Encoding string // utf-8 (default, BOM tolerated) or gbk
}

// ReadTSV reads a tab-separated file with a header row. Empty cells become
// nil; all other cells are kept as strings.
func ReadTSV(path string, opts ReadOptions) (*model.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dec, err := decoder(file, opts.Encoding)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(dec)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: missing header", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	f, err := model.NewFrame(header, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: header: %w", path, err)
	}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", path, line, err)
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("%s: line %d has %d fields, header has %d", path, line, len(rec), len(header))
		}
		row := make([]any, len(header))
		for i, cell := range rec {
			if cell != "" {
				row[i] = cell
			}
		}
		if err := f.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", path, line, err)
		}
	}
	return f, nil
}

// WriteTSV writes f as UTF-8 tab-separated text with a header row. The file
// is replaced atomically. A frame index is not written.
func WriteTSV(path string, f *model.Frame) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	w.Comma = '\t'
	if err := w.Write(f.Columns()); err != nil {
		tmp.Close()
		return err
	}
	record := make([]string, len(f.Columns()))
	for r := 0; r < f.Len(); r++ {
		for i, v := range f.Row(r) {
			if v == nil {
				record[i] = ""
				continue
			}
			s, err := cast.ToStringE(v)
			if err != nil {
				tmp.Close()
				return fmt.Errorf("row %d column %s: %w", r, f.Columns()[i], err)
			}
			record[i] = s
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case "", EncodingUTF8, "utf8":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case EncodingGBK:
		return transform.NewReader(r, simplifiedchinese.GBK.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}
