package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/rickgao/quant-archive/internal/model"
)

var day = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReadTSV(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("代码\t名称\n600000\t浦发银行\n")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		content  []byte
		encoding string
	}{
		{"utf-8", []byte("代码\t名称\n600000\t浦发银行\n"), ""},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "代码\t名称\n600000\t浦发银行\n"...), EncodingUTF8},
		{"gbk", []byte(gbk), EncodingGBK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pool.txt")
			writeFile(t, path, tt.content)

			f, err := ReadTSV(path, ReadOptions{Encoding: tt.encoding})
			if err != nil {
				t.Fatalf("ReadTSV: %v", err)
			}
			if !reflect.DeepEqual(f.Columns(), []string{"代码", "名称"}) {
				t.Errorf("Columns() = %v", f.Columns())
			}
			if f.Len() != 1 || f.Value(0, "名称") != "浦发银行" {
				t.Errorf("row 0 = %v", f.Row(0))
			}
		})
	}
}

func TestReadTSV_EmptyCellIsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.txt")
	writeFile(t, path, []byte("代码\t名称\t涨幅\n600000\t\t1.2%\n000001\t平安银行\n"))

	f, err := ReadTSV(path, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadTSV: %v", err)
	}
	if f.Value(0, "名称") != nil {
		t.Errorf("empty cell = %#v, want nil", f.Value(0, "名称"))
	}
	// Short rows are padded with nil.
	if f.Value(1, "涨幅") != nil {
		t.Errorf("missing cell = %#v, want nil", f.Value(1, "涨幅"))
	}
}

func TestReadTSV_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.txt")
	writeFile(t, empty, nil)
	if _, err := ReadTSV(empty, ReadOptions{}); err == nil {
		t.Error("ReadTSV(empty) expected error")
	}

	wide := filepath.Join(dir, "wide.txt")
	writeFile(t, wide, []byte("a\tb\n1\t2\t3\n"))
	if _, err := ReadTSV(wide, ReadOptions{}); err == nil {
		t.Error("ReadTSV(extra field) expected error")
	}

	if _, err := ReadTSV(wide, ReadOptions{Encoding: "latin1"}); err == nil {
		t.Error("ReadTSV(unknown encoding) expected error")
	}

	if _, err := ReadTSV(filepath.Join(dir, "nope.txt"), ReadOptions{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadTSV(missing) error = %v, want ErrNotExist", err)
	}
}

func TestWriteTSV_RoundTrip(t *testing.T) {
	f, _ := model.NewFrame(
		[]string{"行业名称", "趋势得分", "领涨股"},
		[][]any{
			{"银行", 1.5, "浦发\t银行"},
			{"电子", int64(3), nil},
		},
	)
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := WriteTSV(path, f); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}

	got, err := ReadTSV(path, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadTSV: %v", err)
	}
	want := [][]any{
		{"银行", "1.5", "浦发\t银行"},
		{"电子", "3", nil},
	}
	for r := range want {
		if !reflect.DeepEqual(got.Row(r), want[r]) {
			t.Errorf("row %d = %#v, want %#v", r, got.Row(r), want[r])
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2025-01-02", "2025-01-02", false},
		{"20250102", "2025-01-02", false},
		{" 20250102 ", "2025-01-02", false},
		{"2025/01/02", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDate(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if got.Format(DateLayout) != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got.Format(DateLayout), tt.want)
		}
	}
}

func TestLoadDay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, DatasetPath(dir, "strong_stocks_raw", day), []byte("代码\t名称\n600000\t浦发银行\n"))
	writeFile(t, DatasetPath(dir, "ljqs_raw", day), []byte("代码\n000001\n000002\n"))

	frames, err := LoadDay(context.Background(), dir, day,
		[]string{"strong_stocks_raw", "ljqs_raw", "cxfl_raw"}, LoadOptions{Concurrency: 2})
	if err != nil {
		t.Fatalf("LoadDay: %v", err)
	}

	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if frames["ljqs_raw"].Len() != 2 {
		t.Errorf("ljqs_raw rows = %d, want 2", frames["ljqs_raw"].Len())
	}
	if _, ok := frames["cxfl_raw"]; ok {
		t.Error("missing file should yield no frame")
	}
}

func TestLoadDay_ReadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, DatasetPath(dir, "broken", day), []byte("a\n1\t2\n"))

	if _, err := LoadDay(context.Background(), dir, day, []string{"broken"}, LoadOptions{}); err == nil {
		t.Error("LoadDay() expected error for malformed file")
	}
}

func TestDatasetPath(t *testing.T) {
	got := DatasetPath("data", "consolidated_report", day)
	want := filepath.Join("data", "consolidated_report_20250102.txt")
	if got != want {
		t.Errorf("DatasetPath() = %s, want %s", got, want)
	}
}

func TestIndustryCache_ReadThrough(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cache := NewIndustryCache(dir, nil)

	calls := 0
	compute := func() (*model.Frame, error) {
		calls++
		return model.NewFrame([]string{"行业名称", "趋势得分"}, [][]any{{"银行", "1.5"}})
	}

	first, err := cache.ReadThrough(day, compute)
	if err != nil {
		t.Fatalf("first ReadThrough: %v", err)
	}
	second, err := cache.ReadThrough(day, compute)
	if err != nil {
		t.Fatalf("second ReadThrough: %v", err)
	}

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if !reflect.DeepEqual(first.Row(0), second.Row(0)) {
		t.Errorf("cached row = %v, want %v", second.Row(0), first.Row(0))
	}
	if filepath.Base(cache.Path(day)) != "行业权重趋势_20250102.txt" {
		t.Errorf("Path() = %s", cache.Path(day))
	}
}

func TestIndustryCache_ComputeError(t *testing.T) {
	cache := NewIndustryCache(t.TempDir(), nil)
	boom := errors.New("upstream down")

	_, err := cache.ReadThrough(day, func() (*model.Frame, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

func TestIndustryCache_EmptyResultNotCached(t *testing.T) {
	cache := NewIndustryCache(t.TempDir(), nil)

	f, err := cache.ReadThrough(day, func() (*model.Frame, error) { return nil, nil })
	if err != nil {
		t.Fatalf("ReadThrough: %v", err)
	}
	if f.Len() != 0 {
		t.Errorf("rows = %d, want 0", f.Len())
	}
	if _, err := os.Stat(cache.Path(day)); !os.IsNotExist(err) {
		t.Errorf("cache file written for empty result: %v", err)
	}
}
