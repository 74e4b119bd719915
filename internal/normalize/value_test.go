package normalize

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse_Malformed(t *testing.T) {
	inputs := []any{nil, "", "   ", "--", "-", " -- ", "abc", "1.2.3", "亿", "%", "N/A", "nan", math.NaN(), math.Inf(1), []byte("--")}

	for _, n := range []Normalizer{Ratio, Points} {
		for _, in := range inputs {
			if got := n.Parse(in); got != 0 {
				t.Errorf("%s.Parse(%#v) = %v, want 0", n.Percent, in, got)
			}
		}
	}
}

func TestParse_Units(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{"1.5亿", 150000000},
		{"23.4万", 234000},
		{"-3.75亿", -375000000},
		{" 12万 ", 120000},
		{"0.01万", 100},
		{"1,234.5", 1234.5},
		{"+8.8", 8.8},
		{"42", 42},
		{42, 42},
		{int64(7), 7},
		{3.25, 3.25},
		{float32(0.5), 0.5},
		{json.Number("12.5"), 12.5},
		{decimal.RequireFromString("9.75"), 9.75},
	}

	for _, tt := range tests {
		if got := Ratio.Parse(tt.in); got != tt.want {
			t.Errorf("Ratio.Parse(%#v) = %v, want %v", tt.in, got, tt.want)
		}
		if got := Points.Parse(tt.in); got != tt.want {
			t.Errorf("Points.Parse(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParse_PercentRatio(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"5.2%", 0.052},
		{"-1.25%", -0.0125},
		{"100%", 1},
		{"0%", 0},
		{"x%", 0},
	}

	for _, tt := range tests {
		if got := Ratio.Parse(tt.in); got != tt.want {
			t.Errorf("Ratio.Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParse_PercentPoints(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"5.2%", 5.2},
		{"-1.25%", -1.25},
		{"100%", 100},
		{"x%", 0},
	}

	for _, tt := range tests {
		if got := Points.Parse(tt.in); got != tt.want {
			t.Errorf("Points.Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{"3", 3},
		{"3.9", 3},
		{"-2.5", -2},
		{5, 5},
		{7.99, 7},
		{"--", 0},
		{"many", 0},
		{nil, 0},
		{"1e30", 0},
	}

	for _, tt := range tests {
		if got := Int(tt.in); got != tt.want {
			t.Errorf("Int(%#v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPercentMode_String(t *testing.T) {
	if PercentRatio.String() != "ratio" {
		t.Errorf("PercentRatio.String() = %q", PercentRatio.String())
	}
	if PercentPoints.String() != "points" {
		t.Errorf("PercentPoints.String() = %q", PercentPoints.String())
	}
}

func TestParse_MarkerPosition(t *testing.T) {
	tests := []struct {
		n    Normalizer
		in   string
		want float64
	}{
		{Ratio, "%5.2", 0.052},
		{Points, "%5.2", 5.2},
		{Ratio, "亿1.5", 150000000},
		{Ratio, "1.5 万", 15000},
		// Markers are removed, other text is not.
		{Ratio, "1.5亿元", 0},
		{Ratio, "约3万", 0},
		{Ratio, "1.5万%", 0},
	}

	for _, tt := range tests {
		if got := tt.n.Parse(tt.in); got != tt.want {
			t.Errorf("%s.Parse(%q) = %v, want %v", tt.n.Percent, tt.in, got, tt.want)
		}
	}
}
