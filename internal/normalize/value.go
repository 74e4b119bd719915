// Package normalize converts provider-formatted numeric strings into float64.
//
// Upstream A-share data providers report money and ratios as display strings:
// "1.5亿", "23.4万", "5.2%", or "--" when a value is unavailable. Parsing never
// fails: anything that cannot be read as a number becomes 0.
package normalize

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// PercentMode selects how a trailing '%' is interpreted.
type PercentMode int

const (
	// PercentRatio strips the sign and divides by 100 ("5.2%" -> 0.052).
	PercentRatio PercentMode = iota

	// PercentPoints strips the sign and keeps the number ("5.2%" -> 5.2).
	PercentPoints
)

// String returns the config name of the mode.
func (m PercentMode) String() string {
	switch m {
	case PercentRatio:
		return "ratio"
	case PercentPoints:
		return "points"
	default:
		return "unknown"
	}
}

// Unit multipliers for Chinese magnitude markers.
var (
	yi    = decimal.NewFromInt(100_000_000) // 亿
	wan   = decimal.NewFromInt(10_000)      // 万
	cent  = decimal.NewFromInt(100)
	units = []struct {
		marker string
		scale  decimal.Decimal
	}{
		{"亿", yi},
		{"万", wan},
	}
)

// sentinels are the provider markers for "no data".
var sentinels = map[string]struct{}{
	"":    {},
	"--":  {},
	"-":   {},
	"nan": {},
	"NaN": {},
}

// Normalizer parses raw cell values under one percent policy.
type Normalizer struct {
	Percent PercentMode
}

// Ratio is the normalizer used for industry analysis columns.
var Ratio = Normalizer{Percent: PercentRatio}

// Points is the normalizer used for strategy report columns.
var Points = Normalizer{Percent: PercentPoints}

// Parse converts raw into a float64. It never fails; unreadable input is 0.
func (n Normalizer) Parse(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case string:
		return n.parseString(v)
	case []byte:
		return n.parseString(string(v))
	case decimal.Decimal:
		return finite(v.InexactFloat64())
	case json.Number:
		return n.parseString(v.String())
	}

	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0
	}
	return finite(f)
}

func (n Normalizer) parseString(raw string) float64 {
	s := strings.TrimSpace(raw)
	if _, ok := sentinels[s]; ok {
		return 0
	}

	// Markers are recognized anywhere in the string and removed; whatever
	// remains must be a plain number. '%' takes precedence over units.
	if strings.Contains(s, "%") {
		d, ok := parseDecimal(strings.ReplaceAll(s, "%", ""))
		if !ok {
			return 0
		}
		if n.Percent == PercentRatio {
			d = d.Div(cent)
		}
		return toFloat(d)
	}

	for _, u := range units {
		if strings.Contains(s, u.marker) {
			d, ok := parseDecimal(strings.ReplaceAll(s, u.marker, ""))
			if !ok {
				return 0
			}
			return toFloat(d.Mul(u.scale))
		}
	}

	d, ok := parseDecimal(s)
	if !ok {
		return 0
	}
	return toFloat(d)
}

// Int parses raw like Parse and truncates toward zero. Values outside the
// int64 range are 0.
func (n Normalizer) Int(raw any) int64 {
	switch v := raw.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	}
	f := n.Parse(raw)
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int64(f)
}

// Int is Points.Int.
func Int(raw any) int64 {
	return Points.Int(raw)
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
