// Package normalize coerces raw feature property values into numbers
// and display text. All functions are total: malformed input degrades
// to nil or "N/A", never an error.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoValue is the display placeholder for absent values.
const NoValue = "N/A"

// missingSentinels are textual forms that datasets use for "no value".
var missingSentinels = map[string]bool{
	"":     true,
	"n/a":  true,
	"na":   true,
	"null": true,
	"nil":  true,
	"-":    true,
}

// IsMissing reports whether a raw property value carries no usable data.
func IsMissing(raw any) bool {
	if raw == nil {
		return true
	}
	if s, ok := raw.(string); ok {
		return missingSentinels[strings.ToLower(strings.TrimSpace(s))]
	}
	return false
}

// ToNumeric parses a raw property value as a number. Returns nil for
// absent, empty, or non-finite input (textual garbage, NaN, Inf).
func ToNumeric(raw any) *float64 {
	if IsMissing(raw) {
		return nil
	}

	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int32:
		v = float64(x)
	case int64:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		v = f
	default:
		return nil
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ToDisplayText returns the exact textual representation of a raw
// value, or "N/A" when absent. Numeric values use their shortest
// round-trip form; text passes through verbatim. No rounding or
// fixed-decimal formatting is ever applied here.
func ToDisplayText(raw any) string {
	if IsMissing(raw) {
		return NoValue
	}

	switch x := raw.(type) {
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return NoValue
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return NoValue
	}
}

var incomePrinter = message.NewPrinter(language.English)

// ToIncomeText formats a monthly income as a locale-grouped integer,
// rounded to the nearest whole unit (e.g. 3508.6 -> "3,509"). Unlike
// ratio displays, income IS rounded; that asymmetry is deliberate.
func ToIncomeText(n *float64) string {
	if n == nil {
		return NoValue
	}
	return incomePrinter.Sprintf("%d", int64(math.Round(*n)))
}
