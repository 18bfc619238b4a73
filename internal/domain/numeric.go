package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
)

var (
	nonNumericRegex    = regexp.MustCompile(`[^0-9.\-eE]`)
	leadingNumberRegex = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)
)

// Coerce converts an arbitrary decoded value into a finite number.
// Numbers pass through, strings are stripped of non-numeric characters and
// parsed, anything else (nil, bool, objects, NaN, Inf) becomes 0.
func Coerce(v interface{}) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint64:
		f = float64(x)
	case FlexFloat:
		f = float64(x)
	case json.Number:
		return coerceString(string(x))
	case string:
		return coerceString(x)
	default:
		return 0
	}
	return Finite(f)
}

// coerceString parses the leading number of s once non-numeric characters are removed.
func coerceString(s string) float64 {
	stripped := nonNumericRegex.ReplaceAllString(s, "")
	match := leadingNumberRegex.FindString(stripped)
	if match == "" {
		return 0
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return Finite(f)
}

// Finite returns f, or 0 when f is NaN or infinite.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// NonNegative returns f clamped to [0, +Inf) with non-finite values mapped to 0.
func NonNegative(f float64) float64 {
	f = Finite(f)
	if f < 0 {
		return 0
	}
	return f
}

// FlexFloat is a number that decodes from JSON numbers, numeric strings, or null.
type FlexFloat float64

// UnmarshalJSON applies Coerce to whatever value is present.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*f = FlexFloat(Coerce(raw))
	return nil
}

// Float64 returns the value as a float64.
func (f FlexFloat) Float64() float64 {
	return float64(f)
}
