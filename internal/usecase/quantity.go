package usecase

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/foodlog/backend/internal/domain"
)

var (
	mixedNumberRegex = regexp.MustCompile(`^(\d+)\s+(\d+)\s*/\s*(\d+)`)
	fractionRegex    = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)`)
)

// quantityWords maps spelled-out amounts to their value
var quantityWords = map[string]float64{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "dozen": 12,
	"half": 0.5, "quarter": 0.25, "couple": 2, "few": 3,
}

// ParseQuantity converts a quantity as written by the user or a model into a
// positive number. Numbers pass through; strings accept decimals, fractions,
// mixed numbers and number words. Anything unusable defaults to 1.
func ParseQuantity(v interface{}) float64 {
	var q float64
	switch x := v.(type) {
	case string:
		q = parseQuantityString(x)
	case json.Number:
		q = parseQuantityString(string(x))
	default:
		q = domain.Coerce(v)
	}
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return 1
	}
	return q
}

func parseQuantityString(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	if m := mixedNumberRegex.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den > 0 {
			return whole + num/den
		}
	}

	if m := fractionRegex.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den > 0 {
			return num / den
		}
	}

	fields := strings.Fields(s)
	if v, ok := quantityWords[fields[0]]; ok {
		// "half a cup", "a half"
		if len(fields) > 1 {
			if next, ok := quantityWords[fields[1]]; ok && next < 1 {
				return v * next
			}
		}
		return v
	}

	return domain.Coerce(s)
}

// FormatQuantity renders a quantity without trailing zeros.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// unitAliases normalizes common spellings to a canonical unit name
var unitAliases = map[string]string{
	"g": "g", "gm": "g", "gms": "g", "gram": "g", "grams": "g", "gr": "g",
	"mg": "mg", "milligram": "mg", "milligrams": "mg",
	"kg": "kg", "kgs": "kg", "kilogram": "kg", "kilograms": "kg",
	"oz": "oz", "ounce": "oz", "ounces": "oz",
	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"ml": "ml", "milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml",
	"l": "l", "liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"cup": "cup", "cups": "cup",
	"tbsp": "tbsp", "tablespoon": "tbsp", "tablespoons": "tbsp",
	"tsp": "tsp", "teaspoon": "tsp", "teaspoons": "tsp",
	"plate": "plate", "plates": "plate",
	"katori": "katori", "katoris": "katori",
	"bowl": "bowl", "bowls": "bowl",
	"piece": "piece", "pieces": "piece", "pc": "piece", "pcs": "piece",
	"slice": "slice", "slices": "slice",
	"serving": "serving", "servings": "serving",
}

// gramsPerUnit holds mass-equivalents; volumes assume water density and
// portions follow the standard conversions used in the prompts.
var gramsPerUnit = map[string]float64{
	"mg":     0.001,
	"g":      1,
	"kg":     1000,
	"oz":     28.349523125,
	"lb":     453.59237,
	"ml":     1,
	"l":      1000,
	"cup":    240,
	"tbsp":   14.78676478125,
	"tsp":    4.92892159375,
	"plate":  250,
	"katori": 150,
	"bowl":   200,
}

// NormalizeUnit lowercases a unit and maps known aliases to their canonical form.
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimSuffix(u, ".")
	if canonical, ok := unitAliases[u]; ok {
		return canonical
	}
	return u
}

// GramsPerUnit returns the mass equivalent of one unit, if known.
func GramsPerUnit(unit string) (float64, bool) {
	g, ok := gramsPerUnit[NormalizeUnit(unit)]
	return g, ok
}

// defaultUnit returns the first non-blank unit, or domain.DefaultUnit.
func defaultUnit(units ...string) string {
	for _, u := range units {
		if u = strings.TrimSpace(u); u != "" {
			return u
		}
	}
	return domain.DefaultUnit
}

// stringify renders a loosely typed decoded value as a trimmed string.
func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return FormatQuantity(x)
	case json.Number:
		return x.String()
	case bool:
		return ""
	default:
		return ""
	}
}
