// src/utils/numeric.go
package utils

import (
	"math"
	"strconv"
	"strings"
)

// dashReplacer maps the dash variants brokers emit (en dash, em dash,
// true minus sign) onto the ASCII minus strconv understands.
var dashReplacer = strings.NewReplacer("–", "-", "—", "-", "−", "-")

// ParseDecimal converts locale-variant numeric text into a float64.
// Internal whitespace (including NBSP thousands separators) is stripped,
// a comma with no dot is treated as a European decimal point, otherwise
// commas are dropped as thousands separators. Anything unparsable or
// non-finite resolves to 0; report text is untrusted and a bad cell must
// never take the whole parse down.
func ParseDecimal(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))

	cleaned = dashReplacer.Replace(cleaned)

	if strings.Contains(cleaned, ",") {
		if strings.Contains(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// RoundFloat rounds a value to the given number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
