package exporter

import (
	"math"
	"strconv"
)

// formatFloat formats a value with enough digits to round-trip; non-finite
// values become empty cells.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatLevel renders a centile level as a column name, e.g. C97 or C2.5
func formatLevel(level float64) string {
	return "C" + strconv.FormatFloat(level, 'f', -1, 64)
}

// formatFixed formats a value with a fixed number of decimals for reports
func formatFixed(f float64, decimals int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "N/A"
	}
	return strconv.FormatFloat(f, 'f', decimals, 64)
}
