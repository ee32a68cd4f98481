package probe

import (
	"math"
	"strconv"
	"strings"
)

// IsNull reports whether a cell counts as missing: empty after trimming, or
// the literal token NULL in any letter case.
func IsNull(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "NULL")
}

// stripValue removes surrounding whitespace and double quotes, drops every
// thousands-separator comma and rewrites non-ASCII decimal digits as ASCII.
func stripValue(v string) string {
	v = strings.Trim(strings.TrimSpace(v), `"`)
	return asciiDigits(strings.ReplaceAll(v, ",", ""))
}

// ParseNumeric coerces a raw cell to a number. Null cells and anything that
// does not parse yield ok=false; a trailing percent sign is dropped, so "12%"
// is 12.
func ParseNumeric(v string) (float64, bool) {
	if IsNull(v) {
		return 0, false
	}
	return parseFloat(strings.TrimSuffix(stripValue(v), "%"))
}

// parseFloat accepts finite decimal numbers only. Hex floats ("0x1p3") are
// rejected even though strconv would take them.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if u := strings.TrimLeft(s, "+-"); len(u) > 1 && u[0] == '0' && (u[1] == 'x' || u[1] == 'X') {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// formatNumber renders a number in its shortest exact decimal form.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
