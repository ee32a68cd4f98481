package probe

import (
	"sort"
	"strconv"
	"strings"

	"registry/internal/catalog"
	"registry/internal/headers"
)

const (
	// SampleSize bounds the values used for type inference.
	SampleSize = 1000
	// EnumThreshold is the largest distinct count of an enum column.
	EnumThreshold = 50
	// SampleValuesCount is the number of distinct sample values kept per field.
	SampleValuesCount = 5
	// RawSampleCount is the number of raw rows kept per file.
	RawSampleCount = 10
	// QuirkScanLimit bounds the values and rows scanned for formatting quirks.
	QuirkScanLimit = 200
)

// ColumnsResult is the outcome of profiling every column of a file.
type ColumnsResult struct {
	Fields []catalog.FieldProfile
	// Regions is the sorted distinct set of region column values.
	Regions []string
	// DateValues are the non-null values of the Gregorian date column, in row order.
	DateValues []string
}

// ProfileColumns profiles each column of rows. hs are cleaned headers; the
// ordinal of each field is its header position. Cells beyond the end of a
// short row count as nulls.
func ProfileColumns(hs []string, rows [][]string) ColumnsResult {
	regionIdx := headers.RegionColumn(hs)
	dateIdx := headers.DateColumn(hs)

	res := ColumnsResult{Fields: make([]catalog.FieldProfile, 0, len(hs))}
	regions := map[string]struct{}{}

	for col, name := range hs {
		values := make([]string, 0, len(rows))
		nulls := 0

		for _, row := range rows {
			if col >= len(row) {
				nulls++
				continue
			}
			v := strings.TrimSpace(row[col])
			if IsNull(v) {
				nulls++
				continue
			}
			values = append(values, v)
			if col == regionIdx {
				regions[v] = struct{}{}
			}
			if col == dateIdx {
				res.DateValues = append(res.DateValues, v)
			}
		}

		f := profileValues(values, rows, col)
		f.Ordinal = col
		f.Name = name
		f.CanonicalName, _ = headers.Canonical(name)
		f.NullCount = nulls
		f.Nullable = nulls > 0
		res.Fields = append(res.Fields, f)
	}

	if len(regions) > 0 {
		res.Regions = make([]string, 0, len(regions))
		for r := range regions {
			res.Regions = append(res.Regions, r)
		}
		sort.Strings(res.Regions)
	}
	return res
}

// profileValues computes the statistics of one column from its non-null
// values. rows and col are needed only for the NULL-literal scan, which looks
// at raw cells.
//
// Type inference uses the first SampleSize values; distinct counts, enum
// frequencies and min/max use all of them.
func profileValues(values []string, rows [][]string, col int) catalog.FieldProfile {
	var f catalog.FieldProfile

	f.Quirks = detectQuirks(values, rows, col)

	sample := values
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	f.DataType = InferType(sample)

	counts, order := countValues(values)
	f.DistinctCount = len(order)

	n := len(order)
	if n > SampleValuesCount {
		n = SampleValuesCount
	}
	f.SampleValues = append([]string{}, order[:n]...)

	if f.DataType == catalog.TypeText && f.DistinctCount > 0 && f.DistinctCount <= EnumThreshold {
		f.Enum = enumEntries(counts, order, len(values))
	}

	switch {
	case f.DataType.IsNumeric():
		f.MinValue, f.MaxValue = numericRange(values)
	case f.DataType == catalog.TypeDate:
		f.MinValue, f.MaxValue, _ = DateRange(values)
	}

	return f
}

// detectQuirks flags formatting irregularities in the first QuirkScanLimit
// values (and rows, for the NULL literal).
func detectQuirks(values []string, rows [][]string, col int) []string {
	window := values
	if len(window) > QuirkScanLimit {
		window = window[:QuirkScanLimit]
	}

	var quotedCommas, pct bool
	for _, v := range window {
		if !quotedCommas && strings.Contains(v, `"`) && strings.Contains(strings.Trim(v, `"`), ",") {
			quotedCommas = true
		}
		if !pct && strings.HasSuffix(v, "%") {
			pct = true
		}
	}

	var nullLiteral bool
	for i, row := range rows {
		if i >= QuirkScanLimit {
			break
		}
		if col < len(row) && strings.EqualFold(strings.TrimSpace(row[col]), "NULL") {
			nullLiteral = true
			break
		}
	}

	var out []string
	if quotedCommas {
		out = append(out, catalog.QuirkQuotedCommas)
	}
	if nullLiteral {
		out = append(out, catalog.QuirkNullLiteral)
	}
	if pct {
		out = append(out, catalog.QuirkPercentageStrings)
	}
	return out
}

// countValues returns per-value frequencies and the distinct values in order
// of first appearance.
func countValues(values []string) (map[string]int, []string) {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, v := range values {
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	return counts, order
}

// enumEntries builds the value distribution sorted by descending count; equal
// counts keep first-seen order. Percentages are rounded to two decimals.
func enumEntries(counts map[string]int, order []string, total int) []catalog.EnumEntry {
	out := make([]catalog.EnumEntry, 0, len(order))
	for _, v := range order {
		c := counts[v]
		var pct float64
		if total > 0 {
			pct = roundPercent(float64(c) / float64(total) * 100)
		}
		out = append(out, catalog.EnumEntry{Value: v, Count: c, Percentage: pct})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// roundPercent rounds x to two decimals from its exact binary value, ties to
// even.
func roundPercent(x float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	return f
}

// numericRange parses every value and returns the min and max of those that
// parse, compared as numbers.
func numericRange(values []string) (minV, maxV string) {
	var lo, hi float64
	seen := false
	for _, v := range values {
		n, ok := ParseNumeric(v)
		if !ok {
			continue
		}
		if !seen {
			lo, hi, seen = n, n, true
			continue
		}
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	if !seen {
		return "", ""
	}
	return formatNumber(lo), formatNumber(hi)
}
