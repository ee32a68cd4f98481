// Package probe profiles CSV files: it infers each column's type from a
// bounded sample, computes exact distinct counts and ranges over the full
// column, captures enum distributions and flags formatting quirks.
//
// All inference is best-effort. A value that does not parse as a number or a
// date is excluded from the statistic it would have fed; it never fails the
// file. Only decoding and structural problems (see internal/parser/csv) are
// returned as errors.
package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"registry/internal/catalog"
	"registry/internal/classify"
	"registry/internal/headers"
	csvparser "registry/internal/parser/csv"
)

// yearCanonical is the canonical field used as a date-range fallback.
const yearCanonical = "year"

// ProfileFile reads and profiles the CSV at path. The descriptor's Path is
// relative to root when possible.
func ProfileFile(ctx context.Context, root, path string) (*catalog.FileProfile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	tbl, err := csvparser.ReadFile(ctx, path, csvparser.Options{})
	if err != nil {
		return nil, err
	}

	rel := path
	if root != "" {
		if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}

	return ProfileTable(filepath.Base(path), rel, st.Size(), tbl), nil
}

// ProfileTable profiles an already-read table.
func ProfileTable(filename, relPath string, size int64, tbl *csvparser.Table) *catalog.FileProfile {
	cls := classify.Classify(filename)
	hs := headers.CleanAll(tbl.Headers)
	cols := ProfileColumns(hs, tbl.Rows)

	desc := catalog.FileDescriptor{
		Source:   cls.Source,
		Category: cls.Category,
		Filename: filename,
		Path:     relPath,
		Size:     size,
		RowCount: len(tbl.Rows),
		ColCount: len(hs),
		Encoding: tbl.Encoding.Name,
		HasBOM:   tbl.Encoding.HasBOM,
		Regions:  cols.Regions,
		Notes:    classify.Notes(cls.Category),
	}
	if desc.Encoding == "" {
		desc.Encoding = csvparser.EncodingUTF8
	}
	desc.DateRangeStart, desc.DateRangeEnd = fileDateRange(cols)

	return &catalog.FileProfile{
		File:    desc,
		Fields:  cols.Fields,
		Samples: rawSamples(hs, tbl),
	}
}

// fileDateRange prefers the Gregorian date column; otherwise the first
// integer or text column whose canonical name is "year" decides the range. A
// text year column has no min/max, so it ends the search with no range.
func fileDateRange(cols ColumnsResult) (start, end string) {
	if len(cols.DateValues) > 0 {
		start, end, _ = DateRange(cols.DateValues)
	}
	if start != "" {
		return start, end
	}
	for _, f := range cols.Fields {
		if f.CanonicalName == yearCanonical && (f.DataType == catalog.TypeInteger || f.DataType == catalog.TypeText) {
			return f.MinValue, f.MaxValue
		}
	}
	return "", ""
}

// rawSamples keeps the first RawSampleCount rows as source text plus an
// ordered header->value mapping.
func rawSamples(hs []string, tbl *csvparser.Table) []catalog.RawSample {
	n := len(tbl.Rows)
	if n > RawSampleCount {
		n = RawSampleCount
	}

	out := make([]catalog.RawSample, 0, n)
	for i := 0; i < n; i++ {
		row := tbl.Rows[i]
		vals := make(catalog.SampleValues, 0, len(hs))
		for c, h := range hs {
			cell := catalog.SampleCell{Header: h}
			if c < len(row) {
				v := strings.TrimSpace(row[c])
				cell.Value = &v
			}
			vals = append(vals, cell)
		}

		var line string
		if i < len(tbl.Lines) {
			line = tbl.Lines[i]
		}
		out = append(out, catalog.RawSample{
			RowNumber: i + 1,
			RawLine:   line,
			Values:    vals,
		})
	}
	return out
}
