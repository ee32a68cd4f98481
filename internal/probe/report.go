package probe

import (
	"fmt"
	"strings"

	"registry/internal/catalog"
)

// FormatReport renders a human-readable profile of one file: a header block,
// one line per column, then the distribution of every enum column.
func FormatReport(fp *catalog.FileProfile) string {
	if fp == nil {
		return "profile: no file"
	}
	d := fp.File

	var b strings.Builder
	fmt.Fprintf(&b, "file:\t%s [%s/%s]\n", d.Path, d.Source, d.Category)
	fmt.Fprintf(&b, "rows=%d\tcols=%d\tencoding=%s\tbom=%t\tsize=%d\n", d.RowCount, d.ColCount, d.Encoding, d.HasBOM, d.Size)
	if d.DateRangeStart != "" || d.DateRangeEnd != "" {
		fmt.Fprintf(&b, "date_range:\t%s .. %s\n", d.DateRangeStart, d.DateRangeEnd)
	}
	if len(d.Regions) > 0 {
		fmt.Fprintf(&b, "regions:\t%s\n", strings.Join(d.Regions, ", "))
	}
	if len(d.Notes) > 0 {
		fmt.Fprintf(&b, "notes:\t%s\n", d.NotesText())
	}

	fmt.Fprintf(&b, "%-3s\t%-24s\t%-20s\t%-7s\t%-6s\t%-8s\t%-12s\t%-12s\tquirks\n",
		"#", "header", "canonical", "type", "nulls", "distinct", "min", "max")
	for _, f := range fp.Fields {
		canonical := f.CanonicalName
		if canonical == "" {
			canonical = "-"
		}
		fmt.Fprintf(&b, "%-3d\t%-24s\t%-20s\t%-7s\t%-6d\t%-8d\t%-12s\t%-12s\t%s\n",
			f.Ordinal, f.Name, canonical, f.DataType, f.NullCount, f.DistinctCount,
			f.MinValue, f.MaxValue, f.FormattingNotes())
	}

	for _, f := range fp.Fields {
		if !f.IsEnum() {
			continue
		}
		fmt.Fprintf(&b, "\nenum %d %s:\n", f.Ordinal, f.Name)
		for _, e := range f.Enum {
			fmt.Fprintf(&b, "  %-30s\t%d\t%.2f%%\n", e.Value, e.Count, e.Percentage)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
