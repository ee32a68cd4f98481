package catalog

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const topCanonicalLimit = 10

var englishPrinter = message.NewPrinter(language.English)

// CategoryCount aggregates files and rows for one source/category pair.
type CategoryCount struct {
	Source   string
	Category string
	Files    int
	Rows     int
}

// CanonicalCount is the summed alias file coverage of a canonical field.
type CanonicalCount struct {
	Name  string
	Files int
}

// Summary describes a finished registry build.
type Summary struct {
	RunID           string
	Files           int
	FailedFiles     int
	TotalRows       int
	Fields          int
	EnumValues      int
	Samples         int
	CanonicalFields int
	ByCategory      []CategoryCount
	TopCanonical    []CanonicalCount

	// Destination is an informational label for where the catalog was written.
	Destination string
}

// Summarize computes the build summary from the saved files and the alias
// table built from them.
func Summarize(files []*FileProfile, aliases []FieldAlias) Summary {
	var s Summary

	byCat := map[[2]string]*CategoryCount{}
	for _, fp := range files {
		if fp == nil {
			continue
		}
		s.Files++
		s.TotalRows += fp.File.RowCount
		s.Fields += len(fp.Fields)
		s.EnumValues += fp.EnumCount()
		s.Samples += len(fp.Samples)

		k := [2]string{fp.File.Source, fp.File.Category}
		c, ok := byCat[k]
		if !ok {
			c = &CategoryCount{Source: fp.File.Source, Category: fp.File.Category}
			byCat[k] = c
		}
		c.Files++
		c.Rows += fp.File.RowCount
	}

	for _, c := range byCat {
		s.ByCategory = append(s.ByCategory, *c)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Category < b.Category
	})

	coverage := map[string]int{}
	for _, a := range aliases {
		coverage[a.CanonicalName] += a.FileCount
	}
	s.CanonicalFields = len(coverage)
	for name, n := range coverage {
		s.TopCanonical = append(s.TopCanonical, CanonicalCount{Name: name, Files: n})
	}
	sort.Slice(s.TopCanonical, func(i, j int) bool {
		a, b := s.TopCanonical[i], s.TopCanonical[j]
		if a.Files != b.Files {
			return a.Files > b.Files
		}
		return a.Name < b.Name
	})
	if len(s.TopCanonical) > topCanonicalLimit {
		s.TopCanonical = s.TopCanonical[:topCanonicalLimit]
	}

	return s
}

// WriteText renders the human-readable registry summary.
func (s Summary) WriteText(w io.Writer) error {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "\n%s\nREGISTRY SUMMARY\n%s\n", rule, rule)
	if s.RunID != "" {
		fmt.Fprintf(&b, "  Run:                 %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "  Files cataloged:     %d\n", s.Files)
	if s.FailedFiles > 0 {
		fmt.Fprintf(&b, "  Files failed:        %d\n", s.FailedFiles)
	}
	fmt.Fprintf(&b, "  Total data rows:     %s\n", groupThousands(s.TotalRows))
	fmt.Fprintf(&b, "  Fields cataloged:    %d\n", s.Fields)
	fmt.Fprintf(&b, "  Enum values stored:  %d\n", s.EnumValues)
	fmt.Fprintf(&b, "  Sample rows stored:  %d\n", s.Samples)
	fmt.Fprintf(&b, "  Canonical fields:    %d\n\n", s.CanonicalFields)

	b.WriteString("FILES BY SOURCE/CATEGORY:\n")
	for _, c := range s.ByCategory {
		fmt.Fprintf(&b, "  %s/%s: %d files, %s rows\n", c.Source, c.Category, c.Files, groupThousands(c.Rows))
	}

	b.WriteString("\nTOP CANONICAL FIELDS (by file coverage):\n")
	for _, c := range s.TopCanonical {
		fmt.Fprintf(&b, "  %s: %d files\n", c.Name, c.Files)
	}

	if s.Destination != "" {
		fmt.Fprintf(&b, "\nCatalog: %s\n", s.Destination)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// groupThousands formats n with comma thousands separators.
func groupThousands(n int) string {
	return englishPrinter.Sprintf("%d", n)
}
