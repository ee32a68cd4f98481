// Package catalog defines the registry's data model: one FileDescriptor per
// profiled CSV, its FieldProfiles, enum distributions and raw samples, and the
// cross-file FieldAlias summary.
//
// Values in this package are plain data. Optional scalars use the empty string
// for "unset" (unmapped canonical name, min/max of a text column, missing date
// range); storage backends write those as SQL NULL.
package catalog

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DataType is the inferred semantic type of a column.
type DataType string

const (
	TypeInteger DataType = "integer"
	TypeDecimal DataType = "decimal"
	TypeDate    DataType = "date"
	TypeText    DataType = "text"
)

// IsNumeric reports whether min/max are numeric for this type.
func (t DataType) IsNumeric() bool {
	return t == TypeInteger || t == TypeDecimal
}

// Formatting quirk tags, in the order they are reported.
const (
	QuirkQuotedCommas      = "quoted_commas"
	QuirkNullLiteral       = "NULL_literal"
	QuirkPercentageStrings = "percentage_strings"
)

// FileDescriptor is one CSV file's identity and aggregate metadata.
type FileDescriptor struct {
	Source   string `json:"source"`
	Category string `json:"category"`
	Filename string `json:"filename"`
	Path     string `json:"path"` // relative to the scanned root
	Size     int64  `json:"file_size"`
	RowCount int    `json:"row_count"`
	ColCount int    `json:"col_count"`
	Encoding string `json:"encoding"`
	HasBOM   bool   `json:"has_bom"`

	// Date range bounds keep the original string form of the source values.
	DateRangeStart string `json:"date_range_start,omitempty"`
	DateRangeEnd   string `json:"date_range_end,omitempty"`

	// Regions is the sorted distinct set of values of the region column.
	Regions []string `json:"region_coverage,omitempty"`
	Notes   []string `json:"notes,omitempty"`
}

// RegionCoverage renders Regions as a JSON array, or "" when there are none.
func (d FileDescriptor) RegionCoverage() string {
	if len(d.Regions) == 0 {
		return ""
	}
	return marshalString(d.Regions)
}

// NotesText joins notes with "; ", or "" when there are none.
func (d FileDescriptor) NotesText() string {
	return strings.Join(d.Notes, "; ")
}

// FieldProfile is one column's identity and statistics within a file.
type FieldProfile struct {
	Ordinal       int      `json:"ordinal"`
	Name          string   `json:"name"`                     // cleaned header text, any language
	CanonicalName string   `json:"canonical_name,omitempty"` // "" when unmapped
	DataType      DataType `json:"data_type"`
	Nullable      bool     `json:"nullable"`
	NullCount     int      `json:"null_count"`
	DistinctCount int      `json:"distinct_count"`
	MinValue      string   `json:"min_value,omitempty"`
	MaxValue      string   `json:"max_value,omitempty"`
	SampleValues  []string `json:"sample_values"`
	Quirks        []string `json:"formatting_notes,omitempty"`

	// Enum is non-nil only for enum columns.
	Enum []EnumEntry `json:"enum_values,omitempty"`
}

// SampleValuesJSON renders SampleValues as a JSON array (never null).
func (f FieldProfile) SampleValuesJSON() string {
	if f.SampleValues == nil {
		return "[]"
	}
	return marshalString(f.SampleValues)
}

// FormattingNotes joins the quirk tags with ", ", or "" when there are none.
func (f FieldProfile) FormattingNotes() string {
	return strings.Join(f.Quirks, ", ")
}

// IsEnum reports whether enum entries were captured for the field.
func (f FieldProfile) IsEnum() bool { return len(f.Enum) > 0 }

// EnumEntry is one value of an enum column with its frequency.
type EnumEntry struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// RawSample is one original row kept for inspection.
type RawSample struct {
	RowNumber int          `json:"row_number"` // 1-based, counting data rows only
	RawLine   string       `json:"raw_line"`
	Values    SampleValues `json:"parsed"`
}

// SampleCell is a header/value pair of a raw sample. Value is nil when the
// row had no cell at that position.
type SampleCell struct {
	Header string
	Value  *string
}

// SampleValues is an ordered header->value mapping. It marshals as a JSON
// object in header order; a duplicated header keeps its first position and
// its last value.
type SampleValues []SampleCell

func (s SampleValues) MarshalJSON() ([]byte, error) {
	pos := make(map[string]int, len(s))
	merged := make([]SampleCell, 0, len(s))
	for _, c := range s {
		if i, ok := pos[c.Header]; ok {
			merged[i].Value = c.Value
			continue
		}
		pos[c.Header] = len(merged)
		merged = append(merged, c)
	}

	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range merged {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := marshalNoEscape(c.Header)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		if c.Value == nil {
			b.WriteString("null")
			continue
		}
		v, err := marshalNoEscape(*c.Value)
		if err != nil {
			return nil, err
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// JSON renders the ordered mapping as a JSON object string.
func (s SampleValues) JSON() string {
	b, err := s.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}

// FieldAlias counts how many files of a source use a header text for a
// canonical concept.
type FieldAlias struct {
	CanonicalName string `json:"canonical_name"`
	Name          string `json:"name"`
	Source        string `json:"source"`
	FileCount     int    `json:"file_count"`
}

// FileProfile bundles a descriptor with everything profiled from the file.
// It is the unit handed to the catalog store.
type FileProfile struct {
	File    FileDescriptor `json:"file"`
	Fields  []FieldProfile `json:"fields"`
	Samples []RawSample    `json:"samples"`
}

// EnumCount returns the number of enum entries across all fields.
func (p *FileProfile) EnumCount() int {
	n := 0
	for _, f := range p.Fields {
		n += len(f.Enum)
	}
	return n
}

// marshalNoEscape encodes v as JSON without HTML escaping, keeping non-ASCII
// text (Arabic headers and values) readable in the catalog.
func marshalNoEscape(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}

func marshalString(v any) string {
	b, err := marshalNoEscape(v)
	if err != nil {
		return ""
	}
	return string(b)
}
