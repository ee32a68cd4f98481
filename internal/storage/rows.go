package storage

import (
	"registry/internal/catalog"
)

// Row builders return insert values aligned with TableSpec.ColumnNames of the
// matching catalog table. Backends must not assume anything else about the
// catalog types; these helpers keep the mapping identical across backends.

// NullString maps the empty string to SQL NULL.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// FileRow returns the files values for d.
func FileRow(d catalog.FileDescriptor) []any {
	return []any{
		d.Source,
		d.Category,
		d.Filename,
		d.Path,
		d.Size,
		d.RowCount,
		d.ColCount,
		d.Encoding,
		boolInt(d.HasBOM),
		NullString(d.DateRangeStart),
		NullString(d.DateRangeEnd),
		NullString(d.RegionCoverage()),
		NullString(d.NotesText()),
	}
}

// FieldRow returns the fields values for f. name_en is always NULL: headers
// are stored as found, whatever their language.
func FieldRow(fileID int64, f catalog.FieldProfile) []any {
	return []any{
		fileID,
		f.Ordinal,
		f.Name,
		nil,
		NullString(f.CanonicalName),
		string(f.DataType),
		boolInt(f.Nullable),
		f.NullCount,
		f.DistinctCount,
		NullString(f.MinValue),
		NullString(f.MaxValue),
		f.SampleValuesJSON(),
		NullString(f.FormattingNotes()),
	}
}

// EnumRows returns the enum_values rows of one field.
func EnumRows(fieldID int64, f catalog.FieldProfile) [][]any {
	if len(f.Enum) == 0 {
		return nil
	}
	out := make([][]any, 0, len(f.Enum))
	for _, e := range f.Enum {
		out = append(out, []any{fieldID, e.Value, e.Count, e.Percentage})
	}
	return out
}

// SampleRows returns the samples rows of one file.
func SampleRows(fileID int64, samples []catalog.RawSample) [][]any {
	if len(samples) == 0 {
		return nil
	}
	out := make([][]any, 0, len(samples))
	for _, s := range samples {
		out = append(out, []any{fileID, s.RowNumber, s.RawLine, s.Values.JSON()})
	}
	return out
}

// AliasRows returns the field_aliases rows.
func AliasRows(aliases []catalog.FieldAlias) [][]any {
	out := make([][]any, 0, len(aliases))
	for _, a := range aliases {
		out = append(out, []any{a.CanonicalName, a.Name, a.Source, a.FileCount})
	}
	return out
}

// Columns returns the insertable column names of a catalog table.
func Columns(table string) []string {
	return mustTable(table).ColumnNames()
}
