package storage

// The catalog schema is declared once here; every backend renders its own
// DDL from these specs.

// Logical column types. Backends map them to concrete SQL types.
const (
	TypeText    = "text"    // unbounded text
	TypeKeyText = "keytext" // text that takes part in an index
	TypeInt     = "int"
	TypeBigInt  = "bigint"
	TypeReal    = "real"
)

// Catalog table names.
const (
	TableFiles        = "files"
	TableFields       = "fields"
	TableEnumValues   = "enum_values"
	TableSamples      = "samples"
	TableFieldAliases = "field_aliases"
)

type TableSpec struct {
	Name       string
	PrimaryKey *PrimaryKeySpec
	Columns    []ColumnSpec
}

// PrimaryKeySpec is an auto-generated integer key. It is not listed in
// TableSpec.Columns and is never written by inserts.
type PrimaryKeySpec struct {
	Name string
}

type ColumnSpec struct {
	Name       string
	Type       string
	References string // "table(column)"
	Nullable   *bool  // nil means nullable
	Default    string // raw SQL literal
}

// IsNullable reports the column's nullability; unset means nullable.
func (c ColumnSpec) IsNullable() bool {
	return c.Nullable == nil || *c.Nullable
}

type IndexSpec struct {
	Name    string
	Table   string
	Columns []string
}

// ColumnNames returns the insertable column names of t in declaration order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}

func notNull() *bool {
	v := false
	return &v
}

var idKey = &PrimaryKeySpec{Name: "id"}

// CatalogTables returns the catalog tables in creation order: parents before
// the tables that reference them.
func CatalogTables() []TableSpec {
	return []TableSpec{
		{
			Name:       TableFiles,
			PrimaryKey: idKey,
			Columns: []ColumnSpec{
				{Name: "source", Type: TypeKeyText, Nullable: notNull()},
				{Name: "category", Type: TypeKeyText, Nullable: notNull()},
				{Name: "filename", Type: TypeText, Nullable: notNull()},
				{Name: "path", Type: TypeText, Nullable: notNull()},
				{Name: "file_size", Type: TypeBigInt},
				{Name: "row_count", Type: TypeInt},
				{Name: "col_count", Type: TypeInt},
				{Name: "encoding", Type: TypeText},
				{Name: "has_bom", Type: TypeInt},
				{Name: "date_range_start", Type: TypeText},
				{Name: "date_range_end", Type: TypeText},
				{Name: "region_coverage", Type: TypeText},
				{Name: "notes", Type: TypeText},
			},
		},
		{
			Name:       TableFields,
			PrimaryKey: idKey,
			Columns: []ColumnSpec{
				{Name: "file_id", Type: TypeBigInt, Nullable: notNull(), References: "files(id)"},
				{Name: "ordinal", Type: TypeInt, Nullable: notNull()},
				{Name: "name_ar", Type: TypeText},
				{Name: "name_en", Type: TypeText},
				{Name: "canonical_name", Type: TypeKeyText},
				{Name: "data_type", Type: TypeText},
				{Name: "nullable", Type: TypeInt},
				{Name: "null_count", Type: TypeInt},
				{Name: "distinct_count", Type: TypeInt},
				{Name: "min_value", Type: TypeText},
				{Name: "max_value", Type: TypeText},
				{Name: "sample_values", Type: TypeText},
				{Name: "formatting_notes", Type: TypeText},
			},
		},
		{
			Name:       TableEnumValues,
			PrimaryKey: idKey,
			Columns: []ColumnSpec{
				{Name: "field_id", Type: TypeBigInt, Nullable: notNull(), References: "fields(id)"},
				{Name: "value", Type: TypeText},
				{Name: "count", Type: TypeInt},
				{Name: "percentage", Type: TypeReal},
			},
		},
		{
			Name:       TableSamples,
			PrimaryKey: idKey,
			Columns: []ColumnSpec{
				{Name: "file_id", Type: TypeBigInt, Nullable: notNull(), References: "files(id)"},
				{Name: "row_number", Type: TypeInt, Nullable: notNull()},
				{Name: "raw_line", Type: TypeText},
				{Name: "parsed_json", Type: TypeText},
			},
		},
		{
			Name: TableFieldAliases,
			Columns: []ColumnSpec{
				{Name: "canonical_name", Type: TypeKeyText, Nullable: notNull()},
				{Name: "name_ar", Type: TypeKeyText, Nullable: notNull()},
				{Name: "source", Type: TypeKeyText, Nullable: notNull()},
				{Name: "file_count", Type: TypeInt, Default: "1"},
			},
		},
	}
}

// CatalogIndexes returns the lookup indexes created after a run.
func CatalogIndexes() []IndexSpec {
	return []IndexSpec{
		{Name: "idx_fields_file_id", Table: TableFields, Columns: []string{"file_id"}},
		{Name: "idx_fields_canonical", Table: TableFields, Columns: []string{"canonical_name"}},
		{Name: "idx_enum_field_id", Table: TableEnumValues, Columns: []string{"field_id"}},
		{Name: "idx_samples_file_id", Table: TableSamples, Columns: []string{"file_id"}},
		{Name: "idx_aliases_canonical", Table: TableFieldAliases, Columns: []string{"canonical_name"}},
		{Name: "idx_files_source_cat", Table: TableFiles, Columns: []string{"source", "category"}},
	}
}

// DropOrder returns the catalog table names children first.
func DropOrder() []string {
	ts := CatalogTables()
	out := make([]string, 0, len(ts))
	for i := len(ts) - 1; i >= 0; i-- {
		out = append(out, ts[i].Name)
	}
	return out
}

// Table returns the spec of the named catalog table.
func Table(name string) (TableSpec, bool) {
	for _, t := range CatalogTables() {
		if t.Name == name {
			return t, true
		}
	}
	return TableSpec{}, false
}

// mustTable is Table for names declared in this file.
func mustTable(name string) TableSpec {
	t, ok := Table(name)
	if !ok {
		panic("storage: unknown catalog table " + name)
	}
	return t
}
