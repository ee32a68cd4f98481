package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"registry/internal/catalog"
	"registry/internal/storage"
)

// SQL Server accepts at most 2100 parameters per statement and 1000 rows per
// VALUES list.
const (
	maxParams    = 2000
	maxValueRows = 1000
)

// Store implements storage.Store for Microsoft SQL Server.
//
// Generated ids are read back with OUTPUT INSERTED.id; child rows are written
// with chunked multi-row INSERT ... VALUES statements. Every DDL statement is
// guarded with OBJECT_ID / sys.indexes checks so EnsureSchema and
// CreateIndexes are idempotent.
type Store struct {
	db dbConn
}

func init() {
	storage.Register("mssql", New)
}

// New opens cfg.DSN with the "sqlserver" driver and validates connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	raw.SetMaxOpenConns(8)
	raw.SetMaxIdleConns(8)

	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Store{db: &sqlDB{db: raw}}, nil
}

// Close releases database resources held by this store.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, t := range storage.CatalogTables() {
		q, err := buildCreateSQL(t)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (s *Store) Reset(ctx context.Context) error {
	for _, name := range storage.DropOrder() {
		if _, err := s.db.ExecContext(ctx, buildDropSQL(name)); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
	}
	return s.EnsureSchema(ctx)
}

// SaveFile writes one file and everything profiled from it in a single
// transaction.
func (s *Store) SaveFile(ctx context.Context, fp *catalog.FileProfile) (id int64, err error) {
	if fp == nil {
		return 0, fmt.Errorf("mssql: nil file profile")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id, err = saveFileTx(ctx, tx, fp)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func saveFileTx(ctx context.Context, tx txConn, fp *catalog.FileProfile) (int64, error) {
	var fileID int64
	q, args := buildInsertOutputSQL(storage.TableFiles, storage.FileRow(fp.File))
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&fileID); err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}

	var enumRows [][]any
	for _, f := range fp.Fields {
		var fieldID int64
		q, args := buildInsertOutputSQL(storage.TableFields, storage.FieldRow(fileID, f))
		if err := tx.QueryRowContext(ctx, q, args...).Scan(&fieldID); err != nil {
			return 0, fmt.Errorf("insert field %d %q: %w", f.Ordinal, f.Name, err)
		}
		enumRows = append(enumRows, storage.EnumRows(fieldID, f)...)
	}

	if err := insertChunked(ctx, tx, storage.TableEnumValues, enumRows); err != nil {
		return 0, err
	}
	if err := insertChunked(ctx, tx, storage.TableSamples, storage.SampleRows(fileID, fp.Samples)); err != nil {
		return 0, err
	}
	return fileID, nil
}

func (s *Store) ReplaceFieldAliases(ctx context.Context, aliases []catalog.FieldAlias) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+mssqlIdent(storage.TableFieldAliases)); err != nil {
		return fmt.Errorf("clear field aliases: %w", err)
	}
	if err := insertChunked(ctx, tx, storage.TableFieldAliases, storage.AliasRows(aliases)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) CreateIndexes(ctx context.Context) error {
	for _, idx := range storage.CatalogIndexes() {
		if _, err := s.db.ExecContext(ctx, buildCreateIndexSQL(idx)); err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

// insertChunked inserts rows with as few statements as the parameter and row
// limits allow.
func insertChunked(ctx context.Context, tx txConn, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	columns := storage.Columns(table)

	per := chunkSize(len(columns))
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		q, args := buildBulkInsertSQL(table, columns, rows[start:end])
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert %s rows %d-%d: %w", table, start, end-1, err)
		}
	}
	return nil
}

// chunkSize returns the rows per statement for a table of ncols columns.
func chunkSize(ncols int) int {
	n := maxParams / max(1, ncols)
	if n > maxValueRows {
		n = maxValueRows
	}
	if n < 1 {
		n = 1
	}
	return n
}

// mssqlType maps a logical column type onto a SQL Server type. Indexed text
// must fit an index key, so it is bounded.
func mssqlType(logical string) (string, error) {
	switch logical {
	case storage.TypeText:
		return "NVARCHAR(MAX)", nil
	case storage.TypeKeyText:
		return "NVARCHAR(450)", nil
	case storage.TypeInt:
		return "INT", nil
	case storage.TypeBigInt:
		return "BIGINT", nil
	case storage.TypeReal:
		return "FLOAT", nil
	default:
		return "", fmt.Errorf("mssql: unsupported column type %q", logical)
	}
}

// buildCreateSQL returns the guarded CREATE TABLE statement for t.
func buildCreateSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("mssql: table name is empty")
	}

	var parts []string
	if t.PrimaryKey != nil {
		if strings.TrimSpace(t.PrimaryKey.Name) == "" {
			return "", fmt.Errorf("mssql: primary key name is empty")
		}
		parts = append(parts, fmt.Sprintf("%s BIGINT IDENTITY(1,1) PRIMARY KEY", mssqlIdent(t.PrimaryKey.Name)))
	}
	for _, c := range t.Columns {
		def, err := mssqlColumnDef(c)
		if err != nil {
			return "", fmt.Errorf("%s: %w", t.Name, err)
		}
		parts = append(parts, def)
	}

	return wrapCreateIfMissing(t.Name, strings.Join(parts, ", ")), nil
}

// wrapCreateIfMissing wraps a CREATE TABLE statement in an OBJECT_ID guard.
func wrapCreateIfMissing(tableName string, innerDefs string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		tableName,
		mssqlTableIdent(tableName),
		innerDefs,
	)
}

func buildDropSQL(tableName string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;",
		tableName,
		mssqlTableIdent(tableName),
	)
}

func buildCreateIndexSQL(idx storage.IndexSpec) string {
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = mssqlIdent(c)
	}
	return fmt.Sprintf(
		"IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'%s' AND object_id = OBJECT_ID(N'%s')) CREATE INDEX %s ON %s (%s);",
		idx.Name, idx.Table, mssqlIdent(idx.Name), mssqlTableIdent(idx.Table), strings.Join(cols, ", "),
	)
}

// mssqlColumnDef builds a SQL Server column definition from storage.ColumnSpec.
//
// It respects nullability and attaches a raw REFERENCES clause if provided.
func mssqlColumnDef(c storage.ColumnSpec) (string, error) {
	if strings.TrimSpace(c.Name) == "" {
		return "", fmt.Errorf("mssql: column name is empty")
	}
	typ, err := mssqlType(c.Type)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", c.Name, err)
	}

	var b strings.Builder
	b.WriteString(mssqlIdent(c.Name))
	b.WriteString(" ")
	b.WriteString(typ)
	if c.IsNullable() {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	if strings.TrimSpace(c.References) != "" {
		b.WriteString(" REFERENCES ")
		b.WriteString(c.References)
	}
	return b.String(), nil
}

// buildInsertOutputSQL builds a single-row INSERT that returns the generated
// id through OUTPUT INSERTED.
func buildInsertOutputSQL(table string, row []any) (string, []any) {
	columns := storage.Columns(table)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") OUTPUT INSERTED.")
	b.WriteString(mssqlIdent("id"))
	b.WriteString(" VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "@p%d", i+1)
	}
	b.WriteString(")")

	return b.String(), row[:len(columns)]
}

// buildBulkInsertSQL builds a single INSERT ... VALUES statement for all rows.
func buildBulkInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("@p%d", p))
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	return b.String(), args
}

// mssqlIdent returns a bracket-quoted identifier, escaping ']' as ']]'.
func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent returns a bracket-quoted identifier for schema-qualified names.
//
// Example:
//
//	"dbo.files" -> [dbo].[files]
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

// ---- database/sql seam types ----

// dbConn is a small interface over *sql.DB used to make this package testable.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error)
	Close() error
}

// txConn is a small interface over *sql.Tx used for testability.
type txConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) rowScanner
	Commit() error
	Rollback() error
}

// rowScanner is a narrow adapter over *sql.Row.Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

// sqlDB wraps *sql.DB to implement dbConn.
type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (s *sqlDB) Close() error { return s.db.Close() }

// sqlTx wraps *sql.Tx to implement txConn.
type sqlTx struct {
	tx *sql.Tx
}

func (s *sqlTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.tx.ExecContext(ctx, query, args...)
}

func (s *sqlTx) QueryRowContext(ctx context.Context, query string, args ...any) rowScanner {
	return s.tx.QueryRowContext(ctx, query, args...)
}

func (s *sqlTx) Commit() error { return s.tx.Commit() }

func (s *sqlTx) Rollback() error { return s.tx.Rollback() }

var (
	_ dbConn = (*sqlDB)(nil)
	_ txConn = (*sqlTx)(nil)
)
