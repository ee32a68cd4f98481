package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"registry/internal/catalog"
	"registry/internal/storage"
)

/*
Store implements storage.Store for Postgres.

It provides:
  - DDL rendered from the shared catalog schema
  - One transaction per file, ids returned with INSERT ... RETURNING
  - COPY for the bulk child rows (enum values, samples, field aliases)
*/
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pool for cfg.DSN and checks connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, t := range storage.CatalogTables() {
		q, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (s *Store) Reset(ctx context.Context) error {
	for _, name := range storage.DropOrder() {
		if _, err := s.pool.Exec(ctx, buildDropTableSQL(name)); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
	}
	return s.EnsureSchema(ctx)
}

// SaveFile inserts the file and its fields row by row (their ids are needed
// by the children) and copies enum values and samples in bulk, all inside one
// transaction.
func (s *Store) SaveFile(ctx context.Context, fp *catalog.FileProfile) (int64, error) {
	if fp == nil {
		return 0, fmt.Errorf("postgres: nil file profile")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	// Rollback after Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	var fileID int64
	if err := tx.QueryRow(ctx, buildInsertReturningSQL(storage.TableFiles), storage.FileRow(fp.File)...).Scan(&fileID); err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}

	fieldSQL := buildInsertReturningSQL(storage.TableFields)
	var enumRows [][]any
	for _, f := range fp.Fields {
		var fieldID int64
		if err := tx.QueryRow(ctx, fieldSQL, storage.FieldRow(fileID, f)...).Scan(&fieldID); err != nil {
			return 0, fmt.Errorf("insert field %d %q: %w", f.Ordinal, f.Name, err)
		}
		enumRows = append(enumRows, storage.EnumRows(fieldID, f)...)
	}

	if err := copyRows(ctx, tx, storage.TableEnumValues, enumRows); err != nil {
		return 0, err
	}
	if err := copyRows(ctx, tx, storage.TableSamples, storage.SampleRows(fileID, fp.Samples)); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return fileID, nil
}

func (s *Store) ReplaceFieldAliases(ctx context.Context, aliases []catalog.FieldAlias) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM "+pgIdent(storage.TableFieldAliases)); err != nil {
		return fmt.Errorf("clear field aliases: %w", err)
	}
	if err := copyRows(ctx, tx, storage.TableFieldAliases, storage.AliasRows(aliases)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) CreateIndexes(ctx context.Context) error {
	for _, idx := range storage.CatalogIndexes() {
		if _, err := s.pool.Exec(ctx, buildCreateIndexSQL(idx)); err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

// copyRows streams rows into table with COPY FROM STDIN.
func copyRows(ctx context.Context, tx pgx.Tx, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, storage.Columns(table), pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy %s: %w", table, err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copy %s: wrote %d of %d rows", table, n, len(rows))
	}
	return nil
}

// pgIdent double-quotes an identifier, escaping embedded quotes.
func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// pgType maps a logical column type onto a Postgres type.
func pgType(logical string) (string, error) {
	switch logical {
	case storage.TypeText, storage.TypeKeyText:
		return "TEXT", nil
	case storage.TypeInt:
		return "INTEGER", nil
	case storage.TypeBigInt:
		return "BIGINT", nil
	case storage.TypeReal:
		return "DOUBLE PRECISION", nil
	default:
		return "", fmt.Errorf("postgres: unsupported column type %q", logical)
	}
}

// buildColumnDef renders a single column definition.
func buildColumnDef(c storage.ColumnSpec) (string, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return "", fmt.Errorf("column name must be set")
	}
	typ, err := pgType(c.Type)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(pgIdent(name))
	b.WriteString(" ")
	b.WriteString(typ)
	if !c.IsNullable() {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	// Foreign key references are expressed inline in the column definition.
	if ref := strings.TrimSpace(c.References); ref != "" {
		b.WriteString(" REFERENCES ")
		b.WriteString(ref)
	}
	return b.String(), nil
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	if t.PrimaryKey != nil {
		cols = append(cols, fmt.Sprintf(`%s BIGSERIAL PRIMARY KEY`, pgIdent(t.PrimaryKey.Name)))
	}
	for _, c := range t.Columns {
		def, err := buildColumnDef(c)
		if err != nil {
			return "", fmt.Errorf("table %s: %w", t.Name, err)
		}
		cols = append(cols, def)
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("table %s: no columns", t.Name)
	}

	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s);`, pgIdent(t.Name), strings.Join(cols, ", ")), nil
}

func buildDropTableSQL(table string) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE;`, pgIdent(table))
}

// buildInsertReturningSQL builds a single-row INSERT for a catalog table that
// returns the generated id.
func buildInsertReturningSQL(table string) string {
	cols := storage.Columns(table)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES (")
	for i := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(") RETURNING ")
	b.WriteString(pgIdent("id"))
	return b.String()
}

func buildCreateIndexSQL(idx storage.IndexSpec) string {
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = pgIdent(c)
	}
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s);`, pgIdent(idx.Name), pgIdent(idx.Table), strings.Join(cols, ", "))
}
