package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"registry/internal/catalog"
	"registry/internal/storage"
)

// Store implements storage.Store for SQLite using the pure-Go modernc driver.
//
// The database is the default catalog destination: a single file next to the
// scanned data. All writes go through one connection, which SQLite serializes
// anyway.
type Store struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens the database file named by cfg.DSN and verifies it with a ping.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: empty DSN")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

// EnsureSchema creates every catalog table that does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, t := range storage.CatalogTables() {
		q, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// Reset drops the catalog tables, children first, and recreates them.
func (s *Store) Reset(ctx context.Context) error {
	for _, name := range storage.DropOrder() {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(name)); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
	}
	return s.EnsureSchema(ctx)
}

// SaveFile writes the file, its fields, enum entries and samples in one
// transaction. Generated ids come from LastInsertId.
func (s *Store) SaveFile(ctx context.Context, fp *catalog.FileProfile) (id int64, err error) {
	if fp == nil {
		return 0, fmt.Errorf("sqlite: nil file profile")
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

	res, err := tx.ExecContext(ctx, buildInsertSQL(storage.TableFiles), storage.FileRow(fp.File)...)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	fieldStmt, err := tx.PrepareContext(ctx, buildInsertSQL(storage.TableFields))
	if err != nil {
		return 0, err
	}
	defer fieldStmt.Close()

	enumStmt, err := tx.PrepareContext(ctx, buildInsertSQL(storage.TableEnumValues))
	if err != nil {
		return 0, err
	}
	defer enumStmt.Close()

	for _, f := range fp.Fields {
		res, err := fieldStmt.ExecContext(ctx, storage.FieldRow(fileID, f)...)
		if err != nil {
			return 0, fmt.Errorf("insert field %d %q: %w", f.Ordinal, f.Name, err)
		}
		fieldID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		for _, row := range storage.EnumRows(fieldID, f) {
			if _, err := enumStmt.ExecContext(ctx, row...); err != nil {
				return 0, fmt.Errorf("insert enum value of field %d: %w", f.Ordinal, err)
			}
		}
	}

	if err := execRows(ctx, tx, storage.TableSamples, storage.SampleRows(fileID, fp.Samples)); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return fileID, nil
}

// ReplaceFieldAliases clears field_aliases and inserts aliases in one
// transaction.
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

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+sqlIdent(storage.TableFieldAliases)); err != nil {
		return fmt.Errorf("clear field aliases: %w", err)
	}
	if err := execRows(ctx, tx, storage.TableFieldAliases, storage.AliasRows(aliases)); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateIndexes creates the catalog lookup indexes if missing.
func (s *Store) CreateIndexes(ctx context.Context) error {
	for _, idx := range storage.CatalogIndexes() {
		if _, err := s.db.ExecContext(ctx, buildCreateIndexSQL(idx)); err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

// execRows inserts rows into table with a single prepared statement.
func execRows(ctx context.Context, tx *sql.Tx, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, buildInsertSQL(table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", table, i, err)
		}
	}
	return nil
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// sqliteType maps a logical column type onto SQLite's type affinities.
func sqliteType(logical string) (string, error) {
	switch logical {
	case storage.TypeText, storage.TypeKeyText:
		return "TEXT", nil
	case storage.TypeInt, storage.TypeBigInt:
		return "INTEGER", nil
	case storage.TypeReal:
		return "REAL", nil
	default:
		return "", fmt.Errorf("sqlite: unsupported column type %q", logical)
	}
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string
	if t.PrimaryKey != nil {
		// "INTEGER PRIMARY KEY" is special in sqlite: it becomes the rowid and auto-generates values.
		parts = append(parts, fmt.Sprintf(`%s INTEGER PRIMARY KEY AUTOINCREMENT`, sqlIdent(t.PrimaryKey.Name)))
	}

	for _, c := range t.Columns {
		typ, err := sqliteType(c.Type)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", t.Name, c.Name, err)
		}
		col := fmt.Sprintf("%s %s", sqlIdent(c.Name), typ)
		if !c.IsNullable() {
			col += " NOT NULL"
		}
		if c.Default != "" {
			col += " DEFAULT " + c.Default
		}
		if c.References != "" {
			col += " REFERENCES " + c.References
		}
		parts = append(parts, col)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("table %s: no columns", t.Name)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", sqlIdent(t.Name), strings.Join(parts, ",\n  ")), nil
}

// buildInsertSQL returns a single-row INSERT for every insertable column of a
// catalog table.
func buildInsertSQL(table string) string {
	cols := storage.Columns(table)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = sqlIdent(c)
	}
	ph := strings.TrimRight(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", sqlIdent(table), strings.Join(quoted, ", "), ph)
}

func buildCreateIndexSQL(idx storage.IndexSpec) string {
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = sqlIdent(c)
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", sqlIdent(idx.Name), sqlIdent(idx.Table), strings.Join(cols, ", "))
}
