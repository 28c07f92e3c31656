package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/newsroom-rundown/internal/repository"
)

//go:embed schema_mysql.sql
var schemaMySQL string

//go:embed schema_sqlite.sql
var schemaSQLite string

// SchemaVersion is the current schema version. Bump this when the schema changes.
const SchemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Migrate creates any missing tables for the dialect and records the
// schema version.  It is idempotent; a database written by another
// schema version is rejected with ErrSchemaMismatch.
func Migrate(ctx context.Context, db *sql.DB, dialect repository.Dialect) error {
	var schema string
	switch dialect {
	case repository.DialectMySQL:
		schema = schemaMySQL
	case repository.DialectSQLite:
		schema = schemaSQLite
	default:
		return fmt.Errorf("unknown dialect %q", dialect)
	}

	for _, stmt := range splitStatements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	var (
		rows    int
		version sql.NullInt64
	)
	if err := db.QueryRowContext(ctx, "SELECT COUNT(1), MAX(version) FROM schema_version").Scan(&rows, &version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if rows == 0 {
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	}
	if version.Int64 != SchemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version.Int64, SchemaVersion)
	}
	return nil
}

// splitStatements breaks a schema file on ';'.  The schema files contain
// no string literals holding semicolons.
func splitStatements(schema string) []string {
	parts := strings.Split(schema, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
