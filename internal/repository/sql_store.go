package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// querier is the subset of *sql.DB and *sql.Tx used by the store, so the
// same query code runs inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on top of database/sql.  The same queries
// serve MySQL and SQLite; the Dialect only decides row locking and how
// driver errors are classified.
type SQLStore struct {
	db      *sql.DB
	q       querier
	tx      *sql.Tx
	dialect Dialect
}

// NewSQLStore constructs an SQLStore with the given DB handle.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, q: db, dialect: dialect}
}

// DB exposes the underlying sql.DB for repositories that live outside
// the Store port (users, refresh tokens).
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect reports the SQL flavour of the store.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// InTx begins a transaction, runs fn against a store bound to it and
// commits when fn succeeds.  Any error rolls the transaction back.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", s.dialect.classify(err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&SQLStore{db: s.db, q: tx, tx: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", s.dialect.classify(err))
	}
	committed = true
	return nil
}

// wrap annotates err with the operation and classifies driver errors.
func (s *SQLStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, s.dialect.classify(err))
}

// dbTime scans DATETIME columns from either driver.  MySQL returns
// time.Time with parseTime=true; SQLite may hand back text.
type dbTime struct{ t time.Time }

func (d *dbTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		d.t = time.Time{}
	case time.Time:
		d.t = x.UTC()
	case []byte:
		return d.parse(string(x))
	case string:
		return d.parse(x)
	default:
		return fmt.Errorf("unsupported time value %T", v)
	}
	return nil
}

func (d *dbTime) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02T15:04:05Z", "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullUint(p *uint64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func uintPtr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}
