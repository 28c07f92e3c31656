package repository

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect names the SQL flavour behind an SQLStore.
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// MySQL error numbers that map onto ErrConflict.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// SQLite result codes.  Extended codes carry the primary code in the low byte.
const (
	sqliteBusy                 = 5
	sqliteLocked               = 6
	sqliteConstraint           = 19
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// lockSuffix is appended to a SELECT to take a row lock for the rest of
// the transaction.  SQLite has no row locks; its writers are serialised
// by the connection setup in database.OpenSQLite.
func (d Dialect) lockSuffix() string {
	if d == DialectMySQL {
		return " FOR UPDATE"
	}
	return ""
}

// classify wraps driver errors that have a meaning for callers into
// ErrConflict or ErrUnavailable.  Other errors are returned unchanged.
func (d Dialect) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry, mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return err
	}

	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		code := coder.Code()
		switch {
		case code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey,
			code == sqliteConstraint && strings.Contains(err.Error(), "UNIQUE"):
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case code&0xff == sqliteBusy || code&0xff == sqliteLocked:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "Duplicate entry"):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case strings.Contains(msg, "SQLITE_BUSY"), strings.Contains(msg, "database is locked"):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// isUniqueViolation reports whether err came from a unique key.
func (d Dialect) isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		c := coder.Code()
		return c == sqliteConstraintUnique || c == sqliteConstraintPrimaryKey ||
			(c == sqliteConstraint && strings.Contains(err.Error(), "UNIQUE"))
	}
	msg := err.Error()
	return strings.Contains(msg, "1062") || strings.Contains(msg, "UNIQUE constraint failed")
}
