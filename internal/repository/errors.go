// Package repository holds the data access layer. Repositories speak plain
// SQL through database/sql; integrity rules (unique slugs, cascades,
// set-null) are enforced by the schema and surface here as the sentinel
// errors below.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup, update or delete matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique key (a url slug) is already taken.
var ErrDuplicate = errors.New("duplicate")

// ErrForeignKey is returned when a row references a record that does not
// exist, e.g. a rating for a missing star or movie.
var ErrForeignKey = errors.New("foreign key violation")

// ErrInvalid is returned when the database rejects a value (CHECK
// constraint, out of range, NULL in a NOT NULL column).
var ErrInvalid = errors.New("invalid value")

// ErrConflict is returned when an operation contradicts existing state, such
// as replying to a review of a different movie.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers mapped by translate.
const (
	errDupEntry          = 1062
	errNoReferencedRow   = 1452
	errNoReferencedRowV1 = 1216
	errRowIsReferenced   = 1451
	errRowIsReferencedV1 = 1217
	errBadNull           = 1048
	errOutOfRange        = 1264
	errCheckViolated     = 3819
	errLockDeadlock      = 1213
)

// translate maps driver errors onto the package sentinels. The driver
// message is kept so logs still show which key failed.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDupEntry:
			return fmt.Errorf("%w: %s", ErrDuplicate, me.Message)
		case errNoReferencedRow, errNoReferencedRowV1:
			return fmt.Errorf("%w: %s", ErrForeignKey, me.Message)
		case errRowIsReferenced, errRowIsReferencedV1:
			return fmt.Errorf("%w: %s", ErrConflict, me.Message)
		case errBadNull, errOutOfRange, errCheckViolated:
			return fmt.Errorf("%w: %s", ErrInvalid, me.Message)
		}
	}
	return err
}

// isDeadlock reports whether InnoDB rolled the statement back to break a
// lock cycle. Such statements are safe to retry.
func isDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errLockDeadlock
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, committing when fn succeeds.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

// mustAffect turns a zero-row update or delete into ErrNotFound. The DSN sets
// clientFoundRows so an update that leaves values unchanged still counts.
func mustAffect(res sql.Result, what string, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// notFound wraps ErrNotFound with the record kind for lookups.
func notFound(err error, what string, key any) error {
	err = translate(err)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %v: %w", what, key, ErrNotFound)
	}
	return err
}
