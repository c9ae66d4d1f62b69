// Package repository holds the MySQL data access layer. Sentinel errors
// defined here let handlers distinguish failure scenarios without looking
// at driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrConflict signals that an operation cannot proceed due to existing
	// state. Handlers translate it into 409.
	ErrConflict = errors.New("conflict")

	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	ErrTokenInvalid   = errors.New("token invalid")

	ErrMovieNotFound = errors.New("movie not found")
	ErrHallNotFound  = errors.New("hall not found")
	ErrHallExists    = errors.New("hall already exists")
	// ErrHallInUse wraps ErrConflict: a hall referenced by sessions cannot
	// be deleted.
	ErrHallInUse = conflictErr("hall has sessions")

	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists wraps ErrConflict: another session already occupies
	// the same movie, hall and start time.
	ErrSessionExists = conflictErr("session slot already taken")
)

type conflict struct{ msg string }

func (c conflict) Error() string        { return c.msg }
func (c conflict) Is(target error) bool { return target == ErrConflict }

func conflictErr(msg string) error { return conflict{msg: msg} }

// MySQL server error numbers used by the repositories.
const (
	errDuplicateEntry   = 1062
	errRowIsReferenced  = 1451
	errRowIsReferenced2 = 1217
	errNoReferencedRow  = 1452
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlErrNumber(err) == errDuplicateEntry }

func isReferenced(err error) bool {
	n := mysqlErrNumber(err)
	return n == errRowIsReferenced || n == errRowIsReferenced2
}

func isMissingParent(err error) bool { return mysqlErrNumber(err) == errNoReferencedRow }

// DBTX is satisfied by both *sql.DB and *sql.Tx so that query helpers run
// either standalone or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
