// Package sqlgraph classifies errors returned by SQL drivers.
package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ConstraintKind is the kind of a violated constraint.
type ConstraintKind uint8

// Constraint kinds.
const (
	Unique ConstraintKind = iota + 1
	ForeignKey
	Check
	NotNull
)

// String returns the name of the constraint kind.
func (k ConstraintKind) String() string {
	switch k {
	case Unique:
		return "unique"
	case ForeignKey:
		return "foreign key"
	case Check:
		return "check"
	case NotNull:
		return "not null"
	}
	return "unknown"
}

// ConstraintError reports a database constraint violation.
type ConstraintError struct {
	Kind ConstraintKind
	// Constraint is the name of the violated constraint, when the driver
	// reports it.
	Constraint string
	Err        error
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return e.Kind.String() + " constraint violation: " + e.Err.Error()
}

// Unwrap returns the driver error.
func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Postgres SQLSTATE codes for constraint violations (Class 23).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlColumnCannotBeNull     = 1048
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// SQLite extended result codes for constraint violations.
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintNotNull    = 1299
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// sqliteCoder is implemented by modernc.org/sqlite errors.
type sqliteCoder interface {
	Code() int
}

var (
	pgKinds = map[string]ConstraintKind{
		pgNotNullViolation:    NotNull,
		pgForeignKeyViolation: ForeignKey,
		pgUniqueViolation:     Unique,
		pgCheckViolation:      Check,
	}
	mysqlKinds = map[uint16]ConstraintKind{
		mysqlColumnCannotBeNull:     NotNull,
		mysqlDuplicateEntry:         Unique,
		mysqlForeignKeyParent:       ForeignKey,
		mysqlForeignKeyChild:        ForeignKey,
		mysqlCheckConstraintViolate: Check,
	}
	sqliteKinds = map[int]ConstraintKind{
		sqliteConstraintCheck:      Check,
		sqliteConstraintForeignKey: ForeignKey,
		sqliteConstraintNotNull:    NotNull,
		sqliteConstraintPrimaryKey: Unique,
		sqliteConstraintUnique:     Unique,
	}
	// Fallback to string matching for drivers without typed errors.
	messageKinds = []struct {
		kind ConstraintKind
		subs []string
	}{
		{Unique, []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed", "PRIMARY KEY constraint failed"}},
		{ForeignKey, []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"}},
		{Check, []string{"Error 3819", "violates check constraint", "CHECK constraint failed"}},
		{NotNull, []string{"Error 1048", "violates not-null constraint", "NOT NULL constraint failed"}},
	}
)

// Classify returns the constraint violation reported by err, or nil if err
// is not a constraint violation.
func Classify(err error) *ConstraintError {
	if err == nil {
		return nil
	}
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if k, ok := pgKinds[pgErr.Code]; ok {
			return &ConstraintError{Kind: k, Constraint: pgErr.ConstraintName, Err: err}
		}
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if k, ok := pgKinds[string(pqErr.Code)]; ok {
			return &ConstraintError{Kind: k, Constraint: pqErr.Constraint, Err: err}
		}
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if k, ok := mysqlKinds[myErr.Number]; ok {
			return &ConstraintError{Kind: k, Err: err}
		}
		return nil
	}
	if e, ok := asError[sqliteCoder](err); ok {
		if k, ok := sqliteKinds[e.Code()]; ok {
			return &ConstraintError{Kind: k, Err: err}
		}
	}
	msg := err.Error()
	for _, m := range messageKinds {
		if containsAny(msg, m.subs...) {
			return &ConstraintError{Kind: m.kind, Err: err}
		}
	}
	return nil
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return Classify(err) != nil
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return is(err, Unique)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return is(err, ForeignKey)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool {
	return is(err, Check)
}

// IsNotNullConstraintError reports if the error resulted from inserting NULL into a NOT NULL column.
func IsNotNullConstraintError(err error) bool {
	return is(err, NotNull)
}

func is(err error, k ConstraintKind) bool {
	ce := Classify(err)
	return ce != nil && ce.Kind == k
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
