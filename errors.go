package tabula

import (
	"errors"
	"fmt"

	"github.com/syssam/tabula/dialect/sql/sqlgraph"
	"github.com/syssam/tabula/graph"
	"github.com/syssam/tabula/schema"
)

type (
	// SchemaError reports a malformed table or column definition, or an
	// operation naming columns the table does not have.
	SchemaError = schema.SchemaError
	// CircularDependencyError reports tables whose foreign keys form a cycle.
	CircularDependencyError = graph.CircularDependencyError
	// ConstraintError reports a constraint violation classified from a
	// driver error.
	ConstraintError = sqlgraph.ConstraintError
)

// Standard sentinel errors.
var (
	// ErrInvalidSchema is matched by every SchemaError.
	ErrInvalidSchema = schema.ErrInvalidSchema

	// ErrTxDone is returned by Tx.Query once the transaction has been
	// committed or rolled back.
	ErrTxDone = errors.New("tabula: transaction has already been committed or rolled back")

	// ErrClientClosed is returned by every operation of a closed Client.
	ErrClientClosed = errors.New("tabula: client is closed")
)

// SQLError wraps an error returned by the driver while executing a statement.
type SQLError struct {
	SQL  string // Statement that failed
	Args []any  // Its arguments
	Err  error  // Underlying driver error
}

// Error returns the error string.
func (e *SQLError) Error() string {
	return fmt.Sprintf("tabula: executing %q: %v", e.SQL, e.Err)
}

// Unwrap returns the underlying error.
func (e *SQLError) Unwrap() error {
	return e.Err
}

// IsSQLError returns true if the error is a SQLError.
func IsSQLError(err error) bool {
	if err == nil {
		return false
	}
	var e *SQLError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Error returned by ROLLBACK
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("tabula: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// IsSchemaError returns true if the error is a SchemaError.
func IsSchemaError(err error) bool {
	return schema.IsSchemaError(err)
}

// IsCircularDependency returns true if the error is a CircularDependencyError.
func IsCircularDependency(err error) bool {
	if err == nil {
		return false
	}
	var e *CircularDependencyError
	return errors.As(err, &e)
}

// IsConstraintError returns true if the error resulted from a database
// constraint violation.
func IsConstraintError(err error) bool {
	return sqlgraph.IsConstraintError(err)
}

// IsUniqueViolation returns true if the error resulted from a unique or
// primary key violation.
func IsUniqueViolation(err error) bool {
	return sqlgraph.IsUniqueConstraintError(err)
}

// IsForeignKeyViolation returns true if the error resulted from a foreign
// key violation.
func IsForeignKeyViolation(err error) bool {
	return sqlgraph.IsForeignKeyConstraintError(err)
}

// IsCheckViolation returns true if the error resulted from a check
// constraint violation.
func IsCheckViolation(err error) bool {
	return sqlgraph.IsCheckConstraintError(err)
}

// IsNotNullViolation returns true if the error resulted from a NULL stored
// in a NOT NULL column.
func IsNotNullViolation(err error) bool {
	return sqlgraph.IsNotNullConstraintError(err)
}
