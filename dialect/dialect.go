package dialect

import "context"

// Dialect names for the supported SQL backends.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// Valid reports whether name is one of the supported dialects.
func Valid(name string) bool {
	switch name {
	case Postgres, MySQL, SQLite:
		return true
	}
	return false
}

// Rows is the cursor returned by Querier.Query.
// *sql.Rows satisfies it directly.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Querier executes statements with positional arguments.
type Querier interface {
	// Query executes a statement and returns its rows. Statements that
	// produce no rows return an empty cursor.
	Query(ctx context.Context, query string, args []any) (Rows, error)
	// Exec executes a statement, discarding any rows.
	Exec(ctx context.Context, query string, args []any) error
}

// Conn is a single connection checked out of the pool.
// Every statement issued on it runs on the same session, which is what
// BEGIN/COMMIT/ROLLBACK rely on.
type Conn interface {
	Querier
	// Release returns the connection to the pool.
	Release() error
	// Discard closes the connection without returning it to the pool. It
	// is used in place of Release when the session may still be inside a
	// transaction.
	Discard() error
}

// Driver is the minimal capability the client needs from a connection pool.
type Driver interface {
	Querier
	// Acquire checks a connection out of the pool.
	Acquire(ctx context.Context) (Conn, error)
	// Dialect returns the dialect name of the driver.
	Dialect() string
	// Close drains and closes the pool.
	Close() error
}
