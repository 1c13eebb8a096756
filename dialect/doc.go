// Package dialect defines the dialect names and the minimal connection
// capability used by tabula.
//
// # Supported Dialects
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// Postgres is the primary target. MySQL and SQLite are supported by the SQL
// compiler for the scalar column types; collection (array) columns are
// Postgres only.
//
// # Driver Interface
//
// The client talks to the database only through these interfaces:
//
//	type Querier interface {
//	    Query(ctx context.Context, query string, args []any) (Rows, error)
//	    Exec(ctx context.Context, query string, args []any) error
//	}
//
//	type Conn interface {
//	    Querier
//	    Release() error
//	    Discard() error
//	}
//
//	type Driver interface {
//	    Querier
//	    Acquire(ctx context.Context) (Conn, error)
//	    Dialect() string
//	    Close() error
//	}
//
// Transactions are issued as plain BEGIN/COMMIT/ROLLBACK statements on an
// acquired Conn, so any pool that can hand out a dedicated session works.
//
// # Sub-packages
//
//   - dialect/sql: the SQL compiler and a database/sql based Driver
//   - dialect/sql/sqlgraph: classification of constraint violation errors
//   - dialect/pgxdriver: a Driver backed by pgx/v5 pgxpool
package dialect
