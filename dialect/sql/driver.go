package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/tabula/dialect"
)

// Driver is a dialect.Driver implementation for database/sql.
type Driver struct {
	Conn
	db *sql.DB
}

// NewDriver creates a new Driver with the given database and dialect.
func NewDriver(dialect string, db *sql.DB) *Driver {
	return &Driver{Conn: Conn{db, dialect}, db: db}
}

// Open wraps the database/sql.Open method and returns a Driver. The driver
// name is the dialect: "postgres" (lib/pq), "mysql" or "sqlite" (modernc).
func Open(dialect, source string) (*Driver, error) {
	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(dialect, db), nil
}

// OpenDB wraps the given database/sql.DB with a Driver.
func OpenDB(dialect string, db *sql.DB) *Driver {
	return NewDriver(dialect, db)
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Dialect implements the dialect.Driver interface.
func (d *Driver) Dialect() string {
	// Registered driver names may carry a suffix, e.g. "sqlite3".
	for _, name := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres} {
		if strings.HasPrefix(d.dialect, name) {
			return name
		}
	}
	return d.dialect
}

// Acquire checks a connection out of the pool. Statements on the returned
// connection run on the same session until it is released.
func (d *Driver) Acquire(ctx context.Context) (dialect.Conn, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: acquire: %w", err)
	}
	return &PinnedConn{Conn: Conn{c, d.dialect}, conn: c}, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error { return d.db.Close() }

// PinnedConn is a connection checked out of the pool.
type PinnedConn struct {
	Conn
	conn *sql.Conn
}

// Release returns the connection to the pool.
func (c *PinnedConn) Release() error {
	return c.conn.Close()
}

// Discard closes the underlying driver connection. database/sql drops a
// connection once it reports driver.ErrBadConn.
func (c *PinnedConn) Discard() error {
	err := c.conn.Raw(func(any) error { return driver.ErrBadConn })
	if errors.Is(err, driver.ErrBadConn) {
		return nil
	}
	return err
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.Querier given ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
}

// Exec implements the dialect.Querier interface.
func (c Conn) Exec(ctx context.Context, query string, args []any) error {
	if _, err := c.ExecContext(ctx, query, c.bind(args)...); err != nil {
		return fmt.Errorf("dialect/sql: exec: %w", err)
	}
	return nil
}

// Query implements the dialect.Querier interface.
func (c Conn) Query(ctx context.Context, query string, args []any) (dialect.Rows, error) {
	rows, err := c.QueryContext(ctx, query, c.bind(args)...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	return rows, nil
}

// bind prepares arguments for the underlying driver. lib/pq has no native
// support for Go slices, so they are sent as Postgres arrays.
func (c Conn) bind(args []any) []any {
	if c.dialect != dialect.Postgres {
		return args
	}
	var out []any
	for i, a := range args {
		if _, ok := a.(driver.Valuer); ok {
			continue
		}
		if rv := reflect.ValueOf(a); rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
			continue
		}
		if out == nil {
			out = append([]any(nil), args...)
		}
		out[i] = pq.Array(a)
	}
	if out == nil {
		return args
	}
	return out
}

var (
	_ dialect.Driver = (*Driver)(nil)
	_ dialect.Conn   = (*PinnedConn)(nil)
)
