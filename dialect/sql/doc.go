// Package sql compiles table definitions and table operations into SQL
// text with positional arguments, and adapts database/sql to the
// dialect.Driver interface.
//
// # Compiling
//
// A Builder is bound to one dialect. Package-level functions use Postgres:
//
//	q, err := sql.Insert(users, []string{"email", "nickname"}, []any{"a@b.c", nil})
//	// INSERT INTO users (email, nickname) VALUES ($1, $2)
//
//	q, err = sql.Dialect(dialect.MySQL).Select(users, []string{"id"}, []string{"email"}, []any{"a@b.c"})
//	// SELECT id FROM users WHERE (email=?);
//
// A Query is immutable. Besides the SQL text and arguments it records the
// columns of the rows it returns, the table it operates on and its kind.
// Identifiers are not quoted; names are validated by the schema package.
//
// # Drivers
//
// Open and OpenDB wrap a *sql.DB. Slices bound to Postgres statements are
// sent as arrays through lib/pq. StatsDriver and DebugDriver wrap any
// dialect.Driver with statistics and logging.
package sql
