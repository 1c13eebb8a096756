package sql

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula/dialect"
)

func TestOpenDB(t *testing.T) {
	for _, d := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLite} {
		t.Run(d, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(d, db)
			assert.NotNil(t, drv)
			assert.Equal(t, d, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("query_with_args", func(t *testing.T) {
		mock.ExpectQuery("SELECT name FROM users WHERE \\(id=\\$1\\);").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice").AddRow(nil))

		rows, err := drv.Query(context.Background(), "SELECT name FROM users WHERE (id=$1);", []any{1})
		require.NoError(t, err)
		cols, err := rows.Columns()
		require.NoError(t, err)
		assert.Equal(t, []string{"name"}, cols)
		var names []any
		for rows.Next() {
			var name any
			require.NoError(t, rows.Scan(&name))
			names = append(names, name)
		}
		require.NoError(t, rows.Err())
		require.NoError(t, rows.Close())
		assert.Len(t, names, 2)
		assert.Nil(t, names[1])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_error", func(t *testing.T) {
		expectedErr := errors.New("database error")
		mock.ExpectQuery("SELECT").WillReturnError(expectedErr)

		_, err := drv.Query(context.Background(), "SELECT", nil)
		require.ErrorIs(t, err, expectedErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("UPDATE users SET name=\\$1 WHERE id=\\$2").
		WithArgs("Alice", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, drv.Exec(context.Background(), "UPDATE users SET name=$1 WHERE id=$2", []any{"Alice", 1}))

	expectedErr := errors.New("constraint violation")
	mock.ExpectExec("DELETE").WillReturnError(expectedErr)
	err = drv.Exec(context.Background(), "DELETE FROM users;", nil)
	require.ErrorIs(t, err, expectedErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverAcquire(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)
	mock.ExpectExec("BEGIN").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM users").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	conn, err := drv.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Exec(ctx, "BEGIN", nil))
	rows, err := conn.Query(ctx, "SELECT id FROM users;", nil)
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	require.NoError(t, conn.Exec(ctx, "COMMIT", nil))
	require.NoError(t, conn.Release())
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectClose()
	require.NoError(t, drv.Close())
	_, err = drv.Acquire(ctx)
	assert.Error(t, err)
}

func TestPinnedConnDiscard(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)
	mock.ExpectExec("BEGIN").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	ctx := context.Background()
	conn, err := drv.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Exec(ctx, "BEGIN", nil))
	require.NoError(t, conn.Discard())
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Zero(t, db.Stats().OpenConnections)
	assert.ErrorIs(t, conn.Release(), sql.ErrConnDone)
}

func TestBind(t *testing.T) {
	pg := Conn{dialect: dialect.Postgres}
	args := []any{1, "a", []byte("raw"), []int64{1, 2}, []string{"x"}, nil, pq.Array([]bool{true})}
	got := pg.bind(args)
	assert.Equal(t, 1, got[0])
	assert.Equal(t, []byte("raw"), got[2])
	assert.Equal(t, pq.Array([]int64{1, 2}), got[3])
	assert.Equal(t, pq.Array([]string{"x"}), got[4])
	assert.Nil(t, got[5])
	// The caller's slice is left untouched.
	assert.Equal(t, []int64{1, 2}, args[3])

	scalars := []any{1, "a"}
	assert.Equal(t, scalars, pg.bind(scalars))
	my := Conn{dialect: dialect.MySQL}
	assert.Equal(t, args, my.bind(args))
}

func TestEscapeStringValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no_escaping_needed", "hello", "hello"},
		{"single_quote", "it's", "it''s"},
		{"backslash", `path\to\file`, `path\\to\\file`},
		{"both_quote_and_backslash", `it's a \test`, `it''s a \\test`},
		{"sql_injection_attempt", "'; DROP TABLE users; --", "''; DROP TABLE users; --"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeStringValue(tt.input))
		})
	}
}

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []SlowQuery
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(-1),
		WithSlowQueryHook(func(_ context.Context, q SlowQuery) {
			slow = append(slow, q)
		}),
	)
	ctx := context.Background()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("DELETE").WillReturnError(errors.New("boom"))
	mock.ExpectExec("BEGIN").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ROLLBACK").WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := drv.Query(ctx, "SELECT 1", nil)
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	require.Error(t, drv.Exec(ctx, "DELETE FROM t WHERE (id=$1);", []any{7}))
	conn, err := drv.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Exec(ctx, "BEGIN", nil))
	require.NoError(t, conn.Exec(ctx, "ROLLBACK;", nil))
	require.NoError(t, conn.Release())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.Stats()
	assert.EqualValues(t, 1, s.Queries)
	assert.EqualValues(t, 3, s.Execs)
	assert.EqualValues(t, 1, s.Transactions)
	assert.EqualValues(t, 1, s.Rollbacks)
	assert.EqualValues(t, 1, s.Errors)
	assert.EqualValues(t, 4, s.Slow)
	assert.Contains(t, s.String(), "queries=1 execs=3 transactions=1 rollbacks=1 errors=1 slow=4")

	require.Len(t, slow, 4)
	assert.Equal(t, "DELETE FROM t WHERE (id=$1);", slow[1].SQL)
	assert.Equal(t, []any{7}, slow[1].Args)
	assert.EqualError(t, slow[1].Err, "dialect/sql: exec: boom")
	assert.NoError(t, slow[2].Err)

	drv.SetSlowThreshold(time.Hour)
	assert.Equal(t, time.Hour, drv.SlowThreshold())
	drv.Reset()
	assert.Equal(t, StatsSnapshot{}, drv.Stats())
	assert.Zero(t, drv.Stats().Avg())
}

func TestStatsDriverSlowLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db), WithSlowThreshold(-1), WithSlowQueryLog(logger))
	mock.ExpectExec("INSERT").WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, drv.Exec(context.Background(), "INSERT INTO t (name) VALUES ($1)", []any{"a"}))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="dialect/sql: slow statement"`)
	assert.Contains(t, buf.String(), `sql="INSERT INTO t (name) VALUES ($1)"`)

	fast := NewStatsDriver(OpenDB(dialect.Postgres, db))
	assert.Equal(t, 100*time.Millisecond, fast.SlowThreshold())
}

func TestKeyword(t *testing.T) {
	assert.Equal(t, "BEGIN", keyword("  begin"))
	assert.Equal(t, "ROLLBACK", keyword("ROLLBACK;"))
	assert.Equal(t, "SELECT", keyword("SELECT *\nFROM t;"))
	assert.Equal(t, "", keyword(""))
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.SQLite, db), logger)
	ctx := context.Background()
	mock.ExpectExec("INSERT").WithArgs(1).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	require.NoError(t, drv.Exec(ctx, "INSERT INTO t (id) VALUES ($1)", []any{1}))
	conn, err := drv.Acquire(ctx)
	require.NoError(t, err)
	rows, err := conn.Query(ctx, "SELECT id FROM t;", nil)
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	require.NoError(t, conn.Release())
	require.NoError(t, mock.ExpectationsWereMet())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `msg="dialect/sql: exec" sql="INSERT INTO t (id) VALUES ($1)" args=[1]`)
	assert.Contains(t, lines[1], `msg="dialect/sql: acquire"`)
	assert.Contains(t, lines[2], `msg="dialect/sql: query" conn=true sql="SELECT id FROM t;"`)
	assert.Contains(t, lines[3], `msg="dialect/sql: release" conn=true`)
	assert.Equal(t, dialect.SQLite, drv.Dialect())
}
