package sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/syssam/tabula/dialect"
)

// StatsSnapshot is a point-in-time copy of the counters of a StatsDriver.
type StatsSnapshot struct {
	Queries      int64 // statements run with Query
	Execs        int64 // statements run with Exec
	Transactions int64 // BEGIN statements
	Rollbacks    int64 // ROLLBACK statements
	Errors       int64
	Slow         int64
	Duration     time.Duration // total time spent in the driver
}

// Avg returns the mean duration of a statement.
func (s StatsSnapshot) Avg() time.Duration {
	n := s.Queries + s.Execs
	if n == 0 {
		return 0
	}
	return s.Duration / time.Duration(n)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d transactions=%d rollbacks=%d errors=%d slow=%d duration=%s avg=%s",
		s.Queries, s.Execs, s.Transactions, s.Rollbacks, s.Errors, s.Slow, s.Duration, s.Avg())
}

// SlowQuery describes a statement that ran longer than the slow threshold.
type SlowQuery struct {
	SQL      string
	Args     []any
	Duration time.Duration
	Err      error
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold.Store(int64(d))
	}
}

// WithSlowQueryHook calls hook for every slow statement.
func WithSlowQueryHook(hook func(context.Context, SlowQuery)) StatsOption {
	return func(s *StatsDriver) {
		s.hook = hook
	}
}

// WithSlowQueryLog logs slow statements as warnings to logger, or to the
// default logger if nil.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, q SlowQuery) {
		attrs := []any{"sql", q.SQL, "duration", q.Duration}
		if len(q.Args) > 0 {
			attrs = append(attrs, "args", q.Args)
		}
		if q.Err != nil {
			attrs = append(attrs, "error", q.Err)
		}
		logger.WarnContext(ctx, "dialect/sql: slow statement", attrs...)
	})
}

// StatsDriver counts the statements run through a dialect.Driver, including
// those run on connections it checks out.
//
//	drv := sql.NewStatsDriver(base,
//		sql.WithSlowThreshold(200*time.Millisecond),
//		sql.WithSlowQueryLog(logger),
//	)
//	client := tabula.NewClient(drv)
//	...
//	logger.Info("database", "stats", drv.Stats())
type StatsDriver struct {
	dialect.Driver
	hook      func(context.Context, SlowQuery)
	threshold atomic.Int64

	queries, execs      atomic.Int64
	txs, rollbacks      atomic.Int64
	errors, slow, nanos atomic.Int64
}

// NewStatsDriver wraps drv with statement statistics.
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv}
	s.threshold.Store(int64(100 * time.Millisecond))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns a snapshot of the counters.
func (d *StatsDriver) Stats() StatsSnapshot {
	return StatsSnapshot{
		Queries:      d.queries.Load(),
		Execs:        d.execs.Load(),
		Transactions: d.txs.Load(),
		Rollbacks:    d.rollbacks.Load(),
		Errors:       d.errors.Load(),
		Slow:         d.slow.Load(),
		Duration:     time.Duration(d.nanos.Load()),
	}
}

// Reset sets all counters to zero.
func (d *StatsDriver) Reset() {
	for _, c := range []*atomic.Int64{&d.queries, &d.execs, &d.txs, &d.rollbacks, &d.errors, &d.slow, &d.nanos} {
		c.Store(0)
	}
}

// SlowThreshold returns the current slow threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold updates the slow threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.threshold.Store(int64(threshold))
}

// Query implements dialect.Querier.
func (d *StatsDriver) Query(ctx context.Context, query string, args []any) (dialect.Rows, error) {
	start := time.Now()
	rows, err := d.Driver.Query(ctx, query, args)
	d.observe(ctx, &d.queries, query, args, start, err)
	return rows, err
}

// Exec implements dialect.Querier.
func (d *StatsDriver) Exec(ctx context.Context, query string, args []any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args)
	d.observe(ctx, &d.execs, query, args, start, err)
	return err
}

// Acquire checks out a connection whose statements are counted too.
func (d *StatsDriver) Acquire(ctx context.Context) (dialect.Conn, error) {
	c, err := d.Driver.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &statsConn{Conn: c, d: d}, nil
}

func (d *StatsDriver) observe(ctx context.Context, counter *atomic.Int64, query string, args []any, start time.Time, err error) {
	elapsed := time.Since(start)
	counter.Add(1)
	d.nanos.Add(int64(elapsed))
	switch keyword(query) {
	case "BEGIN":
		d.txs.Add(1)
	case "ROLLBACK":
		d.rollbacks.Add(1)
	}
	if err != nil {
		d.errors.Add(1)
	}
	if elapsed <= d.SlowThreshold() {
		return
	}
	d.slow.Add(1)
	if d.hook != nil {
		d.hook(ctx, SlowQuery{SQL: query, Args: args, Duration: elapsed, Err: err})
	}
}

// keyword returns the leading keyword of a statement in upper case.
func keyword(query string) string {
	query = strings.TrimSpace(query)
	if i := strings.IndexAny(query, " \t\n;"); i >= 0 {
		query = query[:i]
	}
	return strings.ToUpper(query)
}

type statsConn struct {
	dialect.Conn
	d *StatsDriver
}

func (c *statsConn) Query(ctx context.Context, query string, args []any) (dialect.Rows, error) {
	start := time.Now()
	rows, err := c.Conn.Query(ctx, query, args)
	c.d.observe(ctx, &c.d.queries, query, args, start, err)
	return rows, err
}

func (c *statsConn) Exec(ctx context.Context, query string, args []any) error {
	start := time.Now()
	err := c.Conn.Exec(ctx, query, args)
	c.d.observe(ctx, &c.d.execs, query, args, start, err)
	return err
}

// DebugDriver logs every statement and connection checkout of a
// dialect.Driver at debug level.
type DebugDriver struct {
	dialect.Driver
	logger *slog.Logger
}

// NewDebugDriver wraps drv with debug logging to logger, or to the default
// logger if nil.
//
//	client := tabula.NewClient(sql.NewDebugDriver(drv, logger))
func NewDebugDriver(drv dialect.Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger}
}

// Query implements dialect.Querier.
func (d *DebugDriver) Query(ctx context.Context, query string, args []any) (dialect.Rows, error) {
	logStatement(ctx, d.logger, "query", query, args)
	return d.Driver.Query(ctx, query, args)
}

// Exec implements dialect.Querier.
func (d *DebugDriver) Exec(ctx context.Context, query string, args []any) error {
	logStatement(ctx, d.logger, "exec", query, args)
	return d.Driver.Exec(ctx, query, args)
}

// Acquire checks out a connection that logs its statements and release.
func (d *DebugDriver) Acquire(ctx context.Context) (dialect.Conn, error) {
	c, err := d.Driver.Acquire(ctx)
	if err != nil {
		d.logger.DebugContext(ctx, "dialect/sql: acquire", "error", err)
		return nil, err
	}
	d.logger.DebugContext(ctx, "dialect/sql: acquire")
	return &debugConn{Conn: c, logger: d.logger.With("conn", true)}, nil
}

func logStatement(ctx context.Context, logger *slog.Logger, kind, query string, args []any) {
	if len(args) == 0 {
		logger.DebugContext(ctx, "dialect/sql: "+kind, "sql", query)
		return
	}
	logger.DebugContext(ctx, "dialect/sql: "+kind, "sql", query, "args", args)
}

type debugConn struct {
	dialect.Conn
	logger *slog.Logger
}

func (c *debugConn) Query(ctx context.Context, query string, args []any) (dialect.Rows, error) {
	logStatement(ctx, c.logger, "query", query, args)
	return c.Conn.Query(ctx, query, args)
}

func (c *debugConn) Exec(ctx context.Context, query string, args []any) error {
	logStatement(ctx, c.logger, "exec", query, args)
	return c.Conn.Exec(ctx, query, args)
}

func (c *debugConn) Release() error {
	err := c.Conn.Release()
	c.logger.Debug("dialect/sql: release", "error", err)
	return err
}

func (c *debugConn) Discard() error {
	err := c.Conn.Discard()
	c.logger.Debug("dialect/sql: discard", "error", err)
	return err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Conn   = (*statsConn)(nil)
	_ dialect.Conn   = (*debugConn)(nil)
)
