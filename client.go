package tabula

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/schema"
)

// Option configures a Client.
type Option func(*config)

type config struct {
	codec    Codec
	logger   *slog.Logger
	cache    Cache
	cacheTTL time.Duration
}

// WithCodec sets the codec normalizing the values read from the database.
// The default is DefaultCodec with UTC timestamps.
func WithCodec(c Codec) Option {
	return func(cfg *config) {
		cfg.codec = c
	}
}

// WithLogger sets the logger of the client. Statements are logged at debug
// level, failed rollbacks and cache errors at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithCache caches the results of select queries for ttl. A ttl of 0 keeps
// them until a write to their table.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(cfg *config) {
		cfg.cache = c
		cfg.cacheTTL = ttl
	}
}

// Client executes queries against a pooled driver. It is safe for
// concurrent use.
type Client struct {
	drv    dialect.Driver
	config config
	closed atomic.Bool
	gens   generations
}

// NewClient returns a client executing queries on drv.
func NewClient(drv dialect.Driver, opts ...Option) *Client {
	cfg := config{codec: DefaultCodec{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Client{drv: drv, config: cfg}
}

// Open opens a database/sql pool for the given dialect and returns a
// client on it. The driver of the dialect must be registered.
func Open(dialectName, source string, opts ...Option) (*Client, error) {
	drv, err := sql.Open(dialectName, source)
	if err != nil {
		return nil, err
	}
	return NewClient(drv, opts...), nil
}

// Driver returns the driver of the client.
func (c *Client) Driver() dialect.Driver { return c.drv }

// Dialect returns the dialect of the driver.
func (c *Client) Dialect() string { return c.drv.Dialect() }

// Query executes q and returns its rows. Statements returning no rows
// return an empty slice.
func (c *Client) Query(ctx context.Context, q sql.Query) ([]schema.Record, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	cacheable := c.config.cache != nil && q.Op() == sql.OpSelect
	var (
		key string
		gen uint64
	)
	if cacheable {
		key = NewCacheKey(q).String()
		if recs, ok := c.cached(ctx, key, q); ok {
			return recs, nil
		}
		gen = c.gens.load(q.Table())
	}
	var (
		recs []schema.Record
		err  error
	)
	if len(q.Statements()) > 1 {
		recs, err = c.runOnConn(ctx, q)
	} else {
		recs, err = c.run(ctx, c.drv, q)
	}
	if err != nil {
		return nil, err
	}
	switch {
	case cacheable:
		c.store(ctx, key, q, recs, gen)
	case !q.Op().ReadOnly():
		c.invalidate(ctx, []string{q.Table()})
	}
	return recs, nil
}

// runOnConn runs the statements of q on one connection.
func (c *Client) runOnConn(ctx context.Context, q sql.Query) (recs []schema.Record, err error) {
	conn, err := c.drv.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := conn.Release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return c.run(ctx, conn, q)
}

func (c *Client) run(ctx context.Context, qr dialect.Querier, q sql.Query) ([]schema.Record, error) {
	args := q.Args()
	stmts := q.Statements()
	if q.Op() != sql.OpRaw && q.Op() != sql.OpSelect {
		for _, stmt := range stmts {
			start := time.Now()
			err := qr.Exec(ctx, stmt, args)
			c.logStatement(ctx, stmt, args, start, err)
			if err != nil {
				return nil, &SQLError{SQL: stmt, Args: args, Err: err}
			}
		}
		return []schema.Record{}, nil
	}
	var recs []schema.Record
	for _, stmt := range stmts {
		start := time.Now()
		out, err := c.query(ctx, qr, stmt, args, q.Columns())
		c.logStatement(ctx, stmt, args, start, err)
		if err != nil {
			return nil, err
		}
		recs = out
	}
	return recs, nil
}

func (c *Client) query(ctx context.Context, qr dialect.Querier, stmt string, args []any, cols schema.Columns) ([]schema.Record, error) {
	rows, err := qr.Query(ctx, stmt, args)
	if err != nil {
		return nil, &SQLError{SQL: stmt, Args: args, Err: err}
	}
	recs, err := c.scan(rows, cols)
	if cerr := rows.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		if IsSchemaError(err) {
			return nil, err
		}
		return nil, &SQLError{SQL: stmt, Args: args, Err: err}
	}
	return recs, nil
}

func (c *Client) scan(rows dialect.Rows, cols schema.Columns) ([]schema.Record, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	described := make([]*schema.Column, len(names))
	for i, name := range names {
		described[i], _ = cols.Get(name)
	}
	recs := []schema.Record{}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(schema.Record, len(names))
		for i, name := range names {
			v, err := c.config.codec.Decode(described[i], values[i])
			if err != nil {
				return nil, err
			}
			rec[name] = v
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Batch runs the queries in order inside one transaction and returns the
// rows of each. Nothing is committed unless all of them succeed.
func (c *Client) Batch(ctx context.Context, qs ...sql.Query) ([][]schema.Record, error) {
	results := make([][]schema.Record, 0, len(qs))
	err := c.Transaction(ctx, func(ctx context.Context, tx *Tx) error {
		for i, q := range qs {
			recs, err := tx.Query(ctx, q)
			if err != nil {
				return fmt.Errorf("tabula: batch query %d: %w", i, err)
			}
			results = append(results, recs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Transaction runs fn inside a transaction on one connection. The
// transaction is committed if fn returns nil and rolled back if it returns
// an error, panics or the commit fails. The connection goes back to the
// pool only when the transaction is known to be over; otherwise it is
// discarded.
//
//	err := client.Transaction(ctx, func(ctx context.Context, tx *tabula.Tx) error {
//		if _, err := tx.Query(ctx, debit); err != nil {
//			return err
//		}
//		_, err := tx.Query(ctx, credit)
//		return err
//	})
func (c *Client) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	if c.closed.Load() {
		return ErrClientClosed
	}
	conn, err := c.drv.Acquire(ctx)
	if err != nil {
		return err
	}
	// open is cleared once the session is known to be outside a transaction.
	open := true
	defer func() {
		release, op := conn.Release, "release"
		if open {
			release, op = conn.Discard, "discard"
		}
		if rerr := release(); rerr != nil {
			c.config.logger.WarnContext(ctx, "tabula: "+op+" connection", "error", rerr)
			err = errors.Join(err, rerr)
		}
	}()
	if err := c.exec(ctx, conn, "BEGIN"); err != nil {
		return err
	}
	tx := &Tx{client: c, conn: conn}
	defer func() {
		if p := recover(); p != nil {
			tx.finish()
			open = c.rollback(ctx, conn, "tabula: rollback after panic") != nil
			panic(p)
		}
	}()
	if err := fn(ctx, tx); err != nil {
		tx.finish()
		if rerr := c.rollback(ctx, conn, "tabula: rollback"); rerr != nil {
			return errors.Join(err, rerr)
		}
		open = false
		return err
	}
	written := tx.finish()
	if err := c.exec(ctx, conn, "COMMIT"); err != nil {
		// The commit may have been applied before it failed.
		c.invalidate(context.WithoutCancel(ctx), written)
		if rerr := c.rollback(ctx, conn, "tabula: rollback after failed commit"); rerr != nil {
			return errors.Join(err, rerr)
		}
		open = false
		return err
	}
	open = false
	c.invalidate(ctx, written)
	return nil
}

// rollback ends the transaction of conn, even when ctx is already done.
func (c *Client) rollback(ctx context.Context, conn dialect.Conn, msg string) error {
	if err := c.exec(context.WithoutCancel(ctx), conn, "ROLLBACK"); err != nil {
		c.config.logger.WarnContext(ctx, msg, "error", err)
		return &RollbackError{Err: err}
	}
	return nil
}

func (c *Client) exec(ctx context.Context, qr dialect.Querier, stmt string) error {
	start := time.Now()
	err := qr.Exec(ctx, stmt, nil)
	c.logStatement(ctx, stmt, nil, start, err)
	if err != nil {
		return &SQLError{SQL: stmt, Err: err}
	}
	return nil
}

// Close closes the pool. Later calls return ErrClientClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	return c.drv.Close()
}

func (c *Client) logStatement(ctx context.Context, stmt string, args []any, start time.Time, err error) {
	l := c.config.logger
	if !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := []any{"sql", stmt, "duration", time.Since(start)}
	if len(args) > 0 {
		attrs = append(attrs, "args", args)
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	l.DebugContext(ctx, "tabula: query", attrs...)
}

func (c *Client) cached(ctx context.Context, key string, q sql.Query) ([]schema.Record, bool) {
	data, err := c.config.cache.Get(ctx, key)
	if err != nil {
		c.config.logger.WarnContext(ctx, "tabula: cache get", "key", key, "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	recs, err := decodeRecords(data, q.Columns(), c.config.codec)
	if err != nil {
		c.config.logger.WarnContext(ctx, "tabula: cache decode", "key", key, "error", err)
		return nil, false
	}
	return recs, true
}

// store caches the result of q, read at generation gen of its table. The
// result is dropped if the table was invalidated since, including while it
// was being stored.
func (c *Client) store(ctx context.Context, key string, q sql.Query, recs []schema.Record, gen uint64) {
	if c.gens.load(q.Table()) != gen {
		return
	}
	data, err := encodeRecords(recs, q.Columns())
	if err == nil {
		err = c.config.cache.Set(ctx, key, data, c.config.cacheTTL)
	}
	if err != nil {
		c.config.logger.WarnContext(ctx, "tabula: cache set", "key", key, "error", err)
		return
	}
	if c.gens.load(q.Table()) != gen {
		if err := c.config.cache.Delete(ctx, key); err != nil {
			c.config.logger.WarnContext(ctx, "tabula: cache delete", "key", key, "error", err)
		}
	}
}

// invalidate drops the cached results of the given tables. An unnamed
// table, as written by raw queries, drops every cached result.
func (c *Client) invalidate(ctx context.Context, tables []string) {
	if c.config.cache == nil || len(tables) == 0 {
		return
	}
	for _, t := range tables {
		// Bumped before the delete, so a concurrent store either sees the
		// new generation or lands before the delete.
		c.gens.bump(t)
		var err error
		if t == "" {
			err = c.config.cache.Clear(ctx)
		} else {
			err = c.config.cache.DeletePrefix(ctx, TablePrefix(t))
		}
		if err != nil {
			c.config.logger.WarnContext(ctx, "tabula: cache invalidate", "table", t, "error", err)
		}
	}
}

// Tx is a transaction in progress. Its queries run one at a time on the
// connection of the transaction.
type Tx struct {
	client *Client
	conn   dialect.Conn

	mu      sync.Mutex
	done    bool
	written []string
}

// Query executes q inside the transaction. Results are never read from
// the cache, since they may depend on uncommitted writes.
func (tx *Tx) Query(ctx context.Context, q sql.Query) ([]schema.Record, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return nil, ErrTxDone
	}
	recs, err := tx.client.run(ctx, tx.conn, q)
	if err != nil {
		return nil, err
	}
	if !q.Op().ReadOnly() {
		tx.written = append(tx.written, q.Table())
	}
	return recs, nil
}

// finish marks the transaction done and returns the tables it wrote.
func (tx *Tx) finish() []string {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.done = true
	return tx.written
}
