package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/compiler/gen"
	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/pgxdriver"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/schema"
)

const usage = `usage: tabula <command> [flags]

commands:
  ddl    print the DDL of a schema
  apply  create the tables of a schema in a database
  gen    generate Go record types for a schema

Run "tabula <command> -h" for the flags of a command.`

type options struct {
	schema  string
	dialect string
	dsn     string
	driver  string
	drop    bool
	debug   bool
	trace   bool
	slow    time.Duration
	out     string
	pkg     string
	watch   bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	var err error
	switch cmd, args := args[0], args[1:]; cmd {
	case "ddl":
		err = runDDL(args, stdout, stderr)
	case "apply":
		err = runApply(ctx, args, stdout, stderr)
	case "gen":
		err = runGen(ctx, args, stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprintln(stdout, usage)
	default:
		err = fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func newFlagSet(name string, stderr io.Writer, o *options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.schema, "schema", "schema.yaml", "path of the YAML schema")
	return fs
}

func dialectFlag(fs *flag.FlagSet, o *options) {
	def := os.Getenv("TABULA_DIALECT")
	if def == "" {
		def = dialect.Postgres
	}
	fs.StringVar(&o.dialect, "dialect", def, "SQL dialect: postgres, mysql or sqlite (env TABULA_DIALECT)")
}

func runDDL(args []string, stdout, stderr io.Writer) error {
	var o options
	fs := newFlagSet("ddl", stderr, &o)
	dialectFlag(fs, &o)
	fs.BoolVar(&o.drop, "drop", false, "print the DROP statements instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	qs, err := statements(&o)
	if err != nil {
		return err
	}
	for _, q := range qs {
		for _, stmt := range q.Statements() {
			fmt.Fprintln(stdout, stmt)
		}
	}
	return nil
}

// statements loads the schema and returns its DROP statements followed by
// its CREATE statements when o.drop is set, or the CREATE statements alone.
func statements(o *options) ([]sql.Query, error) {
	s, err := schema.LoadFile(o.schema)
	if err != nil {
		return nil, err
	}
	cat, err := tabula.NewCatalog(s, tabula.WithDialect(o.dialect))
	if err != nil {
		return nil, err
	}
	if o.drop {
		return cat.DropAll()
	}
	return cat.CreateAll()
}

func runApply(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var o options
	fs := newFlagSet("apply", stderr, &o)
	dialectFlag(fs, &o)
	fs.StringVar(&o.dsn, "dsn", os.Getenv("TABULA_DSN"), "data source name (env TABULA_DSN)")
	fs.StringVar(&o.driver, "driver", "sql", `connection pool: "sql" (database/sql) or "pgx"`)
	fs.BoolVar(&o.drop, "drop", false, "drop the existing tables before creating them")
	fs.BoolVar(&o.debug, "debug", false, "log every statement")
	fs.BoolVar(&o.trace, "trace", false, "log connection checkouts and statements at the driver")
	fs.DurationVar(&o.slow, "slow", 0, "log statements slower than this duration and print statistics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.dsn == "" {
		return errors.New("apply: missing -dsn or TABULA_DSN")
	}
	logger := newLogger(stderr, o.debug || o.trace)

	var qs []sql.Query
	if o.drop {
		drops, err := statements(&o)
		if err != nil {
			return err
		}
		qs = drops
		o.drop = false
	}
	creates, err := statements(&o)
	if err != nil {
		return err
	}
	qs = append(qs, creates...)

	drv, err := openDriver(ctx, &o, logger)
	if err != nil {
		return err
	}
	client := tabula.NewClient(drv, tabula.WithLogger(logger))
	defer client.Close()
	if _, err := client.Batch(ctx, qs...); err != nil {
		return err
	}
	if sd, ok := drv.(*sql.StatsDriver); ok {
		logger.InfoContext(ctx, "tabula: statistics", "stats", sd.Stats().String())
	}
	fmt.Fprintf(stdout, "applied %d tables\n", len(creates))
	return nil
}

func openDriver(ctx context.Context, o *options, logger *slog.Logger) (dialect.Driver, error) {
	var drv dialect.Driver
	switch o.driver {
	case "sql":
		if !dialect.Valid(o.dialect) {
			return nil, fmt.Errorf("unsupported dialect %q", o.dialect)
		}
		d, err := sql.Open(o.dialect, o.dsn)
		if err != nil {
			return nil, err
		}
		drv = d
	case "pgx":
		if o.dialect != dialect.Postgres {
			return nil, fmt.Errorf("driver pgx requires the %s dialect", dialect.Postgres)
		}
		d, err := pgxdriver.Open(ctx, pgxdriver.Config{DSN: o.dsn})
		if err != nil {
			return nil, err
		}
		drv = d
	default:
		return nil, fmt.Errorf("unknown driver %q", o.driver)
	}
	if o.trace {
		drv = sql.NewDebugDriver(drv, logger)
	}
	if o.slow > 0 {
		drv = sql.NewStatsDriver(drv, sql.WithSlowThreshold(o.slow), sql.WithSlowQueryLog(logger))
	}
	return drv, nil
}

func runGen(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var o options
	fs := newFlagSet("gen", stderr, &o)
	fs.StringVar(&o.out, "out", "", "output directory")
	fs.StringVar(&o.pkg, "package", "", "package name (default: base name of -out)")
	fs.BoolVar(&o.watch, "watch", false, "regenerate when the schema file changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.out == "" {
		return errors.New("gen: missing -out")
	}
	logger := newLogger(stderr, false)
	regen := func() error { return generate(ctx, &o) }
	if err := regen(); err != nil {
		if !o.watch {
			return err
		}
		logger.ErrorContext(ctx, "tabula: generate", "error", err)
	} else {
		fmt.Fprintf(stdout, "generated %s\n", o.out)
	}
	if !o.watch {
		return nil
	}
	return watch(ctx, o.schema, logger, regen)
}

func generate(ctx context.Context, o *options) error {
	s, err := schema.LoadFile(o.schema)
	if err != nil {
		return err
	}
	opts := []gen.Option{gen.WithTarget(o.out)}
	if o.pkg != "" {
		opts = append(opts, gen.WithPackage(o.pkg))
	}
	return gen.Generate(ctx, s, opts...)
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
