// Command tabula prints and applies the DDL of a YAML schema and generates
// Go record types for it.
//
//	tabula ddl -schema schema.yaml -dialect mysql
//	tabula apply -schema schema.yaml -dsn postgres://localhost/app?sslmode=disable
//	tabula gen -schema schema.yaml -out ./internal/db -watch
//
// The -dsn and -dialect flags fall back to TABULA_DSN and TABULA_DIALECT,
// which may be set in a .env file of the working directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/joho/godotenv/autoload"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "tabula: %v\n", err)
		stop()
		os.Exit(1)
	}
}
