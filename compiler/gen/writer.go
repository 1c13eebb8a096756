package gen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/syssam/tabula/schema"
)

// Generate renders the record code of the schema and writes it to the
// target directory.
//
//	err := gen.Generate(ctx, s, gen.WithTarget("./internal/db"), gen.WithPackage("db"))
func Generate(ctx context.Context, s *schema.Schema, opts ...Option) error {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return err
	}
	files, err := Render(s, cfg)
	if err != nil {
		return err
	}
	return Write(ctx, cfg, files)
}

// Write formats the files and writes them to the target directory in
// parallel.
func Write(ctx context.Context, cfg *Config, files []File) error {
	if err := os.MkdirAll(cfg.Target, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(cfg.Workers, 1))
	for _, f := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return writeFile(cfg.Target, f)
			}
		})
	}
	return eg.Wait()
}

func writeFile(dir string, f File) error {
	path := filepath.Join(dir, f.Name)
	formatted, err := imports.Process(path, f.Source, nil)
	if err != nil {
		// Keep the unformatted source around for debugging.
		debugPath := path + ".error"
		_ = os.WriteFile(debugPath, f.Source, 0o644)
		return generationError("", f.Name, "format", fmt.Errorf("%w (unformatted source in %s)", err, debugPath))
	}
	if err := os.WriteFile(path, formatted, 0o644); err != nil {
		return generationError("", f.Name, "write", err)
	}
	return nil
}
