package gen

import (
	"go/token"
	"path/filepath"
	"runtime"
)

// DefaultHeader is the header comment of generated files.
const DefaultHeader = "Code generated by tabula. DO NOT EDIT."

// Config holds the code generation settings.
type Config struct {
	// Target is the output directory.
	Target string
	// Package is the package name of the generated files. Defaults to the
	// base name of Target.
	Package string
	// Header is the comment at the top of each generated file.
	Header string
	// Workers limits the number of files written in parallel.
	Workers int
}

// Option configures code generation.
type Option func(*Config) error

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return configError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithPackage sets the package name of the generated files.
func WithPackage(name string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(name) {
			return configError("Package", name, "package name must be a Go identifier")
		}
		c.Package = name
		return nil
	}
}

// WithHeader sets the file header comment.
// The header is added at the top of each generated file.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithWorkers sets the number of parallel writers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return configError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// NewConfig applies the options and fills in the defaults.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{Header: DefaultHeader, Workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.Target == "" {
		return nil, configError("Target", nil, "missing target directory")
	}
	if c.Package == "" {
		name := filepath.Base(filepath.Clean(c.Target))
		if !token.IsIdentifier(name) {
			return nil, configError("Package", name, "cannot derive a package name from the target; use WithPackage")
		}
		c.Package = name
	}
	return c, nil
}
