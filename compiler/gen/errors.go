package gen

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("tabula/gen: invalid configuration")
	// ErrGenerationFailed is matched by every *GenerationError.
	ErrGenerationFailed = errors.New("tabula/gen: generation failed")
)

// ConfigError reports an option with an unusable value.
type ConfigError struct {
	Option string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("tabula/gen: option %s: %s", e.Option, e.Reason)
	}
	return fmt.Sprintf("tabula/gen: option %s = %#v: %s", e.Option, e.Value, e.Reason)
}

// Is matches ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// GenerationError reports a failure to render or write generated code.
type GenerationError struct {
	Table string // empty for files not tied to one table
	File  string
	Op    string
	Err   error
}

func (e *GenerationError) Error() string {
	msg := "tabula/gen: " + e.Op
	if e.Table != "" {
		msg += " table " + e.Table
	}
	if e.File != "" {
		msg += " (" + e.File + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is matches ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

func configError(option string, value any, reason string) error {
	return &ConfigError{Option: option, Value: value, Reason: reason}
}

func generationError(table, file, op string, err error) error {
	return &GenerationError{Table: table, File: file, Op: op, Err: err}
}
