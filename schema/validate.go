package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/tabula/schema/field"
)

// validIdentifierRe validates table and column names. Identifiers are
// rendered unquoted, so anything beyond letters, digits and underscores
// is rejected.
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdentifier reports if s can be used as a table or column name.
func ValidIdentifier(s string) bool {
	return s != "" && len(s) <= 63 && validIdentifierRe.MatchString(s)
}

// ValidationResult holds the results of schema validation.
type ValidationResult struct {
	Errors   []*SchemaError
	Warnings []*SchemaError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns the validation errors joined, or nil.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

func (r *ValidationResult) errorf(table, column, format string, args ...any) {
	r.Errors = append(r.Errors, NewSchemaError(table, column, fmt.Sprintf(format, args...), nil))
}

// ValidateTable validates a single table definition. Foreign keys are
// checked for shape only; their targets are resolved by ValidateSchema.
func ValidateTable(t *Table) *ValidationResult {
	result := &ValidationResult{}
	if !ValidIdentifier(t.Name) {
		result.errorf(t.Name, "", "invalid table name %q", t.Name)
	}
	if len(t.Columns) == 0 {
		result.errorf(t.Name, "", "table has no columns")
	}
	if len(t.PrimaryKey()) == 0 {
		result.Warnings = append(result.Warnings, NewSchemaError(t.Name, "", "table has no primary key", nil))
	}
	colNames := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c == nil {
			result.errorf(t.Name, "", "nil column")
			continue
		}
		if colNames[c.Name] {
			result.errorf(t.Name, c.Name, "duplicate column name")
		}
		colNames[c.Name] = true
		validateColumn(t.Name, c, result)
	}
	return result
}

func validateColumn(table string, c *Column, result *ValidationResult) {
	if !ValidIdentifier(c.Name) {
		result.errorf(table, c.Name, "invalid column name %q", c.Name)
	}
	switch {
	case c.AutoIncrement:
		if c.Type != nil {
			if t, ok := c.Type.(field.Type); !ok || !t.Integer() {
				result.Errors = append(result.Errors, NewSchemaError(table, c.Name,
					"auto-increment column must have an integer type",
					fmt.Errorf("%w %s", field.ErrUnknownType, c.Type)))
			}
		}
		if c.Default != nil {
			result.errorf(table, c.Name, "auto-increment column cannot have a default")
		}
	default:
		if err := field.Check(c.Type); err != nil {
			result.Errors = append(result.Errors, NewSchemaError(table, c.Name, "unknown column type", err))
			return
		}
	}
	if c.PrimaryKey && c.Nullable == Null {
		result.errorf(table, c.Name, "primary key cannot be nullable")
	}
	if c.Default != nil && !c.AutoIncrement {
		if err := checkDefault(c.Type, c.Default); err != nil {
			result.Errors = append(result.Errors, NewSchemaError(table, c.Name, "invalid default value", err))
		}
	}
	for _, fk := range c.ForeignKeys {
		if !ValidIdentifier(fk.Table) || !ValidIdentifier(fk.Column) {
			result.errorf(table, c.Name, "invalid foreign key target %s(%s)", fk.Table, fk.Column)
		}
		if !fk.OnUpdate.Valid() || !fk.OnDelete.Valid() {
			result.errorf(table, c.Name, "invalid reference option in foreign key to %s", fk.Table)
		}
	}
}

// ValidateSchema validates all tables in a schema, including that every
// foreign key targets an existing column.
func ValidateSchema(s *Schema) *ValidationResult {
	result := &ValidationResult{}
	tables := make(map[string]*Table, len(s.Tables))
	for _, t := range s.Tables {
		if _, ok := tables[t.Name]; ok {
			result.errorf(t.Name, "", "duplicate table name")
		}
		tables[t.Name] = t
		tableResult := ValidateTable(t)
		result.Errors = append(result.Errors, tableResult.Errors...)
		result.Warnings = append(result.Warnings, tableResult.Warnings...)
	}
	for _, t := range s.Tables {
		for _, c := range t.Columns {
			if c == nil {
				continue
			}
			for _, fk := range c.ForeignKeys {
				ref, ok := tables[fk.Table]
				if !ok {
					result.errorf(t.Name, c.Name, "foreign key references non-existent table %q", fk.Table)
					continue
				}
				if _, ok := ref.Column(fk.Column); !ok {
					result.errorf(t.Name, c.Name, "foreign key references non-existent column %s(%s)", fk.Table, fk.Column)
				}
			}
		}
	}
	return result
}

// checkDefault reports if v is an acceptable default literal for a column of type ct.
func checkDefault(ct field.ColumnType, v any) error {
	if f, ok := v.(Func); ok {
		if strings.TrimSpace(string(f)) == "" {
			return errors.New("empty function default")
		}
		return nil
	}
	switch ct := ct.(type) {
	case field.Type:
		return checkScalar(ct, v)
	case field.Collection:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Errorf("expected a list, got %T", v)
		}
		for i := 0; i < rv.Len(); i++ {
			if err := checkScalar(ct.Of, rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	default:
		if _, err := json.Marshal(v); err != nil {
			return err
		}
		return nil
	}
}

func checkScalar(t field.Type, v any) error {
	switch t {
	case field.TypeBigInt, field.TypeInt:
		n, ok := integerValue(v)
		if !ok {
			return fmt.Errorf("expected an integer, got %T", v)
		}
		if t == field.TypeInt && (n < math.MinInt32 || n > math.MaxInt32) {
			return fmt.Errorf("%d overflows integer", n)
		}
	case field.TypeBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected a bool, got %T", v)
		}
	case field.TypeVarchar, field.TypeText:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected a string, got %T", v)
		}
	case field.TypeDate:
		switch v := v.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.DateOnly, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("expected a date, got %T", v)
		}
	case field.TypeTimestamp, field.TypeTimestampTZ:
		switch v.(type) {
		case time.Time, string:
		default:
			return fmt.Errorf("expected a time, got %T", v)
		}
	case field.TypeUUID:
		switch v := v.(type) {
		case uuid.UUID:
		case string:
			if _, err := uuid.Parse(v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("expected a uuid, got %T", v)
		}
	}
	return nil
}

func integerValue(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}
