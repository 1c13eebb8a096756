package sql

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/schema"
)

// literalTimeLayout is the layout of time literals. Times are rendered in UTC.
const literalTimeLayout = "2006-01-02 15:04:05.000"

// Literal renders v as an SQL literal of the builder's dialect:
//
//   - nil renders as NULL
//   - strings are quoted and escaped
//   - times render as 'YYYY-MM-DD HH:MM:SS.mmm' in UTC
//   - UUIDs are quoted in their canonical form
//   - maps, structs, slices and arrays are encoded as JSON text and quoted
//   - numbers and booleans render by their kind, so time.Duration renders
//     as its count of nanoseconds
//   - schema.Func renders verbatim
//
// Other values are quoted if they implement fmt.Stringer and rendered in
// their default text form otherwise.
func (b *Builder) Literal(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "NULL", nil
	case schema.Func:
		return string(v), nil
	case string:
		return b.quote(v), nil
	case []byte:
		return b.quote(string(v)), nil
	case json.RawMessage:
		return b.quote(string(v)), nil
	case time.Time:
		return b.quote(v.UTC().Format(literalTimeLayout)), nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case uuid.UUID:
		return b.quote(v.String()), nil
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		buf, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return b.quote(string(buf)), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return "NULL", nil
		}
		return b.Literal(rv.Elem().Interface())
	case reflect.String:
		return b.quote(rv.String()), nil
	case reflect.Bool:
		return b.Literal(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits()), nil
	}
	if s, ok := v.(fmt.Stringer); ok {
		return b.quote(s.String()), nil
	}
	return fmt.Sprint(v), nil
}

// Literal renders v as a Postgres literal.
func Literal(v any) (string, error) { return postgres.Literal(v) }

// quote returns s as a string literal of the builder's dialect.
func (b *Builder) quote(s string) string {
	switch {
	case b.dialect == dialect.MySQL:
		return "'" + escapeStringValue(s) + "'"
	case b.dialect == dialect.Postgres && strings.Contains(s, `\`):
		return "E'" + escapeStringValue(s) + "'"
	default:
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
}

// escapeStringValue escapes a string value for safe use in SQL.
// It escapes both single quotes (by doubling) and backslashes.
func escapeStringValue(s string) string {
	// Fast path: if no escaping needed, return as-is
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	// Escape backslashes first, then single quotes
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}
