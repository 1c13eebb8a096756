package tabula

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/syssam/tabula/schema"
	"github.com/syssam/tabula/schema/field"
)

// Codec converts values returned by a driver into the host type of the
// column they were read from. col is nil for columns the query does not
// describe, like those of raw queries.
type Codec interface {
	Decode(col *schema.Column, v any) (any, error)
}

// DefaultCodec normalizes the values of the supported drivers:
//
//   - dates become YYYY-MM-DD strings, without any timezone shift
//   - timestamps without zone are read as wall clock time in Location
//   - UUIDs become canonical strings
//   - JSON text is decoded into the sample type of the column, if any
//   - Postgres array text is decoded into typed slices
//   - integers and booleans stored by SQLite and MySQL get their host width
type DefaultCodec struct {
	// Location of timestamps without zone. Defaults to UTC.
	Location *time.Location
}

var _ Codec = DefaultCodec{}

func (c DefaultCodec) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Decode implements Codec.
func (c DefaultCodec) Decode(col *schema.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if col == nil {
		return c.decodeRaw(v), nil
	}
	var (
		out any
		err error
	)
	switch ct := col.Type.(type) {
	case nil:
		// Auto-increment column without an explicit type.
		out, err = c.scalar(field.TypeInt, v)
	case field.Type:
		out, err = c.scalar(ct, v)
	case field.Collection:
		out, err = c.collection(ct.Of, v)
	case field.JSONType:
		out, err = c.json(ct, v)
	default:
		err = fmt.Errorf("%w %T", field.ErrUnknownType, ct)
	}
	if err != nil {
		return nil, fmt.Errorf("tabula: decode column %q: %w", col.Name, err)
	}
	return out, nil
}

func (c DefaultCodec) decodeRaw(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case [16]byte:
		return uuid.UUID(v).String()
	default:
		return v
	}
}

func (c DefaultCodec) scalar(t field.Type, v any) (any, error) {
	switch t {
	case field.TypeBigInt:
		return toInt64(v)
	case field.TypeInt:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("value %d overflows integer", n)
		}
		return int32(n), nil
	case field.TypeBool:
		return toBool(v)
	case field.TypeVarchar, field.TypeText:
		return toString(v), nil
	case field.TypeDate:
		return toDate(v)
	case field.TypeTimestamp:
		return c.wallClock(v)
	case field.TypeTimestampTZ:
		return c.instant(v)
	case field.TypeUUID:
		return toUUID(v)
	}
	return nil, fmt.Errorf("%w %d", field.ErrUnknownType, uint8(t))
}

func (c DefaultCodec) collection(elem field.Type, v any) (any, error) {
	var items []any
	switch v := v.(type) {
	case []byte:
		parsed, err := parseArray(elem, v)
		if err != nil {
			return nil, err
		}
		items = parsed
	case string:
		parsed, err := parseArray(elem, []byte(v))
		if err != nil {
			return nil, err
		}
		items = parsed
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("cannot decode %T as %s[]", v, elem)
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}
	typ, err := field.GoType(field.Array(elem))
	if err != nil {
		return nil, err
	}
	out := reflect.MakeSlice(typ, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("NULL element %d in %s[]", i, elem)
		}
		x, err := c.scalar(elem, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = reflect.Append(out, reflect.ValueOf(x))
	}
	return out.Interface(), nil
}

// parseArray parses the Postgres text representation of an array.
func parseArray(elem field.Type, src []byte) ([]any, error) {
	var items []any
	switch {
	case elem.Integer():
		var a pq.Int64Array
		if err := a.Scan(src); err != nil {
			return nil, err
		}
		for _, x := range a {
			items = append(items, x)
		}
	case elem == field.TypeBool:
		var a pq.BoolArray
		if err := a.Scan(src); err != nil {
			return nil, err
		}
		for _, x := range a {
			items = append(items, x)
		}
	default:
		var a pq.StringArray
		if err := a.Scan(src); err != nil {
			return nil, err
		}
		for _, x := range a {
			items = append(items, x)
		}
	}
	return items, nil
}

func (c DefaultCodec) json(ct field.JSONType, v any) (any, error) {
	var data []byte
	switch v := v.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case json.RawMessage:
		data = v
	default:
		sample := ct.Sample()
		if sample == nil || reflect.TypeOf(v) == sample {
			return v, nil
		}
		// Already decoded by the driver, like pgx does for jsonb.
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		data = buf
	}
	sample := ct.Sample()
	if sample == nil {
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	ptr := reflect.New(sample)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func (c DefaultCodec) wallClock(v any) (any, error) {
	t, err := c.parseTime(v)
	if err != nil {
		return nil, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), c.location()), nil
}

func (c DefaultCodec) instant(v any) (any, error) {
	t, err := c.parseTime(v)
	if err != nil {
		return nil, err
	}
	return t.In(c.location()), nil
}

// Layouts of timestamps stored as text, as SQLite and MySQL do.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

func (c DefaultCodec) parseTime(v any) (time.Time, error) {
	var s string
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v != nil {
			return *v, nil
		}
		return time.Time{}, fmt.Errorf("nil time")
	case []byte:
		s = string(v)
	case string:
		s = v
	case int64:
		return time.Unix(v, 0), nil
	default:
		return time.Time{}, fmt.Errorf("cannot decode %T as time", v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, c.location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows bigint", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
			return 0, fmt.Errorf("value %v is not an integer", f)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("cannot decode %T as integer", v)
}

func toBool(v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case []byte:
		return parseBool(string(v))
	case string:
		return parseBool(v)
	}
	n, err := toInt64(v)
	if err != nil {
		return false, fmt.Errorf("cannot decode %T as boolean", v)
	}
	return n != 0, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "1", "y", "yes", "on":
		return true, nil
	case "f", "false", "0", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("cannot parse %q as boolean", s)
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

func toDate(v any) (string, error) {
	switch v := v.(type) {
	case time.Time:
		// The wall date as stored; converting to another zone could move it
		// to the previous or next day.
		return v.Format(time.DateOnly), nil
	case []byte, string:
		s := strings.TrimSpace(toString(v))
		if len(s) >= len(time.DateOnly) {
			if _, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)]); err == nil {
				return s[:len(time.DateOnly)], nil
			}
		}
		return "", fmt.Errorf("cannot parse %q as date", s)
	}
	return "", fmt.Errorf("cannot decode %T as date", v)
}

func toUUID(v any) (string, error) {
	switch v := v.(type) {
	case [16]byte:
		return uuid.UUID(v).String(), nil
	case uuid.UUID:
		return v.String(), nil
	case []byte:
		if len(v) == 16 {
			id, err := uuid.FromBytes(v)
			if err != nil {
				return "", err
			}
			return id.String(), nil
		}
		return toUUID(string(v))
	case string:
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return "", err
		}
		return id.String(), nil
	case fmt.Stringer:
		return toUUID(v.String())
	}
	return "", fmt.Errorf("cannot decode %T as uuid", v)
}
