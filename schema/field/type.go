package field

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/syssam/tabula/dialect"
)

// ErrUnknownType is returned for column type tags that cannot be rendered.
var ErrUnknownType = errors.New("unknown column type")

// A Type is a scalar column type.
type Type uint8

// List of scalar column types.
const (
	TypeInvalid Type = iota
	TypeBigInt
	TypeBool
	TypeVarchar
	TypeDate
	TypeInt
	TypeText
	TypeTimestamp
	TypeTimestampTZ
	TypeUUID
	endTypes
)

var typeNames = [...]string{
	TypeInvalid:     "invalid",
	TypeBigInt:      "bigint",
	TypeBool:        "boolean",
	TypeVarchar:     "varchar",
	TypeDate:        "date",
	TypeInt:         "integer",
	TypeText:        "text",
	TypeTimestamp:   "timestamp",
	TypeTimestampTZ: "timestamptz",
	TypeUUID:        "uuid",
}

// ParseType returns the scalar type with the given name. Aliases accepted by
// Postgres ("int", "int4", "int8", "bool", "timestamp with time zone", ...)
// are recognized as well.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bigint", "int8":
		return TypeBigInt, nil
	case "boolean", "bool":
		return TypeBool, nil
	case "varchar", "character varying", "string":
		return TypeVarchar, nil
	case "date":
		return TypeDate, nil
	case "integer", "int", "int4":
		return TypeInt, nil
	case "text":
		return TypeText, nil
	case "timestamp", "timestamp without time zone":
		return TypeTimestamp, nil
	case "timestamptz", "timestamp with time zone":
		return TypeTimestampTZ, nil
	case "uuid":
		return TypeUUID, nil
	}
	return TypeInvalid, fmt.Errorf("%w %q", ErrUnknownType, name)
}

// Valid reports if the given type is a known scalar type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// String returns the lower-case name of the type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Kind implements ColumnType.
func (Type) Kind() Kind { return KindScalar }

// Elem implements ColumnType.
func (t Type) Elem() Type { return t }

// Integer reports if the type is an integer type.
func (t Type) Integer() bool {
	return t == TypeInt || t == TypeBigInt
}

// Temporal reports if the type holds a date or a point in time.
func (t Type) Temporal() bool {
	return t == TypeDate || t == TypeTimestamp || t == TypeTimestampTZ
}

// Kind distinguishes scalar, collection and JSON column types.
type Kind uint8

// Column type kinds.
const (
	KindScalar Kind = iota + 1
	KindCollection
	KindJSON
)

// ColumnType is implemented by Type, Collection and JSONType.
type ColumnType interface {
	// Kind returns the kind of the column type.
	Kind() Kind
	// Elem returns the scalar type for scalars, the element type for
	// collections and TypeInvalid for JSON.
	Elem() Type
	String() string
}

// Collection is an array of a scalar type.
type Collection struct {
	Of Type
}

// Array returns the collection type of t.
func Array(t Type) Collection {
	return Collection{Of: t}
}

// Kind implements ColumnType.
func (Collection) Kind() Kind { return KindCollection }

// Elem implements ColumnType.
func (c Collection) Elem() Type { return c.Of }

// String returns the element name followed by "[]".
func (c Collection) String() string { return c.Of.String() + "[]" }

// JSONType marks a JSON column. The sample value is used only to infer the
// host type of the column; it never reaches the database.
type JSONType struct {
	sample reflect.Type
}

// JSON returns a JSON column type. sample may be nil, in which case values
// are decoded into any.
//
//	field.JSON(map[string]string{})
//	field.JSON([]Tag{})
func JSON(sample any) JSONType {
	if sample == nil {
		return JSONType{}
	}
	return JSONType{sample: reflect.TypeOf(sample)}
}

// Kind implements ColumnType.
func (JSONType) Kind() Kind { return KindJSON }

// Elem implements ColumnType.
func (JSONType) Elem() Type { return TypeInvalid }

// Sample returns the type of the sample value, or nil.
func (j JSONType) Sample() reflect.Type { return j.sample }

// String returns "json".
func (JSONType) String() string { return "json" }

// Check validates a column type tag.
func Check(ct ColumnType) error {
	switch ct := ct.(type) {
	case nil:
		return fmt.Errorf("%w: missing type", ErrUnknownType)
	case Type:
		if !ct.Valid() {
			return fmt.Errorf("%w %d", ErrUnknownType, uint8(ct))
		}
	case Collection:
		if !ct.Of.Valid() {
			return fmt.Errorf("%w: collection of %d", ErrUnknownType, uint8(ct.Of))
		}
	case JSONType:
	default:
		return fmt.Errorf("%w %T", ErrUnknownType, ct)
	}
	return nil
}

// SQLType returns the type token of ct in the given dialect.
func SQLType(ct ColumnType, d string) (string, error) {
	if err := Check(ct); err != nil {
		return "", err
	}
	switch ct := ct.(type) {
	case Type:
		return scalarToken(ct, d)
	case Collection:
		if d != dialect.Postgres {
			return "", fmt.Errorf("%w: collection columns are not supported by %s", ErrUnknownType, d)
		}
		s, err := scalarToken(ct.Of, d)
		if err != nil {
			return "", err
		}
		return strings.ToUpper(s) + "[]", nil
	default:
		if d == dialect.Postgres {
			return "JSONB", nil
		}
		return "JSON", nil
	}
}

func scalarToken(t Type, d string) (string, error) {
	switch d {
	case dialect.Postgres:
		switch t {
		case TypeTimestampTZ:
			return "TIMESTAMP WITH TIME ZONE", nil
		case TypeVarchar:
			return "VARCHAR", nil
		}
	case dialect.MySQL:
		switch t {
		case TypeVarchar:
			return "VARCHAR(255)", nil
		case TypeUUID:
			return "CHAR(36)", nil
		case TypeTimestamp:
			return "DATETIME(3)", nil
		case TypeTimestampTZ:
			return "TIMESTAMP(3)", nil
		case TypeInt:
			return "INT", nil
		}
	case dialect.SQLite:
		switch t {
		case TypeTimestampTZ:
			return "TIMESTAMP", nil
		}
	default:
		return "", fmt.Errorf("%w: unsupported dialect %q", ErrUnknownType, d)
	}
	return strings.ToUpper(t.String()), nil
}

// SerialType returns the auto-increment surrogate rendering for a column of
// type ct. ct may be nil, which means integer.
func SerialType(ct ColumnType, d string) (string, error) {
	t := TypeInt
	if ct != nil {
		st, ok := ct.(Type)
		if !ok || !st.Integer() {
			return "", fmt.Errorf("%w: auto-increment requires an integer type, got %s", ErrUnknownType, ct)
		}
		t = st
	}
	switch d {
	case dialect.Postgres:
		if t == TypeBigInt {
			return "BIGSERIAL", nil
		}
		return "SERIAL", nil
	case dialect.MySQL:
		if t == TypeBigInt {
			return "BIGINT AUTO_INCREMENT", nil
		}
		return "INT AUTO_INCREMENT", nil
	case dialect.SQLite:
		// Only a column declared exactly INTEGER becomes a rowid alias.
		return "INTEGER", nil
	}
	return "", fmt.Errorf("%w: unsupported dialect %q", ErrUnknownType, d)
}

var (
	int32Type  = reflect.TypeOf(int32(0))
	int64Type  = reflect.TypeOf(int64(0))
	boolType   = reflect.TypeOf(false)
	stringType = reflect.TypeOf("")
	timeType   = reflect.TypeOf(time.Time{})
	anyType    = reflect.TypeOf((*any)(nil)).Elem()
)

// GoType returns the non-nullable host type of values stored in a column of
// type ct. A nil ct is treated as integer (auto-increment columns).
func GoType(ct ColumnType) (reflect.Type, error) {
	if ct == nil {
		return int32Type, nil
	}
	if err := Check(ct); err != nil {
		return nil, err
	}
	switch ct := ct.(type) {
	case Type:
		return scalarGoType(ct), nil
	case Collection:
		return reflect.SliceOf(scalarGoType(ct.Of)), nil
	default:
		if s := ct.(JSONType).sample; s != nil {
			return s, nil
		}
		return anyType, nil
	}
}

func scalarGoType(t Type) reflect.Type {
	switch t {
	case TypeBigInt:
		return int64Type
	case TypeInt:
		return int32Type
	case TypeBool:
		return boolType
	case TypeTimestamp, TypeTimestampTZ:
		return timeType
	default:
		// varchar, text, date (YYYY-MM-DD) and uuid (canonical form).
		return stringType
	}
}
