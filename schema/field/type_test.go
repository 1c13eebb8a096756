package field_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/schema/field"
)

func TestSQLType(t *testing.T) {
	tests := []struct {
		ct      field.ColumnType
		dialect string
		want    string
	}{
		{field.TypeBigInt, dialect.Postgres, "BIGINT"},
		{field.TypeBool, dialect.Postgres, "BOOLEAN"},
		{field.TypeVarchar, dialect.Postgres, "VARCHAR"},
		{field.TypeDate, dialect.Postgres, "DATE"},
		{field.TypeInt, dialect.Postgres, "INTEGER"},
		{field.TypeText, dialect.Postgres, "TEXT"},
		{field.TypeTimestamp, dialect.Postgres, "TIMESTAMP"},
		{field.TypeTimestampTZ, dialect.Postgres, "TIMESTAMP WITH TIME ZONE"},
		{field.TypeUUID, dialect.Postgres, "UUID"},
		{field.Array(field.TypeInt), dialect.Postgres, "INTEGER[]"},
		{field.Array(field.TypeText), dialect.Postgres, "TEXT[]"},
		{field.JSON(nil), dialect.Postgres, "JSONB"},
		{field.JSON(map[string]int{}), dialect.Postgres, "JSONB"},
		{field.JSON(nil), dialect.MySQL, "JSON"},
		{field.TypeUUID, dialect.MySQL, "CHAR(36)"},
		{field.TypeVarchar, dialect.MySQL, "VARCHAR(255)"},
		{field.TypeTimestampTZ, dialect.SQLite, "TIMESTAMP"},
		{field.TypeUUID, dialect.SQLite, "UUID"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.ct.String(), func(t *testing.T) {
			got, err := field.SQLType(tt.ct, tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLType_Errors(t *testing.T) {
	for _, ct := range []field.ColumnType{
		nil,
		field.TypeInvalid,
		field.Type(200),
		field.Array(field.TypeInvalid),
	} {
		_, err := field.SQLType(ct, dialect.Postgres)
		require.Error(t, err)
		assert.True(t, errors.Is(err, field.ErrUnknownType))
	}
	_, err := field.SQLType(field.Array(field.TypeInt), dialect.SQLite)
	assert.ErrorIs(t, err, field.ErrUnknownType)
	_, err = field.SQLType(field.TypeInt, "oracle")
	assert.ErrorIs(t, err, field.ErrUnknownType)
}

func TestSerialType(t *testing.T) {
	s, err := field.SerialType(nil, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SERIAL", s)
	s, err = field.SerialType(field.TypeBigInt, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "BIGSERIAL", s)
	s, err = field.SerialType(field.TypeInt, dialect.SQLite)
	require.NoError(t, err)
	assert.Equal(t, "INTEGER", s)
	s, err = field.SerialType(field.TypeInt, dialect.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "INT AUTO_INCREMENT", s)

	_, err = field.SerialType(field.TypeText, dialect.Postgres)
	assert.ErrorIs(t, err, field.ErrUnknownType)
	_, err = field.SerialType(field.Array(field.TypeInt), dialect.Postgres)
	assert.ErrorIs(t, err, field.ErrUnknownType)
}

func TestGoType(t *testing.T) {
	type tag struct{ Name string }
	tests := []struct {
		ct   field.ColumnType
		want reflect.Type
	}{
		{nil, reflect.TypeOf(int32(0))},
		{field.TypeBigInt, reflect.TypeOf(int64(0))},
		{field.TypeInt, reflect.TypeOf(int32(0))},
		{field.TypeBool, reflect.TypeOf(false)},
		{field.TypeVarchar, reflect.TypeOf("")},
		{field.TypeText, reflect.TypeOf("")},
		{field.TypeDate, reflect.TypeOf("")},
		{field.TypeUUID, reflect.TypeOf("")},
		{field.TypeTimestamp, reflect.TypeOf(time.Time{})},
		{field.TypeTimestampTZ, reflect.TypeOf(time.Time{})},
		{field.Array(field.TypeBigInt), reflect.TypeOf([]int64{})},
		{field.JSON([]tag{}), reflect.TypeOf([]tag{})},
		{field.JSON(nil), reflect.TypeOf((*any)(nil)).Elem()},
	}
	for _, tt := range tests {
		got, err := field.GoType(tt.ct)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := field.GoType(field.TypeInvalid)
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	for name, want := range map[string]field.Type{
		"int":                      field.TypeInt,
		"INTEGER":                  field.TypeInt,
		"int8":                     field.TypeBigInt,
		"bool":                     field.TypeBool,
		"character varying":        field.TypeVarchar,
		"timestamp with time zone": field.TypeTimestampTZ,
		"timestamptz":              field.TypeTimestampTZ,
		" uuid ":                   field.TypeUUID,
	} {
		got, err := field.ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := field.ParseType("money")
	assert.ErrorIs(t, err, field.ErrUnknownType)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, field.KindScalar, field.TypeInt.Kind())
	assert.Equal(t, field.KindCollection, field.Array(field.TypeInt).Kind())
	assert.Equal(t, field.TypeInt, field.Array(field.TypeInt).Elem())
	assert.Equal(t, field.KindJSON, field.JSON(nil).Kind())
	assert.Equal(t, "integer[]", field.Array(field.TypeInt).String())
	assert.True(t, field.TypeBigInt.Integer())
	assert.True(t, field.TypeDate.Temporal())
	assert.False(t, field.TypeUUID.Temporal())
	assert.Equal(t, "invalid", field.Type(99).String())
}
