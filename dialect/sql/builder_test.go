package sql

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/schema"
	"github.com/syssam/tabula/schema/field"
)

func testTableA() *schema.Table {
	return schema.NewTable("test_table_a",
		schema.Serial("id").PrimaryKey(),
		schema.Col("some_bool", field.TypeBool).Default(false),
		schema.Col("some_str", field.TypeVarchar).Unique(),
		schema.Col("some_uuid", field.TypeUUID).PrimaryKey().Index(),
		schema.Col("some_int_array", field.Array(field.TypeInt)),
		schema.Col("some_date", field.TypeDate).NotNull(),
		schema.Col("some_time", field.TypeTimestampTZ).Default(schema.Func("now()")),
		schema.Col("some_json", field.JSON(map[string]int{})),
	)
}

func testTableB() *schema.Table {
	return schema.NewTable("test_table_b",
		schema.Col("id", field.TypeBigInt).PrimaryKey(),
		schema.Col("a_id", field.TypeInt).
			References("test_table_a", "id").OnUpdate(schema.Cascade).OnDelete(schema.SetNull).
			References("test_table_c", "id").OnDelete(schema.Restrict),
		schema.Col("note", field.TypeText).Default("it's"),
	)
}

func TestCreateTable(t *testing.T) {
	q, err := CreateTable(testTableA())
	require.NoError(t, err)
	assert.Equal(t, OpCreate, q.Op())
	assert.Equal(t, "test_table_a", q.Table())
	assert.Empty(t, q.Args())
	assert.Equal(t, []string{
		"CREATE TABLE IF NOT EXISTS test_table_a (" +
			"id SERIAL NOT NULL, " +
			"some_bool BOOLEAN NOT NULL DEFAULT FALSE, " +
			"some_str VARCHAR, " +
			"some_uuid UUID NOT NULL, " +
			"some_int_array INTEGER[], " +
			"some_date DATE NOT NULL, " +
			"some_time TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(), " +
			"some_json JSONB, " +
			"CONSTRAINT test_table_a_id_some_uuid_pkey PRIMARY KEY (id, some_uuid));",
		"CREATE UNIQUE INDEX IF NOT EXISTS test_table_a_some_str_uindex ON test_table_a (some_str);",
		"CREATE INDEX IF NOT EXISTS test_table_a_some_uuid_index ON test_table_a (some_uuid);",
	}, q.Statements())
	assert.Equal(t, q.Statements()[0]+"\n"+q.Statements()[1]+"\n"+q.Statements()[2], q.SQL())
}

func TestCreateTable_ForeignKeys(t *testing.T) {
	q, err := CreateTable(testTableB())
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS test_table_b ("+
		"id BIGINT NOT NULL, "+
		"a_id INTEGER, "+
		"note TEXT NOT NULL DEFAULT 'it''s', "+
		"CONSTRAINT test_table_b_id_pkey PRIMARY KEY (id), "+
		"CONSTRAINT test_table_b_a_id_fkey FOREIGN KEY (a_id) REFERENCES test_table_a(id) ON UPDATE CASCADE ON DELETE SET NULL, "+
		"CONSTRAINT test_table_b_a_id_fkey1 FOREIGN KEY (a_id) REFERENCES test_table_c(id));", q.SQL())
}

func TestCreateTable_Dialects(t *testing.T) {
	tbl := schema.NewTable("users",
		schema.Serial("id").PrimaryKey(),
		schema.Col("email", field.TypeVarchar).NotNull().Unique(),
		schema.Col("uid", field.TypeUUID).Nullable().Default("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
	)
	q, err := Dialect(dialect.SQLite).CreateTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE IF NOT EXISTS users (id INTEGER, email VARCHAR NOT NULL, uid UUID DEFAULT '6ba7b810-9dad-11d1-80b4-00c04fd430c8', CONSTRAINT users_id_pkey PRIMARY KEY (id));",
		"CREATE UNIQUE INDEX IF NOT EXISTS users_email_uindex ON users (email);",
	}, q.Statements())

	q, err = Dialect(dialect.MySQL).CreateTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE IF NOT EXISTS users (id INT AUTO_INCREMENT NOT NULL, email VARCHAR(255) NOT NULL, uid CHAR(36) DEFAULT '6ba7b810-9dad-11d1-80b4-00c04fd430c8', CONSTRAINT users_id_pkey PRIMARY KEY (id));",
		"CREATE UNIQUE INDEX users_email_uindex ON users (email);",
	}, q.Statements())
}

func TestCreateTable_ArrayDefault(t *testing.T) {
	tbl := schema.NewTable("t",
		schema.Col("tags", field.Array(field.TypeText)).Default([]string{"a", "b c"}),
	)
	q, err := CreateTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS t (tags TEXT[] NOT NULL DEFAULT '{"a","b c"}');`, q.SQL())
}

func TestCreateTable_Errors(t *testing.T) {
	_, err := CreateTable(schema.NewTable("t", schema.Col("a", field.Type(42))))
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
	assert.ErrorIs(t, err, field.ErrUnknownType)

	_, err = CreateTable(schema.NewTable("t", schema.Col("a", field.TypeText).AutoIncrement()))
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)

	_, err = Dialect(dialect.SQLite).CreateTable(schema.NewTable("t", schema.Col("a", field.Array(field.TypeInt))))
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)

	_, err = Dialect("oracle").CreateTable(testTableA())
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
}

func TestDropTable(t *testing.T) {
	q := DropTable(testTableA())
	assert.Equal(t, "DROP TABLE test_table_a;", q.SQL())
	assert.Equal(t, OpDrop, q.Op())
	assert.False(t, q.Op().ReadOnly())
}

func TestInsert(t *testing.T) {
	tbl := testTableA()
	q, err := Insert(tbl, []string{"some_bool", "some_str", "some_json"}, []any{true, "x", map[string]int{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO test_table_a (some_bool, some_str, some_json) VALUES ($1, $2, $3)", q.SQL())
	assert.Equal(t, []any{true, "x", `{"a":1}`}, q.Args())
	assert.Equal(t, OpInsert, q.Op())

	q, err = Dialect(dialect.MySQL).Insert(tbl, []string{"some_bool", "some_json"}, []any{nil, `{"b":2}`})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO test_table_a (some_bool, some_json) VALUES (?, ?)", q.SQL())
	assert.Equal(t, []any{nil, `{"b":2}`}, q.Args())
}

func TestInsert_Errors(t *testing.T) {
	tbl := testTableA()
	_, err := Insert(tbl, []string{"some_bool", "some_str"}, []any{true})
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
	_, err = Insert(tbl, []string{"nope"}, []any{1})
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
	_, err = Insert(tbl, []string{"some_json"}, []any{func() {}})
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
}

func TestUpdate(t *testing.T) {
	tbl := testTableA()
	q, err := Update(tbl, []string{"some_bool", "some_str"}, []string{"id", "some_uuid"},
		[]any{false, "y"}, []any{1, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE test_table_a SET some_bool=$1, some_str=$2 WHERE id=$3 AND some_uuid=$4", q.SQL())
	assert.Equal(t, []any{false, "y", 1, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}, q.Args())

	q, err = Dialect(dialect.MySQL).Update(tbl, []string{"some_str"}, nil, []any{"z"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE test_table_a SET some_str=?", q.SQL())

	_, err = Update(tbl, nil, []string{"id"}, nil, []any{1})
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
	_, err = Update(tbl, []string{"some_str"}, []string{"id"}, []any{"z"}, nil)
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
}

func TestSelect(t *testing.T) {
	tbl := testTableA()
	q, err := SelectAll(tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM test_table_a;", q.SQL())
	assert.Equal(t, tbl.Columns.Names(), q.Columns().Names())
	assert.Equal(t, OpSelect, q.Op())
	assert.True(t, q.Op().ReadOnly())

	q, err = SelectAll(tbl, []string{"some_str", "id"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT some_str, id FROM test_table_a;", q.SQL())
	assert.Equal(t, []string{"some_str", "id"}, q.Columns().Names())

	q, err = Select(tbl, []string{"*"}, []string{"some_bool", "some_str"}, []any{true, "x"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM test_table_a WHERE (some_bool=$1) AND (some_str=$2);", q.SQL())
	assert.Equal(t, []any{true, "x"}, q.Args())

	q, err = Dialect(dialect.MySQL).Select(tbl, []string{"id"}, []string{"some_str"}, []any{"x"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM test_table_a WHERE (some_str=?);", q.SQL())

	_, err = Select(tbl, []string{"id"}, []string{"some_str"}, nil)
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
	_, err = Select(tbl, []string{"missing"}, nil, nil)
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
	_, err = Select(tbl, nil, nil, []any{1})
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
}

func TestDelete(t *testing.T) {
	tbl := testTableA()
	q, err := Delete(tbl, []string{"id", "some_uuid"}, []any{1, "u"})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM test_table_a WHERE (id=$1) AND (some_uuid=$2);", q.SQL())
	assert.Equal(t, []any{1, "u"}, q.Args())
	assert.Equal(t, OpDelete, q.Op())

	q, err = Delete(tbl, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM test_table_a;", q.SQL())
}

func TestQuery_Immutable(t *testing.T) {
	q, err := Insert(testTableA(), []string{"some_str"}, []any{"x"})
	require.NoError(t, err)
	args := q.Args()
	args[0] = "mutated"
	assert.Equal(t, []any{"x"}, q.Args())
	stmts := q.Statements()
	stmts[0] = "DROP TABLE users"
	assert.NotEqual(t, "DROP TABLE users", q.SQL())

	again, err := Insert(testTableA(), []string{"some_str"}, []any{"x"})
	require.NoError(t, err)
	assert.Equal(t, q.SQL(), again.SQL())
	assert.Equal(t, q.Args(), again.Args())
}

func TestRaw(t *testing.T) {
	q := Raw("SELECT now() WHERE $1", true)
	assert.Equal(t, OpRaw, q.Op())
	assert.Equal(t, "SELECT now() WHERE $1 args=[true]", q.String())
	assert.Empty(t, q.Table())
	q = q.WithTable("users").WithColumns(schema.Columns{
		{Name: "now", Type: field.TypeTimestampTZ},
	})
	assert.Equal(t, "users", q.Table())
	assert.Equal(t, []string{"now"}, q.Columns().Names())
	assert.Equal(t, "select", OpSelect.String())
	assert.Equal(t, "op(99)", Op(99).String())
}

type label struct {
	Name string `json:"name"`
}

func (l label) String() string { return "label " + l.Name }

type level string

func TestLiteral(t *testing.T) {
	ts := time.Date(2024, 3, 9, 1, 2, 3, 456789000, time.FixedZone("X", 3600))
	var nilPtr *int
	seven := 7
	tests := []struct {
		dialect string
		in      any
		want    string
	}{
		{dialect.Postgres, nil, "NULL"},
		{dialect.Postgres, nilPtr, "NULL"},
		{dialect.Postgres, &seven, "7"},
		{dialect.Postgres, 42, "42"},
		{dialect.Postgres, 1.5, "1.5"},
		{dialect.Postgres, true, "TRUE"},
		{dialect.Postgres, "it's", "'it''s'"},
		{dialect.Postgres, `a\b`, `E'a\\b'`},
		{dialect.MySQL, `a\b'`, `'a\\b'''`},
		{dialect.SQLite, `a\b'`, `'a\b'''`},
		{dialect.Postgres, ts, "'2024-03-09 00:02:03.456'"},
		{dialect.Postgres, schema.Func("now()"), "now()"},
		{dialect.Postgres, map[string]any{"k": "it's"}, `'{"k":"it''s"}'`},
		{dialect.Postgres, []int{1, 2}, "'[1,2]'"},
		{dialect.Postgres, struct {
			A int `json:"a"`
		}{1}, `'{"a":1}'`},
		{dialect.Postgres, label{Name: "x"}, `'{"name":"x"}'`},
		{dialect.Postgres, time.Second, "1000000000"},
		{dialect.Postgres, uint8(7), "7"},
		{dialect.Postgres, float32(0.25), "0.25"},
		{dialect.Postgres, level("debug"), "'debug'"},
		{dialect.Postgres, uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), "'6ba7b810-9dad-11d1-80b4-00c04fd430c8'"},
	}
	for _, tt := range tests {
		got, err := Dialect(tt.dialect).Literal(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %v", tt.dialect, tt.in)
	}
	_, err := Literal(map[string]any{"f": func() {}})
	assert.Error(t, err)
}
