package tabula

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/schema"
)

// TableOption configures a Table or a Catalog.
type TableOption func(*tableConfig)

type tableConfig struct {
	dialect string
}

// WithDialect sets the SQL dialect the statements are compiled for.
// The default is Postgres.
func WithDialect(name string) TableOption {
	return func(c *tableConfig) {
		c.dialect = name
	}
}

func newTableConfig(opts []TableOption) (*tableConfig, error) {
	cfg := &tableConfig{dialect: dialect.Postgres}
	for _, opt := range opts {
		opt(cfg)
	}
	if !dialect.Valid(cfg.dialect) {
		return nil, schema.NewSchemaError("", "", fmt.Sprintf("unsupported dialect %q", cfg.dialect), nil)
	}
	return cfg, nil
}

// Table compiles the statements of one table. All of its methods are pure:
// they return queries and never touch a database.
type Table struct {
	desc    *schema.Table
	builder *sql.Builder
}

// NewTable validates the table descriptor and returns its handle. Foreign
// keys are not resolved against their target tables; use a Catalog for that.
func NewTable(desc *schema.Table, opts ...TableOption) (*Table, error) {
	cfg, err := newTableConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateTable(desc).Err(); err != nil {
		return nil, err
	}
	return &Table{desc: desc, builder: sql.Dialect(cfg.dialect)}, nil
}

// Name returns the name of the table.
func (t *Table) Name() string { return t.desc.Name }

// Descriptor returns the table descriptor.
func (t *Table) Descriptor() *schema.Table { return t.desc }

// Columns returns the columns of the table.
func (t *Table) Columns() schema.Columns { return t.desc.Columns }

// Dialect returns the dialect the statements are compiled for.
func (t *Table) Dialect() string { return t.builder.Dialect() }

// Create returns the statements creating the table and its indexes.
func (t *Table) Create() (sql.Query, error) {
	return t.builder.CreateTable(t.desc)
}

// Drop returns the statement dropping the table.
func (t *Table) Drop() sql.Query {
	return t.builder.DropTable(t.desc)
}

// Insert returns a function compiling an insert of the given columns.
// No columns or "*" inserts every column.
//
//	q, err := users.Insert("name", "email")("a8m", "a8m@example.com")
func (t *Table) Insert(columns ...string) func(values ...any) (sql.Query, error) {
	return func(values ...any) (sql.Query, error) {
		return t.builder.Insert(t.desc, columns, values)
	}
}

// InsertFromObject compiles an insert of the columns present in obj, in
// their order:
//
//   - schema.Values: in the order of the pairs
//   - a struct or a pointer to one: in field declaration order, named by the
//     db tag or the snake_case field name; fields tagged "-" are skipped
//   - a map with string keys: in sorted key order
//
// nil values are kept and inserted as NULL.
func (t *Table) InsertFromObject(obj any) (sql.Query, error) {
	values, err := objectValues(obj)
	if err != nil {
		return sql.Query{}, schema.NewSchemaError(t.desc.Name, "", "insert object", err)
	}
	if len(values) == 0 {
		return sql.Query{}, schema.NewSchemaError(t.desc.Name, "", "insert object has no columns", nil)
	}
	return t.builder.Insert(t.desc, values.Columns(), values.Args())
}

// Update returns a function compiling an update of the set columns on the
// rows matching the where columns.
func (t *Table) Update(set, where []string) func(setValues, whereValues []any) (sql.Query, error) {
	return func(setValues, whereValues []any) (sql.Query, error) {
		return t.builder.Update(t.desc, set, where, setValues, whereValues)
	}
}

// Select returns a function compiling a select of the given columns of the
// rows matching the where columns. nil or "*" selects all columns.
func (t *Table) Select(columns []string, where ...string) func(whereValues ...any) (sql.Query, error) {
	return func(whereValues ...any) (sql.Query, error) {
		return t.builder.Select(t.desc, columns, where, whereValues)
	}
}

// SelectAll compiles a select of the given columns of every row.
func (t *Table) SelectAll(columns ...string) (sql.Query, error) {
	return t.builder.SelectAll(t.desc, columns)
}

// Delete returns a function compiling a delete of the rows matching the
// where columns.
func (t *Table) Delete(where ...string) func(whereValues ...any) (sql.Query, error) {
	return func(whereValues ...any) (sql.Query, error) {
		return t.builder.Delete(t.desc, where, whereValues)
	}
}

func objectValues(obj any) (schema.Values, error) {
	switch obj := obj.(type) {
	case nil:
		return nil, fmt.Errorf("nil object")
	case schema.Values:
		return obj, nil
	case schema.Record:
		return mapValues(reflect.ValueOf(map[string]any(obj)))
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		var values schema.Values
		structValues(rv, &values)
		return values, nil
	case reflect.Map:
		return mapValues(rv)
	}
	return nil, fmt.Errorf("unsupported object type %T", obj)
}

func mapValues(rv reflect.Value) (schema.Values, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("map keys must be strings, got %s", rv.Type().Key())
	}
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	values := make(schema.Values, 0, len(keys))
	for _, k := range keys {
		v := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
		values = append(values, schema.Value{Column: k, Value: fieldValue(v)})
	}
	return values, nil
}

func structValues(rv reflect.Value, values *schema.Values) {
	typ := rv.Type()
	for i := range typ.NumField() {
		f := typ.Field(i)
		tag, hasTag := f.Tag.Lookup("db")
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if f.Anonymous && !hasTag {
			fv := rv.Field(i)
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				structValues(fv, values)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = inflect.Underscore(f.Name)
		}
		*values = values.Set(name, fieldValue(rv.Field(i)))
	}
}

// fieldValue returns the value of v, with nil pointers and interfaces
// as nil and other pointers dereferenced.
func fieldValue(v reflect.Value) any {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}
