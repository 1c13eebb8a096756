package sql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/schema"
	"github.com/syssam/tabula/schema/field"
)

// Builder compiles table definitions and operations into SQL for one
// dialect. Its methods are pure: the same input always yields the same
// SQL text and arguments, and nothing is executed.
type Builder struct {
	dialect string
}

// Dialect returns a Builder for the given dialect.
//
//	sql.Dialect(dialect.MySQL).DropTable(users)
func Dialect(name string) *Builder {
	return &Builder{dialect: name}
}

var postgres = Dialect(dialect.Postgres)

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string {
	return b.dialect
}

// placeholder returns the n-th (1-based) bind parameter.
func (b *Builder) placeholder(n int) string {
	if b.dialect == dialect.MySQL {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// CreateTable returns the statements creating t and the indexes of its
// unique and indexed columns.
func (b *Builder) CreateTable(t *schema.Table) (Query, error) {
	if !dialect.Valid(b.dialect) {
		return Query{}, schema.NewSchemaError(t.Name, "", fmt.Sprintf("unsupported dialect %q", b.dialect), nil)
	}
	var (
		sb      strings.Builder
		clauses = make([]string, 0, len(t.Columns)+1)
	)
	for _, c := range t.Columns {
		clause, err := b.columnClause(t.Name, c)
		if err != nil {
			return Query{}, err
		}
		clauses = append(clauses, clause)
	}
	if pks := t.PrimaryKey(); len(pks) > 0 {
		names := pks.Names()
		clauses = append(clauses, fmt.Sprintf("CONSTRAINT %s_%s_pkey PRIMARY KEY (%s)",
			t.Name, strings.Join(names, "_"), strings.Join(names, ", ")))
	}
	for _, c := range t.Columns {
		for i, fk := range c.ForeignKeys {
			name := t.Name + "_" + c.Name + "_fkey"
			if i > 0 {
				name += strconv.Itoa(i)
			}
			clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s)", name, c.Name, fk.Table, fk.Column)
			if fk.OnUpdate.Renders() {
				clause += " ON UPDATE " + string(fk.OnUpdate)
			}
			if fk.OnDelete.Renders() {
				clause += " ON DELETE " + string(fk.OnDelete)
			}
			clauses = append(clauses, clause)
		}
	}
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(t.Name)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(clauses, ", "))
	sb.WriteString(");")
	stmts := []string{sb.String()}
	for _, c := range t.Columns {
		if !c.Unique && !c.Index {
			continue
		}
		kind, suffix := "INDEX", "index"
		if c.Unique {
			kind, suffix = "UNIQUE INDEX", "uindex"
		}
		exists := " IF NOT EXISTS"
		if b.dialect == dialect.MySQL {
			exists = ""
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %s%s %s_%s_%s ON %s (%s);", kind, exists, t.Name, c.Name, suffix, t.Name, c.Name))
	}
	return Query{stmts: stmts, table: t.Name, op: OpCreate}, nil
}

func (b *Builder) columnClause(table string, c *schema.Column) (string, error) {
	var (
		typ string
		err error
	)
	if c.AutoIncrement {
		typ, err = field.SerialType(c.Type, b.dialect)
	} else {
		typ, err = field.SQLType(c.Type, b.dialect)
	}
	if err != nil {
		return "", schema.NewSchemaError(table, c.Name, "unknown column type", err)
	}
	clause := c.Name + " " + typ
	// A rowid alias is assigned when NULL is inserted; NOT NULL is implied.
	if c.IsNotNull() && !(c.AutoIncrement && b.dialect == dialect.SQLite) {
		clause += " NOT NULL"
	}
	if c.Default != nil {
		lit, err := b.defaultLiteral(c)
		if err != nil {
			return "", schema.NewSchemaError(table, c.Name, "invalid default value", err)
		}
		clause += " DEFAULT " + lit
	}
	return clause, nil
}

// defaultLiteral renders the default of c. Postgres array columns take an
// array literal instead of JSON text.
func (b *Builder) defaultLiteral(c *schema.Column) (string, error) {
	if _, ok := c.Default.(schema.Func); !ok && b.dialect == dialect.Postgres && c.Type != nil && c.Type.Kind() == field.KindCollection {
		v, err := pq.Array(c.Default).Value()
		if err != nil {
			return "", err
		}
		s, _ := v.(string)
		return b.quote(s), nil
	}
	return b.Literal(c.Default)
}

// DropTable returns the statement dropping t.
func (b *Builder) DropTable(t *schema.Table) Query {
	return Query{stmts: []string{"DROP TABLE " + t.Name + ";"}, table: t.Name, op: OpDrop}
}

// Insert returns an INSERT of one row with the given columns and values.
//
//	INSERT INTO t (a, b) VALUES ($1, $2)
func (b *Builder) Insert(t *schema.Table, columns []string, values []any) (Query, error) {
	cols, err := b.resolve(t, columns)
	if err != nil {
		return Query{}, err
	}
	if len(cols) == 0 {
		return Query{}, schema.NewSchemaError(t.Name, "", "insert requires at least one column", nil)
	}
	if len(values) != len(cols) {
		return Query{}, schema.NewSchemaError(t.Name, "", fmt.Sprintf("insert has %d columns but %d values", len(cols), len(values)), nil)
	}
	args, err := bindArgs(t.Name, cols, values)
	if err != nil {
		return Query{}, err
	}
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = b.placeholder(i + 1)
	}
	text := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, strings.Join(cols.Names(), ", "), strings.Join(marks, ", "))
	return Query{stmts: []string{text}, args: args, table: t.Name, op: OpInsert}, nil
}

// Update returns an UPDATE setting the set columns on the rows matching all
// where columns. Placeholders are numbered through SET and then WHERE.
//
//	UPDATE t SET a=$1, b=$2 WHERE c=$3 AND d=$4
func (b *Builder) Update(t *schema.Table, set, where []string, setValues, whereValues []any) (Query, error) {
	setCols, err := b.lookup(t, set)
	if err != nil {
		return Query{}, err
	}
	whereCols, err := b.lookup(t, where)
	if err != nil {
		return Query{}, err
	}
	if len(setCols) == 0 {
		return Query{}, schema.NewSchemaError(t.Name, "", "update requires at least one column to set", nil)
	}
	if len(setValues) != len(setCols) || len(whereValues) != len(whereCols) {
		return Query{}, schema.NewSchemaError(t.Name, "", fmt.Sprintf("update has %d+%d columns but %d+%d values",
			len(setCols), len(whereCols), len(setValues), len(whereValues)), nil)
	}
	setArgs, err := bindArgs(t.Name, setCols, setValues)
	if err != nil {
		return Query{}, err
	}
	whereArgs, err := bindArgs(t.Name, whereCols, whereValues)
	if err != nil {
		return Query{}, err
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(t.Name)
	sb.WriteString(" SET ")
	for i, c := range setCols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name + "=" + b.placeholder(i+1))
	}
	for i, c := range whereCols {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(c.Name + "=" + b.placeholder(len(setCols)+i+1))
	}
	return Query{
		stmts: []string{sb.String()},
		args:  append(setArgs, whereArgs...),
		table: t.Name,
		op:    OpUpdate,
	}, nil
}

// SelectAll returns a SELECT of the given columns of every row. No columns
// or "*" selects all columns.
//
//	SELECT a, b FROM t;
func (b *Builder) SelectAll(t *schema.Table, columns []string) (Query, error) {
	return b.Select(t, columns, nil, nil)
}

// Select returns a SELECT of the given columns of the rows matching all
// where columns.
//
//	SELECT a, b FROM t WHERE (c=$1) AND (d=$2);
func (b *Builder) Select(t *schema.Table, columns, where []string, whereValues []any) (Query, error) {
	star := len(columns) == 0 || len(columns) == 1 && columns[0] == "*"
	cols, err := b.resolve(t, columns)
	if err != nil {
		return Query{}, err
	}
	whereCols, whereArgs, err := b.where(t, where, whereValues)
	if err != nil {
		return Query{}, err
	}
	list := "*"
	if !star {
		list = strings.Join(cols.Names(), ", ")
	}
	text := "SELECT " + list + " FROM " + t.Name + b.whereClause(whereCols, 1) + ";"
	return Query{stmts: []string{text}, args: whereArgs, columns: cols, table: t.Name, op: OpSelect}, nil
}

// Delete returns a DELETE of the rows matching all where columns. With no
// where columns every row is deleted.
//
//	DELETE FROM t WHERE (a=$1) AND (b=$2);
func (b *Builder) Delete(t *schema.Table, where []string, whereValues []any) (Query, error) {
	whereCols, whereArgs, err := b.where(t, where, whereValues)
	if err != nil {
		return Query{}, err
	}
	text := "DELETE FROM " + t.Name + b.whereClause(whereCols, 1) + ";"
	return Query{stmts: []string{text}, args: whereArgs, table: t.Name, op: OpDelete}, nil
}

func (b *Builder) where(t *schema.Table, where []string, values []any) (schema.Columns, []any, error) {
	if len(where) == 0 {
		if len(values) != 0 {
			return nil, nil, schema.NewSchemaError(t.Name, "", fmt.Sprintf("%d where values without columns", len(values)), nil)
		}
		return nil, nil, nil
	}
	cols, err := b.lookup(t, where)
	if err != nil {
		return nil, nil, err
	}
	if len(values) != len(cols) {
		return nil, nil, schema.NewSchemaError(t.Name, "", fmt.Sprintf("%d where columns but %d values", len(cols), len(values)), nil)
	}
	args, err := bindArgs(t.Name, cols, values)
	if err != nil {
		return nil, nil, err
	}
	return cols, args, nil
}

func (b *Builder) whereClause(cols schema.Columns, start int) string {
	if len(cols) == 0 {
		return ""
	}
	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = "(" + c.Name + "=" + b.placeholder(start+i) + ")"
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// resolve returns the named columns of t, or all of them for no names or "*".
func (b *Builder) resolve(t *schema.Table, names []string) (schema.Columns, error) {
	if len(names) == 0 || len(names) == 1 && names[0] == "*" {
		return t.Columns, nil
	}
	return b.lookup(t, names)
}

// lookup returns exactly the named columns of t.
func (b *Builder) lookup(t *schema.Table, names []string) (schema.Columns, error) {
	cols := make(schema.Columns, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, schema.NewSchemaError(t.Name, n, "unknown column", nil)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// bindArgs returns the values as bind arguments. JSON values that are not
// text already are encoded.
func bindArgs(table string, cols schema.Columns, values []any) ([]any, error) {
	args := make([]any, len(values))
	for i, v := range values {
		if v == nil || !cols[i].IsJSON() {
			args[i] = v
			continue
		}
		switch v := v.(type) {
		case string, []byte, json.RawMessage:
			args[i] = v
		default:
			buf, err := json.Marshal(v)
			if err != nil {
				return nil, schema.NewSchemaError(table, cols[i].Name, "encode json value", err)
			}
			args[i] = string(buf)
		}
	}
	return args, nil
}

// CreateTable returns the Postgres statements creating t.
func CreateTable(t *schema.Table) (Query, error) { return postgres.CreateTable(t) }

// DropTable returns the Postgres statement dropping t.
func DropTable(t *schema.Table) Query { return postgres.DropTable(t) }

// Insert returns a Postgres INSERT.
func Insert(t *schema.Table, columns []string, values []any) (Query, error) {
	return postgres.Insert(t, columns, values)
}

// Update returns a Postgres UPDATE.
func Update(t *schema.Table, set, where []string, setValues, whereValues []any) (Query, error) {
	return postgres.Update(t, set, where, setValues, whereValues)
}

// SelectAll returns a Postgres SELECT of every row.
func SelectAll(t *schema.Table, columns []string) (Query, error) {
	return postgres.SelectAll(t, columns)
}

// Select returns a Postgres SELECT.
func Select(t *schema.Table, columns, where []string, whereValues []any) (Query, error) {
	return postgres.Select(t, columns, where, whereValues)
}

// Delete returns a Postgres DELETE.
func Delete(t *schema.Table, where []string, whereValues []any) (Query, error) {
	return postgres.Delete(t, where, whereValues)
}
