package sql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/tabula/schema"
)

// Op is the kind of a compiled statement.
type Op uint8

// Statement kinds.
const (
	OpRaw Op = iota
	OpCreate
	OpDrop
	OpInsert
	OpUpdate
	OpSelect
	OpDelete
)

var opNames = [...]string{
	OpRaw:    "raw",
	OpCreate: "create",
	OpDrop:   "drop",
	OpInsert: "insert",
	OpUpdate: "update",
	OpSelect: "select",
	OpDelete: "delete",
}

// String returns the lower-case name of the operation.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// ReadOnly reports if statements of this kind never modify data.
func (o Op) ReadOnly() bool {
	return o == OpSelect
}

// Query is a compiled statement: the SQL text, its positional arguments
// and the shape of the rows it returns. A Query holds no connection and
// its accessors return copies, so it can be shared and reused freely.
type Query struct {
	stmts   []string
	args    []any
	columns schema.Columns
	table   string
	op      Op
}

// Raw returns a query for hand-written SQL. Its rows carry no column
// descriptors, so values are decoded by their driver types only.
func Raw(query string, args ...any) Query {
	return Query{
		stmts: []string{query},
		args:  slices.Clone(args),
		op:    OpRaw,
	}
}

// SQL returns the SQL text. Queries made of several statements, like
// table creation with indexes, are joined by new lines.
func (q Query) SQL() string {
	return strings.Join(q.stmts, "\n")
}

// Statements returns the statements of the query, in execution order.
func (q Query) Statements() []string {
	return slices.Clone(q.stmts)
}

// Args returns the positional arguments of the query.
func (q Query) Args() []any {
	return slices.Clone(q.args)
}

// Columns returns the columns of the rows returned by the query.
func (q Query) Columns() schema.Columns {
	return slices.Clone(q.columns)
}

// Table returns the name of the table the query operates on.
func (q Query) Table() string {
	return q.table
}

// Op returns the kind of the query.
func (q Query) Op() Op {
	return q.op
}

// WithColumns returns a copy of q that decodes its rows using the given
// column descriptors.
func (q Query) WithColumns(cols schema.Columns) Query {
	q.columns = slices.Clone(cols)
	return q
}

// WithTable returns a copy of q attributed to the given table. Writes of
// raw queries invalidate cached results of their table only when it is set.
func (q Query) WithTable(table string) Query {
	q.table = table
	return q
}

// String implements fmt.Stringer.
func (q Query) String() string {
	if len(q.args) == 0 {
		return q.SQL()
	}
	return fmt.Sprintf("%s args=%v", q.SQL(), q.args)
}
