package schema

import (
	"reflect"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/tabula/schema/field"
)

// Func is a database-side expression used as a column default, such as
// Func("now()") or Func("gen_random_uuid()"). It is rendered verbatim.
type Func string

// Nullability is the tri-state nullable flag of a column.
type Nullability uint8

// Nullability values. The zero value leaves the decision to the column's
// other properties.
const (
	NullUnset Nullability = iota
	Null
	NotNull
)

// ReferenceOption for foreign-key actions.
type ReferenceOption string

// Reference options.
const (
	NoAction   ReferenceOption = "NO ACTION"
	Restrict   ReferenceOption = "RESTRICT"
	Cascade    ReferenceOption = "CASCADE"
	SetNull    ReferenceOption = "SET NULL"
	SetDefault ReferenceOption = "SET DEFAULT"
)

// ConstName returns the constant name of a reference option.
func (r ReferenceOption) ConstName() string {
	return strings.ReplaceAll(cases.Title(language.Und).String(string(r)), " ", "")
}

// Valid reports if r is empty or one of the known options.
func (r ReferenceOption) Valid() bool {
	switch r {
	case "", NoAction, Restrict, Cascade, SetNull, SetDefault:
		return true
	}
	return false
}

// Renders reports if the option produces an ON UPDATE / ON DELETE clause.
func (r ReferenceOption) Renders() bool {
	return r == Cascade || r == SetNull || r == SetDefault
}

// ParseReferenceOption parses names such as "cascade", "set null" or
// "SetNull".
func ParseReferenceOption(s string) (ReferenceOption, bool) {
	k := strings.ToLower(strings.NewReplacer(" ", "", "_", "").Replace(s))
	for _, r := range []ReferenceOption{NoAction, Restrict, Cascade, SetNull, SetDefault} {
		if k == strings.ToLower(r.ConstName()) {
			return r, true
		}
	}
	return "", k == ""
}

// ForeignKey references a column of another (or the same) table.
type ForeignKey struct {
	Table    string
	Column   string
	OnUpdate ReferenceOption
	OnDelete ReferenceOption
}

// Column is the definition of one table column.
type Column struct {
	Name string
	// Type may be nil only for auto-increment columns.
	Type          field.ColumnType
	PrimaryKey    bool
	Default       any
	Nullable      Nullability
	AutoIncrement bool
	ForeignKeys   []ForeignKey
	Index         bool
	Unique        bool
}

// Descriptor implements ColumnDescriptor.
func (c *Column) Descriptor() *Column { return c }

// Required reports if values of the column always exist: primary keys,
// columns with a default and columns declared NOT NULL.
func (c *Column) Required() bool {
	return c.PrimaryKey || c.Default != nil || c.Nullable == NotNull
}

// IsNotNull reports if the column is rendered with a NOT NULL constraint.
// A default implies NOT NULL unless the column is explicitly nullable.
func (c *Column) IsNotNull() bool {
	switch {
	case c.PrimaryKey, c.AutoIncrement, c.Nullable == NotNull:
		return true
	case c.Nullable == Null:
		return false
	default:
		return c.Default != nil
	}
}

// HostType returns the Go type of values of the column. Columns that are
// not required get a pointer type.
func (c *Column) HostType() (reflect.Type, error) {
	t, err := field.GoType(c.Type)
	if err != nil {
		return nil, NewSchemaError("", c.Name, "unknown column type", err)
	}
	if !c.Required() {
		t = reflect.PointerTo(t)
	}
	return t, nil
}

// IsJSON reports if the column holds JSON documents.
func (c *Column) IsJSON() bool {
	return c.Type != nil && c.Type.Kind() == field.KindJSON
}

// ColumnDescriptor is implemented by *Column and *Builder.
type ColumnDescriptor interface {
	Descriptor() *Column
}

// Builder builds a Column fluently.
//
//	schema.Col("id", field.TypeInt).PrimaryKey().AutoIncrement()
//	schema.Col("created_at", field.TypeTimestampTZ).Default(schema.Func("now()"))
type Builder struct {
	desc *Column
}

// Col returns a builder for a column with the given name and type.
func Col(name string, t field.ColumnType) *Builder {
	return &Builder{desc: &Column{Name: name, Type: t}}
}

// Serial returns a builder for an auto-increment column without an explicit type.
func Serial(name string) *Builder {
	return &Builder{desc: &Column{Name: name, AutoIncrement: true}}
}

// PrimaryKey marks the column as part of the primary key.
func (b *Builder) PrimaryKey() *Builder {
	b.desc.PrimaryKey = true
	return b
}

// AutoIncrement marks the column as auto-increment.
func (b *Builder) AutoIncrement() *Builder {
	b.desc.AutoIncrement = true
	return b
}

// Default sets the default value, a literal or a Func.
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	return b
}

// Nullable marks the column as explicitly nullable.
func (b *Builder) Nullable() *Builder {
	b.desc.Nullable = Null
	return b
}

// NotNull marks the column as explicitly non-nullable.
func (b *Builder) NotNull() *Builder {
	b.desc.Nullable = NotNull
	return b
}

// Unique adds a unique index on the column.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// Index adds a non-unique index on the column.
func (b *Builder) Index() *Builder {
	b.desc.Index = true
	return b
}

// References adds a foreign key.
func (b *Builder) References(table, column string) *Builder {
	b.desc.ForeignKeys = append(b.desc.ForeignKeys, ForeignKey{Table: table, Column: column})
	return b
}

// OnUpdate sets the update action of the last foreign key.
func (b *Builder) OnUpdate(opt ReferenceOption) *Builder {
	if n := len(b.desc.ForeignKeys); n > 0 {
		b.desc.ForeignKeys[n-1].OnUpdate = opt
	}
	return b
}

// OnDelete sets the delete action of the last foreign key.
func (b *Builder) OnDelete(opt ReferenceOption) *Builder {
	if n := len(b.desc.ForeignKeys); n > 0 {
		b.desc.ForeignKeys[n-1].OnDelete = opt
	}
	return b
}

// Descriptor returns the built column.
func (b *Builder) Descriptor() *Column {
	return b.desc
}

// Columns is an ordered list of columns.
type Columns []*Column

// Get returns the column with the given name.
func (cs Columns) Get(name string) (*Column, bool) {
	for _, c := range cs {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (cs Columns) Names() []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return names
}

// PrimaryKeys returns the primary-key columns in order.
func (cs Columns) PrimaryKeys() Columns {
	var pks Columns
	for _, c := range cs {
		if c.PrimaryKey {
			pks = append(pks, c)
		}
	}
	return pks
}

// Subset returns the named columns in the given order. An empty list or
// the single name "*" returns all columns.
func (cs Columns) Subset(names ...string) (Columns, error) {
	if len(names) == 0 || len(names) == 1 && names[0] == "*" {
		return cs, nil
	}
	sub := make(Columns, 0, len(names))
	for _, n := range names {
		c, ok := cs.Get(n)
		if !ok {
			return nil, NewSchemaError("", n, "unknown column", nil)
		}
		sub = append(sub, c)
	}
	return sub, nil
}
