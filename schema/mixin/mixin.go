// Package mixin provides reusable sets of columns that can be applied to
// multiple table definitions.
//
// Creating Custom Mixins:
//
// To create a custom mixin, embed Schema and override Columns:
//
//	type Audit struct {
//	    mixin.Schema
//	}
//
//	func (Audit) Columns() []schema.ColumnDescriptor {
//	    return []schema.ColumnDescriptor{
//	        schema.Col("created_by", field.TypeText),
//	        schema.Col("updated_by", field.TypeText),
//	    }
//	}
//
// Using Mixins:
//
//	users := mixin.Apply(schema.NewTable("users",
//	    schema.Col("email", field.TypeVarchar).NotNull(),
//	), mixin.ID{}, mixin.Time{})
package mixin

import (
	"github.com/syssam/tabula/schema"
	"github.com/syssam/tabula/schema/field"
)

// Mixin is a reusable set of columns.
type Mixin interface {
	Columns() []schema.ColumnDescriptor
	// Leading reports if the columns go before the table's own columns.
	Leading() bool
}

// Schema is the default implementation for the Mixin interface.
// It should be embedded in all custom mixin definitions.
type Schema struct{}

// Columns returns the columns of the mixin.
func (Schema) Columns() []schema.ColumnDescriptor { return nil }

// Leading returns false; mixin columns are appended by default.
func (Schema) Leading() bool { return false }

var _ Mixin = (*Schema)(nil)

// Apply adds the columns of the mixins to t, in order. Columns of leading
// mixins are placed before the table's own columns. Columns already
// defined by the table are kept as defined.
func Apply(t *schema.Table, mixins ...Mixin) *schema.Table {
	var head, tail schema.Columns
	for _, m := range mixins {
		for _, d := range m.Columns() {
			c := d.Descriptor()
			if _, ok := t.Column(c.Name); ok {
				continue
			}
			if m.Leading() {
				head = append(head, c)
			} else {
				tail = append(tail, c)
			}
		}
	}
	cols := make(schema.Columns, 0, len(head)+len(t.Columns)+len(tail))
	cols = append(cols, head...)
	cols = append(cols, t.Columns...)
	t.Columns = append(cols, tail...)
	return t
}

// ID adds an auto-increment integer primary key named id.
type ID struct {
	Schema
	// BigInt selects a 64-bit key.
	BigInt bool
}

// Columns returns the id column.
func (m ID) Columns() []schema.ColumnDescriptor {
	b := schema.Serial("id").PrimaryKey()
	if m.BigInt {
		b = schema.Col("id", field.TypeBigInt).PrimaryKey().AutoIncrement()
	}
	return []schema.ColumnDescriptor{b}
}

// Leading returns true.
func (ID) Leading() bool { return true }

// UUID adds a UUID primary key named id generated by the database.
type UUID struct {
	Schema
}

// Columns returns the id column.
func (UUID) Columns() []schema.ColumnDescriptor {
	return []schema.ColumnDescriptor{
		schema.Col("id", field.TypeUUID).PrimaryKey().Default(schema.Func("gen_random_uuid()")),
	}
}

// Leading returns true.
func (UUID) Leading() bool { return true }

// Time adds created_at and updated_at timestamp columns, both set by the
// database on insert.
type Time struct {
	Schema
}

// Columns returns the time tracking columns.
func (Time) Columns() []schema.ColumnDescriptor {
	return append(CreateTime{}.Columns(), UpdateTime{}.Columns()...)
}

// CreateTime adds only the created_at column.
type CreateTime struct {
	Schema
}

// Columns returns the created_at column.
func (CreateTime) Columns() []schema.ColumnDescriptor {
	return []schema.ColumnDescriptor{
		schema.Col("created_at", field.TypeTimestampTZ).NotNull().Default(schema.Func("CURRENT_TIMESTAMP")),
	}
}

// UpdateTime adds only the updated_at column.
type UpdateTime struct {
	Schema
}

// Columns returns the updated_at column.
func (UpdateTime) Columns() []schema.ColumnDescriptor {
	return []schema.ColumnDescriptor{
		schema.Col("updated_at", field.TypeTimestampTZ).NotNull().Default(schema.Func("CURRENT_TIMESTAMP")),
	}
}

// SoftDelete adds a nullable deleted_at column.
type SoftDelete struct {
	Schema
}

// Columns returns the soft delete column.
func (SoftDelete) Columns() []schema.ColumnDescriptor {
	return []schema.ColumnDescriptor{
		schema.Col("deleted_at", field.TypeTimestampTZ).Nullable(),
	}
}

// TimeSoftDelete combines Time and SoftDelete.
type TimeSoftDelete struct {
	Schema
}

// Columns returns all timestamp and soft delete columns.
func (TimeSoftDelete) Columns() []schema.ColumnDescriptor {
	return append(Time{}.Columns(), SoftDelete{}.Columns()...)
}
