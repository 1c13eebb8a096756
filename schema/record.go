package schema

import "sort"

// Record is one decoded result row keyed by column name. Absent values of
// nullable columns are stored as nil.
type Record map[string]any

// Keys returns the keys of the record in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value is one column/value pair of Values.
type Value struct {
	Column string
	Value  any
}

// Values is an ordered list of column/value pairs, used where the order of
// the columns matters, as in inserts built from objects.
type Values []Value

// Columns returns the column names in order.
func (vs Values) Columns() []string {
	cols := make([]string, len(vs))
	for i, v := range vs {
		cols[i] = v.Column
	}
	return cols
}

// Args returns the values in order.
func (vs Values) Args() []any {
	args := make([]any, len(vs))
	for i, v := range vs {
		args[i] = v.Value
	}
	return args
}

// Set sets the value of a column, appending it if absent.
func (vs Values) Set(column string, v any) Values {
	for i := range vs {
		if vs[i].Column == column {
			vs[i].Value = v
			return vs
		}
	}
	return append(vs, Value{Column: column, Value: v})
}
