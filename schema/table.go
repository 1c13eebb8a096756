package schema

// Table is the definition of one table: a name and its ordered columns.
type Table struct {
	Name    string
	Columns Columns
}

// NewTable returns a new table with the given name and columns.
func NewTable(name string, cols ...ColumnDescriptor) *Table {
	t := &Table{Name: name}
	for _, c := range cols {
		t.AddColumn(c)
	}
	return t
}

// AddColumn appends a column to the table.
func (t *Table) AddColumn(c ColumnDescriptor) *Table {
	t.Columns = append(t.Columns, c.Descriptor())
	return t
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	return t.Columns.Get(name)
}

// PrimaryKey returns the primary-key columns of the table.
func (t *Table) PrimaryKey() Columns {
	return t.Columns.PrimaryKeys()
}

// References returns the distinct names of the tables referenced by the
// table's foreign keys, in column order.
func (t *Table) References() []string {
	var (
		refs []string
		seen = make(map[string]bool)
	)
	for _, c := range t.Columns {
		for _, fk := range c.ForeignKeys {
			if !seen[fk.Table] {
				seen[fk.Table] = true
				refs = append(refs, fk.Table)
			}
		}
	}
	return refs
}

// Schema is an ordered set of tables.
type Schema struct {
	Tables []*Table
}

// New returns a schema holding the given tables.
func New(tables ...*Table) *Schema {
	return &Schema{Tables: tables}
}

// Add appends a table to the schema.
func (s *Schema) Add(t *Table) *Schema {
	s.Tables = append(s.Tables, t)
	return s
}

// Table returns the table with the given name.
func (s *Schema) Table(name string) (*Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Names returns the table names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}
