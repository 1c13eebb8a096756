package tabula

import (
	"slices"

	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/graph"
	"github.com/syssam/tabula/schema"
)

// Catalog holds the tables of a whole schema and compiles the statements
// that create and drop all of them in dependency order.
type Catalog struct {
	schema *schema.Schema
	tables []*Table
	byName map[string]*Table
}

// NewCatalog validates the schema, foreign key targets included, and
// returns its catalog.
func NewCatalog(s *schema.Schema, opts ...TableOption) (*Catalog, error) {
	cfg, err := newTableConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateSchema(s).Err(); err != nil {
		return nil, err
	}
	b := sql.Dialect(cfg.dialect)
	c := &Catalog{schema: s, byName: make(map[string]*Table, len(s.Tables))}
	for _, desc := range s.Tables {
		t := &Table{desc: desc, builder: b}
		c.tables = append(c.tables, t)
		c.byName[desc.Name] = t
	}
	return c, nil
}

// Schema returns the schema descriptor of the catalog.
func (c *Catalog) Schema() *schema.Schema { return c.schema }

// Table returns the table with the given name.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Tables returns the tables in schema order.
func (c *Catalog) Tables() []*Table {
	return slices.Clone(c.tables)
}

// Order returns the table names ordered so that every table comes after
// the tables it references. Ties keep the schema order.
func (c *Catalog) Order() ([]string, error) {
	return graph.Sort(c.schema.Names(), func(name string) []string {
		return c.byName[name].desc.References()
	})
}

// CreateAll returns the CREATE statements of every table in dependency
// order.
func (c *Catalog) CreateAll() ([]sql.Query, error) {
	order, err := c.Order()
	if err != nil {
		return nil, err
	}
	qs := make([]sql.Query, 0, len(order))
	for _, name := range order {
		q, err := c.byName[name].Create()
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return qs, nil
}

// DropAll returns the DROP statements of every table, referencing tables
// first.
func (c *Catalog) DropAll() ([]sql.Query, error) {
	order, err := c.Order()
	if err != nil {
		return nil, err
	}
	qs := make([]sql.Query, 0, len(order))
	for _, name := range slices.Backward(order) {
		qs = append(qs, c.byName[name].Drop())
	}
	return qs, nil
}
