package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/tabula/schema/field"
)

// Load parses a schema from YAML. The document is a mapping of table names
// to mappings of column names to column definitions; mapping order is the
// table and column order.
//
//	users:
//	  id:
//	    type: integer
//	    primaryKey: true
//	    autoIncrement: true
//	  email:
//	    type: varchar
//	    nullable: false
//	    unique: true
//	  created_at:
//	    type: timestamptz
//	    defaultFunc: now()
//	posts:
//	  author_id:
//	    type: integer
//	    foreignKeys:
//	      - {table: users, column: id, onDelete: cascade}
//
// The returned schema is validated.
func Load(data []byte) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewSchemaError("", "", "parse yaml", err)
	}
	s := New()
	if len(doc.Content) == 0 {
		return s, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, NewSchemaError("", "", fmt.Sprintf("line %d: expected a mapping of tables", root.Line), nil)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		t, err := loadTable(root.Content[i].Value, root.Content[i+1])
		if err != nil {
			return nil, err
		}
		s.Add(t)
	}
	if err := ValidateSchema(s).Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads and parses a YAML schema file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tabula: read schema: %w", err)
	}
	return Load(data)
}

type (
	columnSpec struct {
		Type          string    `yaml:"type"`
		PrimaryKey    bool      `yaml:"primaryKey"`
		Default       yaml.Node `yaml:"default"`
		DefaultFunc   string    `yaml:"defaultFunc"`
		Nullable      *bool     `yaml:"nullable"`
		AutoIncrement bool      `yaml:"autoIncrement"`
		ForeignKeys   []fkSpec  `yaml:"foreignKeys"`
		CreateIndex   bool      `yaml:"createIndex"`
		Unique        bool      `yaml:"unique"`
	}
	fkSpec struct {
		Table    string `yaml:"table"`
		Column   string `yaml:"column"`
		OnUpdate string `yaml:"onUpdate"`
		OnDelete string `yaml:"onDelete"`
	}
)

func loadTable(name string, n *yaml.Node) (*Table, error) {
	if n.Kind != yaml.MappingNode {
		return nil, NewSchemaError(name, "", fmt.Sprintf("line %d: expected a mapping of columns", n.Line), nil)
	}
	t := NewTable(name)
	for i := 0; i+1 < len(n.Content); i += 2 {
		c, err := loadColumn(name, n.Content[i].Value, n.Content[i+1])
		if err != nil {
			return nil, err
		}
		t.AddColumn(c)
	}
	return t, nil
}

func loadColumn(table, name string, n *yaml.Node) (*Column, error) {
	var spec columnSpec
	if err := n.Decode(&spec); err != nil {
		return nil, NewSchemaError(table, name, fmt.Sprintf("line %d", n.Line), err)
	}
	c := &Column{
		Name:          name,
		PrimaryKey:    spec.PrimaryKey,
		AutoIncrement: spec.AutoIncrement,
		Index:         spec.CreateIndex,
		Unique:        spec.Unique,
	}
	if spec.Type != "" {
		ct, err := ParseColumnType(spec.Type)
		if err != nil {
			return nil, NewSchemaError(table, name, fmt.Sprintf("line %d: unknown column type", n.Line), err)
		}
		c.Type = ct
	} else if !spec.AutoIncrement {
		return nil, NewSchemaError(table, name, fmt.Sprintf("line %d: missing type", n.Line), nil)
	}
	if spec.Nullable != nil {
		c.Nullable = NotNull
		if *spec.Nullable {
			c.Nullable = Null
		}
	}
	switch {
	case spec.DefaultFunc != "":
		c.Default = Func(spec.DefaultFunc)
	case spec.Default.Kind != 0 && spec.Default.Tag != "!!null":
		var v any
		if err := spec.Default.Decode(&v); err != nil {
			return nil, NewSchemaError(table, name, fmt.Sprintf("line %d: default", spec.Default.Line), err)
		}
		c.Default = v
	}
	for _, fk := range spec.ForeignKeys {
		onUpdate, ok := ParseReferenceOption(fk.OnUpdate)
		if !ok {
			return nil, NewSchemaError(table, name, fmt.Sprintf("unknown reference option %q", fk.OnUpdate), nil)
		}
		onDelete, ok := ParseReferenceOption(fk.OnDelete)
		if !ok {
			return nil, NewSchemaError(table, name, fmt.Sprintf("unknown reference option %q", fk.OnDelete), nil)
		}
		c.ForeignKeys = append(c.ForeignKeys, ForeignKey{
			Table:    fk.Table,
			Column:   fk.Column,
			OnUpdate: onUpdate,
			OnDelete: onDelete,
		})
	}
	return c, nil
}

// ParseColumnType parses a type name as written in schema files: a scalar
// name, a scalar name followed by "[]", or "json".
func ParseColumnType(s string) (field.ColumnType, error) {
	s = strings.TrimSpace(s)
	switch lower := strings.ToLower(s); {
	case lower == "json" || lower == "jsonb":
		return field.JSON(nil), nil
	case strings.HasSuffix(lower, "[]"):
		t, err := field.ParseType(strings.TrimSuffix(lower, "[]"))
		if err != nil {
			return nil, err
		}
		return field.Array(t), nil
	}
	return field.ParseType(s)
}
