package gen

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/tabula/graph"
	"github.com/syssam/tabula/schema"
)

const schemaPkg = "github.com/syssam/tabula/schema"

// File is a generated source file.
type File struct {
	Name   string // File name, relative to the target directory
	Source []byte // Unformatted source
}

// Render generates the source files of the schema: one file per table with
// its record struct, and a tables.go file listing the tables in creation
// order. Files are returned in schema order, tables.go last.
func Render(s *schema.Schema, cfg *Config) ([]File, error) {
	if err := schema.ValidateSchema(s).Err(); err != nil {
		return nil, err
	}
	files := make([]File, 0, len(s.Tables)+1)
	seen := make(map[string]string, len(s.Tables))
	for _, t := range s.Tables {
		name := structName(t.Name)
		if prev, ok := seen[name]; ok {
			return nil, generationError(t.Name, "", "name struct", fmt.Errorf("struct %s is also generated for table %s", name, prev))
		}
		seen[name] = t.Name
		f, err := renderTable(cfg, t)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	f, err := renderTables(cfg, s)
	if err != nil {
		return nil, err
	}
	return append(files, f), nil
}

func newFile(cfg *Config) *jen.File {
	f := jen.NewFile(cfg.Package)
	if cfg.Header != "" {
		f.HeaderComment(cfg.Header)
	}
	return f
}

func render(f *jen.File, table, name string) (File, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return File{}, generationError(table, name, "render", err)
	}
	return File{Name: name, Source: buf.Bytes()}, nil
}

type recordField struct {
	column  *schema.Column
	name    string
	typ     reflect.Type // host type, without the pointer of optional columns
	pointer bool
}

func recordFields(t *schema.Table) ([]recordField, error) {
	fields := make([]recordField, 0, len(t.Columns))
	names := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		host, err := c.HostType()
		if err != nil {
			return nil, generationError(t.Name, "", "type column "+c.Name, err)
		}
		f := recordField{column: c, name: pascal(c.Name), typ: host}
		if host.Kind() == reflect.Pointer {
			f.typ, f.pointer = host.Elem(), true
		}
		// Interfaces hold nil already.
		if f.typ.Kind() == reflect.Interface {
			f.pointer = false
		}
		if prev, ok := names[f.name]; ok {
			return nil, generationError(t.Name, "", "name fields", fmt.Errorf("columns %s and %s map to field %s", prev, c.Name, f.name))
		}
		names[f.name] = c.Name
		fields = append(fields, f)
	}
	return fields, nil
}

func renderTable(cfg *Config, t *schema.Table) (File, error) {
	fields, err := recordFields(t)
	if err != nil {
		return File{}, err
	}
	var (
		f      = newFile(cfg)
		name   = structName(t.Name)
		recv   = receiver(name)
		plural = pascal(t.Name)
	)
	// v and x are the locals of the decoding blocks.
	if recv == "v" || recv == "x" {
		recv = "row"
	}

	f.Commentf("%sTable is the name of the %q table.", plural, t.Name)
	f.Const().Id(plural + "Table").Op("=").Lit(t.Name)

	f.Commentf("Columns of the %q table.", t.Name)
	f.Const().DefsFunc(func(g *jen.Group) {
		for _, fd := range fields {
			g.Id(name + "Column" + fd.name).Op("=").Lit(fd.column.Name)
		}
	})

	f.Commentf("%sColumns lists the columns of the %q table in creation order.", name, t.Name)
	f.Var().Id(name + "Columns").Op("=").Index().String().ValuesFunc(func(g *jen.Group) {
		for _, fd := range fields {
			g.Id(name + "Column" + fd.name)
		}
	})

	f.Commentf("%s is a row of the %q table.", name, t.Name)
	f.Type().Id(name).StructFunc(func(g *jen.Group) {
		for _, fd := range fields {
			typ := typeCode(fd.typ)
			if fd.pointer {
				typ = jen.Op("*").Add(typ)
			}
			tags := map[string]string{"db": fd.column.Name, "json": fd.column.Name}
			if fd.pointer || fd.typ.Kind() == reflect.Interface {
				tags["json"] += ",omitempty"
			}
			g.Id(fd.name).Add(typ).Tag(tags)
		}
	})

	f.Commentf("%sFromRecord copies the values of a decoded %q row into a %s.", name, t.Name, name)
	f.Func().Id(name+"FromRecord").Params(jen.Id("rec").Qual(schemaPkg, "Record")).Params(jen.Op("*").Id(name), jen.Error()).BlockFunc(func(g *jen.Group) {
		g.Id(recv).Op(":=").Op("&").Id(name).Values()
		for _, fd := range fields {
			g.If(jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("rec").Index(jen.Lit(fd.column.Name)), jen.Id("ok").Op("&&").Id("v").Op("!=").Nil()).BlockFunc(func(b *jen.Group) {
				if fd.typ.Kind() == reflect.Interface {
					b.Id(recv).Dot(fd.name).Op("=").Id("v")
					return
				}
				b.List(jen.Id("x"), jen.Id("ok")).Op(":=").Id("v").Assert(typeCode(fd.typ))
				b.If(jen.Op("!").Id("ok")).Block(
					jen.Return(jen.Nil(), jen.Qual("fmt", "Errorf").Call(jen.Lit(t.Name+"."+fd.column.Name+": unexpected type %T"), jen.Id("v"))),
				)
				if fd.pointer {
					b.Id(recv).Dot(fd.name).Op("=").Op("&").Id("x")
				} else {
					b.Id(recv).Dot(fd.name).Op("=").Id("x")
				}
			})
		}
		g.Return(jen.Id(recv), jen.Nil())
	})

	f.Commentf("%sFromRecords copies the values of decoded %q rows.", plural, t.Name)
	f.Func().Id(plural+"FromRecords").Params(jen.Id("recs").Index().Qual(schemaPkg, "Record")).Params(jen.Index().Op("*").Id(name), jen.Error()).Block(
		jen.Id("out").Op(":=").Make(jen.Index().Op("*").Id(name), jen.Lit(0), jen.Len(jen.Id("recs"))),
		jen.For(jen.List(jen.Id("_"), jen.Id("rec")).Op(":=").Range().Id("recs")).Block(
			jen.List(jen.Id(recv), jen.Err()).Op(":=").Id(name+"FromRecord").Call(jen.Id("rec")),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
			jen.Id("out").Op("=").Append(jen.Id("out"), jen.Id(recv)),
		),
		jen.Return(jen.Id("out"), jen.Nil()),
	)

	return render(f, t.Name, strings.ToLower(t.Name)+".go")
}

func renderTables(cfg *Config, s *schema.Schema) (File, error) {
	order, err := graph.Sort(s.Names(), func(name string) []string {
		t, _ := s.Table(name)
		return t.References()
	})
	if err != nil {
		return File{}, generationError("", "tables.go", "order tables", err)
	}
	f := newFile(cfg)
	f.Comment("Tables lists the tables in creation order: every table comes after")
	f.Comment("the tables it references.")
	f.Var().Id("Tables").Op("=").Index().String().ValuesFunc(func(g *jen.Group) {
		for _, name := range order {
			g.Lit(name)
		}
	})
	return render(f, "", "tables.go")
}

// typeCode returns the code of a Go type.
func typeCode(t reflect.Type) jen.Code {
	if t.Name() != "" {
		if t.PkgPath() != "" {
			return jen.Qual(t.PkgPath(), t.Name())
		}
		// Predeclared types.
		return jen.Id(t.Name())
	}
	switch t.Kind() {
	case reflect.Pointer:
		return jen.Op("*").Add(typeCode(t.Elem()))
	case reflect.Slice:
		return jen.Index().Add(typeCode(t.Elem()))
	case reflect.Array:
		return jen.Index(jen.Lit(t.Len())).Add(typeCode(t.Elem()))
	case reflect.Map:
		return jen.Map(typeCode(t.Key())).Add(typeCode(t.Elem()))
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return jen.Any()
		}
	}
	// Unnamed structs and other literal types.
	return jen.Id(t.String())
}
