// Package gen generates Go record types from a schema descriptor.
//
// For every table it writes a file with a struct holding one row, the
// table and column names as constants, and functions copying decoded
// schema.Record values into the struct. Columns that may be NULL become
// pointer fields. A tables.go file lists the tables in creation order.
//
//	s, err := schema.LoadFile("schema.yaml")
//	if err != nil {
//		return err
//	}
//	err = gen.Generate(ctx, s, gen.WithTarget("./internal/db"))
//
// Generated files are formatted with goimports.
package gen
