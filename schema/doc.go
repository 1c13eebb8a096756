// Package schema describes relational tables: ordered columns with their
// types, defaults, nullability, keys, indexes and foreign keys.
//
// Tables are built in Go,
//
//	users := schema.NewTable("users",
//		schema.Serial("id").PrimaryKey(),
//		schema.Col("email", field.TypeVarchar).NotNull().Unique(),
//		schema.Col("created_at", field.TypeTimestampTZ).Default(schema.Func("now()")),
//	)
//
// or loaded from YAML with Load and LoadFile. Descriptors are plain values
// and are not modified by the packages that compile them.
package schema
