// Package tabula compiles typed table descriptors into SQL and executes the
// resulting queries.
//
// A Table wraps one schema.Table and compiles its statements; a Catalog
// wraps a whole schema.Schema and orders its CREATE and DROP statements by
// foreign key dependencies:
//
//	users := schema.NewTable("users",
//		schema.Serial("id").PrimaryKey(),
//		schema.Col("email", field.TypeVarchar).NotNull().Unique(),
//	)
//	t, err := tabula.NewTable(users)
//	if err != nil {
//		return err
//	}
//	q, err := t.Insert("email")("a8m@example.com")
//
// A Client executes queries on a dialect.Driver and decodes their rows into
// schema.Record values with a Codec. Transactions run on one connection:
//
//	client := tabula.NewClient(drv, tabula.WithLogger(logger))
//	err := client.Transaction(ctx, func(ctx context.Context, tx *tabula.Tx) error {
//		_, err := tx.Query(ctx, q)
//		return err
//	})
package tabula
