//go:build integration

package tabula_test

import (
	"context"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/pgxdriver"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/schema"
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/mixin"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("tabula"),
		postgres.WithUsername("tabula"),
		postgres.WithPassword("tabula"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func accountsSchema() *schema.Schema {
	accounts := schema.NewTable("accounts",
		schema.Col("owner", field.TypeText).NotNull(),
		schema.Col("balance", field.TypeBigInt).NotNull().Default(0),
		schema.Col("opened_on", field.TypeDate),
		schema.Col("scores", field.Array(field.TypeInt)),
		schema.Col("labels", field.Array(field.TypeText)),
		schema.Col("meta", field.JSON(profile{})),
	)
	mixin.Apply(accounts, mixin.UUID{}, mixin.Time{})
	transfers := schema.NewTable("transfers",
		schema.Col("account_id", field.TypeUUID).NotNull().References("accounts", "id").OnDelete(schema.Cascade),
		schema.Col("amount", field.TypeBigInt).NotNull(),
	)
	mixin.Apply(transfers, mixin.ID{BigInt: true})
	return schema.New(transfers, accounts)
}

func TestPostgresIntegration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	drivers := map[string]func(t *testing.T) dialect.Driver{
		"pgx": func(t *testing.T) dialect.Driver {
			drv, err := pgxdriver.Open(ctx, pgxdriver.Config{DSN: dsn, MaxConns: 4})
			require.NoError(t, err)
			return drv
		},
		"pq": func(t *testing.T) dialect.Driver {
			drv, err := sql.Open(dialect.Postgres, dsn)
			require.NoError(t, err)
			return drv
		},
	}
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			client := tabula.NewClient(open(t), tabula.WithCache(tabula.NewMemoryCache(), time.Minute))
			defer client.Close()

			cat, err := tabula.NewCatalog(accountsSchema())
			require.NoError(t, err)
			creates, err := cat.CreateAll()
			require.NoError(t, err)
			_, err = client.Batch(ctx, creates...)
			require.NoError(t, err)
			defer func() {
				drops, err := cat.DropAll()
				require.NoError(t, err)
				_, err = client.Batch(ctx, drops...)
				require.NoError(t, err)
			}()

			accounts, _ := cat.Table("accounts")
			transfers, _ := cat.Table("transfers")

			insert, err := accounts.InsertFromObject(schema.Values{
				{Column: "owner", Value: "gopher"},
				{Column: "opened_on", Value: "2024-03-01"},
				{Column: "scores", Value: []int32{3, 1, 2}},
				{Column: "labels", Value: []string{"a", "b c"}},
				{Column: "meta", Value: profile{Bio: "hi"}},
			})
			require.NoError(t, err)
			_, err = client.Query(ctx, insert)
			require.NoError(t, err)

			sel, err := accounts.Select(nil, "owner")("gopher")
			require.NoError(t, err)
			recs, err := client.Query(ctx, sel)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			rec := recs[0]
			assert.Equal(t, "gopher", rec["owner"])
			assert.Equal(t, int64(0), rec["balance"])
			assert.Equal(t, "2024-03-01", rec["opened_on"])
			assert.Equal(t, []int32{3, 1, 2}, rec["scores"])
			assert.Equal(t, []string{"a", "b c"}, rec["labels"])
			assert.Equal(t, profile{Bio: "hi"}, rec["meta"])
			assert.IsType(t, time.Time{}, rec["created_at"])
			id, ok := rec["id"].(string)
			require.True(t, ok)
			assert.Len(t, id, 36)

			move, err := transfers.Insert("account_id", "amount")(id, 100)
			require.NoError(t, err)
			credit, err := accounts.Update([]string{"balance"}, []string{"id"})([]any{100}, []any{id})
			require.NoError(t, err)
			_, err = client.Batch(ctx, move, credit)
			require.NoError(t, err)

			recs, err = client.Query(ctx, sel)
			require.NoError(t, err)
			assert.Equal(t, int64(100), recs[0]["balance"], "cache invalidated by the batch")

			// A discarded connection leaves the pool usable.
			conn, err := client.Driver().Acquire(ctx)
			require.NoError(t, err)
			require.NoError(t, conn.Exec(ctx, "BEGIN", nil))
			require.NoError(t, conn.Discard())
			_, err = client.Batch(ctx, credit)
			require.NoError(t, err)

			_, err = client.Query(ctx, insert)
			require.NoError(t, err)
			dup, err := transfers.Insert("id", "account_id", "amount")(1, id, 5)
			require.NoError(t, err)
			_, err = client.Query(ctx, dup)
			assert.True(t, tabula.IsUniqueViolation(err))
			orphan, err := transfers.Insert("account_id", "amount")("00000000-0000-0000-0000-000000000000", 5)
			require.NoError(t, err)
			_, err = client.Query(ctx, orphan)
			assert.True(t, tabula.IsForeignKeyViolation(err))
		})
	}
}
