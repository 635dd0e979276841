package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/privacydb/internal/schema"
)

func TestIntrospect_RoundTripsDefinition(t *testing.T) {
	ctx := context.Background()
	c, err := schema.Default()
	require.NoError(t, err)

	for _, driver := range drivers {
		for _, v := range c.Versions() {
			def, err := c.At(v)
			require.NoError(t, err)

			t.Run(driver, func(t *testing.T) {
				s := createTestStore(t, driver)
				mustExec(t, s, def.Statements()...)

				tables, err := s.Introspect(ctx)
				require.NoError(t, err)
				assert.Equal(t, def.TableNames(), tableNames(tables), "version %d", v)

				for _, got := range tables {
					want, ok := def.Table(got.Name)
					require.True(t, ok)
					assert.Equal(t, want.PrimaryKey, got.PrimaryKey, "%s primary key", got.Name)
					require.Len(t, got.Columns, len(want.Columns), "%s columns", got.Name)
					for i, col := range got.Columns {
						assert.Equal(t, want.Columns[i].Name, col.Name)
						assert.Equal(t, want.Columns[i].Type.Affinity(), string(col.Type))
						assert.Equal(t, want.Columns[i].NotNull, col.NotNull)
						assert.Equal(t, want.Columns[i].Default, col.Default)
					}
					assert.Len(t, got.Indices, len(want.Indices), "%s indices", got.Name)
				}
			})
		}
	}
}

func TestIntrospect_CompositePrimaryKeyOrder(t *testing.T) {
	s := createTestStore(t, DriverMattn)
	mustExec(t, s, "CREATE TABLE `lb` (`domainVisited` TEXT NOT NULL, `networkName` TEXT NOT NULL, PRIMARY KEY(`networkName`, `domainVisited`))")

	tables, err := s.Introspect(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"networkName", "domainVisited"}, tables[0].PrimaryKey)
}

func TestIntrospect_SkipsAutoIndicesAndBookkeeping(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, DriverMattn)
	mustExec(t, s,
		"CREATE TABLE `t` (`id` TEXT NOT NULL, `email` TEXT UNIQUE, PRIMARY KEY(`id`))",
		"CREATE UNIQUE INDEX `idx_t_email_id` ON `t` (`email`, `id`)",
	)
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		return tx.WriteIdentity(ctx, Identity{Version: 1, Hash: "abc"})
	}))

	tables, err := s.Introspect(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "t", tables[0].Name)
	assert.Equal(t, []schema.Index{{Name: "idx_t_email_id", Columns: []string{"email", "id"}, Unique: true}}, tables[0].Indices)

	empty, err := s.IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestIsBookkeeping(t *testing.T) {
	assert.True(t, IsBookkeeping("sqlite_sequence"))
	assert.True(t, IsBookkeeping(MasterTable))
	assert.False(t, IsBookkeeping("tabs"))
}

func tableNames(tables []schema.Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}
