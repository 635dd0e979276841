package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIdentity_AbsentOnFreshStore(t *testing.T) {
	s := createTestStore(t, DriverMattn)
	_, ok, err := s.ReadIdentity(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteIdentity_Upserts(t *testing.T) {
	ctx := context.Background()
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := createTestStore(t, driver)

			require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
				return tx.WriteIdentity(ctx, Identity{Version: 4, Hash: "h4"})
			}))
			require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
				return tx.WriteIdentity(ctx, Identity{Version: 5, Hash: "h5"})
			}))

			id, ok, err := s.ReadIdentity(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, Identity{Version: 5, Hash: "h5"}, id)

			var rows int
			require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM privacydb_master").Scan(&rows))
			assert.Equal(t, 1, rows)
		})
	}
}
