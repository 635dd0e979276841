package migrate

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner() *Runner {
	return NewRunner(WithLogger(discardLogger()))
}

func mustCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	c, err := schema.Default()
	require.NoError(t, err)
	return c
}

func mustDef(t *testing.T, v schema.Version) schema.Definition {
	t.Helper()
	def, err := mustCatalog(t).At(v)
	require.NoError(t, err)
	return def
}

func mustVersion(t *testing.T, s *store.Store) schema.Version {
	t.Helper()
	v, err := s.Version(context.Background())
	require.NoError(t, err)
	return v
}

func indexOn(name string, cols ...string) schema.Index {
	return schema.Index{Name: name, Columns: cols}
}
