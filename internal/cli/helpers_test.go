package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
	"github.com/roach88/privacydb/internal/testutil"
)

// testOptions returns root options isolated from the process environment.
func testOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format:  format,
		DBPath:  filepath.Join(t.TempDir(), "privacy.db"),
		Environ: map[string]string{},
	}
}

// execute runs cmd with args and returns stdout and the command error.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// storeAt creates a store at opts.DBPath fixed at version v and closes it.
func storeAt(t *testing.T, opts *RootOptions, v schema.Version, seed ...string) {
	t.Helper()
	catalog, err := schema.Default()
	require.NoError(t, err)

	s, err := testutil.CreateAt(context.Background(), opts.DBPath, catalog, v, store.Options{})
	require.NoError(t, err)
	testutil.MustSeed(t, s, seed...)
	require.NoError(t, s.Close())
}
