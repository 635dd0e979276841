package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/privacydb/internal/store"
)

func TestMigrate_BootstrapsFreshStore(t *testing.T) {
	opts := testOptions(t, "text")

	out, err := execute(NewMigrateCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Created "+opts.DBPath+" at version 8")

	out, err = execute(NewMigrateCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "is already at version 8")
}

func TestMigrate_JSONReport(t *testing.T) {
	opts := testOptions(t, "json")

	out, err := execute(NewMigrateCommand(opts))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), data["from"])
	assert.Equal(t, float64(8), data["to"])
	assert.Equal(t, true, data["bootstrapped"])
	assert.NotEmpty(t, data["run_id"])
	assert.Equal(t, data["run_id"], resp.RunID)
}

func TestMigrate_UpgradesExistingStore(t *testing.T) {
	opts := testOptions(t, "text")
	storeAt(t, opts, 4,
		"INSERT INTO tabs (tabId, url, title) VALUES ('tabid1', 'https://one.example', 'One')",
	)

	out, err := execute(NewMigrateCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "from version 4 to 8")
	assert.Contains(t, out, "4->5 add_tab_position_and_viewed")
	assert.Contains(t, out, "7->8 add_privacy_protection_count")
}

func TestMigrate_StopsAtTarget(t *testing.T) {
	opts := testOptions(t, "text")
	storeAt(t, opts, 2)
	opts.TargetVersion = 4

	out, err := execute(NewMigrateCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "from version 2 to 4")
	assert.NotContains(t, out, "4->5")
}

func TestMigrate_RefusesNewerStore(t *testing.T) {
	opts := testOptions(t, "text")
	s, err := store.Open(opts.DBPath, store.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Exec(context.Background(), "CREATE TABLE future (id INTEGER)"))
	require.NoError(t, s.Exec(context.Background(), "PRAGMA user_version = 99"))
	require.NoError(t, s.Close())

	out, err := execute(NewMigrateCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeVersionTooNew)
	assert.Contains(t, out, "Error [E205]")
}

func TestMigrate_RefusesUnversionedStore(t *testing.T) {
	opts := testOptions(t, "json")
	s, err := store.Open(opts.DBPath, store.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Exec(context.Background(), "CREATE TABLE tabs (tabId TEXT)"))
	require.NoError(t, s.Close())

	out, err := execute(NewMigrateCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnversioned, resp.Error.Code)
}

func TestMigrate_DriftedStoreReportsDiscrepancies(t *testing.T) {
	opts := testOptions(t, "json")
	storeAt(t, opts, 4, "DROP TABLE user_whitelist")

	out, err := execute(NewMigrateCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSchemaMismatch, resp.Error.Code)
	assert.NotNil(t, resp.Error.Details)
}

func TestMigrate_WritesMetricsTextfile(t *testing.T) {
	opts := testOptions(t, "text")
	opts.MetricsTextfile = filepath.Join(t.TempDir(), "privacydb.prom")
	storeAt(t, opts, 6)

	_, err := execute(NewMigrateCommand(opts))
	require.NoError(t, err)

	data, err := os.ReadFile(opts.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "privacydb_migration_runs_total")
	assert.Contains(t, string(data), "privacydb_migration_steps_total")
}

func TestMigrate_InvalidConfig(t *testing.T) {
	opts := testOptions(t, "text")
	opts.Environ = map[string]string{"PRIVACYDB_JOURNAL_MODE": "SIDEWAYS"}

	_, err := execute(NewMigrateCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeConfig)
}

func TestMigrate_FailureCarriesRunID(t *testing.T) {
	opts := testOptions(t, "json")
	s, err := store.Open(opts.DBPath, store.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Exec(context.Background(), "PRAGMA user_version = 99"))
	require.NoError(t, s.Close())

	out, err := execute(NewMigrateCommand(opts))
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeVersionTooNew, resp.Error.Code)
	assert.NotEmpty(t, resp.RunID)
}
