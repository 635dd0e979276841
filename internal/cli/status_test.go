package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/privacydb/internal/store"
)

func TestStatus_PendingSteps(t *testing.T) {
	opts := testOptions(t, "text")
	storeAt(t, opts, 5)

	out, err := execute(NewStatusCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "Store:   "+opts.DBPath)
	assert.Contains(t, out, "Version: 5 (target 8, latest 8)")
	assert.Contains(t, out, "Identity: none recorded")
	assert.Contains(t, out, "Pending: 3 step(s)")
	assert.Contains(t, out, "5->6 add_app_configuration")
	assert.Contains(t, out, "7->8 add_privacy_protection_count")
}

func TestStatus_AfterMigration(t *testing.T) {
	opts := testOptions(t, "json")
	_, err := execute(NewMigrateCommand(opts))
	require.NoError(t, err)

	out, err := execute(NewStatusCommand(opts))
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Version  int `json:"version"`
			Identity *struct {
				Version int    `json:"version"`
				Hash    string `json:"hash"`
			} `json:"identity"`
			Pending []string `json:"pending"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 8, resp.Data.Version)
	require.NotNil(t, resp.Data.Identity)
	assert.Equal(t, 8, resp.Data.Identity.Version)
	assert.Empty(t, resp.Data.Pending)
}

func TestStatus_MissingDatabase(t *testing.T) {
	opts := testOptions(t, "text")

	_, err := execute(NewStatusCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestPlan_ListsSteps(t *testing.T) {
	opts := testOptions(t, "text")
	storeAt(t, opts, 6)

	out, err := execute(NewPlanCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "6->7 add_notification")
	assert.Contains(t, out, "7->8 add_privacy_protection_count")
	assert.Contains(t, out, "no data transform")
}

func TestPlan_HonoursTarget(t *testing.T) {
	opts := testOptions(t, "json")
	storeAt(t, opts, 3)
	opts.TargetVersion = 5

	out, err := execute(NewPlanCommand(opts))
	require.NoError(t, err)

	var resp struct {
		Data []PlannedStep `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, PlannedStep{
		From:   3,
		To:     4,
		Name:   "add_user_whitelist",
		Policy: "create table user_whitelist keyed by (domain); then no data transform",
	}, resp.Data[0])
	assert.Equal(t, "add_tab_position_and_viewed", resp.Data[1].Name)
}

func TestPlan_NothingToDo(t *testing.T) {
	opts := testOptions(t, "text")
	storeAt(t, opts, 8)

	out, err := execute(NewPlanCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to do")
}

func TestPlan_NewerStore(t *testing.T) {
	opts := testOptions(t, "text")
	s, err := store.Open(opts.DBPath, store.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Exec(context.Background(), "PRAGMA user_version = 99"))
	require.NoError(t, s.Close())

	out, err := execute(NewPlanCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E205]")
}
