package appdb

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/privacydb/internal/migrate"
	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
	"github.com/roach88/privacydb/internal/testutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Options{
		Path:   filepath.Join(t.TempDir(), "app.db"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_FreshStoreIsBootstrapped(t *testing.T) {
	db := openTestDB(t)

	rep := db.Report()
	require.NotNil(t, rep)
	assert.True(t, rep.Bootstrapped)
	assert.Equal(t, schema.Version(8), rep.To)
	assert.Empty(t, rep.Applied)
}

func TestOpen_UpgradesExistingStore(t *testing.T) {
	ctx := context.Background()
	catalog, err := schema.Default()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "app.db")
	s, err := testutil.CreateAt(ctx, path, catalog, 4, store.Options{})
	require.NoError(t, err)
	testutil.MustSeed(t, s,
		"INSERT INTO tabs (tabId, url, title) VALUES ('a', 'https://a.example', 'A')",
		"INSERT INTO tabs (tabId, url, title) VALUES ('b', 'https://b.example', 'B')",
	)
	require.NoError(t, s.Close())

	reg := prometheus.NewRegistry()
	metrics := migrate.NewMetrics(reg)
	db, err := Open(ctx, Options{
		Path:    path,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: metrics,
	})
	require.NoError(t, err)
	defer db.Close()

	assert.Len(t, db.Report().Applied, 4)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.RunsTotal.WithLabelValues(migrate.OutcomeSuccess)))

	tabs, err := db.Tabs().Tabs(ctx)
	require.NoError(t, err)
	require.Len(t, tabs, 2)
	assert.Equal(t, Tab{TabID: "a", URL: "https://a.example", Title: "A", Position: 0, Viewed: true}, tabs[0])
	assert.Equal(t, Tab{TabID: "b", URL: "https://b.example", Title: "B", Position: 1, Viewed: true}, tabs[1])
}

func TestOpen_RekeyDiscardsLeaderboardTallies(t *testing.T) {
	ctx := context.Background()
	catalog, err := schema.Default()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "app.db")
	s, err := testutil.CreateAt(ctx, path, catalog, 2, store.Options{})
	require.NoError(t, err)
	testutil.MustSeed(t, s,
		"INSERT INTO network_leaderboard (networkName, domainVisited) VALUES ('Network2', 'example.com')",
	)
	require.NoError(t, s.Close())

	db, err := Open(ctx, Options{Path: path, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	defer db.Close()

	require.Len(t, db.Report().Applied, 6)
	assert.Equal(t, int64(1), db.Report().Applied[0].RowsAffected)

	tally, err := db.Leaderboard().TrackerNetworkTally(ctx)
	require.NoError(t, err)
	assert.Empty(t, tally)
}

func TestOpen_RefusesNewerStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")

	s, err := store.Open(path, store.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Exec(ctx, "CREATE TABLE future (id INTEGER)"))
	require.NoError(t, s.Exec(ctx, "PRAGMA user_version = 99"))
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Path: path, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.Error(t, err)
	assert.ErrorIs(t, err, migrate.ErrSchemaVersionTooNew)
}

func TestTabs_AddListMarkDelete(t *testing.T) {
	ctx := context.Background()
	tabs := openTestDB(t).Tabs()

	require.NoError(t, tabs.Add(ctx, Tab{TabID: "one", URL: "https://one.example"}))
	require.NoError(t, tabs.Add(ctx, Tab{TabID: "two"}))
	require.NoError(t, tabs.Add(ctx, Tab{TabID: "three", Title: "Three", Viewed: true}))

	got, err := tabs.Tabs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"one", "two", "three"}, tabIDs(got))
	assert.Equal(t, []int{0, 1, 2}, positions(got))
	assert.False(t, got[0].Viewed)
	assert.Empty(t, got[1].URL)

	require.NoError(t, tabs.MarkViewed(ctx, "one"))
	require.NoError(t, tabs.Delete(ctx, "two"))

	got, err = tabs.Tabs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "three"}, tabIDs(got))
	assert.Equal(t, []int{0, 1}, positions(got))
	assert.True(t, got[0].Viewed)
}

func TestTabs_DeleteUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	tabs := openTestDB(t).Tabs()

	require.NoError(t, tabs.Add(ctx, Tab{TabID: "one"}))
	require.NoError(t, tabs.Delete(ctx, "missing"))

	got, err := tabs.Tabs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, tabIDs(got))
}

func TestLeaderboard_TallyCountsDistinctDomains(t *testing.T) {
	ctx := context.Background()
	lb := openTestDB(t).Leaderboard()

	require.NoError(t, lb.Increment(ctx, "Network A", "a.example"))
	require.NoError(t, lb.Increment(ctx, "Network A", "b.example"))
	require.NoError(t, lb.Increment(ctx, "Network A", "b.example"))
	require.NoError(t, lb.Increment(ctx, "Network B", "a.example"))
	require.NoError(t, lb.Increment(ctx, "Network C", "c.example"))

	tally, err := lb.TrackerNetworkTally(ctx)
	require.NoError(t, err)
	assert.Equal(t, []NetworkTally{
		{NetworkName: "Network A", DomainCount: 2},
		{NetworkName: "Network B", DomainCount: 1},
		{NetworkName: "Network C", DomainCount: 1},
	}, tally)
}

func TestInsert_DispatchesEveryEntity(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	entities := []Entity{
		Tab{TabID: "t1"},
		LeaderboardEntry{NetworkName: "Network A", DomainVisited: "a.example"},
		SiteVisited{Domain: "a.example"},
		SiteVisited{Domain: "a.example"},
		WhitelistEntry{Domain: "trusted.example"},
		Notification{NotificationID: "welcome"},
	}
	for _, e := range entities {
		require.NoError(t, db.Insert(ctx, e), "%T", e)
	}

	tabs, err := db.Tabs().Tabs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, tabIDs(tabs))

	tally, err := db.Leaderboard().TrackerNetworkTally(ctx)
	require.NoError(t, err)
	assert.Equal(t, []NetworkTally{{NetworkName: "Network A", DomainCount: 1}}, tally)

	visited, err := db.SitesVisited().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, visited)

	ok, err := db.Whitelist().Contains(ctx, "trusted.example")
	require.NoError(t, err)
	assert.True(t, ok)

	shown, err := db.Notifications().Shown(ctx, "welcome")
	require.NoError(t, err)
	assert.True(t, shown)
}

func TestWhitelist_Remove(t *testing.T) {
	ctx := context.Background()
	wl := openTestDB(t).Whitelist()

	require.NoError(t, wl.Add(ctx, "a.example"))
	require.NoError(t, wl.Remove(ctx, "a.example"))

	ok, err := wl.Contains(ctx, "a.example")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProtectionCounts(t *testing.T) {
	ctx := context.Background()
	pc := openTestDB(t).ProtectionCounts()

	got, err := pc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, ProtectionCounts{}, got)

	require.NoError(t, pc.IncrementBlockedTrackers(ctx))
	require.NoError(t, pc.IncrementBlockedTrackers(ctx))
	require.NoError(t, pc.IncrementUpgrades(ctx))

	got, err = pc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, ProtectionCounts{BlockedTrackers: 2, Upgrades: 1}, got)
}

func tabIDs(tabs []Tab) []string {
	out := make([]string, len(tabs))
	for i, tab := range tabs {
		out[i] = tab.TabID
	}
	return out
}

func positions(tabs []Tab) []int {
	out := make([]int, len(tabs))
	for i, tab := range tabs {
		out[i] = tab.Position
	}
	return out
}
