// Package appdb is what the rest of the application sees of the local store.
//
// Open migrates the store before handing out any data-access object, so no
// DAO can ever observe a store between versions. A failed migration is
// returned as is; there is no degraded mode.
package appdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/privacydb/internal/migrate"
	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
)

// Options configures Open.
type Options struct {
	Path  string
	Store store.Options

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics, when set, receives migration metrics.
	Metrics *migrate.Metrics
}

// DB is a migrated store.
type DB struct {
	store  *store.Store
	report *migrate.Report
}

// Open opens the store at opts.Path and migrates it to the latest version.
func Open(ctx context.Context, opts Options) (*DB, error) {
	catalog, err := schema.Default()
	if err != nil {
		return nil, fmt.Errorf("load schema catalog: %w", err)
	}

	s, err := store.Open(opts.Path, opts.Store)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(catalog, migrate.DefaultRegistry(),
		migrate.WithLogger(opts.Logger),
		migrate.WithMetrics(opts.Metrics),
	)
	rep, err := migrator.Migrate(ctx, s)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open %s: %w", opts.Path, err)
	}

	return &DB{store: s, report: rep}, nil
}

// Close closes the underlying store.
func (db *DB) Close() error {
	return db.store.Close()
}

// Report returns the migration report produced by Open.
func (db *DB) Report() *migrate.Report {
	return db.report
}

// Tabs returns the tab DAO.
func (db *DB) Tabs() *TabStore {
	return &TabStore{store: db.store}
}

// Leaderboard returns the network leaderboard DAO.
func (db *DB) Leaderboard() *LeaderboardStore {
	return &LeaderboardStore{store: db.store}
}

// SitesVisited returns the visited sites DAO.
func (db *DB) SitesVisited() *SitesVisitedStore {
	return &SitesVisitedStore{store: db.store}
}

// Whitelist returns the user whitelist DAO.
func (db *DB) Whitelist() *WhitelistStore {
	return &WhitelistStore{store: db.store}
}

// Notifications returns the shown notifications DAO.
func (db *DB) Notifications() *NotificationStore {
	return &NotificationStore{store: db.store}
}
