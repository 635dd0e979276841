package appdb

import (
	"context"
	"fmt"
)

// Entity is a row that can be written through DB.Insert.
// The set of entities is closed; Insert handles every one of them.
type Entity interface {
	entity()
}

// Tab is an open browser tab.
type Tab struct {
	TabID    string
	URL      string
	Title    string
	Position int
	Viewed   bool
}

// LeaderboardEntry records that a tracker network was blocked on a domain.
type LeaderboardEntry struct {
	NetworkName   string
	DomainVisited string
}

// SiteVisited records a domain the user visited.
type SiteVisited struct {
	Domain string
}

// WhitelistEntry is a domain the user excluded from protection.
type WhitelistEntry struct {
	Domain string
}

// Notification records that a notification was shown.
type Notification struct {
	NotificationID string
}

func (Tab) entity()              {}
func (LeaderboardEntry) entity() {}
func (SiteVisited) entity()      {}
func (WhitelistEntry) entity()   {}
func (Notification) entity()     {}

// Insert writes e through the DAO that owns its table.
func (db *DB) Insert(ctx context.Context, e Entity) error {
	switch e := e.(type) {
	case Tab:
		return db.Tabs().Add(ctx, e)
	case LeaderboardEntry:
		return db.Leaderboard().Increment(ctx, e.NetworkName, e.DomainVisited)
	case SiteVisited:
		return db.SitesVisited().Add(ctx, e.Domain)
	case WhitelistEntry:
		return db.Whitelist().Add(ctx, e.Domain)
	case Notification:
		return db.Notifications().MarkShown(ctx, e.NotificationID)
	default:
		return fmt.Errorf("appdb: unsupported entity %T", e)
	}
}
