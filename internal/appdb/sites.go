package appdb

import (
	"context"
	"fmt"

	"github.com/roach88/privacydb/internal/store"
)

// SitesVisitedStore tracks distinct visited domains.
type SitesVisitedStore struct {
	store *store.Store
}

// Add records a visit to domain.
func (ss *SitesVisitedStore) Add(ctx context.Context, domain string) error {
	if err := ss.store.Exec(ctx, "INSERT INTO sites_visited (domain) VALUES (?) ON CONFLICT DO NOTHING", domain); err != nil {
		return fmt.Errorf("record visit to %s: %w", domain, err)
	}
	return nil
}

// Count returns the number of distinct domains visited.
func (ss *SitesVisitedStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := ss.store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sites_visited").Scan(&n); err != nil {
		return 0, fmt.Errorf("count visited sites: %w", err)
	}
	return n, nil
}

// WhitelistStore holds the domains the user excluded from protection.
type WhitelistStore struct {
	store *store.Store
}

// Add whitelists domain.
func (ws *WhitelistStore) Add(ctx context.Context, domain string) error {
	if err := ws.store.Exec(ctx, "INSERT INTO user_whitelist (domain) VALUES (?) ON CONFLICT DO NOTHING", domain); err != nil {
		return fmt.Errorf("whitelist %s: %w", domain, err)
	}
	return nil
}

// Remove removes domain from the whitelist.
func (ws *WhitelistStore) Remove(ctx context.Context, domain string) error {
	if err := ws.store.Exec(ctx, "DELETE FROM user_whitelist WHERE domain = ?", domain); err != nil {
		return fmt.Errorf("unwhitelist %s: %w", domain, err)
	}
	return nil
}

// Contains reports whether domain is whitelisted.
func (ws *WhitelistStore) Contains(ctx context.Context, domain string) (bool, error) {
	var n int
	err := ws.store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM user_whitelist WHERE domain = ?", domain).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("whitelist lookup %s: %w", domain, err)
	}
	return n > 0, nil
}

// NotificationStore remembers which notifications were already shown.
type NotificationStore struct {
	store *store.Store
}

// MarkShown records that the notification was shown.
func (ns *NotificationStore) MarkShown(ctx context.Context, id string) error {
	if err := ns.store.Exec(ctx, "INSERT INTO notification (notificationId) VALUES (?) ON CONFLICT DO NOTHING", id); err != nil {
		return fmt.Errorf("mark notification %s shown: %w", id, err)
	}
	return nil
}

// Shown reports whether the notification was already shown.
func (ns *NotificationStore) Shown(ctx context.Context, id string) (bool, error) {
	var n int
	err := ns.store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM notification WHERE notificationId = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("notification lookup %s: %w", id, err)
	}
	return n > 0, nil
}
