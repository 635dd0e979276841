package appdb

import (
	"context"
	"fmt"

	"github.com/roach88/privacydb/internal/store"
)

const protectionCountKey = "PRIVACY_PROTECTION_COUNT"

// ProtectionCounts is the running total of protections applied.
type ProtectionCounts struct {
	BlockedTrackers int `json:"blocked_tracker_count"`
	Upgrades        int `json:"upgrade_count"`
}

// ProtectionCountStore keeps the single privacy protection counter row.
type ProtectionCountStore struct {
	store *store.Store
}

// ProtectionCounts returns the protection counter DAO.
func (db *DB) ProtectionCounts() *ProtectionCountStore {
	return &ProtectionCountStore{store: db.store}
}

// IncrementBlockedTrackers adds one blocked tracker to the counter.
func (ps *ProtectionCountStore) IncrementBlockedTrackers(ctx context.Context) error {
	return ps.bump(ctx, "blocked_tracker_count")
}

// IncrementUpgrades adds one HTTPS upgrade to the counter.
func (ps *ProtectionCountStore) IncrementUpgrades(ctx context.Context) error {
	return ps.bump(ctx, "upgrade_count")
}

func (ps *ProtectionCountStore) bump(ctx context.Context, column string) error {
	err := ps.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.Exec(ctx, "INSERT INTO privacy_protection_count (key) VALUES (?) ON CONFLICT DO NOTHING", protectionCountKey); err != nil {
			return err
		}
		return tx.Exec(ctx, fmt.Sprintf("UPDATE privacy_protection_count SET %s = %s + 1 WHERE key = ?", column, column), protectionCountKey)
	})
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	return nil
}

// Get returns the current totals. A store that never counted anything reports zeros.
func (ps *ProtectionCountStore) Get(ctx context.Context) (ProtectionCounts, error) {
	var pc ProtectionCounts
	rows, err := ps.store.Query(ctx, "SELECT blocked_tracker_count, upgrade_count FROM privacy_protection_count WHERE key = ?", protectionCountKey)
	if err != nil {
		return pc, fmt.Errorf("read protection counts: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&pc.BlockedTrackers, &pc.Upgrades); err != nil {
			return pc, fmt.Errorf("read protection counts: %w", err)
		}
	}
	return pc, rows.Err()
}
