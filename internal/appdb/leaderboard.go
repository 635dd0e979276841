package appdb

import (
	"context"
	"fmt"

	"github.com/roach88/privacydb/internal/store"
)

// NetworkTally is the number of distinct domains a tracker network was
// blocked on.
type NetworkTally struct {
	NetworkName string `json:"network_name"`
	DomainCount int    `json:"domain_count"`
}

// LeaderboardStore records blocked tracker networks per domain.
type LeaderboardStore struct {
	store *store.Store
}

// Increment records that network was blocked on domain. Recording the same
// pair twice has no further effect.
func (ls *LeaderboardStore) Increment(ctx context.Context, network, domain string) error {
	err := ls.store.Exec(ctx, `
		INSERT INTO network_leaderboard (networkName, domainVisited)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, network, domain)
	if err != nil {
		return fmt.Errorf("record %s on %s: %w", network, domain, err)
	}
	return nil
}

// TrackerNetworkTally returns every network with its domain count, most
// widespread first.
func (ls *LeaderboardStore) TrackerNetworkTally(ctx context.Context) ([]NetworkTally, error) {
	rows, err := ls.store.Query(ctx, `
		SELECT networkName, COUNT(domainVisited) AS domainCount
		FROM network_leaderboard
		GROUP BY networkName
		ORDER BY domainCount DESC, networkName ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("network tally: %w", err)
	}
	defer rows.Close()

	var out []NetworkTally
	for rows.Next() {
		var nt NetworkTally
		if err := rows.Scan(&nt.NetworkName, &nt.DomainCount); err != nil {
			return nil, fmt.Errorf("network tally: %w", err)
		}
		out = append(out, nt)
	}
	return out, rows.Err()
}
