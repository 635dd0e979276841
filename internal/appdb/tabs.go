package appdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/privacydb/internal/store"
)

// TabStore reads and writes open tabs.
type TabStore struct {
	store *store.Store
}

// Tabs returns every tab ordered by position.
func (ts *TabStore) Tabs(ctx context.Context) ([]Tab, error) {
	rows, err := ts.store.Query(ctx, `
		SELECT tabId, url, title, position, viewed
		FROM tabs
		ORDER BY position ASC, tabId ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	defer rows.Close()

	var tabs []Tab
	for rows.Next() {
		var (
			tab        Tab
			url, title sql.NullString
		)
		if err := rows.Scan(&tab.TabID, &url, &title, &tab.Position, &tab.Viewed); err != nil {
			return nil, fmt.Errorf("list tabs: %w", err)
		}
		tab.URL = url.String
		tab.Title = title.String
		tabs = append(tabs, tab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	return tabs, nil
}

// Add appends a tab after every existing tab. tab.Position is ignored.
func (ts *TabStore) Add(ctx context.Context, tab Tab) error {
	err := ts.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.Exec(ctx, `
			INSERT INTO tabs (tabId, url, title, position, viewed)
			VALUES (?, ?, ?, (SELECT COUNT(*) FROM tabs), ?)
		`, tab.TabID, nullable(tab.URL), nullable(tab.Title), tab.Viewed)
	})
	if err != nil {
		return fmt.Errorf("add tab %s: %w", tab.TabID, err)
	}
	return nil
}

// MarkViewed flags a tab as rendered at least once.
func (ts *TabStore) MarkViewed(ctx context.Context, tabID string) error {
	if err := ts.store.Exec(ctx, "UPDATE tabs SET viewed = 1 WHERE tabId = ?", tabID); err != nil {
		return fmt.Errorf("mark tab %s viewed: %w", tabID, err)
	}
	return nil
}

// Delete removes a tab and closes the gap it leaves in the positions.
func (ts *TabStore) Delete(ctx context.Context, tabID string) error {
	err := ts.store.WithTx(ctx, func(tx *store.Tx) error {
		rows, err := tx.Query(ctx, "SELECT position FROM tabs WHERE tabId = ?", tabID)
		if err != nil {
			return err
		}
		var (
			position int
			found    bool
		)
		if rows.Next() {
			found = true
			if err := rows.Scan(&position); err != nil {
				rows.Close()
				return err
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if !found {
			return nil
		}

		if err := tx.Exec(ctx, "DELETE FROM tabs WHERE tabId = ?", tabID); err != nil {
			return err
		}
		return tx.Exec(ctx, "UPDATE tabs SET position = position - 1 WHERE position > ?", position)
	})
	if err != nil {
		return fmt.Errorf("delete tab %s: %w", tabID, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
