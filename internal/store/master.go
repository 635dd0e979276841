package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/privacydb/internal/schema"
)

// MasterTable holds the identity of the schema the store was last migrated to.
const MasterTable = "privacydb_master"

// masterRowID pins the table to a single row.
const masterRowID = 42

// Identity is the persisted record of the last validated schema.
type Identity struct {
	Version schema.Version `json:"version"`
	Hash    string         `json:"hash"`
}

// WriteIdentity records the identity of the schema the store now matches.
func (t *Tx) WriteIdentity(ctx context.Context, id Identity) error {
	if _, err := t.tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS privacydb_master (
			id INTEGER PRIMARY KEY CHECK (id = 42),
			version INTEGER NOT NULL,
			identity_hash TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO privacydb_master (id, version, identity_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			identity_hash = excluded.identity_hash
	`, masterRowID, int(id.Version), id.Hash)
	if err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}

// ReadIdentity returns the recorded identity. ok is false when the store has
// never recorded one.
func (s *Store) ReadIdentity(ctx context.Context) (id Identity, ok bool, err error) {
	var exists int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		MasterTable,
	).Scan(&exists)
	if err != nil {
		return Identity{}, false, fmt.Errorf("read identity: %w", err)
	}
	if exists == 0 {
		return Identity{}, false, nil
	}

	var version int
	err = s.db.QueryRowContext(ctx,
		"SELECT version, identity_hash FROM privacydb_master WHERE id = ?",
		masterRowID,
	).Scan(&version, &id.Hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, fmt.Errorf("read identity: %w", err)
	}
	id.Version = schema.Version(version)
	return id, true, nil
}
