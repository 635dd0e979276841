package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/privacydb/internal/schema"
)

// Tx is a scoped transaction handed to WithTx callbacks.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction. The transaction commits only when fn
// returns nil; any other exit path, including a panic, rolls it back.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Exec executes a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}

// ExecResult executes a statement and reports the rows it affected.
func (t *Tx) ExecResult(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query executes a query inside the transaction.
// Callers are responsible for closing the returned rows.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// Version reads the schema version as seen by the transaction.
func (t *Tx) Version(ctx context.Context) (schema.Version, error) {
	return readVersion(ctx, t.tx)
}

// SetVersion records v in the file header. The write is part of the
// transaction and rolls back with it.
func (t *Tx) SetVersion(ctx context.Context, v schema.Version) error {
	if v < 0 {
		return fmt.Errorf("set user_version: negative version %d", v)
	}
	if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", int(v))); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Introspect reads the live schema as seen by the transaction.
func (t *Tx) Introspect(ctx context.Context) ([]schema.Table, error) {
	return introspect(ctx, t.tx)
}
