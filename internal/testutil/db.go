package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
)

// CreateAt creates a store at path whose schema is the catalog definition for
// v, with v recorded as its version. No migration step is involved, so a
// step under test can never vouch for its own starting point.
func CreateAt(ctx context.Context, path string, catalog *schema.Catalog, v schema.Version, opts store.Options) (*store.Store, error) {
	def, err := catalog.At(v)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(path, opts)
	if err != nil {
		return nil, err
	}

	err = s.WithTx(ctx, func(tx *store.Tx) error {
		for _, stmt := range def.Statements() {
			if err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create version %d: %w", v, err)
			}
		}
		return tx.SetVersion(ctx, v)
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Seed runs statements in one transaction.
func Seed(ctx context.Context, s *store.Store, stmts ...string) error {
	return s.WithTx(ctx, func(tx *store.Tx) error {
		for i, stmt := range stmts {
			if err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("seed[%d] %q: %w", i, stmt, err)
			}
		}
		return nil
	})
}

// Rows runs query and returns every row as a column-name to value map.
// []byte values are converted to strings.
func Rows(ctx context.Context, s *store.Store, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMaps(rows)
}

func scanMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CreateStore is the testing.TB form of CreateAt using the default catalog and
// a file in t.TempDir. The store is closed when the test ends.
func CreateStore(t testing.TB, v schema.Version) *store.Store {
	t.Helper()
	catalog, err := schema.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	path := filepath.Join(t.TempDir(), fmt.Sprintf("v%d.db", v))
	s, err := CreateAt(context.Background(), path, catalog, v, store.Options{})
	if err != nil {
		t.Fatalf("CreateAt(%d) failed: %v", v, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// MustSeed is the testing.TB form of Seed.
func MustSeed(t testing.TB, s *store.Store, stmts ...string) {
	t.Helper()
	if err := Seed(context.Background(), s, stmts...); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

// MustRows is the testing.TB form of Rows.
func MustRows(t testing.TB, s *store.Store, query string, args ...any) []map[string]any {
	t.Helper()
	rows, err := Rows(context.Background(), s, query, args...)
	if err != nil {
		t.Fatalf("query %q failed: %v", query, err)
	}
	return rows
}
