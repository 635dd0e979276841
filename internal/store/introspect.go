package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/privacydb/internal/schema"
)

// IsBookkeeping reports whether a table belongs to SQLite or to the store
// itself rather than to any schema version.
func IsBookkeeping(table string) bool {
	return strings.HasPrefix(table, "sqlite_") || table == MasterTable
}

// Introspect reads the live schema: every user table with its ordered
// columns, primary key and explicitly created indices. Tables are returned
// sorted by name. Automatic indices and bookkeeping tables are omitted.
//
// Introspect must not be called while a WithTx callback is running; use
// Tx.Introspect there.
func (s *Store) Introspect(ctx context.Context) ([]schema.Table, error) {
	return introspect(ctx, s.db)
}

// UserTables lists the names of every non-bookkeeping table, sorted.
func (s *Store) UserTables(ctx context.Context) ([]string, error) {
	return userTables(ctx, s.db)
}

// IsEmpty reports whether the store holds no user tables.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	names, err := s.UserTables(ctx)
	if err != nil {
		return false, err
	}
	return len(names) == 0, nil
}

func userTables(ctx context.Context, q queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		ORDER BY name COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		if IsBookkeeping(name) {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

func introspect(ctx context.Context, q queryer) ([]schema.Table, error) {
	names, err := userTables(ctx, q)
	if err != nil {
		return nil, err
	}

	tables := make([]schema.Table, 0, len(names))
	for _, name := range names {
		t, err := introspectTable(ctx, q, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func introspectTable(ctx context.Context, q queryer, name string) (schema.Table, error) {
	t := schema.Table{Name: name}

	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", schema.Quote(name)))
	if err != nil {
		return t, fmt.Errorf("table_info %s: %w", name, err)
	}

	type pkCol struct {
		name string
		pos  int
	}
	var pks []pkCol

	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return t, fmt.Errorf("table_info %s: %w", name, err)
		}
		col := schema.Column{
			Name:    colName,
			Type:    schema.ColumnType(strings.ToUpper(colType)),
			NotNull: notNull != 0,
		}
		if dflt.Valid {
			col.Default = schema.Literal(dflt.String)
		}
		t.Columns = append(t.Columns, col)
		if pk > 0 {
			pks = append(pks, pkCol{name: colName, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return t, fmt.Errorf("table_info %s: %w", name, err)
	}
	rows.Close()

	sort.Slice(pks, func(i, j int) bool { return pks[i].pos < pks[j].pos })
	for _, p := range pks {
		t.PrimaryKey = append(t.PrimaryKey, p.name)
	}

	indices, err := introspectIndices(ctx, q, name)
	if err != nil {
		return t, err
	}
	t.Indices = indices
	return t, nil
}

// introspectIndices returns indices created with CREATE INDEX (origin "c"),
// sorted by name.
func introspectIndices(ctx context.Context, q queryer, table string) ([]schema.Index, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", schema.Quote(table)))
	if err != nil {
		return nil, fmt.Errorf("index_list %s: %w", table, err)
	}

	var indices []schema.Index
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, fmt.Errorf("index_list %s: %w", table, err)
		}
		if origin != "c" || strings.HasPrefix(name, "sqlite_autoindex_") {
			continue
		}
		indices = append(indices, schema.Index{Name: name, Unique: unique != 0})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("index_list %s: %w", table, err)
	}
	rows.Close()

	for i := range indices {
		cols, err := indexColumns(ctx, q, indices[i].Name)
		if err != nil {
			return nil, err
		}
		indices[i].Columns = cols
	}

	sort.Slice(indices, func(i, j int) bool { return indices[i].Name < indices[j].Name })
	return indices, nil
}

func indexColumns(ctx context.Context, q queryer, index string) ([]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", schema.Quote(index)))
	if err != nil {
		return nil, fmt.Errorf("index_info %s: %w", index, err)
	}
	defer rows.Close()

	type entry struct {
		seqno int
		name  string
	}
	var entries []entry
	for rows.Next() {
		var (
			seqno int
			cid   int
			name  sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("index_info %s: %w", index, err)
		}
		entries = append(entries, entry{seqno: seqno, name: name.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index_info %s: %w", index, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].seqno < entries[j].seqno })
	cols := make([]string, len(entries))
	for i, e := range entries {
		cols[i] = e.name
	}
	return cols, nil
}
