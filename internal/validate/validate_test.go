package validate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
)

type fakeIntrospector struct {
	tables []schema.Table
	err    error
	calls  int
}

func (f *fakeIntrospector) Introspect(context.Context) ([]schema.Table, error) {
	f.calls++
	return f.tables, f.err
}

func openAt(t *testing.T, v schema.Version) (*store.Store, schema.Definition) {
	t.Helper()
	c, err := schema.Default()
	require.NoError(t, err)
	def, err := c.At(v)
	require.NoError(t, err)

	s, err := store.Open(filepath.Join(t.TempDir(), "v.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	for _, stmt := range def.Statements() {
		require.NoError(t, s.Exec(context.Background(), stmt))
	}
	return s, def
}

func TestValidate_MatchesEveryVersion(t *testing.T) {
	for v := schema.Version(1); v <= 8; v++ {
		s, def := openAt(t, v)
		assert.NoError(t, Validate(context.Background(), s, def), "version %d", v)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := openAt(t, 4)

	c, err := schema.Default()
	require.NoError(t, err)
	v5, err := c.At(5)
	require.NoError(t, err)

	first := Validate(ctx, s, v5)
	second := Validate(ctx, s, v5)
	require.Error(t, first)
	assert.Equal(t, first.Error(), second.Error())

	var m1, m2 *SchemaMismatchError
	require.True(t, errors.As(first, &m1))
	require.True(t, errors.As(second, &m2))
	assert.Equal(t, m1.Discrepancies, m2.Discrepancies)
}

func TestValidate_ReportsEveryDiscrepancy(t *testing.T) {
	ctx := context.Background()
	s, _ := openAt(t, 4)

	c, err := schema.Default()
	require.NoError(t, err)
	v6, err := c.At(6)
	require.NoError(t, err)

	err = Validate(ctx, s, v6)
	require.Error(t, err)
	assert.True(t, IsSchemaMismatch(err))

	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, schema.Version(6), mismatch.Version)
	assert.Equal(t, []Discrepancy{
		{Kind: MissingTable, Table: "app_configuration"},
		{Kind: MissingColumn, Table: "tabs", Object: "position", Expected: "INTEGER NOT NULL DEFAULT 0"},
		{Kind: MissingColumn, Table: "tabs", Object: "viewed", Expected: "INTEGER NOT NULL DEFAULT 1"},
	}, mismatch.Discrepancies)
}

func TestValidate_ExtraTableAndIndex(t *testing.T) {
	ctx := context.Background()
	s, def := openAt(t, 1)
	require.NoError(t, s.Exec(ctx, "CREATE TABLE `stray` (`id` TEXT NOT NULL, PRIMARY KEY(`id`))"))
	require.NoError(t, s.Exec(ctx, "CREATE INDEX `idx_bookmarks_url` ON `bookmarks` (`url`)"))

	err := Validate(ctx, s, def)
	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []Discrepancy{
		{Kind: ExtraIndex, Table: "bookmarks", Object: "idx_bookmarks_url", Actual: "(url)"},
		{Kind: ExtraTable, Table: "stray"},
	}, mismatch.Discrepancies)
}

func TestValidate_IgnoresBookkeeping(t *testing.T) {
	ctx := context.Background()
	s, def := openAt(t, 2)
	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		return tx.WriteIdentity(ctx, store.Identity{Version: 2, Hash: "x"})
	}))
	assert.NoError(t, Validate(ctx, s, def))
}

func TestValidate_PropagatesIntrospectionError(t *testing.T) {
	boom := errors.New("disk gone")
	err := Validate(context.Background(), &fakeIntrospector{err: boom}, schema.Definition{Version: 1})
	require.ErrorIs(t, err, boom)
	assert.False(t, IsSchemaMismatch(err))
}

func TestDiff_ColumnLevelMismatches(t *testing.T) {
	want := []schema.Table{{
		Name: "tabs",
		Columns: []schema.Column{
			{Name: "tabId", Type: schema.TypeText, NotNull: true},
			{Name: "position", Type: schema.TypeInteger, NotNull: true, Default: schema.Literal("0")},
			{Name: "viewed", Type: schema.TypeBoolean, NotNull: true, Default: schema.Literal("1")},
		},
		PrimaryKey: []string{"tabId"},
		Indices:    []schema.Index{{Name: "index_tabs_tabId", Columns: []string{"tabId"}}},
	}}
	got := []schema.Table{{
		Name: "tabs",
		Columns: []schema.Column{
			{Name: "tabId", Type: "TEXT", NotNull: true},
			{Name: "position", Type: "TEXT", NotNull: false},
			{Name: "viewed", Type: "INTEGER", NotNull: true, Default: schema.Literal("0")},
		},
		PrimaryKey: []string{"position"},
		Indices:    []schema.Index{{Name: "index_tabs_tabId", Columns: []string{"tabId"}, Unique: true}},
	}}

	ds := Diff(want, got)
	assert.Equal(t, []Discrepancy{
		{Kind: DefaultChanged, Table: "tabs", Object: "position", Expected: "0", Actual: ""},
		{Kind: DefaultChanged, Table: "tabs", Object: "viewed", Expected: "1", Actual: "0"},
		{Kind: IndexChanged, Table: "tabs", Object: "index_tabs_tabId", Expected: "(tabId)", Actual: "UNIQUE (tabId)"},
		{Kind: NullabilityChanged, Table: "tabs", Object: "position", Expected: "NOT NULL", Actual: "NULL"},
		{Kind: PrimaryKeyChanged, Table: "tabs", Expected: "tabId", Actual: "position"},
		{Kind: TypeMismatch, Table: "tabs", Object: "position", Expected: "INTEGER", Actual: "TEXT"},
	}, ds)
}

func TestDiff_ColumnOrder(t *testing.T) {
	want := []schema.Table{{
		Name:       "t",
		Columns:    []schema.Column{{Name: "a", Type: schema.TypeText}, {Name: "b", Type: schema.TypeText}},
		PrimaryKey: []string{"a"},
	}}
	got := []schema.Table{{
		Name:       "t",
		Columns:    []schema.Column{{Name: "b", Type: "TEXT"}, {Name: "a", Type: "TEXT"}},
		PrimaryKey: []string{"a"},
	}}
	assert.Equal(t, []Discrepancy{
		{Kind: ColumnOrder, Table: "t", Expected: "a,b", Actual: "b,a"},
	}, Diff(want, got))
}

func TestSchemaMismatchError_Message(t *testing.T) {
	err := &SchemaMismatchError{Version: 3, Discrepancies: []Discrepancy{
		{Kind: MissingTable, Table: "sites_visited"},
		{Kind: TypeMismatch, Table: "tabs", Object: "url", Expected: "TEXT", Actual: "BLOB"},
	}}
	assert.Equal(t,
		`schema does not match version 3 (2 discrepancies): missing_table sites_visited; type_mismatch tabs.url (expected "TEXT", actual "BLOB")`,
		err.Error())
}
