package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTableSQL(t *testing.T) {
	table := Table{
		Name: "tabs",
		Columns: []Column{
			{Name: "tabId", Type: TypeText, NotNull: true},
			{Name: "url", Type: TypeText},
			{Name: "viewed", Type: TypeBoolean, NotNull: true, Default: Literal("1")},
		},
		PrimaryKey: []string{"tabId"},
	}

	got := CreateTableSQL(table)
	assert.Equal(t,
		"CREATE TABLE `tabs` (`tabId` TEXT NOT NULL, `url` TEXT, `viewed` INTEGER NOT NULL DEFAULT 1, PRIMARY KEY(`tabId`))",
		got)
}

func TestCreateTableSQL_CompositeKey(t *testing.T) {
	table := Table{
		Name: "network_leaderboard",
		Columns: []Column{
			{Name: "networkName", Type: TypeText, NotNull: true},
			{Name: "domainVisited", Type: TypeText, NotNull: true},
		},
		PrimaryKey: []string{"networkName", "domainVisited"},
	}
	assert.Contains(t, CreateTableSQL(table), "PRIMARY KEY(`networkName`, `domainVisited`)")
}

func TestCreateIndexSQL(t *testing.T) {
	assert.Equal(t,
		"CREATE INDEX `index_tabs_tabId` ON `tabs` (`tabId`)",
		CreateIndexSQL("tabs", Index{Name: "index_tabs_tabId", Columns: []string{"tabId"}}))
	assert.Equal(t,
		"CREATE UNIQUE INDEX `u` ON `t` (`a`, `b`)",
		CreateIndexSQL("t", Index{Name: "u", Columns: []string{"a", "b"}, Unique: true}))
}

func TestQuote_EscapesBackticks(t *testing.T) {
	assert.Equal(t, "`a``b`", Quote("a`b"))
}

func TestStatements_TablesBeforeIndices(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	def, err := c.At(2)
	require.NoError(t, err)

	stmts := def.Statements()
	require.Len(t, stmts, len(def.Tables)+2)

	for i, stmt := range stmts[:len(def.Tables)] {
		assert.Contains(t, stmt, "CREATE TABLE", "statement %d", i)
	}
	assert.Contains(t, stmts[len(def.Tables)], "CREATE INDEX `index_tabs_tabId`")
	assert.Contains(t, stmts[len(def.Tables)+1], "CREATE INDEX `index_tab_selection_tabId`")
}
