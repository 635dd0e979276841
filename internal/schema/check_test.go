package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func codes(errs []DefinitionError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestCheck_ValidDefinition(t *testing.T) {
	def := Definition{Version: 1, Tables: []Table{{
		Name:       "tabs",
		Columns:    []Column{{Name: "tabId", Type: TypeText, NotNull: true}},
		PrimaryKey: []string{"tabId"},
		Indices:    []Index{{Name: "index_tabs_tabId", Columns: []string{"tabId"}}},
	}}}
	assert.Empty(t, Check(def))
}

func TestCheck_CollectsAllErrors(t *testing.T) {
	def := Definition{Version: 1, Tables: []Table{
		{
			Name: "a",
			Columns: []Column{
				{Name: "id", Type: TypeText},
				{Name: "id", Type: "FLOAT"},
			},
			PrimaryKey: []string{"missing"},
			Indices:    []Index{{Name: "idx", Columns: []string{"nope"}}},
		},
		{
			Name:    "b",
			Columns: []Column{{Name: "id", Type: TypeInteger}},
			Indices: []Index{{Name: "idx"}},
		},
	}}

	got := codes(Check(def))
	assert.ElementsMatch(t, []string{
		ErrDuplicateColumn,
		ErrInvalidColumnType,
		ErrPrimaryKeyUnknown,
		ErrIndexColumnUnknown,
		ErrNoPrimaryKey,
		ErrIndexWithoutColumns,
		ErrDuplicateIndex,
	}, got)
}

func TestCheck_DuplicateTable(t *testing.T) {
	table := Table{Name: "a", Columns: []Column{{Name: "id", Type: TypeText}}, PrimaryKey: []string{"id"}}
	def := Definition{Version: 1, Tables: []Table{table, table}}
	assert.Equal(t, []string{ErrDuplicateTable}, codes(Check(def)))
}

func TestCheck_EmptyTableAndIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		want  []string
	}{
		{
			name:  "empty name",
			table: Table{},
			want:  []string{ErrEmptyTableName},
		},
		{
			name:  "no columns",
			table: Table{Name: "a", PrimaryKey: []string{"id"}},
			want:  []string{ErrNoColumns, ErrPrimaryKeyUnknown},
		},
		{
			name:  "bad table identifier",
			table: Table{Name: "a b", Columns: []Column{{Name: "id", Type: TypeText}}, PrimaryKey: []string{"id"}},
			want:  []string{ErrInvalidIdentifier},
		},
		{
			name:  "bad column identifier",
			table: Table{Name: "a", Columns: []Column{{Name: "1id", Type: TypeText}}, PrimaryKey: []string{"1id"}},
			want:  []string{ErrInvalidIdentifier},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := codes(Check(Definition{Version: 1, Tables: []Table{tt.table}}))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefinitionError_Error(t *testing.T) {
	e := DefinitionError{Code: ErrNoPrimaryKey, Table: "tabs", Message: "primary key is required"}
	assert.Equal(t, "[S107] tabs: primary key is required", e.Error())

	e = DefinitionError{Code: ErrEmptyTableName, Message: "table name is required"}
	assert.Equal(t, "[S101] table name is required", e.Error())
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("network_leaderboard"))
	assert.True(t, ValidIdentifier("_x1"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("tabs; DROP TABLE tabs"))
	assert.False(t, ValidIdentifier("9lives"))
}
