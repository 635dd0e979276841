package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Version identifies one database shape. Versions start at 1 and only move forward.
type Version int

// ColumnType is the semantic type of a column.
//
// BOOLEAN has no native SQLite storage class; it is declared with INTEGER
// affinity on disk and compared through Affinity during validation.
type ColumnType string

const (
	TypeText    ColumnType = "TEXT"
	TypeInteger ColumnType = "INTEGER"
	TypeBoolean ColumnType = "BOOLEAN"
	TypeReal    ColumnType = "REAL"
	TypeBlob    ColumnType = "BLOB"
)

// ValidColumnTypes defines allowed semantic types.
var ValidColumnTypes = map[ColumnType]bool{
	TypeText:    true,
	TypeInteger: true,
	TypeBoolean: true,
	TypeReal:    true,
	TypeBlob:    true,
}

// Affinity returns the declared SQL type written to (and read back from) disk.
func (t ColumnType) Affinity() string {
	if t == TypeBoolean {
		return string(TypeInteger)
	}
	return strings.ToUpper(string(t))
}

// Column describes a single table column.
type Column struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	NotNull bool       `json:"not_null"`
	// Default is the SQL literal of the column default ("0", "'abc'"), nil for none.
	Default *string `json:"default,omitempty"`
}

// Index describes a named secondary index.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// Table describes one table: ordered columns, primary key and indices.
type Table struct {
	Name       string   `json:"name"`
	Columns    []Column `json:"columns"`
	PrimaryKey []string `json:"primary_key"`
	Indices    []Index  `json:"indices,omitempty"`
}

// Column returns the column with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Index returns the index with the given name.
func (t Table) Index(name string) (Index, bool) {
	for _, idx := range t.Indices {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

// Definition is the complete set of tables that must exist at a version.
type Definition struct {
	Version Version `json:"version"`
	Tables  []Table `json:"tables"`
}

// Table returns the table with the given name.
func (d Definition) Table(name string) (Table, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// TableNames returns the sorted table names of the definition.
func (d Definition) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for _, t := range d.Tables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy so callers cannot mutate the catalog.
func (d Definition) Clone() Definition {
	out := Definition{Version: d.Version, Tables: make([]Table, len(d.Tables))}
	for i, t := range d.Tables {
		out.Tables[i] = t.Clone()
	}
	return out
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{
		Name:       t.Name,
		Columns:    make([]Column, len(t.Columns)),
		PrimaryKey: append([]string(nil), t.PrimaryKey...),
	}
	for i, c := range t.Columns {
		out.Columns[i] = c
		if c.Default != nil {
			d := *c.Default
			out.Columns[i].Default = &d
		}
	}
	if len(t.Indices) > 0 {
		out.Indices = make([]Index, len(t.Indices))
		for i, idx := range t.Indices {
			out.Indices[i] = Index{
				Name:    idx.Name,
				Columns: append([]string(nil), idx.Columns...),
				Unique:  idx.Unique,
			}
		}
	}
	return out
}

// String renders a compact column description used in diagnostics.
func (c Column) String() string {
	var b strings.Builder
	b.WriteString(c.Type.Affinity())
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		fmt.Fprintf(&b, " DEFAULT %s", *c.Default)
	}
	return b.String()
}

// Literal returns a pointer to s, for building Column defaults inline.
func Literal(s string) *string {
	return &s
}
