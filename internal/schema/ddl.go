package schema

import (
	"fmt"
	"strings"
)

// Quote wraps an identifier in backticks for DDL.
func Quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// CreateTableSQL renders the CREATE TABLE statement for t.
// The primary key is always emitted as a table constraint so that composite
// and single-column keys introspect identically.
func CreateTableSQL(t Table) string {
	parts := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		parts = append(parts, ColumnSQL(c))
	}
	if len(t.PrimaryKey) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY(%s)", quoteList(t.PrimaryKey)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", Quote(t.Name), strings.Join(parts, ", "))
}

// ColumnSQL renders a column definition as used by CREATE TABLE and ALTER TABLE ADD COLUMN.
func ColumnSQL(c Column) string {
	var b strings.Builder
	b.WriteString(Quote(c.Name))
	b.WriteByte(' ')
	b.WriteString(c.Type.Affinity())
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*c.Default)
	}
	return b.String()
}

// CreateIndexSQL renders the CREATE INDEX statement for idx on table.
func CreateIndexSQL(table string, idx Index) string {
	kind := "INDEX"
	if idx.Unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, Quote(idx.Name), Quote(table), quoteList(idx.Columns))
}

// Statements renders every statement needed to create the definition from an
// empty database, tables first and then their indices.
func (d Definition) Statements() []string {
	var stmts []string
	for _, t := range d.Tables {
		stmts = append(stmts, CreateTableSQL(t))
	}
	for _, t := range d.Tables {
		for _, idx := range t.Indices {
			stmts = append(stmts, CreateIndexSQL(t.Name, idx))
		}
	}
	return stmts
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Quote(n)
	}
	return strings.Join(quoted, ", ")
}
