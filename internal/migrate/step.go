package migrate

import (
	"fmt"
	"strings"

	"github.com/roach88/privacydb/internal/schema"
)

// Step transforms a store at version From into a store at version To = From+1.
//
// Structural operations run first, in order, then data transforms, in order.
// A step carries its own table literals and never reads the catalog, so a
// validated result is evidence that the step did its job.
type Step struct {
	From       schema.Version
	To         schema.Version
	Name       string
	Structural []StructuralOp
	Transforms []DataTransform
}

// Key renders the version pair, e.g. "4->5".
func (s Step) Key() string {
	return fmt.Sprintf("%d->%d", s.From, s.To)
}

// Policy renders the step's declarative data policy.
func (s Step) Policy() string {
	var parts []string
	for _, op := range s.Structural {
		parts = append(parts, op.Describe())
	}
	if len(s.Transforms) == 0 {
		parts = append(parts, "no data transform")
	}
	for _, tr := range s.Transforms {
		parts = append(parts, tr.Describe())
	}
	return strings.Join(parts, "; then ")
}

// StructuralOp is a DDL change. The set of variants is closed.
type StructuralOp interface {
	Describe() string
	structural()
}

// CreateTable creates a table and its declared indices.
type CreateTable struct {
	Table schema.Table
}

// DropTable drops a table and every row in it.
type DropTable struct {
	Name string
}

// RenameTable renames a table, keeping its rows.
type RenameTable struct {
	From string
	To   string
}

// AddColumn appends a column to an existing table.
// Existing rows receive the column default.
type AddColumn struct {
	Table  string
	Column schema.Column
}

// CreateIndex creates a named index on an existing table.
type CreateIndex struct {
	Table string
	Index schema.Index
}

// DropIndex drops a named index.
type DropIndex struct {
	Name string
}

func (CreateTable) structural() {}
func (DropTable) structural()   {}
func (RenameTable) structural() {}
func (AddColumn) structural()   {}
func (CreateIndex) structural() {}
func (DropIndex) structural()   {}

func (op CreateTable) Describe() string {
	return fmt.Sprintf("create table %s keyed by (%s)", op.Table.Name, strings.Join(op.Table.PrimaryKey, ", "))
}

func (op DropTable) Describe() string {
	return fmt.Sprintf("drop table %s", op.Name)
}

func (op RenameTable) Describe() string {
	return fmt.Sprintf("rename table %s to %s", op.From, op.To)
}

func (op AddColumn) Describe() string {
	return fmt.Sprintf("add column %s %s to %s", op.Column.Name, op.Column, op.Table)
}

func (op CreateIndex) Describe() string {
	return fmt.Sprintf("create index %s on %s (%s)", op.Index.Name, op.Table, strings.Join(op.Index.Columns, ", "))
}

func (op DropIndex) Describe() string {
	return fmt.Sprintf("drop index %s", op.Name)
}

// DataTransform rewrites rows after the structural part of a step.
// The set of variants is closed.
type DataTransform interface {
	Describe() string
	transform()
}

// Purge deletes every row of a table whose contents no longer mean what they
// meant under the previous version.
type Purge struct {
	Table  string
	Reason string
}

// RankBackfill overwrites Column with each row's zero-based rank in the
// table's natural row order.
type RankBackfill struct {
	Table  string
	Column string
}

// ExecSQL runs an arbitrary DML statement.
type ExecSQL struct {
	Description string
	SQL         string
}

func (Purge) transform()        {}
func (RankBackfill) transform() {}
func (ExecSQL) transform()      {}

func (tr Purge) Describe() string {
	if tr.Reason == "" {
		return fmt.Sprintf("discard every row of %s", tr.Table)
	}
	return fmt.Sprintf("discard every row of %s (%s)", tr.Table, tr.Reason)
}

func (tr RankBackfill) Describe() string {
	return fmt.Sprintf("set %s.%s to each row's zero-based rank in natural row order", tr.Table, tr.Column)
}

func (tr ExecSQL) Describe() string {
	return tr.Description
}
