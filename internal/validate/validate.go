// Package validate diffs a live store against the schema definition for a version.
package validate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
)

// Introspector reads the actual schema of a live store.
// *store.Store and *store.Tx satisfy it.
type Introspector interface {
	Introspect(ctx context.Context) ([]schema.Table, error)
}

// Kind classifies a single discrepancy.
type Kind string

const (
	MissingTable       Kind = "missing_table"
	ExtraTable         Kind = "extra_table"
	MissingColumn      Kind = "missing_column"
	ExtraColumn        Kind = "extra_column"
	ColumnOrder        Kind = "column_order"
	TypeMismatch       Kind = "type_mismatch"
	NullabilityChanged Kind = "nullability_mismatch"
	DefaultChanged     Kind = "default_mismatch"
	PrimaryKeyChanged  Kind = "primary_key_mismatch"
	MissingIndex       Kind = "missing_index"
	ExtraIndex         Kind = "extra_index"
	IndexChanged       Kind = "index_mismatch"
)

// Discrepancy is one difference between the expected and the actual schema.
type Discrepancy struct {
	Kind     Kind   `json:"kind"`
	Table    string `json:"table"`
	Object   string `json:"object,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

func (d Discrepancy) String() string {
	var b strings.Builder
	b.WriteString(string(d.Kind))
	b.WriteString(" ")
	b.WriteString(d.Table)
	if d.Object != "" {
		b.WriteString(".")
		b.WriteString(d.Object)
	}
	if d.Expected != "" || d.Actual != "" {
		fmt.Fprintf(&b, " (expected %q, actual %q)", d.Expected, d.Actual)
	}
	return b.String()
}

// SchemaMismatchError aggregates every discrepancy found for one version.
type SchemaMismatchError struct {
	Version       schema.Version
	Discrepancies []Discrepancy
}

func (e *SchemaMismatchError) Error() string {
	parts := make([]string, len(e.Discrepancies))
	for i, d := range e.Discrepancies {
		parts[i] = d.String()
	}
	return fmt.Sprintf("schema does not match version %d (%d discrepancies): %s",
		e.Version, len(e.Discrepancies), strings.Join(parts, "; "))
}

// IsSchemaMismatch reports whether err is or wraps a *SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var target *SchemaMismatchError
	return errors.As(err, &target)
}

// Validate introspects the store and compares it with def.
// It returns nil when they match and a *SchemaMismatchError listing every
// discrepancy otherwise. Validate never writes.
func Validate(ctx context.Context, in Introspector, def schema.Definition) error {
	actual, err := in.Introspect(ctx)
	if err != nil {
		return fmt.Errorf("validate version %d: %w", def.Version, err)
	}

	ds := Diff(def.Tables, actual)
	if len(ds) == 0 {
		return nil
	}
	return &SchemaMismatchError{Version: def.Version, Discrepancies: ds}
}

// Diff compares expected tables with introspected ones. The result is sorted
// by table, then kind, then object.
func Diff(expected, actual []schema.Table) []Discrepancy {
	var ds []Discrepancy

	actualByName := make(map[string]schema.Table, len(actual))
	for _, t := range actual {
		if store.IsBookkeeping(t.Name) {
			continue
		}
		actualByName[t.Name] = t
	}

	expectedNames := make(map[string]bool, len(expected))
	for _, want := range expected {
		expectedNames[want.Name] = true
		got, ok := actualByName[want.Name]
		if !ok {
			ds = append(ds, Discrepancy{Kind: MissingTable, Table: want.Name})
			continue
		}
		ds = append(ds, diffTable(want, got)...)
	}

	for name := range actualByName {
		if !expectedNames[name] {
			ds = append(ds, Discrepancy{Kind: ExtraTable, Table: name})
		}
	}

	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Table != ds[j].Table {
			return ds[i].Table < ds[j].Table
		}
		if ds[i].Kind != ds[j].Kind {
			return ds[i].Kind < ds[j].Kind
		}
		return ds[i].Object < ds[j].Object
	})
	return ds
}

func diffTable(want, got schema.Table) []Discrepancy {
	var ds []Discrepancy

	gotCols := make(map[string]schema.Column, len(got.Columns))
	for _, c := range got.Columns {
		gotCols[c.Name] = c
	}
	wantCols := make(map[string]bool, len(want.Columns))

	for _, wc := range want.Columns {
		wantCols[wc.Name] = true
		gc, ok := gotCols[wc.Name]
		if !ok {
			ds = append(ds, Discrepancy{Kind: MissingColumn, Table: want.Name, Object: wc.Name, Expected: wc.String()})
			continue
		}
		if wc.Type.Affinity() != strings.ToUpper(string(gc.Type)) {
			ds = append(ds, Discrepancy{Kind: TypeMismatch, Table: want.Name, Object: wc.Name,
				Expected: wc.Type.Affinity(), Actual: string(gc.Type)})
		}
		if wc.NotNull != gc.NotNull {
			ds = append(ds, Discrepancy{Kind: NullabilityChanged, Table: want.Name, Object: wc.Name,
				Expected: nullability(wc.NotNull), Actual: nullability(gc.NotNull)})
		}
		if defaultText(wc.Default) != defaultText(gc.Default) {
			ds = append(ds, Discrepancy{Kind: DefaultChanged, Table: want.Name, Object: wc.Name,
				Expected: defaultText(wc.Default), Actual: defaultText(gc.Default)})
		}
	}

	for _, gc := range got.Columns {
		if !wantCols[gc.Name] {
			ds = append(ds, Discrepancy{Kind: ExtraColumn, Table: want.Name, Object: gc.Name, Actual: gc.String()})
		}
	}

	if len(want.Columns) == len(got.Columns) {
		wantOrder := columnNames(want.Columns)
		gotOrder := columnNames(got.Columns)
		if wantOrder != gotOrder {
			ds = append(ds, Discrepancy{Kind: ColumnOrder, Table: want.Name, Expected: wantOrder, Actual: gotOrder})
		}
	}

	if strings.Join(want.PrimaryKey, ",") != strings.Join(got.PrimaryKey, ",") {
		ds = append(ds, Discrepancy{Kind: PrimaryKeyChanged, Table: want.Name,
			Expected: strings.Join(want.PrimaryKey, ","), Actual: strings.Join(got.PrimaryKey, ",")})
	}

	gotIdx := make(map[string]schema.Index, len(got.Indices))
	for _, idx := range got.Indices {
		gotIdx[idx.Name] = idx
	}
	wantIdx := make(map[string]bool, len(want.Indices))
	for _, wi := range want.Indices {
		wantIdx[wi.Name] = true
		gi, ok := gotIdx[wi.Name]
		if !ok {
			ds = append(ds, Discrepancy{Kind: MissingIndex, Table: want.Name, Object: wi.Name, Expected: indexText(wi)})
			continue
		}
		if indexText(wi) != indexText(gi) {
			ds = append(ds, Discrepancy{Kind: IndexChanged, Table: want.Name, Object: wi.Name,
				Expected: indexText(wi), Actual: indexText(gi)})
		}
	}
	for _, gi := range got.Indices {
		if !wantIdx[gi.Name] {
			ds = append(ds, Discrepancy{Kind: ExtraIndex, Table: want.Name, Object: gi.Name, Actual: indexText(gi)})
		}
	}

	return ds
}

func nullability(notNull bool) string {
	if notNull {
		return "NOT NULL"
	}
	return "NULL"
}

func defaultText(d *string) string {
	if d == nil {
		return ""
	}
	return *d
}

func columnNames(cols []schema.Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return strings.Join(names, ",")
}

func indexText(idx schema.Index) string {
	s := "(" + strings.Join(idx.Columns, ",") + ")"
	if idx.Unique {
		s = "UNIQUE " + s
	}
	return s
}
