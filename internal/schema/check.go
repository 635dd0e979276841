package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Definition error codes (S100-S199)
const (
	ErrEmptyTableName      = "S101" // table name is required
	ErrDuplicateTable      = "S102" // two tables share a name
	ErrNoColumns           = "S103" // table has no columns
	ErrDuplicateColumn     = "S104" // column names must be unique within a table
	ErrInvalidColumnType   = "S105" // unknown semantic type
	ErrPrimaryKeyUnknown   = "S106" // primary key column not among the columns
	ErrNoPrimaryKey        = "S107" // every table needs a primary key
	ErrIndexColumnUnknown  = "S108" // index column not among the columns
	ErrDuplicateIndex      = "S109" // index names must be unique across the definition
	ErrInvalidIdentifier   = "S110" // identifier not safe to interpolate into DDL
	ErrIndexWithoutColumns = "S111" // index has no columns
)

// validIdentifier matches identifiers we are willing to interpolate into DDL.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be safely interpolated into SQL.
func ValidIdentifier(name string) bool {
	return validIdentifier.MatchString(name)
}

// DefinitionError is a single invariant violation in a Definition.
type DefinitionError struct {
	Code    string `json:"code"`
	Table   string `json:"table,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e DefinitionError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Table, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// CheckError aggregates every invariant violation of one definition.
type CheckError struct {
	Version Version
	Errors  []DefinitionError
}

func (e *CheckError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, de := range e.Errors {
		msgs[i] = de.Error()
	}
	return fmt.Sprintf("schema version %d is invalid: %s", e.Version, strings.Join(msgs, "; "))
}

// Check validates a definition against the table invariants.
// Returns all errors found (does not fail-fast).
func Check(def Definition) []DefinitionError {
	var errs []DefinitionError

	tables := make(map[string]bool)
	indices := make(map[string]string)

	for _, t := range def.Tables {
		if t.Name == "" {
			errs = append(errs, DefinitionError{Code: ErrEmptyTableName, Message: "table name is required"})
			continue
		}
		if !ValidIdentifier(t.Name) {
			errs = append(errs, DefinitionError{Code: ErrInvalidIdentifier, Table: t.Name, Message: "table name is not a valid identifier"})
		}
		if tables[t.Name] {
			errs = append(errs, DefinitionError{Code: ErrDuplicateTable, Table: t.Name, Message: "table declared more than once"})
		}
		tables[t.Name] = true

		errs = append(errs, checkTable(t)...)

		for _, idx := range t.Indices {
			if other, dup := indices[idx.Name]; dup {
				errs = append(errs, DefinitionError{
					Code:    ErrDuplicateIndex,
					Table:   t.Name,
					Message: fmt.Sprintf("index %q already declared on table %q", idx.Name, other),
				})
			}
			indices[idx.Name] = t.Name
		}
	}

	return errs
}

func checkTable(t Table) []DefinitionError {
	var errs []DefinitionError

	if len(t.Columns) == 0 {
		errs = append(errs, DefinitionError{Code: ErrNoColumns, Table: t.Name, Message: "at least one column is required"})
	}

	cols := make(map[string]bool)
	for _, c := range t.Columns {
		if !ValidIdentifier(c.Name) {
			errs = append(errs, DefinitionError{Code: ErrInvalidIdentifier, Table: t.Name, Message: fmt.Sprintf("column %q is not a valid identifier", c.Name)})
		}
		if cols[c.Name] {
			errs = append(errs, DefinitionError{Code: ErrDuplicateColumn, Table: t.Name, Message: fmt.Sprintf("column %q declared more than once", c.Name)})
		}
		cols[c.Name] = true
		if !ValidColumnTypes[c.Type] {
			errs = append(errs, DefinitionError{Code: ErrInvalidColumnType, Table: t.Name, Message: fmt.Sprintf("column %q has invalid type %q", c.Name, c.Type)})
		}
	}

	if len(t.PrimaryKey) == 0 {
		errs = append(errs, DefinitionError{Code: ErrNoPrimaryKey, Table: t.Name, Message: "primary key is required"})
	}
	for _, pk := range t.PrimaryKey {
		if !cols[pk] {
			errs = append(errs, DefinitionError{Code: ErrPrimaryKeyUnknown, Table: t.Name, Message: fmt.Sprintf("primary key column %q is not a column", pk)})
		}
	}

	for _, idx := range t.Indices {
		if !ValidIdentifier(idx.Name) {
			errs = append(errs, DefinitionError{Code: ErrInvalidIdentifier, Table: t.Name, Message: fmt.Sprintf("index %q is not a valid identifier", idx.Name)})
		}
		if len(idx.Columns) == 0 {
			errs = append(errs, DefinitionError{Code: ErrIndexWithoutColumns, Table: t.Name, Message: fmt.Sprintf("index %q has no columns", idx.Name)})
		}
		for _, col := range idx.Columns {
			if !cols[col] {
				errs = append(errs, DefinitionError{Code: ErrIndexColumnUnknown, Table: t.Name, Message: fmt.Sprintf("index %q references unknown column %q", idx.Name, col)})
			}
		}
	}

	return errs
}
