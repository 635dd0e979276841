package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
	"github.com/roach88/privacydb/internal/testutil"
)

// validIdentifier matches table and column names that may be interpolated
// into assertion queries.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Table    string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s on %s: expected %s, got %s", e.Type, e.Table, e.Expected, e.Actual)
}

func assertRowCount(ctx context.Context, st *store.Store, a Assertion) error {
	n, err := countRows(ctx, st, a.Table)
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Table:    a.Table,
			Expected: fmt.Sprintf("%d rows", a.Count),
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	return nil
}

func assertEmpty(ctx context.Context, st *store.Store, a Assertion) error {
	n, err := countRows(ctx, st, a.Table)
	if err != nil {
		return err
	}
	if n != 0 {
		return &AssertionError{
			Type:     AssertEmpty,
			Table:    a.Table,
			Expected: "no rows",
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	return nil
}

func countRows(ctx context.Context, st *store.Store, table string) (int, error) {
	var n int
	err := st.DB().QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", schema.Quote(table))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return n, nil
}

func assertColumnOrder(tables []schema.Table, a Assertion) error {
	for _, t := range tables {
		if t.Name != a.Table {
			continue
		}
		actual := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			actual[i] = c.Name
		}
		if !reflect.DeepEqual(actual, a.Columns) {
			return &AssertionError{
				Type:     AssertColumnOrder,
				Table:    a.Table,
				Expected: strings.Join(a.Columns, ", "),
				Actual:   strings.Join(actual, ", "),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertColumnOrder,
		Table:    a.Table,
		Expected: "table to exist",
		Actual:   "table not found",
	}
}

// assertFinalState checks that exactly one row matches Where and that it
// carries every value in Expect.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	whereSQL, whereArgs, err := buildWhereClause(a.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s", schema.Quote(a.Table), whereSQL)
	rows, err := testutil.Rows(ctx, st, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Table:    a.Table,
			Expected: "a queryable table",
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	whereDesc := formatWhereClause(a.Where)
	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Table:    a.Table,
			Expected: fmt.Sprintf("a row where %s", whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Table:    a.Table,
			Expected: fmt.Sprintf("exactly one row where %s", whereDesc),
			Actual:   fmt.Sprintf("%d rows matched", len(rows)),
		}
	}

	row := rows[0]
	keys := sortedKeys(a.Expect)
	for _, key := range keys {
		actual, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Table:    a.Table,
				Expected: fmt.Sprintf("column %q", key),
				Actual:   "column not present",
			}
		}
		if !stateValuesEqual(a.Expect[key], actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Table:    a.Table,
				Expected: fmt.Sprintf("%s = %v (%T)", key, a.Expect[key], a.Expect[key]),
				Actual:   fmt.Sprintf("%s = %v (%T)", key, actual, actual),
			}
		}
	}
	return nil
}

// buildWhereClause builds a parameterized WHERE clause with keys in sorted order.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", schema.Quote(key)))
		args = append(args, where[key])
	}
	return strings.Join(clauses, " AND "), args, nil
}

func formatWhereClause(where map[string]interface{}) string {
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares a YAML value against a value read from SQLite.
// SQLite returns integers as int64 and stores booleans as 0/1.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case int:
		return intEqual(int64(exp), actual)
	case int64:
		return intEqual(exp, actual)
	case bool:
		if act, ok := actual.(bool); ok {
			return exp == act
		}
		if act, ok := actual.(int64); ok {
			return exp == (act != 0)
		}
		return false
	case float64:
		if act, ok := actual.(float64); ok {
			return exp == act
		}
		return exp == float64(int64(exp)) && intEqual(int64(exp), actual)
	}

	return reflect.DeepEqual(expected, actual)
}

func intEqual(exp int64, actual interface{}) bool {
	switch act := actual.(type) {
	case int64:
		return exp == act
	case int:
		return exp == int64(act)
	case bool:
		return (exp != 0) == act
	}
	return false
}

// evaluateAssertions evaluates every assertion and returns one message per failure.
func evaluateAssertions(ctx context.Context, st *store.Store, tables []schema.Table, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRowCount:
			err = assertRowCount(ctx, st, a)
		case AssertFinalState:
			err = assertFinalState(ctx, st, a)
		case AssertEmpty:
			err = assertEmpty(ctx, st, a)
		case AssertColumnOrder:
			err = assertColumnOrder(tables, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
