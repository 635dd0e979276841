package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected interface{}
		actual   interface{}
		want     bool
	}{
		{"string", "a", "a", true},
		{"string mismatch", "a", "b", false},
		{"int against int64", 1, int64(1), true},
		{"int mismatch", 1, int64(2), false},
		{"int64", int64(5), int64(5), true},
		{"bool against 0/1", true, int64(1), true},
		{"false against 0", false, int64(0), true},
		{"bool against bool", true, true, true},
		{"bool against string", true, "1", false},
		{"whole float against int", float64(3), int64(3), true},
		{"float against float", 1.5, 1.5, true},
		{"nil against nil", nil, nil, true},
		{"nil against value", nil, "a", false},
		{"value against nil", "a", nil, false},
		{"int against string", 1, "1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestBuildWhereClause_SortedAndParameterized(t *testing.T) {
	sql, args, err := buildWhereClause(map[string]interface{}{"tabId": "a", "position": 1})
	require.NoError(t, err)
	assert.Equal(t, "`position` = ? AND `tabId` = ?", sql)
	assert.Equal(t, []interface{}{1, "a"}, args)
}

func TestBuildWhereClause_RejectsBadIdentifier(t *testing.T) {
	_, _, err := buildWhereClause(map[string]interface{}{"a = 1 OR 1": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid column name")
}

func TestFormatWhereClause(t *testing.T) {
	assert.Equal(t, "a=1 AND b=x", formatWhereClause(map[string]interface{}{"b": "x", "a": 1}))
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{Type: AssertEmpty, Table: "tabs", Expected: "no rows", Actual: "2 rows"}
	assert.Equal(t, "assertion failed: empty on tabs: expected no rows, got 2 rows", err.Error())
}
