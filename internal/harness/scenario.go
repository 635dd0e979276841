package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/privacydb/internal/store"
)

// Scenario describes one migration check: a store created at From from the
// schema catalog, optionally seeded, migrated to To and then asserted on.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// From is the version the store is created at.
	From int `yaml:"from"`

	// To is the version the chain migrates to. Must be greater than From.
	To int `yaml:"to"`

	// Driver selects the SQLite driver. Empty means the store default.
	Driver string `yaml:"driver,omitempty"`

	// Seed holds SQL statements run against the version-From store, in one
	// transaction, before migrating.
	Seed []string `yaml:"seed,omitempty"`

	// Assertions are evaluated against the migrated store.
	// Supported types: row_count, final_state, empty, column_order
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Golden compares the introspected schema against testdata/golden/{name}.golden.
	Golden bool `yaml:"golden,omitempty"`
}

// Assertion checks the content or shape of one table after migration.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Table is the table under test. Required by every assertion type.
	Table string `yaml:"table"`

	// Where selects exactly one row (final_state).
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect holds expected column values, subset match (final_state).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of rows (row_count).
	Count int `yaml:"count,omitempty"`

	// Columns is the expected column order (column_order).
	Columns []string `yaml:"columns,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount    = "row_count"
	AssertFinalState  = "final_state"
	AssertEmpty       = "empty"
	AssertColumnOrder = "column_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := seen[sc.Name]; dup {
			return nil, fmt.Errorf("%s: scenario %q already defined in %s", filepath.Base(path), sc.Name, prev)
		}
		seen[sc.Name] = filepath.Base(path)
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validIdentifier.MatchString(s.Name) {
		return fmt.Errorf("name %q must match %s", s.Name, validIdentifier.String())
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.From < 1 {
		return fmt.Errorf("from must be at least 1, got %d", s.From)
	}
	if s.To <= s.From {
		return fmt.Errorf("to (%d) must be greater than from (%d)", s.To, s.From)
	}

	switch s.Driver {
	case "", store.DriverMattn, store.DriverModernc:
	default:
		return fmt.Errorf("unsupported driver %q", s.Driver)
	}

	if len(s.Assertions) == 0 && !s.Golden {
		return fmt.Errorf("at least one assertion or golden: true is required")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Table == "" {
		return fmt.Errorf("assertions[%d]: table is required", index)
	}
	if !validIdentifier.MatchString(a.Table) {
		return fmt.Errorf("assertions[%d]: invalid table name %q", index, a.Table)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertFinalState:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertEmpty:
	case AssertColumnOrder:
		if len(a.Columns) == 0 {
			return fmt.Errorf("assertions[%d]: columns is required for column_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
