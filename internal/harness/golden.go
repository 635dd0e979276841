package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/privacydb/internal/migrate"
	"github.com/roach88/privacydb/internal/schema"
)

// GoldenDir is where schema snapshots live, relative to the test's package.
const GoldenDir = "testdata/golden"

// SchemaSnapshot renders the introspected schema of a result as canonical JSON.
// Table and index order do not affect the snapshot.
func SchemaSnapshot(result *Result) ([]byte, error) {
	return schema.CanonicalJSON(result.Schema)
}

// AssertGolden compares the result's schema snapshot with
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := SchemaSnapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}

// RunWithGolden runs a scenario and, when the scenario asks for it, compares
// the resulting schema with its golden file. Scenario failures are reported
// through t.
func RunWithGolden(t *testing.T, sc *Scenario, registry *migrate.Registry) *Result {
	t.Helper()

	result, err := Run(context.Background(), sc, registry)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", sc.Name, msg)
	}
	if sc.Golden {
		if err := AssertGolden(t, sc.Name, result); err != nil {
			t.Fatalf("scenario %s: %v", sc.Name, err)
		}
	}
	return result
}
