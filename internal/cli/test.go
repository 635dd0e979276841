package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/privacydb/internal/harness"
	"github.com/roach88/privacydb/internal/migrate"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern on the scenario name)
	GoldenDir string // defaults to a "golden" directory next to the scenarios directory
	Parallel  int
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name    string   `json:"name"`
	Pass    bool     `json:"pass"`
	Steps   int      `json:"steps"`
	Errors  []string `json:"errors,omitempty"`
	Updated bool     `json:"golden_updated,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run migration scenarios",
		Long: `Run migration scenarios against the built-in step chain.

Each scenario creates a fresh store at its starting version from the schema
catalog, seeds it, migrates it and checks the result against the target
definition, its assertions and, when requested, its golden schema snapshot.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenario, etc.)

Examples:
  privacydb test ./scenarios
  privacydb test ./scenarios --filter "tab_*"
  privacydb test ./scenarios --update
  privacydb test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "golden snapshot directory (default: <scenarios-dir>/../golden)")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 4, "scenarios run at once")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		msg := fmt.Sprintf("scenarios directory not found: %s", scenariosDir)
		_ = f.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, ErrCodeNotFound+": "+msg)
	}

	all, err := harness.LoadScenarios(scenariosDir)
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeGeneric+": load scenarios", err)
	}

	scenarios, err := filterScenarios(all, opts.Filter)
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeGeneric+": filter scenarios", err)
	}

	if len(scenarios) == 0 {
		if f.JSON() {
			return f.Success(TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return nil
	}

	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(scenariosDir, "..", "golden")
	}

	results, err := harness.RunAll(ctx, scenarios, migrate.DefaultRegistry(), opts.Parallel)
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeGeneric+": run scenarios", err)
	}

	summary := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(results)),
		Total:     len(results),
	}
	for i, res := range results {
		sr := ScenarioResult{
			Name:   res.Scenario,
			Pass:   res.Pass,
			Steps:  len(res.Applied),
			Errors: res.Errors,
		}
		if scenarios[i].Golden && res.Pass {
			checkGolden(&sr, res, goldenDir, opts.Update)
		}
		if sr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Scenarios = append(summary.Scenarios, sr)
	}

	failure := fmt.Sprintf("%d of %d scenarios failed", summary.Failed, summary.Total)
	switch {
	case f.JSON() && summary.Failed > 0:
		if err := f.Failure(ErrCodeScenarioFailed, failure, summary); err != nil {
			return err
		}
	case f.JSON():
		if err := f.Success(summary); err != nil {
			return err
		}
	default:
		outputTestText(f, summary)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, ErrCodeScenarioFailed+": "+failure)
	}
	return nil
}

func filterScenarios(all []*harness.Scenario, pattern string) ([]*harness.Scenario, error) {
	if pattern == "" {
		return all, nil
	}
	var out []*harness.Scenario
	for _, sc := range all {
		matched, err := filepath.Match(pattern, sc.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, sc)
		}
	}
	return out, nil
}

// checkGolden compares (or with update, rewrites) the scenario's schema snapshot.
func checkGolden(sr *ScenarioResult, res *harness.Result, dir string, update bool) {
	snapshot, err := harness.SchemaSnapshot(res)
	if err != nil {
		sr.fail(fmt.Sprintf("schema snapshot: %v", err))
		return
	}
	path := filepath.Join(dir, res.Scenario+".golden")

	if update {
		if err := os.MkdirAll(dir, 0755); err != nil {
			sr.fail(fmt.Sprintf("failed to create golden directory: %v", err))
			return
		}
		if err := os.WriteFile(path, snapshot, 0644); err != nil {
			sr.fail(fmt.Sprintf("failed to write golden file: %v", err))
			return
		}
		sr.Updated = true
		return
	}

	golden, err := os.ReadFile(path)
	if err != nil {
		sr.fail(fmt.Sprintf("failed to read golden file (run with --update to create it): %v", err))
		return
	}
	if !bytes.Equal(golden, snapshot) {
		sr.fail("schema does not match golden file (run with --update to regenerate)")
	}
}

func (sr *ScenarioResult) fail(msg string) {
	sr.Pass = false
	sr.Errors = append(sr.Errors, msg)
}

func outputTestText(f *OutputFormatter, summary TestResult) {
	w := f.Writer
	for _, sr := range summary.Scenarios {
		switch {
		case !sr.Pass:
			fmt.Fprintf(w, "✗ %s\n", sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		case sr.Updated:
			fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
		default:
			fmt.Fprintf(w, "✓ %s\n", sr.Name)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
}
