package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/validate"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid         bool                   `json:"valid"`
	Version       schema.Version         `json:"version"`
	Discrepancies []validate.Discrepancy `json:"discrepancies,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the store against its schema definition",
		Long: `Compare the live schema of the store with the canonical definition
of the version it records (or --version) and list every discrepancy.

Validate never writes to the store.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), rootOpts, schema.Version(version), cmd)
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "validate against this version instead of the recorded one")
	return cmd
}

func runValidate(ctx context.Context, opts *RootOptions, version schema.Version, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	cfg, err := opts.resolveConfig()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(f)
	if err != nil {
		return err
	}
	s, err := openStore(f, cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if version == 0 {
		version, err = s.Version(ctx)
		if err != nil {
			return reportError(f, "read version", err)
		}
		if version == 0 {
			msg := "store has no recorded schema version"
			_ = f.Error(ErrCodeUnversioned, msg, nil)
			return NewExitError(ExitFailure, ErrCodeUnversioned+": "+msg)
		}
	}

	def, err := catalog.At(version)
	if err != nil {
		return reportError(f, "validate", err)
	}

	f.VerboseLog("Validating %s against version %d (%d tables)", s.Path(), version, len(def.Tables))

	err = validate.Validate(ctx, s, def)
	var mismatch *validate.SchemaMismatchError
	switch {
	case err == nil:
		return outputValidateSuccess(f, version)
	case errors.As(err, &mismatch):
		return outputValidationErrors(f, mismatch)
	default:
		return reportError(f, "validate", err)
	}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(f *OutputFormatter, version schema.Version) error {
	if f.JSON() {
		return f.Success(ValidationResult{Valid: true, Version: version})
	}

	fmt.Fprintf(f.Writer, "✓ Store matches version %d\n", version)
	return nil
}

// outputValidationErrors outputs every discrepancy.
func outputValidationErrors(f *OutputFormatter, mismatch *validate.SchemaMismatchError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("%s: validation failed with %d discrepancies", ErrCodeSchemaMismatch, len(mismatch.Discrepancies)))

	if f.JSON() {
		result := ValidationResult{
			Valid:         false,
			Version:       mismatch.Version,
			Discrepancies: mismatch.Discrepancies,
		}
		if err := f.Failure(ErrCodeSchemaMismatch, fmt.Sprintf("schema does not match version %d", mismatch.Version), result); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintf(f.Writer, "✗ Store does not match version %d\n\n", mismatch.Version)
	for _, d := range mismatch.Discrepancies {
		fmt.Fprintf(f.Writer, "  %s\n", d.String())
	}
	return failure
}
