package cli

import (
	"errors"

	"github.com/roach88/privacydb/internal/migrate"
	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/validate"
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeConfig   = "E002" // Invalid configuration
	ErrCodeNotFound = "E005" // Path not found

	ErrCodeSchemaMismatch   = "E201" // Store does not match its definition
	ErrCodeNoPath           = "E202" // Missing migration step
	ErrCodeStructural       = "E203" // Structural operation failed
	ErrCodeDataTransform    = "E204" // Data transform failed
	ErrCodeVersionTooNew    = "E205" // Store is newer than this build
	ErrCodeIdentityMismatch = "E206" // Recorded identity hash differs
	ErrCodeUnversioned      = "E207" // Non-empty store without a version
	ErrCodeDowngrade        = "E208" // Target below current version
	ErrCodeUnknownVersion   = "E209" // Version outside the catalog
	ErrCodeScenarioFailed   = "E301" // One or more scenarios failed
)

// classify maps a migration or validation error to its error code.
func classify(err error) string {
	switch {
	case validate.IsSchemaMismatch(err):
		return ErrCodeSchemaMismatch
	case migrate.IsNoPath(err):
		return ErrCodeNoPath
	case migrate.IsStructural(err):
		return ErrCodeStructural
	case migrate.IsDataTransform(err):
		return ErrCodeDataTransform
	case migrate.IsIdentityMismatch(err):
		return ErrCodeIdentityMismatch
	case errors.Is(err, migrate.ErrSchemaVersionTooNew):
		return ErrCodeVersionTooNew
	case errors.Is(err, migrate.ErrUnversionedStore):
		return ErrCodeUnversioned
	case errors.Is(err, migrate.ErrDowngrade):
		return ErrCodeDowngrade
	case errors.Is(err, schema.ErrUnknownVersion):
		return ErrCodeUnknownVersion
	default:
		return ErrCodeGeneric
	}
}

// reportError writes err through the formatter and returns the ExitError the
// command should return. Migration and validation failures exit with
// ExitFailure; anything else is a command error.
func reportError(f *OutputFormatter, message string, err error) error {
	code := classify(err)

	var details interface{}
	var mismatch *validate.SchemaMismatchError
	if errors.As(err, &mismatch) {
		details = mismatch.Discrepancies
	}
	_ = f.Error(code, message+": "+err.Error(), details)

	exit := ExitFailure
	if code == ErrCodeGeneric || code == ErrCodeUnknownVersion {
		exit = ExitCommandError
	}
	return WrapExitError(exit, code+": "+message, err)
}
