package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/privacydb/internal/schema"
)

var (
	// ErrDowngrade is returned when a chain is requested from a newer version
	// to an older one. Stores only move forward.
	ErrDowngrade = errors.New("migrations only move forward")

	// ErrSchemaVersionTooNew is returned when the stored version is newer
	// than the newest version this build knows about.
	ErrSchemaVersionTooNew = errors.New("database schema version is newer than supported")

	// ErrInvalidRegistry is returned by NewRegistry for steps that cannot
	// form a chain.
	ErrInvalidRegistry = errors.New("invalid migration registry")
)

// NoMigrationPathError reports a chain that cannot be resolved because one or
// more adjacent steps are not registered. Nothing has been executed when it is
// returned.
type NoMigrationPathError struct {
	From schema.Version
	To   schema.Version
	// Missing lists the From version of every unregistered step, ascending.
	Missing []schema.Version
}

func (e *NoMigrationPathError) Error() string {
	links := make([]string, len(e.Missing))
	for i, v := range e.Missing {
		links[i] = fmt.Sprintf("%d->%d", v, v+1)
	}
	return fmt.Sprintf("no migration path from %d to %d: missing %s",
		e.From, e.To, strings.Join(links, ", "))
}

// StructuralError reports a DDL operation that could not be applied.
type StructuralError struct {
	From schema.Version
	To   schema.Version
	// Op describes the failing operation.
	Op  string
	Err error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("migration %d->%d: structural change %q failed: %v", e.From, e.To, e.Op, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// DataTransformError reports a data rewrite that could not complete.
type DataTransformError struct {
	From schema.Version
	To   schema.Version
	// Transform describes the failing transform.
	Transform string
	Err       error
}

func (e *DataTransformError) Error() string {
	return fmt.Sprintf("migration %d->%d: data transform %q failed: %v", e.From, e.To, e.Transform, e.Err)
}

func (e *DataTransformError) Unwrap() error { return e.Err }

// IdentityMismatchError reports a store whose recorded identity does not
// match the definition of the version it claims to be at.
type IdentityMismatchError struct {
	Version  schema.Version
	Expected string
	Actual   string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("store identity does not match version %d: expected %s, found %s",
		e.Version, e.Expected, e.Actual)
}

// IsNoPath returns true if the error is or wraps a *NoMigrationPathError.
func IsNoPath(err error) bool {
	var target *NoMigrationPathError
	return errors.As(err, &target)
}

// IsStructural returns true if the error is or wraps a *StructuralError.
func IsStructural(err error) bool {
	var target *StructuralError
	return errors.As(err, &target)
}

// IsDataTransform returns true if the error is or wraps a *DataTransformError.
func IsDataTransform(err error) bool {
	var target *DataTransformError
	return errors.As(err, &target)
}

// IsIdentityMismatch returns true if the error is or wraps an *IdentityMismatchError.
func IsIdentityMismatch(err error) bool {
	var target *IdentityMismatchError
	return errors.As(err, &target)
}
