// Package schema holds the canonical, versioned description of the local store.
//
// Every version of the store is described by a Definition: the tables, their
// ordered columns (semantic type, nullability, default), primary keys and
// named indices. Definitions are authored in schema.cue and compiled once per
// process with the CUE Go SDK into a Catalog.
//
// The catalog is pure data. It is consumed by:
//   - the validator, which diffs a live store against Definition for a version
//   - the migrator, which bootstraps empty stores directly at the latest version
//   - the test harness, which creates stores fixed at version N without
//     running any migration step
//
// # Invariants
//
//   - Versions are contiguous from 1 to Latest
//   - Column names are unique within a table
//   - Primary-key and index columns exist among the table's columns
//   - Index names are unique across a definition
//
// # Identity
//
// Definition.IdentityHash is a SHA-256 over canonical JSON of the definition.
// The migrator persists it after a successful migration and verifies it on
// every open, so a store whose shape drifted from its recorded version is
// refused instead of trusted.
package schema
