// Package store is the connection abstraction the migrator works through.
//
// A Store wraps one SQLite file opened with either github.com/mattn/go-sqlite3
// (driver "sqlite3") or modernc.org/sqlite (driver "sqlite"). It offers:
//   - statement execution
//   - schema introspection (tables, ordered columns, primary keys, indices)
//   - scoped transactions that roll back on every exit path except an
//     explicit commit
//
// # Metadata
//
// The current schema version lives in the file header (PRAGMA user_version).
// It is read before resolving a migration chain and written inside each
// step's transaction, so it always moves together with the DDL it describes.
//
// The identity hash of the last validated schema lives in a single-row
// privacydb_master table. It is bookkeeping, not part of any schema version,
// and introspection never reports it.
//
// # Database Configuration
//
//   - journal_mode: WAL unless configured otherwise
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: 5000ms unless configured otherwise
//   - foreign_keys=ON: Enforce referential integrity
//   - one pooled connection: the owner of the store has exclusive access
package store
