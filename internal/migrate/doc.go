// Package migrate evolves a store forward through its schema versions.
//
// A Step takes a store from version N to N+1. It bundles structural
// operations (CreateTable, DropTable, RenameTable, AddColumn, CreateIndex,
// DropIndex) with data transforms (Purge, RankBackfill, ExecSQL) that run
// after the structural part, against the already reshaped tables. Both sets
// of variants are closed: adding one means extending the switch in ops.go.
//
// A Registry resolves the chain of steps between two versions. Every version
// boundary needs its own explicitly registered step; gaps are never bridged.
//
// The Runner applies a chain one step per transaction. The new version is
// recorded in the same transaction as the DDL and DML, so a failing step
// leaves the store exactly at the previous step's version.
//
// The Migrator is the startup path. It bootstraps empty stores directly at the
// target version, refuses stores from a newer build, verifies the recorded
// identity, runs the chain, validates the result and records the new identity.
// Callers must not hand the store to anything else until Migrate returns nil.
//
// # Observability
//
// Runs and steps log through log/slog with a run_id, open OpenTelemetry spans
// from the global tracer provider, and feed Prometheus counters and histograms
// when WithMetrics is given.
package migrate
