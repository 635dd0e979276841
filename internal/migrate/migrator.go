package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
	"github.com/roach88/privacydb/internal/validate"
)

// ErrUnversionedStore is returned for a store that holds tables but has never
// recorded a schema version.
var ErrUnversionedStore = errors.New("store has tables but no recorded schema version")

// Report summarizes one migration run.
type Report struct {
	RunID        string         `json:"run_id"`
	From         schema.Version `json:"from"`
	To           schema.Version `json:"to"`
	Bootstrapped bool           `json:"bootstrapped"`
	Applied      []StepReport   `json:"applied"`
	Duration     time.Duration  `json:"duration_ns"`
}

// Migrator brings a store to a target version at startup.
type Migrator struct {
	catalog  *schema.Catalog
	registry *Registry
	settings
}

// NewMigrator creates a Migrator over a catalog and a registry of steps.
func NewMigrator(catalog *schema.Catalog, registry *Registry, opts ...Option) *Migrator {
	return &Migrator{catalog: catalog, registry: registry, settings: newSettings(opts)}
}

// Target returns the version Migrate brings stores to.
func (m *Migrator) Target() schema.Version {
	if m.target != 0 {
		return m.target
	}
	return m.catalog.Latest()
}

// Migrate brings s to the target version.
//
// Execution flow:
//  1. Read the stored version
//  2. Bootstrap a store with no tables directly at the target
//  3. Refuse stores newer than this build or newer than the target
//  4. Verify the store really is at the version it claims
//  5. Resolve and run the step chain
//  6. Validate the result against the target definition
//  7. Record the target's identity
//
// Any error means the store must not be used. Migrate is not cancellable.
func (m *Migrator) Migrate(ctx context.Context, s *store.Store) (*Report, error) {
	ctx = context.WithoutCancel(ctx)
	start := m.now()
	rep := &Report{RunID: m.runIDs.Generate(), To: m.Target()}
	log := m.logger.With("run_id", rep.RunID, "path", s.Path())

	ctx, span := m.tracer.Start(ctx, "migrate.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("migrate.run_id", rep.RunID),
			attribute.Int("migrate.target", int(rep.To)),
		),
	)
	defer span.End()

	err := m.migrate(ctx, s, rep, log)
	rep.Duration = m.now().Sub(start)
	m.metrics.observeRun(err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("migration failed", "from", int(rep.From), "to", int(rep.To), "error", err)
		return rep, err
	}
	span.SetStatus(codes.Ok, "")
	log.Info("store ready",
		"from", int(rep.From),
		"to", int(rep.To),
		"applied", len(rep.Applied),
		"bootstrapped", rep.Bootstrapped,
		"duration", rep.Duration,
	)
	return rep, nil
}

func (m *Migrator) migrate(ctx context.Context, s *store.Store, rep *Report, log *slog.Logger) error {
	target := rep.To
	targetDef, err := m.catalog.At(target)
	if err != nil {
		return fmt.Errorf("migration target: %w", err)
	}

	from, err := s.Version(ctx)
	if err != nil {
		return err
	}
	rep.From = from

	if from == 0 {
		empty, err := s.IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrUnversionedStore
		}
		log.Info("bootstrapping empty store", "version", int(target))
		if err := m.Bootstrap(ctx, s, target); err != nil {
			return err
		}
		rep.Bootstrapped = true
		return nil
	}

	if from > m.catalog.Latest() {
		return fmt.Errorf("%w: store is at %d, this build supports up to %d",
			ErrSchemaVersionTooNew, from, m.catalog.Latest())
	}

	if err := m.verify(ctx, s, from); err != nil {
		return err
	}

	chain, err := m.registry.Resolve(from, target)
	if err != nil {
		return err
	}
	if len(chain) > 0 {
		log.Info("migrating store", "from", int(from), "to", int(target), "steps", len(chain))
	}

	runner := &Runner{settings: m.settings}
	runner.logger = log
	applied, err := runner.Run(ctx, s, chain)
	rep.Applied = applied
	if err != nil {
		return err
	}

	if err := validate.Validate(ctx, s, targetDef); err != nil {
		if validate.IsSchemaMismatch(err) {
			m.metrics.observeMismatch()
		}
		return err
	}

	return m.recordIdentity(ctx, s, targetDef)
}

// verify checks that the store matches the definition of the version it
// claims. A recorded identity for that version is compared by hash; without
// one the live schema is validated structurally.
func (m *Migrator) verify(ctx context.Context, s *store.Store, v schema.Version) error {
	def, err := m.catalog.At(v)
	if err != nil {
		return err
	}

	id, ok, err := s.ReadIdentity(ctx)
	if err != nil {
		return err
	}
	if ok && id.Version == v {
		want, err := def.IdentityHash()
		if err != nil {
			return err
		}
		if id.Hash != want {
			return &IdentityMismatchError{Version: v, Expected: want, Actual: id.Hash}
		}
		return nil
	}

	if err := validate.Validate(ctx, s, def); err != nil {
		if validate.IsSchemaMismatch(err) {
			m.metrics.observeMismatch()
		}
		return err
	}
	return nil
}

// Bootstrap creates the definition for v in an empty store, records v and
// its identity, then validates the result.
func (m *Migrator) Bootstrap(ctx context.Context, s *store.Store, v schema.Version) error {
	def, err := m.catalog.At(v)
	if err != nil {
		return err
	}
	hash, err := def.IdentityHash()
	if err != nil {
		return err
	}

	err = s.WithTx(ctx, func(tx *store.Tx) error {
		for _, stmt := range def.Statements() {
			if err := tx.Exec(ctx, stmt); err != nil {
				return &StructuralError{From: 0, To: v, Op: stmt, Err: err}
			}
		}
		if err := tx.SetVersion(ctx, v); err != nil {
			return err
		}
		return tx.WriteIdentity(ctx, store.Identity{Version: v, Hash: hash})
	})
	if err != nil {
		return err
	}

	return validate.Validate(ctx, s, def)
}

func (m *Migrator) recordIdentity(ctx context.Context, s *store.Store, def schema.Definition) error {
	hash, err := def.IdentityHash()
	if err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx *store.Tx) error {
		return tx.WriteIdentity(ctx, store.Identity{Version: def.Version, Hash: hash})
	})
}

// Plan resolves the chain Migrate would run against s without executing it.
func (m *Migrator) Plan(ctx context.Context, s *store.Store) ([]Step, error) {
	from, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}
	if from == 0 {
		return nil, nil
	}
	if from > m.catalog.Latest() {
		return nil, fmt.Errorf("%w: store is at %d, this build supports up to %d",
			ErrSchemaVersionTooNew, from, m.catalog.Latest())
	}
	return m.registry.Resolve(from, m.Target())
}

// Status describes a store relative to this build.
type Status struct {
	Path     string          `json:"path"`
	Version  schema.Version  `json:"version"`
	Target   schema.Version  `json:"target"`
	Latest   schema.Version  `json:"latest"`
	Identity *store.Identity `json:"identity,omitempty"`
	Pending  []string        `json:"pending"`
}

// Status reports the stored version, the recorded identity and the steps
// that a migration would apply. It never writes.
func (m *Migrator) Status(ctx context.Context, s *store.Store) (*Status, error) {
	st := &Status{Path: s.Path(), Target: m.Target(), Latest: m.catalog.Latest(), Pending: []string{}}

	v, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}
	st.Version = v

	id, ok, err := s.ReadIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		st.Identity = &id
	}

	chain, err := m.Plan(ctx, s)
	if err != nil {
		return st, err
	}
	for _, step := range chain {
		st.Pending = append(st.Pending, step.Key()+" "+step.Name)
	}
	return st, nil
}
