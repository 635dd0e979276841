package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/privacydb/internal/migrate"
	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
	"github.com/roach88/privacydb/internal/testutil"
	"github.com/roach88/privacydb/internal/validate"
)

// Harness runs scenarios against a migration registry.
//
// Every run gets its own store file, created from the schema catalog at the
// scenario's starting version. The steps under test never build their own
// starting point.
type Harness struct {
	catalog  *schema.Catalog
	registry *migrate.Registry
	logger   *slog.Logger
	dir      string
}

// Option configures a Harness.
type Option func(*Harness)

// WithCatalog replaces the embedded schema catalog.
func WithCatalog(c *schema.Catalog) Option {
	return func(h *Harness) {
		h.catalog = c
	}
}

// WithLogger sets the logger passed to the runner. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithDir creates scenario stores under dir instead of the system temp dir.
func WithDir(dir string) Option {
	return func(h *Harness) {
		h.dir = dir
	}
}

// New creates a Harness for registry.
func New(registry *migrate.Registry, opts ...Option) (*Harness, error) {
	h := &Harness{
		registry: registry,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.catalog == nil {
		c, err := schema.Default()
		if err != nil {
			return nil, fmt.Errorf("load schema catalog: %w", err)
		}
		h.catalog = c
	}
	return h, nil
}

// Run executes one scenario with the default catalog.
func Run(ctx context.Context, sc *Scenario, registry *migrate.Registry) (*Result, error) {
	h, err := New(registry)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx, sc)
}

// RunAll executes independent scenarios with at most parallelism running at
// once. Results are returned in the order of scenarios.
func RunAll(ctx context.Context, scenarios []*Scenario, registry *migrate.Registry, parallelism int) ([]*Result, error) {
	h, err := New(registry)
	if err != nil {
		return nil, err
	}
	return h.RunAll(ctx, scenarios, parallelism)
}

// RunAll executes scenarios concurrently. See the package-level RunAll.
func (h *Harness) RunAll(ctx context.Context, scenarios []*Scenario, parallelism int) ([]*Result, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]*Result, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			res, err := h.Run(gctx, sc)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run executes a scenario.
//
// A returned error means the scenario could not be set up: a bad version, an
// unusable temp dir, a seed statement the starting schema rejects. Failures of
// the migration itself are reported in Result.Errors.
//
// Execution flow:
// 1. Create a store at From from the catalog
// 2. Run the seed statements
// 3. Resolve and run the chain From -> To
// 4. Validate the store against the definition for To
// 5. Evaluate assertions
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	from, to := schema.Version(sc.From), schema.Version(sc.To)
	target, err := h.catalog.At(to)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(h.dir, "privacydb-harness-")
	if err != nil {
		return nil, fmt.Errorf("create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, uuid.NewString()+".db")
	st, err := testutil.CreateAt(ctx, path, h.catalog, from, store.Options{Driver: sc.Driver})
	if err != nil {
		return nil, fmt.Errorf("create store at version %d: %w", from, err)
	}
	defer st.Close()

	if err := testutil.Seed(ctx, st, sc.Seed...); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	log := h.logger.With("scenario", sc.Name)
	result := NewResult(sc.Name)

	chain, err := h.registry.Resolve(from, to)
	if err != nil {
		result.AddError(err.Error())
		return result, nil
	}

	runner := migrate.NewRunner(
		migrate.WithLogger(log),
		migrate.WithClock(testutil.NewDeterministicClock(0).Now),
	)
	applied, err := runner.Run(ctx, st, chain)
	result.Applied = append(result.Applied, applied...)
	if err != nil {
		result.AddError(err.Error())
		return result, nil
	}

	if err := validate.Validate(ctx, st, target); err != nil {
		var mismatch *validate.SchemaMismatchError
		if errors.As(err, &mismatch) {
			for _, d := range mismatch.Discrepancies {
				result.AddError(d.String())
			}
		} else {
			result.AddError(err.Error())
		}
	}

	tables, err := st.Introspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}
	result.Schema = tables

	for _, msg := range evaluateAssertions(ctx, st, tables, sc.Assertions) {
		result.AddError(msg)
	}

	log.Debug("scenario finished", "pass", result.Pass, "steps", len(result.Applied))
	return result, nil
}
