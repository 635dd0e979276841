package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
)

// ErrUnexpectedVersion is returned when a step's From version does not match
// the version recorded in the store.
var ErrUnexpectedVersion = errors.New("store is not at the step's starting version")

// StepReport describes one applied step.
type StepReport struct {
	From         schema.Version `json:"from"`
	To           schema.Version `json:"to"`
	Name         string         `json:"name"`
	RowsAffected int64          `json:"rows_affected"` // changed by transforms or dropped with a table
	Duration     time.Duration  `json:"duration_ns"`
}

// Runner applies a chain of steps to a store, one transaction per step.
type Runner struct {
	settings
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	return &Runner{settings: newSettings(opts)}
}

// Run applies steps in the given order. Each step runs in its own
// transaction: structural operations, then data transforms, then the new
// version is recorded. The transaction commits only if all three succeed.
//
// Run stops at the first failing step and returns the reports of the steps
// that committed before it. Cancelling ctx does not interrupt a run; a chain
// that stopped half way would leave the store at a version nobody asked for.
func (r *Runner) Run(ctx context.Context, s *store.Store, steps []Step) ([]StepReport, error) {
	ctx = context.WithoutCancel(ctx)

	reports := make([]StepReport, 0, len(steps))
	for _, step := range steps {
		rep, err := r.runStep(ctx, s, step)
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (r *Runner) runStep(ctx context.Context, s *store.Store, step Step) (StepReport, error) {
	ctx, span := r.tracer.Start(ctx, "migrate.step."+step.Name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("migrate.from", int(step.From)),
			attribute.Int("migrate.to", int(step.To)),
		),
	)
	defer span.End()

	log := r.logger.With("from", int(step.From), "to", int(step.To), "step", step.Name)
	log.Debug("applying migration step", "policy", step.Policy())

	rep := StepReport{From: step.From, To: step.To, Name: step.Name}
	start := r.now()

	err := s.WithTx(ctx, func(tx *store.Tx) error {
		current, err := tx.Version(ctx)
		if err != nil {
			return err
		}
		if current != step.From {
			return fmt.Errorf("%w: step %s needs %d, store is at %d", ErrUnexpectedVersion, step.Key(), step.From, current)
		}

		for _, op := range step.Structural {
			n, err := applyStructural(ctx, tx, op)
			if err != nil {
				return &StructuralError{From: step.From, To: step.To, Op: op.Describe(), Err: err}
			}
			rep.RowsAffected += n
		}

		for _, tr := range step.Transforms {
			n, err := applyTransform(ctx, tx, tr)
			if err != nil {
				return &DataTransformError{From: step.From, To: step.To, Transform: tr.Describe(), Err: err}
			}
			rep.RowsAffected += n
		}

		if err := tx.SetVersion(ctx, step.To); err != nil {
			return &StructuralError{From: step.From, To: step.To, Op: "record schema version", Err: err}
		}
		return nil
	})

	rep.Duration = r.now().Sub(start)
	r.metrics.observeStep(step, rep.Duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("migration step failed", "error", err, "duration", rep.Duration)
		return rep, err
	}

	span.SetStatus(codes.Ok, "")
	log.Info("migration step applied", "rows_affected", rep.RowsAffected, "duration", rep.Duration)
	return rep, nil
}
