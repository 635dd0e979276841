package migrate

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/privacydb/internal/schema"
)

const tracerName = "github.com/roach88/privacydb/internal/migrate"

// RunIDGenerator produces the identifier attached to every record of a run.
type RunIDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string { return uuid.NewString() }

type settings struct {
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	target  schema.Version
	runIDs  RunIDGenerator
	now     func() time.Time
}

func newSettings(opts []Option) settings {
	s := settings{logger: slog.Default(), runIDs: uuidGenerator{}, now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	if s.tracer == nil {
		s.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return s
}

// Option configures a Runner or a Migrator.
type Option func(*settings)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records step and run metrics. Default: none.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for run and step spans.
// Default: the global OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = t
	}
}

// WithTarget makes the Migrator stop at v instead of the catalog's latest version.
func WithTarget(v schema.Version) Option {
	return func(s *settings) {
		s.target = v
	}
}

// WithRunIDs replaces the random run identifiers. Default: UUIDv4.
func WithRunIDs(gen RunIDGenerator) Option {
	return func(s *settings) {
		if gen != nil {
			s.runIDs = gen
		}
	}
}

// WithClock replaces the wall clock used to time runs and steps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
