package migrate

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the migration metric vectors. A nil *Metrics records nothing.
type Metrics struct {
	StepsTotal       *prometheus.CounterVec
	StepDuration     *prometheus.HistogramVec
	RunsTotal        *prometheus.CounterVec
	SchemaMismatches prometheus.Counter
}

// NewMetrics registers the migration metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "privacydb_migration_steps_total",
			Help: "Total number of migration steps attempted.",
		}, []string{"from", "to", "outcome"}),

		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "privacydb_migration_step_seconds",
			Help:    "Time spent applying a migration step, including its commit.",
			Buckets: prometheus.DefBuckets,
		}, []string{"from", "to"}),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "privacydb_migration_runs_total",
			Help: "Total number of migration runs by outcome.",
		}, []string{"outcome"}),

		SchemaMismatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "privacydb_schema_mismatches_total",
			Help: "Total number of validations that found the live schema differing from its definition.",
		}),
	}
}

func (m *Metrics) observeStep(step Step, d time.Duration, err error) {
	if m == nil {
		return
	}
	from := strconv.Itoa(int(step.From))
	to := strconv.Itoa(int(step.To))
	m.StepsTotal.WithLabelValues(from, to, outcome(err)).Inc()
	m.StepDuration.WithLabelValues(from, to).Observe(d.Seconds())
}

func (m *Metrics) observeRun(err error) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) observeMismatch() {
	if m == nil {
		return
	}
	m.SchemaMismatches.Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
