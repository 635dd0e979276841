package harness

import (
	"github.com/roach88/privacydb/internal/migrate"
	"github.com/roach88/privacydb/internal/schema"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Scenario is the name of the scenario that produced this result.
	Scenario string `json:"scenario"`

	// Pass is true when the chain applied, the store validated against the
	// target definition and every assertion held.
	Pass bool `json:"pass"`

	// Errors contains one message per failure. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Applied lists the steps that committed, in order.
	Applied []migrate.StepReport `json:"applied"`

	// Schema is the introspected schema of the store after the run.
	Schema []schema.Table `json:"-"`
}

// NewResult creates a passing result for the named scenario.
func NewResult(name string) *Result {
	return &Result{
		Scenario: name,
		Pass:     true,
		Errors:   []string{},
		Applied:  []migrate.StepReport{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
