package migrate

import (
	"fmt"
	"sort"

	"github.com/roach88/privacydb/internal/schema"
)

// Registry is an ordered collection of steps keyed by their From version.
type Registry struct {
	steps map[schema.Version]Step
}

// NewRegistry builds a registry. Every step must go from N to N+1 with N >= 1,
// and no two steps may share a From version.
func NewRegistry(steps ...Step) (*Registry, error) {
	r := &Registry{steps: make(map[schema.Version]Step, len(steps))}
	for _, s := range steps {
		if s.From < 1 || s.To != s.From+1 {
			return nil, fmt.Errorf("%w: step %q goes from %d to %d, want N to N+1", ErrInvalidRegistry, s.Name, s.From, s.To)
		}
		if prev, dup := r.steps[s.From]; dup {
			return nil, fmt.Errorf("%w: steps %q and %q both start at version %d", ErrInvalidRegistry, prev.Name, s.Name, s.From)
		}
		r.steps[s.From] = s
	}
	return r, nil
}

// Resolve returns the chain of steps from one version to another, ascending.
//
// from == to yields an empty chain. from > to fails with ErrDowngrade. If any
// link in [from, to) is missing, Resolve fails with *NoMigrationPathError
// naming every missing link.
func (r *Registry) Resolve(from, to schema.Version) ([]Step, error) {
	if from > to {
		return nil, fmt.Errorf("%w: cannot go from %d to %d", ErrDowngrade, from, to)
	}

	var (
		chain   []Step
		missing []schema.Version
	)
	for v := from; v < to; v++ {
		s, ok := r.steps[v]
		if !ok {
			missing = append(missing, v)
			continue
		}
		chain = append(chain, s)
	}
	if len(missing) > 0 {
		return nil, &NoMigrationPathError{From: from, To: to, Missing: missing}
	}
	return chain, nil
}

// Steps returns every registered step in ascending order.
func (r *Registry) Steps() []Step {
	out := make([]Step, 0, len(r.steps))
	for _, s := range r.steps {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}

// Latest returns the highest version any registered step reaches, or 0.
func (r *Registry) Latest() schema.Version {
	var latest schema.Version
	for _, s := range r.steps {
		if s.To > latest {
			latest = s.To
		}
	}
	return latest
}
