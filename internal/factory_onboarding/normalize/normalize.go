// Package normalize turns an untrusted candidate document into a factory
// that satisfies every structural invariant.
//
// Normalization runs two passes in a fixed order. The value pass coerces
// identifiers, names, due times and durations and never drops an entity for
// a bad value. The referential pass then resolves step machine references and
// is the only place a step can be removed. Entities are dropped in the value
// pass only when their identifier cannot be coerced to the grammar.
package normalize

import (
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
)

// DefaultDueTimeHour is the end of a standard 24h operating horizon.
const DefaultDueTimeHour = 24.0

type Options struct {
	Grammar            domain.IDGrammar
	DefaultDueTimeHour float64
}

// Normalizer is immutable and safe for concurrent use.
type Normalizer struct {
	grammar    domain.IDGrammar
	defaultDue float64
}

func New(opts Options) *Normalizer {
	due := opts.DefaultDueTimeHour
	if due <= 0 {
		due = DefaultDueTimeHour
	}
	return &Normalizer{grammar: opts.Grammar, defaultDue: due}
}

// Normalize repairs c into a valid factory and returns the repair notes in
// the order they were made. If the result would still break an invariant an
// empty factory is returned together with the violation.
func (n *Normalizer) Normalize(c *Candidate) (domain.Factory, []string, error) {
	f, notes := n.coerceValues(c)
	f, refNotes := n.resolveReferences(f)
	notes = append(notes, refNotes...)

	if err := domain.Validate(f, n.grammar); err != nil {
		return domain.Factory{}.Clone(), notes, err
	}
	return f, notes, nil
}
