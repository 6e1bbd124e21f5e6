package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural invariants every normalized factory must
// hold: unique well-formed ids, resolvable step references, positive integer
// durations and positive finite due times. It returns an *InvariantError.
func Validate(f Factory, g IDGrammar) error {
	var violations []string

	if err := structValidator.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate factory: %w", err)
		}
		for _, fe := range verrs {
			violations = append(violations, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	machines := make(map[string]bool, len(f.Machines))
	for _, m := range f.Machines {
		if !g.MatchMachine(m.ID) {
			violations = append(violations, fmt.Sprintf("machine id %q does not match grammar", m.ID))
		}
		if machines[m.ID] {
			violations = append(violations, fmt.Sprintf("duplicate machine id %q", m.ID))
		}
		machines[m.ID] = true
	}

	jobs := make(map[string]bool, len(f.Jobs))
	for _, j := range f.Jobs {
		if !g.MatchJob(j.ID) {
			violations = append(violations, fmt.Sprintf("job id %q does not match grammar", j.ID))
		}
		if jobs[j.ID] {
			violations = append(violations, fmt.Sprintf("duplicate job id %q", j.ID))
		}
		jobs[j.ID] = true

		if math.IsInf(j.DueTimeHour, 0) {
			violations = append(violations, fmt.Sprintf("job %s due time is not finite", j.ID))
		}
		for i, s := range j.Steps {
			if !machines[s.MachineID] {
				violations = append(violations, fmt.Sprintf("job %s step %d references unknown machine %q", j.ID, i+1, s.MachineID))
			}
		}
	}

	if len(violations) > 0 {
		return &InvariantError{Violations: violations}
	}
	return nil
}
