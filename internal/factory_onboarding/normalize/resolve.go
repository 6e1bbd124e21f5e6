package normalize

import (
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
)

// resolveReferences is the referential pass. A step whose machine reference
// matches a declared machine exactly is left alone; a near miss (surrounding
// space, letter case, separators) is corrected; anything else removes that
// step only. Jobs are never removed here.
func (n *Normalizer) resolveReferences(f domain.Factory) (domain.Factory, []string) {
	var notes []string

	exact := make(map[string]bool, len(f.Machines))
	folded := make(map[string]string, len(f.Machines))
	for _, m := range f.Machines {
		exact[m.ID] = true
		folded[strings.ToLower(m.ID)] = m.ID
	}

	out := domain.Factory{
		Machines: f.Machines,
		Jobs:     make([]domain.Job, 0, len(f.Jobs)),
	}
	for _, job := range f.Jobs {
		steps := make([]domain.Step, 0, len(job.Steps))
		for i, step := range job.Steps {
			if exact[step.MachineID] {
				steps = append(steps, step)
				continue
			}

			ref := strings.TrimSpace(step.MachineID)
			if ref == "" {
				notes = append(notes, fmt.Sprintf("step %d of job %s has no machine reference; removed", i+1, job.ID))
				continue
			}

			resolved, ok := n.matchMachine(ref, exact, folded)
			if !ok {
				notes = append(notes, fmt.Sprintf("step referencing unknown machine %s removed from job %s", ref, job.ID))
				continue
			}
			notes = append(notes, fmt.Sprintf("job %s step %d: machine reference %q corrected to %s", job.ID, i+1, step.MachineID, resolved))
			step.MachineID = resolved
			steps = append(steps, step)
		}
		job.Steps = steps
		out.Jobs = append(out.Jobs, job)
	}
	return out, notes
}

func (n *Normalizer) matchMachine(ref string, exact map[string]bool, folded map[string]string) (string, bool) {
	if exact[ref] {
		return ref, true
	}
	if id, ok := folded[strings.ToLower(ref)]; ok {
		return id, true
	}
	if id, ok := coerceID(ref, n.grammar.MachinePrefix(), n.grammar.MatchMachine); ok && exact[id] {
		return id, true
	}
	return "", false
}
