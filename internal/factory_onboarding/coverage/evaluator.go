// Package coverage compares what a description mentions with what the
// normalized factory contains. It only reports; it never repairs.
package coverage

import (
	"fmt"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
)

// DefaultThreshold is the minimum acceptable coverage ratio per entity kind.
// It is a tuning knob exposed through configuration.
const DefaultThreshold = 0.7

type Input struct {
	NormalizedMachines []string
	NormalizedJobs     []string
	MentionedMachines  []string
	MentionedJobs      []string
}

type Report struct {
	MachineCoverage float64  `json:"machine_coverage"`
	JobCoverage     float64  `json:"job_coverage"`
	LowCoverage     bool     `json:"low_coverage"`
	MissingMachines []string `json:"missing_machines"`
	MissingJobs     []string `json:"missing_jobs"`
}

// Evaluate computes |normalized ∩ mentioned| / |mentioned| for machines and
// jobs. A kind with no mentions has coverage 1.0.
func Evaluate(in Input, threshold float64) Report {
	mc, missingMachines := ratio(in.NormalizedMachines, in.MentionedMachines)
	jc, missingJobs := ratio(in.NormalizedJobs, in.MentionedJobs)
	return Report{
		MachineCoverage: mc,
		JobCoverage:     jc,
		LowCoverage:     mc < threshold || jc < threshold,
		MissingMachines: missingMachines,
		MissingJobs:     missingJobs,
	}
}

func ratio(normalized, mentioned []string) (float64, []string) {
	missing := []string{}
	if len(mentioned) == 0 {
		return 1.0, missing
	}
	have := make(map[string]bool, len(normalized))
	for _, id := range normalized {
		have[id] = true
	}
	seen := make(map[string]bool, len(mentioned))
	hits, total := 0, 0
	for _, id := range mentioned {
		if seen[id] {
			continue
		}
		seen[id] = true
		total++
		if have[id] {
			hits++
		} else {
			missing = append(missing, id)
		}
	}
	return float64(hits) / float64(total), missing
}

// UnreferencedReport lists entities that are declared but not wired into
// any routing, and step references with no matching machine.
type UnreferencedReport struct {
	UnknownStepMachines []string `json:"unknown_step_machines"`
	UnusedMachines      []string `json:"unused_machines"`
	EmptyJobs           []string `json:"empty_jobs"`
}

// Unreferenced checks the factory for dangling or unused entities.
func Unreferenced(f domain.Factory) UnreferencedReport {
	r := UnreferencedReport{
		UnknownStepMachines: []string{},
		UnusedMachines:      []string{},
		EmptyJobs:           []string{},
	}

	declared := make(map[string]bool, len(f.Machines))
	for _, m := range f.Machines {
		declared[m.ID] = true
	}
	used := map[string]bool{}
	unknown := map[string]bool{}
	for _, j := range f.Jobs {
		if len(j.Steps) == 0 {
			r.EmptyJobs = append(r.EmptyJobs, j.ID)
		}
		for _, s := range j.Steps {
			used[s.MachineID] = true
			if !declared[s.MachineID] && !unknown[s.MachineID] {
				unknown[s.MachineID] = true
				r.UnknownStepMachines = append(r.UnknownStepMachines, s.MachineID)
			}
		}
	}
	for _, m := range f.Machines {
		if !used[m.ID] {
			r.UnusedMachines = append(r.UnusedMachines, m.ID)
		}
	}
	return r
}

// Notes renders the report as human-readable assumptions.
func (r UnreferencedReport) Notes() []string {
	var out []string
	for _, id := range r.UnknownStepMachines {
		out = append(out, fmt.Sprintf("steps reference undeclared machine %s", id))
	}
	for _, id := range r.UnusedMachines {
		out = append(out, fmt.Sprintf("machine %s is not used by any job", id))
	}
	for _, id := range r.EmptyJobs {
		out = append(out, fmt.Sprintf("job %s has no steps", id))
	}
	return out
}
