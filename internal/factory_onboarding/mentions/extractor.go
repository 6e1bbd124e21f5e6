// Package mentions scans raw factory descriptions for identifier mentions.
//
// It never looks at the extracted model: its output is an independent
// cross-check on what the text understanding service returned.
package mentions

import (
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
)

// Mentions holds the distinct identifiers found in a description, in order
// of first appearance.
type Mentions struct {
	Machines []string `json:"machines"`
	Jobs     []string `json:"jobs"`
}

// Extract finds every machine and job identifier mentioned in text.
func Extract(text string, g domain.IDGrammar) Mentions {
	return Mentions{
		Machines: distinct(g.FindMachines(text)),
		Jobs:     distinct(g.FindJobs(text)),
	}
}

func distinct(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
