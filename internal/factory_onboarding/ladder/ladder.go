// Package ladder decides whether an onboarding request keeps its normalized
// factory or falls back to the default one.
package ladder

import (
	"fmt"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/coverage"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
)

// State is a step of the onboarding state machine:
// Idle -> Extracting -> Normalizing -> CoverageChecking -> Deciding -> Accepted|Fallback.
type State string

const (
	StateIdle             State = "idle"
	StateExtracting       State = "extracting"
	StateNormalizing      State = "normalizing"
	StateCoverageChecking State = "coverage_checking"
	StateDeciding         State = "deciding"
	StateAccepted         State = "accepted"
	StateFallback         State = "fallback"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateFallback
}

// Reason labels which rule fired.
const (
	ReasonExtractionFailed   = "extraction_failed"
	ReasonNormalizationEmpty = "normalization_empty"
	ReasonLowCoverage        = "low_coverage"
	ReasonAccepted           = "accepted"
	// ReasonInternalError is used when onboarding itself fails unexpectedly.
	ReasonInternalError      = "internal_error"
)

// Input is everything the ladder looks at. Factory, RepairNotes, Coverage and
// Unreferenced are ignored when UpstreamErr is set.
type Input struct {
	UpstreamErr  error
	Factory      domain.Factory
	NormalizeErr error
	RepairNotes  []string
	Coverage     coverage.Report
	Unreferenced coverage.UnreferencedReport
}

type Decision struct {
	State   State
	Reason  string
	Factory domain.Factory
	Meta    domain.Meta
}

// Decide applies the rules in order; the first match wins.
//
//  1. upstream failure        -> fallback, "extraction_failed: <cause>"
//  2. no machines or no jobs  -> fallback, "normalization_empty"
//  3. low coverage            -> fallback, "low_coverage: <machine>, <job>"
//  4. otherwise               -> accept, repair notes become inferred assumptions
//
// defaultFactory is used verbatim on fallback.
func Decide(in Input, defaultFactory domain.Factory) Decision {
	switch {
	case in.UpstreamErr != nil:
		return Fallback(ReasonExtractionFailed, fmt.Sprintf("extraction_failed: %v", in.UpstreamErr), defaultFactory)
	case in.NormalizeErr != nil || in.Factory.IsEmpty():
		return Fallback(ReasonNormalizationEmpty, "normalization_empty", defaultFactory)
	case in.Coverage.LowCoverage:
		return Fallback(ReasonLowCoverage,
			fmt.Sprintf("low_coverage: %.2f, %.2f", in.Coverage.MachineCoverage, in.Coverage.JobCoverage),
			defaultFactory)
	}

	meta := domain.NewMeta()
	meta.InferredAssumptions = append(meta.InferredAssumptions, in.RepairNotes...)
	meta.InferredAssumptions = append(meta.InferredAssumptions, in.Unreferenced.Notes()...)
	return Decision{
		State:   StateAccepted,
		Reason:  ReasonAccepted,
		Factory: in.Factory.Clone(),
		Meta:    meta,
	}
}

// Fallback returns the decision that answers with defaultFactory and records
// msg as the onboarding error.
func Fallback(reason, msg string, defaultFactory domain.Factory) Decision {
	meta := domain.NewMeta()
	meta.UsedDefaultFactory = true
	meta.OnboardingErrors = append(meta.OnboardingErrors, msg)
	return Decision{
		State:   StateFallback,
		Reason:  reason,
		Factory: defaultFactory.Clone(),
		Meta:    meta,
	}
}
