package domain

import (
	"errors"
	"strings"
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCandidate   = errors.New("upstream returned no candidate document")
	ErrUpstreamStatus   = errors.New("upstream returned non-success status")
	ErrInvalidGrammar   = errors.New("invalid identifier grammar")
)

// InvariantError lists every structural invariant a factory violates.
type InvariantError struct {
	Violations []string
}

func (e *InvariantError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "factory invariants violated"
	}
	return "factory invariants violated: " + strings.Join(e.Violations, "; ")
}
