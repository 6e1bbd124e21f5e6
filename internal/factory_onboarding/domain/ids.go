package domain

import (
	"fmt"
	"regexp"
)

// Identifier grammars. Patterns are unanchored bodies; IDGrammar anchors them
// for validation and wraps them in word boundaries for scanning free text.
const (
	DefaultMachineIDPattern = `M[0-9][A-Za-z0-9]*`
	DefaultJobIDPattern     = `J[0-9][A-Za-z0-9]*`
)

var defaultGrammar = MustIDGrammar(DefaultMachineIDPattern, DefaultJobIDPattern)

// IDGrammar holds the compiled machine and job identifier patterns. It is
// read-only after construction and safe for concurrent use. The zero value
// behaves like DefaultIDGrammar.
type IDGrammar struct {
	machineExact *regexp.Regexp
	jobExact     *regexp.Regexp
	machineScan  *regexp.Regexp
	jobScan      *regexp.Regexp

	machinePrefix string
	jobPrefix     string
}

// NewIDGrammar compiles both patterns.
func NewIDGrammar(machinePattern, jobPattern string) (IDGrammar, error) {
	var g IDGrammar
	var err error
	if g.machineExact, g.machineScan, err = compilePattern(machinePattern); err != nil {
		return IDGrammar{}, fmt.Errorf("%w: machine pattern: %v", ErrInvalidGrammar, err)
	}
	if g.jobExact, g.jobScan, err = compilePattern(jobPattern); err != nil {
		return IDGrammar{}, fmt.Errorf("%w: job pattern: %v", ErrInvalidGrammar, err)
	}
	// Anchored programs hide the literal prefix, so read it off the bare pattern.
	g.machinePrefix = literalPrefix(machinePattern)
	g.jobPrefix = literalPrefix(jobPattern)
	return g, nil
}

func literalPrefix(p string) string {
	re, err := regexp.Compile(p)
	if err != nil {
		return ""
	}
	prefix, _ := re.LiteralPrefix()
	return prefix
}

// MustIDGrammar is NewIDGrammar that panics on error, for package-level defaults.
func MustIDGrammar(machinePattern, jobPattern string) IDGrammar {
	g, err := NewIDGrammar(machinePattern, jobPattern)
	if err != nil {
		panic(err)
	}
	return g
}

// DefaultIDGrammar returns the grammar built from the default patterns.
func DefaultIDGrammar() IDGrammar {
	return defaultGrammar
}

func compilePattern(p string) (exact, scan *regexp.Regexp, err error) {
	if p == "" {
		return nil, nil, fmt.Errorf("empty pattern")
	}
	if exact, err = regexp.Compile(`^(?:` + p + `)$`); err != nil {
		return nil, nil, err
	}
	if scan, err = regexp.Compile(`\b(?:` + p + `)\b`); err != nil {
		return nil, nil, err
	}
	return exact, scan, nil
}

func (g IDGrammar) resolved() IDGrammar {
	if g.machineExact == nil || g.jobExact == nil {
		return defaultGrammar
	}
	return g
}

// MatchMachine reports whether id is a well-formed machine identifier.
func (g IDGrammar) MatchMachine(id string) bool {
	return g.resolved().machineExact.MatchString(id)
}

// MatchJob reports whether id is a well-formed job identifier.
func (g IDGrammar) MatchJob(id string) bool {
	return g.resolved().jobExact.MatchString(id)
}

// FindMachines returns every machine identifier occurrence in text, in order.
func (g IDGrammar) FindMachines(text string) []string {
	return g.resolved().machineScan.FindAllString(text, -1)
}

// FindJobs returns every job identifier occurrence in text, in order.
func (g IDGrammar) FindJobs(text string) []string {
	return g.resolved().jobScan.FindAllString(text, -1)
}

// MachinePrefix is the literal every machine id starts with ("M" by default).
func (g IDGrammar) MachinePrefix() string {
	return g.resolved().machinePrefix
}

// JobPrefix is the literal every job id starts with ("J" by default).
func (g IDGrammar) JobPrefix() string {
	return g.resolved().jobPrefix
}
