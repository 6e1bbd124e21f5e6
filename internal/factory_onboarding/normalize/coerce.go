package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
	"github.com/shopspring/decimal"
)

var (
	machineIDKeys   = []string{"id", "machine_id", "machineId", "code"}
	jobIDKeys       = []string{"id", "job_id", "jobId", "code"}
	nameKeys        = []string{"name", "label", "title"}
	dueKeys         = []string{"due_time_hour", "due_time", "dueTimeHour", "due_hour", "due"}
	stepsKeys       = []string{"steps", "routing", "route", "operations"}
	stepMachineKeys = []string{"machine_id", "machine", "machineId"}
	durationKeys    = []string{"duration_hours", "duration", "hours", "processing_time"}
)

// coerceValues is the value pass. It repairs every field it can and drops an
// entity only when its id cannot be coerced to the grammar. Step machine
// references are carried through verbatim for the referential pass.
func (n *Normalizer) coerceValues(c *Candidate) (domain.Factory, []string) {
	f := domain.Factory{Machines: []domain.Machine{}, Jobs: []domain.Job{}}
	var notes []string

	if c == nil || c.root == nil {
		return f, notes
	}
	root, ok := c.root.(map[string]any)
	if !ok {
		return f, append(notes, "candidate document is not an object; nothing extracted")
	}
	if inner, ok := root["factory"].(map[string]any); ok {
		if _, hasMachines := lookup(root, "machines", "jobs"); !hasMachines {
			root = inner
		}
	}

	rawMachines, ok := entries(root["machines"], "id")
	if !ok {
		notes = append(notes, "machines is not a list; ignored")
	}
	seenMachines := map[string]bool{}
	for i, raw := range rawMachines {
		m, mnotes, ok := n.coerceMachine(i, raw)
		notes = append(notes, mnotes...)
		if !ok {
			continue
		}
		if seenMachines[m.ID] {
			notes = append(notes, fmt.Sprintf("duplicate machine %s ignored", m.ID))
			continue
		}
		seenMachines[m.ID] = true
		f.Machines = append(f.Machines, m)
	}

	rawJobs, ok := entries(root["jobs"], "id")
	if !ok {
		notes = append(notes, "jobs is not a list; ignored")
	}
	seenJobs := map[string]bool{}
	for i, raw := range rawJobs {
		j, jnotes, ok := n.coerceJob(i, raw)
		notes = append(notes, jnotes...)
		if !ok {
			continue
		}
		if seenJobs[j.ID] {
			notes = append(notes, fmt.Sprintf("duplicate job %s ignored", j.ID))
			continue
		}
		seenJobs[j.ID] = true
		f.Jobs = append(f.Jobs, j)
	}

	return f, notes
}

func (n *Normalizer) coerceMachine(idx int, raw any) (domain.Machine, []string, bool) {
	var notes []string
	fields, _ := raw.(map[string]any)
	rawID := raw
	if fields != nil {
		rawID, _ = lookup(fields, machineIDKeys...)
	}

	id, ok := coerceID(rawID, n.grammar.MachinePrefix(), n.grammar.MatchMachine)
	if !ok {
		return domain.Machine{}, append(notes, fmt.Sprintf("machine declared without a resolvable id (entry %d)", idx+1)), false
	}
	if s, isString := rawID.(string); !isString || strings.TrimSpace(s) != id {
		notes = append(notes, fmt.Sprintf("machine id %v normalized to %s", rawID, id))
	}

	name, named := coerceName(fields)
	if !named {
		name = id
		notes = append(notes, fmt.Sprintf("machine %s has no name; defaulted to its id", id))
	}
	return domain.Machine{ID: id, Name: name}, notes, true
}

func (n *Normalizer) coerceJob(idx int, raw any) (domain.Job, []string, bool) {
	var notes []string
	fields, _ := raw.(map[string]any)
	rawID := raw
	if fields != nil {
		rawID, _ = lookup(fields, jobIDKeys...)
	}

	id, ok := coerceID(rawID, n.grammar.JobPrefix(), n.grammar.MatchJob)
	if !ok {
		return domain.Job{}, append(notes, fmt.Sprintf("job declared without a resolvable id (entry %d)", idx+1)), false
	}
	if s, isString := rawID.(string); !isString || strings.TrimSpace(s) != id {
		notes = append(notes, fmt.Sprintf("job id %v normalized to %s", rawID, id))
	}

	job := domain.Job{ID: id, Steps: []domain.Step{}}

	name, named := coerceName(fields)
	if !named {
		name = id
		notes = append(notes, fmt.Sprintf("job %s has no name; defaulted to its id", id))
	}
	job.Name = name

	rawDue, present := lookup(fields, dueKeys...)
	due, dueNote := n.coerceDue(rawDue, present)
	job.DueTimeHour = due
	if dueNote != "" {
		notes = append(notes, fmt.Sprintf("job %s: %s", id, dueNote))
	}

	rawSteps, _ := lookup(fields, stepsKeys...)
	steps, ok := rawSteps.([]any)
	if !ok && rawSteps != nil {
		notes = append(notes, fmt.Sprintf("job %s: steps is not a list; ignored", id))
	}
	for i, rs := range steps {
		step, note := coerceStep(rs)
		if note != "" {
			notes = append(notes, fmt.Sprintf("job %s step %d: %s", id, i+1, note))
		}
		job.Steps = append(job.Steps, step)
	}

	return job, notes, true
}

// coerceStep never fails: a step always survives the value pass, whatever
// its duration looks like.
func coerceStep(raw any) (domain.Step, string) {
	fields, isMap := raw.(map[string]any)
	if !isMap {
		// A bare "M1" is a step on M1 with no duration.
		hours, note := coerceDuration(nil, false)
		return domain.Step{MachineID: refString(raw), DurationHours: hours}, note
	}
	ref, _ := lookup(fields, stepMachineKeys...)
	rawDuration, present := lookup(fields, durationKeys...)
	hours, note := coerceDuration(rawDuration, present)
	return domain.Step{MachineID: refString(ref), DurationHours: hours}, note
}

// coerceDuration rounds half-up to a whole hour and clamps to at least 1.
func coerceDuration(raw any, present bool) (int, string) {
	if !present || raw == nil {
		return 1, "duration missing; defaulted to 1 hour"
	}
	d, ok := toDecimal(raw)
	if !ok {
		return 1, fmt.Sprintf("duration %v is not numeric; defaulted to 1 hour", raw)
	}
	rounded := roundHalfUp(d)
	hours := clampDuration(rounded)
	switch {
	case !rounded.Equal(decimal.NewFromInt(int64(hours))):
		return hours, fmt.Sprintf("duration %v clamped to %d", raw, hours)
	case !d.Equal(rounded):
		return hours, fmt.Sprintf("duration %s rounded to %d", d.String(), hours)
	}
	return hours, ""
}

func (n *Normalizer) coerceDue(raw any, present bool) (float64, string) {
	if !present || raw == nil {
		return n.defaultDue, fmt.Sprintf("due_time_hour missing; defaulted to %s", formatHours(n.defaultDue))
	}
	d, ok := toDecimal(raw)
	if !ok || !d.IsPositive() {
		return n.defaultDue, fmt.Sprintf("due_time_hour %v is not a positive number; defaulted to %s", raw, formatHours(n.defaultDue))
	}
	due, _ := d.Float64()
	if d.GreaterThan(maxDueTimeHour) || due <= 0 || math.IsInf(due, 0) || math.IsNaN(due) {
		return n.defaultDue, fmt.Sprintf("due_time_hour %v is out of range; defaulted to %s", raw, formatHours(n.defaultDue))
	}
	return due, ""
}

func coerceName(fields map[string]any) (string, bool) {
	raw, ok := lookup(fields, nameKeys...)
	if !ok {
		return "", false
	}
	switch t := raw.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case nil:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

// coerceID maps a raw identifier onto the grammar: surrounding space and
// separators are dropped, case is folded, and a bare number gets the kind
// prefix ("3" -> "M3").
func coerceID(raw any, prefix string, match func(string) bool) (string, bool) {
	var s string
	switch t := raw.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		if t < 0 || t > 1e15 || t != float64(int64(t)) {
			return "", false
		}
		s = strconv.FormatInt(int64(t), 10)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case uint64:
		s = strconv.FormatUint(t, 10)
	default:
		return "", false
	}
	if s == "" {
		return "", false
	}

	candidates := []string{s, strings.ToUpper(s)}
	compact := strings.ToUpper(strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '.', '#', '\t':
			return -1
		}
		return r
	}, s))
	candidates = append(candidates, compact)
	if prefix != "" && isDigits(compact) {
		candidates = append(candidates, prefix+compact)
	}
	for _, c := range candidates {
		if match(c) {
			return c, true
		}
	}
	return "", false
}

func refString(raw any) string {
	switch t := raw.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if math.Abs(t) < 1e15 && t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
