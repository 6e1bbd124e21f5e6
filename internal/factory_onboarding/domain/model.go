package domain

// Machine is a processing resource a job step is routed through.
type Machine struct {
	ID   string `json:"id" yaml:"id" validate:"required" jsonschema:"required,description=Machine identifier such as M1"`
	Name string `json:"name" yaml:"name" validate:"required"`
}

// Step is one routing element of a job. Order inside Job.Steps is significant.
type Step struct {
	MachineID     string `json:"machine_id" yaml:"machine_id" validate:"required" jsonschema:"required,description=Identifier of the machine this step runs on"`
	DurationHours int    `json:"duration_hours" yaml:"duration_hours" validate:"gte=1" jsonschema:"required,minimum=1"`
}

// Job is a unit of work with a due time and an ordered routing through machines.
type Job struct {
	ID          string  `json:"id" yaml:"id" validate:"required" jsonschema:"required,description=Job identifier such as J1"`
	Name        string  `json:"name" yaml:"name" validate:"required"`
	DueTimeHour float64 `json:"due_time_hour" yaml:"due_time_hour" validate:"gt=0" jsonschema:"exclusiveMinimum=0"`
	Steps       []Step  `json:"steps" yaml:"steps" validate:"dive"`
}

// Factory is the aggregate handed to the scheduling engine.
type Factory struct {
	Machines []Machine `json:"machines" yaml:"machines" validate:"dive"`
	Jobs     []Job     `json:"jobs" yaml:"jobs" validate:"dive"`
}

// Meta explains where a returned factory came from.
type Meta struct {
	UsedDefaultFactory  bool     `json:"used_default_factory"`
	OnboardingErrors    []string `json:"onboarding_errors"`
	InferredAssumptions []string `json:"inferred_assumptions"`
}

// Result is the caller-facing onboarding response.
type Result struct {
	Factory Factory `json:"factory"`
	Meta    Meta    `json:"meta"`
}

// NewMeta returns a Meta whose lists marshal as [] rather than null.
func NewMeta() Meta {
	return Meta{
		OnboardingErrors:    []string{},
		InferredAssumptions: []string{},
	}
}

// MachineIDs returns machine ids in declaration order.
func (f Factory) MachineIDs() []string {
	out := make([]string, 0, len(f.Machines))
	for _, m := range f.Machines {
		out = append(out, m.ID)
	}
	return out
}

// JobIDs returns job ids in declaration order.
func (f Factory) JobIDs() []string {
	out := make([]string, 0, len(f.Jobs))
	for _, j := range f.Jobs {
		out = append(out, j.ID)
	}
	return out
}

// IsEmpty reports whether the factory lacks machines or jobs.
func (f Factory) IsEmpty() bool {
	return len(f.Machines) == 0 || len(f.Jobs) == 0
}

// Clone returns a deep copy. Nil slices come back as empty slices so the
// copy always marshals with every list present.
func (f Factory) Clone() Factory {
	out := Factory{
		Machines: make([]Machine, len(f.Machines)),
		Jobs:     make([]Job, 0, len(f.Jobs)),
	}
	copy(out.Machines, f.Machines)
	for _, j := range f.Jobs {
		steps := make([]Step, len(j.Steps))
		copy(steps, j.Steps)
		j.Steps = steps
		out.Jobs = append(out.Jobs, j)
	}
	return out
}
