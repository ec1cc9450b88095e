package domain

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a step or a whole pipeline run. The value
// is the lowercase serialized form.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusSkipped is reserved for conditional execution; the linear engine
	// never emits it.
	StatusSkipped Status = "skipped"
)

// NormalizeStatus maps free-form status values to canonical statuses.
func NormalizeStatus(value string) Status {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(StatusPending):
		return StatusPending
	case string(StatusRunning):
		return StatusRunning
	case string(StatusCompleted):
		return StatusCompleted
	case string(StatusFailed):
		return StatusFailed
	case string(StatusSkipped):
		return StatusSkipped
	default:
		return ""
	}
}

// StepState records the latest attempt of one step within a run. It is
// replaced, not appended, on retry.
type StepState struct {
	StepName  string
	Status    Status
	Input     map[string]any
	Output    map[string]any
	Error     string
	Attempts  int
	StartedAt time.Time
	EndedAt   *time.Time
}

// Clone returns a deep enough copy: the maps are copied one level down,
// which is all the engine ever mutates.
func (s StepState) Clone() StepState {
	out := s
	out.Input = cloneMap(s.Input)
	out.Output = cloneMap(s.Output)
	if s.EndedAt != nil {
		ended := *s.EndedAt
		out.EndedAt = &ended
	}
	return out
}

// PipelineState records one pipeline run. Steps keeps insertion order, which
// matches declared execution order; a step absent from Steps never executed.
type PipelineState struct {
	PipelineID string
	Status     Status
	Steps      []StepState
	StartedAt  time.Time
	EndedAt    *time.Time
	Error      string
}

// NewPipelineState returns a pending state for the given run identifier.
func NewPipelineState(pipelineID string) *PipelineState {
	return &PipelineState{PipelineID: pipelineID, Status: StatusPending}
}

// Step returns the recorded state for the named step, if any.
func (p *PipelineState) Step(name string) (StepState, bool) {
	for _, s := range p.Steps {
		if s.StepName == name {
			return s, true
		}
	}
	return StepState{}, false
}

// UpsertStep replaces the record for the step's name in place, preserving
// insertion order, or appends it when the step runs for the first time.
func (p *PipelineState) UpsertStep(state StepState) {
	for i, s := range p.Steps {
		if s.StepName == state.StepName {
			p.Steps[i] = state
			return
		}
	}
	p.Steps = append(p.Steps, state)
}

// Clone returns an independent copy of the state.
func (p *PipelineState) Clone() *PipelineState {
	out := &PipelineState{
		PipelineID: p.PipelineID,
		Status:     p.Status,
		StartedAt:  p.StartedAt,
		Error:      p.Error,
	}
	if p.EndedAt != nil {
		ended := *p.EndedAt
		out.EndedAt = &ended
	}
	if len(p.Steps) > 0 {
		out.Steps = make([]StepState, 0, len(p.Steps))
		for _, s := range p.Steps {
			out.Steps = append(out.Steps, s.Clone())
		}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
