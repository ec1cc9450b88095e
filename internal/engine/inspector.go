package engine

import (
	"time"

	"github.com/stepline-labs/stepline-go/internal/domain"
)

// Inspector is a read-only query surface over one PipelineState. It holds a
// reference to the live record, not a copy: mutations made by the
// orchestrator after the Inspector was obtained (a later RetryStep, for
// example) are visible through it. Accessors return detached copies, so
// callers can never mutate the live state through an Inspector.
type Inspector struct {
	state *domain.PipelineState
}

// NewInspector wraps the given state.
func NewInspector(state *domain.PipelineState) *Inspector {
	return &Inspector{state: state}
}

// PipelineID returns the run identifier.
func (i *Inspector) PipelineID() string { return i.state.PipelineID }

// Status returns the overall pipeline status.
func (i *Inspector) Status() domain.Status { return i.state.Status }

// Error returns the pipeline-level error message, empty when none.
func (i *Inspector) Error() string { return i.state.Error }

// StepState returns a copy of the named step's record.
func (i *Inspector) StepState(name string) (domain.StepState, bool) {
	s, ok := i.state.Step(name)
	if !ok {
		return domain.StepState{}, false
	}
	return s.Clone(), true
}

// StepStatus returns the named step's status, empty when the step never ran.
func (i *Inspector) StepStatus(name string) domain.Status {
	s, ok := i.state.Step(name)
	if !ok {
		return ""
	}
	return s.Status
}

// StepInput returns a copy of the context snapshot taken before the step ran.
func (i *Inspector) StepInput(name string) map[string]any {
	s, ok := i.state.Step(name)
	if !ok {
		return nil
	}
	return s.Clone().Input
}

// StepOutput returns a copy of the step's produced mapping.
func (i *Inspector) StepOutput(name string) map[string]any {
	s, ok := i.state.Step(name)
	if !ok {
		return nil
	}
	return s.Clone().Output
}

// StepError returns the named step's error message, empty when none.
func (i *Inspector) StepError(name string) string {
	s, ok := i.state.Step(name)
	if !ok {
		return ""
	}
	return s.Error
}

// StepAttempts returns the attempt count recorded for the named step.
func (i *Inspector) StepAttempts(name string) int {
	s, ok := i.state.Step(name)
	if !ok {
		return 0
	}
	return s.Attempts
}

// StepCompleted reports whether the named step completed successfully.
func (i *Inspector) StepCompleted(name string) bool {
	return i.StepStatus(name) == domain.StatusCompleted
}

// StepFailed reports whether the named step failed.
func (i *Inspector) StepFailed(name string) bool {
	return i.StepStatus(name) == domain.StatusFailed
}

// Steps returns copies of every step record in execution order.
func (i *Inspector) Steps() []domain.StepState {
	out := make([]domain.StepState, 0, len(i.state.Steps))
	for _, s := range i.state.Steps {
		out = append(out, s.Clone())
	}
	return out
}

// Dump returns the full structured state for external reporting. Timestamps
// are RFC 3339; absent values are omitted.
func (i *Inspector) Dump() map[string]any {
	steps := make([]map[string]any, 0, len(i.state.Steps))
	for _, s := range i.state.Steps {
		entry := map[string]any{
			"step_name": s.StepName,
			"status":    string(s.Status),
			"attempts":  s.Attempts,
		}
		if s.Input != nil {
			entry["input"] = domainClone(s.Input)
		}
		if s.Output != nil {
			entry["output"] = domainClone(s.Output)
		}
		if s.Error != "" {
			entry["error"] = s.Error
		}
		if !s.StartedAt.IsZero() {
			entry["started_at"] = s.StartedAt.Format(time.RFC3339Nano)
		}
		if s.EndedAt != nil {
			entry["ended_at"] = s.EndedAt.Format(time.RFC3339Nano)
		}
		steps = append(steps, entry)
	}
	dump := map[string]any{
		"pipeline_id": i.state.PipelineID,
		"status":      string(i.state.Status),
		"steps":       steps,
	}
	if i.state.Error != "" {
		dump["error"] = i.state.Error
	}
	if !i.state.StartedAt.IsZero() {
		dump["started_at"] = i.state.StartedAt.Format(time.RFC3339Nano)
	}
	if i.state.EndedAt != nil {
		dump["ended_at"] = i.state.EndedAt.Format(time.RFC3339Nano)
	}
	return dump
}

func domainClone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
