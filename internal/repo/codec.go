package repo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stepline-labs/stepline-go/internal/domain"
)

// MarshalPipelineState serializes a pipeline state with stable field names.
// Statuses serialize as their lowercase names, timestamps as RFC 3339, and
// steps as an array so insertion order survives the round trip.
func MarshalPipelineState(state *domain.PipelineState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("pipeline state is nil")
	}
	payload := pipelineStatePayload{
		PipelineID: state.PipelineID,
		Status:     string(state.Status),
		Error:      state.Error,
		StartedAt:  encodeTime(state.StartedAt),
		EndedAt:    encodeTimeRef(state.EndedAt),
		Steps:      make([]stepStatePayload, 0, len(state.Steps)),
	}
	for _, s := range state.Steps {
		payload.Steps = append(payload.Steps, stepStatePayload{
			StepName:  s.StepName,
			Status:    string(s.Status),
			Input:     s.Input,
			Output:    s.Output,
			Error:     s.Error,
			Attempts:  s.Attempts,
			StartedAt: encodeTime(s.StartedAt),
			EndedAt:   encodeTimeRef(s.EndedAt),
		})
	}
	return json.Marshal(payload)
}

// UnmarshalPipelineState parses a persisted state document.
func UnmarshalPipelineState(raw []byte) (*domain.PipelineState, error) {
	var payload pipelineStatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode pipeline state: %w", err)
	}
	startedAt, err := decodeTime(payload.StartedAt)
	if err != nil {
		return nil, err
	}
	endedAt, err := decodeTimeRef(payload.EndedAt)
	if err != nil {
		return nil, err
	}
	state := &domain.PipelineState{
		PipelineID: payload.PipelineID,
		Status:     domain.Status(payload.Status),
		Error:      payload.Error,
		StartedAt:  startedAt,
		EndedAt:    endedAt,
	}
	for _, s := range payload.Steps {
		stepStarted, err := decodeTime(s.StartedAt)
		if err != nil {
			return nil, err
		}
		stepEnded, err := decodeTimeRef(s.EndedAt)
		if err != nil {
			return nil, err
		}
		state.Steps = append(state.Steps, domain.StepState{
			StepName:  s.StepName,
			Status:    domain.Status(s.Status),
			Input:     s.Input,
			Output:    s.Output,
			Error:     s.Error,
			Attempts:  s.Attempts,
			StartedAt: stepStarted,
			EndedAt:   stepEnded,
		})
	}
	return state, nil
}

type pipelineStatePayload struct {
	PipelineID string             `json:"pipeline_id"`
	Status     string             `json:"status"`
	Steps      []stepStatePayload `json:"steps"`
	StartedAt  string             `json:"started_at,omitempty"`
	EndedAt    string             `json:"ended_at,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type stepStatePayload struct {
	StepName  string         `json:"step_name"`
	Status    string         `json:"status"`
	Input     map[string]any `json:"input,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Attempts  int            `json:"attempts"`
	StartedAt string         `json:"started_at,omitempty"`
	EndedAt   string         `json:"ended_at,omitempty"`
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeTimeRef(t *time.Time) string {
	if t == nil {
		return ""
	}
	return encodeTime(*t)
}

func decodeTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
	}
	return t, nil
}

func decodeTimeRef(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := decodeTime(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
