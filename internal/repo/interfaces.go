package repo

import (
	"context"
	"errors"

	"github.com/stepline-labs/stepline-go/internal/domain"
)

// ErrNotFound is returned by Load for an unknown pipeline identifier.
var ErrNotFound = errors.New("pipeline state not found")

// StateRepository persists pipeline run state. Save is an idempotent upsert;
// the orchestrator calls it after every state-affecting event, so adapters
// may observe a RUNNING step state mid-flight. Implementations must be safe
// under concurrent use by independent pipelines (distinct identifiers); no
// ordering is guaranteed across different identifiers.
type StateRepository interface {
	Save(ctx context.Context, pipelineID string, state *domain.PipelineState) error
	Load(ctx context.Context, pipelineID string) (*domain.PipelineState, error)
	Exists(ctx context.Context, pipelineID string) (bool, error)
}
