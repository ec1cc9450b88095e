package memory

import (
	"context"
	"sync"

	"github.com/stepline-labs/stepline-go/internal/domain"
	"github.com/stepline-labs/stepline-go/internal/repo"
)

// Store is an in-memory state repository. Saved states are cloned so later
// orchestrator mutations do not leak into persisted snapshots. Safe for
// concurrent use across independent pipelines.
type Store struct {
	mu     sync.RWMutex
	states map[string]*domain.PipelineState
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{states: map[string]*domain.PipelineState{}}
}

func (s *Store) Save(_ context.Context, pipelineID string, state *domain.PipelineState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[pipelineID] = state.Clone()
	return nil
}

func (s *Store) Load(_ context.Context, pipelineID string) (*domain.PipelineState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[pipelineID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return state.Clone(), nil
}

func (s *Store) Exists(_ context.Context, pipelineID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.states[pipelineID]
	return ok, nil
}

// Clear drops every stored state. Useful in tests.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = map[string]*domain.PipelineState{}
}
