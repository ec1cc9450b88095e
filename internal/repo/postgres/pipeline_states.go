package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stepline-labs/stepline-go/internal/domain"
	"github.com/stepline-labs/stepline-go/internal/repo"
)

// DB is the subset of *sql.DB the store needs; it keeps the store testable
// and transaction-friendly.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	upsertPipelineStateQuery = `INSERT INTO pipeline_states (
		pipeline_id,
		status,
		error_message,
		started_at,
		ended_at,
		state,
		updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (pipeline_id) DO UPDATE SET
		status = EXCLUDED.status,
		error_message = EXCLUDED.error_message,
		started_at = EXCLUDED.started_at,
		ended_at = EXCLUDED.ended_at,
		state = EXCLUDED.state,
		updated_at = EXCLUDED.updated_at`

	selectPipelineStateQuery = `SELECT state
	 FROM pipeline_states
	 WHERE pipeline_id = $1`

	existsPipelineStateQuery = `SELECT 1
	 FROM pipeline_states
	 WHERE pipeline_id = $1`
)

// PipelineStateStore persists pipeline state documents in Postgres. The full
// state is stored as a JSON document; status, error, and timestamps are
// lifted into columns for querying.
type PipelineStateStore struct {
	db DB
}

func NewPipelineStateStore(db DB) *PipelineStateStore {
	if db == nil {
		return nil
	}
	return &PipelineStateStore{db: db}
}

func (s *PipelineStateStore) Save(ctx context.Context, pipelineID string, state *domain.PipelineState) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("pipeline state store not initialized")
	}
	pipelineID = strings.TrimSpace(pipelineID)
	if pipelineID == "" {
		return fmt.Errorf("pipeline id is required")
	}
	if state == nil {
		return fmt.Errorf("pipeline state is required")
	}
	doc, err := repo.MarshalPipelineState(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	var endedAt sql.NullTime
	if state.EndedAt != nil {
		endedAt = sql.NullTime{Time: state.EndedAt.UTC(), Valid: true}
	}
	startedAt := state.StartedAt
	if !startedAt.IsZero() {
		startedAt = startedAt.UTC()
	}
	_, err = s.db.ExecContext(
		ctx,
		upsertPipelineStateQuery,
		pipelineID,
		string(state.Status),
		nullIfEmpty(state.Error),
		sql.NullTime{Time: startedAt, Valid: !startedAt.IsZero()},
		endedAt,
		doc,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert pipeline state: %w", err)
	}
	return nil
}

func (s *PipelineStateStore) Load(ctx context.Context, pipelineID string) (*domain.PipelineState, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("pipeline state store not initialized")
	}
	var doc []byte
	err := s.db.QueryRowContext(ctx, selectPipelineStateQuery, strings.TrimSpace(pipelineID)).Scan(&doc)
	if err != nil {
		return nil, handleNotFound(err)
	}
	return repo.UnmarshalPipelineState(doc)
}

func (s *PipelineStateStore) Exists(ctx context.Context, pipelineID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("pipeline state store not initialized")
	}
	var one int
	err := s.db.QueryRowContext(ctx, existsPipelineStateQuery, strings.TrimSpace(pipelineID)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func handleNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repo.ErrNotFound
	}
	return err
}
