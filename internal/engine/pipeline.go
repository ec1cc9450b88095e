package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stepline-labs/stepline-go/internal/domain"
	"github.com/stepline-labs/stepline-go/internal/repo"
)

// Pipeline orchestrates sequential execution of an ordered step list over a
// shared context, tracking per-step and per-run state and persisting it
// after every state-affecting event.
//
// A Pipeline executes at most one run at a time; concurrent calls to Run on
// the same instance must be serialized by the caller. There is no internal
// locking.
type Pipeline struct {
	id      string
	steps   []domain.Step
	repo    repo.StateRepository
	state   *domain.PipelineState
	context *domain.Context
	logger  *slog.Logger
	clock   func() time.Time
	sleep   func(time.Duration)
}

// Option customizes a pipeline instance.
type Option func(*Pipeline)

// WithID fixes the pipeline run identifier instead of generating one.
func WithID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.id = id
		}
	}
}

// WithRepository attaches a state repository. Without one, state is kept
// in memory only.
func WithRepository(r repo.StateRepository) Option {
	return func(p *Pipeline) { p.repo = r }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithSleep injects the retry backoff wait (primarily for tests).
func WithSleep(sleep func(time.Duration)) Option {
	return func(p *Pipeline) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// New builds a pipeline over the declared, ordered step list. Step names
// must be unique within the pipeline.
func New(steps []domain.Step, opts ...Option) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, errors.New("pipeline must have at least one step")
	}
	seen := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		name := s.Name()
		if name == "" {
			return nil, errors.New("pipeline step name must not be empty")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate step name %q", name)
		}
		seen[name] = struct{}{}
	}
	p := &Pipeline{
		id:     uuid.NewString(),
		steps:  steps,
		logger: slog.Default(),
		clock:  time.Now,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.state = domain.NewPipelineState(p.id)
	p.context = domain.NewContext(nil)
	return p, nil
}

// ID returns the pipeline run identifier.
func (p *Pipeline) ID() string { return p.id }

// Run executes every step in declared order over a fresh context seeded
// from initial. It persists state at pipeline start, step start, step end,
// and pipeline end, so a crash between step start and step end leaves a
// RUNNING step state visible in storage.
//
// On the first step failure the remaining steps are aborted: their states
// are never created. The failure is recorded, persisted, and returned
// wrapped in an ExecutionError. On success every step state is COMPLETED
// with attempts = 1 and the returned Inspector projects the final state.
func (p *Pipeline) Run(ctx context.Context, initial map[string]any) (*Inspector, error) {
	p.context = domain.NewContext(initial)
	p.state = domain.NewPipelineState(p.id)
	p.state.Status = domain.StatusRunning
	p.state.StartedAt = p.now()
	if err := p.saveState(ctx); err != nil {
		return nil, err
	}

	for _, step := range p.steps {
		if err := p.executeStep(ctx, step, nil); err != nil {
			p.state.Status = domain.StatusFailed
			p.state.Error = err.Error()
			p.state.EndedAt = p.nowRef()
			if saveErr := p.saveState(ctx); saveErr != nil {
				p.logger.Error("persist failed pipeline state", "pipeline_id", p.id, "error", saveErr)
			}
			p.logger.Error("pipeline failed", "pipeline_id", p.id, "error", err)
			return nil, &ExecutionError{Cause: err}
		}
	}

	p.state.Status = domain.StatusCompleted
	p.state.EndedAt = p.nowRef()
	if err := p.saveState(ctx); err != nil {
		return nil, err
	}
	p.logger.Info("pipeline completed", "pipeline_id", p.id, "steps", len(p.steps))
	return NewInspector(p.state), nil
}

// RetryStep re-executes only the named step against the current context,
// driven through the retry policy (DefaultPolicy when policy is nil). The
// step's state record is replaced with the outcome of the latest attempt.
//
// Retrying a step neither re-runs downstream steps nor reconciles the
// pipeline-level status: a FAILED pipeline stays FAILED even when the
// retried step ends COMPLETED. That narrow "fix one step, inspect it"
// contract is deliberate.
func (p *Pipeline) RetryStep(ctx context.Context, name string, policy *Policy) error {
	var step domain.Step
	for _, s := range p.steps {
		if s.Name() == name {
			step = s
			break
		}
	}
	if step == nil {
		return &StepNotFoundError{Step: name}
	}
	effective := DefaultPolicy()
	if policy != nil {
		effective = *policy
	}
	return p.executeStep(ctx, step, &effective)
}

// Inspector returns a read-only projection over the live pipeline state.
func (p *Pipeline) Inspector() *Inspector { return NewInspector(p.state) }

// Context returns the live context reference.
func (p *Pipeline) Context() *domain.Context { return p.context }

// executeStep runs one step, recording and persisting its state. A non-nil
// policy routes execution through the retry driver.
func (p *Pipeline) executeStep(ctx context.Context, step domain.Step, policy *Policy) error {
	stepState := domain.StepState{
		StepName:  step.Name(),
		Status:    domain.StatusRunning,
		Input:     p.context.Snapshot(),
		StartedAt: p.now(),
	}
	p.state.UpsertStep(stepState)
	if err := p.saveState(ctx); err != nil {
		return err
	}
	p.logger.Info("step started", "pipeline_id", p.id, "step", step.Name())

	var (
		output   map[string]any
		attempts int
		err      error
	)
	if policy != nil {
		output, attempts, err = retryRun(ctx, step.Name(), *policy, p.sleep, func(ctx context.Context) (map[string]any, error) {
			return step.Execute(ctx, p.context)
		})
	} else {
		output, err = step.Execute(ctx, p.context)
		attempts = 1
	}

	if err != nil {
		stepState.Status = domain.StatusFailed
		stepState.Error = err.Error()
		stepState.Attempts = attempts
		stepState.EndedAt = p.nowRef()
		p.state.UpsertStep(stepState)
		if saveErr := p.saveState(ctx); saveErr != nil {
			p.logger.Error("persist failed step state", "pipeline_id", p.id, "step", step.Name(), "error", saveErr)
		}
		p.logger.Error("step failed", "pipeline_id", p.id, "step", step.Name(), "attempts", attempts, "error", err)
		return &StepError{Step: step.Name(), Message: err.Error(), Cause: err}
	}

	if len(output) > 0 {
		p.context.Merge(output)
	}
	stepState.Status = domain.StatusCompleted
	stepState.Output = output
	stepState.Attempts = attempts
	stepState.EndedAt = p.nowRef()
	p.state.UpsertStep(stepState)
	if err := p.saveState(ctx); err != nil {
		return err
	}
	p.logger.Info("step completed", "pipeline_id", p.id, "step", step.Name(), "attempts", attempts)
	return nil
}

func (p *Pipeline) saveState(ctx context.Context) error {
	if p.repo == nil {
		return nil
	}
	if err := p.repo.Save(ctx, p.id, p.state); err != nil {
		return fmt.Errorf("save pipeline state: %w", err)
	}
	return nil
}

func (p *Pipeline) now() time.Time {
	return p.clock().UTC()
}

func (p *Pipeline) nowRef() *time.Time {
	t := p.now()
	return &t
}
