package domain

import "context"

// Step is a single named unit of work in a pipeline's ordered sequence.
// Execute reads from the shared context and returns the output mapping to be
// merged into it by the orchestrator; a step never merges its own output.
// Implementations must be safe to invoke repeatedly (retry) and may hold
// private caches, but hold no orchestrator-visible state.
type Step interface {
	Name() string
	Execute(ctx context.Context, c *Context) (map[string]any, error)
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, c *Context) (map[string]any, error)
}

func (s StepFunc) Name() string { return s.StepName }

func (s StepFunc) Execute(ctx context.Context, c *Context) (map[string]any, error) {
	return s.Fn(ctx, c)
}
