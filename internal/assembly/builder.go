package assembly

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stepline-labs/stepline-go/internal/domain"
	"github.com/stepline-labs/stepline-go/internal/engine"
)

// Factory builds a step instance from its declared name and parameters.
type Factory func(name string, params map[string]any) (domain.Step, error)

// Builder maps factory identifiers (the "uses" field of a step definition)
// to step factories and assembles pipelines from definitions.
type Builder struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewBuilder() *Builder {
	return &Builder{factories: map[string]Factory{}}
}

// Register binds a factory to an identifier. Registering the same identifier
// twice is a programming error.
func (b *Builder) Register(uses string, factory Factory) error {
	if uses == "" {
		return fmt.Errorf("factory identifier must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory %q must not be nil", uses)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.factories[uses]; dup {
		return fmt.Errorf("factory %q already registered", uses)
	}
	b.factories[uses] = factory
	return nil
}

// Known returns the registered factory identifiers in stable order.
func (b *Builder) Known() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.factories))
	for uses := range b.factories {
		out = append(out, uses)
	}
	sort.Strings(out)
	return out
}

// Steps instantiates the definition's step list in declared order.
func (b *Builder) Steps(def Definition) ([]domain.Step, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	steps := make([]domain.Step, 0, len(def.Steps))
	for _, stepDef := range def.Steps {
		b.mu.RLock()
		factory, ok := b.factories[stepDef.Uses]
		b.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("step %q: unknown step type %q", stepDef.Name, stepDef.Uses)
		}
		step, err := factory(stepDef.Name, stepDef.Params)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", stepDef.Name, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Pipeline assembles a runnable pipeline from the definition.
func (b *Builder) Pipeline(def Definition, opts ...engine.Option) (*engine.Pipeline, error) {
	steps, err := b.Steps(def)
	if err != nil {
		return nil, err
	}
	return engine.New(steps, opts...)
}
