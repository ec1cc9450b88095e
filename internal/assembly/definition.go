// Package assembly builds runnable pipelines from declarative YAML
// definitions and a registry of step factories.
package assembly

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stepline-labs/stepline-go/internal/engine"
)

// Definition is the declarative shape of a pipeline. ContextSchema documents
// the expected type per context key so steps can rely on prior outputs
// without unchecked casts; it is validated against the seed data before a
// run.
type Definition struct {
	Name          string            `yaml:"name"`
	ContextSchema map[string]string `yaml:"context_schema,omitempty"`
	Steps         []StepDefinition  `yaml:"steps"`
	Retry         *RetryDefinition  `yaml:"retry,omitempty"`
}

// StepDefinition names one step and the registered factory that builds it.
type StepDefinition struct {
	Name   string         `yaml:"name"`
	Uses   string         `yaml:"uses"`
	Params map[string]any `yaml:"params,omitempty"`
}

// RetryDefinition configures the policy applied when a step of this pipeline
// is retried explicitly.
type RetryDefinition struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
	Multiplier  float64       `yaml:"multiplier"`
}

// Policy converts the definition into an engine policy, filling defaults for
// omitted fields.
func (r *RetryDefinition) Policy() engine.Policy {
	policy := engine.DefaultPolicy()
	if r == nil {
		return policy
	}
	if r.MaxAttempts > 0 {
		policy.MaxAttempts = r.MaxAttempts
	}
	if r.Delay > 0 {
		policy.Delay = r.Delay
	}
	if r.Multiplier > 0 {
		policy.Multiplier = r.Multiplier
	}
	return policy
}

// Parse decodes a YAML definition and validates its shape.
func Parse(raw []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return Definition{}, fmt.Errorf("decode pipeline definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

func (d Definition) Validate() error {
	issues := &ValidationError{}
	if strings.TrimSpace(d.Name) == "" {
		issues.Add("pipeline name is required")
	}
	if len(d.Steps) == 0 {
		issues.Add("pipeline must declare at least one step")
	}
	seen := map[string]struct{}{}
	for i, step := range d.Steps {
		if strings.TrimSpace(step.Name) == "" {
			issues.Add(fmt.Sprintf("step %d: name is required", i))
			continue
		}
		if strings.TrimSpace(step.Uses) == "" {
			issues.Add(fmt.Sprintf("step %q: uses is required", step.Name))
		}
		if _, dup := seen[step.Name]; dup {
			issues.Add(fmt.Sprintf("step %q: duplicate name", step.Name))
		}
		seen[step.Name] = struct{}{}
	}
	for key, kind := range d.ContextSchema {
		if !knownSchemaType(kind) {
			issues.Add(fmt.Sprintf("context_schema %q: unknown type %q", key, kind))
		}
	}
	if d.Retry != nil {
		if d.Retry.MaxAttempts < 0 {
			issues.Add("retry.max_attempts must be >= 0")
		}
		if d.Retry.Delay < 0 {
			issues.Add("retry.delay must be >= 0")
		}
		if d.Retry.Multiplier < 0 {
			issues.Add("retry.multiplier must be >= 0")
		}
	}
	return issues.OrNil()
}

// ValidateInitial checks seed data against the declared context schema.
// Keys absent from the schema pass unchecked.
func (d Definition) ValidateInitial(initial map[string]any) error {
	issues := &ValidationError{}
	for key, kind := range d.ContextSchema {
		value, ok := initial[key]
		if !ok {
			continue
		}
		if !matchesSchemaType(value, kind) {
			issues.Add(fmt.Sprintf("context key %q: expected %s, got %T", key, kind, value))
		}
	}
	return issues.OrNil()
}

// ValidationError aggregates definition validation issues.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "pipeline definition validation failed"
	}
	return "pipeline definition validation failed: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	if strings.TrimSpace(issue) == "" {
		return
	}
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}

func knownSchemaType(kind string) bool {
	switch kind {
	case "string", "int", "float", "bool", "map", "list", "any":
		return true
	default:
		return false
	}
}

func matchesSchemaType(value any, kind string) bool {
	switch kind {
	case "any":
		return true
	case "string":
		_, ok := value.(string)
		return ok
	case "bool":
		_, ok := value.(bool)
		return ok
	case "int":
		switch value.(type) {
		case int, int32, int64:
			return true
		}
		return false
	case "float":
		switch value.(type) {
		case float32, float64:
			return true
		}
		return false
	case "map":
		_, ok := value.(map[string]any)
		return ok
	case "list":
		_, ok := value.([]any)
		return ok
	default:
		return false
	}
}
