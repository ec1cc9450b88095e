package docproc

import (
	"github.com/stepline-labs/stepline-go/internal/assembly"
	"github.com/stepline-labs/stepline-go/internal/domain"
	"github.com/stepline-labs/stepline-go/internal/engine"
)

// RegisterFactories binds the document processing steps to their assembly
// identifiers.
func RegisterFactories(b *assembly.Builder) error {
	if err := b.Register("docproc/classify", func(name string, _ map[string]any) (domain.Step, error) {
		return NewClassifyStep(name), nil
	}); err != nil {
		return err
	}
	if err := b.Register("docproc/keywords", func(name string, params map[string]any) (domain.Step, error) {
		max, err := maxKeywordsParam(params)
		if err != nil {
			return nil, err
		}
		return NewKeywordsStep(name, max), nil
	}); err != nil {
		return err
	}
	return b.Register("docproc/report", func(name string, _ map[string]any) (domain.Step, error) {
		return NewReportStep(name), nil
	})
}

// NewPipeline wires the canonical document processing pipeline: classify,
// extract keywords, generate report.
func NewPipeline(opts ...engine.Option) (*engine.Pipeline, error) {
	steps := []domain.Step{
		NewClassifyStep(""),
		NewKeywordsStep("", defaultMaxKeywords),
		NewReportStep(""),
	}
	return engine.New(steps, opts...)
}
