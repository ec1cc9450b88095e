package docproc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stepline-labs/stepline-go/internal/domain"
)

// ReportStep aggregates classification and keywords into a final report.
// Outputs "report" and "summary".
type ReportStep struct {
	name string
}

func NewReportStep(name string) *ReportStep {
	if name == "" {
		name = "generate_report"
	}
	return &ReportStep{name: name}
}

func (s *ReportStep) Name() string { return s.name }

func (s *ReportStep) Execute(_ context.Context, c *domain.Context) (map[string]any, error) {
	doc, err := documentFromContext(c)
	if err != nil {
		return nil, err
	}
	category, _ := c.Get("category", "").(string)
	if category == "" {
		return nil, errors.New("category not found in context")
	}
	keywords := keywordsFromContext(c)

	summary := summarize(doc, category, keywords)
	report := Report{
		DocumentID: doc.ID,
		Category:   category,
		Keywords:   keywords,
		Summary:    summary,
	}
	return map[string]any{
		"report":  report,
		"summary": summary,
	}, nil
}

func summarize(doc Document, category string, keywords []string) string {
	top := keywords
	if len(top) > 3 {
		top = top[:3]
	}
	return fmt.Sprintf("Document %q classified as %q with key topics: %s.", doc.ID, category, strings.Join(top, ", "))
}

func keywordsFromContext(c *domain.Context) []string {
	switch v := c.Get("keywords", nil).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
