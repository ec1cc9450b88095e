package docproc

import (
	"context"
	"errors"
	"strings"

	"github.com/stepline-labs/stepline-go/internal/domain"
)

// ClassifyStep assigns a document to a category by keyword scoring. Outputs
// "classification", "category", and "confidence".
type ClassifyStep struct {
	name string
}

func NewClassifyStep(name string) *ClassifyStep {
	if name == "" {
		name = "classify_text"
	}
	return &ClassifyStep{name: name}
}

func (s *ClassifyStep) Name() string { return s.name }

func (s *ClassifyStep) Execute(_ context.Context, c *domain.Context) (map[string]any, error) {
	doc, err := documentFromContext(c)
	if err != nil {
		return nil, err
	}
	category, confidence := classify(doc.Content)
	return map[string]any{
		"classification": Classification{Category: category, Confidence: confidence},
		"category":       category,
		"confidence":     confidence,
	}, nil
}

var categoryMarkers = []struct {
	category string
	markers  []string
}{
	{"technical", []string{"code", "function", "algorithm", "api"}},
	{"business", []string{"revenue", "profit", "market", "sales"}},
	{"legal", []string{"law", "legal", "contract", "agreement"}},
}

func classify(content string) (string, float64) {
	lower := strings.ToLower(content)
	for _, entry := range categoryMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(lower, marker) {
				return entry.category, 0.85
			}
		}
	}
	return "general", 0.85
}

// documentFromContext reads the "document" key, accepting both the typed
// struct and the map shape JSON seeds arrive in.
func documentFromContext(c *domain.Context) (Document, error) {
	value := c.Get("document", nil)
	if value == nil {
		return Document{}, errors.New("document not found in context")
	}
	switch v := value.(type) {
	case Document:
		return v, nil
	case map[string]any:
		doc := Document{}
		doc.ID, _ = v["id"].(string)
		doc.Title, _ = v["title"].(string)
		doc.Content, _ = v["content"].(string)
		if doc.ID == "" || doc.Content == "" {
			return Document{}, errors.New("document requires id and content")
		}
		return doc, nil
	default:
		return Document{}, errors.New("invalid document type in context")
	}
}
