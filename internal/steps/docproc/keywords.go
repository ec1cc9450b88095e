package docproc

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stepline-labs/stepline-go/internal/domain"
)

const defaultMaxKeywords = 5

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
}

// KeywordsStep extracts the most frequent non-stopword terms from the
// document. Outputs "keywords", "keyword_scores", and "keyword_extraction".
type KeywordsStep struct {
	name        string
	maxKeywords int
}

func NewKeywordsStep(name string, maxKeywords int) *KeywordsStep {
	if name == "" {
		name = "extract_keywords"
	}
	if maxKeywords <= 0 {
		maxKeywords = defaultMaxKeywords
	}
	return &KeywordsStep{name: name, maxKeywords: maxKeywords}
}

func (s *KeywordsStep) Name() string { return s.name }

func (s *KeywordsStep) Execute(_ context.Context, c *domain.Context) (map[string]any, error) {
	doc, err := documentFromContext(c)
	if err != nil {
		return nil, err
	}
	result := extractKeywords(doc.Content, s.maxKeywords)
	return map[string]any{
		"keywords":           result.Keywords,
		"keyword_scores":     result.Scores,
		"keyword_extraction": result,
	}, nil
}

func extractKeywords(content string, max int) KeywordExtraction {
	words := strings.Fields(strings.ToLower(content))
	filtered := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		filtered = append(filtered, w)
	}

	freq := map[string]int{}
	order := map[string]int{}
	for i, w := range filtered {
		if _, seen := freq[w]; !seen {
			order[w] = i
		}
		freq[w]++
	}

	unique := make([]string, 0, len(freq))
	for w := range freq {
		unique = append(unique, w)
	}
	// Frequency descending, first occurrence as tiebreak for determinism.
	sort.Slice(unique, func(i, j int) bool {
		if freq[unique[i]] != freq[unique[j]] {
			return freq[unique[i]] > freq[unique[j]]
		}
		return order[unique[i]] < order[unique[j]]
	})

	if len(unique) > max {
		unique = unique[:max]
	}
	scores := make([]float64, 0, len(unique))
	for _, w := range unique {
		scores = append(scores, float64(freq[w])/float64(len(filtered)))
	}
	return KeywordExtraction{Keywords: unique, Scores: scores}
}

// maxKeywordsParam reads the max_keywords step parameter, accepting the int
// shapes YAML decoders produce.
func maxKeywordsParam(params map[string]any) (int, error) {
	value, ok := params["max_keywords"]
	if !ok {
		return defaultMaxKeywords, nil
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("max_keywords must be an integer, got %T", value)
	}
}
