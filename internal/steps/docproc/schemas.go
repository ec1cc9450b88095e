// Package docproc provides the document processing steps: classification,
// keyword extraction, and report generation. The steps read and write the
// shared pipeline context; richer inference backends can replace the
// rule-based scoring without the orchestrator noticing.
package docproc

// Document is the unit of work fed into the pipeline via the "document"
// context key.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Classification is the outcome of the classify step.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// KeywordExtraction is the outcome of the keyword step.
type KeywordExtraction struct {
	Keywords []string  `json:"keywords"`
	Scores   []float64 `json:"scores"`
}

// Report is the final aggregation produced by the report step.
type Report struct {
	DocumentID string   `json:"document_id"`
	Category   string   `json:"category"`
	Keywords   []string `json:"keywords"`
	Summary    string   `json:"summary"`
}
