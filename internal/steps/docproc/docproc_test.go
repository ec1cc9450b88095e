package docproc

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stepline-labs/stepline-go/internal/assembly"
	"github.com/stepline-labs/stepline-go/internal/domain"
	"github.com/stepline-labs/stepline-go/internal/engine"
	"github.com/stepline-labs/stepline-go/internal/repo/memory"
)

func contextWithDocument(content string) *domain.Context {
	return domain.NewContext(map[string]any{
		"document": Document{ID: "doc-1", Title: "t", Content: content},
	})
}

func TestClassifyStepCategories(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"This function calls the payments API.", "technical"},
		{"Quarterly revenue grew and market share expanded.", "business"},
		{"The contract binds both parties under state law.", "legal"},
		{"A quiet walk through the park.", "general"},
	}
	step := NewClassifyStep("")
	for _, tc := range cases {
		out, err := step.Execute(context.Background(), contextWithDocument(tc.content))
		if err != nil {
			t.Fatalf("execute(%q): %v", tc.content, err)
		}
		if out["category"] != tc.want {
			t.Fatalf("content %q classified as %v, want %s", tc.content, out["category"], tc.want)
		}
		if out["confidence"] != 0.85 {
			t.Fatalf("confidence=%v", out["confidence"])
		}
	}
}

func TestClassifyStepMissingDocument(t *testing.T) {
	step := NewClassifyStep("")
	if _, err := step.Execute(context.Background(), domain.NewContext(nil)); err == nil {
		t.Fatalf("expected error for missing document")
	}
	bad := domain.NewContext(map[string]any{"document": "just a string"})
	if _, err := step.Execute(context.Background(), bad); err == nil {
		t.Fatalf("expected error for wrong document type")
	}
}

func TestClassifyStepAcceptsMapDocument(t *testing.T) {
	step := NewClassifyStep("")
	c := domain.NewContext(map[string]any{
		"document": map[string]any{"id": "doc-2", "content": "sales and revenue report"},
	})
	out, err := step.Execute(context.Background(), c)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out["category"] != "business" {
		t.Fatalf("category=%v", out["category"])
	}

	incomplete := domain.NewContext(map[string]any{
		"document": map[string]any{"title": "no id or content"},
	})
	if _, err := step.Execute(context.Background(), incomplete); err == nil {
		t.Fatalf("expected error for incomplete map document")
	}
}

func TestExtractKeywords(t *testing.T) {
	content := "Pipeline pipeline pipeline engine engine state, state? words and the of with tiny"
	result := extractKeywords(content, 3)
	want := []string{"pipeline", "engine", "state"}
	if len(result.Keywords) != len(want) {
		t.Fatalf("keywords=%v, want %v", result.Keywords, want)
	}
	for i := range want {
		if result.Keywords[i] != want[i] {
			t.Fatalf("keywords=%v, want %v", result.Keywords, want)
		}
	}
	if len(result.Scores) != 3 {
		t.Fatalf("scores=%v", result.Scores)
	}
	if result.Scores[0] <= result.Scores[2] {
		t.Fatalf("scores not descending: %v", result.Scores)
	}
}

func TestExtractKeywordsSkipsStopwordsAndShortWords(t *testing.T) {
	result := extractKeywords("the and with for cat dog is a", 5)
	if len(result.Keywords) != 0 {
		t.Fatalf("keywords=%v, want none", result.Keywords)
	}
}

func TestExtractKeywordsTiebreakIsFirstOccurrence(t *testing.T) {
	// Every word occurs once; order of appearance decides.
	result := extractKeywords("zebra apple mango", 3)
	want := []string{"zebra", "apple", "mango"}
	for i := range want {
		if result.Keywords[i] != want[i] {
			t.Fatalf("keywords=%v, want %v", result.Keywords, want)
		}
	}
}

func TestMaxKeywordsParam(t *testing.T) {
	if got, err := maxKeywordsParam(nil); err != nil || got != defaultMaxKeywords {
		t.Fatalf("default = %d, %v", got, err)
	}
	if got, err := maxKeywordsParam(map[string]any{"max_keywords": 7}); err != nil || got != 7 {
		t.Fatalf("int = %d, %v", got, err)
	}
	if got, err := maxKeywordsParam(map[string]any{"max_keywords": float64(4)}); err != nil || got != 4 {
		t.Fatalf("float64 = %d, %v", got, err)
	}
	if _, err := maxKeywordsParam(map[string]any{"max_keywords": "lots"}); err == nil {
		t.Fatalf("expected error for string value")
	}
}

func TestReportStepRequiresCategory(t *testing.T) {
	step := NewReportStep("")
	c := contextWithDocument("anything")
	if _, err := step.Execute(context.Background(), c); err == nil {
		t.Fatalf("expected error when category absent")
	}
}

func TestReportStepSummarizesTopKeywords(t *testing.T) {
	step := NewReportStep("")
	c := contextWithDocument("anything")
	c.Set("category", "technical")
	c.Set("keywords", []string{"pipeline", "engine", "state", "extra"})

	out, err := step.Execute(context.Background(), c)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	report, ok := out["report"].(Report)
	if !ok {
		t.Fatalf("report is %T", out["report"])
	}
	if report.DocumentID != "doc-1" || report.Category != "technical" {
		t.Fatalf("report=%+v", report)
	}
	summary, _ := out["summary"].(string)
	if !strings.Contains(summary, `classified as "technical"`) {
		t.Fatalf("summary=%q", summary)
	}
	if strings.Contains(summary, "extra") {
		t.Fatalf("summary should keep only the top three keywords: %q", summary)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := NewPipeline(engine.WithRepository(store), engine.WithLogger(logger))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	doc := Document{
		ID:      "doc-42",
		Title:   "API design notes",
		Content: "The function exposes an api. The api wraps the algorithm behind a stable function signature.",
	}
	insp, err := p.Run(context.Background(), map[string]any{"document": doc})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if insp.Status() != domain.StatusCompleted {
		t.Fatalf("status=%s", insp.Status())
	}
	if got := p.Context().Get("category", nil); got != "technical" {
		t.Fatalf("category=%v", got)
	}
	report, ok := p.Context().Get("report", nil).(Report)
	if !ok || report.DocumentID != "doc-42" {
		t.Fatalf("report=%v", p.Context().Get("report", nil))
	}

	persisted, err := store.Load(context.Background(), p.ID())
	if err != nil {
		t.Fatalf("load persisted state: %v", err)
	}
	if persisted.Status != domain.StatusCompleted || len(persisted.Steps) != 3 {
		t.Fatalf("persisted state=%+v", persisted)
	}
}

func TestRegisterFactories(t *testing.T) {
	b := assembly.NewBuilder()
	if err := RegisterFactories(b); err != nil {
		t.Fatalf("RegisterFactories: %v", err)
	}
	known := b.Known()
	want := []string{"docproc/classify", "docproc/keywords", "docproc/report"}
	if len(known) != len(want) {
		t.Fatalf("known=%v", known)
	}
	for i := range want {
		if known[i] != want[i] {
			t.Fatalf("known=%v, want %v", known, want)
		}
	}

	def := assembly.Definition{
		Name: "docs",
		Steps: []assembly.StepDefinition{
			{Name: "classify", Uses: "docproc/classify"},
			{Name: "keywords", Uses: "docproc/keywords", Params: map[string]any{"max_keywords": 2}},
			{Name: "report", Uses: "docproc/report"},
		},
	}
	steps, err := b.Steps(def)
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if len(steps) != 3 || steps[1].Name() != "keywords" {
		t.Fatalf("steps=%v", steps)
	}
}
