// docpipe runs the document processing pipeline end to end against the
// in-memory state store and prints the resulting run state.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/stepline-labs/stepline-go/internal/engine"
	"github.com/stepline-labs/stepline-go/internal/repo/memory"
	"github.com/stepline-labs/stepline-go/internal/steps/docproc"
)

func main() {
	title := flag.String("title", "Python Programming Guide", "document title")
	content := flag.String("content", defaultContent, "document content")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	store := memory.New()
	pipeline, err := docproc.NewPipeline(
		engine.WithRepository(store),
		engine.WithLogger(logger),
	)
	if err != nil {
		logger.Error("assemble pipeline", "error", err)
		os.Exit(2)
	}

	initial := map[string]any{
		"document": docproc.Document{
			ID:      "doc-001",
			Title:   *title,
			Content: *content,
		},
	}

	inspector, err := pipeline.Run(context.Background(), initial)
	if err != nil {
		logger.Error("pipeline failed", "error", err)
		// The inspector still exposes which step failed and why.
		printState(pipeline.Inspector())
		os.Exit(1)
	}
	printState(inspector)
}

func printState(inspector *engine.Inspector) {
	out, err := json.MarshalIndent(inspector.Dump(), "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode state:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

const defaultContent = "Python is a high-level programming language with dynamic semantics. " +
	"Its high-level built-in data structures, combined with dynamic typing " +
	"and dynamic binding, make it very attractive for Rapid Application Development. " +
	"Python supports multiple programming paradigms including object-oriented, " +
	"imperative, functional, and procedural programming."
