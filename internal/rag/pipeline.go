// Package rag composes retrieval, prompt building, and generation into the
// question-answering pipeline.
//
// The pipeline is a plain function over two consumer-defined interfaces so
// each stage can be substituted in tests: a Retriever (the knowledge store)
// and a Generator (the LLM client). There is no branching: retrieve, build
// the grounded prompt, generate.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helpmate-bot/helpmate/internal/knowledge"
)

// Retriever returns the most relevant documentation chunks for a question,
// best first. Implemented by *knowledge.Store.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Generator produces an answer for a fully rendered prompt.
// Implemented by the Gemini client in internal/app.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pipeline answers questions grounded in retrieved documentation.
type Pipeline struct {
	retriever Retriever
	generator Generator
	topK      int
	logger    *slog.Logger
}

// New creates a Pipeline. topK is the number of chunks retrieved per
// question.
func New(retriever Retriever, generator Generator, topK int, logger *slog.Logger) (*Pipeline, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if topK < 1 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}, nil
}

// Answer runs the full pipeline for one question. An empty question is
// forwarded as-is; retrieval decides what, if anything, it matches.
func (p *Pipeline) Answer(ctx context.Context, question string) (string, error) {
	results, err := p.retriever.Search(ctx, question, knowledge.WithTopK(p.topK))
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	contexts := make([]string, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, r.Document.Content)
	}

	prompt := BuildPrompt(contexts, question)
	p.logger.Debug("built prompt",
		"question_length", len(question),
		"context_chunks", len(contexts),
		"prompt_length", len(prompt))

	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	return answer, nil
}
