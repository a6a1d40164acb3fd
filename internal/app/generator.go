package app

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// GeminiGenerator implements rag.Generator on a Genkit instance with the
// Google AI plugin.
type GeminiGenerator struct {
	g           *genkit.Genkit
	modelName   string // provider-qualified, e.g. "googleai/gemini-2.5-flash-lite"
	temperature float32
}

// NewGeminiGenerator creates a generator for the given model name
// (unqualified, e.g. "gemini-2.5-flash-lite").
func NewGeminiGenerator(g *genkit.Genkit, modelName string, temperature float32) *GeminiGenerator {
	return &GeminiGenerator{
		g:           g,
		modelName:   "googleai/" + modelName,
		temperature: temperature,
	}
}

// Generate produces the model's text response for a fully rendered prompt.
// The prompt is passed as a message, not a format string, so user content
// containing % verbs is safe.
func (gg *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.modelName),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(prompt))),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(gg.temperature),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generating with %s: %w", gg.modelName, err)
	}
	return resp.Text(), nil
}
