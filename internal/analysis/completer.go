package analysis

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Completer is the language-model collaborator boundary: one prompt in, one
// raw text completion out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiCompleter talks to Gemini through the GenAI SDK. The client is
// created once at construction; credentials come from the environment the
// SDK reads (API key or application default credentials).
type GeminiCompleter struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiCompleter builds the production completer. Low temperature keeps
// the output near-deterministic, which the response parser relies on.
func NewGeminiCompleter(ctx context.Context, model string, temperature float32) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiCompleter: create genai client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model, temperature: temperature}, nil
}

// Complete sends the prompt and returns the raw model text.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GeminiCompleter: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GeminiCompleter: empty response from model")
	}
	return text, nil
}
