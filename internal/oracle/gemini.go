// Package oracle implements the generation oracle on Google's Gemini API.
package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"sqlregress/internal/domain"
)

// Gemini calls the Gemini API for text generation. No retries: callers
// validate output defensively and treat a failed call as a stage outcome.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini oracle.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("oracle API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
		logger: logger.With("component", "oracle", "model", model),
	}, nil
}

// Generate submits a prompt and returns the raw response text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	})
	if err != nil {
		g.logger.Error("generation call failed", "error", err)
		return "", domain.ErrGeneration("oracle call failed: %v", err)
	}

	text := result.Text()
	if text == "" {
		return "", domain.ErrGeneration("oracle returned an empty response")
	}
	g.logger.Debug("generation call succeeded", "prompt_bytes", len(prompt), "response_bytes", len(text))
	return text, nil
}
