package analysis

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient generates narratives through the Gemini API. It is the
// alternative backend to OpenRouter, selected by ai.default_provider.
type GeminiClient struct {
	modelName string
	gClient   *genai.Client
}

// NewGeminiClient creates a Gemini-backed generator.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = "gemini-flash-lite-latest"
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{modelName: modelName, gClient: gClient}, nil
}

// Generate sends the system and user prompts as one content turn. Gemini has
// no separate system role in this call shape, so the prompts are concatenated.
func (c *GeminiClient) Generate(ctx context.Context, system, user string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: system + "\n\n" + user}},
		Role:  "user",
	}}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ProviderError{Message: err.Error()}
	}

	text := resp.Text()
	if text == "" {
		return "", &ProviderError{Message: "empty response from model"}
	}

	return text, nil
}
