package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	defaultGeminiModel = "gemini-2.5-flash"
	geminiUserRole     = "user"
)

// Gemini generates text with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string {
	return providerNameGemini
}

// Generate sends prompt as a single user turn and joins the text parts of
// the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, buildGeminiContents(prompt), nil)
	if err != nil {
		return "", requestFailed(providerNameGemini, err)
	}
	text := geminiText(result)
	if text == "" {
		return "", requestFailed(providerNameGemini, errors.New("empty response"))
	}
	return text, nil
}

func buildGeminiContents(prompt string) []*genai.Content {
	return []*genai.Content{{
		Role:  geminiUserRole,
		Parts: []*genai.Part{{Text: prompt}},
	}}
}

func geminiText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
