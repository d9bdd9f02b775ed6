package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/domain/ports/adapter"
)

var _ adapter.ContentAnalyzer = (*GeminiAnalyzer)(nil)

// GeminiAnalyzer produces a short content analysis via the Gemini SDK.
// The controller treats the whole call as best-effort.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

func NewGeminiAnalyzer(ctx context.Context, apiKey, modelName string) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiAnalyzer{client: c, model: modelName}, nil
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, content *model.ExtractedContent) (string, error) {
	prompt := buildPrompt(content)

	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: prompt}},
		}},
		&genai.GenerateContentConfig{MaxOutputTokens: 512},
	)
	if err != nil {
		return "", err
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty response")
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

func buildPrompt(c *model.ExtractedContent) string {
	var b strings.Builder
	b.WriteString("Summarize the themes, hook and tone of this social media post in a short paragraph.\n")
	if c.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", c.Title)
	}
	if c.Description != "" {
		fmt.Fprintf(&b, "Caption: %s\n", c.Description)
	}
	if c.HasTranscript() && !model.IsSentinelTranscript(*c.Transcript) {
		fmt.Fprintf(&b, "Transcript: %s\n", truncateUTF8(*c.Transcript, 4000))
	}
	return b.String()
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
