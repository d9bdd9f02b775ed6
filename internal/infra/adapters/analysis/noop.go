package analysis

import (
	"context"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/domain/ports/adapter"
)

var _ adapter.ContentAnalyzer = (*NoopAnalyzer)(nil)

// NoopAnalyzer is wired when no analysis provider is configured.
type NoopAnalyzer struct{}

func (NoopAnalyzer) Analyze(ctx context.Context, content *model.ExtractedContent) (string, error) {
	return "", domain.ErrNotFound
}
