package adapter

import (
	"context"

	"social-scrape-platform/internal/domain/model"
)

// ContentAnalyzer is the opaque enrichment call. The controller treats it
// as best-effort: a failure is logged, never surfaced, and never changes
// job state.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, content *model.ExtractedContent) (string, error)
}
