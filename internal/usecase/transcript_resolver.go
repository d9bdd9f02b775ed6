// File: internal/usecase/transcript_resolver.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/infra/metrics"
)

// TranscriptStrategy is one step of the resolution chain. Attempt returns a
// settled result (text or sentinel), or an unsettled one carrying the error
// that made this step give way to the next.
type TranscriptStrategy interface {
	Name() string
	Applies(platform model.Platform, content *model.ExtractedContent) bool
	Attempt(ctx context.Context, content *model.ExtractedContent, sourceURL string) *model.TranscriptAttempt
}

// TranscriptResolver walks its strategies in order and stops at the first
// settled attempt. It never returns an error: a fully exhausted chain yields
// either a platform sentinel or a nil transcript, which callers persist as-is
// so a later on-demand request can try again.
type TranscriptResolver struct {
	strategies      []TranscriptStrategy
	strategyTimeout time.Duration
	log             *zerolog.Logger
}

func NewTranscriptResolver(strategies []TranscriptStrategy, strategyTimeout time.Duration, log *zerolog.Logger) *TranscriptResolver {
	if strategyTimeout <= 0 {
		strategyTimeout = 15 * time.Second
	}
	return &TranscriptResolver{strategies: strategies, strategyTimeout: strategyTimeout, log: log}
}

// Resolve runs the chain for the given content. The returned attempt is
// settled when a transcript or sentinel was found; otherwise Text is nil and
// Source is empty.
func (r *TranscriptResolver) Resolve(ctx context.Context, platform model.Platform, content *model.ExtractedContent, sourceURL string) model.TranscriptAttempt {
	for _, s := range r.strategies {
		if !s.Applies(platform, content) {
			continue
		}

		attempt := r.runStrategy(ctx, s, content, sourceURL)
		if attempt == nil {
			continue
		}
		if attempt.Err != nil {
			metrics.IncTranscriptStrategyFailure(s.Name())
			r.log.Debug().
				Str("strategy", s.Name()).
				Str("platform", string(platform)).
				Err(attempt.Err).
				Msg("transcript strategy failed, falling through")
			continue
		}
		if attempt.Settled() {
			metrics.IncTranscriptResolution(string(platform), attempt.Source)
			return *attempt
		}
	}

	if platform == model.PlatformYouTube && confirmedNoCaptions(content) {
		text := model.TranscriptSentinelNoCaptions
		metrics.IncTranscriptResolution(string(platform), model.TranscriptSourceSentinel)
		return model.TranscriptAttempt{Text: &text, Source: model.TranscriptSourceSentinel}
	}

	return model.TranscriptAttempt{}
}

// runStrategy bounds a single step with the per-strategy timeout and converts
// a panic inside an adapter into a failed attempt.
func (r *TranscriptResolver) runStrategy(ctx context.Context, s TranscriptStrategy, content *model.ExtractedContent, sourceURL string) (attempt *model.TranscriptAttempt) {
	sctx, cancel := context.WithTimeout(ctx, r.strategyTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			attempt = &model.TranscriptAttempt{Err: fmt.Errorf("strategy %s panicked: %v", s.Name(), rec)}
		}
	}()
	return s.Attempt(sctx, content, sourceURL)
}

// confirmedNoCaptions reports whether the source is known to carry zero
// caption tracks, as opposed to the chain merely failing to fetch them. The
// platform API records an explicit hasCaptions flag; scraper payloads confirm
// it by listing an empty track set.
func confirmedNoCaptions(content *model.ExtractedContent) bool {
	if content == nil {
		return false
	}
	if v, ok := content.Raw["hasCaptions"]; ok {
		if has, ok := v.(bool); ok {
			return !has
		}
	}
	if _, listed := content.Raw["captions"]; listed && len(content.CaptionTracks) == 0 {
		return true
	}
	if _, listed := content.Raw["captionTracks"]; listed && len(content.CaptionTracks) == 0 {
		return true
	}
	return false
}
