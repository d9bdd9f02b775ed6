package transcription

import (
	"context"

	"social-scrape-platform/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.SpeechToText = (*limitedSpeech)(nil)

type limitedSpeech struct {
	inner adapter.SpeechToText
	sem   chan struct{}
}

// NewLimitedSpeech bounds the number of concurrent speech-to-text calls so
// a burst of finalizing jobs cannot saturate the transcription backend.
func NewLimitedSpeech(inner adapter.SpeechToText, maxConcurrent int) adapter.SpeechToText {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedSpeech{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedSpeech) Transcribe(ctx context.Context, mediaURL, prompt string) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Transcribe(ctx, mediaURL, prompt)
}

func (l *limitedSpeech) TranscribeLong(ctx context.Context, mediaURL, prompt string, chunks int) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.TranscribeLong(ctx, mediaURL, prompt, chunks)
}
