// File: internal/infra/adapters/transcription/noop.go
package transcription

import (
	"context"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.SpeechToText = NoopSpeech{}

// NoopSpeech stands in when no transcription key is configured. Every call
// fails, which lets the resolution chain fall through to its other steps.
type NoopSpeech struct{}

func (NoopSpeech) Transcribe(context.Context, string, string) (string, error) {
	return "", domain.ErrNotFound
}

func (NoopSpeech) TranscribeLong(context.Context, string, string, int) (string, error) {
	return "", domain.ErrNotFound
}
