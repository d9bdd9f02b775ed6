//go:build !integration

// File: internal/usecase/transcript_resolver_test.go
package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/usecase"
)

func newResolver(captions *mockCaptions, speech *mockSpeech, longForm bool) *usecase.TranscriptResolver {
	cfg := usecase.StrategyConfig{MaxDurationSeconds: 1200, ChunkDurationSeconds: 600}
	var strategies []usecase.TranscriptStrategy
	if longForm {
		strategies = usecase.LongFormStrategies(captions, speech, cfg)
	} else {
		strategies = usecase.DefaultStrategies(captions, speech, cfg)
	}
	return usecase.NewTranscriptResolver(strategies, 2*time.Second, newTestLogger())
}

func strPtr(s string) *string { return &s }

func TestTranscriptResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	srcURL := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	t.Run("should settle on the scraper field without any fetches", func(t *testing.T) {
		// --- Arrange ---
		captions := &mockCaptions{}
		speech := &mockSpeech{}
		r := newResolver(captions, speech, false)
		content := &model.ExtractedContent{Transcript: strPtr("already here")}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformYouTube, content, srcURL)

		// --- Assert ---
		if !attempt.Settled() || *attempt.Text != "already here" {
			t.Fatalf("expected the stored transcript, got %+v", attempt)
		}
		if attempt.Source != model.TranscriptSourceScraper {
			t.Errorf("expected scraper source, got %q", attempt.Source)
		}
		if captions.trackCalls != 0 || captions.byIDCalls != 0 || speech.transcribeCalls != 0 {
			t.Error("expected no downstream calls once the first step settles")
		}
	})

	t.Run("should prefer a manually authored caption track", func(t *testing.T) {
		// --- Arrange ---
		captions := &mockCaptions{
			FetchTrackFunc: func(_ context.Context, trackURL string) (string, error) {
				if trackURL != "https://captions/manual-en" {
					return "", errors.New("wrong track picked")
				}
				return "caption text", nil
			},
		}
		r := newResolver(captions, &mockSpeech{}, false)
		content := &model.ExtractedContent{
			CaptionTracks: []model.CaptionTrack{
				{Language: "en", BaseURL: "https://captions/auto-en", Auto: true},
				{Language: "en", BaseURL: "https://captions/manual-en", Auto: false},
			},
		}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformYouTube, content, srcURL)

		// --- Assert ---
		if !attempt.Settled() || *attempt.Text != "caption text" {
			t.Fatalf("expected caption text, got %+v", attempt)
		}
		if attempt.Source != model.TranscriptSourceCaptions {
			t.Errorf("expected captions source, got %q", attempt.Source)
		}
	})

	t.Run("should fall through a failing caption fetch to the timedtext lookup", func(t *testing.T) {
		// --- Arrange ---
		captions := &mockCaptions{
			FetchTrackFunc: func(context.Context, string) (string, error) {
				return "", errors.New("track fetch broke")
			},
			FetchByVideoIDFunc: func(_ context.Context, videoID string) (string, error) {
				if videoID != "dQw4w9WgXcQ" {
					return "", errors.New("wrong video id")
				}
				return "timedtext transcript", nil
			},
		}
		r := newResolver(captions, &mockSpeech{}, false)
		content := &model.ExtractedContent{
			CaptionTracks: []model.CaptionTrack{{Language: "en", BaseURL: "https://captions/en"}},
		}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformYouTube, content, srcURL)

		// --- Assert ---
		if !attempt.Settled() || *attempt.Text != "timedtext transcript" {
			t.Fatalf("expected the timedtext transcript, got %+v", attempt)
		}
		if attempt.Source != model.TranscriptSourceTimedText {
			t.Errorf("expected timedtext source, got %q", attempt.Source)
		}
	})

	t.Run("should transcribe audio when no caption source works", func(t *testing.T) {
		// --- Arrange ---
		speech := &mockSpeech{}
		r := newResolver(&mockCaptions{}, speech, false)
		content := &model.ExtractedContent{
			DurationSeconds: 300,
			VideoURL:        "https://cdn/video.mp4",
		}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformYouTube, content, srcURL)

		// --- Assert ---
		if !attempt.Settled() || *attempt.Text != "spoken words" {
			t.Fatalf("expected the speech transcript, got %+v", attempt)
		}
		if speech.longCalls != 0 {
			t.Error("expected the single-pass path for a short video")
		}
	})

	t.Run("should yield the no-captions sentinel for a long video confirmed to have zero tracks", func(t *testing.T) {
		// --- Arrange ---
		speech := &mockSpeech{}
		r := newResolver(&mockCaptions{}, speech, false)
		content := &model.ExtractedContent{
			DurationSeconds: 5400, // past the single-pass bound
			VideoURL:        "https://cdn/video.mp4",
			Raw:             map[string]any{"hasCaptions": false},
		}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformYouTube, content, srcURL)

		// --- Assert ---
		if !attempt.Settled() || *attempt.Text != model.TranscriptSentinelNoCaptions {
			t.Fatalf("expected the no-captions sentinel, got %+v", attempt)
		}
		if attempt.Source != model.TranscriptSourceSentinel {
			t.Errorf("expected sentinel source, got %q", attempt.Source)
		}
		if speech.transcribeCalls != 0 || speech.longCalls != 0 {
			t.Error("expected the long video to be skipped, not transcribed")
		}
	})

	t.Run("should chunk a long video in the long-form variant", func(t *testing.T) {
		// --- Arrange ---
		speech := &mockSpeech{}
		r := newResolver(&mockCaptions{}, speech, true)
		content := &model.ExtractedContent{
			DurationSeconds: 1500, // 600s chunks -> 3 pieces
			VideoURL:        "https://cdn/video.mp4",
		}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformYouTube, content, srcURL)

		// --- Assert ---
		if !attempt.Settled() || *attempt.Text != "long spoken words" {
			t.Fatalf("expected the chunked transcript, got %+v", attempt)
		}
		if speech.longCalls != 1 || speech.lastChunks != 3 {
			t.Errorf("expected one chunked pass with 3 chunks, got %d calls / %d chunks", speech.longCalls, speech.lastChunks)
		}
	})

	t.Run("should settle an image post with its sentinel", func(t *testing.T) {
		// --- Arrange ---
		speech := &mockSpeech{}
		r := newResolver(&mockCaptions{}, speech, false)
		content := &model.ExtractedContent{IsImagePost: true}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformInstagram, content, "https://www.instagram.com/p/abc123/")

		// --- Assert ---
		if !attempt.Settled() || *attempt.Text != model.TranscriptSentinelImagePost {
			t.Fatalf("expected the image sentinel, got %+v", attempt)
		}
		if speech.transcribeCalls != 0 {
			t.Error("expected no transcription attempt for an image post")
		}
	})

	t.Run("should pass a contextual prompt when transcribing short-form media", func(t *testing.T) {
		// --- Arrange ---
		speech := &mockSpeech{}
		r := newResolver(&mockCaptions{}, speech, false)
		content := &model.ExtractedContent{
			Description: "dance challenge",
			Author:      "creator1",
			VideoURL:    "https://cdn/tiktok.mp4",
		}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformTikTok, content, "https://www.tiktok.com/@creator1/video/123")

		// --- Assert ---
		if !attempt.Settled() {
			t.Fatalf("expected a settled attempt, got %+v", attempt)
		}
		if speech.lastPrompt == "" {
			t.Error("expected a contextual prompt to be passed")
		}
	})

	t.Run("should truncate a long caption on a rune boundary in the prompt", func(t *testing.T) {
		// --- Arrange ---
		speech := &mockSpeech{}
		r := newResolver(&mockCaptions{}, speech, false)
		content := &model.ExtractedContent{
			Description: strings.Repeat("日", 100), // 300 bytes, the 200-byte cut lands mid-rune
			VideoURL:    "https://cdn/tiktok.mp4",
		}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformTikTok, content, "https://www.tiktok.com/@creator1/video/123")

		// --- Assert ---
		if !attempt.Settled() {
			t.Fatalf("expected a settled attempt, got %+v", attempt)
		}
		if !utf8.ValidString(speech.lastPrompt) {
			t.Errorf("expected a valid utf-8 prompt, got %q", speech.lastPrompt)
		}
		if len(speech.lastPrompt) == 0 {
			t.Error("expected a non-empty prompt")
		}
	})

	t.Run("should return an unsettled attempt when the chain is exhausted", func(t *testing.T) {
		// --- Arrange ---
		speech := &mockSpeech{
			TranscribeFunc: func(context.Context, string, string) (string, error) {
				return "", errors.New("transcription down")
			},
		}
		r := newResolver(&mockCaptions{}, speech, false)
		content := &model.ExtractedContent{VideoURL: "https://cdn/video.mp4", DurationSeconds: 100}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformYouTube, content, srcURL)

		// --- Assert ---
		if attempt.Settled() {
			t.Fatalf("expected an unsettled attempt, got %+v", attempt)
		}
	})

	t.Run("should contain a panicking adapter instead of propagating it", func(t *testing.T) {
		// --- Arrange ---
		speech := &mockSpeech{
			TranscribeFunc: func(context.Context, string, string) (string, error) {
				panic("adapter bug")
			},
		}
		r := newResolver(&mockCaptions{}, speech, false)
		content := &model.ExtractedContent{VideoURL: "https://cdn/video.mp4", DurationSeconds: 100}

		// --- Act ---
		attempt := r.Resolve(ctx, model.PlatformYouTube, content, srcURL)

		// --- Assert ---
		if attempt.Settled() {
			t.Fatalf("expected an unsettled attempt after the panic, got %+v", attempt)
		}
	})
}
