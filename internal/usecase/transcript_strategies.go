// File: internal/usecase/transcript_strategies.go
package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/domain/ports/adapter"
)

// StrategyConfig carries the transcription policy knobs shared by the
// chain builders.
type StrategyConfig struct {
	// MaxDurationSeconds is the longest video the single-pass audio step
	// will transcribe.
	MaxDurationSeconds int
	// ChunkDurationSeconds sizes the pieces of the long-form variant.
	ChunkDurationSeconds int
}

// DefaultStrategies builds the standard resolution chain used when a job
// completes: scraper field, embedded captions, timedtext lookup, bounded
// audio transcription, then the image/media steps for the non-YouTube
// platforms. Long videos are skipped here.
func DefaultStrategies(captions adapter.CaptionService, speech adapter.SpeechToText, cfg StrategyConfig) []TranscriptStrategy {
	return buildStrategies(captions, speech, cfg, false)
}

// LongFormStrategies is the on-demand variant: identical chain, but the audio
// step chunks videos past the single-pass bound instead of skipping them.
func LongFormStrategies(captions adapter.CaptionService, speech adapter.SpeechToText, cfg StrategyConfig) []TranscriptStrategy {
	return buildStrategies(captions, speech, cfg, true)
}

func buildStrategies(captions adapter.CaptionService, speech adapter.SpeechToText, cfg StrategyConfig, allowLong bool) []TranscriptStrategy {
	return []TranscriptStrategy{
		scraperFieldStrategy{},
		embeddedCaptionsStrategy{captions: captions},
		timedTextStrategy{captions: captions},
		audioTranscriptionStrategy{
			speech:    speech,
			maxSec:    cfg.MaxDurationSeconds,
			chunkSec:  cfg.ChunkDurationSeconds,
			allowLong: allowLong,
		},
		imagePostStrategy{},
		mediaSpeechStrategy{speech: speech},
	}
}

// scraperFieldStrategy settles immediately when the scraper payload already
// carried a transcript.
type scraperFieldStrategy struct{}

func (scraperFieldStrategy) Name() string { return "scraper_field" }

func (scraperFieldStrategy) Applies(model.Platform, *model.ExtractedContent) bool { return true }

func (scraperFieldStrategy) Attempt(_ context.Context, content *model.ExtractedContent, _ string) *model.TranscriptAttempt {
	if content == nil || !content.HasTranscript() {
		return nil
	}
	source := content.TranscriptSource
	if source == "" {
		source = model.TranscriptSourceScraper
	}
	return &model.TranscriptAttempt{Text: content.Transcript, Source: source}
}

// embeddedCaptionsStrategy fetches the best caption track listed in the
// scraped payload. Manually authored tracks win over auto-generated ones,
// and English wins within each group.
type embeddedCaptionsStrategy struct {
	captions adapter.CaptionService
}

func (embeddedCaptionsStrategy) Name() string { return "embedded_captions" }

func (embeddedCaptionsStrategy) Applies(platform model.Platform, content *model.ExtractedContent) bool {
	return platform == model.PlatformYouTube && content != nil && len(content.CaptionTracks) > 0
}

func (s embeddedCaptionsStrategy) Attempt(ctx context.Context, content *model.ExtractedContent, _ string) *model.TranscriptAttempt {
	track := preferTrack(content.CaptionTracks)
	if track.BaseURL == "" {
		return nil
	}
	text, err := s.captions.FetchTrack(ctx, track.BaseURL)
	if err != nil {
		return &model.TranscriptAttempt{Err: fmt.Errorf("caption track %q: %w", track.Language, err)}
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &model.TranscriptAttempt{Text: &text, Source: model.TranscriptSourceCaptions}
}

func preferTrack(tracks []model.CaptionTrack) model.CaptionTrack {
	best := tracks[0]
	score := func(t model.CaptionTrack) int {
		s := 0
		if !t.Auto {
			s += 2
		}
		if strings.HasPrefix(strings.ToLower(t.Language), "en") {
			s++
		}
		return s
	}
	for _, t := range tracks[1:] {
		if score(t) > score(best) {
			best = t
		}
	}
	return best
}

// timedTextStrategy queries the public timedtext endpoint by video id when
// the payload did not list any usable track.
type timedTextStrategy struct {
	captions adapter.CaptionService
}

func (timedTextStrategy) Name() string { return "timedtext" }

func (timedTextStrategy) Applies(platform model.Platform, _ *model.ExtractedContent) bool {
	return platform == model.PlatformYouTube
}

func (s timedTextStrategy) Attempt(ctx context.Context, content *model.ExtractedContent, sourceURL string) *model.TranscriptAttempt {
	videoID := youtubeIDOf(content, sourceURL)
	if videoID == "" {
		return nil
	}
	text, err := s.captions.FetchByVideoID(ctx, videoID)
	if err != nil {
		return &model.TranscriptAttempt{Err: fmt.Errorf("timedtext %s: %w", videoID, err)}
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &model.TranscriptAttempt{Text: &text, Source: model.TranscriptSourceTimedText}
}

func youtubeIDOf(content *model.ExtractedContent, sourceURL string) string {
	if content != nil {
		if v, ok := content.Raw["videoId"].(string); ok && v != "" {
			return v
		}
		if v, ok := content.Raw["id"].(string); ok && len(v) == 11 {
			return v
		}
	}
	return model.YouTubeVideoID(sourceURL)
}

// audioTranscriptionStrategy runs speech-to-text over the downloadable media
// when no caption source worked. Videos past maxSec are skipped unless the
// long-form variant is active, which splits them into chunkSec pieces.
type audioTranscriptionStrategy struct {
	speech    adapter.SpeechToText
	maxSec    int
	chunkSec  int
	allowLong bool
}

func (audioTranscriptionStrategy) Name() string { return "audio_transcription" }

func (audioTranscriptionStrategy) Applies(platform model.Platform, content *model.ExtractedContent) bool {
	return platform == model.PlatformYouTube && content != nil && content.MediaURL() != ""
}

func (s audioTranscriptionStrategy) Attempt(ctx context.Context, content *model.ExtractedContent, _ string) *model.TranscriptAttempt {
	dur := content.DurationSeconds
	if s.maxSec > 0 && dur > s.maxSec {
		if !s.allowLong {
			return nil
		}
		chunks := 1
		if s.chunkSec > 0 {
			chunks = int(math.Ceil(float64(dur) / float64(s.chunkSec)))
		}
		text, err := s.speech.TranscribeLong(ctx, content.MediaURL(), "", chunks)
		if err != nil {
			return &model.TranscriptAttempt{Err: fmt.Errorf("long-form transcription: %w", err)}
		}
		return settledSpeech(text)
	}

	text, err := s.speech.Transcribe(ctx, content.MediaURL(), "")
	if err != nil {
		return &model.TranscriptAttempt{Err: fmt.Errorf("audio transcription: %w", err)}
	}
	return settledSpeech(text)
}

// imagePostStrategy settles image posts with their sentinel before the media
// step can run; an image has nothing to transcribe.
type imagePostStrategy struct{}

func (imagePostStrategy) Name() string { return "image_post" }

func (imagePostStrategy) Applies(platform model.Platform, content *model.ExtractedContent) bool {
	if platform != model.PlatformInstagram && platform != model.PlatformTikTok {
		return false
	}
	return content != nil && content.IsImagePost && content.MediaURL() == ""
}

func (imagePostStrategy) Attempt(context.Context, *model.ExtractedContent, string) *model.TranscriptAttempt {
	text := model.TranscriptSentinelImagePost
	return &model.TranscriptAttempt{Text: &text, Source: model.TranscriptSourceSentinel}
}

// mediaSpeechStrategy transcribes short-form video audio with a contextual
// prompt built from the post caption, which noticeably improves accuracy on
// names and slang.
type mediaSpeechStrategy struct {
	speech adapter.SpeechToText
}

func (mediaSpeechStrategy) Name() string { return "media_speech" }

func (mediaSpeechStrategy) Applies(platform model.Platform, content *model.ExtractedContent) bool {
	if platform != model.PlatformInstagram && platform != model.PlatformTikTok {
		return false
	}
	return content != nil && content.MediaURL() != ""
}

func (s mediaSpeechStrategy) Attempt(ctx context.Context, content *model.ExtractedContent, _ string) *model.TranscriptAttempt {
	text, err := s.speech.Transcribe(ctx, content.MediaURL(), speechPrompt(content))
	if err != nil {
		return &model.TranscriptAttempt{Err: fmt.Errorf("media transcription: %w", err)}
	}
	return settledSpeech(text)
}

func speechPrompt(content *model.ExtractedContent) string {
	var b strings.Builder
	b.WriteString("Short-form social video.")
	caption := content.Description
	if caption == "" {
		caption = content.Title
	}
	if caption != "" {
		b.WriteString(" Caption: ")
		b.WriteString(truncateUTF8(caption, 200))
	}
	if content.Author != "" {
		b.WriteString(" Creator: ")
		b.WriteString(content.Author)
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

func settledSpeech(text string) *model.TranscriptAttempt {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &model.TranscriptAttempt{Text: &text, Source: model.TranscriptSourceSpeech}
}
