package adapter

import "context"

// SpeechToText is the port onto an audio transcription backend. The media
// at mediaURL is fetched and transcribed; prompt biases recognition and
// may be empty.
type SpeechToText interface {
	Transcribe(ctx context.Context, mediaURL, prompt string) (string, error)

	// TranscribeLong splits the source into the given number of bounded
	// chunks, transcribes each, and concatenates the results in order.
	TranscribeLong(ctx context.Context, mediaURL, prompt string, chunks int) (string, error)
}

// CaptionService fetches platform-hosted caption tracks.
type CaptionService interface {
	// FetchByVideoID retrieves caption text for a platform video id.
	// Returns domain.ErrNotFound when the video has no fetchable track.
	FetchByVideoID(ctx context.Context, videoID string) (string, error)

	// FetchTrack retrieves and flattens a caption track document by its
	// direct URL (as advertised in scraped caption-track metadata).
	FetchTrack(ctx context.Context, trackURL string) (string, error)
}
