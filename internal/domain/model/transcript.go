package model

// Sentinel transcripts mark "deliberately no transcript exists". They are
// distinct from a nil transcript, which means unresolved and retryable.
const (
	TranscriptSentinelNoCaptions = "[Transcript not available - this video has no captions]"
	TranscriptSentinelImagePost  = "[No transcript - this is an image post]"
)

// Transcript sources, recorded next to the text so callers can tell where
// a transcript came from.
const (
	TranscriptSourceScraper   = "scraper"
	TranscriptSourceCaptions  = "captions"
	TranscriptSourceTimedText = "timedtext"
	TranscriptSourceSpeech    = "speech-to-text"
	TranscriptSourceSentinel  = "sentinel"
)

// TranscriptAttempt is the outcome of a single resolution strategy. It is
// ephemeral: the chain inspects it to decide whether to continue, nothing
// persists it.
type TranscriptAttempt struct {
	Text   *string
	Source string
	Err    error
}

// Settled reports whether the attempt produced a usable result (real text
// or sentinel) that should short-circuit the chain.
func (a *TranscriptAttempt) Settled() bool {
	return a != nil && a.Text != nil && *a.Text != ""
}

// IsSentinelTranscript reports whether s is one of the fixed placeholder
// strings rather than real transcript text.
func IsSentinelTranscript(s string) bool {
	return s == TranscriptSentinelNoCaptions || s == TranscriptSentinelImagePost
}
