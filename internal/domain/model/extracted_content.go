package model

import "time"

// ContentMetrics is the normalized engagement counters every platform
// reports in some form. Absent values stay zero.
type ContentMetrics struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// CaptionTrack describes one caption track advertised in the raw platform
// payload (YouTube). BaseURL points at the track document when the scraper
// exposed it.
type CaptionTrack struct {
	Language string `json:"language"`
	BaseURL  string `json:"base_url"`
	Auto     bool   `json:"auto"`
}

// ExtractedContent is the normalized bag produced by either extraction
// path. Raw keeps the untouched provider payload for diagnostics and for
// transcript strategies that dig into platform-specific fields.
type ExtractedContent struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Author           string         `json:"author"`
	DurationSeconds  int            `json:"duration_seconds"`
	UploadedAt       *time.Time     `json:"uploaded_at,omitempty"`
	Metrics          ContentMetrics `json:"metrics"`
	ThumbnailURL     string         `json:"thumbnail_url"`
	VideoURL         string         `json:"video_url"`
	AudioURL         string         `json:"audio_url"`
	Hashtags         []string       `json:"hashtags,omitempty"`
	CaptionTracks    []CaptionTrack `json:"caption_tracks,omitempty"`
	IsImagePost      bool           `json:"is_image_post"`
	Transcript       *string        `json:"transcript,omitempty"`
	TranscriptSource string         `json:"transcript_source,omitempty"`
	Analysis         string         `json:"analysis,omitempty"`
	Raw              map[string]any `json:"raw,omitempty"`
}

// MediaURL returns the best direct media location for speech-to-text,
// preferring audio over video.
func (c *ExtractedContent) MediaURL() string {
	if c.AudioURL != "" {
		return c.AudioURL
	}
	return c.VideoURL
}

// HasTranscript reports whether the content already carries transcript
// text, sentinel or real.
func (c *ExtractedContent) HasTranscript() bool {
	return c.Transcript != nil && *c.Transcript != ""
}
