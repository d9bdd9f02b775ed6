package model

import (
	"net/url"
	"strings"
	"time"

	"social-scrape-platform/internal/domain"
)

type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

type ExtractionMethod string

const (
	// ExtractionPlatformAPI is the free, quota-limited first-party path.
	ExtractionPlatformAPI ExtractionMethod = "platform-api"
	// ExtractionJobRunner is the external asynchronous scraping runner.
	ExtractionJobRunner ExtractionMethod = "job-runner"
)

type ScrapeJobStatus string

const (
	ScrapeJobStatusPending    ScrapeJobStatus = "pending"
	ScrapeJobStatusProcessing ScrapeJobStatus = "processing"
	ScrapeJobStatusCompleted  ScrapeJobStatus = "completed"
	ScrapeJobStatusFailed     ScrapeJobStatus = "failed"
)

// ScrapeJobKind distinguishes real scrapes from canned ones used by demos
// and tests. Behavior is switched on this tag, never on the shape of an id.
type ScrapeJobKind string

const (
	ScrapeJobKindStandard ScrapeJobKind = "standard"
	ScrapeJobKindMock     ScrapeJobKind = "mock"
)

// ScrapeJob is one (owner, project, url) submission tracked from dispatch
// to terminal state. Once completed or failed it is immutable, except the
// single failed->processing re-entry used by the platform-api fallback.
type ScrapeJob struct {
	ID               string
	OwnerID          string
	ProjectID        string
	SourceURL        string
	Platform         Platform
	Kind             ScrapeJobKind
	ExtractionMethod ExtractionMethod
	Status           ScrapeJobStatus
	ExternalRunID    string // runner handle, only set when ExtractionMethod is job-runner
	Content          *ExtractedContent
	ErrorDetail      string
	CreditsDeducted  bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// Terminal reports whether the job reached a final state.
func (j *ScrapeJob) Terminal() bool {
	return j.Status == ScrapeJobStatusCompleted || j.Status == ScrapeJobStatusFailed
}

// DetectPlatform maps a content URL onto a supported platform.
func DetectPlatform(rawURL string) (Platform, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", domain.ErrInvalidURL
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	switch {
	case strings.HasSuffix(host, "youtube.com") || host == "youtu.be":
		return PlatformYouTube, nil
	case strings.HasSuffix(host, "instagram.com"):
		return PlatformInstagram, nil
	case strings.HasSuffix(host, "tiktok.com"):
		return PlatformTikTok, nil
	}
	return "", domain.ErrUnsupportedPlatform
}

// YouTubeVideoID pulls the video id out of the usual YouTube URL shapes
// (watch?v=, youtu.be/, shorts/, embed/). Empty string when none found.
func YouTubeVideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}
	if !strings.HasSuffix(host, "youtube.com") {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
		if strings.HasPrefix(u.Path, prefix) {
			rest := strings.TrimPrefix(u.Path, prefix)
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i]
			}
			return rest
		}
	}
	return ""
}
