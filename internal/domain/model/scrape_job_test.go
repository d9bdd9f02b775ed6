//go:build !integration

// File: internal/domain/model/scrape_job_test.go
package model

import (
	"errors"
	"testing"

	"social-scrape-platform/internal/domain"
)

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		want    Platform
		wantErr error
	}{
		{"youtube watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", PlatformYouTube, nil},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", PlatformYouTube, nil},
		{"youtube shorts", "https://www.youtube.com/shorts/abc12345678", PlatformYouTube, nil},
		{"mobile youtube", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", PlatformYouTube, nil},
		{"instagram post", "https://www.instagram.com/p/Cabc123xyz/", PlatformInstagram, nil},
		{"instagram reel", "https://instagram.com/reel/Cabc123xyz/", PlatformInstagram, nil},
		{"tiktok video", "https://www.tiktok.com/@creator/video/7000000000000000001", PlatformTikTok, nil},
		{"unsupported host", "https://vimeo.com/12345", "", domain.ErrUnsupportedPlatform},
		{"not a url", "not a url at all", "", domain.ErrInvalidURL},
		{"missing scheme", "www.youtube.com/watch?v=x", "", domain.ErrInvalidURL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectPlatform(tc.url)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestYouTubeVideoID(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts path", "https://www.youtube.com/shorts/abc12345678", "abc12345678"},
		{"embed path", "https://www.youtube.com/embed/abc12345678", "abc12345678"},
		{"live path", "https://www.youtube.com/live/abc12345678", "abc12345678"},
		{"watch url with extras", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"no id", "https://www.youtube.com/feed/subscriptions", ""},
		{"garbage", "::::", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := YouTubeVideoID(tc.url); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestScrapeJob_Terminal(t *testing.T) {
	for status, want := range map[ScrapeJobStatus]bool{
		ScrapeJobStatusPending:    false,
		ScrapeJobStatusProcessing: false,
		ScrapeJobStatusCompleted:  true,
		ScrapeJobStatusFailed:     true,
	} {
		j := ScrapeJob{Status: status}
		if j.Terminal() != want {
			t.Errorf("Terminal() for %s: expected %v", status, want)
		}
	}
}
