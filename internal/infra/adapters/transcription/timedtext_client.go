package transcription

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/ports/adapter"
)

var _ adapter.CaptionService = (*TimedTextClient)(nil)

// TimedTextClient fetches YouTube caption tracks from the public timedtext
// endpoint. No API key and no quota, but tracks only exist for videos with
// captions enabled.
type TimedTextClient struct {
	base   string
	client *http.Client
}

func NewTimedTextClient() *TimedTextClient {
	return &TimedTextClient{
		base:   "https://video.google.com/timedtext",
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *TimedTextClient) FetchByVideoID(ctx context.Context, videoID string) (string, error) {
	// English first, then whatever the default track is.
	for _, lang := range []string{"en", ""} {
		q := url.Values{}
		q.Set("v", videoID)
		if lang != "" {
			q.Set("lang", lang)
		}
		text, err := t.fetch(ctx, t.base+"?"+q.Encode())
		if err == nil && text != "" {
			return text, nil
		}
	}
	return "", domain.ErrNotFound
}

func (t *TimedTextClient) FetchTrack(ctx context.Context, trackURL string) (string, error) {
	text, err := t.fetch(ctx, trackURL)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", domain.ErrNotFound
	}
	return text, nil
}

func (t *TimedTextClient) fetch(ctx context.Context, captionURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("timedtext: status %d", resp.StatusCode)
	}

	var doc struct {
		Texts []struct {
			Value string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, line := range doc.Texts {
		s := strings.TrimSpace(html.UnescapeString(line.Value))
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
