package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/domain/ports/adapter"
)

var _ adapter.PlatformAPI = (*YouTubeDataAPI)(nil)

// YouTubeDataAPI implements the free, quota-limited extraction path using
// the YouTube Data API v3. Quota exhaustion and key problems both surface
// as 403s, which map to domain.ErrQuotaExceeded so the controller fails
// the job instead of burning more quota on retries.
type YouTubeDataAPI struct {
	apiKey string
	base   string
	client *http.Client
}

func NewYouTubeDataAPI(apiKey string) (*YouTubeDataAPI, error) {
	if apiKey == "" {
		return nil, errors.New("youtube api key empty")
	}
	return &YouTubeDataAPI{
		apiKey: apiKey,
		base:   "https://www.googleapis.com/youtube/v3",
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (y *YouTubeDataAPI) Supports(platform model.Platform) bool {
	return platform == model.PlatformYouTube
}

func (y *YouTubeDataAPI) FetchContent(ctx context.Context, sourceURL string, platform model.Platform) (*model.ExtractedContent, error) {
	if platform != model.PlatformYouTube {
		return nil, domain.ErrUnsupportedPlatform
	}
	videoID := model.YouTubeVideoID(sourceURL)
	if videoID == "" {
		return nil, domain.ErrInvalidURL
	}

	q := url.Values{}
	q.Set("id", videoID)
	q.Set("part", "snippet,contentDetails,statistics")
	q.Set("key", y.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.base+"/videos?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: youtube api returned %d", domain.ErrQuotaExceeded, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("youtube api: status %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			Snippet struct {
				Title        string   `json:"title"`
				Description  string   `json:"description"`
				ChannelTitle string   `json:"channelTitle"`
				PublishedAt  string   `json:"publishedAt"`
				Tags         []string `json:"tags"`
				Thumbnails   struct {
					High struct {
						URL string `json:"url"`
					} `json:"high"`
				} `json:"thumbnails"`
			} `json:"snippet"`
			ContentDetails struct {
				Duration string `json:"duration"`
				Caption  string `json:"caption"` // "true" | "false"
			} `json:"contentDetails"`
			Statistics struct {
				ViewCount    string `json:"viewCount"`
				LikeCount    string `json:"likeCount"`
				CommentCount string `json:"commentCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Items) == 0 {
		return nil, domain.ErrNoContentFound
	}

	item := payload.Items[0]
	c := &model.ExtractedContent{
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		Author:          item.Snippet.ChannelTitle,
		ThumbnailURL:    item.Snippet.Thumbnails.High.URL,
		Hashtags:        item.Snippet.Tags,
		DurationSeconds: parseISODuration(item.ContentDetails.Duration),
		Metrics: model.ContentMetrics{
			Views:    parseCount(item.Statistics.ViewCount),
			Likes:    parseCount(item.Statistics.LikeCount),
			Comments: parseCount(item.Statistics.CommentCount),
		},
		Raw: map[string]any{
			"videoId":     videoID,
			"hasCaptions": item.ContentDetails.Caption == "true",
		},
	}
	if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		c.UploadedAt = &t
	}
	return c, nil
}

// parseISODuration handles the PT#H#M#S shapes the API emits.
func parseISODuration(s string) int {
	var total, cur int
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= '0' && ch <= '9':
			cur = cur*10 + int(ch-'0')
		case ch == 'H':
			total, cur = total+cur*3600, 0
		case ch == 'M':
			total, cur = total+cur*60, 0
		case ch == 'S':
			total, cur = total+cur, 0
		default:
			cur = 0
		}
	}
	return total
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
