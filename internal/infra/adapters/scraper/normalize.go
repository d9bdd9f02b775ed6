package scraper

import (
	"time"

	"social-scrape-platform/internal/domain/model"
)

// normalizeItem flattens one raw dataset item into the shared content bag.
// Actors disagree on field names, so each normalized field is picked from
// a candidate list; the raw item is preserved for the transcript chain.
func normalizeItem(item map[string]any) *model.ExtractedContent {
	c := &model.ExtractedContent{Raw: item}

	c.Title = pickString(item, "title", "fullTitle")
	c.Description = pickString(item, "description", "text", "caption")
	c.Author = pickString(item, "channelName", "authorMeta.name", "ownerUsername", "author")
	c.ThumbnailURL = pickString(item, "thumbnailUrl", "displayUrl", "covers.default")
	c.VideoURL = pickString(item, "videoUrl", "video_url", "downloadUrl", "download_url", "videoPlayUrl", "mediaUrls.0")
	c.AudioURL = pickString(item, "audioUrl", "musicMeta.playUrl")
	c.DurationSeconds = int(pickNumber(item, "duration", "videoDuration", "lengthSeconds"))

	c.Metrics = model.ContentMetrics{
		Views:    int64(pickNumber(item, "viewCount", "playCount", "videoViewCount", "views")),
		Likes:    int64(pickNumber(item, "likeCount", "diggCount", "likesCount", "likes")),
		Comments: int64(pickNumber(item, "commentCount", "commentsCount", "comments")),
		Shares:   int64(pickNumber(item, "shareCount", "sharesCount", "shares")),
	}

	if s := pickString(item, "uploadDate", "timestamp", "createTimeISO"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			c.UploadedAt = &t
		}
	}

	if tags, ok := item["hashtags"].([]any); ok {
		for _, t := range tags {
			switch v := t.(type) {
			case string:
				c.Hashtags = append(c.Hashtags, v)
			case map[string]any:
				if name, ok := v["name"].(string); ok {
					c.Hashtags = append(c.Hashtags, name)
				}
			}
		}
	}

	// A transcript produced by the scraper itself wins over everything the
	// resolution chain could do later.
	if txt := pickString(item, "transcript", "subtitles", "captionsText"); txt != "" {
		c.Transcript = &txt
		c.TranscriptSource = model.TranscriptSourceScraper
	}

	c.CaptionTracks = captionTracks(item)

	postType := pickString(item, "type", "postType", "productType")
	c.IsImagePost = postType == "Image" || postType == "Sidecar" ||
		(postType == "" && c.VideoURL == "" && c.ThumbnailURL != "" && c.DurationSeconds == 0)

	return c
}

// captionTracks digs the advertised caption-track list out of a YouTube
// actor item.
func captionTracks(item map[string]any) []model.CaptionTrack {
	raw, ok := item["captions"].([]any)
	if !ok {
		if nested, ok := item["captionTracks"].([]any); ok {
			raw = nested
		} else {
			return nil
		}
	}
	var out []model.CaptionTrack
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		t := model.CaptionTrack{
			Language: pickString(m, "languageCode", "language"),
			BaseURL:  pickString(m, "baseUrl", "url"),
		}
		if kind, ok := m["kind"].(string); ok && kind == "asr" {
			t.Auto = true
		}
		if t.BaseURL != "" {
			out = append(out, t)
		}
	}
	return out
}

// pickString walks candidate keys, supporting one level of "a.b" nesting
// and "list.0" indexing.
func pickString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := lookup(item, key); v != nil {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func pickNumber(item map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if v := lookup(item, key); v != nil {
			if f, ok := v.(float64); ok {
				return f
			}
		}
	}
	return 0
}

func lookup(item map[string]any, key string) any {
	for i := 0; i < len(key); i++ {
		if key[i] != '.' {
			continue
		}
		head, rest := key[:i], key[i+1:]
		switch v := item[head].(type) {
		case map[string]any:
			return lookup(v, rest)
		case []any:
			if rest == "0" && len(v) > 0 {
				return v[0]
			}
		}
		return nil
	}
	return item[key]
}
