package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"social-scrape-platform/internal/config"
	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ScrapeRunner = (*ApifyRunner)(nil)

// ApifyRunner drives scraping actors on the Apify platform. One actor per
// platform; which actor handles which platform comes from config.
type ApifyRunner struct {
	token   string
	base    string // e.g., https://api.apify.com/v2
	actors  map[string]string
	client  *http.Client
}

func NewApifyRunner(cfg config.ScraperConfig) (*ApifyRunner, error) {
	if cfg.Token == "" {
		return nil, errors.New("apify token empty")
	}
	if len(cfg.Actors) == 0 {
		return nil, errors.New("no scraping actors configured")
	}
	return &ApifyRunner{
		token:  cfg.Token,
		base:   strings.TrimSuffix(cfg.BaseURL, "/"),
		actors: cfg.Actors,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (r *ApifyRunner) SubmitJob(ctx context.Context, sourceURL string, platform model.Platform) (string, error) {
	actorID, ok := r.actors[string(platform)]
	if !ok {
		return "", fmt.Errorf("%w: no actor for %s", domain.ErrUnsupportedPlatform, platform)
	}

	input := buildActorInput(sourceURL, platform)
	body, _ := json.Marshal(input)

	url := fmt.Sprintf("%s/acts/%s/runs?token=%s", r.base, actorID, r.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("start actor run: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Data.ID, nil
}

func (r *ApifyRunner) PollJob(ctx context.Context, runID string) (adapter.RunState, error) {
	data, err := r.runStatus(ctx, runID)
	if err != nil {
		return "", err
	}
	switch data.Status {
	case "SUCCEEDED":
		return adapter.RunStateSucceeded, nil
	case "FAILED":
		return adapter.RunStateFailed, nil
	case "TIMED-OUT", "TIMING-OUT":
		return adapter.RunStateTimedOut, nil
	case "ABORTED", "ABORTING":
		return adapter.RunStateAborted, nil
	default:
		// READY / RUNNING
		return adapter.RunStateRunning, nil
	}
}

func (r *ApifyRunner) FetchJobResult(ctx context.Context, runID string) (*model.ExtractedContent, error) {
	data, err := r.runStatus(ctx, runID)
	if err != nil {
		return nil, err
	}
	if data.DefaultDatasetID == "" {
		return nil, domain.ErrNoContentFound
	}

	url := fmt.Sprintf("%s/datasets/%s/items?token=%s", r.base, data.DefaultDatasetID, r.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch dataset: status %d", resp.StatusCode)
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrNoContentFound
	}
	return normalizeItem(items[0]), nil
}

type runStatusData struct {
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

func (r *ApifyRunner) runStatus(ctx context.Context, runID string) (*runStatusData, error) {
	url := fmt.Sprintf("%s/actor-runs/%s?token=%s", r.base, runID, r.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("poll run: status %d", resp.StatusCode)
	}

	var status struct {
		Data runStatusData `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status.Data, nil
}

func buildActorInput(sourceURL string, platform model.Platform) map[string]any {
	switch platform {
	case model.PlatformYouTube:
		return map[string]any{
			"startUrls":  []map[string]string{{"url": sourceURL}},
			"maxResults": 1,
		}
	case model.PlatformTikTok:
		return map[string]any{
			"postURLs":       []string{sourceURL},
			"resultsPerPage": 1,
		}
	case model.PlatformInstagram:
		return map[string]any{
			"directUrls":   []string{sourceURL},
			"resultsLimit": 1,
		}
	default:
		return map[string]any{"url": sourceURL}
	}
}
