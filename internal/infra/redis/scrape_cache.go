package redis

import (
	"context"
	"encoding/json"
	"time"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
)

// ScrapeCache keeps terminal job snapshots so repeated polling of a
// finished job never touches Postgres. Only terminal jobs are cached;
// anything in flight must always be re-read.
type ScrapeCache struct {
	client *Client
	ttl    time.Duration
}

func NewScrapeCache(client *Client, ttl time.Duration) *ScrapeCache {
	return &ScrapeCache{client: client, ttl: ttl}
}

func snapshotKey(jobID string) string { return "scrape:snapshot:" + jobID }

func (c *ScrapeCache) Get(ctx context.Context, jobID string) (*model.ScrapeJob, error) {
	raw, err := c.client.Get(ctx, snapshotKey(jobID))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var j model.ScrapeJob
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *ScrapeCache) Put(ctx context.Context, job *model.ScrapeJob) error {
	if job == nil || !job.Terminal() {
		return domain.ErrInvalidArgument
	}
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey(job.ID), string(b), c.ttl)
}

// Invalidate drops a cached snapshot, used after a late transcript merge.
func (c *ScrapeCache) Invalidate(ctx context.Context, jobID string) error {
	return c.client.Del(ctx, snapshotKey(jobID))
}
