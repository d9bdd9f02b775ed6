//go:build !integration

// File: internal/infra/redis/redis_test.go
package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	c := NewClientFromAddr(mr.Addr())
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("should grant the lock to exactly one caller", func(t *testing.T) {
		_, c := newTestClient(t)
		locker := NewLocker(c)

		token, err := locker.TryLock(ctx, JobLockKey("job-1"), time.Minute)
		if err != nil {
			t.Fatalf("expected the first lock to succeed, got %v", err)
		}
		if token == "" {
			t.Fatal("expected a fencing token")
		}
		if _, err := locker.TryLock(ctx, JobLockKey("job-1"), time.Minute); !errors.Is(err, domain.ErrLockNotAcquired) {
			t.Fatalf("expected ErrLockNotAcquired, got %v", err)
		}
	})

	t.Run("should release only with the matching token", func(t *testing.T) {
		_, c := newTestClient(t)
		locker := NewLocker(c)
		token, err := locker.TryLock(ctx, JobLockKey("job-1"), time.Minute)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}

		if err := locker.Unlock(ctx, JobLockKey("job-1"), "someone-elses-token"); err != nil {
			t.Fatalf("unlock with a stale token should be a no-op, got %v", err)
		}
		if _, err := locker.TryLock(ctx, JobLockKey("job-1"), time.Minute); !errors.Is(err, domain.ErrLockNotAcquired) {
			t.Fatal("expected the lock still held after the stale unlock")
		}

		if err := locker.Unlock(ctx, JobLockKey("job-1"), token); err != nil {
			t.Fatalf("unlock: %v", err)
		}
		if _, err := locker.TryLock(ctx, JobLockKey("job-1"), time.Minute); err != nil {
			t.Fatalf("expected the lock free after unlock, got %v", err)
		}
	})

	t.Run("should free the lock when the ttl expires", func(t *testing.T) {
		mr, c := newTestClient(t)
		locker := NewLocker(c)
		if _, err := locker.TryLock(ctx, JobLockKey("job-1"), time.Second); err != nil {
			t.Fatalf("setup: %v", err)
		}

		mr.FastForward(2 * time.Second)

		if _, err := locker.TryLock(ctx, JobLockKey("job-1"), time.Second); err != nil {
			t.Fatalf("expected the lock free after expiry, got %v", err)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("should allow up to the limit within one window", func(t *testing.T) {
		_, c := newTestClient(t)
		rl := NewRateLimiter(c)
		key := SubmitRateKey("owner-1")

		for i := 0; i < 3; i++ {
			ok, err := rl.Allow(ctx, key, 3, time.Minute)
			if err != nil {
				t.Fatalf("allow %d: %v", i, err)
			}
			if !ok {
				t.Fatalf("expected request %d allowed", i)
			}
		}
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if ok {
			t.Error("expected the fourth request rejected")
		}
	})

	t.Run("should reset after the window rolls over", func(t *testing.T) {
		mr, c := newTestClient(t)
		rl := NewRateLimiter(c)
		key := SubmitRateKey("owner-1")

		if _, err := rl.Allow(ctx, key, 1, time.Second); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if ok, _ := rl.Allow(ctx, key, 1, time.Second); ok {
			t.Fatal("expected the second request rejected")
		}

		mr.FastForward(2 * time.Second)

		if ok, err := rl.Allow(ctx, key, 1, time.Second); err != nil || !ok {
			t.Fatalf("expected a fresh window, got ok=%v err=%v", ok, err)
		}
	})
}

func TestScrapeCache(t *testing.T) {
	ctx := context.Background()

	terminalJob := func() *model.ScrapeJob {
		now := time.Now()
		tr := "words"
		return &model.ScrapeJob{
			ID:          "job-1",
			OwnerID:     "owner-1",
			Status:      model.ScrapeJobStatusCompleted,
			Platform:    model.PlatformYouTube,
			CompletedAt: &now,
			Content:     &model.ExtractedContent{Title: "clip", Transcript: &tr},
		}
	}

	t.Run("should round-trip a terminal snapshot", func(t *testing.T) {
		_, c := newTestClient(t)
		cache := NewScrapeCache(c, time.Minute)
		if err := cache.Put(ctx, terminalJob()); err != nil {
			t.Fatalf("put: %v", err)
		}

		got, err := cache.Get(ctx, "job-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ID != "job-1" || got.Status != model.ScrapeJobStatusCompleted {
			t.Errorf("unexpected snapshot: %+v", got)
		}
		if got.Content == nil || got.Content.Transcript == nil || *got.Content.Transcript != "words" {
			t.Errorf("expected the payload preserved, got %+v", got.Content)
		}
	})

	t.Run("should refuse to cache a non-terminal job", func(t *testing.T) {
		_, c := newTestClient(t)
		cache := NewScrapeCache(c, time.Minute)
		job := terminalJob()
		job.Status = model.ScrapeJobStatusProcessing

		if err := cache.Put(ctx, job); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should miss after invalidation", func(t *testing.T) {
		_, c := newTestClient(t)
		cache := NewScrapeCache(c, time.Minute)
		if err := cache.Put(ctx, terminalJob()); err != nil {
			t.Fatalf("setup: %v", err)
		}

		if err := cache.Invalidate(ctx, "job-1"); err != nil {
			t.Fatalf("invalidate: %v", err)
		}
		if _, err := cache.Get(ctx, "job-1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
