// File: internal/usecase/scrape_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/domain/ports/adapter"
	"social-scrape-platform/internal/domain/ports/repository"
	"social-scrape-platform/internal/infra/logging"
	"social-scrape-platform/internal/infra/metrics"
	"social-scrape-platform/internal/infra/redis"
)

// Compile-time check
var _ ScrapeUseCase = (*scrapeUC)(nil)

// ScrapeUseCase drives the scrape job lifecycle: submission, poll-driven
// progression, and on-demand transcript re-resolution.
type ScrapeUseCase interface {
	// CreateScrape validates the url, short-circuits onto an existing active
	// job for the same (owner, project, url), and otherwise dispatches a new
	// one. preferAPI overrides the configured extraction-method preference
	// when non-nil. The bool reports whether an existing job was returned.
	CreateScrape(ctx context.Context, ownerID, projectID, rawURL string, kind model.ScrapeJobKind, preferAPI *bool) (*model.ScrapeJob, bool, error)

	// GetScrapeStatus returns the job's current snapshot, advancing it when
	// the external run has reached a terminal state. Transient upstream
	// errors leave the stored state untouched.
	GetScrapeStatus(ctx context.Context, ownerID, jobID string) (*model.ScrapeJob, error)

	// FetchTranscript returns the stored transcript of a completed job, or
	// re-runs the resolution chain (long-form variant) when it is still
	// unresolved. Re-resolution never touches the credit ledger.
	FetchTranscript(ctx context.Context, ownerID, jobID string) (*string, string, error)
}

// JobLocker is the distributed lock used as a best-effort guard around
// finalization, so concurrent pollers don't all pay for transcription.
// Correctness does not depend on it; the database transaction does that.
type JobLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// SnapshotCache holds terminal job snapshots so repeat polls skip the
// database entirely.
type SnapshotCache interface {
	Get(ctx context.Context, jobID string) (*model.ScrapeJob, error)
	Put(ctx context.Context, job *model.ScrapeJob) error
	Invalidate(ctx context.Context, jobID string) error
}

// SubmitLimiter bounds how fast a single owner may create jobs.
type SubmitLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// AdvisoryLockFunc takes a transaction-scoped lock keyed by a string. The
// Postgres implementation lives in infra/db/postgres.
type AdvisoryLockFunc func(ctx context.Context, tx repository.Tx, key string) error

type ScrapeConfig struct {
	CostPerJob        int64
	PreferPlatformAPI bool
	SubmitRatePerMin  int
	FinalizeLockTTL   time.Duration
}

type scrapeUC struct {
	jobs         repository.ScrapeJobRepository
	ledger       LedgerUseCase
	tm           repository.TransactionManager
	advisoryLock AdvisoryLockFunc

	runner      adapter.ScrapeRunner
	platformAPI adapter.PlatformAPI
	analyzer    adapter.ContentAnalyzer

	resolver     *TranscriptResolver
	longResolver *TranscriptResolver

	locker  JobLocker
	cache   SnapshotCache
	limiter SubmitLimiter

	cfg ScrapeConfig
	log *zerolog.Logger
}

func NewScrapeUseCase(
	jobs repository.ScrapeJobRepository,
	ledger LedgerUseCase,
	tm repository.TransactionManager,
	advisoryLock AdvisoryLockFunc,
	runner adapter.ScrapeRunner,
	platformAPI adapter.PlatformAPI,
	analyzer adapter.ContentAnalyzer,
	resolver *TranscriptResolver,
	longResolver *TranscriptResolver,
	locker JobLocker,
	cache SnapshotCache,
	limiter SubmitLimiter,
	cfg ScrapeConfig,
	log *zerolog.Logger,
) *scrapeUC {
	if cfg.FinalizeLockTTL <= 0 {
		cfg.FinalizeLockTTL = 2 * time.Minute
	}
	return &scrapeUC{
		jobs:         jobs,
		ledger:       ledger,
		tm:           tm,
		advisoryLock: advisoryLock,
		runner:       runner,
		platformAPI:  platformAPI,
		analyzer:     analyzer,
		resolver:     resolver,
		longResolver: longResolver,
		locker:       locker,
		cache:        cache,
		limiter:      limiter,
		cfg:          cfg,
		log:          log,
	}
}

func (u *scrapeUC) CreateScrape(ctx context.Context, ownerID, projectID, rawURL string, kind model.ScrapeJobKind, preferAPI *bool) (*model.ScrapeJob, bool, error) {
	log := logging.With(logging.WithOwnerID(ctx, ownerID), u.log)
	defer logging.TraceDuration(log, "ScrapeUC.CreateScrape")()

	if ownerID == "" || projectID == "" {
		return nil, false, domain.ErrInvalidArgument
	}
	if err := u.checkSubmitRate(ctx, ownerID, log); err != nil {
		return nil, false, err
	}

	platform, err := model.DetectPlatform(rawURL)
	if err != nil {
		return nil, false, err
	}

	existing, err := u.jobs.FindActiveByTarget(ctx, nil, ownerID, projectID, rawURL)
	if err == nil {
		log.Debug().Str("job_id", existing.ID).Msg("duplicate submission, returning active job")
		return existing, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	if _, err := u.ledger.EnsureAccount(ctx, ownerID); err != nil {
		return nil, false, err
	}

	if kind == "" {
		kind = model.ScrapeJobKindStandard
	}
	now := time.Now()
	job := &model.ScrapeJob{
		OwnerID:   ownerID,
		ProjectID: projectID,
		SourceURL: rawURL,
		Platform:  platform,
		Kind:      kind,
		Status:    model.ScrapeJobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := u.dispatch(ctx, job, preferAPI, log); err != nil {
		// A concurrent submission inserted the same target first; hand the
		// caller the surviving job.
		if errors.Is(err, domain.ErrDuplicateActiveJob) {
			winner, findErr := u.jobs.FindActiveByTarget(ctx, nil, ownerID, projectID, rawURL)
			if findErr != nil {
				return nil, false, err
			}
			log.Debug().Str("job_id", winner.ID).Msg("lost submission race, returning active job")
			return winner, true, nil
		}
		return nil, false, err
	}

	metrics.IncScrapeJob(string(job.Platform), string(job.Status))
	log.Info().
		Str("job_id", job.ID).
		Str("platform", string(job.Platform)).
		Str("method", string(job.ExtractionMethod)).
		Str("status", string(job.Status)).
		Msg("scrape job created")
	return job, false, nil
}

// dispatch picks the extraction method, performs the initial external call
// and persists the job in its post-dispatch state. A quota failure on the
// platform API is terminal; any other platform API failure falls back to the
// job runner exactly once.
func (u *scrapeUC) dispatch(ctx context.Context, job *model.ScrapeJob, preferAPI *bool, log *zerolog.Logger) error {
	if job.Kind == model.ScrapeJobKindMock {
		job.ExtractionMethod = model.ExtractionJobRunner
		job.ExternalRunID = "mock"
		job.Status = model.ScrapeJobStatusProcessing
		return u.jobs.Save(ctx, nil, job)
	}

	prefer := u.cfg.PreferPlatformAPI
	if preferAPI != nil {
		prefer = *preferAPI
	}
	usePlatformAPI := prefer &&
		u.platformAPI != nil &&
		u.platformAPI.Supports(job.Platform)

	if !usePlatformAPI {
		job.ExtractionMethod = model.ExtractionJobRunner
		runID, err := u.runner.SubmitJob(ctx, job.SourceURL, job.Platform)
		if err != nil {
			metrics.IncGatewayError("submit")
			job.Status = model.ScrapeJobStatusFailed
			job.ErrorDetail = fmt.Sprintf("dispatch failed: %v", err)
			return u.jobs.Save(ctx, nil, job)
		}
		job.ExternalRunID = runID
		job.Status = model.ScrapeJobStatusProcessing
		return u.jobs.Save(ctx, nil, job)
	}

	job.ExtractionMethod = model.ExtractionPlatformAPI
	content, err := u.platformAPI.FetchContent(ctx, job.SourceURL, job.Platform)
	if err == nil {
		job.Content = content
		job.Status = model.ScrapeJobStatusProcessing
		return u.jobs.Save(ctx, nil, job)
	}

	if errors.Is(err, domain.ErrQuotaExceeded) {
		job.Status = model.ScrapeJobStatusFailed
		job.ErrorDetail = fmt.Sprintf("platform api quota exhausted: %v", err)
		return u.jobs.Save(ctx, nil, job)
	}

	// Persist the failure, then take the one permitted failed -> processing
	// re-entry with the method rewritten to the job runner.
	metrics.IncGatewayError("platform_api")
	job.Status = model.ScrapeJobStatusFailed
	job.ErrorDetail = fmt.Sprintf("platform api failed: %v", err)
	if err := u.jobs.Save(ctx, nil, job); err != nil {
		return err
	}
	log.Warn().Str("job_id", job.ID).Str("detail", job.ErrorDetail).Msg("platform api failed, falling back to job runner")

	runID, err := u.runner.SubmitJob(ctx, job.SourceURL, job.Platform)
	if err != nil {
		metrics.IncGatewayError("submit")
		return nil // stays failed with the recorded detail
	}
	ok, err := u.jobs.UpdateForFallback(ctx, nil, job.ID, model.ExtractionJobRunner, runID)
	if err != nil {
		return err
	}
	if ok {
		job.ExtractionMethod = model.ExtractionJobRunner
		job.ExternalRunID = runID
		job.Status = model.ScrapeJobStatusProcessing
		job.ErrorDetail = ""
	}
	return nil
}

func (u *scrapeUC) checkSubmitRate(ctx context.Context, ownerID string, log *zerolog.Logger) error {
	if u.limiter == nil || u.cfg.SubmitRatePerMin <= 0 {
		return nil
	}
	allowed, err := u.limiter.Allow(ctx, redis.SubmitRateKey(ownerID), u.cfg.SubmitRatePerMin, time.Minute)
	if err != nil {
		// Fail open; rate limiting is protection, not correctness.
		log.Warn().Err(err).Msg("rate limiter unavailable")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}

func (u *scrapeUC) GetScrapeStatus(ctx context.Context, ownerID, jobID string) (*model.ScrapeJob, error) {
	if jobID == "" || ownerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	log := logging.With(logging.WithJobID(logging.WithOwnerID(ctx, ownerID), jobID), u.log)
	defer logging.TraceDuration(log, "ScrapeUC.GetScrapeStatus")()

	if u.cache != nil {
		if snap, err := u.cache.Get(ctx, jobID); err == nil && snap != nil && snap.OwnerID == ownerID {
			return snap, nil
		}
	}

	job, err := u.jobs.FindByID(ctx, nil, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		u.cacheSnapshot(ctx, job)
		return job, nil
	}

	switch {
	case job.Kind == model.ScrapeJobKindMock:
		return u.finalize(ctx, job, mockContent(job.Platform), log)

	case job.ExtractionMethod == model.ExtractionPlatformAPI:
		if job.Content == nil {
			return job, nil
		}
		return u.finalize(ctx, job, job.Content, log)

	default:
		return u.advanceRunnerJob(ctx, job, log)
	}
}

// advanceRunnerJob polls the external run and progresses the job when the
// run is terminal. Poll and fetch errors are treated as transient: the
// snapshot is returned unchanged and the next poll retries.
func (u *scrapeUC) advanceRunnerJob(ctx context.Context, job *model.ScrapeJob, log *zerolog.Logger) (*model.ScrapeJob, error) {
	state, err := u.runner.PollJob(ctx, job.ExternalRunID)
	if err != nil {
		metrics.IncGatewayError("poll")
		log.Debug().Err(err).Msg("poll failed, keeping current state")
		return job, nil
	}

	if !state.Terminal() {
		return job, nil
	}
	if state != adapter.RunStateSucceeded {
		return u.fail(ctx, job, fmt.Sprintf("scraping failed with status: %s", state))
	}

	content, err := u.runner.FetchJobResult(ctx, job.ExternalRunID)
	if err != nil {
		if errors.Is(err, domain.ErrNoContentFound) {
			return u.fail(ctx, job, "run succeeded but returned no content")
		}
		metrics.IncGatewayError("fetch_result")
		log.Debug().Err(err).Msg("result fetch failed, keeping current state")
		return job, nil
	}
	return u.finalize(ctx, job, content, log)
}

// finalize resolves the transcript, charges the owner and completes the job.
// The charge and the completed write commit in one transaction guarded by a
// row lock and an advisory lock, so exactly one finalizer wins and credits
// are deducted at most once per job.
func (u *scrapeUC) finalize(ctx context.Context, job *model.ScrapeJob, content *model.ExtractedContent, log *zerolog.Logger) (*model.ScrapeJob, error) {
	if u.locker != nil {
		token, err := u.locker.TryLock(ctx, redis.JobLockKey(job.ID), u.cfg.FinalizeLockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotAcquired) {
				return job, nil
			}
			log.Debug().Err(err).Msg("finalize lock unavailable, proceeding")
		} else {
			defer func() { _ = u.locker.Unlock(ctx, redis.JobLockKey(job.ID), token) }()
		}
	}

	start := time.Now()
	if attempt := u.resolver.Resolve(ctx, job.Platform, content, job.SourceURL); attempt.Settled() {
		content.Transcript = attempt.Text
		content.TranscriptSource = attempt.Source
	}
	u.annotate(ctx, content, log)

	won := false
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if u.advisoryLock != nil {
			if err := u.advisoryLock(ctx, tx, job.ID); err != nil {
				return err
			}
		}
		current, err := u.jobs.FindByIDForUpdate(ctx, tx, job.ID, job.OwnerID)
		if err != nil {
			return err
		}
		if current.Terminal() {
			return nil // another finalizer won
		}
		if !current.CreditsDeducted {
			op := "scrape_" + string(job.Platform)
			if _, err := u.ledger.ChargeJob(ctx, tx, job.OwnerID, op, u.cfg.CostPerJob); err != nil {
				return err
			}
		}
		ok, err := u.jobs.MarkCompleted(ctx, tx, job.ID, content, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrOperationFailed
		}
		won = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	fresh, err := u.jobs.FindByID(ctx, nil, job.ID, job.OwnerID)
	if err != nil {
		return nil, err
	}
	if won {
		metrics.IncScrapeJob(string(job.Platform), string(fresh.Status))
		metrics.ObserveJobLatency(string(job.Platform), string(job.ExtractionMethod), float64(time.Since(job.CreatedAt).Milliseconds()))
		log.Info().
			Str("source", content.TranscriptSource).
			Dur("finalize_took", time.Since(start)).
			Msg("scrape job completed")
	}
	u.cacheSnapshot(ctx, fresh)
	return fresh, nil
}

// annotate attaches a best-effort content analysis. Failures are logged and
// ignored; analysis never blocks completion.
func (u *scrapeUC) annotate(ctx context.Context, content *model.ExtractedContent, log *zerolog.Logger) {
	if u.analyzer == nil {
		return
	}
	actx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	analysis, err := u.analyzer.Analyze(actx, content)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Debug().Err(err).Msg("content analysis skipped")
		}
		return
	}
	content.Analysis = analysis
}

func (u *scrapeUC) fail(ctx context.Context, job *model.ScrapeJob, detail string) (*model.ScrapeJob, error) {
	ok, err := u.jobs.MarkFailed(ctx, nil, job.ID, detail)
	if err != nil {
		return nil, err
	}
	fresh, err := u.jobs.FindByID(ctx, nil, job.ID, job.OwnerID)
	if err != nil {
		return nil, err
	}
	if ok {
		metrics.IncScrapeJob(string(job.Platform), string(model.ScrapeJobStatusFailed))
	}
	u.cacheSnapshot(ctx, fresh)
	return fresh, nil
}

func (u *scrapeUC) cacheSnapshot(ctx context.Context, job *model.ScrapeJob) {
	if u.cache == nil || !job.Terminal() {
		return
	}
	if err := u.cache.Put(ctx, job); err != nil {
		u.log.Debug().Err(err).Str("job_id", job.ID).Msg("snapshot cache write failed")
	}
}

func (u *scrapeUC) FetchTranscript(ctx context.Context, ownerID, jobID string) (*string, string, error) {
	defer logging.TraceDuration(u.log, "ScrapeUC.FetchTranscript")()

	job, err := u.jobs.FindByID(ctx, nil, jobID, ownerID)
	if err != nil {
		return nil, "", err
	}
	if !job.Terminal() {
		return nil, "", domain.ErrJobNotTerminal
	}
	if job.Status != model.ScrapeJobStatusCompleted || job.Content == nil {
		return nil, "", domain.ErrNoContentFound
	}
	if job.Content.HasTranscript() {
		return job.Content.Transcript, job.Content.TranscriptSource, nil
	}

	attempt := u.longResolver.Resolve(ctx, job.Platform, job.Content, job.SourceURL)
	if !attempt.Settled() {
		return nil, "", nil
	}
	if err := u.jobs.UpdateTranscript(ctx, nil, job.ID, *attempt.Text, attempt.Source); err != nil {
		if errors.Is(err, domain.ErrTranscriptSettled) {
			// A concurrent request won; return what it stored.
			settled, rerr := u.jobs.FindByID(ctx, nil, job.ID, ownerID)
			if rerr != nil {
				return nil, "", rerr
			}
			return settled.Content.Transcript, settled.Content.TranscriptSource, nil
		}
		return nil, "", err
	}
	if u.cache != nil {
		_ = u.cache.Invalidate(ctx, job.ID)
	}
	u.log.Info().
		Str("job_id", job.ID).
		Str("source", attempt.Source).
		Msg("transcript resolved on demand")
	return attempt.Text, attempt.Source, nil
}

// mockContent is the canned payload completed mock jobs carry, used by
// integration environments without live scraping credentials.
func mockContent(platform model.Platform) *model.ExtractedContent {
	transcript := "This is a mock transcript generated for integration testing."
	return &model.ExtractedContent{
		Title:            "Mock post",
		Description:      "Mock content for " + string(platform),
		Author:           "mock-author",
		DurationSeconds:  42,
		Metrics:          model.ContentMetrics{Views: 1000, Likes: 100, Comments: 10},
		Transcript:       &transcript,
		TranscriptSource: model.TranscriptSourceScraper,
		Raw:              map[string]any{"mock": true},
	}
}
