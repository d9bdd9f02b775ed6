//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/domain/ports/adapter"
	"social-scrape-platform/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func noAdvisoryLock(context.Context, repository.Tx, string) error { return nil }

// memScrapeJobRepo is a small in-memory implementation used by unit tests.
// The conditional mutators replicate the guarded SQL updates of the real
// repository so lifecycle tests exercise the same transition rules.
type memScrapeJobRepo struct {
	mu      sync.Mutex
	store   map[string]*model.ScrapeJob
	seq     int
	saveErr error // used by tests to simulate save failures
}

func newMemScrapeJobRepo() *memScrapeJobRepo {
	return &memScrapeJobRepo{store: make(map[string]*model.ScrapeJob)}
}

func (m *memScrapeJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.ScrapeJob) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		// First insert of an active target hits the partial unique index.
		if !job.Terminal() {
			for _, j := range m.store {
				if j.OwnerID == job.OwnerID && j.ProjectID == job.ProjectID && j.SourceURL == job.SourceURL && !j.Terminal() {
					return domain.ErrDuplicateActiveJob
				}
			}
		}
		m.seq++
		job.ID = fmt.Sprintf("job-%d", m.seq)
	}
	cp := *job
	m.store[job.ID] = &cp
	return nil
}

func (m *memScrapeJobRepo) FindByID(ctx context.Context, tx repository.Tx, id, ownerID string) (*model.ScrapeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(id, ownerID)
}

func (m *memScrapeJobRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id, ownerID string) (*model.ScrapeJob, error) {
	return m.FindByID(ctx, tx, id, ownerID)
}

func (m *memScrapeJobRepo) findLocked(id, ownerID string) (*model.ScrapeJob, error) {
	j, ok := m.store[id]
	if !ok || j.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memScrapeJobRepo) FindActiveByTarget(ctx context.Context, tx repository.Tx, ownerID, projectID, sourceURL string) (*model.ScrapeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.store {
		if j.OwnerID == ownerID && j.ProjectID == projectID && j.SourceURL == sourceURL && !j.Terminal() {
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memScrapeJobRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id string, content *model.ExtractedContent, completedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.Status != model.ScrapeJobStatusProcessing {
		return false, nil
	}
	j.Status = model.ScrapeJobStatusCompleted
	j.Content = content
	j.CreditsDeducted = true
	j.CompletedAt = &completedAt
	j.UpdatedAt = completedAt
	return true, nil
}

func (m *memScrapeJobRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, errorDetail string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.Terminal() {
		return false, nil
	}
	j.Status = model.ScrapeJobStatusFailed
	j.ErrorDetail = errorDetail
	j.UpdatedAt = time.Now()
	return true, nil
}

func (m *memScrapeJobRepo) UpdateForFallback(ctx context.Context, tx repository.Tx, id string, method model.ExtractionMethod, runID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.Status != model.ScrapeJobStatusFailed || j.CreditsDeducted {
		return false, nil
	}
	j.Status = model.ScrapeJobStatusProcessing
	j.ExtractionMethod = method
	j.ExternalRunID = runID
	j.ErrorDetail = ""
	j.UpdatedAt = time.Now()
	return true, nil
}

func (m *memScrapeJobRepo) UpdateTranscript(ctx context.Context, tx repository.Tx, id, text, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok || j.Content == nil {
		return domain.ErrNotFound
	}
	if j.Content.Transcript != nil {
		return domain.ErrTranscriptSettled
	}
	j.Content.Transcript = &text
	j.Content.TranscriptSource = source
	j.UpdatedAt = time.Now()
	return nil
}

// memCreditRepo is an in-memory CreditAccountRepository.
type memCreditRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.CreditAccount
	usage    map[string]*model.UsagePeriod // keyed ownerID|period
	saveErr  error
}

func newMemCreditRepo() *memCreditRepo {
	return &memCreditRepo{
		accounts: make(map[string]*model.CreditAccount),
		usage:    make(map[string]*model.UsagePeriod),
	}
}

func (m *memCreditRepo) FindByOwner(ctx context.Context, tx repository.Tx, ownerID string) (*model.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *memCreditRepo) FindByOwnerForUpdate(ctx context.Context, tx repository.Tx, ownerID string) (*model.CreditAccount, error) {
	return m.FindByOwner(ctx, tx, ownerID)
}

func (m *memCreditRepo) Save(ctx context.Context, tx repository.Tx, acc *model.CreditAccount) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *acc
	m.accounts[acc.OwnerID] = &cp
	return nil
}

func (m *memCreditRepo) RecordUsage(ctx context.Context, tx repository.Tx, ownerID, period, operation string, used model.ChargeBreakdown) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ownerID + "|" + period
	u, ok := m.usage[key]
	if !ok {
		u = &model.UsagePeriod{OwnerID: ownerID, Period: period, ByOperation: make(map[string]int64)}
		m.usage[key] = u
	}
	total := used.PromotionalUsed + used.AllocationUsed
	u.PromotionalUsed += used.PromotionalUsed
	u.AllocationUsed += used.AllocationUsed
	u.TotalUsed += total
	u.ByOperation[operation] += total
	u.UpdatedAt = time.Now()
	return nil
}

func (m *memCreditRepo) FindUsage(ctx context.Context, tx repository.Tx, ownerID, period string) (*model.UsagePeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.usage[ownerID+"|"+period]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// mockTxManager runs the function with a nil handle. Transactions are
// serialized under one mutex, which stands in for the advisory lock the
// real finalize path takes.
type mockTxManager struct {
	mu sync.Mutex
}

func (m *mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, nil)
}

// mockRunner is a configurable ScrapeRunner.
type mockRunner struct {
	mu          sync.Mutex
	SubmitFunc  func(ctx context.Context, sourceURL string, platform model.Platform) (string, error)
	PollFunc    func(ctx context.Context, runID string) (adapter.RunState, error)
	FetchFunc   func(ctx context.Context, runID string) (*model.ExtractedContent, error)
	submitCalls int
	pollCalls   int
	fetchCalls  int
}

func (m *mockRunner) SubmitJob(ctx context.Context, sourceURL string, platform model.Platform) (string, error) {
	m.mu.Lock()
	m.submitCalls++
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, sourceURL, platform)
	}
	return "run-1", nil
}

func (m *mockRunner) PollJob(ctx context.Context, runID string) (adapter.RunState, error) {
	m.mu.Lock()
	m.pollCalls++
	m.mu.Unlock()
	if m.PollFunc != nil {
		return m.PollFunc(ctx, runID)
	}
	return adapter.RunStateRunning, nil
}

func (m *mockRunner) FetchJobResult(ctx context.Context, runID string) (*model.ExtractedContent, error) {
	m.mu.Lock()
	m.fetchCalls++
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, runID)
	}
	return &model.ExtractedContent{Title: "fetched"}, nil
}

func (m *mockRunner) calls() (submit, poll, fetch int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalls, m.pollCalls, m.fetchCalls
}

// mockPlatformAPI is a configurable PlatformAPI.
type mockPlatformAPI struct {
	SupportsFunc func(platform model.Platform) bool
	FetchFunc    func(ctx context.Context, sourceURL string, platform model.Platform) (*model.ExtractedContent, error)
	fetchCalls   int
}

func (m *mockPlatformAPI) Supports(platform model.Platform) bool {
	if m.SupportsFunc != nil {
		return m.SupportsFunc(platform)
	}
	return platform == model.PlatformYouTube
}

func (m *mockPlatformAPI) FetchContent(ctx context.Context, sourceURL string, platform model.Platform) (*model.ExtractedContent, error) {
	m.fetchCalls++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, sourceURL, platform)
	}
	return &model.ExtractedContent{Title: "api content"}, nil
}

// mockSpeech is a configurable SpeechToText.
type mockSpeech struct {
	mu                 sync.Mutex
	TranscribeFunc     func(ctx context.Context, mediaURL, prompt string) (string, error)
	TranscribeLongFunc func(ctx context.Context, mediaURL, prompt string, chunks int) (string, error)
	transcribeCalls    int
	longCalls          int
	lastChunks         int
	lastPrompt         string
}

func (m *mockSpeech) Transcribe(ctx context.Context, mediaURL, prompt string) (string, error) {
	m.mu.Lock()
	m.transcribeCalls++
	m.lastPrompt = prompt
	m.mu.Unlock()
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, mediaURL, prompt)
	}
	return "spoken words", nil
}

func (m *mockSpeech) TranscribeLong(ctx context.Context, mediaURL, prompt string, chunks int) (string, error) {
	m.mu.Lock()
	m.longCalls++
	m.lastChunks = chunks
	m.mu.Unlock()
	if m.TranscribeLongFunc != nil {
		return m.TranscribeLongFunc(ctx, mediaURL, prompt, chunks)
	}
	return "long spoken words", nil
}

// mockCaptions is a configurable CaptionService.
type mockCaptions struct {
	FetchByVideoIDFunc func(ctx context.Context, videoID string) (string, error)
	FetchTrackFunc     func(ctx context.Context, trackURL string) (string, error)
	byIDCalls          int
	trackCalls         int
}

func (m *mockCaptions) FetchByVideoID(ctx context.Context, videoID string) (string, error) {
	m.byIDCalls++
	if m.FetchByVideoIDFunc != nil {
		return m.FetchByVideoIDFunc(ctx, videoID)
	}
	return "", domain.ErrNotFound
}

func (m *mockCaptions) FetchTrack(ctx context.Context, trackURL string) (string, error) {
	m.trackCalls++
	if m.FetchTrackFunc != nil {
		return m.FetchTrackFunc(ctx, trackURL)
	}
	return "", domain.ErrNotFound
}

// mockLocker is an in-process JobLocker.
type mockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMockLocker() *mockLocker { return &mockLocker{held: make(map[string]string)} }

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	token := fmt.Sprintf("tok-%d", len(m.held)+1)
	m.held[key] = token
	return token, nil
}

func (m *mockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// mockCache is an in-process SnapshotCache.
type mockCache struct {
	mu    sync.Mutex
	store map[string]*model.ScrapeJob
	puts  int
}

func newMockCache() *mockCache { return &mockCache{store: make(map[string]*model.ScrapeJob)} }

func (m *mockCache) Get(ctx context.Context, jobID string) (*model.ScrapeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *mockCache) Put(ctx context.Context, job *model.ScrapeJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.store[job.ID] = &cp
	m.puts++
	return nil
}

func (m *mockCache) Invalidate(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, jobID)
	return nil
}

// mockLimiter is a SubmitLimiter with a fixed answer.
type mockLimiter struct {
	allow bool
	err   error
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return m.allow, m.err
}
