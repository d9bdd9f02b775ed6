package adapter

import (
	"context"

	"social-scrape-platform/internal/domain/model"
)

// RunState is the lifecycle of a run inside the external job runner.
type RunState string

const (
	RunStateRunning   RunState = "RUNNING"
	RunStateSucceeded RunState = "SUCCEEDED"
	RunStateFailed    RunState = "FAILED"
	RunStateTimedOut  RunState = "TIMED-OUT"
	RunStateAborted   RunState = "ABORTED"
)

// Terminal reports whether the runner will make no further progress.
func (s RunState) Terminal() bool {
	return s == RunStateSucceeded || s == RunStateFailed || s == RunStateTimedOut || s == RunStateAborted
}

// ScrapeRunner is the port onto the asynchronous scraping runner. Every
// call is a network call and may fail transiently; callers must not let a
// transient error corrupt job state.
type ScrapeRunner interface {
	// SubmitJob starts a run for the url and returns the runner's handle.
	SubmitJob(ctx context.Context, sourceURL string, platform model.Platform) (runID string, err error)

	// PollJob reports the current run state.
	PollJob(ctx context.Context, runID string) (RunState, error)

	// FetchJobResult retrieves the normalized content of a succeeded run.
	// A succeeded run with an empty dataset returns domain.ErrNoContentFound.
	FetchJobResult(ctx context.Context, runID string) (*model.ExtractedContent, error)
}

// PlatformAPI is the port onto a first-party, quota-limited metadata API
// (the free path, synchronous). Quota and auth failures surface as
// domain.ErrQuotaExceeded so the controller can fail the job without a
// fallback; any other failure is eligible for the job-runner fallback.
type PlatformAPI interface {
	// Supports reports whether the free path can serve this platform.
	Supports(platform model.Platform) bool

	FetchContent(ctx context.Context, sourceURL string, platform model.Platform) (*model.ExtractedContent, error)
}
