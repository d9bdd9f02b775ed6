package repository

import (
	"context"
	"time"

	"social-scrape-platform/internal/domain/model"
)

// ScrapeJobRepository is the port for scrape job persistence.
//
// The conditional mutators (MarkCompleted, MarkFailed, UpdateForFallback)
// only apply when the row still matches the expected prior status; they
// report whether the transition happened. This is what keeps concurrent
// finalizers from both winning.
type ScrapeJobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.ScrapeJob) error

	// FindByID is owner-scoped: a wrong owner behaves like an unknown id.
	FindByID(ctx context.Context, tx Tx, id, ownerID string) (*model.ScrapeJob, error)

	// FindByIDForUpdate locks the row inside the supplied transaction.
	FindByIDForUpdate(ctx context.Context, tx Tx, id, ownerID string) (*model.ScrapeJob, error)

	// FindActiveByTarget returns a non-terminal job for the same
	// (owner, project, url), or ErrNotFound.
	FindActiveByTarget(ctx context.Context, tx Tx, ownerID, projectID, sourceURL string) (*model.ScrapeJob, error)

	// MarkCompleted transitions processing -> completed, storing the payload
	// and setting credits_deducted in the same write.
	MarkCompleted(ctx context.Context, tx Tx, id string, content *model.ExtractedContent, completedAt time.Time) (bool, error)

	// MarkFailed transitions processing -> failed with a reason.
	MarkFailed(ctx context.Context, tx Tx, id, errorDetail string) (bool, error)

	// UpdateForFallback performs the single permitted failed->processing
	// re-entry, rewriting the extraction method and run id.
	UpdateForFallback(ctx context.Context, tx Tx, id string, method model.ExtractionMethod, runID string) (bool, error)

	// UpdateTranscript merges a late transcript into a completed job's
	// payload without touching status or the credits flag.
	UpdateTranscript(ctx context.Context, tx Tx, id, text, source string) error
}
