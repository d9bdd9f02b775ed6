package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/domain/ports/repository"
)

var _ repository.ScrapeJobRepository = (*scrapeJobRepo)(nil)

type scrapeJobRepo struct {
	pool *pgxpool.Pool
}

func NewScrapeJobRepo(pool *pgxpool.Pool) *scrapeJobRepo {
	return &scrapeJobRepo{pool: pool}
}

const scrapeJobColumns = `id, owner_id, project_id, source_url, platform, kind, extraction_method, status, external_run_id, content, error_detail, credits_deducted, created_at, updated_at, completed_at`

func (r *scrapeJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.ScrapeJob) error {
	if job.ID == "" {
		job.ID = ulid.Make().String()
	}
	job.UpdatedAt = time.Now()

	contentJSON, err := marshalContent(job.Content)
	if err != nil {
		return domain.ErrInvalidArgument
	}

	const q = `
INSERT INTO scrape_jobs (` + scrapeJobColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  extraction_method = EXCLUDED.extraction_method,
  status = EXCLUDED.status,
  external_run_id = EXCLUDED.external_run_id,
  content = EXCLUDED.content,
  error_detail = EXCLUDED.error_detail,
  credits_deducted = EXCLUDED.credits_deducted,
  updated_at = EXCLUDED.updated_at,
  completed_at = EXCLUDED.completed_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.OwnerID, job.ProjectID, job.SourceURL, job.Platform, job.Kind,
		job.ExtractionMethod, job.Status, job.ExternalRunID, contentJSON,
		job.ErrorDetail, job.CreditsDeducted, job.CreatedAt, job.UpdatedAt, job.CompletedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_scrape_jobs_active_target" {
			return domain.ErrDuplicateActiveJob
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *scrapeJobRepo) FindByID(ctx context.Context, tx repository.Tx, id, ownerID string) (*model.ScrapeJob, error) {
	const q = `SELECT ` + scrapeJobColumns + ` FROM scrape_jobs WHERE id=$1 AND owner_id=$2;`
	return r.findOne(ctx, tx, q, id, ownerID)
}

func (r *scrapeJobRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id, ownerID string) (*model.ScrapeJob, error) {
	if _, ok := tx.(pgx.Tx); !ok {
		return nil, domain.ErrInvalidExecContext
	}
	const q = `SELECT ` + scrapeJobColumns + ` FROM scrape_jobs WHERE id=$1 AND owner_id=$2 FOR UPDATE;`
	return r.findOne(ctx, tx, q, id, ownerID)
}

func (r *scrapeJobRepo) FindActiveByTarget(ctx context.Context, tx repository.Tx, ownerID, projectID, sourceURL string) (*model.ScrapeJob, error) {
	const q = `SELECT ` + scrapeJobColumns + ` FROM scrape_jobs
WHERE owner_id=$1 AND project_id=$2 AND source_url=$3 AND status IN ('pending','processing')
ORDER BY created_at DESC LIMIT 1;`
	return r.findOne(ctx, tx, q, ownerID, projectID, sourceURL)
}

func (r *scrapeJobRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id string, content *model.ExtractedContent, completedAt time.Time) (bool, error) {
	contentJSON, err := marshalContent(content)
	if err != nil {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE scrape_jobs
SET status='completed', content=$2, credits_deducted=TRUE, error_detail='', completed_at=$3, updated_at=NOW()
WHERE id=$1 AND status='processing';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, contentJSON, completedAt)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *scrapeJobRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, errorDetail string) (bool, error) {
	const q = `
UPDATE scrape_jobs
SET status='failed', error_detail=$2, updated_at=NOW()
WHERE id=$1 AND status IN ('pending','processing');`
	tag, err := execSQL(ctx, r.pool, tx, q, id, errorDetail)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *scrapeJobRepo) UpdateForFallback(ctx context.Context, tx repository.Tx, id string, method model.ExtractionMethod, runID string) (bool, error) {
	// The one permitted failed->processing edge. Guarded on credits never
	// having been charged so a finished job cannot be resurrected.
	const q = `
UPDATE scrape_jobs
SET status='processing', extraction_method=$2, external_run_id=$3, error_detail='', updated_at=NOW()
WHERE id=$1 AND status='failed' AND credits_deducted=FALSE;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, method, runID)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *scrapeJobRepo) UpdateTranscript(ctx context.Context, tx repository.Tx, id, text, source string) error {
	// Merges only into a still-null transcript so concurrent on-demand
	// resolutions cannot overwrite each other.
	const q = `
UPDATE scrape_jobs
SET content = jsonb_set(jsonb_set(content, '{transcript}', to_jsonb($2::text)), '{transcript_source}', to_jsonb($3::text)),
    updated_at = NOW()
WHERE id=$1 AND status='completed' AND (content->>'transcript') IS NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, text, source)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTranscriptSettled
	}
	return nil
}

func (r *scrapeJobRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.ScrapeJob, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}

	j := &model.ScrapeJob{}
	var contentJSON []byte
	err = row.Scan(
		&j.ID, &j.OwnerID, &j.ProjectID, &j.SourceURL, &j.Platform, &j.Kind,
		&j.ExtractionMethod, &j.Status, &j.ExternalRunID, &contentJSON,
		&j.ErrorDetail, &j.CreditsDeducted, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(contentJSON) > 0 {
		var c model.ExtractedContent
		if err := json.Unmarshal(contentJSON, &c); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		j.Content = &c
	}
	return j, nil
}

func marshalContent(c *model.ExtractedContent) (interface{}, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return b, nil
}
