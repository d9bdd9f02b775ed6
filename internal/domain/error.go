package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidURL          = errors.New("invalid content url")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrQuotaExceeded       = errors.New("platform api quota exceeded or access denied")
	ErrNoContentFound      = errors.New("no content found")
	ErrJobNotTerminal      = errors.New("job has not reached a terminal state")
	ErrDuplicateActiveJob  = errors.New("an active job already exists for this target")
	ErrTranscriptSettled   = errors.New("transcript already resolved for this job")
	ErrRateLimited         = errors.New("too many submissions, slow down")
	ErrLockNotAcquired     = errors.New("could not acquire job lock")

	// Persistence-layer errors surfaced by repositories
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid sql execution context")
)
