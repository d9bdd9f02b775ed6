package repository

import (
	"context"

	"social-scrape-platform/internal/domain/model"
)

// CreditAccountRepository is the port for the dual-pool credit ledger.
type CreditAccountRepository interface {
	// FindByOwner returns the account, or ErrNotFound.
	FindByOwner(ctx context.Context, tx Tx, ownerID string) (*model.CreditAccount, error)

	// FindByOwnerForUpdate locks the account row inside the transaction.
	FindByOwnerForUpdate(ctx context.Context, tx Tx, ownerID string) (*model.CreditAccount, error)

	Save(ctx context.Context, tx Tx, acc *model.CreditAccount) error

	// RecordUsage upserts the usage row for (owner, period), incrementing
	// the pool totals and the per-operation counter.
	RecordUsage(ctx context.Context, tx Tx, ownerID, period, operation string, used model.ChargeBreakdown) error

	// FindUsage returns the usage row for (owner, period), or ErrNotFound.
	FindUsage(ctx context.Context, tx Tx, ownerID, period string) (*model.UsagePeriod, error)
}
