// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/domain/ports/repository"
	"social-scrape-platform/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase is the single entry point for credit deductions. The
// charge-once-per-job invariant is enforced here and in the controller's
// finalize transaction, nowhere else.
type LedgerUseCase interface {
	// EnsureAccount returns the owner's account, creating it with the
	// configured promotional grant on first sight.
	EnsureAccount(ctx context.Context, ownerID string) (*model.CreditAccount, error)

	// ChargeJob deducts cost promotional-pool-first inside the caller's
	// transaction and records the usage for the current period. It must be
	// called at most once per job; the caller guards that with the job's
	// credits_deducted flag.
	ChargeJob(ctx context.Context, tx repository.Tx, ownerID, operation string, cost int64) (model.ChargeBreakdown, error)

	// Balance returns the account and the current period's usage (usage is
	// nil when nothing was consumed this period yet).
	Balance(ctx context.Context, ownerID string) (*model.CreditAccount, *model.UsagePeriod, error)
}

type LedgerConfig struct {
	PromotionalGrant int64
	AllocationCap    int64
}

type ledgerUC struct {
	accounts repository.CreditAccountRepository
	cfg      LedgerConfig
	log      *zerolog.Logger
}

func NewLedgerUseCase(accounts repository.CreditAccountRepository, cfg LedgerConfig, log *zerolog.Logger) *ledgerUC {
	return &ledgerUC{accounts: accounts, cfg: cfg, log: log}
}

func (u *ledgerUC) EnsureAccount(ctx context.Context, ownerID string) (*model.CreditAccount, error) {
	if ownerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	acc, err := u.accounts.FindByOwner(ctx, nil, ownerID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	acc = &model.CreditAccount{
		OwnerID:            ownerID,
		PromotionalBalance: u.cfg.PromotionalGrant,
		AllocationBalance:  u.cfg.AllocationCap,
		AllocationCap:      u.cfg.AllocationCap,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := u.accounts.Save(ctx, nil, acc); err != nil {
		return nil, err
	}
	u.log.Info().Str("owner_id", ownerID).Int64("promotional_grant", u.cfg.PromotionalGrant).Msg("credit account created")
	return acc, nil
}

func (u *ledgerUC) ChargeJob(ctx context.Context, tx repository.Tx, ownerID, operation string, cost int64) (model.ChargeBreakdown, error) {
	if cost < 0 || ownerID == "" {
		return model.ChargeBreakdown{}, domain.ErrInvalidArgument
	}

	acc, err := u.accounts.FindByOwnerForUpdate(ctx, tx, ownerID)
	if err != nil {
		return model.ChargeBreakdown{}, err
	}

	used, err := acc.ApplyCharge(cost)
	if err != nil {
		return model.ChargeBreakdown{}, err
	}
	if err := u.accounts.Save(ctx, tx, acc); err != nil {
		return model.ChargeBreakdown{}, err
	}
	if err := u.accounts.RecordUsage(ctx, tx, ownerID, model.PeriodKey(time.Now()), operation, used); err != nil {
		return model.ChargeBreakdown{}, err
	}

	metrics.AddCreditsCharged(used.PromotionalUsed, used.AllocationUsed)
	u.log.Debug().
		Str("owner_id", ownerID).
		Str("operation", operation).
		Int64("cost", cost).
		Int64("promotional_used", used.PromotionalUsed).
		Int64("allocation_used", used.AllocationUsed).
		Msg("credits charged")
	return used, nil
}

func (u *ledgerUC) Balance(ctx context.Context, ownerID string) (*model.CreditAccount, *model.UsagePeriod, error) {
	acc, err := u.EnsureAccount(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	usage, err := u.accounts.FindUsage(ctx, nil, ownerID, model.PeriodKey(time.Now()))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return acc, nil, nil
		}
		return nil, nil, err
	}
	return acc, usage, nil
}
