package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
	"social-scrape-platform/internal/domain/ports/repository"
)

var _ repository.CreditAccountRepository = (*creditAccountRepo)(nil)

type creditAccountRepo struct {
	pool *pgxpool.Pool
}

func NewCreditAccountRepo(pool *pgxpool.Pool) *creditAccountRepo {
	return &creditAccountRepo{pool: pool}
}

const creditColumns = `owner_id, promotional_balance, allocation_balance, allocation_cap, created_at, updated_at`

func (r *creditAccountRepo) FindByOwner(ctx context.Context, tx repository.Tx, ownerID string) (*model.CreditAccount, error) {
	const q = `SELECT ` + creditColumns + ` FROM credit_accounts WHERE owner_id=$1;`
	return r.findOne(ctx, tx, q, ownerID)
}

func (r *creditAccountRepo) FindByOwnerForUpdate(ctx context.Context, tx repository.Tx, ownerID string) (*model.CreditAccount, error) {
	if _, ok := tx.(pgx.Tx); !ok {
		return nil, domain.ErrInvalidExecContext
	}
	const q = `SELECT ` + creditColumns + ` FROM credit_accounts WHERE owner_id=$1 FOR UPDATE;`
	return r.findOne(ctx, tx, q, ownerID)
}

func (r *creditAccountRepo) Save(ctx context.Context, tx repository.Tx, acc *model.CreditAccount) error {
	acc.UpdatedAt = time.Now()
	const q = `
INSERT INTO credit_accounts (` + creditColumns + `)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (owner_id) DO UPDATE SET
  promotional_balance = EXCLUDED.promotional_balance,
  allocation_balance = EXCLUDED.allocation_balance,
  allocation_cap = EXCLUDED.allocation_cap,
  updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q,
		acc.OwnerID, acc.PromotionalBalance, acc.AllocationBalance, acc.AllocationCap, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *creditAccountRepo) RecordUsage(ctx context.Context, tx repository.Tx, ownerID, period, operation string, used model.ChargeBreakdown) error {
	total := used.PromotionalUsed + used.AllocationUsed
	const q = `
INSERT INTO usage_periods (owner_id, period, promotional_used, allocation_used, total_used, by_operation, updated_at)
VALUES ($1, $2, $3, $4, $5, jsonb_build_object($6::text, $5::bigint), NOW())
ON CONFLICT (owner_id, period) DO UPDATE SET
  promotional_used = usage_periods.promotional_used + EXCLUDED.promotional_used,
  allocation_used = usage_periods.allocation_used + EXCLUDED.allocation_used,
  total_used = usage_periods.total_used + EXCLUDED.total_used,
  by_operation = usage_periods.by_operation ||
    jsonb_build_object($6::text, COALESCE((usage_periods.by_operation->>$6)::bigint, 0) + $5::bigint),
  updated_at = NOW();`
	_, err := execSQL(ctx, r.pool, tx, q, ownerID, period, used.PromotionalUsed, used.AllocationUsed, total, operation)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *creditAccountRepo) FindUsage(ctx context.Context, tx repository.Tx, ownerID, period string) (*model.UsagePeriod, error) {
	const q = `SELECT owner_id, period, promotional_used, allocation_used, total_used, by_operation, updated_at
FROM usage_periods WHERE owner_id=$1 AND period=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, ownerID, period)
	if err != nil {
		return nil, err
	}

	u := &model.UsagePeriod{}
	var byOp []byte
	if err := row.Scan(&u.OwnerID, &u.Period, &u.PromotionalUsed, &u.AllocationUsed, &u.TotalUsed, &byOp, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(byOp) > 0 {
		if err := json.Unmarshal(byOp, &u.ByOperation); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return u, nil
}

func (r *creditAccountRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.CreditAccount, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	a := &model.CreditAccount{}
	if err := row.Scan(&a.OwnerID, &a.PromotionalBalance, &a.AllocationBalance, &a.AllocationCap, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}
