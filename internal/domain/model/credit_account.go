package model

import (
	"time"

	"social-scrape-platform/internal/domain"
)

// CreditAccount tracks the two spendable pools for an owning entity.
// Promotional credits are spent before allocation credits; both balances
// are non-negative integers.
type CreditAccount struct {
	OwnerID            string
	PromotionalBalance int64
	AllocationBalance  int64
	AllocationCap      int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ChargeBreakdown says how much of a deduction each pool absorbed.
type ChargeBreakdown struct {
	PromotionalUsed int64
	AllocationUsed  int64
}

// ApplyCharge deducts cost promotional-first and clips each pool at zero.
// Charging happens after the work already succeeded, so a shortfall is not
// an error here; sufficiency is a pre-flight concern.
func (a *CreditAccount) ApplyCharge(cost int64) (ChargeBreakdown, error) {
	if cost < 0 {
		return ChargeBreakdown{}, domain.ErrInvalidArgument
	}
	promo := min64(a.PromotionalBalance, cost)
	alloc := min64(a.AllocationBalance, cost-promo)
	a.PromotionalBalance -= promo
	a.AllocationBalance -= alloc
	return ChargeBreakdown{PromotionalUsed: promo, AllocationUsed: alloc}, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// UsagePeriod aggregates consumption for one (account, calendar month).
// Created lazily on first usage in the period.
type UsagePeriod struct {
	OwnerID         string
	Period          string // "2006-01"
	PromotionalUsed int64
	AllocationUsed  int64
	TotalUsed       int64
	ByOperation     map[string]int64
	UpdatedAt       time.Time
}

// PeriodKey formats t as the calendar-month key usage rows are bucketed by.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
