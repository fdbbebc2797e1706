package services

import (
	"fmt"
	"math"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DefaultDailyLateFee is the late fee charged per started day when none is configured.
var DefaultDailyLateFee = decimal.NewFromInt(5)

// DefaultPenaltyCurrency is used when no currency is configured.
const DefaultPenaltyCurrency = "USD"

// PenaltyCalculator computes late fees. It has no side effects.
type PenaltyCalculator struct {
	DailyRate decimal.Decimal
	Currency  string
}

// NewPenaltyCalculator returns a calculator charging dailyRate per started day.
// A zero rate disables late fees. An empty currency uses DefaultPenaltyCurrency.
func NewPenaltyCalculator(dailyRate decimal.Decimal, currency string) PenaltyCalculator {
	if currency == "" {
		currency = DefaultPenaltyCurrency
	}
	return PenaltyCalculator{DailyRate: dailyRate, Currency: currency}
}

// DaysLate returns the number of started days between expected and actual.
// It is zero or negative when actual is not after expected.
func (PenaltyCalculator) DaysLate(expected, actual time.Time) int {
	return int(math.Ceil(actual.Sub(expected).Hours() / 24))
}

// LateFee returns the late-fee penalty for a loan expected back at expected and
// returned (or evaluated) at actual, or nil when it is not late or late fees
// are disabled.
func (p PenaltyCalculator) LateFee(expected, actual time.Time) *domain.Penalty {
	days := p.DaysLate(expected, actual)
	if days <= 0 || !p.DailyRate.IsPositive() {
		return nil
	}
	return &domain.Penalty{
		Type:       domain.PenaltyTypeLateFee,
		Amount:     p.DailyRate.Mul(decimal.NewFromInt(int64(days))),
		Currency:   p.Currency,
		Reason:     fmt.Sprintf("Late return: %d day(s) overdue", days),
		IssuedDate: actual,
	}
}
