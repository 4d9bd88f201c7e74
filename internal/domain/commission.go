package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCommissionRate seeds the register on first read
var DefaultCommissionRate = decimal.NewFromFloat(0.10)

// CommissionRate is the current platform cut, stamped onto new ledger entries.
// Changing it never rewrites the rate stamped on existing entries.
type CommissionRate struct {
	Rate          decimal.Decimal `json:"rate"`
	EffectiveFrom time.Time       `json:"effective_from"`
	LastUpdatedBy string          `json:"last_updated_by,omitempty"`
	LastUpdatedAt time.Time       `json:"last_updated_at"`
}

// CommissionRateChange is an immutable history record of a rate update
type CommissionRateChange struct {
	ID           string          `json:"id"`
	Rate         decimal.Decimal `json:"rate"`
	PreviousRate decimal.Decimal `json:"previous_rate"`
	Reason       string          `json:"reason"`
	ChangedBy    string          `json:"changed_by"`
	ChangedAt    time.Time       `json:"changed_at"`
}

// ValidCommissionRate reports whether rate is a usable fraction
func ValidCommissionRate(rate decimal.Decimal) bool {
	return rate.GreaterThanOrEqual(decimal.Zero) && rate.LessThanOrEqual(decimal.NewFromInt(1))
}
