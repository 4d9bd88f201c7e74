package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a ledger entry
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// PaymentKind distinguishes what the money paid for
type PaymentKind string

const (
	PaymentKindApplicationFee PaymentKind = "application_fee"
	PaymentKindRent           PaymentKind = "rent"
)

// EscrowStatus is the escrow sub-state of a rent payment.
// Empty for non-escrow entries.
type EscrowStatus string

const (
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
)

// EscrowHoldPeriodDays is how long rent stays in escrow before
// late-release interest starts accruing.
const EscrowHoldPeriodDays = 10

// EscrowDailyInterestRate is the penalty rate per day past the hold period.
var EscrowDailyInterestRate = decimal.NewFromFloat(0.02)

// PaymentEntry is a single money movement in the ledger.
// Amounts are integer minor-currency units.
type PaymentEntry struct {
	ID                string          `json:"id"`
	ApplicationID     string          `json:"application_id"`
	PayerUserID       string          `json:"payer_user_id"`
	LandlordID        string          `json:"landlord_id"`
	Amount            int64           `json:"amount"`
	Currency          string          `json:"currency"`
	Status            PaymentStatus   `json:"status"`
	Kind              PaymentKind     `json:"kind"`
	IsEscrow          bool            `json:"is_escrow"`
	EscrowStatus      EscrowStatus    `json:"escrow_status,omitempty"`
	EscrowHeldAt      *time.Time      `json:"escrow_held_at,omitempty"`
	EscrowExpiresAt   *time.Time      `json:"escrow_expires_at,omitempty"`
	EscrowReleasedAt  *time.Time      `json:"escrow_released_at,omitempty"`
	EscrowInterest    int64           `json:"escrow_interest"`
	CommissionRate    decimal.Decimal `json:"commission_rate"`
	CommissionAmount  int64           `json:"commission_amount"`
	LandlordNetAmount int64           `json:"landlord_net_amount"`
	ExternalReference string          `json:"external_reference"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	RefundAmount      int64           `json:"refund_amount,omitempty"`
	RefundReason      string          `json:"refund_reason,omitempty"`
	PropertyVisited   bool            `json:"property_visited"`
	DocumentsReceived bool            `json:"documents_received"`
	AllocatedToPayout bool            `json:"allocated_to_payout"`
	PayoutRequestID   *string         `json:"payout_request_id,omitempty"`
	PayoutAllocatedAt *time.Time      `json:"payout_allocated_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CanBeRefunded returns true if the entry can transition to refunded
func (p *PaymentEntry) CanBeRefunded() bool {
	return p.Status == PaymentStatusCompleted
}

// CanBeReleased returns true if the escrow hold can be released
func (p *PaymentEntry) CanBeReleased() bool {
	return p.IsEscrow && p.EscrowStatus == EscrowStatusHeld && p.Status == PaymentStatusCompleted
}

// IsEligibleForPayout reports whether the entry can fund a payout request:
// completed, out of escrow (or never in it), and not already claimed.
func (p *PaymentEntry) IsEligibleForPayout() bool {
	if p.Status != PaymentStatusCompleted || p.AllocatedToPayout {
		return false
	}
	if p.IsEscrow && p.EscrowStatus != EscrowStatusReleased {
		return false
	}
	return true
}

// DaysHeld returns the whole days the entry has been in escrow as of now
func (p *PaymentEntry) DaysHeld(now time.Time) int {
	if p.EscrowHeldAt == nil {
		return 0
	}
	return int(now.Sub(*p.EscrowHeldAt) / (24 * time.Hour))
}

// CommissionFor computes the platform cut of amount at the given rate,
// rounded half-up to the nearest minor unit.
func CommissionFor(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}

// LateReleaseInterest computes the penalty for releasing escrow daysHeld days
// after it was held. Zero within the hold period.
func LateReleaseInterest(amount int64, daysHeld int) int64 {
	overdue := daysHeld - EscrowHoldPeriodDays
	if overdue <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).
		Mul(EscrowDailyInterestRate).
		Mul(decimal.NewFromInt(int64(overdue))).
		Round(0).IntPart()
}
