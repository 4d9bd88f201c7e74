package domain

import "time"

// LandlordBalance is a derived view over the ledger, never stored as truth.
// AvailableBalance counts only completed, non-held-escrow, unallocated entries;
// the lifetime totals ignore allocation so statements stay stable.
type LandlordBalance struct {
	LandlordID           string `json:"landlord_id"`
	TotalGrossEarnings   int64  `json:"total_gross_earnings"`
	TotalCommissionPaid  int64  `json:"total_commission_paid"`
	TotalEscrowInterest  int64  `json:"total_escrow_interest"`
	TotalNetEarnings     int64  `json:"total_net_earnings"`
	AvailableBalance     int64  `json:"available_balance"`
	Currency             string `json:"currency"`
}

// EarningsLine is one payment's contribution to a statement window
type EarningsLine struct {
	PaymentID        string       `json:"payment_id"`
	ApplicationID    string       `json:"application_id"`
	Kind             PaymentKind  `json:"kind"`
	Amount           int64        `json:"amount"`
	CommissionAmount int64        `json:"commission_amount"`
	EscrowInterest   int64        `json:"escrow_interest"`
	NetAmount        int64        `json:"net_amount"`
	EscrowStatus     EscrowStatus `json:"escrow_status,omitempty"`
	ReceivedAt       time.Time    `json:"received_at"`
}

// EarningsBreakdown is a windowed statement for a landlord
type EarningsBreakdown struct {
	LandlordID          string         `json:"landlord_id"`
	From                *time.Time     `json:"from,omitempty"`
	To                  *time.Time     `json:"to,omitempty"`
	Lines               []EarningsLine `json:"lines"`
	TotalGross          int64          `json:"total_gross"`
	TotalCommission     int64          `json:"total_commission"`
	TotalEscrowInterest int64          `json:"total_escrow_interest"`
	TotalNet            int64          `json:"total_net"`
}
