package domain

import "time"

// PayoutStatus represents the review state of a payout request
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusApproved  PayoutStatus = "approved"
	PayoutStatusRejected  PayoutStatus = "rejected"
	PayoutStatusProcessed PayoutStatus = "processed"
)

// PayoutMethod is how the landlord wants to be paid
type PayoutMethod string

const (
	PayoutMethodBankTransfer  PayoutMethod = "bank_transfer"
	PayoutMethodStripeConnect PayoutMethod = "stripe_connect"
)

// CancelledByLandlordReason is recorded when a landlord withdraws their own
// pending request; the request is closed as a rejection.
const CancelledByLandlordReason = "cancelled by landlord before review"

// BankDetails carries the destination for a bank_transfer payout
type BankDetails struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// PayoutRequest is a landlord's withdrawal of part of their net earnings.
// Amount equals the summed net amounts of the entries claimed for it, which
// may exceed RequestedAmount when entries do not divide evenly.
type PayoutRequest struct {
	ID               string       `json:"id"`
	LandlordID       string       `json:"landlord_id"`
	Amount           int64        `json:"amount"`
	RequestedAmount  int64        `json:"requested_amount"`
	Currency         string       `json:"currency"`
	Method           PayoutMethod `json:"payment_method"`
	BankDetails      *BankDetails `json:"bank_details,omitempty"`
	ConnectAccountID string       `json:"connect_account_id,omitempty"`
	Status           PayoutStatus `json:"status"`
	RelatedPayments  []string     `json:"related_payments"`
	RequestedAt      time.Time    `json:"requested_at"`
	ReviewedBy       string       `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time   `json:"reviewed_at,omitempty"`
	ReviewNotes      string       `json:"review_notes,omitempty"`
	RejectionReason  string       `json:"rejection_reason,omitempty"`
	TransferID       string       `json:"transfer_id,omitempty"`
	ProcessedAt      *time.Time   `json:"processed_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// payoutTransitions is the closed transition table for the payout state machine
var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutStatusPending:   {PayoutStatusApproved, PayoutStatusRejected},
	PayoutStatusApproved:  {PayoutStatusProcessed, PayoutStatusRejected},
	PayoutStatusRejected:  {},
	PayoutStatusProcessed: {},
}

// CanTransitionTo reports whether the state machine permits from -> to
func (s PayoutStatus) CanTransitionTo(to PayoutStatus) bool {
	for _, next := range payoutTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s PayoutStatus) IsTerminal() bool {
	return len(payoutTransitions[s]) == 0
}

// CanBeCancelledBy returns true if the landlord may self-cancel the request
func (p *PayoutRequest) CanBeCancelledBy(landlordID string) bool {
	return p.Status == PayoutStatusPending && p.LandlordID == landlordID
}

// ValidateMethodDetails checks that the method-specific destination is present
func (p *PayoutRequest) ValidateMethodDetails() error {
	switch p.Method {
	case PayoutMethodBankTransfer:
		if p.BankDetails == nil || p.BankDetails.AccountNumber == "" || p.BankDetails.BankName == "" {
			return ErrPayoutBankDetailsMissing
		}
	case PayoutMethodStripeConnect:
		if p.ConnectAccountID == "" {
			return ErrPayoutConnectAccountMissing
		}
	default:
		return ErrPayoutMethodInvalid
	}
	return nil
}
