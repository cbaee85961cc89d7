package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus is the lifecycle state of a withdrawal request.
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutSuccessful PayoutStatus = "successful"
	PayoutFailed     PayoutStatus = "failed"
	PayoutCancelled  PayoutStatus = "cancelled"
)

// payoutTransitions is the closed transition table. Admin approval moves
// pending to processing; rejection and cancellation are terminal with a
// refund. The processing -> successful|failed leg is driven by the external
// bank-transfer settlement, not by this service.
var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutPending:    {PayoutProcessing, PayoutFailed, PayoutCancelled},
	PayoutProcessing: {PayoutSuccessful, PayoutFailed},
}

// CanTransition reports whether moving to the given status is legal.
func (s PayoutStatus) CanTransition(to PayoutStatus) bool {
	for _, next := range payoutTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no further transitions are possible.
func (s PayoutStatus) IsTerminal() bool {
	return len(payoutTransitions[s]) == 0
}

// PayoutRequest is one withdrawal attempt. Funds are debited from the
// wallet at creation time, so the request always represents money already
// reserved. Exactly one of UserID and VendorID is set.
type PayoutRequest struct {
	ID            uuid.UUID       `json:"id"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	VendorID      *uuid.UUID      `json:"vendor_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        PayoutStatus    `json:"status"`
	Reference     string          `json:"reference"`
	BankName      string          `json:"bank_name"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	AdminNotes    *string         `json:"admin_notes,omitempty"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}

// RequesterID returns the wallet owner the request debits, regardless of
// whether the requester is a user or a vendor.
func (p *PayoutRequest) RequesterID() uuid.UUID {
	if p.VendorID != nil {
		return *p.VendorID
	}
	if p.UserID != nil {
		return *p.UserID
	}
	return uuid.Nil
}

// HasValidRequester verifies the user XOR vendor ownership constraint.
func (p *PayoutRequest) HasValidRequester() bool {
	return (p.UserID != nil) != (p.VendorID != nil)
}
