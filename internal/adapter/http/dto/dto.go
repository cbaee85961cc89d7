package dto

import (
	"github.com/shopspring/decimal"
)

// SetPinRequest is the request body for configuring a transaction PIN.
type SetPinRequest struct {
	Pin string `json:"pin" binding:"required,len=4,numeric"`
}

// WithdrawalRequest is the request body for creating a withdrawal.
// Amount is in major currency units with at most two decimal places.
type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Pin           string          `json:"pin" binding:"required,len=4,numeric"`
	BankName      string          `json:"bank_name" binding:"required,max=100"`
	AccountNumber string          `json:"account_number" binding:"required,max=30"`
	AccountName   string          `json:"account_name" binding:"required,max=100"`
}

// ValidateWithdrawalRequest is the request body for the withdrawal
// pre-check. No PIN is required; the check only covers eligibility.
type ValidateWithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// ApproveRequest is the optional request body for approving a withdrawal.
type ApproveRequest struct {
	Notes string `json:"notes,omitempty" binding:"max=500"`
}

// RejectRequest is the request body for rejecting a withdrawal.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CreatePlanRequest is the request body for creating an installment plan.
type CreatePlanRequest struct {
	OrderID       string `json:"order_id" binding:"required,uuid"`
	CustomerEmail string `json:"customer_email" binding:"required,email"`
	Duration      string `json:"duration" binding:"required"`
}

// WebhookEvent is the gateway webhook envelope. Only charge.success events
// carry settlement-relevant data.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// WalletBalanceResponse is the response for a balance query.
type WalletBalanceResponse struct {
	OwnerID string `json:"owner_id"`
	Balance string `json:"balance"`
}

// StatementEntryResponse is one ledger entry in a wallet statement.
type StatementEntryResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

// StatementResponse wraps a paginated wallet statement.
type StatementResponse struct {
	Entries []StatementEntryResponse `json:"entries"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}

// PayoutResponse is the response body for withdrawal requests.
type PayoutResponse struct {
	ID            string  `json:"id"`
	Reference     string  `json:"reference"`
	Amount        string  `json:"amount"`
	Status        string  `json:"status"`
	BankName      string  `json:"bank_name"`
	AccountNumber string  `json:"account_number"`
	AccountName   string  `json:"account_name"`
	AdminNotes    *string `json:"admin_notes,omitempty"`
	FailureReason *string `json:"failure_reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
	ProcessedAt   *string `json:"processed_at,omitempty"`
}

// PayoutListResponse wraps a paginated withdrawal list.
type PayoutListResponse struct {
	Items  []PayoutResponse `json:"items"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// CheckoutResponse is the hosted checkout for an installment payment.
type CheckoutResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// InstallmentResponse is one scheduled payment of a plan.
type InstallmentResponse struct {
	ID            string  `json:"id"`
	PaymentNumber int     `json:"payment_number"`
	Amount        string  `json:"amount"`
	Status        string  `json:"status"`
	DueDate       string  `json:"due_date"`
	Reference     string  `json:"reference"`
	PaidAt        *string `json:"paid_at,omitempty"`
}

// PlanResponse is the response body for an installment plan.
type PlanResponse struct {
	ID                string                `json:"id"`
	OrderID           string                `json:"order_id"`
	Duration          string                `json:"duration"`
	TotalAmount       string                `json:"total_amount"`
	InstallmentAmount string                `json:"installment_amount"`
	InstallmentCount  int                   `json:"installment_count"`
	Status            string                `json:"status"`
	StartDate         string                `json:"start_date"`
	Payments          []InstallmentResponse `json:"payments,omitempty"`
	Checkout          *CheckoutResponse     `json:"checkout,omitempty"`
}

// WebhookAckResponse is the generic webhook acknowledgement. It never
// discloses settlement state to the caller.
type WebhookAckResponse struct {
	Received bool `json:"received"`
}
