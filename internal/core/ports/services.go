package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"marketplace-settlement/internal/core/domain"
)

// GatewayCheckout is the result of initializing a hosted checkout with the
// payment gateway.
type GatewayCheckout struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// GatewayVerification is the gateway's record of a charge, fetched during
// settlement. AmountMinor is in the currency's minor unit.
type GatewayVerification struct {
	Status      string
	Currency    string
	AmountMinor int64
	PaidAt      time.Time
}

// PaymentGateway talks to the external card processor.
type PaymentGateway interface {
	Initialize(ctx context.Context, email, reference string, amount decimal.Decimal) (*GatewayCheckout, error)
	Verify(ctx context.Context, reference string) (*GatewayVerification, error)
}

// WithdrawalReviewEvent is published when a new withdrawal request needs an
// operator's decision.
type WithdrawalReviewEvent struct {
	PayoutID    uuid.UUID       `json:"payout_id"`
	RequesterID uuid.UUID       `json:"requester_id"`
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	BankName    string          `json:"bank_name"`
	RequestedAt time.Time       `json:"requested_at"`
}

// NotificationDispatcher delivers user-facing notices and review events.
// Delivery is best effort; callers must not fail their transaction on a
// dispatch error.
type NotificationDispatcher interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message string, metadata map[string]string) error
	PublishWithdrawalReview(ctx context.Context, event WithdrawalReviewEvent) error
}

// SettlementCache caches completed verification results keyed by gateway
// reference so repeat webhook deliveries short-circuit before touching the
// database.
type SettlementCache interface {
	Get(ctx context.Context, reference string) (*domain.SettlementResult, error)
	Set(ctx context.Context, reference string, result *domain.SettlementResult, ttl time.Duration) error
}

// HealthChecker reports liveness of an infrastructure dependency.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
}

// HashService hashes and verifies secrets (transaction PINs).
type HashService interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// SignatureService computes and verifies webhook payload signatures.
type SignatureService interface {
	Sign(payload []byte) string
	Verify(payload []byte, signature string) bool
}

// TokenClaims are the fields extracted from an authenticated API token.
type TokenClaims struct {
	UserID uuid.UUID
	Role   string
}

// TokenService issues and validates API tokens.
type TokenService interface {
	Generate(userID uuid.UUID, role string) (string, error)
	Validate(token string) (*TokenClaims, error)
}

// TxLedger performs wallet movements inside a caller-owned transaction so
// the movement commits or rolls back together with the caller's state
// change.
type TxLedger interface {
	CreditInTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, source string) error
	DebitInTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, source string) error
}

// WithdrawalLedger is the wallet surface the withdrawal workflow needs:
// in-transaction movements plus a balance read for the pure pre-check.
type WithdrawalLedger interface {
	TxLedger
	Balance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error)
}

// LedgerService moves money on wallets and records every movement.
type LedgerService interface {
	EnsureWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, source string) error
	Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, source string) error
	Balance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error)
	Statement(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.WalletTransaction, error)
}

// PinService manages transaction PINs.
type PinService interface {
	SetPin(ctx context.Context, userID uuid.UUID, pin string) error
	VerifyPin(ctx context.Context, userID uuid.UUID, pin string) error
	RequireConfigured(ctx context.Context, userID uuid.UUID) error
	HasCustomPin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// CreateWithdrawalInput carries a withdrawal request from the API layer.
type CreateWithdrawalInput struct {
	RequesterID   uuid.UUID
	IsVendor      bool
	Amount        decimal.Decimal
	Pin           string
	BankName      string
	AccountNumber string
	AccountName   string
}

// WithdrawalService runs the withdrawal request lifecycle.
type WithdrawalService interface {
	Validate(ctx context.Context, requesterID uuid.UUID, amount decimal.Decimal) error
	CreateRequest(ctx context.Context, in CreateWithdrawalInput) (*domain.PayoutRequest, error)
	Approve(ctx context.Context, payoutID uuid.UUID, adminNotes string) (*domain.PayoutRequest, error)
	Reject(ctx context.Context, payoutID uuid.UUID, reason string) (*domain.PayoutRequest, error)
	Cancel(ctx context.Context, payoutID, requesterID uuid.UUID) (*domain.PayoutRequest, error)
	Get(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRequest, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*domain.PayoutRequest, error)
}

// CreatePlanInput carries an installment plan request from the API layer.
type CreatePlanInput struct {
	OrderID       uuid.UUID
	CustomerEmail string
	Duration      domain.DurationTier
}

// CreatePlanOutput is the created plan plus the checkout for the first
// installment, when gateway initialization succeeded.
type CreatePlanOutput struct {
	Plan     *domain.InstallmentPlan
	Payments []*domain.InstallmentPayment
	Checkout *GatewayCheckout
}

// SettlementService creates installment plans and settles payments against
// the gateway.
type SettlementService interface {
	CreatePlan(ctx context.Context, in CreatePlanInput) (*CreatePlanOutput, error)
	VerifyAndSettle(ctx context.Context, reference string) (*domain.SettlementResult, error)
	GetPlan(ctx context.Context, planID uuid.UUID) (*domain.InstallmentPlan, []*domain.InstallmentPayment, error)
}
