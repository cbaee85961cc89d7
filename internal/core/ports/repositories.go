package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"marketplace-settlement/internal/core/domain"
)

// DBTransactor begins database transactions. Services own the transaction
// lifecycle; repositories receive the open tx for operations that must share
// locks.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WalletRepository persists wallets.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	// GetByOwnerIDForUpdate loads the wallet row with a row-level lock held
	// for the duration of tx.
	GetByOwnerIDForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
}

// LedgerEntryRepository persists the append-only wallet transaction log.
type LedgerEntryRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.WalletTransaction, error)
}

// PayoutRepository persists withdrawal requests.
type PayoutRepository interface {
	Create(ctx context.Context, tx pgx.Tx, req *domain.PayoutRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PayoutRequest, error)
	GetByReference(ctx context.Context, reference string) (*domain.PayoutRequest, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, failureReason *string, processedAt *time.Time) error
	ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*domain.PayoutRequest, error)
}

// PaymentPinRepository persists hashed transaction PINs.
type PaymentPinRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.PaymentPin, error)
	Upsert(ctx context.Context, pin *domain.PaymentPin) error
}

// InstallmentRepository persists installment plans and their scheduled
// payments.
type InstallmentRepository interface {
	CreatePlan(ctx context.Context, plan *domain.InstallmentPlan, payments []*domain.InstallmentPayment) error
	GetPlanByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error)
	GetPlanByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.InstallmentPlan, error)
	GetPlanByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.InstallmentPlan, error)
	GetPaymentByReference(ctx context.Context, reference string) (*domain.InstallmentPayment, error)
	GetPaymentByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.InstallmentPayment, error)
	ListPayments(ctx context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error)
	CountUnpaid(ctx context.Context, tx pgx.Tx, planID uuid.UUID) (int, error)
	MarkPaymentPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time) error
	// MarkVendorsCredited sets the plan's vendors_credited flag and moves it
	// to COMPLETED. Must run inside the same tx that verified the flag was
	// unset.
	MarkVendorsCredited(ctx context.Context, tx pgx.Tx, planID uuid.UUID) error
	UpdatePlanStatus(ctx context.Context, planID uuid.UUID, status domain.PlanStatus) error
}

// OrderRepository reads orders placed by the storefront.
type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error)
	MarkPaid(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error
}
