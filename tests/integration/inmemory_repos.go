package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- Locking Transactor ---

// lockingTransactor serializes transactions with a single mutex, standing in
// for the row-level locks the real repositories take with FOR UPDATE.
type lockingTransactor struct {
	mu sync.Mutex
}

func newLockingTransactor() *lockingTransactor {
	return &lockingTransactor{}
}

func (t *lockingTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &memTx{release: t.mu.Unlock}, nil
}

// memTx is a pgx.Tx that releases the transactor lock exactly once, whether
// committed or rolled back.
type memTx struct {
	release func()
	once    sync.Once
}

func (t *memTx) done() {
	t.once.Do(t.release)
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet // keyed by wallet ID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.ID] = w
	return nil
}

func (r *inMemoryWalletRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerID == ownerID {
			return w, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByOwnerIDForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByOwnerID(ctx, ownerID)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	w.Balance = balance
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// --- In-Memory Ledger Entry Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []*domain.WalletTransaction
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *inMemoryLedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	// Newest first, matching the SQL ordering.
	var all []*domain.WalletTransaction
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].WalletID == walletID {
			all = append(all, r.entries[i])
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// --- In-Memory Payout Repo ---

type inMemoryPayoutRepo struct {
	mu      sync.RWMutex
	payouts map[uuid.UUID]*domain.PayoutRequest
}

func newInMemoryPayoutRepo() *inMemoryPayoutRepo {
	return &inMemoryPayoutRepo{payouts: make(map[uuid.UUID]*domain.PayoutRequest)}
}

func (r *inMemoryPayoutRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.PayoutRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payouts {
		if p.Reference == req.Reference {
			return apperror.ErrDuplicateReference()
		}
	}
	r.payouts[req.ID] = req
	return nil
}

func (r *inMemoryPayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payouts[id]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (r *inMemoryPayoutRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PayoutRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryPayoutRepo) GetByReference(ctx context.Context, reference string) (*domain.PayoutRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payouts {
		if p.Reference == reference {
			return p, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPayoutRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, failureReason *string, processedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return fmt.Errorf("payout not found: %s", id)
	}
	p.Status = status
	p.FailureReason = failureReason
	p.ProcessedAt = processedAt
	return nil
}

func (r *inMemoryPayoutRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*domain.PayoutRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*domain.PayoutRequest
	for _, p := range r.payouts {
		if p.RequesterID() == requesterID {
			result = append(result, p)
		}
	}
	if offset >= len(result) {
		return nil, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

// --- In-Memory Payment PIN Repo ---

type inMemoryPinRepo struct {
	mu   sync.RWMutex
	pins map[uuid.UUID]*domain.PaymentPin // keyed by user ID
}

func newInMemoryPinRepo() *inMemoryPinRepo {
	return &inMemoryPinRepo{pins: make(map[uuid.UUID]*domain.PaymentPin)}
}

func (r *inMemoryPinRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.PaymentPin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pins[userID]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (r *inMemoryPinRepo) Upsert(ctx context.Context, pin *domain.PaymentPin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pins[pin.UserID] = pin
	return nil
}

// --- In-Memory Installment Repo ---

type inMemoryInstallmentRepo struct {
	mu       sync.RWMutex
	plans    map[uuid.UUID]*domain.InstallmentPlan
	payments map[uuid.UUID]*domain.InstallmentPayment
}

func newInMemoryInstallmentRepo() *inMemoryInstallmentRepo {
	return &inMemoryInstallmentRepo{
		plans:    make(map[uuid.UUID]*domain.InstallmentPlan),
		payments: make(map[uuid.UUID]*domain.InstallmentPayment),
	}
}

func (r *inMemoryInstallmentRepo) CreatePlan(ctx context.Context, plan *domain.InstallmentPlan, payments []*domain.InstallmentPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// One plan per order, like the unique index on order_id.
	for _, existing := range r.plans {
		if existing.OrderID == plan.OrderID {
			return apperror.Conflict("Order already has an installment plan")
		}
	}
	r.plans[plan.ID] = plan
	for _, p := range payments {
		r.payments[p.ID] = p
	}
	return nil
}

func (r *inMemoryInstallmentRepo) GetPlanByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (r *inMemoryInstallmentRepo) GetPlanByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.InstallmentPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plans {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return nil, nil
}

func (r *inMemoryInstallmentRepo) GetPlanByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.InstallmentPlan, error) {
	return r.GetPlanByID(ctx, id)
}

func (r *inMemoryInstallmentRepo) GetPaymentByReference(ctx context.Context, reference string) (*domain.InstallmentPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if p.Reference == reference {
			return p, nil
		}
	}
	return nil, nil
}

func (r *inMemoryInstallmentRepo) GetPaymentByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.InstallmentPayment, error) {
	return r.GetPaymentByReference(ctx, reference)
}

func (r *inMemoryInstallmentRepo) ListPayments(ctx context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*domain.InstallmentPayment
	for _, p := range r.payments {
		if p.PlanID == planID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *inMemoryInstallmentRepo) CountUnpaid(ctx context.Context, tx pgx.Tx, planID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, p := range r.payments {
		if p.PlanID == planID && p.Status != domain.InstallmentPaid {
			count++
		}
	}
	return count, nil
}

func (r *inMemoryInstallmentRepo) MarkPaymentPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return fmt.Errorf("payment not found: %s", id)
	}
	p.Status = domain.InstallmentPaid
	p.PaidAt = &paidAt
	p.Verified = true
	return nil
}

func (r *inMemoryInstallmentRepo) MarkVendorsCredited(ctx context.Context, tx pgx.Tx, planID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[planID]
	if !ok || p.VendorsCredited {
		return fmt.Errorf("plan %s already credited or missing", planID)
	}
	p.VendorsCredited = true
	p.Status = domain.PlanCompleted
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryInstallmentRepo) UpdatePlanStatus(ctx context.Context, planID uuid.UUID, status domain.PlanStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[planID]
	if !ok {
		return fmt.Errorf("plan not found: %s", planID)
	}
	p.Status = status
	return nil
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
	items  map[uuid.UUID][]*domain.OrderItem
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{
		orders: make(map[uuid.UUID]*domain.Order),
		items:  make(map[uuid.UUID][]*domain.OrderItem),
	}
}

func (r *inMemoryOrderRepo) seed(order *domain.Order, items []*domain.OrderItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	r.items[order.ID] = items
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return o, nil
}

func (r *inMemoryOrderRepo) ListItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[orderID], nil
}

func (r *inMemoryOrderRepo) MarkPaid(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	o.PaymentStatus = "PAID"
	return nil
}

// --- Fake Payment Gateway ---

// fakeGateway implements ports.PaymentGateway with programmable verification
// results per reference.
type fakeGateway struct {
	mu            sync.Mutex
	verifications map[string]*ports.GatewayVerification
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{verifications: make(map[string]*ports.GatewayVerification)}
}

// succeed registers a successful charge for the reference.
func (g *fakeGateway) succeed(reference, currency string, amountMinor int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifications[reference] = &ports.GatewayVerification{
		Status:      "success",
		Currency:    currency,
		AmountMinor: amountMinor,
		PaidAt:      time.Now().UTC(),
	}
}

func (g *fakeGateway) Initialize(ctx context.Context, email, reference string, amount decimal.Decimal) (*ports.GatewayCheckout, error) {
	return &ports.GatewayCheckout{
		AuthorizationURL: "https://checkout.test/" + reference,
		AccessCode:       "ac_" + reference,
		Reference:        reference,
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (*ports.GatewayVerification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.verifications[reference]; ok {
		return v, nil
	}
	return &ports.GatewayVerification{Status: "failed"}, nil
}
