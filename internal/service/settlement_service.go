package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
)

// settlementCacheTTL bounds how long a verified result short-circuits
// repeat webhook deliveries for the same reference.
const settlementCacheTTL = 24 * time.Hour

// SettlementConfig carries the tunables of the settlement engine.
type SettlementConfig struct {
	// CommissionRate is the platform's cut of each item subtotal,
	// e.g. 0.10 for 10%.
	CommissionRate decimal.Decimal
	// Currency is the ISO code every gateway charge must settle in.
	Currency string
	// InstallmentInterval separates consecutive due dates.
	InstallmentInterval time.Duration
	// GatewayTimeout bounds each outbound verification call.
	GatewayTimeout time.Duration
}

// SettlementService creates installment plans and settles installment
// payments against the gateway. Settlement is idempotent per reference and
// vendor crediting happens exactly once per plan, guarded by the plan's
// vendors_credited flag under a row lock.
type SettlementService struct {
	transactor      ports.DBTransactor
	installmentRepo ports.InstallmentRepository
	orderRepo       ports.OrderRepository
	ledger          ports.TxLedger
	gateway         ports.PaymentGateway
	cache           ports.SettlementCache
	notifier        ports.NotificationDispatcher
	cfg             SettlementConfig
	logger          zerolog.Logger
}

// NewSettlementService creates a new settlement service.
func NewSettlementService(
	transactor ports.DBTransactor,
	installmentRepo ports.InstallmentRepository,
	orderRepo ports.OrderRepository,
	ledger ports.TxLedger,
	gateway ports.PaymentGateway,
	cache ports.SettlementCache,
	notifier ports.NotificationDispatcher,
	cfg SettlementConfig,
	logger zerolog.Logger,
) *SettlementService {
	return &SettlementService{
		transactor:      transactor,
		installmentRepo: installmentRepo,
		orderRepo:       orderRepo,
		ledger:          ledger,
		gateway:         gateway,
		cache:           cache,
		notifier:        notifier,
		cfg:             cfg,
		logger:          logger.With().Str("component", "settlement_service").Logger(),
	}
}

// CreatePlan splits the order total into scheduled installments and opens a
// gateway checkout for the first one. Each installment gets a fixed
// reference at creation time so later payments can be verified
// independently.
func (s *SettlementService) CreatePlan(ctx context.Context, in ports.CreatePlanInput) (*ports.CreatePlanOutput, error) {
	count, ok := in.Duration.InstallmentCount()
	if !ok {
		return nil, apperror.ErrInvalidDuration()
	}

	order, err := s.orderRepo.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	if !order.TotalPrice.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	existing, err := s.installmentRepo.GetPlanByOrderID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("Order already has an installment plan")
	}

	now := time.Now().UTC()
	amounts := domain.SplitInstallments(order.TotalPrice, count)

	plan := &domain.InstallmentPlan{
		ID:                uuid.New(),
		OrderID:           order.ID,
		Duration:          in.Duration,
		TotalAmount:       order.TotalPrice,
		InstallmentAmount: amounts[0],
		InstallmentCount:  count,
		Status:            domain.PlanActive,
		StartDate:         now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	payments := make([]*domain.InstallmentPayment, count)
	for i := 0; i < count; i++ {
		payments[i] = &domain.InstallmentPayment{
			ID:            uuid.New(),
			PlanID:        plan.ID,
			PaymentNumber: i + 1,
			Amount:        amounts[i],
			Status:        domain.InstallmentPending,
			DueDate:       now.Add(time.Duration(i) * s.cfg.InstallmentInterval),
			Reference:     domain.InstallmentReference(order.ID, i+1),
			CreatedAt:     now,
		}
	}

	if err := s.installmentRepo.CreatePlan(ctx, plan, payments); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("plan_id", plan.ID.String()).
		Str("order_id", order.ID.String()).
		Int("installments", count).
		Str("total", order.TotalPrice.String()).
		Msg("installment plan created")

	out := &ports.CreatePlanOutput{Plan: plan, Payments: payments}

	// The plan stands even when the checkout cannot be opened; the client
	// can re-initialize the first installment later.
	checkout, err := s.gateway.Initialize(ctx, in.CustomerEmail, payments[0].Reference, payments[0].Amount)
	if err != nil {
		s.logger.Warn().Err(err).Str("plan_id", plan.ID.String()).Msg("initializing first installment checkout failed")
		return out, nil
	}
	out.Checkout = checkout
	return out, nil
}

// VerifyAndSettle confirms one installment payment with the gateway and
// applies its effects. Safe to call any number of times per reference: paid
// payments short-circuit, and vendor crediting is guarded by the plan's
// vendors_credited flag under the plan row lock.
func (s *SettlementService) VerifyAndSettle(ctx context.Context, reference string) (*domain.SettlementResult, error) {
	if cached, err := s.cache.Get(ctx, reference); err == nil && cached != nil {
		cached.Duplicate = true
		return cached, nil
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	defer tx.Rollback(ctx)

	payment, err := s.installmentRepo.GetPaymentByReferenceForUpdate(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperror.ErrNotFound("Installment payment")
	}

	result := &domain.SettlementResult{
		Reference:     reference,
		PlanID:        payment.PlanID,
		PaymentNumber: payment.PaymentNumber,
		Amount:        payment.Amount,
	}

	if payment.Status == domain.InstallmentPaid {
		result.Settled = true
		result.Duplicate = true
		result.GatewayStatus = "success"
		return result, nil
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	verification, err := s.gateway.Verify(gwCtx, reference)
	if err != nil {
		return nil, apperror.ErrGateway(err)
	}

	result.GatewayStatus = verification.Status
	if !s.chargeMatches(payment, verification) {
		// Not settled, but also not an error surfaced to the caller: the
		// webhook gets a generic ack so a mismatched charge cannot be
		// probed, and the payment stays pending for a clean retry.
		s.logger.Warn().
			Str("reference", reference).
			Str("gateway_status", verification.Status).
			Str("gateway_currency", verification.Currency).
			Int64("gateway_amount_minor", verification.AmountMinor).
			Str("expected", payment.Amount.String()).
			Msg("gateway charge does not match installment")
		return result, nil
	}

	paidAt := verification.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	if err := s.installmentRepo.MarkPaymentPaid(ctx, tx, payment.ID, paidAt); err != nil {
		return nil, err
	}
	result.Settled = true

	plan, err := s.installmentRepo.GetPlanByIDForUpdate(ctx, tx, payment.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apperror.ErrNotFound("Installment plan")
	}

	unpaid, err := s.installmentRepo.CountUnpaid(ctx, tx, plan.ID)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	if unpaid == 0 && !plan.VendorsCredited {
		order, err = s.settlePlanInTx(ctx, tx, plan)
		if err != nil {
			return nil, err
		}
		result.PlanCompleted = true
		result.VendorsCredited = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.logger.Info().
		Str("reference", reference).
		Str("plan_id", plan.ID.String()).
		Bool("plan_completed", result.PlanCompleted).
		Msg("installment payment settled")

	if err := s.cache.Set(ctx, reference, result, settlementCacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("reference", reference).Msg("caching settlement result failed")
	}
	if result.PlanCompleted && order != nil {
		s.notifyCompletion(ctx, order, plan)
	}

	return result, nil
}

// GetPlan returns a plan with its scheduled payments.
func (s *SettlementService) GetPlan(ctx context.Context, planID uuid.UUID) (*domain.InstallmentPlan, []*domain.InstallmentPayment, error) {
	plan, err := s.installmentRepo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, apperror.ErrNotFound("Installment plan")
	}

	payments, err := s.installmentRepo.ListPayments(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	return plan, payments, nil
}

// settlePlanInTx credits every vendor their commission-adjusted item
// subtotals, marks the plan credited and completed, and marks the order
// paid. Runs with the plan row lock held; the caller has already verified
// vendors_credited is unset.
func (s *SettlementService) settlePlanInTx(ctx context.Context, tx pgx.Tx, plan *domain.InstallmentPlan) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, plan.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}

	items, err := s.orderRepo.ListItems(ctx, plan.OrderID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		share := domain.VendorShare(item.Subtotal(), s.cfg.CommissionRate)
		source := fmt.Sprintf("Order %s settlement", plan.OrderID)
		if err := s.ledger.CreditInTx(ctx, tx, item.VendorID, share, source); err != nil {
			return nil, err
		}
	}

	if err := s.installmentRepo.MarkVendorsCredited(ctx, tx, plan.ID); err != nil {
		return nil, err
	}
	if err := s.orderRepo.MarkPaid(ctx, tx, plan.OrderID); err != nil {
		return nil, err
	}
	return order, nil
}

// chargeMatches checks the gateway's record against the scheduled
// installment: successful status, exact amount after minor-unit conversion,
// and the configured settlement currency.
func (s *SettlementService) chargeMatches(payment *domain.InstallmentPayment, v *ports.GatewayVerification) bool {
	if v.Status != "success" {
		return false
	}
	if v.Currency != s.cfg.Currency {
		return false
	}
	return domain.FromMinorUnits(v.AmountMinor).Equal(payment.Amount)
}

func (s *SettlementService) notifyCompletion(ctx context.Context, order *domain.Order, plan *domain.InstallmentPlan) {
	meta := map[string]string{"order_id": order.ID.String(), "plan_id": plan.ID.String()}
	msg := fmt.Sprintf("All %d installments for order %s are paid. Vendors have been credited.", plan.InstallmentCount, order.ID)
	if err := s.notifier.Notify(ctx, order.CustomerID, "Installment plan completed", msg, meta); err != nil {
		s.logger.Warn().Err(err).Str("plan_id", plan.ID.String()).Msg("completion notification failed")
	}
}
