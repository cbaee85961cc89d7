package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
)

// referenceAttempts bounds the collision retry loop when generating a
// withdrawal reference. The keyspace is 36^10 so more than one retry is
// already extraordinary.
const referenceAttempts = 5

// WithdrawalService runs the withdrawal lifecycle. The wallet is debited
// the moment a request is created, in the same transaction as the request
// row, so pending requests always represent money already reserved.
// Rejection and cancellation refund the reserved amount the same way.
type WithdrawalService struct {
	transactor ports.DBTransactor
	payoutRepo ports.PayoutRepository
	ledger     ports.WithdrawalLedger
	pins       ports.PinService
	notifier   ports.NotificationDispatcher
	logger     zerolog.Logger
}

// NewWithdrawalService creates a new withdrawal service.
func NewWithdrawalService(
	transactor ports.DBTransactor,
	payoutRepo ports.PayoutRepository,
	ledger ports.WithdrawalLedger,
	pins ports.PinService,
	notifier ports.NotificationDispatcher,
	logger zerolog.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		transactor: transactor,
		payoutRepo: payoutRepo,
		ledger:     ledger,
		pins:       pins,
		notifier:   notifier,
		logger:     logger.With().Str("component", "withdrawal_service").Logger(),
	}
}

// Validate pre-checks a withdrawal without moving money: the requester must
// have replaced the default PIN, the amount must be positive, and the
// current balance must cover it. CreateRequest re-enforces all of this
// under the debit lock, so a passing pre-check is advisory, not a
// reservation.
func (s *WithdrawalService) Validate(ctx context.Context, requesterID uuid.UUID, amount decimal.Decimal) error {
	if err := s.pins.RequireConfigured(ctx, requesterID); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}

	balance, err := s.ledger.Balance(ctx, requesterID)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return apperror.ErrInsufficientFunds()
	}
	return nil
}

// CreateRequest validates, authorizes with the requester's PIN, debits the
// wallet, and records the pending request atomically.
func (s *WithdrawalService) CreateRequest(ctx context.Context, in ports.CreateWithdrawalInput) (*domain.PayoutRequest, error) {
	if !in.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if in.BankName == "" || in.AccountNumber == "" || in.AccountName == "" {
		return nil, apperror.Validation("Bank name, account number and account name are required")
	}

	if err := s.pins.VerifyPin(ctx, in.RequesterID, in.Pin); err != nil {
		return nil, err
	}

	reference, err := s.newUniqueReference(ctx)
	if err != nil {
		return nil, err
	}

	req := &domain.PayoutRequest{
		ID:            uuid.New(),
		Amount:        in.Amount,
		Status:        domain.PayoutPending,
		Reference:     reference,
		BankName:      in.BankName,
		AccountNumber: in.AccountNumber,
		AccountName:   in.AccountName,
		CreatedAt:     time.Now().UTC(),
	}
	if in.IsVendor {
		req.VendorID = &in.RequesterID
	} else {
		req.UserID = &in.RequesterID
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	defer tx.Rollback(ctx)

	if err := s.ledger.DebitInTx(ctx, tx, in.RequesterID, in.Amount, "Withdrawal "+reference); err != nil {
		return nil, err
	}
	if err := s.payoutRepo.Create(ctx, tx, req); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.logger.Info().
		Str("payout_id", req.ID.String()).
		Str("reference", reference).
		Str("amount", in.Amount.String()).
		Msg("withdrawal request created")

	// Review events and notices are best effort; the request stands either
	// way.
	event := ports.WithdrawalReviewEvent{
		PayoutID:    req.ID,
		RequesterID: in.RequesterID,
		Reference:   reference,
		Amount:      in.Amount,
		BankName:    in.BankName,
		RequestedAt: req.CreatedAt,
	}
	if err := s.notifier.PublishWithdrawalReview(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("reference", reference).Msg("publishing withdrawal review event failed")
	}

	return req, nil
}

// Approve moves a pending request to processing. The money was already
// reserved at creation, so approval only advances state.
func (s *WithdrawalService) Approve(ctx context.Context, payoutID uuid.UUID, adminNotes string) (*domain.PayoutRequest, error) {
	return s.decide(ctx, payoutID, domain.PayoutProcessing, adminNotes, "")
}

// Reject moves a pending request to failed and refunds the reserved amount.
func (s *WithdrawalService) Reject(ctx context.Context, payoutID uuid.UUID, reason string) (*domain.PayoutRequest, error) {
	if reason == "" {
		return nil, apperror.Validation("A rejection reason is required")
	}
	return s.decide(ctx, payoutID, domain.PayoutFailed, "", reason)
}

// Cancel lets the requester withdraw a still-pending request, refunding the
// reserved amount.
func (s *WithdrawalService) Cancel(ctx context.Context, payoutID, requesterID uuid.UUID) (*domain.PayoutRequest, error) {
	existing, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperror.ErrNotFound("Withdrawal request")
	}
	if existing.RequesterID() != requesterID {
		return nil, apperror.ErrForbidden()
	}
	return s.decide(ctx, payoutID, domain.PayoutCancelled, "", "")
}

// Get returns one withdrawal request.
func (s *WithdrawalService) Get(ctx context.Context, payoutID uuid.UUID) (*domain.PayoutRequest, error) {
	req, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperror.ErrNotFound("Withdrawal request")
	}
	return req, nil
}

// ListByRequester returns the requester's withdrawal history, newest first.
func (s *WithdrawalService) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*domain.PayoutRequest, error) {
	return s.payoutRepo.ListByRequester(ctx, requesterID, limit, offset)
}

// decide applies a terminal-or-forward decision to a pending request under
// a row lock, refunding when the decision releases the reserved funds.
func (s *WithdrawalService) decide(ctx context.Context, payoutID uuid.UUID, to domain.PayoutStatus, adminNotes, failureReason string) (*domain.PayoutRequest, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	defer tx.Rollback(ctx)

	req, err := s.payoutRepo.GetByIDForUpdate(ctx, tx, payoutID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperror.ErrNotFound("Withdrawal request")
	}
	if !req.Status.CanTransition(to) {
		return nil, apperror.Conflict(fmt.Sprintf("Withdrawal %s is %s and cannot become %s", req.Reference, req.Status, to))
	}

	refund := to == domain.PayoutFailed || to == domain.PayoutCancelled
	if refund {
		if err := s.ledger.CreditInTx(ctx, tx, req.RequesterID(), req.Amount, "Withdrawal Refund "+req.Reference); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	var reasonPtr *string
	if failureReason != "" {
		reasonPtr = &failureReason
	}
	if err := s.payoutRepo.UpdateStatus(ctx, tx, req.ID, to, reasonPtr, &now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	req.Status = to
	req.FailureReason = reasonPtr
	req.ProcessedAt = &now
	if adminNotes != "" {
		req.AdminNotes = &adminNotes
	}

	s.logger.Info().
		Str("payout_id", req.ID.String()).
		Str("reference", req.Reference).
		Str("status", string(to)).
		Msg("withdrawal request decided")

	s.notifyDecision(ctx, req)
	return req, nil
}

func (s *WithdrawalService) notifyDecision(ctx context.Context, req *domain.PayoutRequest) {
	var title, message string
	switch req.Status {
	case domain.PayoutProcessing:
		title = "Withdrawal approved"
		message = fmt.Sprintf("Your withdrawal %s of %s is being processed.", req.Reference, req.Amount)
	case domain.PayoutFailed:
		reason := ""
		if req.FailureReason != nil {
			reason = *req.FailureReason
		}
		title = "Withdrawal rejected"
		message = fmt.Sprintf("Your withdrawal %s was rejected and refunded: %s", req.Reference, reason)
	case domain.PayoutCancelled:
		title = "Withdrawal cancelled"
		message = fmt.Sprintf("Your withdrawal %s was cancelled and refunded.", req.Reference)
	default:
		return
	}

	meta := map[string]string{"reference": req.Reference, "status": string(req.Status)}
	if err := s.notifier.Notify(ctx, req.RequesterID(), title, message, meta); err != nil {
		s.logger.Warn().Err(err).Str("reference", req.Reference).Msg("decision notification failed")
	}
}

// newUniqueReference generates a reference and checks it against existing
// requests. The unique index on reference is the real guarantee; this loop
// only keeps the common path free of constraint errors.
func (s *WithdrawalService) newUniqueReference(ctx context.Context) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		ref := domain.NewWithdrawalReference()
		existing, err := s.payoutRepo.GetByReference(ctx, ref)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return ref, nil
		}
	}
	return "", apperror.ErrDuplicateReference()
}
