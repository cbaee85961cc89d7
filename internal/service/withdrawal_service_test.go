package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/internal/core/ports/mocks"
	"marketplace-settlement/pkg/apperror"
)

type withdrawalTestDeps struct {
	svc        *WithdrawalService
	transactor *mocks.MockDBTransactor
	payoutRepo *mocks.MockPayoutRepository
	ledger     *mocks.MockWithdrawalLedger
	pins       *mocks.MockPinService
	notifier   *mocks.MockNotificationDispatcher
	ctrl       *gomock.Controller
}

func setupWithdrawalService(t *testing.T) *withdrawalTestDeps {
	ctrl := gomock.NewController(t)
	d := &withdrawalTestDeps{
		transactor: mocks.NewMockDBTransactor(ctrl),
		payoutRepo: mocks.NewMockPayoutRepository(ctrl),
		ledger:     mocks.NewMockWithdrawalLedger(ctrl),
		pins:       mocks.NewMockPinService(ctrl),
		notifier:   mocks.NewMockNotificationDispatcher(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWithdrawalService(
		d.transactor, d.payoutRepo, d.ledger, d.pins, d.notifier, zerolog.Nop(),
	)
	return d
}

func validWithdrawalInput(requesterID uuid.UUID) ports.CreateWithdrawalInput {
	return ports.CreateWithdrawalInput{
		RequesterID:   requesterID,
		Amount:        decimal.RequireFromString("150.00"),
		Pin:           "4821",
		BankName:      "First Bank",
		AccountNumber: "0123456789",
		AccountName:   "Ada Obi",
	}
}

func TestWithdrawalService_Validate_Passes(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	amount := decimal.RequireFromString("150.00")

	d.pins.EXPECT().RequireConfigured(ctx, userID).Return(nil)
	d.ledger.EXPECT().Balance(ctx, userID).Return(decimal.RequireFromString("500.00"), nil)

	require.NoError(t, d.svc.Validate(ctx, userID, amount))
}

func TestWithdrawalService_Validate_PinNotConfigured(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	// The balance is never read when the PIN gate fails.
	d.pins.EXPECT().RequireConfigured(ctx, userID).Return(apperror.ErrPinNotConfigured())

	err := d.svc.Validate(ctx, userID, decimal.RequireFromString("150.00"))
	assertAppCode(t, err, "AUTH_001")
}

func TestWithdrawalService_Validate_NonPositiveAmount(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.pins.EXPECT().RequireConfigured(ctx, userID).Return(nil)

	err := d.svc.Validate(ctx, userID, decimal.Zero)
	assertAppCode(t, err, "VAL_002")
}

func TestWithdrawalService_Validate_InsufficientFunds(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.pins.EXPECT().RequireConfigured(ctx, userID).Return(nil)
	d.ledger.EXPECT().Balance(ctx, userID).Return(decimal.RequireFromString("99.99"), nil)

	err := d.svc.Validate(ctx, userID, decimal.RequireFromString("100.00"))
	assertAppCode(t, err, "PAY_001")
}

func TestWithdrawalService_CreateRequest_Success(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	in := validWithdrawalInput(userID)

	d.pins.EXPECT().VerifyPin(ctx, userID, "4821").Return(nil)
	d.payoutRepo.EXPECT().GetByReference(ctx, gomock.Any()).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledger.EXPECT().
		DebitInTx(ctx, tx, userID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, _ uuid.UUID, amount decimal.Decimal, source string) error {
			assert.True(t, amount.Equal(in.Amount))
			assert.Contains(t, source, "WTH-")
			return nil
		})
	d.payoutRepo.EXPECT().
		Create(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, req *domain.PayoutRequest) error {
			assert.Equal(t, domain.PayoutPending, req.Status)
			assert.True(t, domain.IsWithdrawalReference(req.Reference))
			require.NotNil(t, req.UserID)
			assert.Equal(t, userID, *req.UserID)
			assert.Nil(t, req.VendorID)
			return nil
		})
	d.notifier.EXPECT().PublishWithdrawalReview(ctx, gomock.Any()).Return(nil)

	req, err := d.svc.CreateRequest(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutPending, req.Status)
	assert.True(t, domain.IsWithdrawalReference(req.Reference))
}

func TestWithdrawalService_CreateRequest_VendorRequester(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	tx := &mockTx{}
	in := validWithdrawalInput(vendorID)
	in.IsVendor = true

	d.pins.EXPECT().VerifyPin(ctx, vendorID, "4821").Return(nil)
	d.payoutRepo.EXPECT().GetByReference(ctx, gomock.Any()).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledger.EXPECT().DebitInTx(ctx, tx, vendorID, gomock.Any(), gomock.Any()).Return(nil)
	d.payoutRepo.EXPECT().
		Create(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, req *domain.PayoutRequest) error {
			require.NotNil(t, req.VendorID)
			assert.Equal(t, vendorID, *req.VendorID)
			assert.Nil(t, req.UserID)
			assert.True(t, req.HasValidRequester())
			return nil
		})
	d.notifier.EXPECT().PublishWithdrawalReview(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.CreateRequest(ctx, in)
	require.NoError(t, err)
}

func TestWithdrawalService_CreateRequest_InvalidAmount(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	in := validWithdrawalInput(uuid.New())
	in.Amount = decimal.Zero

	_, err := d.svc.CreateRequest(context.Background(), in)
	assertAppCode(t, err, "VAL_002")
}

func TestWithdrawalService_CreateRequest_PinRejected(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	in := validWithdrawalInput(userID)

	// Wallet is never touched when the PIN fails.
	d.pins.EXPECT().VerifyPin(ctx, userID, "4821").Return(apperror.ErrDefaultPin())

	_, err := d.svc.CreateRequest(ctx, in)
	assertAppCode(t, err, "AUTH_002")
}

func TestWithdrawalService_CreateRequest_InsufficientFunds(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	in := validWithdrawalInput(userID)

	d.pins.EXPECT().VerifyPin(ctx, userID, "4821").Return(nil)
	d.payoutRepo.EXPECT().GetByReference(ctx, gomock.Any()).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledger.EXPECT().DebitInTx(ctx, tx, userID, gomock.Any(), gomock.Any()).Return(apperror.ErrInsufficientFunds())
	// No payout row is created.

	_, err := d.svc.CreateRequest(ctx, in)
	assertAppCode(t, err, "PAY_001")
}

func TestWithdrawalService_CreateRequest_ReferenceCollisionRetries(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	in := validWithdrawalInput(userID)

	taken := &domain.PayoutRequest{ID: uuid.New()}

	d.pins.EXPECT().VerifyPin(ctx, userID, "4821").Return(nil)
	// First candidate collides, second is free.
	gomock.InOrder(
		d.payoutRepo.EXPECT().GetByReference(ctx, gomock.Any()).Return(taken, nil),
		d.payoutRepo.EXPECT().GetByReference(ctx, gomock.Any()).Return(nil, nil),
	)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledger.EXPECT().DebitInTx(ctx, tx, userID, gomock.Any(), gomock.Any()).Return(nil)
	d.payoutRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.notifier.EXPECT().PublishWithdrawalReview(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.CreateRequest(ctx, in)
	require.NoError(t, err)
}

func TestWithdrawalService_Approve_Success(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	payoutID := uuid.New()
	tx := &mockTx{}

	pending := &domain.PayoutRequest{
		ID:        payoutID,
		UserID:    &userID,
		Amount:    decimal.RequireFromString("150.00"),
		Status:    domain.PayoutPending,
		Reference: "WTH-AAAAAAAAAA",
	}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payoutRepo.EXPECT().GetByIDForUpdate(ctx, tx, payoutID).Return(pending, nil)
	// Approval moves money nowhere; it was reserved at creation.
	d.payoutRepo.EXPECT().
		UpdateStatus(ctx, tx, payoutID, domain.PayoutProcessing, nil, gomock.Any()).
		Return(nil)
	d.notifier.EXPECT().Notify(ctx, userID, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	req, err := d.svc.Approve(ctx, payoutID, "verified against bank records")
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutProcessing, req.Status)
	require.NotNil(t, req.ProcessedAt)
	require.NotNil(t, req.AdminNotes)
}

func TestWithdrawalService_Approve_AlreadyDecided(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payoutID := uuid.New()
	userID := uuid.New()
	tx := &mockTx{}
	now := time.Now()

	decided := &domain.PayoutRequest{
		ID:          payoutID,
		UserID:      &userID,
		Status:      domain.PayoutFailed,
		Reference:   "WTH-BBBBBBBBBB",
		ProcessedAt: &now,
	}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payoutRepo.EXPECT().GetByIDForUpdate(ctx, tx, payoutID).Return(decided, nil)

	_, err := d.svc.Approve(ctx, payoutID, "")
	assertAppCode(t, err, "CON_001")
}

func TestWithdrawalService_Reject_RefundsWallet(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	payoutID := uuid.New()
	tx := &mockTx{}
	amount := decimal.RequireFromString("150.00")

	pending := &domain.PayoutRequest{
		ID:        payoutID,
		UserID:    &userID,
		Amount:    amount,
		Status:    domain.PayoutPending,
		Reference: "WTH-CCCCCCCCCC",
	}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payoutRepo.EXPECT().GetByIDForUpdate(ctx, tx, payoutID).Return(pending, nil)
	d.ledger.EXPECT().
		CreditInTx(ctx, tx, userID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, _ uuid.UUID, refund decimal.Decimal, source string) error {
			assert.True(t, refund.Equal(amount))
			assert.Contains(t, source, "WTH-CCCCCCCCCC")
			return nil
		})
	d.payoutRepo.EXPECT().
		UpdateStatus(ctx, tx, payoutID, domain.PayoutFailed, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, _ uuid.UUID, _ domain.PayoutStatus, reason *string, _ *time.Time) error {
			require.NotNil(t, reason)
			assert.Equal(t, "account name mismatch", *reason)
			return nil
		})
	d.notifier.EXPECT().Notify(ctx, userID, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	req, err := d.svc.Reject(ctx, payoutID, "account name mismatch")
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutFailed, req.Status)
}

func TestWithdrawalService_Reject_RequiresReason(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Reject(context.Background(), uuid.New(), "")
	assertAppCode(t, err, "VAL_001")
}

func TestWithdrawalService_Cancel_RefundsRequester(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	vendorID := uuid.New()
	payoutID := uuid.New()
	tx := &mockTx{}
	amount := decimal.RequireFromString("80.00")

	pending := &domain.PayoutRequest{
		ID:        payoutID,
		VendorID:  &vendorID,
		Amount:    amount,
		Status:    domain.PayoutPending,
		Reference: "WTH-DDDDDDDDDD",
	}

	d.payoutRepo.EXPECT().GetByID(ctx, payoutID).Return(pending, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payoutRepo.EXPECT().GetByIDForUpdate(ctx, tx, payoutID).Return(pending, nil)
	d.ledger.EXPECT().CreditInTx(ctx, tx, vendorID, gomock.Any(), gomock.Any()).Return(nil)
	d.payoutRepo.EXPECT().UpdateStatus(ctx, tx, payoutID, domain.PayoutCancelled, nil, gomock.Any()).Return(nil)
	d.notifier.EXPECT().Notify(ctx, vendorID, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	req, err := d.svc.Cancel(ctx, payoutID, vendorID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutCancelled, req.Status)
}

func TestWithdrawalService_Cancel_NotOwner(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()
	payoutID := uuid.New()

	pending := &domain.PayoutRequest{
		ID:     payoutID,
		UserID: &ownerID,
		Status: domain.PayoutPending,
	}

	d.payoutRepo.EXPECT().GetByID(ctx, payoutID).Return(pending, nil)

	_, err := d.svc.Cancel(ctx, payoutID, uuid.New())
	assertAppCode(t, err, "AUTH_005")
}

func TestWithdrawalService_Cancel_ProcessingCannotBeCancelled(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	payoutID := uuid.New()
	tx := &mockTx{}

	processing := &domain.PayoutRequest{
		ID:     payoutID,
		UserID: &userID,
		Status: domain.PayoutProcessing,
	}

	d.payoutRepo.EXPECT().GetByID(ctx, payoutID).Return(processing, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payoutRepo.EXPECT().GetByIDForUpdate(ctx, tx, payoutID).Return(processing, nil)

	_, err := d.svc.Cancel(ctx, payoutID, userID)
	assertAppCode(t, err, "CON_001")
}
