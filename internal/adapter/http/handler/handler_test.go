package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-settlement/internal/adapter/http/dto"
	"marketplace-settlement/internal/adapter/http/middleware"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/internal/core/ports/mocks"
	"marketplace-settlement/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthedContext(t *testing.T, method, path string, body []byte, userID uuid.UUID, role string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxUserID, userID)
	c.Set(middleware.CtxRole, role)
	return c, w
}

// --- Wallet Handler Tests ---

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger, mocks.NewMockPinService(ctrl))

	userID := uuid.New()
	mockLedger.EXPECT().Balance(gomock.Any(), userID).Return(decimal.RequireFromString("123.45"), nil)

	c, w := newAuthedContext(t, http.MethodGet, "/api/v1/wallets/balance", nil, userID, "user")
	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "123.45", data["balance"])
	assert.Equal(t, userID.String(), data["owner_id"])
}

func TestGetStatement_Paginates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger, mocks.NewMockPinService(ctrl))

	userID := uuid.New()
	entries := []*domain.WalletTransaction{
		{ID: uuid.New(), Kind: domain.TransactionCredit, Amount: decimal.RequireFromString("50.00"), Source: "Order settlement", CreatedAt: time.Now().UTC()},
	}
	mockLedger.EXPECT().Statement(gomock.Any(), userID, 5, 10).Return(entries, nil)

	c, w := newAuthedContext(t, http.MethodGet, "/api/v1/wallets/statement?limit=5&offset=10", nil, userID, "user")
	h.GetStatement(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(5), data["limit"])
	assert.Len(t, data["entries"], 1)
}

func TestSetPin_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockLedgerService(ctrl), mocks.NewMockPinService(ctrl))

	body, _ := json.Marshal(dto.SetPinRequest{Pin: "12"})
	c, w := newAuthedContext(t, http.MethodPut, "/api/v1/pins", body, uuid.New(), "user")
	h.SetPin(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetPin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPin := mocks.NewMockPinService(ctrl)
	h := NewWalletHandler(mocks.NewMockLedgerService(ctrl), mockPin)

	userID := uuid.New()
	mockPin.EXPECT().SetPin(gomock.Any(), userID, "4821").Return(nil)

	body, _ := json.Marshal(dto.SetPinRequest{Pin: "4821"})
	c, w := newAuthedContext(t, http.MethodPut, "/api/v1/pins", body, userID, "user")
	h.SetPin(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Withdrawal Handler Tests ---

func TestCreateWithdrawal_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	userID := uuid.New()
	amount := decimal.RequireFromString("200.00")
	mockSvc.EXPECT().CreateRequest(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, in ports.CreateWithdrawalInput) (*domain.PayoutRequest, error) {
			assert.Equal(t, userID, in.RequesterID)
			assert.False(t, in.IsVendor)
			assert.True(t, in.Amount.Equal(amount))
			return &domain.PayoutRequest{
				ID:        uuid.New(),
				UserID:    &userID,
				Amount:    amount,
				Status:    domain.PayoutPending,
				Reference: "WTH-A1B2C3D4E5",
				BankName:  in.BankName,
				CreatedAt: time.Now().UTC(),
			}, nil
		})

	body, _ := json.Marshal(dto.WithdrawalRequest{
		Amount:        amount,
		Pin:           "4821",
		BankName:      "First Bank",
		AccountNumber: "0123456789",
		AccountName:   "Ada Obi",
	})
	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/withdrawals", body, userID, "user")
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "WTH-A1B2C3D4E5", data["reference"])
	assert.Equal(t, "pending", data["status"])
}

func TestValidateWithdrawal_Passes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	userID := uuid.New()
	mockSvc.EXPECT().Validate(gomock.Any(), userID, gomock.Any()).DoAndReturn(
		func(_ interface{}, _ uuid.UUID, amount decimal.Decimal) error {
			assert.True(t, amount.Equal(decimal.RequireFromString("75.00")))
			return nil
		})

	body, _ := json.Marshal(dto.ValidateWithdrawalRequest{Amount: decimal.RequireFromString("75.00")})
	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/withdrawals/validate", body, userID, "user")
	h.Validate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["valid"])
}

func TestValidateWithdrawal_PinNotConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	userID := uuid.New()
	mockSvc.EXPECT().Validate(gomock.Any(), userID, gomock.Any()).Return(apperror.ErrPinNotConfigured())

	body, _ := json.Marshal(dto.ValidateWithdrawalRequest{Amount: decimal.RequireFromString("75.00")})
	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/withdrawals/validate", body, userID, "user")
	h.Validate(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AUTH_001", resp["error_code"])
}

func TestCreateWithdrawal_VendorRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	vendorID := uuid.New()
	mockSvc.EXPECT().CreateRequest(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, in ports.CreateWithdrawalInput) (*domain.PayoutRequest, error) {
			assert.True(t, in.IsVendor)
			return &domain.PayoutRequest{ID: uuid.New(), VendorID: &vendorID, Amount: in.Amount, Status: domain.PayoutPending, Reference: "WTH-XXXXXXXXXX", CreatedAt: time.Now().UTC()}, nil
		})

	body, _ := json.Marshal(dto.WithdrawalRequest{
		Amount:        decimal.RequireFromString("50.00"),
		Pin:           "4821",
		BankName:      "GTB",
		AccountNumber: "111",
		AccountName:   "Shop",
	})
	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/withdrawals", body, vendorID, middleware.RoleVendor)
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateWithdrawal_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	mockSvc.EXPECT().CreateRequest(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	body, _ := json.Marshal(dto.WithdrawalRequest{
		Amount:        decimal.RequireFromString("9999.00"),
		Pin:           "4821",
		BankName:      "First Bank",
		AccountNumber: "0123456789",
		AccountName:   "Ada Obi",
	})
	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/withdrawals", body, uuid.New(), "user")
	h.Create(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PAY_001", resp["error_code"])
}

func TestGetWithdrawal_ForbiddenForOtherUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	ownerID := uuid.New()
	payoutID := uuid.New()
	mockSvc.EXPECT().Get(gomock.Any(), payoutID).Return(&domain.PayoutRequest{
		ID:     payoutID,
		UserID: &ownerID,
		Status: domain.PayoutPending,
	}, nil)

	c, w := newAuthedContext(t, http.MethodGet, "/api/v1/withdrawals/"+payoutID.String(), nil, uuid.New(), "user")
	c.Params = gin.Params{{Key: "id", Value: payoutID.String()}}
	h.Get(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetWithdrawal_AdminCanReadAny(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	ownerID := uuid.New()
	payoutID := uuid.New()
	mockSvc.EXPECT().Get(gomock.Any(), payoutID).Return(&domain.PayoutRequest{
		ID:        payoutID,
		UserID:    &ownerID,
		Amount:    decimal.RequireFromString("10.00"),
		Status:    domain.PayoutPending,
		CreatedAt: time.Now().UTC(),
	}, nil)

	c, w := newAuthedContext(t, http.MethodGet, "/api/v1/withdrawals/"+payoutID.String(), nil, uuid.New(), middleware.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: payoutID.String()}}
	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApproveWithdrawal_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockWithdrawalService(ctrl)
	h := NewWithdrawalHandler(mockSvc)

	payoutID := uuid.New()
	now := time.Now().UTC()
	mockSvc.EXPECT().Approve(gomock.Any(), payoutID, "looks good").Return(&domain.PayoutRequest{
		ID:          payoutID,
		Amount:      decimal.RequireFromString("75.00"),
		Status:      domain.PayoutProcessing,
		Reference:   "WTH-0000000001",
		CreatedAt:   now,
		ProcessedAt: &now,
	}, nil)

	body, _ := json.Marshal(dto.ApproveRequest{Notes: "looks good"})
	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/withdrawals/"+payoutID.String()+"/approve", body, uuid.New(), middleware.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: payoutID.String()}}
	h.Approve(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "processing", data["status"])
}

func TestRejectWithdrawal_RequiresReason(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWithdrawalHandler(mocks.NewMockWithdrawalService(ctrl))

	payoutID := uuid.New()
	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/withdrawals/"+payoutID.String()+"/reject", []byte("{}"), uuid.New(), middleware.RoleAdmin)
	c.Params = gin.Params{{Key: "id", Value: payoutID.String()}}
	h.Reject(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelWithdrawal_InvalidID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWithdrawalHandler(mocks.NewMockWithdrawalService(ctrl))

	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/withdrawals/not-a-uuid/cancel", nil, uuid.New(), "user")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	h.Cancel(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Settlement Handler Tests ---

func TestCreatePlan_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSvc)

	orderID := uuid.New()
	planID := uuid.New()
	mockSvc.EXPECT().CreatePlan(gomock.Any(), ports.CreatePlanInput{
		OrderID:       orderID,
		CustomerEmail: "ada@example.com",
		Duration:      domain.DurationThreeMonth,
	}).Return(&ports.CreatePlanOutput{
		Plan: &domain.InstallmentPlan{
			ID:                planID,
			OrderID:           orderID,
			Duration:          domain.DurationThreeMonth,
			TotalAmount:       decimal.RequireFromString("100.00"),
			InstallmentAmount: decimal.RequireFromString("33.33"),
			InstallmentCount:  3,
			Status:            domain.PlanActive,
			StartDate:         time.Now().UTC(),
		},
		Payments: []*domain.InstallmentPayment{
			{ID: uuid.New(), PlanID: planID, PaymentNumber: 1, Amount: decimal.RequireFromString("33.33"), Status: domain.InstallmentPending, Reference: domain.InstallmentReference(orderID, 1), DueDate: time.Now().UTC()},
		},
		Checkout: &ports.GatewayCheckout{
			AuthorizationURL: "https://checkout.paystack.com/x",
			Reference:        domain.InstallmentReference(orderID, 1),
		},
	}, nil)

	body, _ := json.Marshal(dto.CreatePlanRequest{
		OrderID:       orderID.String(),
		CustomerEmail: "ada@example.com",
		Duration:      string(domain.DurationThreeMonth),
	})
	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/plans", body, uuid.New(), "user")
	h.CreatePlan(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "33.33", data["installment_amount"])
	checkout := data["checkout"].(map[string]interface{})
	assert.Equal(t, "https://checkout.paystack.com/x", checkout["authorization_url"])
}

func TestCreatePlan_BadDuration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSvc)

	mockSvc.EXPECT().CreatePlan(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInvalidDuration())

	body, _ := json.Marshal(dto.CreatePlanRequest{
		OrderID:       uuid.New().String(),
		CustomerEmail: "ada@example.com",
		Duration:      "2_weeks",
	})
	c, w := newAuthedContext(t, http.MethodPost, "/api/v1/plans", body, uuid.New(), "user")
	h.CreatePlan(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VAL_003", resp["error_code"])
}

func TestGetPlan_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSvc)

	planID := uuid.New()
	mockSvc.EXPECT().GetPlan(gomock.Any(), planID).Return(nil, nil, apperror.ErrNotFound("installment plan"))

	c, w := newAuthedContext(t, http.MethodGet, "/api/v1/plans/"+planID.String(), nil, uuid.New(), "user")
	c.Params = gin.Params{{Key: "id", Value: planID.String()}}
	h.GetPlan(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPlan_MarksOverduePayments(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockSettlementService(ctrl)
	h := NewSettlementHandler(mockSvc)

	planID := uuid.New()
	orderID := uuid.New()
	plan := &domain.InstallmentPlan{
		ID:                planID,
		OrderID:           orderID,
		Duration:          domain.DurationThreeMonth,
		TotalAmount:       decimal.RequireFromString("300.00"),
		InstallmentAmount: decimal.RequireFromString("100.00"),
		InstallmentCount:  3,
		Status:            domain.PlanActive,
		StartDate:         time.Now().Add(-60 * 24 * time.Hour),
	}
	paidAt := time.Now().Add(-59 * 24 * time.Hour)
	payments := []*domain.InstallmentPayment{
		{ID: uuid.New(), PaymentNumber: 1, Amount: plan.InstallmentAmount, Status: domain.InstallmentPaid, DueDate: plan.StartDate, PaidAt: &paidAt},
		{ID: uuid.New(), PaymentNumber: 2, Amount: plan.InstallmentAmount, Status: domain.InstallmentPending, DueDate: time.Now().Add(-30 * 24 * time.Hour)},
		{ID: uuid.New(), PaymentNumber: 3, Amount: plan.InstallmentAmount, Status: domain.InstallmentPending, DueDate: time.Now().Add(30 * 24 * time.Hour)},
	}
	mockSvc.EXPECT().GetPlan(gomock.Any(), planID).Return(plan, payments, nil)

	c, w := newAuthedContext(t, http.MethodGet, "/api/v1/plans/"+planID.String(), nil, uuid.New(), "user")
	c.Params = gin.Params{{Key: "id", Value: planID.String()}}
	h.GetPlan(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	items := data["payments"].([]interface{})
	require.Len(t, items, 3)
	assert.Equal(t, "PAID", items[0].(map[string]interface{})["status"])
	assert.Equal(t, "OVERDUE", items[1].(map[string]interface{})["status"])
	assert.Equal(t, "PENDING", items[2].(map[string]interface{})["status"])
}

// --- Webhook Handler Tests ---

func webhookBody(t *testing.T, event, reference string) []byte {
	t.Helper()
	payload := dto.WebhookEvent{Event: event}
	payload.Data.Reference = reference
	payload.Data.Status = "success"
	payload.Data.Amount = 3333
	payload.Data.Currency = "NGN"
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettle := mocks.NewMockSettlementService(ctrl)
	mockSig := mocks.NewMockSignatureService(ctrl)
	h := NewWebhookHandler(mockSettle, mockSig, zerologNop())

	body := webhookBody(t, "charge.success", "ref-1")
	mockSig.EXPECT().Verify(body, "forged").Return(false)
	// Settlement service must never be reached on a bad signature.

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(body))
	c.Request.Header.Set(HeaderPaystackSignature, "forged")

	h.HandlePaystack(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SEC_001", resp["error_code"])
}

func TestWebhook_MissingSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWebhookHandler(mocks.NewMockSettlementService(ctrl), mocks.NewMockSignatureService(ctrl), zerologNop())

	body := webhookBody(t, "charge.success", "ref-1")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(body))

	h.HandlePaystack(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhook_ChargeSuccessSettles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettle := mocks.NewMockSettlementService(ctrl)
	mockSig := mocks.NewMockSignatureService(ctrl)
	h := NewWebhookHandler(mockSettle, mockSig, zerologNop())

	body := webhookBody(t, "charge.success", "order-1-installment-2")
	mockSig.EXPECT().Verify(body, "valid-sig").Return(true)
	mockSettle.EXPECT().VerifyAndSettle(gomock.Any(), "order-1-installment-2").Return(&domain.SettlementResult{
		Reference: "order-1-installment-2",
		Settled:   true,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(body))
	c.Request.Header.Set(HeaderPaystackSignature, "valid-sig")

	h.HandlePaystack(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["received"])
}

func TestWebhook_IgnoresOtherEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSettle := mocks.NewMockSettlementService(ctrl)
	mockSig := mocks.NewMockSignatureService(ctrl)
	h := NewWebhookHandler(mockSettle, mockSig, zerologNop())

	body := webhookBody(t, "transfer.success", "ref-x")
	mockSig.EXPECT().Verify(body, "valid-sig").Return(true)
	// VerifyAndSettle must not be called for non-charge events.

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(body))
	c.Request.Header.Set(HeaderPaystackSignature, "valid-sig")

	h.HandlePaystack(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Health Check ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Name() string                 { return f.name }
func (f fakeChecker) Ping(_ context.Context) error { return f.err }

func TestHealthCheck_Degraded(t *testing.T) {
	handler := HealthCheck(
		fakeChecker{name: "postgresql"},
		fakeChecker{name: "redis", err: errors.New("connection refused")},
	)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	handler(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}

func TestHealthCheck_Healthy(t *testing.T) {
	handler := HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	handler(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func zerologNop() zerolog.Logger {
	return zerolog.Nop()
}
