package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPayoutStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from PayoutStatus
		to   PayoutStatus
		want bool
	}{
		{"pending to processing", PayoutPending, PayoutProcessing, true},
		{"pending to failed", PayoutPending, PayoutFailed, true},
		{"pending to cancelled", PayoutPending, PayoutCancelled, true},
		{"pending to successful", PayoutPending, PayoutSuccessful, false},
		{"processing to successful", PayoutProcessing, PayoutSuccessful, true},
		{"processing to failed", PayoutProcessing, PayoutFailed, true},
		{"processing to pending", PayoutProcessing, PayoutPending, false},
		{"failed is terminal", PayoutFailed, PayoutPending, false},
		{"cancelled is terminal", PayoutCancelled, PayoutProcessing, false},
		{"successful is terminal", PayoutSuccessful, PayoutFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestPayoutStatus_IsTerminal(t *testing.T) {
	assert.False(t, PayoutPending.IsTerminal())
	assert.False(t, PayoutProcessing.IsTerminal())
	assert.True(t, PayoutSuccessful.IsTerminal())
	assert.True(t, PayoutFailed.IsTerminal())
	assert.True(t, PayoutCancelled.IsTerminal())
}

func TestPayoutRequest_Requester(t *testing.T) {
	userID := uuid.New()
	vendorID := uuid.New()

	userReq := &PayoutRequest{UserID: &userID}
	assert.True(t, userReq.HasValidRequester())
	assert.Equal(t, userID, userReq.RequesterID())

	vendorReq := &PayoutRequest{VendorID: &vendorID}
	assert.True(t, vendorReq.HasValidRequester())
	assert.Equal(t, vendorID, vendorReq.RequesterID())

	both := &PayoutRequest{UserID: &userID, VendorID: &vendorID}
	assert.False(t, both.HasValidRequester())

	neither := &PayoutRequest{}
	assert.False(t, neither.HasValidRequester())
	assert.Equal(t, uuid.Nil, neither.RequesterID())
}

func TestDurationTier_InstallmentCount(t *testing.T) {
	tests := []struct {
		tier  DurationTier
		count int
		ok    bool
	}{
		{DurationOneMonth, 1, true},
		{DurationThreeMonth, 3, true},
		{DurationSixMonth, 6, true},
		{DurationOneYear, 12, true},
		{DurationTier("2_weeks"), 0, false},
	}

	for _, tt := range tests {
		n, ok := tt.tier.InstallmentCount()
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.count, n)
	}
}

func TestInstallmentPayment_IsOverdue(t *testing.T) {
	now := time.Now().UTC()

	pending := &InstallmentPayment{Status: InstallmentPending, DueDate: now.Add(-time.Hour)}
	assert.True(t, pending.IsOverdue(now))

	notDue := &InstallmentPayment{Status: InstallmentPending, DueDate: now.Add(time.Hour)}
	assert.False(t, notDue.IsOverdue(now))

	paid := &InstallmentPayment{Status: InstallmentPaid, DueDate: now.Add(-time.Hour)}
	assert.False(t, paid.IsOverdue(now))
}

func TestInstallmentReference(t *testing.T) {
	orderID := uuid.MustParse("a8098c1a-f86e-11da-bd1a-00112444be1e")
	assert.Equal(t,
		"a8098c1a-f86e-11da-bd1a-00112444be1e-installment-3",
		InstallmentReference(orderID, 3),
	)
}

func TestWalletTransaction_Signed(t *testing.T) {
	amount := decimal.RequireFromString("25.50")

	credit := &WalletTransaction{Kind: TransactionCredit, Amount: amount}
	assert.True(t, credit.Signed().Equal(amount))

	debit := &WalletTransaction{Kind: TransactionDebit, Amount: amount}
	assert.True(t, debit.Signed().Equal(amount.Neg()))
}

func TestOrderItem_Subtotal(t *testing.T) {
	item := &OrderItem{
		Quantity:        3,
		PriceAtPurchase: decimal.RequireFromString("19.99"),
	}
	assert.True(t, item.Subtotal().Equal(decimal.RequireFromString("59.97")))
}
