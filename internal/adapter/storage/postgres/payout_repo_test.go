package postgres

import (
	"context"
	"testing"
	"time"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayout(userID uuid.UUID) *domain.PayoutRequest {
	return &domain.PayoutRequest{
		ID:            uuid.New(),
		UserID:        &userID,
		Amount:        decimal.RequireFromString("150.00"),
		Status:        domain.PayoutPending,
		Reference:     "WTH-TEST123456",
		BankName:      "First Bank",
		AccountNumber: "0123456789",
		AccountName:   "Ada Obi",
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func payoutColumnNames() []string {
	return []string{
		"id", "user_id", "vendor_id", "amount", "status", "reference",
		"bank_name", "account_number", "account_name", "admin_notes",
		"failure_reason", "created_at", "processed_at",
	}
}

func payoutRow(p *domain.PayoutRequest) *pgxmock.Rows {
	return pgxmock.NewRows(payoutColumnNames()).AddRow(
		p.ID, p.UserID, p.VendorID, p.Amount, p.Status, p.Reference,
		p.BankName, p.AccountNumber, p.AccountName, p.AdminNotes,
		p.FailureReason, p.CreatedAt, p.ProcessedAt,
	)
}

func TestPayoutRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	p := newTestPayout(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payout_requests").
		WithArgs(p.ID, p.UserID, p.VendorID, p.Amount, p.Status, p.Reference,
			p.BankName, p.AccountNumber, p.AccountName, p.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_Create_DuplicateReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	p := newTestPayout(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payout_requests").
		WithArgs(p.ID, p.UserID, p.VendorID, p.Amount, p.Status, p.Reference,
			p.BankName, p.AccountNumber, p.AccountName, p.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payout_requests_reference_key"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, p)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CON_002", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_GetByReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	p := newTestPayout(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM payout_requests WHERE reference").
		WithArgs(p.Reference).
		WillReturnRows(payoutRow(p))

	result, err := repo.GetByReference(context.Background(), p.Reference)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_GetByReference_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM payout_requests WHERE reference").
		WithArgs("WTH-ZZZZZZZZZZ").
		WillReturnRows(pgxmock.NewRows(payoutColumnNames()))

	result, err := repo.GetByReference(context.Background(), "WTH-ZZZZZZZZZZ")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	p := newTestPayout(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM payout_requests WHERE id .+ FOR UPDATE").
		WithArgs(p.ID).
		WillReturnRows(payoutRow(p))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.Reference, result.Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	id := uuid.New()
	reason := "account name mismatch"
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payout_requests").
		WithArgs(domain.PayoutFailed, &reason, &now, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), tx, id, domain.PayoutFailed, &reason, &now)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payout_requests").
		WithArgs(domain.PayoutProcessing, (*string)(nil), &now, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), tx, id, domain.PayoutProcessing, nil, &now)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepo_ListByRequester(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayoutRepo(mock)
	userID := uuid.New()
	first := newTestPayout(userID)
	second := newTestPayout(userID)
	second.Reference = "WTH-SECOND0000"

	rows := pgxmock.NewRows(payoutColumnNames()).
		AddRow(first.ID, first.UserID, first.VendorID, first.Amount, first.Status, first.Reference,
			first.BankName, first.AccountNumber, first.AccountName, first.AdminNotes,
			first.FailureReason, first.CreatedAt, first.ProcessedAt).
		AddRow(second.ID, second.UserID, second.VendorID, second.Amount, second.Status, second.Reference,
			second.BankName, second.AccountNumber, second.AccountName, second.AdminNotes,
			second.FailureReason, second.CreatedAt, second.ProcessedAt)

	mock.ExpectQuery("SELECT .+ FROM payout_requests").
		WithArgs(userID, 20, 0).
		WillReturnRows(rows)

	result, err := repo.ListByRequester(context.Background(), userID, 20, 0)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, first.ID, result[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
