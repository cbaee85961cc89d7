package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

const payoutColumns = `id, user_id, vendor_id, amount, status, reference,
	bank_name, account_number, account_name, admin_notes, failure_reason,
	created_at, processed_at`

// Create inserts a withdrawal request within the caller's transaction.
// A reference collision surfaces as ErrDuplicateReference.
func (r *PayoutRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.PayoutRequest) error {
	query := `INSERT INTO payout_requests
		(id, user_id, vendor_id, amount, status, reference, bank_name, account_number, account_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		req.ID, req.UserID, req.VendorID, req.Amount, req.Status, req.Reference,
		req.BankName, req.AccountNumber, req.AccountName, req.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.ErrDuplicateReference()
		}
		return fmt.Errorf("insert payout request: %w", err)
	}
	return nil
}

// GetByID fetches a withdrawal request (non-locking read).
func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get payout by id")
}

// GetByIDForUpdate fetches a withdrawal request with pessimistic locking.
// This MUST be called within a transaction.
func (r *PayoutRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1 FOR UPDATE`
	return r.scanOne(tx.QueryRow(ctx, query, id), "get payout for update")
}

// GetByReference fetches a withdrawal request by its reference.
func (r *PayoutRepo) GetByReference(ctx context.Context, reference string) (*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE reference = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, reference), "get payout by reference")
}

// UpdateStatus records a lifecycle decision within the caller's transaction.
func (r *PayoutRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, failureReason *string, processedAt *time.Time) error {
	query := `UPDATE payout_requests
		SET status = $1, failure_reason = $2, processed_at = $3
		WHERE id = $4`

	tag, err := tx.Exec(ctx, query, status, failureReason, processedAt, id)
	if err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payout request not found: %s", id)
	}
	return nil
}

// ListByRequester returns the requester's withdrawal requests, newest first.
func (r *PayoutRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + `
		FROM payout_requests
		WHERE user_id = $1 OR vendor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, requesterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	var requests []*domain.PayoutRequest
	for rows.Next() {
		req := &domain.PayoutRequest{}
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.VendorID, &req.Amount, &req.Status, &req.Reference,
			&req.BankName, &req.AccountNumber, &req.AccountName, &req.AdminNotes, &req.FailureReason,
			&req.CreatedAt, &req.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payouts: %w", err)
	}
	return requests, nil
}

func (r *PayoutRepo) scanOne(row pgx.Row, op string) (*domain.PayoutRequest, error) {
	req := &domain.PayoutRequest{}
	err := row.Scan(
		&req.ID, &req.UserID, &req.VendorID, &req.Amount, &req.Status, &req.Reference,
		&req.BankName, &req.AccountNumber, &req.AccountName, &req.AdminNotes, &req.FailureReason,
		&req.CreatedAt, &req.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return req, nil
}
