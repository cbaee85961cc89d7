package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentPinRepo implements ports.PaymentPinRepository.
type PaymentPinRepo struct {
	pool Pool
}

// NewPaymentPinRepo creates a new PaymentPinRepo.
func NewPaymentPinRepo(pool Pool) *PaymentPinRepo {
	return &PaymentPinRepo{pool: pool}
}

// GetByUserID fetches a user's PIN record.
func (r *PaymentPinRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.PaymentPin, error) {
	query := `SELECT id, user_id, pin_hash, is_default, created_at, updated_at
		FROM payment_pins WHERE user_id = $1`

	p := &domain.PaymentPin{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.PinHash, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment pin: %w", err)
	}
	return p, nil
}

// Upsert writes the user's PIN record, replacing any existing one.
func (r *PaymentPinRepo) Upsert(ctx context.Context, pin *domain.PaymentPin) error {
	query := `INSERT INTO payment_pins (id, user_id, pin_hash, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET pin_hash = EXCLUDED.pin_hash, is_default = EXCLUDED.is_default, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		pin.ID, pin.UserID, pin.PinHash, pin.IsDefault, pin.CreatedAt, pin.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert payment pin: %w", err)
	}
	return nil
}
