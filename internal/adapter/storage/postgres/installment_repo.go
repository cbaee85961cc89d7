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

// InstallmentRepo implements ports.InstallmentRepository.
type InstallmentRepo struct {
	pool Pool
}

// NewInstallmentRepo creates a new InstallmentRepo.
func NewInstallmentRepo(pool Pool) *InstallmentRepo {
	return &InstallmentRepo{pool: pool}
}

const planColumns = `id, order_id, duration, total_amount, installment_amount,
	installment_count, status, vendors_credited, start_date, created_at, updated_at`

const paymentColumns = `id, plan_id, payment_number, amount, status, due_date,
	reference, paid_at, verified, created_at`

// CreatePlan inserts a plan and its scheduled payments in one transaction.
// installment_plans has a unique index on order_id, so when two concurrent
// creations race past the service's existence check the loser surfaces as a
// Conflict instead of a raw constraint error.
func (r *InstallmentRepo) CreatePlan(ctx context.Context, plan *domain.InstallmentPlan, payments []*domain.InstallmentPayment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create plan: %w", err)
	}
	defer tx.Rollback(ctx)

	planQuery := `INSERT INTO installment_plans
		(id, order_id, duration, total_amount, installment_amount, installment_count, status, vendors_credited, start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.Exec(ctx, planQuery,
		plan.ID, plan.OrderID, plan.Duration, plan.TotalAmount, plan.InstallmentAmount,
		plan.InstallmentCount, plan.Status, plan.VendorsCredited, plan.StartDate,
		plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.Conflict("Order already has an installment plan")
		}
		return fmt.Errorf("insert installment plan: %w", err)
	}

	paymentQuery := `INSERT INTO installment_payments
		(id, plan_id, payment_number, amount, status, due_date, reference, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, p := range payments {
		_, err = tx.Exec(ctx, paymentQuery,
			p.ID, p.PlanID, p.PaymentNumber, p.Amount, p.Status, p.DueDate,
			p.Reference, p.Verified, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert installment payment %d: %w", p.PaymentNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create plan: %w", err)
	}
	return nil
}

// GetPlanByID fetches a plan (non-locking read).
func (r *InstallmentRepo) GetPlanByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM installment_plans WHERE id = $1`
	return r.scanPlan(r.pool.QueryRow(ctx, query, id), "get plan by id")
}

// GetPlanByOrderID fetches the plan covering an order, if any.
func (r *InstallmentRepo) GetPlanByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.InstallmentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM installment_plans WHERE order_id = $1`
	return r.scanPlan(r.pool.QueryRow(ctx, query, orderID), "get plan by order")
}

// GetPlanByIDForUpdate fetches a plan with pessimistic locking.
// This MUST be called within a transaction.
func (r *InstallmentRepo) GetPlanByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.InstallmentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM installment_plans WHERE id = $1 FOR UPDATE`
	return r.scanPlan(tx.QueryRow(ctx, query, id), "get plan for update")
}

// GetPaymentByReference fetches a scheduled payment (non-locking read).
func (r *InstallmentRepo) GetPaymentByReference(ctx context.Context, reference string) (*domain.InstallmentPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM installment_payments WHERE reference = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, reference), "get payment by reference")
}

// GetPaymentByReferenceForUpdate fetches a scheduled payment with
// pessimistic locking. This MUST be called within a transaction.
func (r *InstallmentRepo) GetPaymentByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.InstallmentPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM installment_payments WHERE reference = $1 FOR UPDATE`
	return r.scanPayment(tx.QueryRow(ctx, query, reference), "get payment for update")
}

// ListPayments returns a plan's scheduled payments in schedule order.
func (r *InstallmentRepo) ListPayments(ctx context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM installment_payments WHERE plan_id = $1 ORDER BY payment_number`

	rows, err := r.pool.Query(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("list installment payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.InstallmentPayment
	for rows.Next() {
		p := &domain.InstallmentPayment{}
		if err := rows.Scan(
			&p.ID, &p.PlanID, &p.PaymentNumber, &p.Amount, &p.Status, &p.DueDate,
			&p.Reference, &p.PaidAt, &p.Verified, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan installment payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installment payments: %w", err)
	}
	return payments, nil
}

// CountUnpaid counts a plan's payments still awaiting settlement, within
// the caller's transaction so the count is consistent with held locks.
func (r *InstallmentRepo) CountUnpaid(ctx context.Context, tx pgx.Tx, planID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM installment_payments WHERE plan_id = $1 AND status <> $2`

	var count int
	if err := tx.QueryRow(ctx, query, planID, domain.InstallmentPaid).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unpaid installments: %w", err)
	}
	return count, nil
}

// MarkPaymentPaid records a verified settlement within the caller's
// transaction.
func (r *InstallmentRepo) MarkPaymentPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time) error {
	query := `UPDATE installment_payments
		SET status = $1, paid_at = $2, verified = TRUE
		WHERE id = $3`

	tag, err := tx.Exec(ctx, query, domain.InstallmentPaid, paidAt, id)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("installment payment not found: %s", id)
	}
	return nil
}

// MarkVendorsCredited sets the one-way crediting flag and completes the
// plan. Must run in the transaction that verified the flag under lock.
func (r *InstallmentRepo) MarkVendorsCredited(ctx context.Context, tx pgx.Tx, planID uuid.UUID) error {
	query := `UPDATE installment_plans
		SET vendors_credited = TRUE, status = $1, updated_at = NOW()
		WHERE id = $2 AND vendors_credited = FALSE`

	tag, err := tx.Exec(ctx, query, domain.PlanCompleted, planID)
	if err != nil {
		return fmt.Errorf("mark vendors credited: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("plan %s already credited or missing", planID)
	}
	return nil
}

// UpdatePlanStatus sets a plan's lifecycle status.
func (r *InstallmentRepo) UpdatePlanStatus(ctx context.Context, planID uuid.UUID, status domain.PlanStatus) error {
	query := `UPDATE installment_plans SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, status, planID)
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("installment plan not found: %s", planID)
	}
	return nil
}

func (r *InstallmentRepo) scanPlan(row pgx.Row, op string) (*domain.InstallmentPlan, error) {
	p := &domain.InstallmentPlan{}
	err := row.Scan(
		&p.ID, &p.OrderID, &p.Duration, &p.TotalAmount, &p.InstallmentAmount,
		&p.InstallmentCount, &p.Status, &p.VendorsCredited, &p.StartDate,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r *InstallmentRepo) scanPayment(row pgx.Row, op string) (*domain.InstallmentPayment, error) {
	p := &domain.InstallmentPayment{}
	err := row.Scan(
		&p.ID, &p.PlanID, &p.PaymentNumber, &p.Amount, &p.Status, &p.DueDate,
		&p.Reference, &p.PaidAt, &p.Verified, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
