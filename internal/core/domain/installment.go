package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DurationTier selects how many installments an order's total is split into.
type DurationTier string

const (
	DurationOneMonth   DurationTier = "1_month"
	DurationThreeMonth DurationTier = "3_months"
	DurationSixMonth   DurationTier = "6_months"
	DurationOneYear    DurationTier = "1_year"
)

// durationInstallments maps each tier to its installment count.
var durationInstallments = map[DurationTier]int{
	DurationOneMonth:   1,
	DurationThreeMonth: 3,
	DurationSixMonth:   6,
	DurationOneYear:    12,
}

// InstallmentCount returns the number of installments for the tier and
// false for an unknown tier.
func (d DurationTier) InstallmentCount() (int, bool) {
	n, ok := durationInstallments[d]
	return n, ok
}

// PlanStatus is the lifecycle state of an installment plan.
type PlanStatus string

const (
	PlanActive    PlanStatus = "ACTIVE"
	PlanCompleted PlanStatus = "COMPLETED"
	PlanCancelled PlanStatus = "CANCELLED"
)

// InstallmentPlan splits one order's total across N scheduled payments.
// VendorsCredited is the monotonic one-way guard for exactly-once vendor
// crediting; it is only ever checked and set while holding the plan row lock.
type InstallmentPlan struct {
	ID                uuid.UUID       `json:"id"`
	OrderID           uuid.UUID       `json:"order_id"`
	Duration          DurationTier    `json:"duration"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	InstallmentCount  int             `json:"installment_count"`
	Status            PlanStatus      `json:"status"`
	VendorsCredited   bool            `json:"vendors_credited"`
	StartDate         time.Time       `json:"start_date"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// InstallmentStatus is the lifecycle state of a single scheduled payment.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentFailed  InstallmentStatus = "FAILED"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

// InstallmentPayment is one scheduled payment of a plan. The reference is
// pre-assigned at plan creation so each installment can be paid and verified
// independently later. The only modeled outbound transition is
// PENDING -> PAID, performed by the verify-and-settle operation.
type InstallmentPayment struct {
	ID            uuid.UUID         `json:"id"`
	PlanID        uuid.UUID         `json:"plan_id"`
	PaymentNumber int               `json:"payment_number"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        InstallmentStatus `json:"status"`
	DueDate       time.Time         `json:"due_date"`
	Reference     string            `json:"reference"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	Verified      bool              `json:"verified"`
	CreatedAt     time.Time         `json:"created_at"`
}

// IsOverdue reports whether the payment is still unpaid past its due date.
func (p *InstallmentPayment) IsOverdue(now time.Time) bool {
	return p.Status == InstallmentPending && now.After(p.DueDate)
}

// InstallmentReference builds the fixed per-plan payment reference,
// {order_id}-installment-{payment_number}.
func InstallmentReference(orderID uuid.UUID, paymentNumber int) string {
	return fmt.Sprintf("%s-installment-%d", orderID, paymentNumber)
}
