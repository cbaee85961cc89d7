package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementResult records the outcome of verifying one installment payment
// against the gateway. It is cacheable: a repeat delivery for the same
// reference returns the stored result without re-verifying.
type SettlementResult struct {
	Reference       string          `json:"reference"`
	Settled         bool            `json:"settled"`
	Duplicate       bool            `json:"duplicate"`
	GatewayStatus   string          `json:"gateway_status"`
	PlanID          uuid.UUID       `json:"plan_id"`
	PaymentNumber   int             `json:"payment_number"`
	Amount          decimal.Decimal `json:"amount"`
	PlanCompleted   bool            `json:"plan_completed"`
	VendorsCredited bool            `json:"vendors_credited"`
}
