package handler

import (
	"time"

	"marketplace-settlement/internal/adapter/http/dto"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettlementHandler handles installment plan endpoints.
type SettlementHandler struct {
	settlementSvc ports.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementSvc ports.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementSvc: settlementSvc}
}

// CreatePlan handles POST /api/v1/plans.
func (h *SettlementHandler) CreatePlan(c *gin.Context) {
	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	out, err := h.settlementSvc.CreatePlan(c.Request.Context(), ports.CreatePlanInput{
		OrderID:       orderID,
		CustomerEmail: req.CustomerEmail,
		Duration:      domain.DurationTier(req.Duration),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := toPlanResponse(out.Plan, out.Payments)
	if out.Checkout != nil {
		resp.Checkout = &dto.CheckoutResponse{
			AuthorizationURL: out.Checkout.AuthorizationURL,
			AccessCode:       out.Checkout.AccessCode,
			Reference:        out.Checkout.Reference,
		}
	}

	response.Created(c, resp)
}

// GetPlan handles GET /api/v1/plans/:id.
func (h *SettlementHandler) GetPlan(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid plan id"))
		return
	}

	plan, payments, err := h.settlementSvc.GetPlan(c.Request.Context(), planID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPlanResponse(plan, payments))
}

func toPlanResponse(plan *domain.InstallmentPlan, payments []*domain.InstallmentPayment) dto.PlanResponse {
	resp := dto.PlanResponse{
		ID:                plan.ID.String(),
		OrderID:           plan.OrderID.String(),
		Duration:          string(plan.Duration),
		TotalAmount:       plan.TotalAmount.StringFixed(2),
		InstallmentAmount: plan.InstallmentAmount.StringFixed(2),
		InstallmentCount:  plan.InstallmentCount,
		Status:            string(plan.Status),
		StartDate:         plan.StartDate.Format(timeFormat),
	}
	now := time.Now().UTC()
	for _, p := range payments {
		status := p.Status
		if p.IsOverdue(now) {
			status = domain.InstallmentOverdue
		}
		item := dto.InstallmentResponse{
			ID:            p.ID.String(),
			PaymentNumber: p.PaymentNumber,
			Amount:        p.Amount.StringFixed(2),
			Status:        string(status),
			DueDate:       p.DueDate.Format(timeFormat),
			Reference:     p.Reference,
		}
		if p.PaidAt != nil {
			s := p.PaidAt.Format(timeFormat)
			item.PaidAt = &s
		}
		resp.Payments = append(resp.Payments, item)
	}
	return resp
}
