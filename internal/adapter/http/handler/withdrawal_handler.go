package handler

import (
	"time"

	"marketplace-settlement/internal/adapter/http/dto"
	"marketplace-settlement/internal/adapter/http/middleware"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const timeFormat = time.RFC3339

// WithdrawalHandler handles withdrawal lifecycle endpoints.
type WithdrawalHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalSvc ports.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalSvc: withdrawalSvc}
}

// Create handles POST /api/v1/withdrawals.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	requesterID, role, ok := caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payout, err := h.withdrawalSvc.CreateRequest(c.Request.Context(), ports.CreateWithdrawalInput{
		RequesterID:   requesterID,
		IsVendor:      role == middleware.RoleVendor,
		Amount:        req.Amount,
		Pin:           req.Pin,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPayoutResponse(payout))
}

// Validate handles POST /api/v1/withdrawals/validate. It answers whether a
// withdrawal of the given amount could currently be created, without
// moving money or requiring a PIN.
func (h *WithdrawalHandler) Validate(c *gin.Context) {
	requesterID, _, ok := caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ValidateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.withdrawalSvc.Validate(c.Request.Context(), requesterID, req.Amount); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"valid": true})
}

// List handles GET /api/v1/withdrawals.
func (h *WithdrawalHandler) List(c *gin.Context) {
	requesterID, _, ok := caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit, offset := pagination(c)
	payouts, err := h.withdrawalSvc.ListByRequester(c.Request.Context(), requesterID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PayoutResponse, 0, len(payouts))
	for _, p := range payouts {
		items = append(items, toPayoutResponse(p))
	}

	response.OK(c, dto.PayoutListResponse{Items: items, Limit: limit, Offset: offset})
}

// Get handles GET /api/v1/withdrawals/:id. Requesters can only read their
// own withdrawals; admins can read any.
func (h *WithdrawalHandler) Get(c *gin.Context) {
	requesterID, role, ok := caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid withdrawal id"))
		return
	}

	payout, err := h.withdrawalSvc.Get(c.Request.Context(), payoutID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if role != middleware.RoleAdmin && payout.RequesterID() != requesterID {
		response.Error(c, apperror.ErrForbidden())
		return
	}

	response.OK(c, toPayoutResponse(payout))
}

// Cancel handles POST /api/v1/withdrawals/:id/cancel.
func (h *WithdrawalHandler) Cancel(c *gin.Context) {
	requesterID, _, ok := caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid withdrawal id"))
		return
	}

	payout, err := h.withdrawalSvc.Cancel(c.Request.Context(), payoutID, requesterID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPayoutResponse(payout))
}

// Approve handles POST /api/v1/withdrawals/:id/approve (admin only).
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid withdrawal id"))
		return
	}

	var req dto.ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}

	payout, err := h.withdrawalSvc.Approve(c.Request.Context(), payoutID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPayoutResponse(payout))
}

// Reject handles POST /api/v1/withdrawals/:id/reject (admin only).
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid withdrawal id"))
		return
	}

	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payout, err := h.withdrawalSvc.Reject(c.Request.Context(), payoutID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPayoutResponse(payout))
}

// caller extracts the authenticated user and role set by JWTAuth.
func caller(c *gin.Context) (uuid.UUID, string, bool) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return uuid.Nil, "", false
	}
	role, _ := c.Get(middleware.CtxRole)
	roleStr, _ := role.(string)
	return userID.(uuid.UUID), roleStr, true
}

func toPayoutResponse(p *domain.PayoutRequest) dto.PayoutResponse {
	resp := dto.PayoutResponse{
		ID:            p.ID.String(),
		Reference:     p.Reference,
		Amount:        p.Amount.StringFixed(2),
		Status:        string(p.Status),
		BankName:      p.BankName,
		AccountNumber: p.AccountNumber,
		AccountName:   p.AccountName,
		AdminNotes:    p.AdminNotes,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt.Format(timeFormat),
	}
	if p.ProcessedAt != nil {
		s := p.ProcessedAt.Format(timeFormat)
		resp.ProcessedAt = &s
	}
	return resp
}
