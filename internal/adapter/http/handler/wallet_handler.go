package handler

import (
	"strconv"

	"marketplace-settlement/internal/adapter/http/dto"
	"marketplace-settlement/internal/adapter/http/middleware"
	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet and PIN endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
	pinSvc    ports.PinService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService, pinSvc ports.PinService) *WalletHandler {
	return &WalletHandler{
		ledgerSvc: ledgerSvc,
		pinSvc:    pinSvc,
	}
}

// GetBalance handles GET /api/v1/wallets/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	ownerID := userID.(uuid.UUID)

	balance, err := h.ledgerSvc.Balance(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletBalanceResponse{
		OwnerID: ownerID.String(),
		Balance: balance.StringFixed(2),
	})
}

// GetStatement handles GET /api/v1/wallets/statement.
func (h *WalletHandler) GetStatement(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit, offset := pagination(c)
	entries, err := h.ledgerSvc.Statement(c.Request.Context(), userID.(uuid.UUID), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.StatementEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toStatementEntry(e))
	}

	response.OK(c, dto.StatementResponse{
		Entries: items,
		Limit:   limit,
		Offset:  offset,
	})
}

// SetPin handles PUT /api/v1/pins.
func (h *WalletHandler) SetPin(c *gin.Context) {
	userID, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SetPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.pinSvc.SetPin(c.Request.Context(), userID.(uuid.UUID), req.Pin); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"pin_set": true})
}

func toStatementEntry(e *domain.WalletTransaction) dto.StatementEntryResponse {
	return dto.StatementEntryResponse{
		ID:        e.ID.String(),
		Kind:      string(e.Kind),
		Amount:    e.Amount.StringFixed(2),
		Source:    e.Source,
		CreatedAt: e.CreatedAt.Format(timeFormat),
	}
}

// pagination reads limit/offset query params with sane bounds.
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
