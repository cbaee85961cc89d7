package handler

import (
	"encoding/json"
	"io"

	"marketplace-settlement/internal/adapter/http/dto"
	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
	"marketplace-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderPaystackSignature carries the HMAC-SHA512 hex signature of the raw
// webhook body.
const HeaderPaystackSignature = "x-paystack-signature"

// WebhookHandler receives gateway webhooks. The signature is verified
// against the raw body before any parsing or database work, and the
// acknowledgement is always generic so the endpoint leaks nothing about
// settlement state.
type WebhookHandler struct {
	settlementSvc ports.SettlementService
	sigSvc        ports.SignatureService
	logger        zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(settlementSvc ports.SettlementService, sigSvc ports.SignatureService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		settlementSvc: settlementSvc,
		sigSvc:        sigSvc,
		logger:        logger.With().Str("component", "webhook_handler").Logger(),
	}
}

// HandlePaystack handles POST /api/v1/webhooks/paystack.
func (h *WebhookHandler) HandlePaystack(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	signature := c.GetHeader(HeaderPaystackSignature)
	if signature == "" || !h.sigSvc.Verify(body, signature) {
		h.logger.Warn().Str("client_ip", c.ClientIP()).Msg("webhook signature rejected")
		response.Error(c, apperror.ErrInvalidSignature())
		return
	}

	var event dto.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.Error(c, apperror.Validation("malformed webhook payload"))
		return
	}

	if event.Event != "charge.success" {
		h.logger.Debug().Str("event", event.Event).Msg("ignoring webhook event")
		response.OK(c, dto.WebhookAckResponse{Received: true})
		return
	}

	result, err := h.settlementSvc.VerifyAndSettle(c.Request.Context(), event.Data.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logger.Info().
		Str("reference", event.Data.Reference).
		Bool("settled", result.Settled).
		Bool("duplicate", result.Duplicate).
		Msg("webhook processed")
	response.OK(c, dto.WebhookAckResponse{Received: true})
}
