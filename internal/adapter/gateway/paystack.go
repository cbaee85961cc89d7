package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"
)

// PaystackGateway implements ports.PaymentGateway against the Paystack
// transaction API. Amounts cross the wire in the currency's minor unit
// (kobo), converted at this boundary and nowhere else.
type PaystackGateway struct {
	baseURL     string
	secretKey   string
	currency    string
	callbackURL string
	client      *http.Client
	logger      zerolog.Logger
}

// NewPaystackGateway creates a new Paystack gateway client.
func NewPaystackGateway(baseURL, secretKey, currency, callbackURL string, timeout time.Duration, logger zerolog.Logger) *PaystackGateway {
	return &PaystackGateway{
		baseURL:     baseURL,
		secretKey:   secretKey,
		currency:    currency,
		callbackURL: callbackURL,
		client:      &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "paystack_gateway").Logger(),
	}
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	Currency    string `json:"currency"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status   string    `json:"status"`
		Amount   int64     `json:"amount"`
		Currency string    `json:"currency"`
		PaidAt   time.Time `json:"paid_at"`
	} `json:"data"`
}

// Initialize opens a hosted checkout for the given reference and amount.
func (g *PaystackGateway) Initialize(ctx context.Context, email, reference string, amount decimal.Decimal) (*ports.GatewayCheckout, error) {
	body, err := json.Marshal(initializeRequest{
		Email:       email,
		Amount:      domain.ToMinorUnits(amount),
		Reference:   reference,
		Currency:    g.currency,
		CallbackURL: g.callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("encode initialize request: %w", err)
	}

	var resp initializeResponse
	if err := g.post(ctx, "/transaction/initialize", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack initialize rejected: %s", resp.Message)
	}

	g.logger.Debug().Str("reference", reference).Msg("checkout initialized")
	return &ports.GatewayCheckout{
		AuthorizationURL: resp.Data.AuthorizationURL,
		AccessCode:       resp.Data.AccessCode,
		Reference:        resp.Data.Reference,
	}, nil
}

// Verify fetches the gateway's record of a charge by reference.
func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*ports.GatewayVerification, error) {
	var resp verifyResponse
	if err := g.get(ctx, "/transaction/verify/"+reference, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack verify rejected: %s", resp.Message)
	}

	return &ports.GatewayVerification{
		Status:      resp.Data.Status,
		Currency:    resp.Data.Currency,
		AmountMinor: resp.Data.Amount,
		PaidAt:      resp.Data.PaidAt,
	}, nil
}

func (g *PaystackGateway) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *PaystackGateway) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return g.do(req, out)
}

func (g *PaystackGateway) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read paystack response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paystack returned %d: %s", resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode paystack response: %w", err)
	}
	return nil
}
