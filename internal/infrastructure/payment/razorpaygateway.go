// Package payment holds the HTTP client for the hosted payment provider.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/secforge/billing/internal/application/payment/paymentgateway"
	"github.com/secforge/billing/internal/domain/providerevent"
	"github.com/secforge/billing/internal/shared/config"
	"github.com/secforge/billing/internal/shared/constants"
	"github.com/secforge/billing/internal/shared/logger"
)

const (
	defaultRazorpayBaseURL = "https://api.razorpay.com"
	// Maximum response body size accepted from the provider (256KB)
	maxProviderResponseSize = 256 << 10
)

type razorpayOrder struct {
	ID       string              `json:"id"`
	Amount   int64               `json:"amount"`
	Currency string              `json:"currency"`
	Receipt  string              `json:"receipt"`
	Status   string              `json:"status"`
	Notes    providerevent.Notes `json:"notes"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// RazorpayGateway talks to the provider's orders API with basic auth.
// Missing credentials fail each request with ErrNotConfigured rather than
// failing startup.
type RazorpayGateway struct {
	httpClient    *http.Client
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	logger        logger.Interface
}

func NewRazorpayGateway(cfg config.PaymentsConfig, logger logger.Interface) *RazorpayGateway {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultRazorpayBaseURL
	}
	return &RazorpayGateway{
		httpClient:    &http.Client{Timeout: cfg.Timeout()},
		baseURL:       baseURL,
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

var _ paymentgateway.PaymentGateway = (*RazorpayGateway)(nil)

func (g *RazorpayGateway) Name() string  { return constants.ProviderRazorpay }
func (g *RazorpayGateway) KeyID() string { return g.keyID }
func (g *RazorpayGateway) IsMock() bool  { return false }

func (g *RazorpayGateway) configured() bool {
	return g.keyID != "" && g.keySecret != ""
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req paymentgateway.CreateOrderRequest) (*paymentgateway.Order, error) {
	if !g.configured() {
		return nil, paymentgateway.ErrNotConfigured
	}
	body, err := json.Marshal(map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order request: %w", err)
	}

	var order razorpayOrder
	if err := g.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}
	g.logger.Infow("provider order created", "order_id", order.ID, "amount", order.Amount, "currency", order.Currency)
	return toOrder(&order), nil
}

func (g *RazorpayGateway) FetchOrder(ctx context.Context, orderID string) (*paymentgateway.Order, error) {
	if !g.configured() {
		return nil, paymentgateway.ErrNotConfigured
	}
	var order razorpayOrder
	if err := g.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return toOrder(&order), nil
}

func (g *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return paymentgateway.VerifySignature(g.keySecret, paymentgateway.PaymentSignaturePayload(orderID, paymentID), signature)
}

// VerifyWebhookSignature never verifies when no webhook secret is configured.
func (g *RazorpayGateway) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return paymentgateway.VerifySignature(g.webhookSecret, rawBody, signature)
}

func (g *RazorpayGateway) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create provider request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Accept", constants.ContentTypeJSON)
	if body != nil {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection failures alike are retryable.
		g.logger.Warnw("provider request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %v", paymentgateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", paymentgateway.ErrUnavailable, err)
	}

	g.logger.Debugw("provider request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", paymentgateway.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: provider rejected credentials", paymentgateway.ErrNotConfigured)
	case resp.StatusCode == http.StatusNotFound && method == http.MethodGet:
		return paymentgateway.ErrOrderNotFound
	case resp.StatusCode >= 400:
		var perr razorpayError
		_ = json.Unmarshal(data, &perr)
		return fmt.Errorf("provider rejected request: status %d: %s %s", resp.StatusCode, perr.Error.Code, perr.Error.Description)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

func toOrder(o *razorpayOrder) *paymentgateway.Order {
	notes := make(map[string]string, len(o.Notes))
	for k, v := range o.Notes {
		notes[k] = v
	}
	return &paymentgateway.Order{
		ID:       o.ID,
		Amount:   o.Amount,
		Currency: o.Currency,
		Receipt:  o.Receipt,
		Status:   o.Status,
		Notes:    notes,
	}
}
