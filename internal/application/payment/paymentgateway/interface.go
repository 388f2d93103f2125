// Package paymentgateway abstracts the payment provider: order creation,
// order lookup and the two HMAC signatures the provider issues.
package paymentgateway

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured means provider credentials are missing. Only the
	// current request fails.
	ErrNotConfigured = errors.New("payment provider credentials are not configured")
	// ErrUnavailable wraps timeouts, network failures and 5xx responses.
	ErrUnavailable   = errors.New("payment provider unavailable")
	ErrOrderNotFound = errors.New("provider order not found")
)

// PaymentGateway is implemented by the HTTP provider client and by MockGateway.
type PaymentGateway interface {
	Name() string
	// KeyID is the public key handed to checkout clients.
	KeyID() string
	IsMock() bool
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	// VerifyPaymentSignature checks the client-returned signature over "order_id|payment_id".
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	// VerifyWebhookSignature checks the signature over the raw, unparsed body.
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

// CreateOrderRequest amounts are in minor currency units.
type CreateOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
	Notes    map[string]string
}
