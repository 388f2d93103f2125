// Package billing provides a Go SDK for the billing API: access decisions,
// the reads they are built from, and checkout.
package billing

import "fmt"

// Decision is the verdict for one user and one content item.
type Decision struct {
	Allow           bool   `json:"allow"`
	Reason          string `json:"reason"`
	RequiredPlan    string `json:"required_plan,omitempty"`
	IndividualPrice int64  `json:"individual_price,omitempty"`
	Currency        string `json:"currency,omitempty"`
	Priced          bool   `json:"priced"`
}

type Plan struct {
	UserID   string `json:"user_id"`
	Tier     string `json:"tier"`
	BaseTier string `json:"base_tier"`
	Rank     int    `json:"rank"`
}

// Rule is the catalog entry for a content item. Found is false when none is registered.
type Rule struct {
	ContentType     string `json:"content_type"`
	ContentID       string `json:"content_id"`
	Found           bool   `json:"found"`
	RequiredPlan    string `json:"required_plan,omitempty"`
	IndividualPrice int64  `json:"individual_price,omitempty"`
	Currency        string `json:"currency,omitempty"`
	Active          bool   `json:"active"`
}

type Grant struct {
	PaymentRef string `json:"payment_ref"`
	PricePaid  int64  `json:"price_paid"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
}

type Grants struct {
	ContentType string  `json:"content_type"`
	ContentID   string  `json:"content_id"`
	HasActive   bool    `json:"has_active"`
	Grants      []Grant `json:"grants"`
}

// Order is returned by order creation. Already is true when nothing needs
// to be paid; Reason then says why.
type Order struct {
	Already    bool   `json:"already"`
	Reason     string `json:"reason,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	PurchaseID string `json:"purchase_id,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	Currency   string `json:"currency,omitempty"`
	KeyID      string `json:"key_id,omitempty"`
	Mock       bool   `json:"mock"`
}

// Verification is the checkout result the client reports back.
type Verification struct {
	OrderID     string `json:"order_id"`
	PaymentID   string `json:"payment_id"`
	Signature   string `json:"signature"`
	ContentType string `json:"content_type,omitempty"`
	ContentID   string `json:"content_id,omitempty"`
}

type VerifyResult struct {
	Success    bool   `json:"success"`
	PurchaseID string `json:"purchase_id"`
	PricePaid  int64  `json:"price_paid"`
	Currency   string `json:"currency"`
}

// APIError is a non-2xx response.
type APIError struct {
	Status    int    `json:"-"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api error: status=%d reason=%s: %s", e.Status, e.Reason, e.Message)
	}
	return fmt.Sprintf("api error: status=%d %s: %s", e.Status, e.Type, e.Message)
}

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
}
