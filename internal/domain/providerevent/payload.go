package providerevent

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider event types this service acts on.
const (
	TypePaymentCaptured = "payment.captured"
	TypeOrderPaid       = "order.paid"
	TypePaymentRefunded = "payment.refunded"
	TypeRefundProcessed = "refund.processed"

	subscriptionPrefix = "subscription."
)

// Envelope is the outer webhook body.
type Envelope struct {
	Event     string          `json:"event"`
	ID        string          `json:"id"`
	AccountID string          `json:"account_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at,omitempty"`
}

// ParseEnvelope decodes the body. An empty event name is an error.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid webhook body: %w", err)
	}
	env.Event = strings.TrimSpace(env.Event)
	if env.Event == "" {
		return nil, fmt.Errorf("webhook body has no event type")
	}
	return &env, nil
}

// ExternalEventID picks the body id, then the header id, then a content hash.
func ExternalEventID(env *Envelope, headerID string, raw []byte) string {
	if id := strings.TrimSpace(env.ID); id != "" {
		return id
	}
	if id := strings.TrimSpace(headerID); id != "" {
		return id
	}
	sum := sha256.Sum256(raw)
	return "hash:" + hex.EncodeToString(sum[:])
}

// Variant is one of the typed payloads below.
type Variant interface {
	EventType() string
}

type PaymentCaptured struct {
	Type      string
	OrderID   string
	PaymentID string
	Amount    int64
	Currency  string
	Notes     Notes
}

type PaymentRefunded struct {
	Type      string
	PaymentID string
	RefundID  string
	Amount    int64
	Currency  string
}

type SubscriptionChanged struct {
	Type           string
	SubscriptionID string
	PlanID         string
	Status         string
	CurrentStart   int64
	CurrentEnd     int64
	Notes          Notes
}

// Unknown is any event this service records but does not act on.
type Unknown struct {
	Type string
}

func (v PaymentCaptured) EventType() string     { return v.Type }
func (v PaymentRefunded) EventType() string     { return v.Type }
func (v SubscriptionChanged) EventType() string { return v.Type }
func (v Unknown) EventType() string             { return v.Type }

// Notes accepts both an object and the empty array providers send when no
// notes were attached.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] == '[' {
		*n = Notes{}
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	out := make(Notes, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = fmt.Sprintf("%.0f", val)
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	*n = out
	return nil
}

type paymentEntity struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Notes    Notes  `json:"notes"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type subscriptionEntity struct {
	ID           string `json:"id"`
	PlanID       string `json:"plan_id"`
	Status       string `json:"status"`
	CurrentStart int64  `json:"current_start"`
	CurrentEnd   int64  `json:"current_end"`
	Notes        Notes  `json:"notes"`
}

type eventPayload struct {
	Payment *struct {
		Entity paymentEntity `json:"entity"`
	} `json:"payment"`
	Refund *struct {
		Entity refundEntity `json:"entity"`
	} `json:"refund"`
	Subscription *struct {
		Entity subscriptionEntity `json:"entity"`
	} `json:"subscription"`
}

// Variant decodes the payload into the typed variant for the event type.
// Known event types with missing entities are an error; unknown types are not.
func (env *Envelope) Variant() (Variant, error) {
	var p eventPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", env.Event, err)
		}
	}

	switch {
	case env.Event == TypePaymentCaptured || env.Event == TypeOrderPaid:
		if p.Payment == nil || p.Payment.Entity.OrderID == "" {
			return nil, fmt.Errorf("%s payload has no payment order", env.Event)
		}
		e := p.Payment.Entity
		return PaymentCaptured{
			Type:      env.Event,
			OrderID:   e.OrderID,
			PaymentID: e.ID,
			Amount:    e.Amount,
			Currency:  strings.ToUpper(e.Currency),
			Notes:     e.Notes,
		}, nil

	case env.Event == TypePaymentRefunded || env.Event == TypeRefundProcessed:
		v := PaymentRefunded{Type: env.Event}
		if p.Refund != nil {
			v.RefundID = p.Refund.Entity.ID
			v.PaymentID = p.Refund.Entity.PaymentID
			v.Amount = p.Refund.Entity.Amount
			v.Currency = strings.ToUpper(p.Refund.Entity.Currency)
		}
		if v.PaymentID == "" && p.Payment != nil {
			v.PaymentID = p.Payment.Entity.ID
		}
		if v.PaymentID == "" {
			return nil, fmt.Errorf("%s payload has no payment id", env.Event)
		}
		return v, nil

	case strings.HasPrefix(env.Event, subscriptionPrefix):
		if p.Subscription == nil || p.Subscription.Entity.ID == "" {
			return nil, fmt.Errorf("%s payload has no subscription", env.Event)
		}
		e := p.Subscription.Entity
		status := e.Status
		if status == "" {
			status = strings.TrimPrefix(env.Event, subscriptionPrefix)
		}
		return SubscriptionChanged{
			Type:           env.Event,
			SubscriptionID: e.ID,
			PlanID:         e.PlanID,
			Status:         status,
			CurrentStart:   e.CurrentStart,
			CurrentEnd:     e.CurrentEnd,
			Notes:          e.Notes,
		}, nil
	}

	return Unknown{Type: env.Event}, nil
}
