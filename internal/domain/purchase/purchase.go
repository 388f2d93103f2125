// Package purchase models a single checkout: a provider order for one content
// item or one plan tier, with the amount pinned at creation.
package purchase

import (
	"fmt"
	"strings"
	"time"
)

// Purchase moves created -> paid exactly once and may then move to refunded.
// Persistence performs the same transitions as conditional updates.
type Purchase struct {
	id                uint
	sid               string
	userID            string
	contentType       string
	contentID         string
	productID         string
	provider          string
	providerOrderID   string
	providerPaymentID string
	status            Status
	amountTotal       int64
	currency          string
	pricePaid         *int64
	paidAt            *time.Time
	refundedAt        *time.Time
	metadata          map[string]any
	createdAt         time.Time
	updatedAt         time.Time
}

// NewPurchase builds a created purchase from the pinned order notes.
func NewPurchase(sid, provider, providerOrderID, currency string, notes OrderNotes) (*Purchase, error) {
	if sid == "" {
		return nil, fmt.Errorf("purchase SID is required")
	}
	if provider == "" {
		return nil, fmt.Errorf("provider is required")
	}
	if providerOrderID == "" {
		return nil, fmt.Errorf("provider order ID is required")
	}
	if notes.UserID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if notes.AmountUnits <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if !notes.IsPlan() && (notes.ContentType == "" || notes.ContentID == "") {
		return nil, fmt.Errorf("content reference or product ID is required")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, fmt.Errorf("currency is required")
	}

	now := time.Now().UTC()
	return &Purchase{
		sid:             sid,
		userID:          notes.UserID,
		contentType:     notes.ContentType,
		contentID:       notes.ContentID,
		productID:       notes.ProductID,
		provider:        provider,
		providerOrderID: providerOrderID,
		status:          StatusCreated,
		amountTotal:     notes.AmountUnits,
		currency:        currency,
		metadata:        make(map[string]any),
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructPurchase rebuilds a purchase from persistence.
func ReconstructPurchase(
	id uint,
	sid, userID, contentType, contentID, productID string,
	provider, providerOrderID, providerPaymentID string,
	status Status,
	amountTotal int64,
	currency string,
	pricePaid *int64,
	paidAt, refundedAt *time.Time,
	metadata map[string]any,
	createdAt, updatedAt time.Time,
) (*Purchase, error) {
	if id == 0 {
		return nil, fmt.Errorf("purchase ID cannot be zero")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid purchase status: %s", status)
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Purchase{
		id:                id,
		sid:               sid,
		userID:            userID,
		contentType:       contentType,
		contentID:         contentID,
		productID:         productID,
		provider:          provider,
		providerOrderID:   providerOrderID,
		providerPaymentID: providerPaymentID,
		status:            status,
		amountTotal:       amountTotal,
		currency:          currency,
		pricePaid:         pricePaid,
		paidAt:            paidAt,
		refundedAt:        refundedAt,
		metadata:          metadata,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}, nil
}

func (p *Purchase) ID() uint                  { return p.id }
func (p *Purchase) SID() string               { return p.sid }
func (p *Purchase) UserID() string            { return p.userID }
func (p *Purchase) ContentType() string       { return p.contentType }
func (p *Purchase) ContentID() string         { return p.contentID }
func (p *Purchase) ProductID() string         { return p.productID }
func (p *Purchase) Provider() string          { return p.provider }
func (p *Purchase) ProviderOrderID() string   { return p.providerOrderID }
func (p *Purchase) ProviderPaymentID() string { return p.providerPaymentID }
func (p *Purchase) Status() Status            { return p.status }
func (p *Purchase) AmountTotal() int64        { return p.amountTotal }
func (p *Purchase) Currency() string          { return p.currency }
func (p *Purchase) PricePaid() *int64         { return p.pricePaid }
func (p *Purchase) PaidAt() *time.Time        { return p.paidAt }
func (p *Purchase) RefundedAt() *time.Time    { return p.refundedAt }
func (p *Purchase) Metadata() map[string]any  { return p.metadata }
func (p *Purchase) CreatedAt() time.Time      { return p.createdAt }
func (p *Purchase) UpdatedAt() time.Time      { return p.updatedAt }

// IsPlan reports whether this purchase buys a plan tier.
func (p *Purchase) IsPlan() bool {
	return p.productID != ""
}

func (p *Purchase) IsPaid() bool {
	return p.status == StatusPaid
}

// SetID sets the purchase ID (only for persistence layer use)
func (p *Purchase) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("purchase ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("purchase ID cannot be zero")
	}
	p.id = id
	return nil
}

// CheckAmount compares a provider-reported amount with the pinned amount.
func (p *Purchase) CheckAmount(amount int64, currency string) error {
	if amount != p.amountTotal || !strings.EqualFold(currency, p.currency) {
		return fmt.Errorf("%w: pinned %d %s, got %d %s",
			ErrAmountMismatch, p.amountTotal, p.currency, amount, strings.ToUpper(currency))
	}
	return nil
}

// CheckCapture validates a provider capture. The amount must match the pinned
// amount, and a paid purchase only accepts the payment it was paid with.
func (p *Purchase) CheckCapture(paymentID string, amount int64, currency string) error {
	if p.status == StatusRefunded {
		return fmt.Errorf("%w: capture on %s purchase", ErrInvalidTransition, p.status)
	}
	if err := p.CheckAmount(amount, currency); err != nil {
		return err
	}
	if p.status == StatusPaid && p.providerPaymentID != "" && paymentID != p.providerPaymentID {
		return fmt.Errorf("%w: recorded %s, got %s", ErrPaymentMismatch, p.providerPaymentID, paymentID)
	}
	return nil
}

// Notes returns the order notes this purchase was created from.
func (p *Purchase) Notes() OrderNotes {
	return OrderNotes{
		ContentType: p.contentType,
		ContentID:   p.contentID,
		ProductID:   p.productID,
		UserID:      p.userID,
		AmountUnits: p.amountTotal,
	}
}
