package entitlement

import (
	"fmt"
	"time"
)

// ContentGrant unlocks one content item for one user. It is keyed by
// (user, content type, content id, payment ref) so two purchases of the same
// item produce two independent rows.
type ContentGrant struct {
	id          uint
	userID      string
	contentType string
	contentID   string
	paymentRef  string
	purchaseID  uint
	pricePaid   int64
	currency    string
	status      Status
	createdAt   time.Time
	revokedAt   *time.Time
}

func NewContentGrant(userID, contentType, contentID, paymentRef string, purchaseID uint, pricePaid int64, currency string) (*ContentGrant, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if contentType == "" || contentID == "" {
		return nil, fmt.Errorf("content reference is required")
	}
	if paymentRef == "" {
		return nil, ErrPaymentRefRequired
	}
	return &ContentGrant{
		userID:      userID,
		contentType: contentType,
		contentID:   contentID,
		paymentRef:  paymentRef,
		purchaseID:  purchaseID,
		pricePaid:   pricePaid,
		currency:    currency,
		status:      StatusActive,
		createdAt:   time.Now().UTC(),
	}, nil
}

func ReconstructContentGrant(id uint, userID, contentType, contentID, paymentRef string, purchaseID uint, pricePaid int64, currency string, status Status, createdAt time.Time, revokedAt *time.Time) *ContentGrant {
	return &ContentGrant{
		id:          id,
		userID:      userID,
		contentType: contentType,
		contentID:   contentID,
		paymentRef:  paymentRef,
		purchaseID:  purchaseID,
		pricePaid:   pricePaid,
		currency:    currency,
		status:      status,
		createdAt:   createdAt,
		revokedAt:   revokedAt,
	}
}

func (g *ContentGrant) ID() uint              { return g.id }
func (g *ContentGrant) UserID() string        { return g.userID }
func (g *ContentGrant) ContentType() string   { return g.contentType }
func (g *ContentGrant) ContentID() string     { return g.contentID }
func (g *ContentGrant) PaymentRef() string    { return g.paymentRef }
func (g *ContentGrant) PurchaseID() uint      { return g.purchaseID }
func (g *ContentGrant) PricePaid() int64      { return g.pricePaid }
func (g *ContentGrant) Currency() string      { return g.currency }
func (g *ContentGrant) Status() Status        { return g.status }
func (g *ContentGrant) CreatedAt() time.Time  { return g.createdAt }
func (g *ContentGrant) RevokedAt() *time.Time { return g.revokedAt }

func (g *ContentGrant) IsActive() bool {
	return g.status == StatusActive
}
