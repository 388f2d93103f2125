// Package catalog holds the per-content entitlement rules: which plan tier or
// one-off price unlocks a content item.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Rule is keyed by (contentType, contentID). A rule with neither a plan nor a
// positive price leaves the content open.
type Rule struct {
	id              uint
	contentType     string
	contentID       string
	requiredPlan    *string
	individualPrice *int64
	currency        string
	active          bool
	createdAt       time.Time
	updatedAt       time.Time
}

func NewRule(contentType, contentID string, requiredPlan *string, individualPrice *int64, currency string, active bool) (*Rule, error) {
	ct, cid, err := NormalizeContentRef(contentType, contentID)
	if err != nil {
		return nil, err
	}
	if requiredPlan != nil {
		p := strings.ToLower(strings.TrimSpace(*requiredPlan))
		if p == "" {
			requiredPlan = nil
		} else {
			requiredPlan = &p
		}
	}
	if individualPrice != nil && *individualPrice < 0 {
		return nil, fmt.Errorf("individual price cannot be negative: %d", *individualPrice)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if individualPrice != nil && *individualPrice > 0 && currency == "" {
		return nil, fmt.Errorf("currency is required for priced content")
	}

	now := time.Now().UTC()
	return &Rule{
		contentType:     ct,
		contentID:       cid,
		requiredPlan:    requiredPlan,
		individualPrice: individualPrice,
		currency:        currency,
		active:          active,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

func ReconstructRule(id uint, contentType, contentID string, requiredPlan *string, individualPrice *int64, currency string, active bool, createdAt, updatedAt time.Time) *Rule {
	return &Rule{
		id:              id,
		contentType:     contentType,
		contentID:       contentID,
		requiredPlan:    requiredPlan,
		individualPrice: individualPrice,
		currency:        currency,
		active:          active,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (r *Rule) ID() uint                { return r.id }
func (r *Rule) ContentType() string     { return r.contentType }
func (r *Rule) ContentID() string       { return r.contentID }
func (r *Rule) RequiredPlan() *string   { return r.requiredPlan }
func (r *Rule) IndividualPrice() *int64 { return r.individualPrice }
func (r *Rule) Currency() string        { return r.currency }
func (r *Rule) IsActive() bool          { return r.active }
func (r *Rule) CreatedAt() time.Time    { return r.createdAt }
func (r *Rule) UpdatedAt() time.Time    { return r.updatedAt }

// PlanName returns the required tier or "".
func (r *Rule) PlanName() string {
	if r.requiredPlan == nil {
		return ""
	}
	return *r.requiredPlan
}

// Price returns the individual price, treating unset and non-positive as 0.
func (r *Rule) Price() int64 {
	if r.individualPrice == nil || *r.individualPrice <= 0 {
		return 0
	}
	return *r.individualPrice
}

func (r *Rule) SetID(id uint) {
	r.id = id
}

// NormalizeContentRef lower-cases the content type and trims both parts.
func NormalizeContentRef(contentType, contentID string) (string, string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	cid := strings.TrimSpace(contentID)
	if ct == "" {
		return "", "", fmt.Errorf("content type is required")
	}
	if cid == "" {
		return "", "", fmt.Errorf("content ID is required")
	}
	return ct, cid, nil
}
