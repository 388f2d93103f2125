// Package subscription tracks provider-side recurring plan subscriptions.
package subscription

import (
	"fmt"
	"time"
)

type Subscription struct {
	id                     uint
	userID                 string
	productID              string
	provider               string
	providerSubscriptionID string
	status                 Status
	currentPeriodStart     *time.Time
	currentPeriodEnd       *time.Time
	createdAt              time.Time
	updatedAt              time.Time
}

func NewSubscription(userID, productID, provider, providerSubscriptionID string) (*Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if productID == "" {
		return nil, fmt.Errorf("product ID is required")
	}
	if provider == "" || providerSubscriptionID == "" {
		return nil, fmt.Errorf("provider subscription reference is required")
	}
	now := time.Now().UTC()
	return &Subscription{
		userID:                 userID,
		productID:              productID,
		provider:               provider,
		providerSubscriptionID: providerSubscriptionID,
		status:                 StatusIncomplete,
		createdAt:              now,
		updatedAt:              now,
	}, nil
}

func ReconstructSubscription(
	id uint,
	userID, productID, provider, providerSubscriptionID string,
	status Status,
	periodStart, periodEnd *time.Time,
	createdAt, updatedAt time.Time,
) (*Subscription, error) {
	if id == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid subscription status: %s", status)
	}
	return &Subscription{
		id:                     id,
		userID:                 userID,
		productID:              productID,
		provider:               provider,
		providerSubscriptionID: providerSubscriptionID,
		status:                 status,
		currentPeriodStart:     periodStart,
		currentPeriodEnd:       periodEnd,
		createdAt:              createdAt,
		updatedAt:              updatedAt,
	}, nil
}

func (s *Subscription) ID() uint                       { return s.id }
func (s *Subscription) UserID() string                 { return s.userID }
func (s *Subscription) ProductID() string              { return s.productID }
func (s *Subscription) Provider() string               { return s.provider }
func (s *Subscription) ProviderSubscriptionID() string { return s.providerSubscriptionID }
func (s *Subscription) Status() Status                 { return s.status }
func (s *Subscription) CurrentPeriodStart() *time.Time { return s.currentPeriodStart }
func (s *Subscription) CurrentPeriodEnd() *time.Time   { return s.currentPeriodEnd }
func (s *Subscription) CreatedAt() time.Time           { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time           { return s.updatedAt }

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	s.id = id
	return nil
}

// PeriodLength is the span of the current billing period, or 0 when unknown.
func (s *Subscription) PeriodLength() time.Duration {
	if s.currentPeriodStart == nil || s.currentPeriodEnd == nil {
		return 0
	}
	if d := s.currentPeriodEnd.Sub(*s.currentPeriodStart); d > 0 {
		return d
	}
	return 0
}

// Transition describes the effect of applying a provider update.
type Transition struct {
	From            Status
	To              Status
	EnteredActive   bool
	EnteredCanceled bool
	// Renewed is set when an already active subscription moved to a later period.
	Renewed bool
}

// Changed reports whether anything needs to be persisted.
func (t Transition) Changed() bool {
	return t.From != t.To || t.Renewed
}

// Apply moves the subscription to status and, when given, new period bounds.
// Zero times leave the stored bounds untouched. Canceled is terminal: later
// updates are ignored. An update whose period ends before the stored period
// is stale and ignored unless it cancels.
func (s *Subscription) Apply(status Status, periodStart, periodEnd time.Time) (Transition, error) {
	if !status.IsValid() {
		return Transition{}, fmt.Errorf("invalid subscription status: %s", status)
	}

	unchanged := Transition{From: s.status, To: s.status}
	if s.status == StatusCanceled {
		return unchanged, nil
	}
	stale := !periodEnd.IsZero() && s.currentPeriodEnd != nil && periodEnd.Before(*s.currentPeriodEnd)
	if stale && status != StatusCanceled {
		return unchanged, nil
	}

	t := Transition{From: s.status, To: status}
	periodAdvanced := !periodEnd.IsZero() && (s.currentPeriodEnd == nil || periodEnd.After(*s.currentPeriodEnd))

	if !stale {
		if !periodStart.IsZero() {
			ps := periodStart.UTC()
			s.currentPeriodStart = &ps
		}
		if !periodEnd.IsZero() {
			pe := periodEnd.UTC()
			s.currentPeriodEnd = &pe
		}
	}

	t.EnteredActive = status == StatusActive && s.status != StatusActive
	t.EnteredCanceled = status == StatusCanceled && s.status != StatusCanceled
	t.Renewed = status == StatusActive && s.status == StatusActive && periodAdvanced

	s.status = status
	s.updatedAt = time.Now().UTC()
	return t, nil
}
