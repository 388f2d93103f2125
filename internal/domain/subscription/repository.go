package subscription

import (
	"context"
	"errors"
	"time"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

type Repository interface {
	GetByProviderID(ctx context.Context, provider, providerSubscriptionID string) (*Subscription, error)
	// CreateIfAbsent inserts s unless the provider reference exists, and
	// returns the stored row.
	CreateIfAbsent(ctx context.Context, s *Subscription) (*Subscription, error)
	// UpdateState writes status and period bounds only while the stored
	// status still equals from.
	UpdateState(ctx context.Context, id uint, from, to Status, periodStart, periodEnd *time.Time) (bool, error)
}
