package purchase

import (
	"context"
	"time"
)

// Repository persists purchases. Transition methods are conditional updates
// and report false when another writer got there first.
type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	// CreateIfAbsent inserts p unless a purchase for the same provider order
	// exists, and returns whichever row is stored.
	CreateIfAbsent(ctx context.Context, p *Purchase) (*Purchase, error)
	GetByID(ctx context.Context, id uint) (*Purchase, error)
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*Purchase, error)
	GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*Purchase, error)
	// MarkPaid updates created -> paid.
	MarkPaid(ctx context.Context, id uint, paymentID string, pricePaid int64, paidAt time.Time) (bool, error)
	// MarkRefunded updates paid -> refunded.
	MarkRefunded(ctx context.Context, id uint, refundedAt time.Time) (bool, error)
}
