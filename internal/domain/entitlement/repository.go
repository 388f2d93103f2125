package entitlement

import (
	"context"
	"time"
)

// Repository stores grants. Writers use conflict-tolerant inserts and
// status-guarded updates so concurrent callers converge on one row.
type Repository interface {
	// CreateContentGrantIfAbsent returns false when the grant key already exists.
	CreateContentGrantIfAbsent(ctx context.Context, g *ContentGrant) (bool, error)
	// RevokeContentGrants flags the active grants created by paymentRef.
	RevokeContentGrants(ctx context.Context, paymentRef string, at time.Time) (int64, error)
	HasActiveContentGrant(ctx context.Context, userID, contentType, contentID string) (bool, error)
	ListContentGrants(ctx context.Context, userID, contentType, contentID string) ([]*ContentGrant, error)
	CountContentGrantsByPaymentRef(ctx context.Context, paymentRef string) (int64, error)

	// UpsertPlanGrant inserts or re-activates the grant for its source and
	// refreshes tier and expiry.
	UpsertPlanGrant(ctx context.Context, g *PlanGrant) error
	RevokePlanGrant(ctx context.Context, sourceType SourceType, sourceID uint, at time.Time) (int64, error)
	ListEffectivePlanGrants(ctx context.Context, userID string, now time.Time) ([]*PlanGrant, error)
}
