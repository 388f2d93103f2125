package plan

import (
	"context"
	"errors"
)

var ErrUserPlanNotFound = errors.New("user plan not found")

// Repository persists user plans. Tier changes go through CompareAndSetTier so
// concurrent grants never overwrite each other.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*UserPlan, error)
	// EnsureExists inserts a row with baseTier when the user has none.
	EnsureExists(ctx context.Context, userID, baseTier string) error
	// CompareAndSetTier sets tier to next only if it is still expected.
	CompareAndSetTier(ctx context.Context, userID, expected, next string) (bool, error)
	// SetBaseTier records the externally managed tier.
	SetBaseTier(ctx context.Context, userID, baseTier string) error
}
