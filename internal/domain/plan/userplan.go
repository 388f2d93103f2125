package plan

import (
	"fmt"
	"time"
)

// UserPlan is a user's tier record. baseTier is managed outside this service;
// tier is the effective tier after plan grants are applied.
type UserPlan struct {
	userID    string
	baseTier  string
	tier      string
	createdAt time.Time
	updatedAt time.Time
}

func NewUserPlan(userID, baseTier string) (*UserPlan, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	baseTier = normalizeName(baseTier)
	now := time.Now().UTC()
	return &UserPlan{
		userID:    userID,
		baseTier:  baseTier,
		tier:      baseTier,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructUserPlan(userID, baseTier, tier string, createdAt, updatedAt time.Time) *UserPlan {
	return &UserPlan{
		userID:    userID,
		baseTier:  baseTier,
		tier:      tier,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (p *UserPlan) UserID() string       { return p.userID }
func (p *UserPlan) BaseTier() string     { return p.baseTier }
func (p *UserPlan) Tier() string         { return p.tier }
func (p *UserPlan) CreatedAt() time.Time { return p.createdAt }
func (p *UserPlan) UpdatedAt() time.Time { return p.updatedAt }
