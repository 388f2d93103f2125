package entitlement

import (
	"fmt"
	"time"
)

// PlanGrant holds a tier for a user because of one purchase or subscription.
// It is unique per source.
type PlanGrant struct {
	id         uint
	userID     string
	tier       string
	sourceType SourceType
	sourceID   uint
	status     Status
	expiresAt  *time.Time
	createdAt  time.Time
	updatedAt  time.Time
}

// NewPlanGrant creates an active grant. A zero duration never expires.
func NewPlanGrant(userID, tier string, sourceType SourceType, sourceID uint, duration time.Duration, now time.Time) (*PlanGrant, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if tier == "" {
		return nil, fmt.Errorf("tier is required")
	}
	if !sourceType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSourceType, sourceType)
	}
	if sourceID == 0 {
		return nil, ErrSourceIDRequired
	}
	var expiresAt *time.Time
	if duration > 0 {
		e := now.Add(duration).UTC()
		expiresAt = &e
	}
	return &PlanGrant{
		userID:     userID,
		tier:       tier,
		sourceType: sourceType,
		sourceID:   sourceID,
		status:     StatusActive,
		expiresAt:  expiresAt,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

func ReconstructPlanGrant(id uint, userID, tier string, sourceType SourceType, sourceID uint, status Status, expiresAt *time.Time, createdAt, updatedAt time.Time) *PlanGrant {
	return &PlanGrant{
		id:         id,
		userID:     userID,
		tier:       tier,
		sourceType: sourceType,
		sourceID:   sourceID,
		status:     status,
		expiresAt:  expiresAt,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (g *PlanGrant) ID() uint               { return g.id }
func (g *PlanGrant) UserID() string         { return g.userID }
func (g *PlanGrant) Tier() string           { return g.tier }
func (g *PlanGrant) SourceType() SourceType { return g.sourceType }
func (g *PlanGrant) SourceID() uint         { return g.sourceID }
func (g *PlanGrant) Status() Status         { return g.status }
func (g *PlanGrant) ExpiresAt() *time.Time  { return g.expiresAt }
func (g *PlanGrant) CreatedAt() time.Time   { return g.createdAt }
func (g *PlanGrant) UpdatedAt() time.Time   { return g.updatedAt }

// IsEffective reports whether the grant is active and unexpired at now.
func (g *PlanGrant) IsEffective(now time.Time) bool {
	if g.status != StatusActive {
		return false
	}
	return g.expiresAt == nil || now.Before(*g.expiresAt)
}
