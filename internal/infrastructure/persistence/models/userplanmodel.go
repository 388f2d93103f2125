package models

import (
	"time"

	"github.com/secforge/billing/internal/shared/constants"
)

// UserPlanModel stores the externally managed base tier next to the effective tier.
type UserPlanModel struct {
	UserID    string `gorm:"primaryKey;size:64"`
	BaseTier  string `gorm:"not null;size:50"`
	Tier      string `gorm:"not null;size:50"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserPlanModel) TableName() string {
	return constants.TableUserPlans
}
