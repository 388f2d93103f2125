package models

import (
	"time"

	"github.com/secforge/billing/internal/shared/constants"
)

type SubscriptionModel struct {
	ID                     uint   `gorm:"primarykey"`
	UserID                 string `gorm:"not null;size:64;index:idx_subscription_user"`
	ProductID              string `gorm:"not null;size:50"`
	Provider               string `gorm:"not null;size:20;uniqueIndex:idx_subscription_provider,priority:1"`
	ProviderSubscriptionID string `gorm:"not null;size:128;uniqueIndex:idx_subscription_provider,priority:2"`
	Status                 string `gorm:"not null;size:20"`
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}
