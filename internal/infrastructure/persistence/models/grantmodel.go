package models

import (
	"time"

	"github.com/secforge/billing/internal/shared/constants"
)

// ContentGrantModel has one row per purchase of a content item.
type ContentGrantModel struct {
	ID          uint   `gorm:"primarykey"`
	UserID      string `gorm:"not null;size:64;uniqueIndex:idx_content_grant,priority:1;index:idx_content_grant_lookup,priority:1"`
	ContentType string `gorm:"not null;size:50;uniqueIndex:idx_content_grant,priority:2;index:idx_content_grant_lookup,priority:2"`
	ContentID   string `gorm:"not null;size:128;uniqueIndex:idx_content_grant,priority:3;index:idx_content_grant_lookup,priority:3"`
	PaymentRef  string `gorm:"not null;size:128;uniqueIndex:idx_content_grant,priority:4;index:idx_content_grant_payment_ref"`
	PurchaseID  uint   `gorm:"not null;index:idx_content_grant_purchase"`
	PricePaid   int64  `gorm:"not null;default:0"`
	Currency    string `gorm:"not null;size:10"`
	Status      string `gorm:"not null;size:20;default:active"`
	RevokedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ContentGrantModel) TableName() string {
	return constants.TableContentGrants
}

// PlanGrantModel holds a tier for a user from exactly one source.
type PlanGrantModel struct {
	ID         uint       `gorm:"primarykey"`
	UserID     string     `gorm:"not null;size:64;index:idx_plan_grant_user"`
	Tier       string     `gorm:"not null;size:50"`
	SourceType string     `gorm:"not null;size:20;uniqueIndex:idx_plan_grant_source,priority:1"`
	SourceID   uint       `gorm:"not null;uniqueIndex:idx_plan_grant_source,priority:2"`
	Status     string     `gorm:"not null;size:20;default:active"`
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (PlanGrantModel) TableName() string {
	return constants.TablePlanGrants
}

// All lists every model, in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&ContentEntitlementRuleModel{},
		&UserPlanModel{},
		&PurchaseModel{},
		&SubscriptionModel{},
		&ProviderEventModel{},
		&ContentGrantModel{},
		&PlanGrantModel{},
	}
}
