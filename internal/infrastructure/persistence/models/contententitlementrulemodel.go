package models

import (
	"time"

	"github.com/secforge/billing/internal/shared/constants"
)

// ContentEntitlementRuleModel is the catalog row for one content item.
type ContentEntitlementRuleModel struct {
	ID              uint    `gorm:"primarykey"`
	ContentType     string  `gorm:"not null;size:50;uniqueIndex:idx_rule_content,priority:1"`
	ContentID       string  `gorm:"not null;size:128;uniqueIndex:idx_rule_content,priority:2"`
	RequiredPlan    *string `gorm:"size:50"`
	IndividualPrice *int64
	Currency        string `gorm:"size:10;not null;default:''"`
	Active          bool   `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (ContentEntitlementRuleModel) TableName() string {
	return constants.TableContentEntitlementRules
}
