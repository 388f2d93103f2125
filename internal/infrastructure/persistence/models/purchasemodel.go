package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/secforge/billing/internal/shared/constants"
)

type PurchaseModel struct {
	ID                uint    `gorm:"primarykey"`
	SID               string  `gorm:"column:sid;not null;size:32;uniqueIndex:idx_purchase_sid"`
	UserID            string  `gorm:"not null;size:64;index:idx_purchase_user"`
	ContentType       *string `gorm:"size:50"`
	ContentID         *string `gorm:"size:128"`
	ProductID         *string `gorm:"size:50"`
	Provider          string  `gorm:"not null;size:20"`
	ProviderOrderID   string  `gorm:"not null;size:128;uniqueIndex:idx_purchase_provider_order"`
	ProviderPaymentID *string `gorm:"size:128;index:idx_purchase_provider_payment"`
	Status            string  `gorm:"not null;size:20;index:idx_purchase_status"`
	AmountTotal       int64   `gorm:"not null"`
	Currency          string  `gorm:"not null;size:10"`
	PricePaid         *int64
	PaidAt            *time.Time
	RefundedAt        *time.Time
	Metadata          datatypes.JSON
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (PurchaseModel) TableName() string {
	return constants.TablePurchases
}
