package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/secforge/billing/internal/shared/constants"
)

// ProviderEventModel is the webhook idempotency ledger.
type ProviderEventModel struct {
	ID              uint   `gorm:"primarykey"`
	Provider        string `gorm:"not null;size:20;uniqueIndex:idx_provider_event,priority:1"`
	EventType       string `gorm:"not null;size:64"`
	ExternalEventID string `gorm:"not null;size:128;uniqueIndex:idx_provider_event,priority:2"`
	Payload         datatypes.JSON
	SignatureValid  bool   `gorm:"not null;default:false"`
	Result          string `gorm:"not null;size:20;default:pending;index:idx_provider_event_result"`
	ErrorMessage    string `gorm:"type:text"`
	Attempts        int    `gorm:"not null;default:1"`
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (ProviderEventModel) TableName() string {
	return constants.TableProviderEvents
}
