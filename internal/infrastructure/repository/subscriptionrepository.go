package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/secforge/billing/internal/domain/subscription"
	"github.com/secforge/billing/internal/infrastructure/persistence/mappers"
	"github.com/secforge/billing/internal/infrastructure/persistence/models"
	"github.com/secforge/billing/internal/shared/db"
	"github.com/secforge/billing/internal/shared/logger"
)

type SubscriptionRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) subscription.Repository {
	return &SubscriptionRepository{db: db, logger: logger}
}

func (r *SubscriptionRepository) GetByProviderID(ctx context.Context, provider, providerSubscriptionID string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("provider = ? AND provider_subscription_id = ?", provider, providerSubscriptionID).
		First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		r.logger.Errorw("failed to get subscription", "provider", provider, "provider_subscription_id", providerSubscriptionID, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	s, err := mappers.SubscriptionToDomain(&model)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription: %w", err)
	}
	return s, nil
}

// CreateIfAbsent returns the stored subscription for the provider ID,
// inserting s first when there is none.
func (r *SubscriptionRepository) CreateIfAbsent(ctx context.Context, s *subscription.Subscription) (*subscription.Subscription, error) {
	model := mappers.SubscriptionToModel(s)
	err := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_subscription_id"}},
			DoNothing: true,
		}).
		Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to create subscription", "provider_subscription_id", s.ProviderSubscriptionID(), "error", err)
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return r.GetByProviderID(ctx, s.Provider(), s.ProviderSubscriptionID())
}

// UpdateState applies a transition only while the row is still in from.
// Nil period bounds leave the stored values untouched.
func (r *SubscriptionRepository) UpdateState(ctx context.Context, id uint, from, to subscription.Status, periodStart, periodEnd *time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to.String(),
		"updated_at": time.Now().UTC(),
	}
	if periodStart != nil {
		updates["current_period_start"] = *periodStart
	}
	if periodEnd != nil {
		updates["current_period_end"] = *periodEnd
	}

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("id = ? AND status = ?", id, from.String()).
		Updates(updates)
	if result.Error != nil {
		r.logger.Errorw("failed to update subscription state", "id", id, "from", from, "to", to, "error", result.Error)
		return false, fmt.Errorf("failed to update subscription state: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
