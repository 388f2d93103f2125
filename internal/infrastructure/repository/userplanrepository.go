package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/secforge/billing/internal/domain/plan"
	"github.com/secforge/billing/internal/infrastructure/persistence/mappers"
	"github.com/secforge/billing/internal/infrastructure/persistence/models"
	"github.com/secforge/billing/internal/shared/db"
	"github.com/secforge/billing/internal/shared/logger"
)

// UserPlanRepository keeps one row per user. The effective tier only
// changes through CompareAndSetTier.
type UserPlanRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUserPlanRepository(db *gorm.DB, logger logger.Interface) plan.Repository {
	return &UserPlanRepository{db: db, logger: logger}
}

func (r *UserPlanRepository) GetByUserID(ctx context.Context, userID string) (*plan.UserPlan, error) {
	var model models.UserPlanModel
	if err := db.GetTxFromContext(ctx, r.db).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plan.ErrUserPlanNotFound
		}
		r.logger.Errorw("failed to get user plan", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user plan: %w", err)
	}
	return mappers.UserPlanToDomain(&model), nil
}

// EnsureExists inserts a row at baseTier unless one already exists.
func (r *UserPlanRepository) EnsureExists(ctx context.Context, userID, baseTier string) error {
	now := time.Now().UTC()
	model := &models.UserPlanModel{UserID: userID, BaseTier: baseTier, Tier: baseTier, CreatedAt: now, UpdatedAt: now}
	err := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to ensure user plan", "user_id", userID, "error", err)
		return fmt.Errorf("failed to ensure user plan: %w", err)
	}
	return nil
}

// CompareAndSetTier writes next only while the stored tier still equals expected.
func (r *UserPlanRepository) CompareAndSetTier(ctx context.Context, userID, expected, next string) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.UserPlanModel{}).
		Where("user_id = ? AND tier = ?", userID, expected).
		Updates(map[string]any{"tier": next, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		r.logger.Errorw("failed to update user tier", "user_id", userID, "expected", expected, "next", next, "error", result.Error)
		return false, fmt.Errorf("failed to update user tier: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SetBaseTier records the externally managed tier. New rows start with tier = baseTier.
func (r *UserPlanRepository) SetBaseTier(ctx context.Context, userID, baseTier string) error {
	now := time.Now().UTC()
	model := &models.UserPlanModel{UserID: userID, BaseTier: baseTier, Tier: baseTier, CreatedAt: now, UpdatedAt: now}
	err := db.GetTxFromContext(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_tier", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to set base tier", "user_id", userID, "base_tier", baseTier, "error", err)
		return fmt.Errorf("failed to set base tier: %w", err)
	}
	return nil
}
