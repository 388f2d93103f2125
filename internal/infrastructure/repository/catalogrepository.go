package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/infrastructure/persistence/mappers"
	"github.com/secforge/billing/internal/infrastructure/persistence/models"
	"github.com/secforge/billing/internal/shared/db"
	"github.com/secforge/billing/internal/shared/logger"
)

// CatalogRepository stores content entitlement rules.
type CatalogRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewCatalogRepository(db *gorm.DB, logger logger.Interface) catalog.Repository {
	return &CatalogRepository{db: db, logger: logger}
}

func (r *CatalogRepository) GetRule(ctx context.Context, contentType, contentID string) (*catalog.Rule, error) {
	var model models.ContentEntitlementRuleModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrRuleNotFound
		}
		r.logger.Errorw("failed to get rule", "content_type", contentType, "content_id", contentID, "error", err)
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return mappers.RuleToDomain(&model), nil
}

// Upsert replaces the rule for (content_type, content_id).
func (r *CatalogRepository) Upsert(ctx context.Context, rule *catalog.Rule) error {
	model := mappers.RuleToModel(rule)
	// The content reference is the conflict target, not the primary key.
	model.ID = 0
	model.UpdatedAt = time.Now().UTC()

	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_type"}, {Name: "content_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"required_plan", "individual_price", "currency", "active", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert rule", "content_type", rule.ContentType(), "content_id", rule.ContentID(), "error", err)
		return fmt.Errorf("failed to upsert rule: %w", err)
	}

	// MySQL reports no usable insert ID on the update branch.
	var id uint
	if err := tx.Model(&models.ContentEntitlementRuleModel{}).
		Where("content_type = ? AND content_id = ?", rule.ContentType(), rule.ContentID()).
		Pluck("id", &id).Error; err != nil {
		return fmt.Errorf("failed to read rule ID: %w", err)
	}
	rule.SetID(id)
	return nil
}
