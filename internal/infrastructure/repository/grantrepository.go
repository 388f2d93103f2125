package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/secforge/billing/internal/domain/entitlement"
	"github.com/secforge/billing/internal/infrastructure/persistence/mappers"
	"github.com/secforge/billing/internal/infrastructure/persistence/models"
	"github.com/secforge/billing/internal/shared/db"
	"github.com/secforge/billing/internal/shared/logger"
)

// GrantRepository stores content and plan grants. Inserts are keyed on the
// source so replays never add a second row.
type GrantRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewGrantRepository(db *gorm.DB, logger logger.Interface) entitlement.Repository {
	return &GrantRepository{db: db, logger: logger}
}

// CreateContentGrantIfAbsent reports whether a new row was written.
func (r *GrantRepository) CreateContentGrantIfAbsent(ctx context.Context, g *entitlement.ContentGrant) (bool, error) {
	model := mappers.ContentGrantToModel(g)
	model.UpdatedAt = model.CreatedAt
	result := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "content_type"}, {Name: "content_id"}, {Name: "payment_ref"},
			},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to create content grant",
			"user_id", g.UserID(),
			"content_type", g.ContentType(),
			"content_id", g.ContentID(),
			"payment_ref", g.PaymentRef(),
			"error", result.Error)
		return false, fmt.Errorf("failed to create content grant: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RevokeContentGrants revokes the active grants created by one payment only.
func (r *GrantRepository) RevokeContentGrants(ctx context.Context, paymentRef string, at time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.ContentGrantModel{}).
		Where("payment_ref = ? AND status = ?", paymentRef, entitlement.StatusActive.String()).
		Updates(map[string]any{
			"status":     entitlement.StatusRevoked.String(),
			"revoked_at": at,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to revoke content grants", "payment_ref", paymentRef, "error", result.Error)
		return 0, fmt.Errorf("failed to revoke content grants: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GrantRepository) HasActiveContentGrant(ctx context.Context, userID, contentType, contentID string) (bool, error) {
	var count int64
	err := db.GetTxFromContext(ctx, r.db).
		Model(&models.ContentGrantModel{}).
		Where("user_id = ? AND content_type = ? AND content_id = ? AND status = ?",
			userID, contentType, contentID, entitlement.StatusActive.String()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count content grants: %w", err)
	}
	return count > 0, nil
}

func (r *GrantRepository) ListContentGrants(ctx context.Context, userID, contentType, contentID string) ([]*entitlement.ContentGrant, error) {
	var rows []models.ContentGrantModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND content_type = ? AND content_id = ?", userID, contentType, contentID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		r.logger.Errorw("failed to list content grants", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list content grants: %w", err)
	}
	grants := make([]*entitlement.ContentGrant, len(rows))
	for i := range rows {
		grants[i] = mappers.ContentGrantToDomain(&rows[i])
	}
	return grants, nil
}

// CountContentGrantsByPaymentRef counts rows in any status.
func (r *GrantRepository) CountContentGrantsByPaymentRef(ctx context.Context, paymentRef string) (int64, error) {
	var count int64
	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.ContentGrantModel{}).
		Where("payment_ref = ?", paymentRef).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count content grants: %w", err)
	}
	return count, nil
}

// UpsertPlanGrant keeps one row per (source_type, source_id); a repeat
// grant reactivates it and moves the expiry.
func (r *GrantRepository) UpsertPlanGrant(ctx context.Context, g *entitlement.PlanGrant) error {
	model := mappers.PlanGrantToModel(g)
	model.UpdatedAt = time.Now().UTC()
	err := db.GetTxFromContext(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_type"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "tier", "status", "expires_at", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert plan grant",
			"user_id", g.UserID(),
			"tier", g.Tier(),
			"source_type", g.SourceType(),
			"source_id", g.SourceID(),
			"error", err)
		return fmt.Errorf("failed to upsert plan grant: %w", err)
	}
	return nil
}

func (r *GrantRepository) RevokePlanGrant(ctx context.Context, sourceType entitlement.SourceType, sourceID uint, at time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PlanGrantModel{}).
		Where("source_type = ? AND source_id = ? AND status = ?", sourceType.String(), sourceID, entitlement.StatusActive.String()).
		Updates(map[string]any{
			"status":     entitlement.StatusRevoked.String(),
			"expires_at": at,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to revoke plan grant", "source_type", sourceType, "source_id", sourceID, "error", result.Error)
		return 0, fmt.Errorf("failed to revoke plan grant: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListEffectivePlanGrants returns active grants that have not expired at now.
func (r *GrantRepository) ListEffectivePlanGrants(ctx context.Context, userID string, now time.Time) ([]*entitlement.PlanGrant, error) {
	var rows []models.PlanGrantModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND status = ?", userID, entitlement.StatusActive.String()).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		r.logger.Errorw("failed to list plan grants", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list plan grants: %w", err)
	}
	grants := make([]*entitlement.PlanGrant, len(rows))
	for i := range rows {
		grants[i] = mappers.PlanGrantToDomain(&rows[i])
	}
	return grants, nil
}
