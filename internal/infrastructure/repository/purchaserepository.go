package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/secforge/billing/internal/domain/purchase"
	"github.com/secforge/billing/internal/infrastructure/persistence/mappers"
	"github.com/secforge/billing/internal/infrastructure/persistence/models"
	"github.com/secforge/billing/internal/shared/db"
	"github.com/secforge/billing/internal/shared/logger"
)

// PurchaseRepository persists purchases. Status changes are conditional
// updates so concurrent verifiers and webhooks transition a row once.
type PurchaseRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPurchaseRepository(db *gorm.DB, logger logger.Interface) purchase.Repository {
	return &PurchaseRepository{db: db, logger: logger}
}

func (r *PurchaseRepository) Create(ctx context.Context, p *purchase.Purchase) error {
	model, err := mappers.PurchaseToModel(p)
	if err != nil {
		return fmt.Errorf("failed to map purchase: %w", err)
	}
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create purchase", "provider_order_id", p.ProviderOrderID(), "error", err)
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	if err := p.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set purchase ID: %w", err)
	}
	r.logger.Infow("purchase created", "id", model.ID, "sid", model.SID, "provider_order_id", model.ProviderOrderID)
	return nil
}

// CreateIfAbsent inserts p unless a purchase for the same provider order
// exists, and returns whichever row is stored.
func (r *PurchaseRepository) CreateIfAbsent(ctx context.Context, p *purchase.Purchase) (*purchase.Purchase, error) {
	model, err := mappers.PurchaseToModel(p)
	if err != nil {
		return nil, fmt.Errorf("failed to map purchase: %w", err)
	}
	result := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "provider_order_id"}}, DoNothing: true}).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to create purchase", "provider_order_id", p.ProviderOrderID(), "error", result.Error)
		return nil, fmt.Errorf("failed to create purchase: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		r.logger.Infow("purchase created from order notes", "id", model.ID, "provider_order_id", model.ProviderOrderID)
	}
	return r.GetByProviderOrderID(ctx, p.ProviderOrderID())
}

func (r *PurchaseRepository) GetByID(ctx context.Context, id uint) (*purchase.Purchase, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PurchaseRepository) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*purchase.Purchase, error) {
	return r.first(ctx, "provider_order_id = ?", providerOrderID)
}

func (r *PurchaseRepository) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*purchase.Purchase, error) {
	return r.first(ctx, "provider_payment_id = ?", providerPaymentID)
}

func (r *PurchaseRepository) first(ctx context.Context, query string, arg any) (*purchase.Purchase, error) {
	var model models.PurchaseModel
	if err := db.GetTxFromContext(ctx, r.db).Where(query, arg).First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, purchase.ErrPurchaseNotFound
		}
		r.logger.Errorw("failed to get purchase", "query", query, "error", err)
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	p, err := mappers.PurchaseToDomain(&model)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct purchase: %w", err)
	}
	return p, nil
}

// MarkPaid moves a created purchase to paid. It reports false when the row
// was not in created state.
func (r *PurchaseRepository) MarkPaid(ctx context.Context, id uint, paymentID string, pricePaid int64, paidAt time.Time) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PurchaseModel{}).
		Where("id = ? AND status = ?", id, purchase.StatusCreated.String()).
		Updates(map[string]any{
			"status":              purchase.StatusPaid.String(),
			"provider_payment_id": paymentID,
			"price_paid":          pricePaid,
			"paid_at":             paidAt,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to mark purchase paid", "id", id, "payment_id", paymentID, "error", result.Error)
		return false, fmt.Errorf("failed to mark purchase paid: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkRefunded moves a paid purchase to refunded.
func (r *PurchaseRepository) MarkRefunded(ctx context.Context, id uint, refundedAt time.Time) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PurchaseModel{}).
		Where("id = ? AND status = ?", id, purchase.StatusPaid.String()).
		Updates(map[string]any{
			"status":      purchase.StatusRefunded.String(),
			"refunded_at": refundedAt,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to mark purchase refunded", "id", id, "error", result.Error)
		return false, fmt.Errorf("failed to mark purchase refunded: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
