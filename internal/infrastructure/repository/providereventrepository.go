package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/secforge/billing/internal/domain/providerevent"
	"github.com/secforge/billing/internal/infrastructure/persistence/mappers"
	"github.com/secforge/billing/internal/infrastructure/persistence/models"
	"github.com/secforge/billing/internal/shared/db"
	"github.com/secforge/billing/internal/shared/logger"
)

// ProviderEventRepository is the webhook ledger keyed on
// (provider, external_event_id).
type ProviderEventRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewProviderEventRepository(db *gorm.DB, logger logger.Interface) providerevent.Repository {
	return &ProviderEventRepository{db: db, logger: logger}
}

// InsertIfAbsent records a delivery. A redelivery bumps the attempt counter,
// refreshes the signature flag and returns the stored row with inserted=false.
func (r *ProviderEventRepository) InsertIfAbsent(ctx context.Context, e *providerevent.Event) (*providerevent.Event, bool, error) {
	model := mappers.ProviderEventToModel(e)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "external_event_id"}},
		DoNothing: true,
	}).Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to insert provider event", "provider", e.Provider(), "external_event_id", e.ExternalEventID(), "error", result.Error)
		return nil, false, fmt.Errorf("failed to insert provider event: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		e.SetID(model.ID)
		return e, true, nil
	}

	err := tx.Model(&models.ProviderEventModel{}).
		Where("provider = ? AND external_event_id = ?", e.Provider(), e.ExternalEventID()).
		Updates(map[string]any{
			"attempts":        gorm.Expr("attempts + 1"),
			"signature_valid": e.SignatureValid(),
			"updated_at":      time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to record provider event redelivery: %w", err)
	}

	stored, err := r.GetByExternalID(ctx, e.Provider(), e.ExternalEventID())
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func (r *ProviderEventRepository) MarkSuccess(ctx context.Context, id uint) error {
	return r.finish(ctx, id, providerevent.ResultSuccess, "")
}

func (r *ProviderEventRepository) MarkError(ctx context.Context, id uint, message string) error {
	return r.finish(ctx, id, providerevent.ResultError, message)
}

func (r *ProviderEventRepository) finish(ctx context.Context, id uint, res providerevent.Result, message string) error {
	now := time.Now().UTC()
	err := db.GetTxFromContext(ctx, r.db).
		Model(&models.ProviderEventModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"result":        string(res),
			"error_message": message,
			"processed_at":  now,
			"updated_at":    now,
		}).Error
	if err != nil {
		r.logger.Errorw("failed to update provider event", "id", id, "result", res, "error", err)
		return fmt.Errorf("failed to update provider event: %w", err)
	}
	return nil
}

func (r *ProviderEventRepository) GetByExternalID(ctx context.Context, provider, externalEventID string) (*providerevent.Event, error) {
	var model models.ProviderEventModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("provider = ? AND external_event_id = ?", provider, externalEventID).
		First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, providerevent.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get provider event: %w", err)
	}
	return mappers.ProviderEventToDomain(&model), nil
}
