// Package mappers converts between persistence models and domain aggregates.
package mappers

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/entitlement"
	"github.com/secforge/billing/internal/domain/plan"
	"github.com/secforge/billing/internal/domain/providerevent"
	"github.com/secforge/billing/internal/domain/purchase"
	"github.com/secforge/billing/internal/domain/subscription"
	"github.com/secforge/billing/internal/infrastructure/persistence/models"
)

func RuleToModel(r *catalog.Rule) *models.ContentEntitlementRuleModel {
	return &models.ContentEntitlementRuleModel{
		ID:              r.ID(),
		ContentType:     r.ContentType(),
		ContentID:       r.ContentID(),
		RequiredPlan:    r.RequiredPlan(),
		IndividualPrice: r.IndividualPrice(),
		Currency:        r.Currency(),
		Active:          r.IsActive(),
		CreatedAt:       r.CreatedAt(),
		UpdatedAt:       r.UpdatedAt(),
	}
}

func RuleToDomain(m *models.ContentEntitlementRuleModel) *catalog.Rule {
	return catalog.ReconstructRule(m.ID, m.ContentType, m.ContentID, m.RequiredPlan, m.IndividualPrice,
		m.Currency, m.Active, m.CreatedAt, m.UpdatedAt)
}

func UserPlanToDomain(m *models.UserPlanModel) *plan.UserPlan {
	return plan.ReconstructUserPlan(m.UserID, m.BaseTier, m.Tier, m.CreatedAt, m.UpdatedAt)
}

func PurchaseToModel(p *purchase.Purchase) (*models.PurchaseModel, error) {
	meta, err := toJSON(p.Metadata())
	if err != nil {
		return nil, err
	}
	return &models.PurchaseModel{
		ID:                p.ID(),
		SID:               p.SID(),
		UserID:            p.UserID(),
		ContentType:       optional(p.ContentType()),
		ContentID:         optional(p.ContentID()),
		ProductID:         optional(p.ProductID()),
		Provider:          p.Provider(),
		ProviderOrderID:   p.ProviderOrderID(),
		ProviderPaymentID: optional(p.ProviderPaymentID()),
		Status:            p.Status().String(),
		AmountTotal:       p.AmountTotal(),
		Currency:          p.Currency(),
		PricePaid:         p.PricePaid(),
		PaidAt:            p.PaidAt(),
		RefundedAt:        p.RefundedAt(),
		Metadata:          meta,
		CreatedAt:         p.CreatedAt(),
		UpdatedAt:         p.UpdatedAt(),
	}, nil
}

func PurchaseToDomain(m *models.PurchaseModel) (*purchase.Purchase, error) {
	var meta map[string]any
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &meta); err != nil {
			return nil, err
		}
	}
	return purchase.ReconstructPurchase(
		m.ID, m.SID, m.UserID,
		deref(m.ContentType), deref(m.ContentID), deref(m.ProductID),
		m.Provider, m.ProviderOrderID, deref(m.ProviderPaymentID),
		purchase.Status(m.Status),
		m.AmountTotal, m.Currency, m.PricePaid,
		m.PaidAt, m.RefundedAt,
		meta,
		m.CreatedAt, m.UpdatedAt,
	)
}

func SubscriptionToModel(s *subscription.Subscription) *models.SubscriptionModel {
	return &models.SubscriptionModel{
		ID:                     s.ID(),
		UserID:                 s.UserID(),
		ProductID:              s.ProductID(),
		Provider:               s.Provider(),
		ProviderSubscriptionID: s.ProviderSubscriptionID(),
		Status:                 s.Status().String(),
		CurrentPeriodStart:     s.CurrentPeriodStart(),
		CurrentPeriodEnd:       s.CurrentPeriodEnd(),
		CreatedAt:              s.CreatedAt(),
		UpdatedAt:              s.UpdatedAt(),
	}
}

func SubscriptionToDomain(m *models.SubscriptionModel) (*subscription.Subscription, error) {
	return subscription.ReconstructSubscription(m.ID, m.UserID, m.ProductID, m.Provider, m.ProviderSubscriptionID,
		subscription.Status(m.Status), m.CurrentPeriodStart, m.CurrentPeriodEnd, m.CreatedAt, m.UpdatedAt)
}

func ProviderEventToModel(e *providerevent.Event) *models.ProviderEventModel {
	var payload datatypes.JSON
	if json.Valid(e.Payload()) {
		payload = datatypes.JSON(e.Payload())
	}
	return &models.ProviderEventModel{
		ID:              e.ID(),
		Provider:        e.Provider(),
		EventType:       e.EventType(),
		ExternalEventID: e.ExternalEventID(),
		Payload:         payload,
		SignatureValid:  e.SignatureValid(),
		Result:          string(e.Result()),
		ErrorMessage:    e.ErrorMessage(),
		Attempts:        e.Attempts(),
		ReceivedAt:      e.ReceivedAt(),
		ProcessedAt:     e.ProcessedAt(),
	}
}

func ProviderEventToDomain(m *models.ProviderEventModel) *providerevent.Event {
	return providerevent.ReconstructEvent(m.ID, m.Provider, m.EventType, m.ExternalEventID, []byte(m.Payload),
		m.SignatureValid, providerevent.Result(m.Result), m.ErrorMessage, m.Attempts, m.ReceivedAt, m.ProcessedAt)
}

func ContentGrantToModel(g *entitlement.ContentGrant) *models.ContentGrantModel {
	return &models.ContentGrantModel{
		ID:          g.ID(),
		UserID:      g.UserID(),
		ContentType: g.ContentType(),
		ContentID:   g.ContentID(),
		PaymentRef:  g.PaymentRef(),
		PurchaseID:  g.PurchaseID(),
		PricePaid:   g.PricePaid(),
		Currency:    g.Currency(),
		Status:      g.Status().String(),
		RevokedAt:   g.RevokedAt(),
		CreatedAt:   g.CreatedAt(),
	}
}

func ContentGrantToDomain(m *models.ContentGrantModel) *entitlement.ContentGrant {
	return entitlement.ReconstructContentGrant(m.ID, m.UserID, m.ContentType, m.ContentID, m.PaymentRef,
		m.PurchaseID, m.PricePaid, m.Currency, entitlement.Status(m.Status), m.CreatedAt, m.RevokedAt)
}

func PlanGrantToModel(g *entitlement.PlanGrant) *models.PlanGrantModel {
	return &models.PlanGrantModel{
		ID:         g.ID(),
		UserID:     g.UserID(),
		Tier:       g.Tier(),
		SourceType: g.SourceType().String(),
		SourceID:   g.SourceID(),
		Status:     g.Status().String(),
		ExpiresAt:  g.ExpiresAt(),
		CreatedAt:  g.CreatedAt(),
		UpdatedAt:  g.UpdatedAt(),
	}
}

func PlanGrantToDomain(m *models.PlanGrantModel) *entitlement.PlanGrant {
	return entitlement.ReconstructPlanGrant(m.ID, m.UserID, m.Tier, entitlement.SourceType(m.SourceType),
		m.SourceID, entitlement.Status(m.Status), m.ExpiresAt, m.CreatedAt, m.UpdatedAt)
}

func toJSON(v map[string]any) (datatypes.JSON, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
