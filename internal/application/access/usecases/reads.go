package usecases

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/entitlement"
	"github.com/secforge/billing/internal/domain/plan"
	"github.com/secforge/billing/internal/shared/biztime"
	"github.com/secforge/billing/internal/shared/errors"
	"github.com/secforge/billing/internal/shared/logger"
)

// PlanView is the plan read exposed to clients.
type PlanView struct {
	UserID   string `json:"user_id"`
	Tier     string `json:"tier"`
	BaseTier string `json:"base_tier"`
	Rank     int    `json:"rank"`
}

// RuleView is the catalog read. Found is false when no rule is registered.
type RuleView struct {
	ContentType     string `json:"content_type"`
	ContentID       string `json:"content_id"`
	Found           bool   `json:"found"`
	RequiredPlan    string `json:"required_plan,omitempty"`
	IndividualPrice int64  `json:"individual_price,omitempty"`
	Currency        string `json:"currency,omitempty"`
	Active          bool   `json:"active"`
}

type GrantView struct {
	PaymentRef string `json:"payment_ref"`
	PricePaid  int64  `json:"price_paid"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
}

// GrantsView is the grant read for one (user, content) pair.
type GrantsView struct {
	ContentType string      `json:"content_type"`
	ContentID   string      `json:"content_id"`
	HasActive   bool        `json:"has_active"`
	Grants      []GrantView `json:"grants"`
}

// FactsFromReads assembles Decide input from the three independent reads.
// Clients reconstructing the decision use this same function.
func FactsFromReads(authenticated bool, planView *PlanView, ruleView *RuleView, grantsView *GrantsView) access.Facts {
	f := access.Facts{Authenticated: authenticated}
	if ruleView != nil {
		f.ContentType = ruleView.ContentType
		if ruleView.Found {
			f.Rule = &access.RuleFacts{
				RequiredPlan:    ruleView.RequiredPlan,
				IndividualPrice: ruleView.IndividualPrice,
				Currency:        ruleView.Currency,
				Active:          ruleView.Active,
			}
		}
	}
	if planView != nil {
		f.UserTier = planView.Tier
	}
	if grantsView != nil {
		f.HasGrant = grantsView.HasActive
	}
	return f
}

// AccessReads serves the plan, rule and grant reads.
type AccessReads struct {
	userPlanRepo    plan.Repository
	catalogRepo     catalog.Repository
	entitlementRepo entitlement.Repository
	ladder          *plan.Ladder
	logger          logger.Interface
}

func NewAccessReads(
	userPlanRepo plan.Repository,
	catalogRepo catalog.Repository,
	entitlementRepo entitlement.Repository,
	ladder *plan.Ladder,
	logger logger.Interface,
) *AccessReads {
	return &AccessReads{
		userPlanRepo:    userPlanRepo,
		catalogRepo:     catalogRepo,
		entitlementRepo: entitlementRepo,
		ladder:          ladder,
		logger:          logger,
	}
}

// GetPlan returns the default tier for users without a plan row. Tier is
// the base tier raised by every plan grant that has not expired.
func (r *AccessReads) GetPlan(ctx context.Context, userID string) (*PlanView, error) {
	if userID == "" {
		return nil, errors.NewUnauthorizedError("authentication required")
	}
	view := &PlanView{UserID: userID, BaseTier: r.ladder.Default()}

	up, err := r.userPlanRepo.GetByUserID(ctx, userID)
	switch {
	case stderrors.Is(err, plan.ErrUserPlanNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to read user plan: %w", err)
	default:
		view.BaseTier = r.ladder.Effective(up.BaseTier())
	}

	grants, err := r.entitlementRepo.ListEffectivePlanGrants(ctx, userID, biztime.NowUTC())
	if err != nil {
		return nil, fmt.Errorf("failed to read plan grants: %w", err)
	}
	granted := make([]string, 0, len(grants))
	for _, g := range grants {
		granted = append(granted, g.Tier())
	}
	view.Tier = r.ladder.Highest(view.BaseTier, granted...)
	view.Rank = r.ladder.Rank(view.Tier)
	return view, nil
}

func (r *AccessReads) GetRule(ctx context.Context, contentType, contentID string) (*RuleView, error) {
	ct, cid, err := catalog.NormalizeContentRef(contentType, contentID)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	view := &RuleView{ContentType: ct, ContentID: cid}

	rule, err := r.catalogRepo.GetRule(ctx, ct, cid)
	if stderrors.Is(err, catalog.ErrRuleNotFound) {
		return view, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rule: %w", err)
	}

	facts := access.RuleFactsFrom(rule)
	view.Found = true
	view.RequiredPlan = facts.RequiredPlan
	view.IndividualPrice = facts.IndividualPrice
	view.Currency = facts.Currency
	view.Active = facts.Active
	return view, nil
}

func (r *AccessReads) GetGrants(ctx context.Context, userID, contentType, contentID string) (*GrantsView, error) {
	if userID == "" {
		return nil, errors.NewUnauthorizedError("authentication required")
	}
	ct, cid, err := catalog.NormalizeContentRef(contentType, contentID)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	grants, err := r.entitlementRepo.ListContentGrants(ctx, userID, ct, cid)
	if err != nil {
		return nil, fmt.Errorf("failed to read grants: %w", err)
	}

	view := &GrantsView{ContentType: ct, ContentID: cid, Grants: make([]GrantView, 0, len(grants))}
	for _, g := range grants {
		if g.IsActive() {
			view.HasActive = true
		}
		view.Grants = append(view.Grants, GrantView{
			PaymentRef: g.PaymentRef(),
			PricePaid:  g.PricePaid(),
			Currency:   g.Currency(),
			Status:     g.Status().String(),
		})
	}
	return view, nil
}
