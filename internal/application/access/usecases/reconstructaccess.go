package usecases

import (
	"context"

	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/plan"
	"github.com/secforge/billing/internal/shared/logger"
)

// ReconstructAccessUseCase computes the decision the way a client does: three
// separate reads, then the shared Decide. It is never cached.
type ReconstructAccessUseCase struct {
	reads  *AccessReads
	ladder *plan.Ladder
	policy catalog.Policy
	logger logger.Interface
}

func NewReconstructAccessUseCase(reads *AccessReads, ladder *plan.Ladder, policy catalog.Policy, logger logger.Interface) *ReconstructAccessUseCase {
	return &ReconstructAccessUseCase{
		reads:  reads,
		ladder: ladder,
		policy: policy,
		logger: logger,
	}
}

func (uc *ReconstructAccessUseCase) Execute(ctx context.Context, query DecideAccessQuery) (*access.Decision, error) {
	ruleView, err := uc.reads.GetRule(ctx, query.ContentType, query.ContentID)
	if err != nil {
		return nil, err
	}

	authenticated := query.UserID != ""
	var planView *PlanView
	var grantsView *GrantsView
	if authenticated {
		if planView, err = uc.reads.GetPlan(ctx, query.UserID); err != nil {
			return nil, err
		}
		if grantsView, err = uc.reads.GetGrants(ctx, query.UserID, ruleView.ContentType, ruleView.ContentID); err != nil {
			return nil, err
		}
	}

	d := access.Decide(FactsFromReads(authenticated, planView, ruleView, grantsView), uc.ladder, uc.policy)
	return &d, nil
}
