package usecases

import (
	"context"
	"fmt"

	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/plan"
	"github.com/secforge/billing/internal/shared/errors"
	"github.com/secforge/billing/internal/shared/logger"
)

type DecideAccessQuery struct {
	UserID      string
	ContentType string
	ContentID   string
	// SkipCache forces a fresh read, used by order creation.
	SkipCache bool
}

// DecideAccessUseCase answers decide() from one atomic read, fronted by the
// decision cache.
type DecideAccessUseCase struct {
	factsReader access.FactsReader
	cache       access.DecisionCache
	ladder      *plan.Ladder
	policy      catalog.Policy
	logger      logger.Interface
}

func NewDecideAccessUseCase(
	factsReader access.FactsReader,
	cache access.DecisionCache,
	ladder *plan.Ladder,
	policy catalog.Policy,
	logger logger.Interface,
) *DecideAccessUseCase {
	return &DecideAccessUseCase{
		factsReader: factsReader,
		cache:       cache,
		ladder:      ladder,
		policy:      policy,
		logger:      logger,
	}
}

func (uc *DecideAccessUseCase) Execute(ctx context.Context, query DecideAccessQuery) (*access.Decision, error) {
	ct, cid, err := catalog.NormalizeContentRef(query.ContentType, query.ContentID)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	cacheable := query.UserID != "" && !query.SkipCache
	if cacheable {
		if d, ok := uc.cache.Get(ctx, ct, cid, query.UserID); ok {
			return d, nil
		}
	}

	facts, err := uc.factsReader.LoadFacts(ctx, query.UserID, ct, cid)
	if err != nil {
		uc.logger.Errorw("failed to load access facts",
			"user_id", query.UserID,
			"content_type", ct,
			"content_id", cid,
			"error", err,
		)
		return nil, fmt.Errorf("failed to load access facts: %w", err)
	}
	facts.ContentType = ct
	facts.Authenticated = query.UserID != ""

	d := access.Decide(facts, uc.ladder, uc.policy)
	if cacheable {
		uc.cache.Set(ctx, ct, cid, query.UserID, d)
	}

	uc.logger.Debugw("access decided",
		"user_id", query.UserID,
		"content_type", ct,
		"content_id", cid,
		"allow", d.Allow,
		"reason", d.Reason,
	)
	return &d, nil
}
