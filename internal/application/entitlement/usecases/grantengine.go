package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/domain/entitlement"
	"github.com/secforge/billing/internal/domain/plan"
	"github.com/secforge/billing/internal/domain/purchase"
	"github.com/secforge/billing/internal/domain/subscription"
	"github.com/secforge/billing/internal/shared/biztime"
	"github.com/secforge/billing/internal/shared/db"
	"github.com/secforge/billing/internal/shared/logger"
)

const maxTierCASAttempts = 5

var (
	ErrPurchaseNotPaid = errors.New("purchase is not paid")
	ErrTierContention  = errors.New("user tier kept changing, giving up")
	ErrUnknownPlanTier = errors.New("purchase references an unknown plan tier")
)

// TransactionRunner is satisfied by db.TransactionManager.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Outcome describes what a grant or revoke touched, for cache invalidation
// and logging.
type Outcome struct {
	UserID      string
	ContentType string
	ContentID   string
	Changed     bool
	TierBefore  string
	TierAfter   string
	PlanTouched bool
}

// GrantEngine is the only writer of grant records and effective user tiers.
// Every write is conflict tolerant, so a verify call racing a webhook
// converges on one grant.
type GrantEngine struct {
	purchaseRepo    purchase.Repository
	entitlementRepo entitlement.Repository
	userPlanRepo    plan.Repository
	ladder          *plan.Ladder
	cache           access.DecisionCache
	txManager       TransactionRunner
	logger          logger.Interface
}

func NewGrantEngine(
	purchaseRepo purchase.Repository,
	entitlementRepo entitlement.Repository,
	userPlanRepo plan.Repository,
	ladder *plan.Ladder,
	cache access.DecisionCache,
	txManager TransactionRunner,
	logger logger.Interface,
) *GrantEngine {
	return &GrantEngine{
		purchaseRepo:    purchaseRepo,
		entitlementRepo: entitlementRepo,
		userPlanRepo:    userPlanRepo,
		ladder:          ladder,
		cache:           cache,
		txManager:       txManager,
		logger:          logger,
	}
}

// Grant materializes the entitlement bought by a paid purchase.
func (e *GrantEngine) Grant(ctx context.Context, purchaseID uint) (*Outcome, error) {
	return e.run(ctx, func(ctx context.Context) (*Outcome, error) {
		p, err := e.purchaseRepo.GetByID(ctx, purchaseID)
		if err != nil {
			return nil, fmt.Errorf("failed to load purchase %d: %w", purchaseID, err)
		}
		if !p.IsPaid() {
			return nil, fmt.Errorf("%w: purchase %d is %s", ErrPurchaseNotPaid, p.ID(), p.Status())
		}
		if p.IsPlan() {
			return e.grantPlanForPurchase(ctx, p)
		}
		return e.grantContent(ctx, p)
	})
}

// Revoke removes exactly the grant created by this purchase.
func (e *GrantEngine) Revoke(ctx context.Context, purchaseID uint) (*Outcome, error) {
	return e.run(ctx, func(ctx context.Context) (*Outcome, error) {
		p, err := e.purchaseRepo.GetByID(ctx, purchaseID)
		if err != nil {
			return nil, fmt.Errorf("failed to load purchase %d: %w", purchaseID, err)
		}
		now := biztime.NowUTC()

		if p.IsPlan() {
			n, err := e.entitlementRepo.RevokePlanGrant(ctx, entitlement.SourceTypePurchase, p.ID(), now)
			if err != nil {
				return nil, fmt.Errorf("failed to revoke plan grant: %w", err)
			}
			out, err := e.reconcileTier(ctx, p.UserID())
			if err != nil {
				return nil, err
			}
			out.Changed = n > 0
			return out, nil
		}

		n, err := e.entitlementRepo.RevokeContentGrants(ctx, p.ProviderOrderID(), now)
		if err != nil {
			return nil, fmt.Errorf("failed to revoke content grant: %w", err)
		}
		e.logger.Infow("content grant revoked",
			"purchase_id", p.ID(),
			"payment_ref", p.ProviderOrderID(),
			"rows", n,
		)
		return &Outcome{
			UserID:      p.UserID(),
			ContentType: p.ContentType(),
			ContentID:   p.ContentID(),
			Changed:     n > 0,
		}, nil
	})
}

// GrantSubscription grants the subscription's tier for duration, counted from
// the current period start when known. A zero duration grants without expiry.
func (e *GrantEngine) GrantSubscription(ctx context.Context, sub *subscription.Subscription, duration time.Duration) (*Outcome, error) {
	return e.run(ctx, func(ctx context.Context) (*Outcome, error) {
		if !e.ladder.Known(sub.ProductID()) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlanTier, sub.ProductID())
		}
		start := biztime.NowUTC()
		if ps := sub.CurrentPeriodStart(); ps != nil {
			start = *ps
		}
		g, err := entitlement.NewPlanGrant(sub.UserID(), e.ladder.Effective(sub.ProductID()),
			entitlement.SourceTypeSubscription, sub.ID(), duration, start)
		if err != nil {
			return nil, err
		}
		if err := e.entitlementRepo.UpsertPlanGrant(ctx, g); err != nil {
			return nil, fmt.Errorf("failed to upsert plan grant: %w", err)
		}
		return e.raiseTier(ctx, sub.UserID(), g.Tier())
	})
}

// RevokeSubscription revokes the subscription's plan grant and recomputes the tier.
func (e *GrantEngine) RevokeSubscription(ctx context.Context, sub *subscription.Subscription) (*Outcome, error) {
	return e.run(ctx, func(ctx context.Context) (*Outcome, error) {
		n, err := e.entitlementRepo.RevokePlanGrant(ctx, entitlement.SourceTypeSubscription, sub.ID(), biztime.NowUTC())
		if err != nil {
			return nil, fmt.Errorf("failed to revoke subscription grant: %w", err)
		}
		out, err := e.reconcileTier(ctx, sub.UserID())
		if err != nil {
			return nil, err
		}
		out.Changed = n > 0 || out.Changed
		return out, nil
	})
}

// Invalidate drops cached decisions affected by outcomes. Callers that wrap
// engine calls in their own transaction call this after commit.
func (e *GrantEngine) Invalidate(ctx context.Context, outcomes ...*Outcome) {
	for _, out := range outcomes {
		if out == nil {
			continue
		}
		if out.ContentType != "" {
			if err := e.cache.Invalidate(ctx, out.ContentType, out.ContentID); err != nil {
				e.logger.Warnw("failed to invalidate decision cache",
					"content_type", out.ContentType,
					"content_id", out.ContentID,
					"error", err,
				)
			}
		}
		if out.PlanTouched {
			if err := e.cache.InvalidateUser(ctx, out.UserID); err != nil {
				e.logger.Warnw("failed to invalidate user decisions", "user_id", out.UserID, "error", err)
			}
		}
	}
}

// run executes fn in a transaction. When the caller did not supply one, the
// cache is invalidated after commit here; otherwise the caller does it.
func (e *GrantEngine) run(ctx context.Context, fn func(ctx context.Context) (*Outcome, error)) (*Outcome, error) {
	outer := db.InTransaction(ctx)
	var out *Outcome
	err := e.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		var err error
		out, err = fn(txCtx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !outer {
		e.Invalidate(ctx, out)
	}
	return out, nil
}

func (e *GrantEngine) grantContent(ctx context.Context, p *purchase.Purchase) (*Outcome, error) {
	price := p.AmountTotal()
	if p.PricePaid() != nil {
		price = *p.PricePaid()
	}
	g, err := entitlement.NewContentGrant(p.UserID(), p.ContentType(), p.ContentID(),
		p.ProviderOrderID(), p.ID(), price, p.Currency())
	if err != nil {
		return nil, err
	}
	created, err := e.entitlementRepo.CreateContentGrantIfAbsent(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("failed to create content grant: %w", err)
	}
	e.logger.Infow("content grant applied",
		"purchase_id", p.ID(),
		"user_id", p.UserID(),
		"content_type", p.ContentType(),
		"content_id", p.ContentID(),
		"created", created,
	)
	return &Outcome{
		UserID:      p.UserID(),
		ContentType: p.ContentType(),
		ContentID:   p.ContentID(),
		Changed:     created,
	}, nil
}

func (e *GrantEngine) grantPlanForPurchase(ctx context.Context, p *purchase.Purchase) (*Outcome, error) {
	tier, ok := e.ladder.Tier(p.ProductID())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlanTier, p.ProductID())
	}
	var duration time.Duration
	if tier.PeriodDays > 0 {
		duration = time.Duration(tier.PeriodDays) * 24 * time.Hour
	}
	start := biztime.NowUTC()
	if p.PaidAt() != nil {
		start = *p.PaidAt()
	}
	g, err := entitlement.NewPlanGrant(p.UserID(), tier.Name, entitlement.SourceTypePurchase, p.ID(), duration, start)
	if err != nil {
		return nil, err
	}
	if err := e.entitlementRepo.UpsertPlanGrant(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to upsert plan grant: %w", err)
	}
	return e.raiseTier(ctx, p.UserID(), tier.Name)
}

// raiseTier moves the effective tier up to at least tier, never down.
func (e *GrantEngine) raiseTier(ctx context.Context, userID, tier string) (*Outcome, error) {
	if err := e.userPlanRepo.EnsureExists(ctx, userID, e.ladder.Default()); err != nil {
		return nil, fmt.Errorf("failed to ensure user plan: %w", err)
	}
	for attempt := 0; attempt < maxTierCASAttempts; attempt++ {
		up, err := e.userPlanRepo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load user plan: %w", err)
		}
		current := up.Tier()
		next := e.ladder.Max(current, tier)
		if next == current {
			return &Outcome{UserID: userID, TierBefore: current, TierAfter: current, PlanTouched: true}, nil
		}
		ok, err := e.userPlanRepo.CompareAndSetTier(ctx, userID, current, next)
		if err != nil {
			return nil, fmt.Errorf("failed to raise user tier: %w", err)
		}
		if ok {
			e.logger.Infow("user tier raised", "user_id", userID, "from", current, "to", next)
			return &Outcome{UserID: userID, TierBefore: current, TierAfter: next, Changed: true, PlanTouched: true}, nil
		}
	}
	return nil, ErrTierContention
}

// reconcileTier sets the tier to the highest of the base tier and every
// remaining effective plan grant.
func (e *GrantEngine) reconcileTier(ctx context.Context, userID string) (*Outcome, error) {
	for attempt := 0; attempt < maxTierCASAttempts; attempt++ {
		up, err := e.userPlanRepo.GetByUserID(ctx, userID)
		if errors.Is(err, plan.ErrUserPlanNotFound) {
			return &Outcome{UserID: userID, PlanTouched: true}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load user plan: %w", err)
		}

		grants, err := e.entitlementRepo.ListEffectivePlanGrants(ctx, userID, biztime.NowUTC())
		if err != nil {
			return nil, fmt.Errorf("failed to list plan grants: %w", err)
		}
		target := e.ladder.Effective(up.BaseTier())
		for _, g := range grants {
			target = e.ladder.Max(target, g.Tier())
		}

		current := up.Tier()
		if target == current {
			return &Outcome{UserID: userID, TierBefore: current, TierAfter: current, PlanTouched: true}, nil
		}
		ok, err := e.userPlanRepo.CompareAndSetTier(ctx, userID, current, target)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile user tier: %w", err)
		}
		if ok {
			e.logger.Infow("user tier reconciled", "user_id", userID, "from", current, "to", target)
			return &Outcome{UserID: userID, TierBefore: current, TierAfter: target, Changed: true, PlanTouched: true}, nil
		}
	}
	return nil, ErrTierContention
}
