// Package apptest wires the application layer onto an in-memory SQLite
// database for use-case tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	entitlementUsecases "github.com/secforge/billing/internal/application/entitlement/usecases"
	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/entitlement"
	"github.com/secforge/billing/internal/domain/plan"
	"github.com/secforge/billing/internal/domain/providerevent"
	"github.com/secforge/billing/internal/domain/purchase"
	"github.com/secforge/billing/internal/domain/subscription"
	"github.com/secforge/billing/internal/infrastructure/cache"
	"github.com/secforge/billing/internal/infrastructure/repository"
	"github.com/secforge/billing/internal/infrastructure/repository/testdb"
	"github.com/secforge/billing/internal/shared/db"
	"github.com/secforge/billing/internal/shared/logger"
)

// Tiers used across tests: free < basic < pro, pro renews monthly.
var Tiers = []plan.Tier{
	{Name: "free"},
	{Name: "basic", Price: 19900, Currency: "INR", PeriodDays: 30},
	{Name: "pro", Price: 49900, Currency: "INR", PeriodDays: 30},
}

type Env struct {
	DB     *gorm.DB
	Logger logger.Interface
	Ladder *plan.Ladder
	Policy catalog.Policy
	Cache  access.DecisionCache

	Catalog       catalog.Repository
	Plans         plan.Repository
	Purchases     purchase.Repository
	Subscriptions subscription.Repository
	Grants        entitlement.Repository
	Events        providerevent.Repository
	Facts         access.FactsReader

	Tx     *db.TransactionManager
	Engine *entitlementUsecases.GrantEngine
}

func New(t testing.TB) *Env {
	t.Helper()
	gdb := testdb.New(t)
	log := logger.NewNopLogger()

	e := &Env{
		DB:            gdb,
		Logger:        log,
		Ladder:        plan.MustNewLadder(Tiers, "free"),
		Policy:        catalog.NewPolicy([]string{"challenge"}),
		Cache:         cache.NoopAccessDecisionCache{},
		Catalog:       repository.NewCatalogRepository(gdb, log),
		Plans:         repository.NewUserPlanRepository(gdb, log),
		Purchases:     repository.NewPurchaseRepository(gdb, log),
		Subscriptions: repository.NewSubscriptionRepository(gdb, log),
		Grants:        repository.NewGrantRepository(gdb, log),
		Events:        repository.NewProviderEventRepository(gdb, log),
		Facts:         repository.NewAccessFactsRepository(gdb, log),
		Tx:            db.NewTransactionManager(gdb),
	}
	e.Engine = entitlementUsecases.NewGrantEngine(e.Purchases, e.Grants, e.Plans, e.Ladder, e.Cache, e.Tx, log)
	return e
}

// SeedRule stores a catalog rule. Empty requiredPlan and zero price mean unset.
func (e *Env) SeedRule(t testing.TB, contentType, contentID, requiredPlan string, price int64, active bool) {
	t.Helper()
	var rp *string
	if requiredPlan != "" {
		rp = &requiredPlan
	}
	var ip *int64
	if price != 0 {
		ip = &price
	}
	currency := ""
	if price > 0 {
		currency = "INR"
	}
	rule, err := catalog.NewRule(contentType, contentID, rp, ip, currency, active)
	require.NoError(t, err)
	require.NoError(t, e.Catalog.Upsert(context.Background(), rule))
}

// SetTier gives a user a base and effective tier.
func (e *Env) SetTier(t testing.TB, userID, tier string) {
	t.Helper()
	require.NoError(t, e.Plans.SetBaseTier(context.Background(), userID, tier))
}

// CountGrants counts content grant rows created by one provider order.
func (e *Env) CountGrants(t testing.TB, paymentRef string) int64 {
	t.Helper()
	n, err := e.Grants.CountContentGrantsByPaymentRef(context.Background(), paymentRef)
	require.NoError(t, err)
	return n
}

// PaidPurchase stores a purchase for orderID and moves it to paid.
func (e *Env) PaidPurchase(t testing.TB, orderID string, notes purchase.OrderNotes) *purchase.Purchase {
	t.Helper()
	ctx := context.Background()
	p, err := purchase.NewPurchase("pur_"+orderID, "razorpay", orderID, "INR", notes)
	require.NoError(t, err)
	require.NoError(t, e.Purchases.Create(ctx, p))

	ok, err := e.Purchases.MarkPaid(ctx, p.ID(), "pay_"+orderID, notes.AmountUnits, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	paid, err := e.Purchases.GetByID(ctx, p.ID())
	require.NoError(t, err)
	return paid
}

// Tier returns the user's stored tier column.
func (e *Env) Tier(t testing.TB, userID string) string {
	t.Helper()
	up, err := e.Plans.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return up.Tier()
}
