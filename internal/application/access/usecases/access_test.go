package usecases

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secforge/billing/internal/application/apptest"
	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/purchase"
	"github.com/secforge/billing/internal/shared/biztime"
	"github.com/secforge/billing/internal/shared/errors"
)

// recordingCache is an in-memory DecisionCache that counts hits.
type recordingCache struct {
	entries map[string]access.Decision
	hits    int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]access.Decision)}
}

func (c *recordingCache) key(ct, cid, uid string) string { return ct + "|" + cid + "|" + uid }

func (c *recordingCache) Get(_ context.Context, ct, cid, uid string) (*access.Decision, bool) {
	d, ok := c.entries[c.key(ct, cid, uid)]
	if ok {
		c.hits++
	}
	return &d, ok
}

func (c *recordingCache) Set(_ context.Context, ct, cid, uid string, d access.Decision) {
	c.entries[c.key(ct, cid, uid)] = d
}

func (c *recordingCache) Invalidate(context.Context, string, string) error {
	c.entries = make(map[string]access.Decision)
	return nil
}

func (c *recordingCache) InvalidateUser(context.Context, string) error {
	c.entries = make(map[string]access.Decision)
	return nil
}

type accessFixture struct {
	env         *apptest.Env
	decide      *DecideAccessUseCase
	reconstruct *ReconstructAccessUseCase
	reads       *AccessReads
}

func newAccessFixture(t *testing.T, cache access.DecisionCache) *accessFixture {
	env := apptest.New(t)
	if cache == nil {
		cache = env.Cache
	}
	reads := NewAccessReads(env.Plans, env.Catalog, env.Grants, env.Ladder, env.Logger)
	return &accessFixture{
		env:         env,
		decide:      NewDecideAccessUseCase(env.Facts, cache, env.Ladder, env.Policy, env.Logger),
		reconstruct: NewReconstructAccessUseCase(reads, env.Ladder, env.Policy, env.Logger),
		reads:       reads,
	}
}

func (f *accessFixture) grantContent(t *testing.T, userID, ct, cid, orderID string) *purchase.Purchase {
	t.Helper()
	p := f.env.PaidPurchase(t, orderID, purchase.OrderNotes{
		ContentType: ct,
		ContentID:   cid,
		UserID:      userID,
		AmountUnits: 49900,
	})
	_, err := f.env.Engine.Grant(context.Background(), p.ID())
	require.NoError(t, err)
	return p
}

// seedZeroPricedRule stores individual_price = 0 rather than NULL.
func (f *accessFixture) seedZeroPricedRule(t *testing.T, ct, cid, requiredPlan string) {
	t.Helper()
	var rp *string
	if requiredPlan != "" {
		rp = &requiredPlan
	}
	zero := int64(0)
	rule, err := catalog.NewRule(ct, cid, rp, &zero, "", true)
	require.NoError(t, err)
	require.NoError(t, f.env.Catalog.Upsert(context.Background(), rule))
}

func TestDecideAccess_AtomicAndReconstructedAgree(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, nil)

	f.env.SeedRule(t, "lab", "gated-priced", "pro", 49900, true)
	f.env.SeedRule(t, "lab", "gated-basic", "basic", 0, true)
	f.env.SeedRule(t, "lab", "priced", "", 499, true)
	f.env.SeedRule(t, "lab", "open", "", 0, true)
	f.env.SeedRule(t, "lab", "inactive", "pro", 49900, false)
	f.env.SeedRule(t, "challenge", "registered", "pro", 0, true)
	f.env.SeedRule(t, "lab", "unknown-tier", "platinum", 0, true)
	f.seedZeroPricedRule(t, "lab", "zero-gated", "basic")
	f.seedZeroPricedRule(t, "lab", "zero-open", "")

	f.env.SetTier(t, "u-basic", "basic")
	f.env.SetTier(t, "u-pro", "pro")
	f.grantContent(t, "u-buyer", "lab", "gated-priced", "order_a")
	f.grantContent(t, "u-buyer", "lab", "priced", "order_b")
	f.grantContent(t, "u-buyer", "lab", "inactive", "order_c")

	refunded := f.grantContent(t, "u-refunded", "lab", "priced", "order_d")
	_, err := f.env.Engine.Revoke(ctx, refunded.ID())
	require.NoError(t, err)
	planBuy := f.env.PaidPurchase(t, "order_e", purchase.OrderNotes{ProductID: "basic", UserID: "u-subscriber", AmountUnits: 19900})
	_, err = f.env.Engine.Grant(ctx, planBuy.ID())
	require.NoError(t, err)

	users := []string{"", "u-new", "u-basic", "u-pro", "u-buyer", "u-refunded", "u-subscriber"}
	contents := [][2]string{
		{"lab", "gated-priced"},
		{"lab", "gated-basic"},
		{"lab", "priced"},
		{"lab", "open"},
		{"lab", "inactive"},
		{"lab", "unregistered"},
		{"challenge", "unregistered"},
		{"challenge", "registered"},
		{"lab", "unknown-tier"},
		{"lab", "zero-gated"},
		{"lab", "zero-open"},
	}

	for _, uid := range users {
		for _, c := range contents {
			t.Run(fmt.Sprintf("%s/%s/%s", uid, c[0], c[1]), func(t *testing.T) {
				q := DecideAccessQuery{UserID: uid, ContentType: c[0], ContentID: c[1]}
				atomic, err := f.decide.Execute(ctx, q)
				require.NoError(t, err)
				rebuilt, err := f.reconstruct.Execute(ctx, q)
				require.NoError(t, err)
				assert.Equal(t, *atomic, *rebuilt)
			})
		}
	}

	d, err := f.decide.Execute(ctx, DecideAccessQuery{UserID: "u-refunded", ContentType: "lab", ContentID: "priced"})
	require.NoError(t, err)
	assert.Equal(t, access.ReasonUpgradeOrBuy, d.Reason)

	d, err = f.decide.Execute(ctx, DecideAccessQuery{UserID: "u-new", ContentType: "lab", ContentID: "zero-gated"})
	require.NoError(t, err)
	assert.Equal(t, access.ReasonUpgradeOrBuy, d.Reason)
	assert.Zero(t, d.IndividualPrice)

	d, err = f.decide.Execute(ctx, DecideAccessQuery{UserID: "u-new", ContentType: "lab", ContentID: "zero-open"})
	require.NoError(t, err)
	assert.True(t, d.Allow)
	assert.Equal(t, access.ReasonFreeRule, d.Reason)

	d, err = f.decide.Execute(ctx, DecideAccessQuery{UserID: "u-subscriber", ContentType: "lab", ContentID: "zero-gated"})
	require.NoError(t, err)
	assert.Equal(t, access.ReasonPlanOK, d.Reason)
}

func TestDecideAccess_ExpiredPlanGrantIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, nil)
	f.env.SeedRule(t, "lab", "gated-basic", "basic", 0, true)

	p := f.env.PaidPurchase(t, "order_plan", purchase.OrderNotes{ProductID: "basic", UserID: "u1", AmountUnits: 19900})
	_, err := f.env.Engine.Grant(ctx, p.ID())
	require.NoError(t, err)
	require.Equal(t, "basic", f.env.Tier(t, "u1"))

	q := DecideAccessQuery{UserID: "u1", ContentType: "lab", ContentID: "gated-basic"}
	d, err := f.decide.Execute(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, access.ReasonPlanOK, d.Reason)

	later := time.Now().UTC().AddDate(0, 0, 400)
	restore := biztime.SetNowFuncForTest(func() time.Time { return later })
	defer restore()

	atomic, err := f.decide.Execute(ctx, q)
	require.NoError(t, err)
	rebuilt, err := f.reconstruct.Execute(ctx, q)
	require.NoError(t, err)
	assert.False(t, atomic.Allow)
	assert.Equal(t, access.ReasonUpgradeOrBuy, atomic.Reason)
	assert.Equal(t, *atomic, *rebuilt)

	view, err := f.reads.GetPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", view.Tier)
	assert.Equal(t, 0, view.Rank)
}

func TestDecideAccess_Reasons(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, nil)
	f.env.SeedRule(t, "lab", "x", "pro", 499, true)
	f.env.SeedRule(t, "lab", "off", "", 100, false)
	f.env.SetTier(t, "u-pro", "pro")
	f.grantContent(t, "u-buyer", "lab", "x", "order_x")

	tests := []struct {
		name    string
		userID  string
		ct, cid string
		allow   bool
		reason  access.Reason
		price   int64
	}{
		{"anonymous still sees pricing", "", "lab", "x", false, access.ReasonNoAuth, 499},
		{"free user must upgrade or buy", "u1", "lab", "x", false, access.ReasonUpgradeOrBuy, 499},
		{"plan holder", "u-pro", "lab", "x", true, access.ReasonPlanOK, 499},
		{"buyer", "u-buyer", "lab", "x", true, access.ReasonPurchaseOK, 499},
		{"unregistered challenge is free", "u1", "challenge", "c1", true, access.FreeCategoryReason("challenge"), 0},
		{"unregistered lab is denied", "u1", "lab", "nope", false, access.ReasonNoEntitlement, 0},
		{"inactive rule", "u-pro", "lab", "off", false, access.ReasonInactive, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := f.decide.Execute(ctx, DecideAccessQuery{UserID: tt.userID, ContentType: tt.ct, ContentID: tt.cid})
			require.NoError(t, err)
			assert.Equal(t, tt.allow, d.Allow)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.price, d.IndividualPrice)
		})
	}

	d, err := f.decide.Execute(ctx, DecideAccessQuery{UserID: "u1", ContentType: "challenge", ContentID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, access.Reason("FREE_CHALLENGE"), d.Reason)
}

func TestDecideAccess_InvalidReference(t *testing.T) {
	f := newAccessFixture(t, nil)

	_, err := f.decide.Execute(context.Background(), DecideAccessQuery{UserID: "u1", ContentType: " ", ContentID: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestDecideAccess_UsesCacheUnlessSkipped(t *testing.T) {
	ctx := context.Background()
	cache := newRecordingCache()
	f := newAccessFixture(t, cache)
	f.env.SeedRule(t, "lab", "x", "", 499, true)

	q := DecideAccessQuery{UserID: "u1", ContentType: "lab", ContentID: "x"}
	_, err := f.decide.Execute(ctx, q)
	require.NoError(t, err)
	_, err = f.decide.Execute(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	q.SkipCache = true
	_, err = f.decide.Execute(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	// Anonymous decisions are never cached.
	_, err = f.decide.Execute(ctx, DecideAccessQuery{ContentType: "lab", ContentID: "x"})
	require.NoError(t, err)
	_, err = f.decide.Execute(ctx, DecideAccessQuery{ContentType: "lab", ContentID: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
}

func TestAccessReads(t *testing.T) {
	ctx := context.Background()
	f := newAccessFixture(t, nil)
	f.env.SeedRule(t, "Lab", " x ", "Pro", 49900, true)
	f.grantContent(t, "u1", "lab", "x", "order_r")

	t.Run("plan defaults for unknown users", func(t *testing.T) {
		v, err := f.reads.GetPlan(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, "free", v.Tier)
		assert.Equal(t, 0, v.Rank)
	})

	t.Run("plan requires auth", func(t *testing.T) {
		_, err := f.reads.GetPlan(ctx, "")
		require.Error(t, err)
		assert.Equal(t, errors.ErrorTypeUnauthorized, errors.GetAppError(err).Type)
	})

	t.Run("rule is normalized", func(t *testing.T) {
		v, err := f.reads.GetRule(ctx, "LAB", "x")
		require.NoError(t, err)
		assert.True(t, v.Found)
		assert.Equal(t, "pro", v.RequiredPlan)
		assert.Equal(t, int64(49900), v.IndividualPrice)
		assert.Equal(t, "INR", v.Currency)
	})

	t.Run("missing rule", func(t *testing.T) {
		v, err := f.reads.GetRule(ctx, "lab", "none")
		require.NoError(t, err)
		assert.False(t, v.Found)
	})

	t.Run("grants", func(t *testing.T) {
		v, err := f.reads.GetGrants(ctx, "u1", "lab", "x")
		require.NoError(t, err)
		assert.True(t, v.HasActive)
		require.Len(t, v.Grants, 1)
		assert.Equal(t, "order_r", v.Grants[0].PaymentRef)
	})
}
