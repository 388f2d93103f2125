package access

import (
	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/plan"
)

// Decide applies, in order: authentication, catalog default, active flag,
// plan gate, price gate, open rule. A non-positive price counts as unset.
// Pricing is returned even on NO_AUTH.
func Decide(f Facts, ladder *plan.Ladder, policy catalog.Policy) Decision {
	d := Decision{}
	if f.Rule != nil {
		d.RequiredPlan = f.Rule.RequiredPlan
		if f.Rule.IndividualPrice > 0 {
			d.IndividualPrice = f.Rule.IndividualPrice
			d.Currency = f.Rule.Currency
		}
	}

	if !f.Authenticated {
		d.Reason = ReasonNoAuth
		return d
	}

	if f.Rule == nil {
		if policy.IsFreeByDefault(f.ContentType) {
			d.Allow = true
			d.Reason = FreeCategoryReason(f.ContentType)
			return d
		}
		d.Reason = ReasonNoEntitlement
		return d
	}

	if !f.Rule.Active {
		d.Reason = ReasonInactive
		return d
	}

	if d.RequiredPlan != "" && ladder.Satisfies(ladder.Highest(f.UserTier, f.GrantedTiers...), d.RequiredPlan) {
		d.Allow = true
		d.Reason = ReasonPlanOK
		return d
	}

	if d.IndividualPrice > 0 {
		if f.HasGrant {
			d.Allow = true
			d.Reason = ReasonPurchaseOK
			return d
		}
		d.Reason = ReasonUpgradeOrBuy
		return d
	}

	// Plan gate without a price: the only way in is an upgrade.
	if d.RequiredPlan != "" {
		d.Reason = ReasonUpgradeOrBuy
		return d
	}

	d.Allow = true
	d.Reason = ReasonFreeRule
	return d
}
