// Package access computes allow/deny verdicts for a user and a content item.
//
// Decide is the only place the branching lives. Callers collect Facts either
// with one atomic query or from separate plan, rule and grant reads, and both
// feed the same function so the two paths cannot drift apart.
package access

import (
	"strings"

	"github.com/secforge/billing/internal/domain/catalog"
)

type Reason string

const (
	ReasonNoAuth        Reason = "NO_AUTH"
	ReasonNoEntitlement Reason = "NO_ENTITLEMENT"
	ReasonInactive      Reason = "INACTIVE"
	ReasonPlanOK        Reason = "PLAN_OK"
	ReasonPurchaseOK    Reason = "PURCHASE_OK"
	ReasonUpgradeOrBuy  Reason = "UPGRADE_OR_BUY"
	ReasonFreeRule      Reason = "FREE_RULE"

	freeCategoryPrefix = "FREE_"
)

// FreeCategoryReason is the reason for unregistered content in a
// free-by-default category, e.g. FREE_CHALLENGE.
func FreeCategoryReason(contentType string) Reason {
	return Reason(freeCategoryPrefix + strings.ToUpper(contentType))
}

// RuleFacts is the slice of a catalog rule the decision needs.
type RuleFacts struct {
	RequiredPlan    string
	IndividualPrice int64
	Currency        string
	Active          bool
}

// RuleFactsFrom returns nil for a nil rule.
func RuleFactsFrom(r *catalog.Rule) *RuleFacts {
	if r == nil {
		return nil
	}
	return &RuleFacts{
		RequiredPlan:    r.PlanName(),
		IndividualPrice: r.Price(),
		Currency:        r.Currency(),
		Active:          r.IsActive(),
	}
}

// Facts is everything Decide looks at.
type Facts struct {
	ContentType   string
	Authenticated bool
	UserTier      string
	// GrantedTiers are tiers of unexpired plan grants, folded over UserTier.
	GrantedTiers  []string
	Rule          *RuleFacts
	HasGrant      bool
}

type Decision struct {
	Allow           bool   `json:"allow"`
	Reason          Reason `json:"reason"`
	RequiredPlan    string `json:"required_plan,omitempty"`
	IndividualPrice int64  `json:"individual_price,omitempty"`
	Currency        string `json:"currency,omitempty"`
}

// Priced reports whether the content can be bought individually.
func (d Decision) Priced() bool {
	return d.IndividualPrice > 0
}
