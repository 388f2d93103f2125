package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/plan"
)

var (
	testLadder = plan.MustNewLadder([]plan.Tier{{Name: "free"}, {Name: "pro", Price: 49900, Currency: "INR", PeriodDays: 30}}, "free")
	testPolicy = catalog.NewPolicy([]string{"challenge"})
)

func TestDecide_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		facts Facts
		want  Decision
	}{
		{
			name:  "anonymous still sees price",
			facts: Facts{ContentType: "lab", Rule: &RuleFacts{IndividualPrice: 499, Currency: "INR", Active: true}},
			want:  Decision{Reason: ReasonNoAuth, IndividualPrice: 499, Currency: "INR"},
		},
		{
			name:  "unregistered challenge is free",
			facts: Facts{ContentType: "challenge", Authenticated: true, UserTier: "free"},
			want:  Decision{Allow: true, Reason: "FREE_CHALLENGE"},
		},
		{
			name:  "unregistered lab is closed",
			facts: Facts{ContentType: "lab", Authenticated: true, UserTier: "pro"},
			want:  Decision{Reason: ReasonNoEntitlement},
		},
		{
			name:  "inactive rule denies even the top tier",
			facts: Facts{ContentType: "lab", Authenticated: true, UserTier: "pro", Rule: &RuleFacts{RequiredPlan: "pro", Active: false}},
			want:  Decision{Reason: ReasonInactive, RequiredPlan: "pro"},
		},
		{
			name:  "plan satisfied",
			facts: Facts{ContentType: "lab", Authenticated: true, UserTier: "pro", Rule: &RuleFacts{RequiredPlan: "pro", IndividualPrice: 499, Currency: "INR", Active: true}},
			want:  Decision{Allow: true, Reason: ReasonPlanOK, RequiredPlan: "pro", IndividualPrice: 499, Currency: "INR"},
		},
		{
			name:  "priced content without grant on free plan",
			facts: Facts{ContentType: "lab", Authenticated: true, UserTier: "free", Rule: &RuleFacts{RequiredPlan: "pro", IndividualPrice: 499, Currency: "INR", Active: true}},
			want:  Decision{Reason: ReasonUpgradeOrBuy, RequiredPlan: "pro", IndividualPrice: 499, Currency: "INR"},
		},
		{
			name:  "priced content with grant",
			facts: Facts{ContentType: "lab", Authenticated: true, UserTier: "free", Rule: &RuleFacts{IndividualPrice: 499, Currency: "INR", Active: true}, HasGrant: true},
			want:  Decision{Allow: true, Reason: ReasonPurchaseOK, IndividualPrice: 499, Currency: "INR"},
		},
		{
			name:  "zero price is no price gate",
			facts: Facts{ContentType: "lab", Authenticated: true, UserTier: "free", Rule: &RuleFacts{IndividualPrice: 0, Active: true}},
			want:  Decision{Allow: true, Reason: ReasonFreeRule},
		},
		{
			name:  "plan gate without price below tier",
			facts: Facts{ContentType: "track", Authenticated: true, UserTier: "free", Rule: &RuleFacts{RequiredPlan: "pro", Active: true}},
			want:  Decision{Reason: ReasonUpgradeOrBuy, RequiredPlan: "pro"},
		},
		{
			name:  "grant ignored when content is not priced",
			facts: Facts{ContentType: "track", Authenticated: true, UserTier: "free", Rule: &RuleFacts{RequiredPlan: "pro", Active: true}, HasGrant: true},
			want:  Decision{Reason: ReasonUpgradeOrBuy, RequiredPlan: "pro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.facts, testLadder, testPolicy))
		})
	}
}

func TestDecide_UnknownRequiredPlanFailsClosed(t *testing.T) {
	d := Decide(Facts{
		ContentType:   "lab",
		Authenticated: true,
		UserTier:      "pro",
		Rule:          &RuleFacts{RequiredPlan: "platinum", Active: true},
	}, testLadder, testPolicy)

	assert.False(t, d.Allow)
	assert.Equal(t, ReasonUpgradeOrBuy, d.Reason)
}

func TestRuleFactsFrom(t *testing.T) {
	assert.Nil(t, RuleFactsFrom(nil))

	required := "pro"
	r, err := catalog.NewRule("lab", "x", &required, nil, "", true)
	assert.NoError(t, err)

	f := RuleFactsFrom(r)
	assert.Equal(t, &RuleFacts{RequiredPlan: "pro", Active: true}, f)
}
