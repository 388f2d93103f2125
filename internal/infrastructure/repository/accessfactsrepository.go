package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/entitlement"
	"github.com/secforge/billing/internal/shared/biztime"
	"github.com/secforge/billing/internal/shared/constants"
	"github.com/secforge/billing/internal/shared/db"
	"github.com/secforge/billing/internal/shared/logger"
)

// accessFactsQuery reads the rule, the user's base tier, the tiers of
// unexpired plan grants and the active grant count in one statement so the
// decision sees a single snapshot. The anchor row keeps the result at exactly
// one row when the rule or plan is missing.
var accessFactsQuery = fmt.Sprintf(`
SELECT
	CASE WHEN r.id IS NULL THEN 0 ELSE 1 END AS rule_found,
	r.required_plan AS required_plan,
	r.individual_price AS individual_price,
	COALESCE(r.currency, '') AS currency,
	CASE WHEN r.active THEN 1 ELSE 0 END AS rule_active,
	COALESCE(up.base_tier, '') AS user_tier,
	(SELECT COUNT(*) FROM %[3]s g
		WHERE g.user_id = ? AND g.content_type = ? AND g.content_id = ? AND g.status = ?) AS grant_count,
	(SELECT GROUP_CONCAT(pg.tier) FROM %[4]s pg
		WHERE pg.user_id = ? AND pg.status = ? AND (pg.expires_at IS NULL OR pg.expires_at > ?)) AS granted_tiers
FROM (SELECT 1 AS one) anchor
LEFT JOIN %[1]s r ON r.content_type = ? AND r.content_id = ?
LEFT JOIN %[2]s up ON up.user_id = ?`,
	constants.TableContentEntitlementRules,
	constants.TableUserPlans,
	constants.TableContentGrants,
	constants.TablePlanGrants,
)

type accessFactsRow struct {
	RuleFound       int
	RequiredPlan    *string
	IndividualPrice *int64
	Currency        string
	RuleActive      int
	UserTier        string
	GrantCount      int64
	GrantedTiers    *string
}

// AccessFactsRepository implements access.FactsReader with one query.
type AccessFactsRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewAccessFactsRepository(db *gorm.DB, logger logger.Interface) access.FactsReader {
	return &AccessFactsRepository{db: db, logger: logger}
}

// LoadFacts expects a normalized content reference. An empty userID yields
// no tier and no grant. UserTier is the base tier; plan grants arrive in
// GrantedTiers.
func (r *AccessFactsRepository) LoadFacts(ctx context.Context, userID, contentType, contentID string) (access.Facts, error) {
	var row accessFactsRow
	err := db.GetTxFromContext(ctx, r.db).
		Raw(accessFactsQuery,
			userID, contentType, contentID, entitlement.StatusActive.String(),
			userID, entitlement.StatusActive.String(), biztime.NowUTC(),
			contentType, contentID,
			userID,
		).
		Scan(&row).Error
	if err != nil {
		r.logger.Errorw("failed to load access facts",
			"user_id", userID,
			"content_type", contentType,
			"content_id", contentID,
			"error", err)
		return access.Facts{}, fmt.Errorf("failed to load access facts: %w", err)
	}

	facts := access.Facts{
		ContentType:   contentType,
		Authenticated: userID != "",
		UserTier:      row.UserTier,
		HasGrant:      row.GrantCount > 0,
	}
	if row.GrantedTiers != nil && *row.GrantedTiers != "" {
		facts.GrantedTiers = strings.Split(*row.GrantedTiers, ",")
	}
	if row.RuleFound == 1 {
		// Same normalization as the catalog read path.
		rule := catalog.ReconstructRule(0, contentType, contentID, row.RequiredPlan, row.IndividualPrice,
			row.Currency, row.RuleActive == 1, time.Time{}, time.Time{})
		facts.Rule = access.RuleFactsFrom(rule)
	}
	return facts, nil
}
