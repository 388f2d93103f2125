package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/secforge/billing/internal/domain/catalog"
)

// CatalogFile is the YAML document accepted by `billing seed`.
type CatalogFile struct {
	Rules []RuleSpec `yaml:"rules" validate:"required,min=1,dive"`
}

// RuleSpec describes one content rule. Active defaults to true.
type RuleSpec struct {
	ContentType     string  `yaml:"content_type" validate:"required,max=64"`
	ContentID       string  `yaml:"content_id" validate:"required,max=191"`
	RequiredPlan    *string `yaml:"required_plan" validate:"omitempty,max=64"`
	IndividualPrice *int64  `yaml:"individual_price" validate:"omitempty,gte=0"`
	Currency        string  `yaml:"currency" validate:"omitempty,len=3,alpha"`
	Active          *bool   `yaml:"active"`
}

var validate = validator.New()

// LoadCatalogFile parses and validates a catalog file.
func LoadCatalogFile(path string) (*CatalogFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (*CatalogFile, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid catalog file: %w", err)
	}
	return &file, nil
}

// DomainRules converts every spec into a domain rule, failing on the first invalid one.
func (f *CatalogFile) DomainRules(defaultCurrency string) ([]*catalog.Rule, error) {
	rules := make([]*catalog.Rule, 0, len(f.Rules))
	for i, spec := range f.Rules {
		active := true
		if spec.Active != nil {
			active = *spec.Active
		}
		currency := spec.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		rule, err := catalog.NewRule(spec.ContentType, spec.ContentID, spec.RequiredPlan, spec.IndividualPrice, currency, active)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s/%s): %w", i, spec.ContentType, spec.ContentID, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Apply upserts rules one by one and returns how many were written.
func Apply(ctx context.Context, repo catalog.Repository, rules []*catalog.Rule) (int, error) {
	for i, rule := range rules {
		if err := repo.Upsert(ctx, rule); err != nil {
			return i, fmt.Errorf("failed to upsert %s/%s: %w", rule.ContentType(), rule.ContentID(), err)
		}
	}
	return len(rules), nil
}
