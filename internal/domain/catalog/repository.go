package catalog

import (
	"context"
	"errors"
)

var ErrRuleNotFound = errors.New("entitlement rule not found")

type Repository interface {
	GetRule(ctx context.Context, contentType, contentID string) (*Rule, error)
	// Upsert creates or replaces the rule for its content reference.
	Upsert(ctx context.Context, rule *Rule) error
}
