package handlers

import (
	"context"

	accessUsecases "github.com/secforge/billing/internal/application/access/usecases"
	paymentUsecases "github.com/secforge/billing/internal/application/payment/usecases"
	webhookUsecases "github.com/secforge/billing/internal/application/webhook/usecases"
	"github.com/secforge/billing/internal/domain/access"
)

// DecideAccessExecutor defines the interface for access decisions.
type DecideAccessExecutor interface {
	Execute(ctx context.Context, query accessUsecases.DecideAccessQuery) (*access.Decision, error)
}

// AccessReader serves the three independent reads.
type AccessReader interface {
	GetPlan(ctx context.Context, userID string) (*accessUsecases.PlanView, error)
	GetRule(ctx context.Context, contentType, contentID string) (*accessUsecases.RuleView, error)
	GetGrants(ctx context.Context, userID, contentType, contentID string) (*accessUsecases.GrantsView, error)
}

type CreateOrderExecutor interface {
	Execute(ctx context.Context, cmd paymentUsecases.CreateOrderCommand) (*paymentUsecases.CreateOrderResult, error)
}

type VerifyPaymentExecutor interface {
	Execute(ctx context.Context, cmd paymentUsecases.VerifyPaymentCommand) (*paymentUsecases.VerifyPaymentResult, error)
}

type WebhookExecutor interface {
	Execute(ctx context.Context, cmd webhookUsecases.WebhookCommand) (*webhookUsecases.WebhookResult, error)
}

// DecisionRecorder observes access verdicts.
type DecisionRecorder interface {
	RecordDecision(path, reason string)
}

// PaymentRecorder observes order and verification outcomes.
type PaymentRecorder interface {
	RecordOrder(kind, outcome string)
	RecordVerification(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordDecision(string, string) {}
func (nopRecorder) RecordOrder(string, string)    {}
func (nopRecorder) RecordVerification(string)     {}
