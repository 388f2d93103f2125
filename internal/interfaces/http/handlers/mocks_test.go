package handlers

import (
	"context"

	accessUsecases "github.com/secforge/billing/internal/application/access/usecases"
	paymentUsecases "github.com/secforge/billing/internal/application/payment/usecases"
	webhookUsecases "github.com/secforge/billing/internal/application/webhook/usecases"
	"github.com/secforge/billing/internal/domain/access"
)

type mockDecideUC struct {
	result *access.Decision
	err    error
	got    accessUsecases.DecideAccessQuery
}

func (m *mockDecideUC) Execute(ctx context.Context, query accessUsecases.DecideAccessQuery) (*access.Decision, error) {
	m.got = query
	return m.result, m.err
}

type mockAccessReader struct {
	plan    *accessUsecases.PlanView
	rule    *accessUsecases.RuleView
	grants  *accessUsecases.GrantsView
	err     error
	gotUser string
}

func (m *mockAccessReader) GetPlan(ctx context.Context, userID string) (*accessUsecases.PlanView, error) {
	m.gotUser = userID
	return m.plan, m.err
}

func (m *mockAccessReader) GetRule(ctx context.Context, contentType, contentID string) (*accessUsecases.RuleView, error) {
	return m.rule, m.err
}

func (m *mockAccessReader) GetGrants(ctx context.Context, userID, contentType, contentID string) (*accessUsecases.GrantsView, error) {
	m.gotUser = userID
	return m.grants, m.err
}

type mockCreateOrderUC struct {
	result *paymentUsecases.CreateOrderResult
	err    error
	calls  int
	got    paymentUsecases.CreateOrderCommand
}

func (m *mockCreateOrderUC) Execute(ctx context.Context, cmd paymentUsecases.CreateOrderCommand) (*paymentUsecases.CreateOrderResult, error) {
	m.calls++
	m.got = cmd
	return m.result, m.err
}

type mockVerifyPaymentUC struct {
	result *paymentUsecases.VerifyPaymentResult
	err    error
	calls  int
	got    paymentUsecases.VerifyPaymentCommand
}

func (m *mockVerifyPaymentUC) Execute(ctx context.Context, cmd paymentUsecases.VerifyPaymentCommand) (*paymentUsecases.VerifyPaymentResult, error) {
	m.calls++
	m.got = cmd
	return m.result, m.err
}

type mockWebhookUC struct {
	result *webhookUsecases.WebhookResult
	err    error
	calls  int
	got    webhookUsecases.WebhookCommand
}

func (m *mockWebhookUC) Execute(ctx context.Context, cmd webhookUsecases.WebhookCommand) (*webhookUsecases.WebhookResult, error) {
	m.calls++
	m.got = cmd
	return m.result, m.err
}

type recordedEvent struct {
	kind  string
	label string
}

type mockRecorder struct {
	events []recordedEvent
}

func (m *mockRecorder) RecordDecision(path, reason string) {
	m.events = append(m.events, recordedEvent{kind: "decision:" + path, label: reason})
}

func (m *mockRecorder) RecordOrder(kind, outcome string) {
	m.events = append(m.events, recordedEvent{kind: "order:" + kind, label: outcome})
}

func (m *mockRecorder) RecordVerification(outcome string) {
	m.events = append(m.events, recordedEvent{kind: "verify", label: outcome})
}
