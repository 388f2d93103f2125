package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	entitlementUsecases "github.com/secforge/billing/internal/application/entitlement/usecases"
	"github.com/secforge/billing/internal/application/payment/paymentgateway"
	"github.com/secforge/billing/internal/domain/plan"
	"github.com/secforge/billing/internal/domain/providerevent"
	"github.com/secforge/billing/internal/domain/purchase"
	"github.com/secforge/billing/internal/domain/subscription"
	"github.com/secforge/billing/internal/shared/biztime"
	"github.com/secforge/billing/internal/shared/errors"
	"github.com/secforge/billing/internal/shared/id"
	"github.com/secforge/billing/internal/shared/logger"
)

const diagInvalidSignature = "invalid signature"

type WebhookCommand struct {
	Provider      string
	RawBody       []byte
	Signature     string
	EventIDHeader string
}

// WebhookResult is acknowledged to the provider with HTTP 200 whatever the
// processing outcome; failures live in the ledger.
type WebhookResult struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	Result     string `json:"result"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Duplicate  bool   `json:"duplicate"`
}

// EventRecorder observes processed webhooks, e.g. for metrics.
type EventRecorder interface {
	RecordWebhook(provider, eventType, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordWebhook(string, string, string) {}

// HandleWebhookUseCase records every delivery in the provider event ledger and
// applies signed events exactly once.
type HandleWebhookUseCase struct {
	eventRepo        providerevent.Repository
	purchaseRepo     purchase.Repository
	subscriptionRepo subscription.Repository
	gateway          paymentgateway.PaymentGateway
	engine           *entitlementUsecases.GrantEngine
	ladder           *plan.Ladder
	txManager        entitlementUsecases.TransactionRunner
	recorder         EventRecorder
	logger           logger.Interface
}

func NewHandleWebhookUseCase(
	eventRepo providerevent.Repository,
	purchaseRepo purchase.Repository,
	subscriptionRepo subscription.Repository,
	gateway paymentgateway.PaymentGateway,
	engine *entitlementUsecases.GrantEngine,
	ladder *plan.Ladder,
	txManager entitlementUsecases.TransactionRunner,
	logger logger.Interface,
) *HandleWebhookUseCase {
	return &HandleWebhookUseCase{
		eventRepo:        eventRepo,
		purchaseRepo:     purchaseRepo,
		subscriptionRepo: subscriptionRepo,
		gateway:          gateway,
		engine:           engine,
		ladder:           ladder,
		txManager:        txManager,
		recorder:         nopRecorder{},
		logger:           logger,
	}
}

// SetRecorder installs a metrics recorder.
func (uc *HandleWebhookUseCase) SetRecorder(r EventRecorder) {
	if r != nil {
		uc.recorder = r
	}
}

// Execute returns an error only for unreadable bodies and ledger write
// failures. Processing failures are reported in the result.
func (uc *HandleWebhookUseCase) Execute(ctx context.Context, cmd WebhookCommand) (*WebhookResult, error) {
	log := logger.FromContext(ctx, uc.logger)
	if len(cmd.RawBody) == 0 {
		return nil, errors.NewBadRequestError("empty webhook body")
	}
	env, err := providerevent.ParseEnvelope(cmd.RawBody)
	if err != nil {
		return nil, errors.NewBadRequestError("unreadable webhook body", err.Error())
	}

	sigValid := uc.gateway.VerifyWebhookSignature(cmd.RawBody, cmd.Signature)
	extID := providerevent.ExternalEventID(env, cmd.EventIDHeader, cmd.RawBody)

	ev, err := providerevent.NewEvent(cmd.Provider, env.Event, extID, cmd.RawBody, sigValid, biztime.NowUTC())
	if err != nil {
		return nil, errors.NewBadRequestError(err.Error())
	}
	stored, inserted, err := uc.eventRepo.InsertIfAbsent(ctx, ev)
	if err != nil {
		log.Errorw("failed to record webhook", "provider", cmd.Provider, "event_id", extID, "error", err)
		return nil, err
	}

	result := &WebhookResult{EventID: extID, EventType: env.Event}
	if !inserted && stored.IsProcessed() {
		log.Infow("duplicate webhook ignored", "provider", cmd.Provider, "event_id", extID, "attempts", stored.Attempts())
		result.Result = string(providerevent.ResultSuccess)
		result.Duplicate = true
		uc.recorder.RecordWebhook(cmd.Provider, env.Event, "duplicate")
		return result, nil
	}

	if !sigValid {
		log.Warnw("webhook signature invalid", "provider", cmd.Provider, "event_id", extID, "event", env.Event)
		return uc.fail(ctx, stored, result, diagInvalidSignature), nil
	}

	variant, err := env.Variant()
	if err != nil {
		return uc.fail(ctx, stored, result, err.Error()), nil
	}

	var outcomes []*entitlementUsecases.Outcome
	var diagnostic string
	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		var err error
		outcomes, diagnostic, err = uc.dispatch(txCtx, cmd.Provider, variant)
		if err != nil {
			return err
		}
		return uc.eventRepo.MarkSuccess(txCtx, stored.ID())
	})
	if err != nil {
		log.Warnw("webhook processing failed",
			"provider", cmd.Provider,
			"event_id", extID,
			"event", env.Event,
			"error", err,
		)
		return uc.fail(ctx, stored, result, err.Error()), nil
	}
	uc.engine.Invalidate(ctx, outcomes...)

	log.Infow("webhook processed",
		"provider", cmd.Provider,
		"event_id", extID,
		"event", env.Event,
		"diagnostic", diagnostic,
	)
	result.Result = string(providerevent.ResultSuccess)
	result.Diagnostic = diagnostic
	uc.recorder.RecordWebhook(cmd.Provider, env.Event, result.Result)
	return result, nil
}

func (uc *HandleWebhookUseCase) fail(ctx context.Context, stored *providerevent.Event, result *WebhookResult, diagnostic string) *WebhookResult {
	if err := uc.eventRepo.MarkError(ctx, stored.ID(), diagnostic); err != nil {
		uc.logger.Errorw("failed to record webhook error", "event_id", stored.ExternalEventID(), "error", err)
	}
	result.Result = string(providerevent.ResultError)
	result.Diagnostic = diagnostic
	uc.recorder.RecordWebhook(stored.Provider(), stored.EventType(), result.Result)
	return result
}

func (uc *HandleWebhookUseCase) dispatch(ctx context.Context, provider string, v providerevent.Variant) ([]*entitlementUsecases.Outcome, string, error) {
	switch ev := v.(type) {
	case providerevent.PaymentCaptured:
		return uc.onPaymentCaptured(ctx, provider, ev)
	case providerevent.PaymentRefunded:
		return uc.onPaymentRefunded(ctx, ev)
	case providerevent.SubscriptionChanged:
		return uc.onSubscriptionChanged(ctx, provider, ev)
	default:
		return nil, "event type not handled", nil
	}
}

func (uc *HandleWebhookUseCase) onPaymentCaptured(ctx context.Context, provider string, ev providerevent.PaymentCaptured) ([]*entitlementUsecases.Outcome, string, error) {
	p, err := uc.purchaseRepo.GetByProviderOrderID(ctx, ev.OrderID)
	if stderrors.Is(err, purchase.ErrPurchaseNotFound) {
		notes, ok := purchase.ParseOrderNotes(ev.Notes)
		if !ok {
			return nil, "", fmt.Errorf("payment for unknown order %s carries no pinned amount", ev.OrderID)
		}
		p, err = synthesizePurchase(ctx, uc.purchaseRepo, provider, ev.OrderID, ev.Currency, notes)
	}
	if err != nil {
		return nil, "", err
	}

	if p.Status() == purchase.StatusRefunded {
		return nil, "purchase already refunded", nil
	}
	if err := p.CheckCapture(ev.PaymentID, ev.Amount, ev.Currency); err != nil {
		return nil, "", err
	}
	if p.Status() == purchase.StatusCreated {
		ok, err := uc.purchaseRepo.MarkPaid(ctx, p.ID(), ev.PaymentID, ev.Amount, biztime.NowUTC())
		if err != nil {
			return nil, "", err
		}
		if !ok {
			// Lost the race; whoever won may have refunded already.
			if p, err = uc.purchaseRepo.GetByID(ctx, p.ID()); err != nil {
				return nil, "", err
			}
			if !p.IsPaid() {
				return nil, "purchase no longer payable", nil
			}
			if err := p.CheckCapture(ev.PaymentID, ev.Amount, ev.Currency); err != nil {
				return nil, "", err
			}
		}
	}

	out, err := uc.engine.Grant(ctx, p.ID())
	if err != nil {
		return nil, "", err
	}
	diag := "granted"
	if !out.Changed {
		diag = "already granted"
	}
	return []*entitlementUsecases.Outcome{out}, diag, nil
}

func (uc *HandleWebhookUseCase) onPaymentRefunded(ctx context.Context, ev providerevent.PaymentRefunded) ([]*entitlementUsecases.Outcome, string, error) {
	p, err := uc.purchaseRepo.GetByProviderPaymentID(ctx, ev.PaymentID)
	if err != nil {
		return nil, "", fmt.Errorf("refund for unknown payment %s: %w", ev.PaymentID, err)
	}

	switch p.Status() {
	case purchase.StatusRefunded:
		return nil, "already refunded", nil
	case purchase.StatusCreated:
		return nil, "", fmt.Errorf("refund for unpaid purchase %s", p.SID())
	}

	ok, err := uc.purchaseRepo.MarkRefunded(ctx, p.ID(), biztime.NowUTC())
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "already refunded", nil
	}
	out, err := uc.engine.Revoke(ctx, p.ID())
	if err != nil {
		return nil, "", err
	}
	return []*entitlementUsecases.Outcome{out}, "revoked", nil
}

func (uc *HandleWebhookUseCase) onSubscriptionChanged(ctx context.Context, provider string, ev providerevent.SubscriptionChanged) ([]*entitlementUsecases.Outcome, string, error) {
	status, ok := subscription.MapProviderStatus(ev.Status)
	if !ok {
		return nil, "", fmt.Errorf("unknown subscription status %q", ev.Status)
	}

	sub, err := uc.subscriptionRepo.GetByProviderID(ctx, provider, ev.SubscriptionID)
	if stderrors.Is(err, subscription.ErrSubscriptionNotFound) {
		userID := strings.TrimSpace(ev.Notes[purchase.NoteUserID])
		productID := strings.TrimSpace(ev.Notes[purchase.NoteProductID])
		if productID == "" && uc.ladder.Known(ev.PlanID) {
			productID = ev.PlanID
		}
		created, cerr := subscription.NewSubscription(userID, strings.ToLower(productID), provider, ev.SubscriptionID)
		if cerr != nil {
			return nil, "", fmt.Errorf("cannot register subscription %s: %w", ev.SubscriptionID, cerr)
		}
		sub, err = uc.subscriptionRepo.CreateIfAbsent(ctx, created)
	}
	if err != nil {
		return nil, "", err
	}

	from := sub.Status()
	t, err := sub.Apply(status, unixTime(ev.CurrentStart), unixTime(ev.CurrentEnd))
	if err != nil {
		return nil, "", err
	}
	if !t.Changed() {
		return nil, "no state change", nil
	}
	ok, err = uc.subscriptionRepo.UpdateState(ctx, sub.ID(), from, t.To, sub.CurrentPeriodStart(), sub.CurrentPeriodEnd())
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", fmt.Errorf("subscription %s changed concurrently", ev.SubscriptionID)
	}

	diag := fmt.Sprintf("%s -> %s", t.From, t.To)
	switch {
	case t.EnteredActive || t.Renewed:
		out, err := uc.engine.GrantSubscription(ctx, sub, uc.grantDuration(sub))
		if err != nil {
			return nil, "", err
		}
		return []*entitlementUsecases.Outcome{out}, diag, nil
	case t.EnteredCanceled:
		out, err := uc.engine.RevokeSubscription(ctx, sub)
		if err != nil {
			return nil, "", err
		}
		return []*entitlementUsecases.Outcome{out}, diag, nil
	}
	return nil, diag, nil
}

// grantDuration is the current billing period, falling back to the tier's
// configured period.
func (uc *HandleWebhookUseCase) grantDuration(sub *subscription.Subscription) time.Duration {
	if d := sub.PeriodLength(); d > 0 {
		return d
	}
	if tier, ok := uc.ladder.Tier(sub.ProductID()); ok && tier.PeriodDays > 0 {
		now := biztime.NowUTC()
		return biztime.AddDays(now, tier.PeriodDays).Sub(now)
	}
	return 0
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return biztime.FromUnix(sec)
}

func synthesizePurchase(ctx context.Context, repo purchase.Repository, provider, orderID, currency string, notes purchase.OrderNotes) (*purchase.Purchase, error) {
	sid, err := id.NewPurchaseSID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate purchase ID: %w", err)
	}
	p, err := purchase.NewPurchase(sid, provider, orderID, currency, notes)
	if err != nil {
		return nil, fmt.Errorf("order notes do not describe a purchase: %w", err)
	}
	return repo.CreateIfAbsent(ctx, p)
}
