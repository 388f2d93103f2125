package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	accessUsecases "github.com/secforge/billing/internal/application/access/usecases"
	"github.com/secforge/billing/internal/application/payment/paymentgateway"
	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/plan"
	"github.com/secforge/billing/internal/domain/purchase"
	"github.com/secforge/billing/internal/shared/errors"
	"github.com/secforge/billing/internal/shared/id"
	"github.com/secforge/billing/internal/shared/logger"
)

// Reason codes returned by order creation and verification.
const (
	ReasonFree              = "FREE"
	ReasonNoPrice           = "NO_PRICE"
	ReasonUnknownPlan       = "UNKNOWN_PLAN"
	ReasonOrderCreateFailed = "ORDER_CREATE_FAILED"
	ReasonSigMismatch       = "SIG_MISMATCH"
	ReasonUserMismatch      = "USER_MISMATCH"
	ReasonMissingAmount     = "MISSING_AMOUNT"
	ReasonAmountMismatch    = "AMOUNT_MISMATCH"
	ReasonOrderLookupFailed = "ORDER_LOOKUP_FAILED"
)

// AccessDecider is the fresh-read decision used before charging.
type AccessDecider interface {
	Execute(ctx context.Context, query accessUsecases.DecideAccessQuery) (*access.Decision, error)
}

// PlanReader returns the user's tier with expired plan grants excluded.
type PlanReader interface {
	GetPlan(ctx context.Context, userID string) (*accessUsecases.PlanView, error)
}

// CreateOrderCommand targets either one content item or one plan tier.
type CreateOrderCommand struct {
	UserID      string
	ContentType string
	ContentID   string
	Plan        string
	// PriceOverride replaces the catalog price; 0 means free.
	PriceOverride *int64
}

func (c CreateOrderCommand) isPlan() bool {
	return strings.TrimSpace(c.Plan) != ""
}

// CreateOrderResult either carries a provider order to pay, or Already=true
// when nothing needs to be charged.
type CreateOrderResult struct {
	Already     bool   `json:"already"`
	Reason      string `json:"reason,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	PurchaseSID string `json:"purchase_id,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	Currency    string `json:"currency,omitempty"`
	KeyID       string `json:"key_id,omitempty"`
	Mock        bool   `json:"mock"`
}

type CreateOrderUseCase struct {
	decider         AccessDecider
	plans           PlanReader
	purchaseRepo    purchase.Repository
	gateway         paymentgateway.PaymentGateway
	ladder          *plan.Ladder
	defaultCurrency string
	logger          logger.Interface
}

func NewCreateOrderUseCase(
	decider AccessDecider,
	plans PlanReader,
	purchaseRepo purchase.Repository,
	gateway paymentgateway.PaymentGateway,
	ladder *plan.Ladder,
	defaultCurrency string,
	logger logger.Interface,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		decider:         decider,
		plans:           plans,
		purchaseRepo:    purchaseRepo,
		gateway:         gateway,
		ladder:          ladder,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		logger:          logger,
	}
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	if cmd.UserID == "" {
		return nil, errors.NewUnauthorizedError("authentication required")
	}
	if cmd.PriceOverride != nil && *cmd.PriceOverride < 0 {
		return nil, errors.NewValidationError("price_override cannot be negative")
	}

	var (
		notes    purchase.OrderNotes
		currency string
		result   *CreateOrderResult
		err      error
	)
	if cmd.isPlan() {
		notes, currency, result, err = uc.preparePlan(ctx, cmd)
	} else {
		notes, currency, result, err = uc.prepareContent(ctx, cmd)
	}
	if err != nil || result != nil {
		return result, err
	}
	if currency == "" {
		currency = uc.defaultCurrency
	}

	sid, err := id.NewPurchaseSID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate purchase ID: %w", err)
	}

	order, err := uc.gateway.CreateOrder(ctx, paymentgateway.CreateOrderRequest{
		Amount:   notes.AmountUnits,
		Currency: currency,
		Receipt:  sid,
		Notes:    notes.ToMap(),
	})
	if err != nil {
		uc.logger.Errorw("failed to create provider order",
			"user_id", cmd.UserID,
			"amount", notes.AmountUnits,
			"currency", currency,
			"error", err,
		)
		return nil, mapGatewayError(err, ReasonOrderCreateFailed, "failed to create payment order")
	}

	p, err := purchase.NewPurchase(sid, uc.gateway.Name(), order.ID, currency, notes)
	if err != nil {
		return nil, errors.NewInternalError("failed to build purchase", err.Error())
	}
	if err := uc.purchaseRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to persist purchase: %w", err)
	}

	uc.logger.Infow("order created",
		"user_id", cmd.UserID,
		"order_id", order.ID,
		"purchase_sid", sid,
		"content_type", notes.ContentType,
		"content_id", notes.ContentID,
		"product_id", notes.ProductID,
		"amount", notes.AmountUnits,
		"currency", currency,
	)

	return &CreateOrderResult{
		OrderID:     order.ID,
		PurchaseSID: sid,
		Amount:      notes.AmountUnits,
		Currency:    currency,
		KeyID:       uc.gateway.KeyID(),
		Mock:        uc.gateway.IsMock(),
	}, nil
}

func (uc *CreateOrderUseCase) prepareContent(ctx context.Context, cmd CreateOrderCommand) (purchase.OrderNotes, string, *CreateOrderResult, error) {
	ct, cid, err := catalog.NormalizeContentRef(cmd.ContentType, cmd.ContentID)
	if err != nil {
		return purchase.OrderNotes{}, "", nil, errors.NewValidationError(err.Error())
	}

	d, err := uc.decider.Execute(ctx, accessUsecases.DecideAccessQuery{
		UserID: cmd.UserID, ContentType: ct, ContentID: cid, SkipCache: true,
	})
	if err != nil {
		return purchase.OrderNotes{}, "", nil, err
	}

	switch {
	case d.Allow:
		return purchase.OrderNotes{}, "", uc.already(string(d.Reason)), nil
	case cmd.PriceOverride != nil && *cmd.PriceOverride == 0:
		return purchase.OrderNotes{}, "", uc.already(ReasonFree), nil
	case d.Reason == access.ReasonNoAuth:
		return purchase.OrderNotes{}, "", nil, errors.NewUnauthorizedError("authentication required")
	case d.Reason == access.ReasonInactive:
		return purchase.OrderNotes{}, "", nil, errors.NewConflictError("content is not available for purchase").WithReason(string(access.ReasonInactive))
	}

	amount := d.IndividualPrice
	if cmd.PriceOverride != nil {
		amount = *cmd.PriceOverride
	}
	if amount <= 0 {
		return purchase.OrderNotes{}, "", nil, errors.NewValidationError("content is not sold individually").WithReason(ReasonNoPrice)
	}

	notes := purchase.OrderNotes{ContentType: ct, ContentID: cid, UserID: cmd.UserID, AmountUnits: amount}
	return notes, d.Currency, nil, nil
}

func (uc *CreateOrderUseCase) preparePlan(ctx context.Context, cmd CreateOrderCommand) (purchase.OrderNotes, string, *CreateOrderResult, error) {
	tier, ok := uc.ladder.Tier(cmd.Plan)
	if !ok {
		return purchase.OrderNotes{}, "", nil, errors.NewValidationError("unknown plan", cmd.Plan).WithReason(ReasonUnknownPlan)
	}

	current, err := uc.plans.GetPlan(ctx, cmd.UserID)
	if err != nil {
		return purchase.OrderNotes{}, "", nil, fmt.Errorf("failed to read user plan: %w", err)
	}
	if uc.ladder.Satisfies(current.Tier, tier.Name) {
		return purchase.OrderNotes{}, "", uc.already(string(access.ReasonPlanOK)), nil
	}

	amount := tier.Price
	if cmd.PriceOverride != nil {
		amount = *cmd.PriceOverride
	}
	if amount <= 0 {
		return purchase.OrderNotes{}, "", uc.already(ReasonFree), nil
	}

	notes := purchase.OrderNotes{ProductID: tier.Name, UserID: cmd.UserID, AmountUnits: amount}
	return notes, strings.ToUpper(tier.Currency), nil, nil
}

func (uc *CreateOrderUseCase) already(reason string) *CreateOrderResult {
	return &CreateOrderResult{Already: true, Reason: reason, Mock: uc.gateway.IsMock()}
}

// mapGatewayError turns provider failures into reason-coded AppErrors.
func mapGatewayError(err error, reason, message string) error {
	switch {
	case stderrors.Is(err, paymentgateway.ErrNotConfigured):
		return errors.NewNotConfiguredError("payment provider is not configured").WithCause(err)
	case stderrors.Is(err, paymentgateway.ErrUnavailable):
		return errors.NewUnavailableError(reason, message, err.Error()).WithCause(err)
	default:
		return errors.NewInternalError(message, err.Error()).WithReason(reason).WithCause(err)
	}
}
