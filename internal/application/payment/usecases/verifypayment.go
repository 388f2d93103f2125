package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	entitlementUsecases "github.com/secforge/billing/internal/application/entitlement/usecases"
	"github.com/secforge/billing/internal/application/payment/paymentgateway"
	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/purchase"
	"github.com/secforge/billing/internal/shared/biztime"
	"github.com/secforge/billing/internal/shared/errors"
	"github.com/secforge/billing/internal/shared/id"
	"github.com/secforge/billing/internal/shared/logger"
)

type VerifyPaymentCommand struct {
	UserID    string
	OrderID   string
	PaymentID string
	Signature string
	// Optional; when set they must match the order notes.
	ContentType string
	ContentID   string
}

type VerifyPaymentResult struct {
	Success     bool   `json:"success"`
	PurchaseSID string `json:"purchase_id"`
	PricePaid   int64  `json:"price_paid"`
	Currency    string `json:"currency"`
}

// VerifyPaymentUseCase confirms a client-reported payment against the
// provider and grants access. Repeating it for the same order is harmless.
type VerifyPaymentUseCase struct {
	purchaseRepo purchase.Repository
	gateway      paymentgateway.PaymentGateway
	engine       *entitlementUsecases.GrantEngine
	txManager    entitlementUsecases.TransactionRunner
	logger       logger.Interface
}

func NewVerifyPaymentUseCase(
	purchaseRepo purchase.Repository,
	gateway paymentgateway.PaymentGateway,
	engine *entitlementUsecases.GrantEngine,
	txManager entitlementUsecases.TransactionRunner,
	logger logger.Interface,
) *VerifyPaymentUseCase {
	return &VerifyPaymentUseCase{
		purchaseRepo: purchaseRepo,
		gateway:      gateway,
		engine:       engine,
		txManager:    txManager,
		logger:       logger,
	}
}

func (uc *VerifyPaymentUseCase) Execute(ctx context.Context, cmd VerifyPaymentCommand) (*VerifyPaymentResult, error) {
	log := logger.FromContext(ctx, uc.logger)
	if cmd.UserID == "" {
		return nil, errors.NewUnauthorizedError("authentication required")
	}
	if cmd.OrderID == "" || cmd.PaymentID == "" || cmd.Signature == "" {
		return nil, errors.NewValidationError("order_id, payment_id and signature are required")
	}

	if !uc.gateway.VerifyPaymentSignature(cmd.OrderID, cmd.PaymentID, cmd.Signature) {
		log.Warnw("payment signature mismatch", "user_id", cmd.UserID, "order_id", cmd.OrderID, "payment_id", cmd.PaymentID)
		return nil, errors.NewIntegrityError(ReasonSigMismatch, "payment signature does not match")
	}

	order, err := uc.gateway.FetchOrder(ctx, cmd.OrderID)
	if err != nil {
		if stderrors.Is(err, paymentgateway.ErrOrderNotFound) {
			return nil, errors.NewNotFoundError("order not found", cmd.OrderID).WithReason(ReasonOrderLookupFailed)
		}
		log.Errorw("failed to fetch provider order", "order_id", cmd.OrderID, "error", err)
		return nil, mapGatewayError(err, ReasonOrderLookupFailed, "failed to fetch payment order")
	}

	notes, amountOK := purchase.ParseOrderNotes(order.Notes)
	if notes.UserID != cmd.UserID {
		log.Warnw("payment user mismatch", "order_id", cmd.OrderID, "caller", cmd.UserID, "order_user", notes.UserID)
		return nil, errors.NewIntegrityError(ReasonUserMismatch, "order belongs to a different user")
	}
	if !amountOK {
		return nil, errors.NewIntegrityError(ReasonMissingAmount, "order has no pinned amount")
	}
	if order.Amount != notes.AmountUnits {
		log.Warnw("provider amount differs from pinned amount",
			"order_id", cmd.OrderID,
			"provider_amount", order.Amount,
			"pinned_amount", notes.AmountUnits)
		return nil, errors.NewIntegrityError(ReasonAmountMismatch, "paid amount does not match the order")
	}
	if err := checkRequestedContent(cmd, notes); err != nil {
		return nil, err
	}

	var (
		outcome *entitlementUsecases.Outcome
		stored  *purchase.Purchase
	)
	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		p, err := uc.loadOrSynthesize(txCtx, order, notes)
		if err != nil {
			return err
		}
		if err := p.CheckAmount(order.Amount, order.Currency); err != nil {
			return errors.NewIntegrityError(ReasonAmountMismatch, "paid amount does not match the purchase").WithCause(err)
		}

		switch p.Status() {
		case purchase.StatusRefunded:
			return errors.NewConflictError("purchase was refunded").WithReason("REFUNDED")
		case purchase.StatusCreated:
			if _, err := uc.purchaseRepo.MarkPaid(txCtx, p.ID(), cmd.PaymentID, order.Amount, biztime.NowUTC()); err != nil {
				return err
			}
		}

		outcome, err = uc.engine.Grant(txCtx, p.ID())
		if err != nil {
			return fmt.Errorf("failed to grant purchase: %w", err)
		}
		stored = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.engine.Invalidate(ctx, outcome)

	log.Infow("payment verified",
		"user_id", cmd.UserID,
		"order_id", cmd.OrderID,
		"payment_id", cmd.PaymentID,
		"purchase_id", stored.ID(),
		"granted", outcome != nil && outcome.Changed,
	)
	return &VerifyPaymentResult{
		Success:     true,
		PurchaseSID: stored.SID(),
		PricePaid:   order.Amount,
		Currency:    stored.Currency(),
	}, nil
}

// loadOrSynthesize returns the purchase for the order, creating it from the
// pinned notes when the creating request never persisted one.
func (uc *VerifyPaymentUseCase) loadOrSynthesize(ctx context.Context, order *paymentgateway.Order, notes purchase.OrderNotes) (*purchase.Purchase, error) {
	p, err := uc.purchaseRepo.GetByProviderOrderID(ctx, order.ID)
	if err == nil {
		return p, nil
	}
	if !stderrors.Is(err, purchase.ErrPurchaseNotFound) {
		return nil, err
	}
	return synthesizePurchase(ctx, uc.purchaseRepo, uc.gateway.Name(), order.ID, order.Currency, notes)
}

func synthesizePurchase(ctx context.Context, repo purchase.Repository, provider, orderID, currency string, notes purchase.OrderNotes) (*purchase.Purchase, error) {
	sid, err := id.NewPurchaseSID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate purchase ID: %w", err)
	}
	p, err := purchase.NewPurchase(sid, provider, orderID, currency, notes)
	if err != nil {
		return nil, errors.NewValidationError("order notes do not describe a purchase", err.Error())
	}
	return repo.CreateIfAbsent(ctx, p)
}

func checkRequestedContent(cmd VerifyPaymentCommand, notes purchase.OrderNotes) error {
	if strings.TrimSpace(cmd.ContentType) == "" && strings.TrimSpace(cmd.ContentID) == "" {
		return nil
	}
	ct, cid, err := catalog.NormalizeContentRef(cmd.ContentType, cmd.ContentID)
	if err != nil {
		return errors.NewValidationError(err.Error())
	}
	if notes.IsPlan() || ct != notes.ContentType || cid != notes.ContentID {
		return errors.NewValidationError("requested content does not match the order")
	}
	return nil
}
