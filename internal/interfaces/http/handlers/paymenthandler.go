package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	paymentUsecases "github.com/secforge/billing/internal/application/payment/usecases"
	"github.com/secforge/billing/internal/interfaces/http/middleware"
	"github.com/secforge/billing/internal/shared/errors"
	"github.com/secforge/billing/internal/shared/logger"
	"github.com/secforge/billing/internal/shared/utils"
)

const (
	ActionCreate = "create"
	ActionVerify = "verify"
)

// PaymentRequest is the body of POST /payments. create targets either
// content_type/content_id or plan; verify carries the checkout result.
type PaymentRequest struct {
	Action        string `json:"action" binding:"required,oneof=create verify"`
	ContentType   string `json:"content_type"`
	ContentID     string `json:"content_id"`
	Plan          string `json:"plan"`
	PriceOverride *int64 `json:"price_override" binding:"omitempty,gte=0"`
	OrderID       string `json:"order_id" binding:"required_if=Action verify"`
	PaymentID     string `json:"payment_id" binding:"required_if=Action verify"`
	Signature     string `json:"signature" binding:"required_if=Action verify"`
}

type PaymentHandler struct {
	createOrderUC   CreateOrderExecutor
	verifyPaymentUC VerifyPaymentExecutor
	recorder        PaymentRecorder
	logger          logger.Interface
}

func NewPaymentHandler(
	createOrderUC CreateOrderExecutor,
	verifyPaymentUC VerifyPaymentExecutor,
	recorder PaymentRecorder,
	logger logger.Interface,
) *PaymentHandler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &PaymentHandler{
		createOrderUC:   createOrderUC,
		verifyPaymentUC: verifyPaymentUC,
		recorder:        recorder,
		logger:          logger,
	}
}

// Handle handles POST /payments
func (h *PaymentHandler) Handle(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.FromContext(c.Request.Context(), h.logger).Warnw("invalid request body for payment", "error", err, "user_id", userID)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}

	if req.Action == ActionVerify {
		h.verify(c, userID, req)
		return
	}
	h.create(c, userID, req)
}

func (h *PaymentHandler) create(c *gin.Context, userID string, req PaymentRequest) {
	kind := "content"
	if strings.TrimSpace(req.Plan) != "" {
		kind = "plan"
	}

	result, err := h.createOrderUC.Execute(c.Request.Context(), paymentUsecases.CreateOrderCommand{
		UserID:        userID,
		ContentType:   req.ContentType,
		ContentID:     req.ContentID,
		Plan:          req.Plan,
		PriceOverride: req.PriceOverride,
	})
	if err != nil {
		h.recorder.RecordOrder(kind, outcomeOf(err))
		utils.ErrorResponseWithError(c, err)
		return
	}

	if result.Already {
		h.recorder.RecordOrder(kind, "already_"+strings.ToLower(result.Reason))
		utils.SuccessResponse(c, http.StatusOK, "nothing to pay", result)
		return
	}
	h.recorder.RecordOrder(kind, "created")
	utils.SuccessResponse(c, http.StatusCreated, "order created", result)
}

func (h *PaymentHandler) verify(c *gin.Context, userID string, req PaymentRequest) {
	result, err := h.verifyPaymentUC.Execute(c.Request.Context(), paymentUsecases.VerifyPaymentCommand{
		UserID:      userID,
		OrderID:     req.OrderID,
		PaymentID:   req.PaymentID,
		Signature:   req.Signature,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
	})
	if err != nil {
		h.recorder.RecordVerification(outcomeOf(err))
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.recorder.RecordVerification("success")
	utils.SuccessResponse(c, http.StatusOK, "payment verified", result)
}

// outcomeOf labels a failure by its reason code, falling back to the error type.
func outcomeOf(err error) string {
	if reason := errors.ReasonOf(err); reason != "" {
		return strings.ToLower(reason)
	}
	if appErr := errors.GetAppError(err); appErr != nil {
		return string(appErr.Type)
	}
	return string(errors.ErrorTypeInternal)
}
