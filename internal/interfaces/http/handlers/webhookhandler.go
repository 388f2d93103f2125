package handlers

import (
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	webhookUsecases "github.com/secforge/billing/internal/application/webhook/usecases"
	"github.com/secforge/billing/internal/shared/errors"
	"github.com/secforge/billing/internal/shared/logger"
	"github.com/secforge/billing/internal/shared/utils"
)

// MaxWebhookBodyBytes caps provider payloads.
const MaxWebhookBodyBytes = 1 << 20

// WebhookResponse is what the provider sees. Processing failures are still
// acknowledged; they are recorded in the event ledger.
type WebhookResponse struct {
	Received   bool   `json:"received"`
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type,omitempty"`
	Result     string `json:"result"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Duplicate  bool   `json:"duplicate"`
}

type WebhookHandler struct {
	webhookUC       WebhookExecutor
	providers       map[string]bool
	signatureHeader string
	eventIDHeader   string
	logger          logger.Interface
}

func NewWebhookHandler(
	webhookUC WebhookExecutor,
	providers []string,
	signatureHeader, eventIDHeader string,
	logger logger.Interface,
) *WebhookHandler {
	allowed := make(map[string]bool, len(providers))
	for _, p := range providers {
		allowed[strings.ToLower(p)] = true
	}
	return &WebhookHandler{
		webhookUC:       webhookUC,
		providers:       allowed,
		signatureHeader: signatureHeader,
		eventIDHeader:   eventIDHeader,
		logger:          logger,
	}
}

// Handle handles POST /webhooks/:provider. The body is read raw; the
// signature covers the exact bytes received.
func (h *WebhookHandler) Handle(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	if !h.providers[provider] {
		utils.ErrorResponse(c, http.StatusNotFound, "unknown payment provider")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "webhook body too large")
			return
		}
		utils.ErrorResponseWithError(c, errors.NewBadRequestError("failed to read webhook body"))
		return
	}

	result, err := h.webhookUC.Execute(c.Request.Context(), webhookUsecases.WebhookCommand{
		Provider:      provider,
		RawBody:       body,
		Signature:     c.GetHeader(h.signatureHeader),
		EventIDHeader: c.GetHeader(h.eventIDHeader),
	})
	if err != nil {
		// Unrecorded deliveries answer 5xx so the provider retries them.
		logger.FromContext(c.Request.Context(), h.logger).Errorw("webhook not recorded", "provider", provider, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", WebhookResponse{
		Received:   true,
		EventID:    result.EventID,
		EventType:  result.EventType,
		Result:     result.Result,
		Diagnostic: result.Diagnostic,
		Duplicate:  result.Duplicate,
	})
}
