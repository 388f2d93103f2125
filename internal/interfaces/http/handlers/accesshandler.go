package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	accessUsecases "github.com/secforge/billing/internal/application/access/usecases"
	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/interfaces/http/middleware"
	"github.com/secforge/billing/internal/shared/logger"
	"github.com/secforge/billing/internal/shared/utils"
)

const (
	decisionPathAtomic        = "atomic"
	decisionPathReconstructed = "reconstructed"
)

// AccessHandler serves access decisions and the reads they are built from.
type AccessHandler struct {
	decideUC      DecideAccessExecutor
	reconstructUC DecideAccessExecutor
	reads         AccessReader
	recorder      DecisionRecorder
	logger        logger.Interface
}

func NewAccessHandler(
	decideUC DecideAccessExecutor,
	reconstructUC DecideAccessExecutor,
	reads AccessReader,
	recorder DecisionRecorder,
	logger logger.Interface,
) *AccessHandler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &AccessHandler{
		decideUC:      decideUC,
		reconstructUC: reconstructUC,
		reads:         reads,
		recorder:      recorder,
		logger:        logger,
	}
}

// Decide handles GET /access/:content_type/:content_id
func (h *AccessHandler) Decide(c *gin.Context) {
	h.decide(c, h.decideUC, decisionPathAtomic)
}

// Reconstruct handles GET /access/:content_type/:content_id/reconstruct
func (h *AccessHandler) Reconstruct(c *gin.Context) {
	h.decide(c, h.reconstructUC, decisionPathReconstructed)
}

func (h *AccessHandler) decide(c *gin.Context, uc DecideAccessExecutor, path string) {
	query := accessUsecases.DecideAccessQuery{
		UserID:      middleware.UserID(c),
		ContentType: c.Param("content_type"),
		ContentID:   c.Param("content_id"),
	}

	decision, err := uc.Execute(c.Request.Context(), query)
	if err != nil {
		logger.FromContext(c.Request.Context(), h.logger).Warnw("access decision failed", "path", path, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.recorder.RecordDecision(path, string(decision.Reason))
	utils.SuccessResponse(c, http.StatusOK, "", decisionResponse(decision))
}

// DecisionResponse adds the derived priced flag to a decision.
type DecisionResponse struct {
	access.Decision
	Priced bool `json:"priced"`
}

func decisionResponse(d *access.Decision) DecisionResponse {
	return DecisionResponse{Decision: *d, Priced: d.Priced()}
}

// GetPlan handles GET /me/plan
func (h *AccessHandler) GetPlan(c *gin.Context) {
	view, err := h.reads.GetPlan(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

// GetRule handles GET /catalog/:content_type/:content_id
func (h *AccessHandler) GetRule(c *gin.Context) {
	view, err := h.reads.GetRule(c.Request.Context(), c.Param("content_type"), c.Param("content_id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

// GetGrants handles GET /me/grants/:content_type/:content_id
func (h *AccessHandler) GetGrants(c *gin.Context) {
	view, err := h.reads.GetGrants(c.Request.Context(), middleware.UserID(c), c.Param("content_type"), c.Param("content_id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}
