// internal/handlers/adjustment.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/commission-engine/internal/i18n"
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

type AdjustmentHandler struct {
	adjustmentService *services.AdjustmentService
}

func NewAdjustmentHandler(adjustmentService *services.AdjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{adjustmentService: adjustmentService}
}

// GET /v1/adjustments
func (h *AdjustmentHandler) GetAdjustments(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AdjustmentFilter{
		PaginationParams: params,
		Status:           models.AdjustmentStatus(c.Query("status")),
		AdjustmentType:   models.AdjustmentType(c.Query("adjustment_type")),
	}
	if raw := c.Query("commission_id"); raw != "" {
		commissionID, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "commission_id"), nil)
			return
		}
		filter.CommissionID = &commissionID
	}

	adjustments, total, err := h.adjustmentService.GetAdjustments(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, adjustments, total, params)
}

// GET /v1/adjustments/:id
func (h *AdjustmentHandler) GetAdjustment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	adjustment, err := h.adjustmentService.GetAdjustment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, adjustment)
}

// POST /v1/adjustments
func (h *AdjustmentHandler) CreateAdjustment(c *gin.Context) {
	var req services.CreateAdjustmentRequest
	if !bindJSON(c, &req) {
		return
	}

	adjustment, err := h.adjustmentService.CreateAdjustment(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.CreatedResponse(c, adjustment)
}

// POST /v1/adjustments/:id/approve
func (h *AdjustmentHandler) ApproveAdjustment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	adjustment, err := h.adjustmentService.ApproveAdjustment(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, adjustment, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyAdjustmentApproved),
	})
}

// POST /v1/adjustments/:id/reject
func (h *AdjustmentHandler) RejectAdjustment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RejectAdjustmentRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	adjustment, err := h.adjustmentService.RejectAdjustment(c.Request.Context(), id, actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, adjustment, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyAdjustmentRejected),
	})
}
