// internal/handlers/revenue_model.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/commission-engine/internal/i18n"
	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

type RevenueModelHandler struct {
	revenueModelService *services.RevenueModelService
}

func NewRevenueModelHandler(revenueModelService *services.RevenueModelService) *RevenueModelHandler {
	return &RevenueModelHandler{revenueModelService: revenueModelService}
}

// GET /v1/revenue-models
func (h *RevenueModelHandler) ListRevenueModels(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := services.RevenueModelFilter{PaginationParams: params}

	if category, ok := c.GetQuery("category"); ok {
		filter.Category = &category
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "active"), nil)
			return
		}
		filter.Active = &active
	}

	revenueModels, total, err := h.revenueModelService.ListRevenueModels(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, revenueModels, total, params)
}

// GET /v1/revenue-models/effective?category=&at=
func (h *RevenueModelHandler) GetEffectiveModel(c *gin.Context) {
	at, ok := parseDateQuery(c, "at")
	if !ok {
		return
	}
	when := time.Now().UTC()
	if at != nil {
		when = *at
	}

	model, err := h.revenueModelService.FindEffectiveModel(c.Request.Context(), c.Query("category"), when)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, model)
}

// GET /v1/revenue-models/:id
func (h *RevenueModelHandler) GetRevenueModel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	model, err := h.revenueModelService.GetRevenueModel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, model)
}

// POST /v1/revenue-models
func (h *RevenueModelHandler) CreateRevenueModel(c *gin.Context) {
	var req services.CreateRevenueModelRequest
	if !bindJSON(c, &req) {
		return
	}

	model, err := h.revenueModelService.CreateRevenueModel(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.CreatedResponse(c, model)
}

// POST /v1/revenue-models/:id/close
func (h *RevenueModelHandler) CloseRevenueModel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CloseRevenueModelRequest
	if !bindJSON(c, &req) {
		return
	}

	model, err := h.revenueModelService.CloseRevenueModel(c.Request.Context(), actorFrom(c), id, req.EffectiveTo)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, model)
}

// POST /v1/revenue-models/:id/deactivate
func (h *RevenueModelHandler) DeactivateRevenueModel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	model, err := h.revenueModelService.DeactivateRevenueModel(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, model)
}
