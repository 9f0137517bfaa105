// internal/handlers/commission.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/commission-engine/internal/i18n"
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

type CommissionHandler struct {
	commissionService *services.CommissionService
}

func NewCommissionHandler(commissionService *services.CommissionService) *CommissionHandler {
	return &CommissionHandler{commissionService: commissionService}
}

// GET /v1/commissions
func (h *CommissionHandler) ListCommissions(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	vendorID, ok := scopeVendor(c, c.Query("vendor_id"))
	if !ok {
		return
	}
	filter := services.CommissionFilter{
		PaginationParams: params,
		VendorID:         vendorID,
		Status:           models.CommissionStatus(c.Query("status")),
		PaymentStatus:    models.PaymentStatus(c.Query("payment_status")),
		Category:         c.Query("category"),
	}
	if filter.DateFrom, ok = parseDateQuery(c, "date_from"); !ok {
		return
	}
	if filter.DateTo, ok = parseDateUpperBound(c, "date_to"); !ok {
		return
	}

	records, total, err := h.commissionService.ListCommissions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, records, total, params)
}

// GET /v1/commissions/:id
func (h *CommissionHandler) GetCommission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := h.commissionService.GetCommission(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if record == nil {
		utils.NotFoundResponse(c, "")
		return
	}
	if _, ok := scopeVendor(c, record.VendorID); !ok {
		return
	}
	utils.SuccessResponse(c, record)
}

// POST /v1/commissions
func (h *CommissionHandler) CreateCommission(c *gin.Context) {
	var req services.CreateCommissionRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.commissionService.CreateCommission(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.CreatedResponse(c, record)
}

// POST /v1/commissions/bulk
func (h *CommissionHandler) BulkCreateCommissions(c *gin.Context) {
	var reqs []services.CreateCommissionRequest
	if !bindJSON(c, &reqs) {
		return
	}

	records, err := h.commissionService.BulkCreateCommissions(c.Request.Context(), actorFrom(c), reqs)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.CreatedResponse(c, records)
}

// PUT /v1/commissions/:id
func (h *CommissionHandler) UpdateCommission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateCommissionRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.commissionService.UpdateCommission(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, record)
}

// PUT /v1/commissions/bulk
func (h *CommissionHandler) BulkUpdateCommissions(c *gin.Context) {
	var items []services.BulkUpdateItem
	if !bindJSON(c, &items) {
		return
	}

	records, err := h.commissionService.BulkUpdateCommissions(c.Request.Context(), actorFrom(c), items)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, records)
}

// DELETE /v1/commissions/:id
func (h *CommissionHandler) DeleteCommission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.commissionService.DeleteCommission(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyCommissionDeleted),
	})
}
