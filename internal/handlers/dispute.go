// internal/handlers/dispute.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

type DisputeHandler struct {
	disputeService *services.DisputeService
}

func NewDisputeHandler(disputeService *services.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService}
}

// GET /v1/disputes
func (h *DisputeHandler) ListDisputes(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	vendorID, ok := scopeVendor(c, c.Query("vendor_id"))
	if !ok {
		return
	}

	disputes, total, err := h.disputeService.ListDisputes(c.Request.Context(), services.DisputeFilter{
		PaginationParams: params,
		VendorID:         vendorID,
		Status:           models.DisputeStatus(c.Query("status")),
		PriorityLevel:    models.DisputePriority(c.Query("priority_level")),
		AssignedTo:       c.Query("assigned_to"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, disputes, total, params)
}

// GET /v1/disputes/:id
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dispute, err := h.disputeService.GetDispute(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, ok := scopeVendor(c, dispute.VendorID); !ok {
		return
	}
	utils.SuccessResponse(c, dispute)
}

// POST /v1/disputes
// Vendors may open disputes against their own commissions.
func (h *DisputeHandler) CreateDispute(c *gin.Context) {
	var req services.CreateDisputeRequest
	if !bindJSON(c, &req) {
		return
	}
	vendorID, ok := scopeVendor(c, req.VendorID)
	if !ok {
		return
	}
	req.VendorID = vendorID

	dispute, err := h.disputeService.CreateDispute(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.CreatedResponse(c, dispute)
}

// PUT /v1/disputes/:id/assign
func (h *DisputeHandler) AssignDispute(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.AssignDisputeRequest
	if !bindJSON(c, &req) {
		return
	}

	dispute, err := h.disputeService.AssignDispute(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, dispute)
}

// POST /v1/disputes/:id/review
func (h *DisputeHandler) StartReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dispute, err := h.disputeService.StartReview(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, dispute)
}

// POST /v1/disputes/:id/escalate
func (h *DisputeHandler) EscalateDispute(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dispute, err := h.disputeService.EscalateDispute(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, dispute)
}

// POST /v1/disputes/:id/resolve
func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ResolveDisputeRequest
	if !bindJSON(c, &req) {
		return
	}

	dispute, err := h.disputeService.ResolveDispute(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, dispute)
}

// POST /v1/disputes/:id/reject
func (h *DisputeHandler) RejectDispute(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RejectDisputeRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	dispute, err := h.disputeService.RejectDispute(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, dispute)
}
