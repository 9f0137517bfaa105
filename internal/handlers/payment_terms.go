// internal/handlers/payment_terms.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

type PaymentTermsHandler struct {
	paymentTermsService *services.PaymentTermsService
}

func NewPaymentTermsHandler(paymentTermsService *services.PaymentTermsService) *PaymentTermsHandler {
	return &PaymentTermsHandler{paymentTermsService: paymentTermsService}
}

// GET /v1/payment-terms?vendor_id=
func (h *PaymentTermsHandler) GetPaymentTerms(c *gin.Context) {
	vendorID, ok := scopeVendor(c, c.Query("vendor_id"))
	if !ok {
		return
	}

	terms, err := h.paymentTermsService.GetPaymentTerms(c.Request.Context(), vendorID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, terms)
}

// PUT /v1/payment-terms
func (h *PaymentTermsHandler) UpsertPaymentTerms(c *gin.Context) {
	var req services.UpsertPaymentTermsRequest
	if !bindJSON(c, &req) {
		return
	}

	terms, err := h.paymentTermsService.UpsertPaymentTerms(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, terms)
}

// GET /v1/incentives?active_at=
func (h *PaymentTermsHandler) ListIncentivePrograms(c *gin.Context) {
	activeAt, ok := parseDateQuery(c, "active_at")
	if !ok {
		return
	}

	programs, err := h.paymentTermsService.ListIncentivePrograms(c.Request.Context(), activeAt)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, programs)
}

// POST /v1/incentives
func (h *PaymentTermsHandler) CreateIncentiveProgram(c *gin.Context) {
	var req services.CreateIncentiveProgramRequest
	if !bindJSON(c, &req) {
		return
	}

	program, err := h.paymentTermsService.CreateIncentiveProgram(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.CreatedResponse(c, program)
}
