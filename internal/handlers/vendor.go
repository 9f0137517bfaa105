// internal/handlers/vendor.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/commission-engine/internal/i18n"
	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

// VendorHandler serves the per-vendor payout and reporting endpoints.
type VendorHandler struct {
	payoutService       *services.PayoutService
	statementService    *services.StatementService
	paymentTermsService *services.PaymentTermsService
}

func NewVendorHandler(payoutService *services.PayoutService, statementService *services.StatementService, paymentTermsService *services.PaymentTermsService) *VendorHandler {
	return &VendorHandler{
		payoutService:       payoutService,
		statementService:    statementService,
		paymentTermsService: paymentTermsService,
	}
}

// GET /v1/vendors/:vendor_id/balance
func (h *VendorHandler) GetBalance(c *gin.Context) {
	vendorID, ok := scopeVendor(c, c.Param("vendor_id"))
	if !ok {
		return
	}

	balance, err := h.payoutService.GetVendorBalance(c.Request.Context(), vendorID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, balance)
}

// POST /v1/vendors/:vendor_id/payouts
func (h *VendorHandler) SettlePayout(c *gin.Context) {
	settlement, err := h.payoutService.SettleVendorPayout(c.Request.Context(), c.Param("vendor_id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, settlement, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyPayoutSettled),
	})
}

// POST /v1/vendors/:vendor_id/statements?from=&to=
func (h *VendorHandler) ExportStatement(c *gin.Context) {
	vendorID, ok := scopeVendor(c, c.Param("vendor_id"))
	if !ok {
		return
	}
	from, to, ok := reportWindow(c)
	if !ok {
		return
	}

	export, err := h.statementService.ExportVendorStatement(c.Request.Context(), vendorID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.CreatedResponse(c, export)
}

// GET /v1/vendors/:vendor_id/incentives?from=&to=
func (h *VendorHandler) EvaluateIncentives(c *gin.Context) {
	vendorID, ok := scopeVendor(c, c.Param("vendor_id"))
	if !ok {
		return
	}
	from, to, ok := reportWindow(c)
	if !ok {
		return
	}

	results, err := h.paymentTermsService.EvaluateIncentives(c.Request.Context(), vendorID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, results)
}

// reportWindow reads from/to, defaulting to the current calendar month.
func reportWindow(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	fromParam, ok := parseDateQuery(c, "from")
	if !ok {
		return from, to, false
	}
	toParam, ok := parseDateQuery(c, "to")
	if !ok {
		return from, to, false
	}
	if fromParam != nil {
		from = *fromParam
	}
	if toParam != nil {
		to = *toParam
	}
	return from, to, true
}
