// internal/handlers/analytics.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/commission-engine/internal/i18n"
	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

type RollupRequest struct {
	Date string `json:"date"`
}

// GET /v1/analytics
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	vendorID, ok := scopeVendor(c, c.Query("vendor_id"))
	if !ok {
		return
	}
	filter := services.AnalyticsFilter{PaginationParams: params, VendorID: vendorID}
	if filter.DateFrom, ok = parseDateQuery(c, "date_from"); !ok {
		return
	}
	if filter.DateTo, ok = parseDateQuery(c, "date_to"); !ok {
		return
	}

	rows, total, err := h.analyticsService.GetAnalytics(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, rows, total, params)
}

// GET /v1/analytics/dashboard
func (h *AnalyticsHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.analyticsService.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, stats)
}

// GET /v1/analytics/vendors/:vendor_id
func (h *AnalyticsHandler) GetVendorSummary(c *gin.Context) {
	vendorID, ok := scopeVendor(c, c.Param("vendor_id"))
	if !ok {
		return
	}

	summary, err := h.analyticsService.GetVendorSummary(c.Request.Context(), vendorID)
	if err != nil {
		respondError(c, err)
		return
	}
	if summary == nil {
		utils.NotFoundResponse(c, "")
		return
	}
	utils.SuccessResponse(c, summary)
}

// POST /v1/analytics/rollup
// Recomputes one day; defaults to yesterday (UTC).
func (h *AnalyticsHandler) RollupDailyAnalytics(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req RollupRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	day := time.Now().UTC().AddDate(0, 0, -1)
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "date"), err.Error())
			return
		}
		day = parsed
	}

	rows, err := h.analyticsService.RollupDailyAnalytics(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, rows, gin.H{
		"message": i18n.T(lang, i18n.KeyAnalyticsRolledUp),
		"date":    day.Format("2006-01-02"),
	})
}
