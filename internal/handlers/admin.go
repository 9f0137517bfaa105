// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/commission-engine/internal/i18n"
	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

type AdminHandler struct {
	adminService        *services.AdminService
	notificationService *services.NotificationService
}

func NewAdminHandler(adminService *services.AdminService, notificationService *services.NotificationService) *AdminHandler {
	return &AdminHandler{
		adminService:        adminService,
		notificationService: notificationService,
	}
}

// GET /v1/admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AuditLogFilter{
		PaginationParams: params,
		ActorID:          c.Query("actor_id"),
		Action:           c.Query("action"),
		ResourceType:     c.Query("resource_type"),
	}
	if raw := c.Query("resource_id"); raw != "" {
		resourceID, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "resource_id"), nil)
			return
		}
		filter.ResourceID = &resourceID
	}
	var ok bool
	if filter.CreatedAfter, ok = parseDateQuery(c, "created_after"); !ok {
		return
	}
	if filter.CreatedBefore, ok = parseDateQuery(c, "created_before"); !ok {
		return
	}

	logs, total, err := h.adminService.GetAuditLogs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, logs, total, params)
}

// GET /v1/admin/notifications
func (h *AdminHandler) GetNotifications(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	notifications, total, err := h.notificationService.ListNotifications(c.Request.Context(), services.NotificationFilter{
		PaginationParams: params,
		Status:           c.Query("status"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, notifications, total, params)
}

// PUT /v1/admin/notifications/:id/read
func (h *AdminHandler) MarkNotificationRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	notification, err := h.notificationService.MarkNotificationRead(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, notification)
}
