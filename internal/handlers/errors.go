// internal/handlers/errors.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/commission-engine/internal/i18n"
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

// respondError maps a service error kind onto the response envelope.
func respondError(c *gin.Context, err error) {
	switch services.KindOf(err) {
	case services.KindValidation:
		if details := utils.GetValidationErrors(err); len(details) > 0 {
			utils.ValidationErrorResponse(c, err.Error(), details)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case services.KindNotFound:
		utils.NotFoundResponse(c, err.Error())
	case services.KindConflict:
		utils.ConflictResponse(c, err.Error())
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "request body"), err.Error())
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

const dateLayout = "2006-01-02"

// parseDateQuery accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	t, _, ok := parseDateParam(c, name)
	return t, ok
}

// parseDateUpperBound is parseDateQuery for inclusive upper bounds: a plain
// date covers the whole day, up to the last microsecond before midnight.
func parseDateUpperBound(c *gin.Context, name string) (*time.Time, bool) {
	t, dateOnly, ok := parseDateParam(c, name)
	if t != nil && dateOnly {
		end := t.AddDate(0, 0, 1).Add(-time.Microsecond)
		return &end, ok
	}
	return t, ok
}

func parseDateParam(c *gin.Context, name string) (*time.Time, bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, false, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, false, true
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, true, true
	}
	utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
	return nil, false, false
}

func actorFrom(c *gin.Context) string {
	userID, _ := utils.GetUserIDFromContext(c)
	return userID
}

// scopeVendor narrows a vendor token to its own vendor. A vendor token asking
// for another vendor is refused; operators see whatever they asked for.
func scopeVendor(c *gin.Context, requested string) (string, bool) {
	role, _ := utils.GetRoleFromContext(c)
	if role != string(models.UserRoleVendor) {
		return requested, true
	}
	own, ok := utils.GetVendorIDFromContext(c)
	if !ok || (requested != "" && requested != own) {
		utils.ForbiddenResponse(c, "")
		return "", false
	}
	return own, true
}

func paginated(c *gin.Context, data interface{}, total int64, params utils.PaginationParams) {
	utils.PaginatedResponse(c, utils.CreatePaginationResult(data, int(total), params))
}
