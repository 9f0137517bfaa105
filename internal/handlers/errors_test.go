package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.Error{Op: "op", Kind: services.KindValidation, Reason: "bad"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", &services.Error{Op: "op", Kind: services.KindNotFound, Reason: "missing"}, http.StatusNotFound, "NOT_FOUND"},
		{"conflict", &services.Error{Op: "op", Kind: services.KindConflict, Reason: "terminal"}, http.StatusConflict, "CONFLICT"},
		{"persistence", &services.Error{Op: "op", Kind: services.KindPersistence, Reason: "db"}, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"foreign", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newContext("/")
			respondError(c, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}
}

func TestRespondErrorHidesPersistenceDetail(t *testing.T) {
	c, w := newContext("/")
	respondError(c, &services.Error{Op: "op", Kind: services.KindPersistence, Reason: "database error", Err: errors.New("password authentication failed")})
	assert.NotContains(t, w.Body.String(), "password")
}

func TestParseDateQuery(t *testing.T) {
	c, _ := newContext("/?from=2026-03-01&to=2026-03-02T10:00:00Z")
	from, ok := parseDateQuery(c, "from")
	require.True(t, ok)
	assert.Equal(t, "2026-03-01", from.Format("2006-01-02"))

	to, ok := parseDateQuery(c, "to")
	require.True(t, ok)
	assert.Equal(t, 10, to.Hour())

	missing, ok := parseDateQuery(c, "since")
	assert.True(t, ok)
	assert.Nil(t, missing)

	c, w := newContext("/?from=tomorrow")
	_, ok = parseDateQuery(c, "from")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseDateUpperBound(t *testing.T) {
	c, _ := newContext("/?date_to=2026-03-01&until=2026-03-01T10:00:00Z")

	end, ok := parseDateUpperBound(c, "date_to")
	require.True(t, ok)
	assert.True(t, end.After(time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)))
	assert.True(t, end.Before(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

	exact, ok := parseDateUpperBound(c, "until")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), exact.UTC())
}

func TestScopeVendor(t *testing.T) {
	c, _ := newContext("/")
	c.Set("role", "admin")
	vendorID, ok := scopeVendor(c, "V2")
	assert.True(t, ok)
	assert.Equal(t, "V2", vendorID)

	c, _ = newContext("/")
	c.Set("role", "vendor")
	c.Set("vendor_id", "V1")
	vendorID, ok = scopeVendor(c, "")
	assert.True(t, ok)
	assert.Equal(t, "V1", vendorID, "vendors default to their own rows")

	c, w := newContext("/")
	c.Set("role", "vendor")
	c.Set("vendor_id", "V1")
	_, ok = scopeVendor(c, "V2")
	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportWindowDefaultsToCurrentMonth(t *testing.T) {
	c, _ := newContext("/")
	from, to, ok := reportWindow(c)
	require.True(t, ok)
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, from.AddDate(0, 1, 0), to)
}
