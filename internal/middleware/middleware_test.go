package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/commission-engine/internal/metrics"
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, userID, role, vendorID string) http.Header {
	token, err := utils.GenerateJWT(userID, role, vendorID, "test", time.Hour)
	require.NoError(t, err)
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestAuthRequiredSetsClaims(t *testing.T) {
	utils.SetJWTSecret("middleware-test-secret")

	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		userID, _ := utils.GetUserIDFromContext(c)
		role, _ := utils.GetRoleFromContext(c)
		vendorID, _ := utils.GetVendorIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role, "vendor_id": vendorID})
	})

	w := serve(r, http.MethodGet, "/me", bearer(t, "u-1", "vendor", "V1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u-1","role":"vendor","vendor_id":"V1"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/me", http.Header{"Authorization": []string{"Token abc"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged := bearer(t, "u-1", "admin", "")
	utils.SetJWTSecret("rotated")
	w = serve(r, http.MethodGet, "/me", forged)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	utils.SetJWTSecret("middleware-test-secret")
}

func TestRoleRequired(t *testing.T) {
	utils.SetJWTSecret("middleware-test-secret")

	r := gin.New()
	r.GET("/ops", AuthRequired(), OperatorRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/admin", AuthRequired(), RoleRequired(models.UserRoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/ops", bearer(t, "f", "finance", "")).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/ops", bearer(t, "v", "vendor", "V1")).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", bearer(t, "f", "finance", "")).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/admin", bearer(t, "a", "admin", "")).Code)
}

func TestRateLimiterPerCaller(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)

	r := gin.New()
	r.GET("/", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", nil).Code)
	}
	w := serve(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	other := http.Header{"X-Forwarded-For": []string{"203.0.113.9"}}
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", other).Code)
}

func TestRateLimiterKeysAuthenticatedCallersByUser(t *testing.T) {
	utils.SetJWTSecret("middleware-test-secret")
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)

	r := gin.New()
	r.GET("/", AuthRequired(), limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	first := bearer(t, "finance-1", "finance", "")
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", first).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/", first).Code)

	second := bearer(t, "finance-2", "finance", "")
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", second).Code, "same ip, different user")
}

func TestResolveLanguage(t *testing.T) {
	assert.Equal(t, "zh_TW", resolveLanguage("zh-TW,zh;q=0.9,en;q=0.8", "en"))
	assert.Equal(t, "en", resolveLanguage("en-GB", "zh_TW"))
	assert.Equal(t, "zh_TW", resolveLanguage("", "zh_TW"))
	assert.Equal(t, "en", resolveLanguage("fr-FR", "en"))
	assert.Equal(t, "zh_TW", resolveLanguage("en;q=0.1, zh-TW;q=0.9", "en"))
	assert.Equal(t, "zh_TW", resolveLanguage("fr;q=1.0, zh-TW;q=0.8", "en"))
	assert.Equal(t, "zh_TW", resolveLanguage("zh-Hant-TW", "en"))
	assert.Equal(t, "zh_TW", resolveLanguage("zh_TW", "en"))
	assert.Equal(t, "zh_TW", resolveLanguage(";;;", "zh_TW"))
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/v1/commissions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/v1/commissions/abc", nil)
	serve(r, http.MethodGet, "/v1/commissions/def", nil)
	serve(r, http.MethodGet, "/nowhere", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/commissions/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://admin.example.com"}))
	r.GET("/v1/commissions", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodOptions, "/v1/commissions", http.Header{
		"Origin":                        []string{"https://admin.example.com"},
		"Access-Control-Request-Method": []string{"GET"},
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodGet, "/v1/commissions", http.Header{"Origin": []string{"https://evil.example.com"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
