package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/database/dbtest"
	"github.com/javajoker/commission-engine/internal/i18n"
	"github.com/javajoker/commission-engine/internal/metrics"
	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

type exportStub struct{}

func (exportStub) Upload(_ context.Context, key, contentType string, body []byte) (*services.UploadResult, error) {
	return &services.UploadResult{URL: "mem://" + key, Key: key, Size: int64(len(body)), MimeType: contentType}, nil
}

type RouterTestSuite struct {
	suite.Suite
	db     *gorm.DB
	engine *gin.Engine

	adminToken   string
	financeToken string
	vendorToken  string
}

func (suite *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize("en"))
}

func (suite *RouterTestSuite) SetupTest() {
	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{AllowedOrigins: []string{"*"}},
		Database:    config.DatabaseConfig{QueryTimeout: 5 * time.Second},
		JWT:         config.JWTConfig{SecretKey: "router-test-secret", Issuer: "test"},
		Redis:       config.RedisConfig{CacheTTL: time.Minute},
		Commission:  config.CommissionConfig{DefaultCurrency: "USD", DefaultMinimumPayout: 10},
		Metrics:     config.MetricsConfig{Enabled: true, Path: "/metrics"},
		I18n:        config.I18nConfig{DefaultLocale: "en"},
	}

	suite.db = dbtest.New(suite.T())
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := NewServices(suite.db, cfg, nil, m, exportStub{})
	suite.engine = Initialize(suite.db, cfg, svc, m, reg)

	suite.adminToken = suite.token("admin-1", "admin", "")
	suite.financeToken = suite.token("finance-1", "finance", "")
	suite.vendorToken = suite.token("vendor-user-1", "vendor", "V1")

	w := suite.do(http.MethodPost, "/v1/revenue-models", suite.adminToken, map[string]interface{}{
		"model_name":     "Standard 10%",
		"model_type":     "percentage",
		"base_rate":      "10",
		"effective_from": "2025-01-01T00:00:00Z",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (suite *RouterTestSuite) token(userID, role, vendorID string) string {
	token, err := utils.GenerateJWT(userID, role, vendorID, "test", time.Hour)
	suite.Require().NoError(err)
	return token
}

func (suite *RouterTestSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.engine.ServeHTTP(w, req)
	return w
}

func (suite *RouterTestSuite) decode(w *httptest.ResponseRecorder, data interface{}) envelope {
	var env envelope
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		suite.Require().NoError(json.Unmarshal(env.Data, data))
	}
	return env
}

func (suite *RouterTestSuite) assertAmount(want string, got interface{}) {
	s, ok := got.(string)
	suite.Require().True(ok, "amount %v is not a JSON string", got)
	assert.True(suite.T(), decimal.RequireFromString(want).Equal(decimal.RequireFromString(s)), "want %s, got %s", want, s)
}

func (suite *RouterTestSuite) createCommission(vendorID, base string) map[string]interface{} {
	w := suite.do(http.MethodPost, "/v1/commissions", suite.adminToken, map[string]interface{}{
		"vendor_id":        vendorID,
		"commission_type":  "percentage",
		"base_amount":      base,
		"transaction_date": "2026-03-01T12:00:00Z",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var record map[string]interface{}
	suite.decode(w, &record)
	return record
}

func (suite *RouterTestSuite) TestHealth() {
	w := suite.do(http.MethodGet, "/health", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "healthy")
}

func (suite *RouterTestSuite) TestMetricsEndpoint() {
	suite.do(http.MethodGet, "/health", "", nil)

	w := suite.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "http_requests_total")
}

func (suite *RouterTestSuite) TestAuthentication() {
	w := suite.do(http.MethodGet, "/v1/commissions", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodGet, "/v1/commissions", "not-a-jwt", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	env := suite.decode(w, nil)
	assert.Equal(suite.T(), "UNAUTHORIZED", env.Error.Code)

	w = suite.do(http.MethodGet, "/v1/commissions", suite.token("u", "vendor", ""), nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code, "vendor tokens must carry a vendor id")

	w = suite.do(http.MethodGet, "/v1/commissions", suite.token("u", "superuser", ""), nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *RouterTestSuite) TestCommissionLifecycle() {
	record := suite.createCommission("V1", "250.75")
	suite.assertAmount("25.08", record["commission_amount"])
	assert.Equal(suite.T(), "pending", record["status"])
	id := record["id"].(string)

	w := suite.do(http.MethodGet, "/v1/commissions/"+id, suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodPut, "/v1/commissions/"+id, suite.adminToken, map[string]interface{}{"status": "approved"})
	assert.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	w = suite.do(http.MethodPut, "/v1/commissions/"+id, suite.adminToken, map[string]interface{}{"status": "rejected"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code, "approved cannot move to rejected")

	w = suite.do(http.MethodDelete, "/v1/commissions/"+id, suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	env := suite.decode(w, nil)
	assert.True(suite.T(), env.Success)

	w = suite.do(http.MethodGet, "/v1/commissions/"+id, suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *RouterTestSuite) TestCommissionDateFilterCoversWholeDay() {
	suite.createCommission("V1", "100")

	var records []map[string]interface{}
	w := suite.do(http.MethodGet, "/v1/commissions?date_from=2026-03-01&date_to=2026-03-01", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &records)
	assert.Len(suite.T(), records, 1)

	records = nil
	w = suite.do(http.MethodGet, "/v1/commissions?date_to=2026-03-01T11:00:00Z", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &records)
	assert.Empty(suite.T(), records)

	records = nil
	w = suite.do(http.MethodGet, "/v1/commissions?date_to=2026-02-28", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &records)
	assert.Empty(suite.T(), records)
}

func (suite *RouterTestSuite) TestCommissionErrorMapping() {
	w := suite.do(http.MethodPost, "/v1/commissions", suite.adminToken, map[string]interface{}{
		"commission_type": "percentage",
		"base_amount":     "-5",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	env := suite.decode(w, nil)
	assert.Equal(suite.T(), "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(suite.T(), string(env.Error.Details), "vendor_id")

	w = suite.do(http.MethodGet, "/v1/commissions/not-a-uuid", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPut, "/v1/commissions/00000000-0000-0000-0000-000000000001", suite.adminToken, map[string]interface{}{"notes": "x"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPost, "/v1/commissions", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *RouterTestSuite) TestBulkCreateReportsFailingIndex() {
	items := []map[string]interface{}{
		{"vendor_id": "V1", "commission_type": "percentage", "base_amount": "10"},
		{"vendor_id": "V1", "commission_type": "percentage"},
	}
	w := suite.do(http.MethodPost, "/v1/commissions/bulk", suite.adminToken, items)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "item 1")

	w = suite.do(http.MethodGet, "/v1/commissions", suite.adminToken, nil)
	var records []map[string]interface{}
	suite.decode(w, &records)
	assert.Empty(suite.T(), records)

	items[1]["base_amount"] = "20"
	w = suite.do(http.MethodPost, "/v1/commissions/bulk", suite.adminToken, items)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.decode(w, &records)
	assert.Len(suite.T(), records, 2)
}

func (suite *RouterTestSuite) TestVendorScoping() {
	own := suite.createCommission("V1", "100")
	other := suite.createCommission("V2", "100")

	w := suite.do(http.MethodGet, "/v1/commissions", suite.vendorToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var records []map[string]interface{}
	env := suite.decode(w, &records)
	suite.Require().Len(records, 1)
	assert.Equal(suite.T(), own["id"], records[0]["id"])
	assert.NotNil(suite.T(), env.Meta["pagination"])
	assert.Equal(suite.T(), "1", w.Header().Get("X-Count"))

	w = suite.do(http.MethodGet, "/v1/commissions?vendor_id=V2", suite.vendorToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodGet, "/v1/commissions/"+other["id"].(string), suite.vendorToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPost, "/v1/commissions", suite.vendorToken, map[string]interface{}{
		"vendor_id": "V1", "commission_type": "percentage", "base_amount": "1",
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodGet, "/v1/vendors/V2/balance", suite.vendorToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodGet, "/v1/adjustments", suite.vendorToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *RouterTestSuite) TestFinanceReadsButCannotWrite() {
	w := suite.do(http.MethodGet, "/v1/analytics/dashboard", suite.financeToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodPost, "/v1/adjustments", suite.financeToken, map[string]interface{}{})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *RouterTestSuite) TestAdjustmentApproval() {
	record := suite.createCommission("V1", "1000")

	w := suite.do(http.MethodPost, "/v1/adjustments", suite.adminToken, map[string]interface{}{
		"commission_id":    record["id"],
		"adjustment_type":  "correction",
		"corrected_amount": "120",
		"reason":           "contract rate",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var adjustment map[string]interface{}
	suite.decode(w, &adjustment)
	id := adjustment["id"].(string)

	w = suite.do(http.MethodPost, "/v1/adjustments/"+id+"/approve", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	env := suite.decode(w, &adjustment)
	assert.Equal(suite.T(), "approved", adjustment["status"])
	assert.Equal(suite.T(), "Adjustment approved", env.Meta["message"])

	w = suite.do(http.MethodPost, "/v1/adjustments/"+id+"/reject", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.do(http.MethodGet, "/v1/commissions/"+record["id"].(string), suite.adminToken, nil)
	var updated map[string]interface{}
	suite.decode(w, &updated)
	suite.assertAmount("120", updated["commission_amount"])

	w = suite.do(http.MethodGet, "/v1/adjustments?status=approved&commission_id="+record["id"].(string), suite.adminToken, nil)
	var list []map[string]interface{}
	suite.decode(w, &list)
	assert.Len(suite.T(), list, 1)

	w = suite.do(http.MethodGet, "/v1/admin/notifications?status=unread", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var notifications []map[string]interface{}
	suite.decode(w, &notifications)
	assert.NotEmpty(suite.T(), notifications)
}

func (suite *RouterTestSuite) TestAnalyticsEndpoints() {
	suite.createCommission("V1", "100")

	w := suite.do(http.MethodGet, "/v1/analytics/dashboard", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var stats map[string]interface{}
	suite.decode(w, &stats)
	assert.EqualValues(suite.T(), 1, stats["total_commissions"])

	w = suite.do(http.MethodGet, "/v1/analytics/dashboard", suite.vendorToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPost, "/v1/analytics/rollup", suite.adminToken, map[string]interface{}{"date": "2026-03-01"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var rows []map[string]interface{}
	suite.decode(w, &rows)
	assert.Len(suite.T(), rows, 1)

	w = suite.do(http.MethodPost, "/v1/analytics/rollup", suite.adminToken, map[string]interface{}{"date": "March 1"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodGet, "/v1/analytics/vendors/V1", suite.vendorToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/v1/analytics/vendors/V9", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.do(http.MethodGet, "/v1/analytics?date_from=yesterday", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *RouterTestSuite) TestDisputeFlow() {
	record := suite.createCommission("V1", "1000")

	w := suite.do(http.MethodPost, "/v1/disputes", suite.vendorToken, map[string]interface{}{
		"commission_id":  record["id"],
		"dispute_type":   "rate_mismatch",
		"description":    "contract says 12%",
		"dispute_amount": "100",
		"claimed_amount": "120",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var dispute map[string]interface{}
	suite.decode(w, &dispute)
	assert.Equal(suite.T(), "V1", dispute["vendor_id"])
	id := dispute["id"].(string)

	w = suite.do(http.MethodPost, "/v1/disputes/"+id+"/review", suite.vendorToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPost, "/v1/disputes/"+id+"/escalate", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodPost, "/v1/disputes/"+id+"/resolve", suite.adminToken, map[string]interface{}{
		"resolution_amount": "20",
		"create_adjustment": true,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &dispute)
	assert.Equal(suite.T(), "resolved", dispute["status"])
	assert.NotEmpty(suite.T(), dispute["adjustment_id"])

	w = suite.do(http.MethodPost, "/v1/disputes/"+id+"/reject", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.do(http.MethodGet, "/v1/disputes?status=resolved", suite.vendorToken, nil)
	var list []map[string]interface{}
	suite.decode(w, &list)
	assert.Len(suite.T(), list, 1)
}

func (suite *RouterTestSuite) TestRevenueModelEndpoints() {
	w := suite.do(http.MethodGet, "/v1/revenue-models?active=true", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var list []map[string]interface{}
	suite.decode(w, &list)
	suite.Require().Len(list, 1)
	id := list[0]["id"].(string)

	w = suite.do(http.MethodGet, "/v1/revenue-models/effective?at=2026-03-01", suite.financeToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodPost, "/v1/revenue-models", suite.adminToken, map[string]interface{}{
		"model_name":     "Overlap",
		"model_type":     "percentage",
		"base_rate":      "12",
		"effective_from": "2026-01-01T00:00:00Z",
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.do(http.MethodPost, "/v1/revenue-models/"+id+"/close", suite.adminToken, map[string]interface{}{
		"effective_to": "2026-06-01T00:00:00Z",
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())

	w = suite.do(http.MethodPost, "/v1/revenue-models/"+id+"/deactivate", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/v1/revenue-models/effective?at=2026-03-01", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.do(http.MethodGet, "/v1/revenue-models?active=maybe", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *RouterTestSuite) TestPaymentTermsAndPayout() {
	w := suite.do(http.MethodPut, "/v1/payment-terms", suite.adminToken, map[string]interface{}{
		"vendor_id":         "V1",
		"payout_frequency":  "weekly",
		"minimum_payout":    "5",
		"payout_delay_days": 0,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.do(http.MethodGet, "/v1/payment-terms", suite.vendorToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var terms map[string]interface{}
	suite.decode(w, &terms)
	assert.Equal(suite.T(), "weekly", terms["payout_frequency"])

	record := suite.createCommission("V1", "100")
	w = suite.do(http.MethodPut, "/v1/commissions/"+record["id"].(string), suite.adminToken, map[string]interface{}{"status": "approved"})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/v1/vendors/V1/balance", suite.vendorToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var balance map[string]interface{}
	suite.decode(w, &balance)
	suite.assertAmount("10", balance["approved_unpaid"])

	w = suite.do(http.MethodPost, "/v1/vendors/V1/payouts", suite.vendorToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPost, "/v1/vendors/V1/payouts", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var settlement map[string]interface{}
	env := suite.decode(w, &settlement)
	assert.EqualValues(suite.T(), 1, settlement["record_count"])
	assert.Equal(suite.T(), "Payout settled", env.Meta["message"])

	w = suite.do(http.MethodPost, "/v1/vendors/V1/payouts", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *RouterTestSuite) TestIncentivesAndStatements() {
	w := suite.do(http.MethodPost, "/v1/incentives", suite.adminToken, map[string]interface{}{
		"program_name":     "Spring push",
		"min_sales_amount": "50",
		"bonus_rate":       "20",
		"start_date":       "2026-01-01T00:00:00Z",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.do(http.MethodGet, "/v1/incentives?active_at=2026-03-01", suite.vendorToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var programs []map[string]interface{}
	suite.decode(w, &programs)
	assert.Len(suite.T(), programs, 1)

	w = suite.do(http.MethodGet, "/v1/vendors/V1/incentives?from=2026-03-01&to=2026-04-01", suite.vendorToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	suite.createCommission("V1", "100")
	w = suite.do(http.MethodPost, "/v1/vendors/V1/statements?from=2026-03-01&to=2026-04-01", suite.vendorToken, nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var export map[string]interface{}
	suite.decode(w, &export)
	assert.EqualValues(suite.T(), 1, export["record_count"])
	assert.True(suite.T(), strings.HasPrefix(export["url"].(string), "mem://statements/V1/"))
}

func (suite *RouterTestSuite) TestAuditLogs() {
	suite.createCommission("V1", "100")

	w := suite.do(http.MethodGet, "/v1/admin/audit-logs?resource_type=commission", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var logs []map[string]interface{}
	suite.decode(w, &logs)
	suite.Require().Len(logs, 1)
	assert.Equal(suite.T(), "commission.create", logs[0]["action"])

	w = suite.do(http.MethodGet, "/v1/admin/audit-logs", suite.financeToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *RouterTestSuite) TestLocalisedErrors() {
	req := httptest.NewRequest(http.MethodGet, "/v1/commissions", nil)
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9")
	w := httptest.NewRecorder()
	suite.engine.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	env := suite.decode(w, nil)
	assert.NotEqual(suite.T(), "Authentication required", env.Error.Message)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
