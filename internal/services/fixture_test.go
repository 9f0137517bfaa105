package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/cache"
	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/database/dbtest"
	"github.com/javajoker/commission-engine/internal/metrics"
	"github.com/javajoker/commission-engine/internal/models"
)

const testActor = "admin-1"

var baseDate = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db      *gorm.DB
	cfg     *config.Config
	redis   *miniredis.Miniredis
	cache   *cache.Client
	metrics *metrics.Metrics

	notifications *NotificationService
	revenueModels *RevenueModelService
	commissions   *CommissionService
	adjustments   *AdjustmentService
	analytics     *AnalyticsService
	disputes      *DisputeService
	paymentTerms  *PaymentTermsService
	payouts       *PayoutService
	admin         *AdminService
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Database:    config.DatabaseConfig{QueryTimeout: 5 * time.Second},
		Redis:       config.RedisConfig{CacheTTL: time.Minute},
		Commission: config.CommissionConfig{
			DefaultCurrency:      "USD",
			DefaultMinimumPayout: 10,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := cache.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	env := &testEnv{
		db:      dbtest.New(t),
		cfg:     testConfig(),
		redis:   mr,
		cache:   client,
		metrics: metrics.New(prometheus.NewRegistry()),
	}

	env.notifications = NewNotificationService(env.db, env.cfg)
	env.revenueModels = NewRevenueModelService(env.db, env.cfg)
	env.commissions = NewCommissionService(env.db, env.cfg, env.cache, env.metrics)
	env.adjustments = NewAdjustmentService(env.db, env.cfg, env.notifications, env.cache, env.metrics)
	env.analytics = NewAnalyticsService(env.db, env.cfg, env.cache, env.metrics)
	env.disputes = NewDisputeService(env.db, env.cfg, env.adjustments, env.notifications, env.metrics)
	env.paymentTerms = NewPaymentTermsService(env.db, env.cfg)
	env.payouts = NewPayoutService(env.db, env.cfg, env.paymentTerms, env.cache, env.metrics)
	env.admin = NewAdminService(env.db, env.cfg)
	return env
}

// percentageModel installs a catch-all percentage model effective from well before baseDate.
func (env *testEnv) percentageModel(t *testing.T, rate string) *models.RevenueModel {
	t.Helper()
	model, err := env.revenueModels.CreateRevenueModel(context.Background(), testActor, &CreateRevenueModelRequest{
		ModelName:     "Standard " + rate + "%",
		ModelType:     models.CommissionTypePercentage,
		BaseRate:      dec(rate),
		EffectiveFrom: baseDate.AddDate(-1, 0, 0),
	})
	require.NoError(t, err)
	return model
}

func (env *testEnv) commission(t *testing.T, vendorID, base string) *models.CommissionRecord {
	t.Helper()
	record, err := env.commissions.CreateCommission(context.Background(), testActor, commissionRequest(vendorID, base))
	require.NoError(t, err)
	return record
}

func (env *testEnv) setStatus(t *testing.T, id uuid.UUID, status models.CommissionStatus) *models.CommissionRecord {
	t.Helper()
	record, err := env.commissions.UpdateCommission(context.Background(), testActor, id, &UpdateCommissionRequest{Status: &status})
	require.NoError(t, err)
	return record
}

func commissionRequest(vendorID, base string) *CreateCommissionRequest {
	amount := dec(base)
	txDate := baseDate
	return &CreateCommissionRequest{
		VendorID:        vendorID,
		OrderReference:  "ORD-" + uuid.NewString()[:8],
		TransactionDate: &txDate,
		CommissionType:  models.CommissionTypePercentage,
		BaseAmount:      &amount,
	}
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// freezeTime pins the service clock for the duration of the test.
func freezeTime(t *testing.T, now time.Time) {
	t.Helper()
	previous := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = previous })
}
