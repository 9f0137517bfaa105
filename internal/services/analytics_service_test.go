package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/models"
)

type AnalyticsServiceTestSuite struct {
	suite.Suite
	env *testEnv
	ctx context.Context
}

func (suite *AnalyticsServiceTestSuite) SetupTest() {
	suite.env = newTestEnv(suite.T())
	suite.ctx = context.Background()
	suite.env.percentageModel(suite.T(), "10")
}

func (suite *AnalyticsServiceTestSuite) TestDashboardStatsOnEmptyLedger() {
	stats, err := suite.env.analytics.GetDashboardStats(suite.ctx)
	suite.Require().NoError(err)

	assert.EqualValues(suite.T(), 0, stats.TotalCommissions)
	assert.True(suite.T(), stats.TotalAmount.IsZero())
	assert.True(suite.T(), stats.AverageCommission.IsZero())
	assert.EqualValues(suite.T(), 0, stats.PendingCommissions)
	assert.EqualValues(suite.T(), 0, stats.ApprovedCommissions)
	assert.EqualValues(suite.T(), 0, stats.RejectedCommissions)
	assert.EqualValues(suite.T(), 0, stats.PaidCommissions)
}

func (suite *AnalyticsServiceTestSuite) TestDashboardStatsCountsEveryState() {
	suite.env.commission(suite.T(), "V1", "100")

	approved := suite.env.commission(suite.T(), "V1", "200")
	suite.env.setStatus(suite.T(), approved.ID, models.CommissionStatusApproved)

	rejected := suite.env.commission(suite.T(), "V2", "300")
	suite.env.setStatus(suite.T(), rejected.ID, models.CommissionStatusRejected)

	paid := suite.env.commission(suite.T(), "V2", "400")
	suite.env.setStatus(suite.T(), paid.ID, models.CommissionStatusApproved)
	suite.env.setStatus(suite.T(), paid.ID, models.CommissionStatusPaid)

	stats, err := suite.env.analytics.GetDashboardStats(suite.ctx)
	suite.Require().NoError(err)

	assert.EqualValues(suite.T(), 4, stats.TotalCommissions)
	assertDecimal(suite.T(), "100", stats.TotalAmount)
	assertDecimal(suite.T(), "25", stats.AverageCommission)
	assert.EqualValues(suite.T(), 1, stats.PendingCommissions)
	assert.EqualValues(suite.T(), 1, stats.ApprovedCommissions)
	assert.EqualValues(suite.T(), 1, stats.RejectedCommissions)
	assert.EqualValues(suite.T(), 1, stats.PaidCommissions)
	assert.LessOrEqual(suite.T(),
		stats.PendingCommissions+stats.ApprovedCommissions+stats.RejectedCommissions, stats.TotalCommissions)
}

func (suite *AnalyticsServiceTestSuite) TestDashboardStatsIgnoreDeletedRecords() {
	suite.env.commission(suite.T(), "V1", "100")
	deleted := suite.env.commission(suite.T(), "V1", "100")
	suite.Require().NoError(suite.env.commissions.DeleteCommission(suite.ctx, testActor, deleted.ID))

	stats, err := suite.env.analytics.GetDashboardStats(suite.ctx)
	suite.Require().NoError(err)
	assert.EqualValues(suite.T(), 1, stats.TotalCommissions)
}

func (suite *AnalyticsServiceTestSuite) TestDashboardStatsServedFromCache() {
	suite.env.commission(suite.T(), "V1", "100")

	first, err := suite.env.analytics.GetDashboardStats(suite.ctx)
	suite.Require().NoError(err)
	assert.True(suite.T(), suite.env.redis.Exists(dashboardStatsKey))

	ttl := suite.env.redis.TTL(dashboardStatsKey)
	assert.True(suite.T(), ttl > 0 && ttl <= time.Minute)

	// A row written behind the service's back stays invisible until the entry expires.
	stale := models.CommissionRecord{
		VendorID:         "V9",
		TransactionDate:  baseDate,
		CommissionType:   models.CommissionTypePercentage,
		BaseAmount:       dec("10"),
		CommissionAmount: dec("1"),
		Currency:         "USD",
		Status:           models.CommissionStatusPending,
		PaymentStatus:    models.PaymentStatusUnpaid,
	}
	suite.Require().NoError(suite.env.db.Create(&stale).Error)

	cached, err := suite.env.analytics.GetDashboardStats(suite.ctx)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), first.TotalCommissions, cached.TotalCommissions)
	assertDecimal(suite.T(), first.TotalAmount.String(), cached.TotalAmount)

	suite.env.redis.FastForward(2 * time.Minute)

	fresh, err := suite.env.analytics.GetDashboardStats(suite.ctx)
	suite.Require().NoError(err)
	assert.EqualValues(suite.T(), 2, fresh.TotalCommissions)
}

func (suite *AnalyticsServiceTestSuite) TestDashboardScanRacingAWriteIsNotCached() {
	suite.env.commission(suite.T(), "V1", "100")

	// A ledger write commits while the scan is running.
	fired := false
	err := suite.env.db.Callback().Query().After("gorm:query").Register("test:concurrent_write", func(db *gorm.DB) {
		if fired || db.Statement.Table != "vendor_commissions" {
			return
		}
		fired = true
		invalidateDashboard(context.Background(), suite.env.cache)
	})
	suite.Require().NoError(err)

	stats, err := suite.env.analytics.GetDashboardStats(suite.ctx)
	suite.Require().NoError(err)
	assert.True(suite.T(), fired)
	assert.EqualValues(suite.T(), 1, stats.TotalCommissions)
	assert.False(suite.T(), suite.env.redis.Exists(dashboardStatsKey))

	suite.Require().NoError(suite.env.db.Callback().Query().Remove("test:concurrent_write"))

	_, err = suite.env.analytics.GetDashboardStats(suite.ctx)
	suite.Require().NoError(err)
	assert.True(suite.T(), suite.env.redis.Exists(dashboardStatsKey))
}

func (suite *AnalyticsServiceTestSuite) TestDashboardStatsWithoutCache() {
	analytics := NewAnalyticsService(suite.env.db, suite.env.cfg, nil, suite.env.metrics)
	suite.env.commission(suite.T(), "V1", "100")

	stats, err := analytics.GetDashboardStats(suite.ctx)
	suite.Require().NoError(err)
	assert.EqualValues(suite.T(), 1, stats.TotalCommissions)
}

func (suite *AnalyticsServiceTestSuite) TestRollupDailyAnalytics() {
	freezeTime(suite.T(), baseDate.Add(time.Hour))

	a := suite.env.commission(suite.T(), "V1", "100")
	suite.env.commission(suite.T(), "V1", "300")
	b := suite.env.commission(suite.T(), "V2", "500")
	suite.env.setStatus(suite.T(), b.ID, models.CommissionStatusApproved)

	nextDay := commissionRequest("V1", "1000")
	later := baseDate.AddDate(0, 0, 1)
	nextDay.TransactionDate = &later
	_, err := suite.env.commissions.CreateCommission(suite.ctx, testActor, nextDay)
	suite.Require().NoError(err)

	adjustment, err := suite.env.adjustments.CreateAdjustment(suite.ctx, "ops-1", &CreateAdjustmentRequest{
		CommissionID:   a.ID,
		AdjustmentType: models.AdjustmentTypeBonus,
		ProposedDelta:  decPtr("5"),
	})
	suite.Require().NoError(err)
	_, err = suite.env.adjustments.ApproveAdjustment(suite.ctx, adjustment.ID, "admin-2")
	suite.Require().NoError(err)

	rows, err := suite.env.analytics.RollupDailyAnalytics(suite.ctx, baseDate)
	suite.Require().NoError(err)
	suite.Require().Len(rows, 2)

	v1, v2 := rows[0], rows[1]
	assert.Equal(suite.T(), "V1", v1.VendorID)
	assert.EqualValues(suite.T(), 2, v1.TotalTransactions)
	assertDecimal(suite.T(), "400", v1.TotalBaseAmount)
	assertDecimal(suite.T(), "45", v1.TotalCommission)
	assertDecimal(suite.T(), "22.5", v1.AverageCommission)
	assert.EqualValues(suite.T(), 2, v1.PendingCount)
	assert.EqualValues(suite.T(), 1, v1.AdjustmentCount)
	assertDecimal(suite.T(), "5", v1.AdjustmentTotal)

	assert.Equal(suite.T(), "V2", v2.VendorID)
	assert.EqualValues(suite.T(), 1, v2.ApprovedCount)
	assert.EqualValues(suite.T(), 0, v2.AdjustmentCount)

	// Rerunning the same day replaces rather than duplicates.
	_, err = suite.env.analytics.RollupDailyAnalytics(suite.ctx, baseDate.Add(6*time.Hour))
	suite.Require().NoError(err)

	stored, total, err := suite.env.analytics.GetAnalytics(suite.ctx, AnalyticsFilter{})
	suite.Require().NoError(err)
	assert.EqualValues(suite.T(), 2, total)
	assert.Len(suite.T(), stored, 2)

	summary, err := suite.env.analytics.GetVendorSummary(suite.ctx, "V1")
	suite.Require().NoError(err)
	suite.Require().NotNil(summary)
	assertDecimal(suite.T(), "45", summary.TotalCommission)

	none, err := suite.env.analytics.GetVendorSummary(suite.ctx, "V404")
	suite.Require().NoError(err)
	assert.Nil(suite.T(), none)
}

func (suite *AnalyticsServiceTestSuite) TestRollupSkipsAdjustmentsOfDeletedCommissions() {
	freezeTime(suite.T(), baseDate.Add(time.Hour))

	kept := suite.env.commission(suite.T(), "V1", "100")
	deleted := suite.env.commission(suite.T(), "V3", "200")

	for _, id := range []uuid.UUID{kept.ID, deleted.ID} {
		adjustment, err := suite.env.adjustments.CreateAdjustment(suite.ctx, "ops-1", &CreateAdjustmentRequest{
			CommissionID:   id,
			AdjustmentType: models.AdjustmentTypeBonus,
			ProposedDelta:  decPtr("5"),
		})
		suite.Require().NoError(err)
		_, err = suite.env.adjustments.ApproveAdjustment(suite.ctx, adjustment.ID, "admin-2")
		suite.Require().NoError(err)
	}
	suite.Require().NoError(suite.env.commissions.DeleteCommission(suite.ctx, testActor, deleted.ID))

	rows, err := suite.env.analytics.RollupDailyAnalytics(suite.ctx, baseDate)
	suite.Require().NoError(err)
	suite.Require().Len(rows, 1)
	assert.Equal(suite.T(), "V1", rows[0].VendorID)
	assert.EqualValues(suite.T(), 1, rows[0].AdjustmentCount)
	assertDecimal(suite.T(), "5", rows[0].AdjustmentTotal)
}

func (suite *AnalyticsServiceTestSuite) TestGetAnalyticsFilters() {
	suite.env.commission(suite.T(), "V1", "100")
	_, err := suite.env.analytics.RollupDailyAnalytics(suite.ctx, baseDate)
	suite.Require().NoError(err)

	from := baseDate.AddDate(0, 0, 1)
	rows, total, err := suite.env.analytics.GetAnalytics(suite.ctx, AnalyticsFilter{DateFrom: &from})
	suite.Require().NoError(err)
	assert.EqualValues(suite.T(), 0, total)
	assert.Empty(suite.T(), rows)

	rows, total, err = suite.env.analytics.GetAnalytics(suite.ctx, AnalyticsFilter{VendorID: "V1", DateTo: &baseDate})
	suite.Require().NoError(err)
	assert.EqualValues(suite.T(), 1, total)
	assert.Len(suite.T(), rows, 1)

	_, _, err = suite.env.analytics.GetAnalytics(suite.ctx, AnalyticsFilter{DateFrom: &from, DateTo: &baseDate})
	assert.ErrorIs(suite.T(), err, ErrValidation)
}

func TestAnalyticsServiceSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsServiceTestSuite))
}
