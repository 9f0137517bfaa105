// internal/services/analytics_service.go
package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/metrics"
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/utils"
)

const (
	entityAnalytics = "analytics"
	scanBatchSize   = 500
)

type AnalyticsService struct {
	store
	cache    StatsCache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

// DashboardStats summarises the whole ledger. PaidCommissions counts payment_status, not status.
type DashboardStats struct {
	TotalCommissions    int64           `json:"total_commissions"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	AverageCommission   decimal.Decimal `json:"average_commission"`
	PendingCommissions  int64           `json:"pending_commissions"`
	ApprovedCommissions int64           `json:"approved_commissions"`
	RejectedCommissions int64           `json:"rejected_commissions"`
	PaidCommissions     int64           `json:"paid_commissions"`
}

type AnalyticsFilter struct {
	utils.PaginationParams
	VendorID string
	DateFrom *time.Time
	DateTo   *time.Time
}

func NewAnalyticsService(db *gorm.DB, cfg *config.Config, cache StatsCache, m *metrics.Metrics) *AnalyticsService {
	return &AnalyticsService{
		store:    newStore(db, cfg.Database.QueryTimeout),
		cache:    cache,
		cacheTTL: cfg.Redis.CacheTTL,
		metrics:  m,
	}
}

// GetAnalytics reads precomputed daily rows, newest first.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, filter AnalyticsFilter) ([]models.CommissionAnalytics, int64, error) {
	const op = "GetAnalytics"

	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, 0, validationError(op, entityAnalytics, "date_to must not be before date_from", nil)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	query := db.Model(&models.CommissionAnalytics{})
	if filter.VendorID != "" {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.DateFrom != nil {
		query = query.Where("analytics_date >= ?", startOfDay(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where("analytics_date < ?", startOfDay(*filter.DateTo).AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError(op, entityAnalytics, "", err)
	}

	var rows []models.CommissionAnalytics
	err := utils.ApplyPagination(query, filter.PaginationParams).
		Order("analytics_date DESC").Order("vendor_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, 0, persistenceError(op, entityAnalytics, "", err)
	}
	return rows, total, nil
}

// GetVendorSummary returns the vendor's most recent analytics row, or nil when there is none.
func (s *AnalyticsService) GetVendorSummary(ctx context.Context, vendorID string) (*models.CommissionAnalytics, error) {
	const op = "GetVendorSummary"

	if vendorID == "" {
		return nil, validationError(op, entityAnalytics, "vendor_id is required", nil)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var row models.CommissionAnalytics
	err := db.Where("vendor_id = ?", vendorID).Order("analytics_date DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError(op, entityAnalytics, vendorID, err)
	}
	return &row, nil
}

// GetDashboardStats scans the full ledger, serving from the cache while it is fresh.
func (s *AnalyticsService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	const op = "GetDashboardStats"

	var (
		generation    int64
		generationErr error
	)
	if s.cache != nil {
		var cached DashboardStats
		hit, err := s.cache.GetJSON(ctx, dashboardStatsKey, &cached)
		if err != nil {
			logrus.WithError(err).Warn("Failed to read dashboard stats cache")
		}
		s.metrics.DashboardCacheRead(hit)
		if hit {
			return &cached, nil
		}
		// Read before scanning; a write committed during the scan moves it.
		generation, generationErr = s.cache.Counter(ctx, dashboardGenerationKey)
		if generationErr != nil {
			logrus.WithError(generationErr).Warn("Failed to read dashboard stats generation")
		}
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	stats := &DashboardStats{TotalAmount: decimal.Zero, AverageCommission: decimal.Zero}
	var batch []models.CommissionRecord
	err := db.Model(&models.CommissionRecord{}).
		Select("id, commission_amount, status, payment_status").
		FindInBatches(&batch, scanBatchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				stats.add(&batch[i])
			}
			return nil
		}).Error
	if err != nil {
		return nil, persistenceError(op, entityAnalytics, "", err)
	}

	if stats.TotalCommissions > 0 {
		stats.AverageCommission = stats.TotalAmount.Div(decimal.NewFromInt(stats.TotalCommissions))
	}

	if s.cache != nil && generationErr == nil {
		stored, err := s.cache.SetJSONIfCounter(ctx, dashboardGenerationKey, generation, dashboardStatsKey, stats, s.cacheTTL)
		if err != nil {
			logrus.WithError(err).Warn("Failed to write dashboard stats cache")
		} else if !stored {
			logrus.Debug("Ledger changed during dashboard scan, snapshot not cached")
		}
	}
	return stats, nil
}

func (d *DashboardStats) add(r *models.CommissionRecord) {
	d.TotalCommissions++
	d.TotalAmount = d.TotalAmount.Add(r.CommissionAmount)
	switch r.Status {
	case models.CommissionStatusPending:
		d.PendingCommissions++
	case models.CommissionStatusApproved:
		d.ApprovedCommissions++
	case models.CommissionStatusRejected:
		d.RejectedCommissions++
	}
	if r.PaymentStatus == models.PaymentStatusPaid {
		d.PaidCommissions++
	}
}

type adjustmentOutcome struct {
	VendorID        string
	PreviousAmount  decimal.NullDecimal
	ResultingAmount decimal.NullDecimal
}

// RollupDailyAnalytics rebuilds the analytics rows of one UTC day from the ledger and the
// adjustments approved that day. Existing rows for the day are replaced.
func (s *AnalyticsService) RollupDailyAnalytics(ctx context.Context, day time.Time) (rows []models.CommissionAnalytics, err error) {
	const op = "RollupDailyAnalytics"

	defer func() { s.metrics.AnalyticsRolledUp(err) }()

	start := startOfDay(day)
	end := start.AddDate(0, 0, 1)

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		var records []models.CommissionRecord
		err := tx.Select("id, vendor_id, base_amount, commission_amount, status, payment_status").
			Where("transaction_date >= ? AND transaction_date < ?", start, end).
			Find(&records).Error
		if err != nil {
			return persistenceError(op, entityCommission, "", err)
		}

		var outcomes []adjustmentOutcome
		err = tx.Table("commission_adjustments AS a").
			Select("c.vendor_id AS vendor_id, a.previous_amount AS previous_amount, a.resulting_amount AS resulting_amount").
			Joins("JOIN vendor_commissions c ON c.id = a.commission_id").
			Where("a.status = ? AND a.approved_at >= ? AND a.approved_at < ? AND a.deleted_at IS NULL AND c.deleted_at IS NULL",
				models.AdjustmentStatusApproved, start, end).
			Scan(&outcomes).Error
		if err != nil {
			return persistenceError(op, entityAdjustment, "", err)
		}

		byVendor := map[string]*models.CommissionAnalytics{}
		row := func(vendorID string) *models.CommissionAnalytics {
			r, ok := byVendor[vendorID]
			if !ok {
				r = &models.CommissionAnalytics{
					VendorID:          vendorID,
					AnalyticsDate:     start,
					TotalBaseAmount:   decimal.Zero,
					TotalCommission:   decimal.Zero,
					AverageCommission: decimal.Zero,
					AdjustmentTotal:   decimal.Zero,
				}
				byVendor[vendorID] = r
			}
			return r
		}

		for i := range records {
			rec := &records[i]
			r := row(rec.VendorID)
			r.TotalTransactions++
			r.TotalBaseAmount = r.TotalBaseAmount.Add(rec.BaseAmount)
			r.TotalCommission = r.TotalCommission.Add(rec.CommissionAmount)
			switch rec.Status {
			case models.CommissionStatusPending:
				r.PendingCount++
			case models.CommissionStatusApproved:
				r.ApprovedCount++
			case models.CommissionStatusRejected:
				r.RejectedCount++
			}
			if rec.PaymentStatus == models.PaymentStatusPaid {
				r.PaidCount++
			}
		}
		for _, o := range outcomes {
			r := row(o.VendorID)
			r.AdjustmentCount++
			r.AdjustmentTotal = r.AdjustmentTotal.Add(o.ResultingAmount.Decimal.Sub(o.PreviousAmount.Decimal))
		}

		vendors := make([]string, 0, len(byVendor))
		for vendorID, r := range byVendor {
			if r.TotalTransactions > 0 {
				r.AverageCommission = r.TotalCommission.Div(decimal.NewFromInt(r.TotalTransactions)).Round(2)
			}
			vendors = append(vendors, vendorID)
		}
		sort.Strings(vendors)

		err = tx.Unscoped().
			Where("analytics_date >= ? AND analytics_date < ?", start, end).
			Delete(&models.CommissionAnalytics{}).Error
		if err != nil {
			return persistenceError(op, entityAnalytics, "", err)
		}

		rows = make([]models.CommissionAnalytics, 0, len(vendors))
		for _, vendorID := range vendors {
			rows = append(rows, *byVendor[vendorID])
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return persistenceError(op, entityAnalytics, "", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError(op, entityAnalytics, "", err)
	}

	logrus.WithFields(logrus.Fields{
		"analytics_date": start.Format("2006-01-02"),
		"vendors":        len(rows),
	}).Info("Daily commission analytics rolled up")
	return rows, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
