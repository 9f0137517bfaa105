// internal/services/payout_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/metrics"
	"github.com/javajoker/commission-engine/internal/models"
)

const entityPayout = "payout"

type PayoutService struct {
	store
	paymentTermsService *PaymentTermsService
	cache               StatsCache
	metrics             *metrics.Metrics
}

// VendorBalance is the vendor's approved, unpaid commission position.
type VendorBalance struct {
	VendorID        string                 `json:"vendor_id"`
	Currency        string                 `json:"currency"`
	ApprovedUnpaid  decimal.Decimal        `json:"approved_unpaid"`
	RecordCount     int                    `json:"record_count"`
	EligibleAmount  decimal.Decimal        `json:"eligible_amount"`
	EligibleCount   int                    `json:"eligible_count"`
	MinimumPayout   decimal.Decimal        `json:"minimum_payout"`
	PayoutFrequency models.PayoutFrequency `json:"payout_frequency"`
	PayoutDelayDays int                    `json:"payout_delay_days"`
}

type PayoutSettlement struct {
	VendorID      string          `json:"vendor_id"`
	RecordCount   int             `json:"record_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	SettledAt     time.Time       `json:"settled_at"`
	SettledBy     string          `json:"settled_by"`
	CommissionIDs []uuid.UUID     `json:"commission_ids"`
}

func NewPayoutService(db *gorm.DB, cfg *config.Config, paymentTermsService *PaymentTermsService, cache StatsCache, m *metrics.Metrics) *PayoutService {
	return &PayoutService{
		store:               newStore(db, cfg.Database.QueryTimeout),
		paymentTermsService: paymentTermsService,
		cache:               cache,
		metrics:             m,
	}
}

func (s *PayoutService) GetVendorBalance(ctx context.Context, vendorID string) (*VendorBalance, error) {
	const op = "GetVendorBalance"

	if vendorID == "" {
		return nil, validationError(op, entityPayout, "vendor_id is required", nil)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	terms, err := s.paymentTermsService.paymentTermsTx(db, vendorID)
	if err != nil {
		return nil, err
	}

	records, err := approvedUnpaid(db, vendorID)
	if err != nil {
		return nil, persistenceError(op, entityCommission, vendorID, err)
	}

	balance := &VendorBalance{
		VendorID:        vendorID,
		Currency:        terms.Currency,
		ApprovedUnpaid:  decimal.Zero,
		EligibleAmount:  decimal.Zero,
		MinimumPayout:   terms.MinimumPayout,
		PayoutFrequency: terms.PayoutFrequency,
		PayoutDelayDays: terms.PayoutDelayDays,
	}
	cutoff := payoutCutoff(terms)
	for i := range records {
		balance.ApprovedUnpaid = balance.ApprovedUnpaid.Add(records[i].CommissionAmount)
		balance.RecordCount++
		if !records[i].TransactionDate.After(cutoff) {
			balance.EligibleAmount = balance.EligibleAmount.Add(records[i].CommissionAmount)
			balance.EligibleCount++
		}
	}
	return balance, nil
}

// SettleVendorPayout marks every approved, unpaid record older than the payout delay as paid.
// It fails with a conflict when nothing is due or the total is below the vendor's minimum payout.
func (s *PayoutService) SettleVendorPayout(ctx context.Context, vendorID, settledBy string) (*PayoutSettlement, error) {
	const op = "SettleVendorPayout"

	if vendorID == "" {
		return nil, validationError(op, entityPayout, "vendor_id is required", nil)
	}

	settlement := &PayoutSettlement{VendorID: vendorID, SettledBy: settledBy, TotalAmount: decimal.Zero}
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		terms, err := s.paymentTermsService.paymentTermsTx(tx, vendorID)
		if err != nil {
			return err
		}
		settlement.Currency = terms.Currency

		var records []models.CommissionRecord
		err = forUpdate(tx).
			Where("vendor_id = ? AND status = ? AND payment_status = ? AND transaction_date <= ?",
				vendorID, models.CommissionStatusApproved, models.PaymentStatusUnpaid, payoutCutoff(terms)).
			Order("transaction_date ASC").Order("id ASC").
			Find(&records).Error
		if err != nil {
			return persistenceError(op, entityCommission, vendorID, err)
		}
		if len(records) == 0 {
			return conflictError(op, entityPayout, vendorID, "no approved commissions are due for payout")
		}

		for i := range records {
			settlement.TotalAmount = settlement.TotalAmount.Add(records[i].CommissionAmount)
			settlement.CommissionIDs = append(settlement.CommissionIDs, records[i].ID)
		}
		if settlement.TotalAmount.LessThan(terms.MinimumPayout) {
			return conflictError(op, entityPayout, vendorID,
				"balance "+settlement.TotalAmount.StringFixed(2)+" is below the minimum payout "+terms.MinimumPayout.StringFixed(2))
		}

		now := normalizeTime(timeNow())
		res := tx.Model(&models.CommissionRecord{}).
			Where("id IN ? AND status = ? AND payment_status = ?",
				settlement.CommissionIDs, models.CommissionStatusApproved, models.PaymentStatusUnpaid).
			Updates(map[string]interface{}{
				"status":         models.CommissionStatusPaid,
				"payment_status": models.PaymentStatusPaid,
				"paid_at":        now,
			})
		if res.Error != nil {
			return persistenceError(op, entityCommission, vendorID, res.Error)
		}
		if res.RowsAffected != int64(len(records)) {
			return conflictError(op, entityPayout, vendorID, "commissions changed while settling")
		}

		settlement.RecordCount = len(records)
		settlement.SettledAt = now

		ids := make([]string, len(settlement.CommissionIDs))
		for i, id := range settlement.CommissionIDs {
			ids[i] = id.String()
		}
		return recordAudit(tx, settledBy, "payout.settle", entityPayout, uuid.New(), nil, models.JSONB{
			"vendor_id":      vendorID,
			"total_amount":   settlement.TotalAmount,
			"record_count":   settlement.RecordCount,
			"commission_ids": ids,
		})
	})
	if err != nil {
		return nil, persistenceError(op, entityPayout, vendorID, err)
	}

	s.metrics.PayoutSettled(settlement.TotalAmount)
	invalidateDashboard(ctx, s.cache)

	logrus.WithFields(logrus.Fields{
		"vendor_id":    vendorID,
		"record_count": settlement.RecordCount,
		"total_amount": settlement.TotalAmount.String(),
		"settled_by":   settledBy,
	}).Info("Vendor payout settled")
	return settlement, nil
}

func approvedUnpaid(db *gorm.DB, vendorID string) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	err := db.Where("vendor_id = ? AND status = ? AND payment_status = ?",
		vendorID, models.CommissionStatusApproved, models.PaymentStatusUnpaid).
		Order("transaction_date ASC").Order("id ASC").
		Find(&records).Error
	return records, err
}

func payoutCutoff(terms *models.PaymentTermsConfig) time.Time {
	return normalizeTime(timeNow().AddDate(0, 0, -terms.PayoutDelayDays))
}
