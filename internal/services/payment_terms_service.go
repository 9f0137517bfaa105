// internal/services/payment_terms_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/models"
)

const (
	entityPaymentTerms = "payment_terms"
	entityIncentive    = "incentive_program"
)

type PaymentTermsService struct {
	store
	config *config.Config
}

type UpsertPaymentTermsRequest struct {
	VendorID        string                 `json:"vendor_id" validate:"omitempty,vendor_id"`
	PayoutFrequency models.PayoutFrequency `json:"payout_frequency" validate:"required"`
	MinimumPayout   *decimal.Decimal       `json:"minimum_payout" validate:"required,gte=0"`
	PayoutDelayDays int                    `json:"payout_delay_days" validate:"gte=0,lte=365"`
	Currency        string                 `json:"currency,omitempty" validate:"omitempty,len=3"`
	IsActive        *bool                  `json:"is_active,omitempty"`
}

type CreateIncentiveProgramRequest struct {
	ProgramName    string           `json:"program_name" validate:"required,max=150"`
	Category       string           `json:"category" validate:"max=100"`
	MinSalesAmount *decimal.Decimal `json:"min_sales_amount" validate:"required,gte=0"`
	BonusRate      *decimal.Decimal `json:"bonus_rate" validate:"required,gte=0,lte=100"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
}

// IncentiveResult is one program's outcome for a vendor over a window.
type IncentiveResult struct {
	ProgramID       string          `json:"program_id"`
	ProgramName     string          `json:"program_name"`
	Category        string          `json:"category"`
	SalesTotal      decimal.Decimal `json:"sales_total"`
	CommissionTotal decimal.Decimal `json:"commission_total"`
	MinSalesAmount  decimal.Decimal `json:"min_sales_amount"`
	Eligible        bool            `json:"eligible"`
	BonusAmount     decimal.Decimal `json:"bonus_amount"`
}

func NewPaymentTermsService(db *gorm.DB, cfg *config.Config) *PaymentTermsService {
	return &PaymentTermsService{
		store:  newStore(db, cfg.Database.QueryTimeout),
		config: cfg,
	}
}

// GetPaymentTerms resolves the vendor's own terms, then the platform default row, then configuration.
func (s *PaymentTermsService) GetPaymentTerms(ctx context.Context, vendorID string) (*models.PaymentTermsConfig, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	return s.paymentTermsTx(db, vendorID)
}

func (s *PaymentTermsService) paymentTermsTx(tx *gorm.DB, vendorID string) (*models.PaymentTermsConfig, error) {
	const op = "GetPaymentTerms"

	candidates := []string{""}
	if vendorID != "" {
		candidates = []string{vendorID, ""}
	}

	for _, candidate := range candidates {
		var terms models.PaymentTermsConfig
		err := tx.Where("vendor_id = ? AND is_active = ?", candidate, true).
			Order("updated_at DESC").
			First(&terms).Error
		if err == nil {
			return &terms, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, persistenceError(op, entityPaymentTerms, candidate, err)
		}
	}

	return &models.PaymentTermsConfig{
		VendorID:        "",
		PayoutFrequency: models.PayoutFrequencyMonthly,
		MinimumPayout:   decimal.NewFromFloat(s.config.Commission.DefaultMinimumPayout),
		Currency:        s.config.Commission.DefaultCurrency,
		IsActive:        true,
	}, nil
}

// UpsertPaymentTerms creates or replaces the terms of one vendor, or the platform default when vendor_id is empty.
func (s *PaymentTermsService) UpsertPaymentTerms(ctx context.Context, actor string, req *UpsertPaymentTermsRequest) (*models.PaymentTermsConfig, error) {
	const op = "UpsertPaymentTerms"

	if err := validateRequest(op, entityPaymentTerms, req); err != nil {
		return nil, err
	}
	if !req.PayoutFrequency.Valid() {
		return nil, validationError(op, entityPaymentTerms, "payout_frequency must be one of weekly, biweekly, monthly", nil)
	}

	currency := req.Currency
	if currency == "" {
		currency = s.config.Commission.DefaultCurrency
	}

	var terms models.PaymentTermsConfig
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		err := forUpdate(tx).Where("vendor_id = ?", req.VendorID).First(&terms).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return persistenceError(op, entityPaymentTerms, req.VendorID, err)
		}

		var oldValues models.JSONB
		if terms.ID != uuid.Nil {
			oldValues = models.JSONB{
				"payout_frequency":  terms.PayoutFrequency,
				"minimum_payout":    terms.MinimumPayout,
				"payout_delay_days": terms.PayoutDelayDays,
			}
		}

		terms.VendorID = req.VendorID
		terms.PayoutFrequency = req.PayoutFrequency
		terms.MinimumPayout = req.MinimumPayout.Round(2)
		terms.PayoutDelayDays = req.PayoutDelayDays
		terms.Currency = currency
		terms.IsActive = req.IsActive == nil || *req.IsActive

		if err := tx.Save(&terms).Error; err != nil {
			return persistenceError(op, entityPaymentTerms, req.VendorID, err)
		}
		return recordAudit(tx, actor, "payment_terms.upsert", entityPaymentTerms, terms.ID, oldValues, models.JSONB{
			"vendor_id":         terms.VendorID,
			"payout_frequency":  terms.PayoutFrequency,
			"minimum_payout":    terms.MinimumPayout,
			"payout_delay_days": terms.PayoutDelayDays,
		})
	})
	if err != nil {
		return nil, persistenceError(op, entityPaymentTerms, req.VendorID, err)
	}
	return &terms, nil
}

func (s *PaymentTermsService) CreateIncentiveProgram(ctx context.Context, actor string, req *CreateIncentiveProgramRequest) (*models.IncentiveProgram, error) {
	const op = "CreateIncentiveProgram"

	if err := validateRequest(op, entityIncentive, req); err != nil {
		return nil, err
	}
	if req.StartDate.IsZero() {
		return nil, validationError(op, entityIncentive, "start_date is required", nil)
	}
	if req.EndDate != nil && !req.EndDate.After(req.StartDate) {
		return nil, validationError(op, entityIncentive, "end_date must be after start_date", nil)
	}

	program := &models.IncentiveProgram{
		ProgramName:    req.ProgramName,
		Category:       req.Category,
		MinSalesAmount: req.MinSalesAmount.Round(2),
		BonusRate:      *req.BonusRate,
		StartDate:      normalizeTime(req.StartDate),
		IsActive:       true,
	}
	if req.EndDate != nil {
		end := normalizeTime(*req.EndDate)
		program.EndDate = &end
	}

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(program).Error; err != nil {
			return persistenceError(op, entityIncentive, "", err)
		}
		return recordAudit(tx, actor, "incentive_program.create", entityIncentive, program.ID, nil, models.JSONB{
			"program_name": program.ProgramName,
			"bonus_rate":   program.BonusRate,
		})
	})
	if err != nil {
		return nil, persistenceError(op, entityIncentive, "", err)
	}
	return program, nil
}

// ListIncentivePrograms returns every program, or only those running at activeAt when given.
func (s *PaymentTermsService) ListIncentivePrograms(ctx context.Context, activeAt *time.Time) ([]models.IncentiveProgram, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var programs []models.IncentiveProgram
	if err := db.Order("start_date DESC").Order("id DESC").Find(&programs).Error; err != nil {
		return nil, persistenceError("ListIncentivePrograms", entityIncentive, "", err)
	}
	if activeAt == nil {
		return programs, nil
	}

	at := normalizeTime(*activeAt)
	active := programs[:0]
	for i := range programs {
		if programs[i].ActiveAt(at) {
			active = append(active, programs[i])
		}
	}
	return active, nil
}

// EvaluateIncentives scores the vendor's approved and paid commissions in [from, to) against
// every active program overlapping that window.
func (s *PaymentTermsService) EvaluateIncentives(ctx context.Context, vendorID string, from, to time.Time) ([]IncentiveResult, error) {
	const op = "EvaluateIncentives"

	if vendorID == "" {
		return nil, validationError(op, entityIncentive, "vendor_id is required", nil)
	}
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return nil, validationError(op, entityIncentive, "a window with from before to is required", nil)
	}
	from, to = normalizeTime(from), normalizeTime(to)

	db, cancel := s.conn(ctx)
	defer cancel()

	var programs []models.IncentiveProgram
	err := db.Where("is_active = ? AND start_date < ?", true, to).
		Order("start_date ASC").Order("id ASC").
		Find(&programs).Error
	if err != nil {
		return nil, persistenceError(op, entityIncentive, "", err)
	}

	var records []models.CommissionRecord
	err = db.Select("id, category, transaction_date, base_amount, commission_amount").
		Where("vendor_id = ? AND status IN ? AND transaction_date >= ? AND transaction_date < ?",
			vendorID, []models.CommissionStatus{models.CommissionStatusApproved, models.CommissionStatusPaid}, from, to).
		Find(&records).Error
	if err != nil {
		return nil, persistenceError(op, entityCommission, "", err)
	}

	results := make([]IncentiveResult, 0, len(programs))
	for i := range programs {
		p := &programs[i]
		if p.EndDate != nil && !p.EndDate.After(from) {
			continue
		}

		sales, commission := decimal.Zero, decimal.Zero
		for j := range records {
			r := &records[j]
			if p.Category != "" && r.Category != p.Category {
				continue
			}
			if r.TransactionDate.Before(p.StartDate) || (p.EndDate != nil && !r.TransactionDate.Before(*p.EndDate)) {
				continue
			}
			sales = sales.Add(r.BaseAmount)
			commission = commission.Add(r.CommissionAmount)
		}

		result := IncentiveResult{
			ProgramID:       p.ID.String(),
			ProgramName:     p.ProgramName,
			Category:        p.Category,
			SalesTotal:      sales,
			CommissionTotal: commission,
			MinSalesAmount:  p.MinSalesAmount,
			Eligible:        !sales.LessThan(p.MinSalesAmount),
			BonusAmount:     decimal.Zero,
		}
		if result.Eligible {
			result.BonusAmount = percentOf(commission, p.BonusRate).Round(2)
		}
		results = append(results, result)
	}
	return results, nil
}
