// internal/services/commission_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/metrics"
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/utils"
)

const (
	entityCommission = "commission"
	maxBulkItems     = 500
)

type CommissionService struct {
	store
	config  *config.Config
	cache   StatsCache
	metrics *metrics.Metrics
}

type CreateCommissionRequest struct {
	VendorID        string                `json:"vendor_id" validate:"required,vendor_id"`
	OrderReference  string                `json:"order_reference" validate:"max=128"`
	TransactionDate *time.Time            `json:"transaction_date,omitempty"`
	Category        string                `json:"category" validate:"max=100"`
	CommissionType  models.CommissionType `json:"commission_type" validate:"required"`
	BaseAmount      *decimal.Decimal      `json:"base_amount" validate:"required,gte=0"`
	Currency        string                `json:"currency,omitempty" validate:"omitempty,len=3"`
	Notes           string                `json:"notes,omitempty"`
}

// UpdateCommissionRequest is a partial update; nil fields are left unchanged.
type UpdateCommissionRequest struct {
	OrderReference   *string                  `json:"order_reference,omitempty" validate:"omitempty,max=128"`
	TransactionDate  *time.Time               `json:"transaction_date,omitempty"`
	Category         *string                  `json:"category,omitempty" validate:"omitempty,max=100"`
	BaseAmount       *decimal.Decimal         `json:"base_amount,omitempty" validate:"omitempty,gte=0"`
	CommissionAmount *decimal.Decimal         `json:"commission_amount,omitempty" validate:"omitempty,gte=0"`
	Status           *models.CommissionStatus `json:"status,omitempty"`
	PaymentStatus    *models.PaymentStatus    `json:"payment_status,omitempty"`
	Notes            *string                  `json:"notes,omitempty"`
}

type BulkUpdateItem struct {
	ID uuid.UUID `json:"id"`
	UpdateCommissionRequest
}

type CommissionFilter struct {
	utils.PaginationParams
	VendorID      string
	Status        models.CommissionStatus
	PaymentStatus models.PaymentStatus
	Category      string
	DateFrom      *time.Time
	DateTo        *time.Time
}

func NewCommissionService(db *gorm.DB, cfg *config.Config, cache StatsCache, m *metrics.Metrics) *CommissionService {
	return &CommissionService{
		store:   newStore(db, cfg.Database.QueryTimeout),
		config:  cfg,
		cache:   cache,
		metrics: m,
	}
}

// ListCommissions returns one page of matching records, newest first, plus the total match count.
// Date bounds are inclusive and apply to transaction_date.
func (s *CommissionService) ListCommissions(ctx context.Context, filter CommissionFilter) ([]models.CommissionRecord, int64, error) {
	const op = "ListCommissions"

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, validationError(op, entityCommission, "unknown status "+string(filter.Status), nil)
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, 0, validationError(op, entityCommission, "unknown payment_status "+string(filter.PaymentStatus), nil)
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, 0, validationError(op, entityCommission, "date_to must not be before date_from", nil)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	query := db.Model(&models.CommissionRecord{})
	if filter.VendorID != "" {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.DateFrom != nil {
		query = query.Where("transaction_date >= ?", normalizeTime(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where("transaction_date <= ?", normalizeTime(*filter.DateTo))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError(op, entityCommission, "", err)
	}

	var records []models.CommissionRecord
	err := utils.ApplyPagination(query, filter.PaginationParams).
		Order("created_at DESC").Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, 0, persistenceError(op, entityCommission, "", err)
	}
	return records, total, nil
}

// GetCommission returns nil without an error when id is unknown.
func (s *CommissionService) GetCommission(ctx context.Context, id uuid.UUID) (*models.CommissionRecord, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var record models.CommissionRecord
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("GetCommission", entityCommission, id.String(), err)
	}
	return &record, nil
}

func (s *CommissionService) CreateCommission(ctx context.Context, actor string, req *CreateCommissionRequest) (*models.CommissionRecord, error) {
	var record *models.CommissionRecord
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		record, err = s.createTx(tx, actor, req)
		return err
	})
	if err != nil {
		return nil, persistenceError("CreateCommission", entityCommission, "", err)
	}

	s.afterCreate(ctx, record)
	return record, nil
}

// BulkCreateCommissions creates every record or none. The error names the first failing item.
func (s *CommissionService) BulkCreateCommissions(ctx context.Context, actor string, reqs []CreateCommissionRequest) ([]models.CommissionRecord, error) {
	const op = "BulkCreateCommissions"

	if len(reqs) == 0 || len(reqs) > maxBulkItems {
		return nil, validationError(op, entityCommission, "bulk requests need between 1 and 500 items", nil)
	}

	records := make([]models.CommissionRecord, 0, len(reqs))
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		for i := range reqs {
			record, err := s.createTx(tx, actor, &reqs[i])
			if err != nil {
				return &ItemError{Index: i, Err: err}
			}
			records = append(records, *record)
		}
		return nil
	})
	if err != nil {
		return nil, wrapBulkError(op, err)
	}

	for i := range records {
		s.metrics.CommissionCreated(records[i].CommissionAmount)
	}
	invalidateDashboard(ctx, s.cache)

	logrus.WithFields(logrus.Fields{"count": len(records), "actor": actor}).Info("Commissions bulk created")
	return records, nil
}

func (s *CommissionService) createTx(tx *gorm.DB, actor string, req *CreateCommissionRequest) (*models.CommissionRecord, error) {
	const op = "CreateCommission"

	if err := validateRequest(op, entityCommission, req); err != nil {
		return nil, err
	}
	if !req.CommissionType.Valid() {
		return nil, validationError(op, entityCommission, "commission_type must be one of percentage, tiered, flat_fee, hybrid", nil)
	}

	txDate := normalizeTime(timeNow())
	if req.TransactionDate != nil && !req.TransactionDate.IsZero() {
		txDate = normalizeTime(*req.TransactionDate)
	}

	model, err := findEffectiveModel(tx, req.Category, txDate)
	if err != nil {
		if isNotFound(err) {
			return nil, validationError(op, entityCommission, "cannot be rated: "+reasonOf(err), nil)
		}
		return nil, err
	}
	if model.ModelType != req.CommissionType {
		return nil, validationError(op, entityCommission,
			"commission_type "+string(req.CommissionType)+" does not match the effective "+string(model.ModelType)+" model", nil)
	}

	rating := CalculateCommission(model, req.Category, *req.BaseAmount)

	currency := req.Currency
	if currency == "" {
		currency = s.config.Commission.DefaultCurrency
	}

	record := &models.CommissionRecord{
		VendorID:         req.VendorID,
		OrderReference:   req.OrderReference,
		TransactionDate:  txDate,
		Category:         req.Category,
		CommissionType:   req.CommissionType,
		BaseAmount:       req.BaseAmount.Round(2),
		CommissionAmount: rating.Amount,
		AppliedRate:      rating.Rate,
		RevenueModelID:   &model.ID,
		Currency:         currency,
		Status:           models.CommissionStatusPending,
		PaymentStatus:    models.PaymentStatusUnpaid,
		Notes:            req.Notes,
	}
	if err := tx.Create(record).Error; err != nil {
		return nil, persistenceError(op, entityCommission, "", err)
	}

	if err := recordAudit(tx, actor, "commission.create", entityCommission, record.ID, nil, models.JSONB{
		"vendor_id":         record.VendorID,
		"base_amount":       record.BaseAmount,
		"commission_amount": record.CommissionAmount,
		"revenue_model_id":  model.ID,
	}); err != nil {
		return nil, persistenceError(op, entityCommission, record.ID.String(), err)
	}
	return record, nil
}

func (s *CommissionService) afterCreate(ctx context.Context, record *models.CommissionRecord) {
	s.metrics.CommissionCreated(record.CommissionAmount)
	invalidateDashboard(ctx, s.cache)

	logrus.WithFields(logrus.Fields{
		"commission_id":     record.ID,
		"vendor_id":         record.VendorID,
		"commission_amount": record.CommissionAmount.String(),
	}).Info("Commission created")
}

func (s *CommissionService) UpdateCommission(ctx context.Context, actor string, id uuid.UUID, req *UpdateCommissionRequest) (*models.CommissionRecord, error) {
	var record *models.CommissionRecord
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		record, err = s.updateTx(tx, actor, id, req)
		return err
	})
	if err != nil {
		return nil, persistenceError("UpdateCommission", entityCommission, id.String(), err)
	}

	invalidateDashboard(ctx, s.cache)
	return record, nil
}

// BulkUpdateCommissions applies every update or none, in request order.
func (s *CommissionService) BulkUpdateCommissions(ctx context.Context, actor string, items []BulkUpdateItem) ([]models.CommissionRecord, error) {
	const op = "BulkUpdateCommissions"

	if len(items) == 0 || len(items) > maxBulkItems {
		return nil, validationError(op, entityCommission, "bulk requests need between 1 and 500 items", nil)
	}

	records := make([]models.CommissionRecord, 0, len(items))
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		for i := range items {
			if items[i].ID == uuid.Nil {
				return &ItemError{Index: i, Err: validationError(op, entityCommission, "id is required", nil)}
			}
			record, err := s.updateTx(tx, actor, items[i].ID, &items[i].UpdateCommissionRequest)
			if err != nil {
				return &ItemError{Index: i, Err: err}
			}
			records = append(records, *record)
		}
		return nil
	})
	if err != nil {
		return nil, wrapBulkError(op, err)
	}

	invalidateDashboard(ctx, s.cache)
	logrus.WithFields(logrus.Fields{"count": len(records), "actor": actor}).Info("Commissions bulk updated")
	return records, nil
}

func (s *CommissionService) updateTx(tx *gorm.DB, actor string, id uuid.UUID, req *UpdateCommissionRequest) (*models.CommissionRecord, error) {
	const op = "UpdateCommission"

	if err := validateRequest(op, entityCommission, req); err != nil {
		return nil, err
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, validationError(op, entityCommission, "unknown status "+string(*req.Status), nil)
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.Valid() {
		return nil, validationError(op, entityCommission, "unknown payment_status "+string(*req.PaymentStatus), nil)
	}

	var record models.CommissionRecord
	if err := forUpdate(tx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, persistenceError(op, entityCommission, id.String(), err)
	}

	if record.IsLocked() {
		if req.CommissionAmount != nil {
			return nil, conflictError(op, entityCommission, id.String(),
				"commission_amount of a paid record can only change through an adjustment")
		}
		if req.TransactionDate != nil || req.Category != nil || req.BaseAmount != nil ||
			req.Status != nil || req.PaymentStatus != nil {
			return nil, conflictError(op, entityCommission, id.String(), "paid records only accept order_reference and notes")
		}
	}

	oldValues := models.JSONB{
		"status":            record.Status,
		"payment_status":    record.PaymentStatus,
		"commission_amount": record.CommissionAmount,
	}
	changes := map[string]interface{}{}

	if req.OrderReference != nil {
		record.OrderReference = *req.OrderReference
		changes["order_reference"] = record.OrderReference
	}
	if req.Notes != nil {
		record.Notes = *req.Notes
		changes["notes"] = record.Notes
	}

	rerate := false
	if req.TransactionDate != nil {
		record.TransactionDate = normalizeTime(*req.TransactionDate)
		changes["transaction_date"] = record.TransactionDate
		rerate = true
	}
	if req.Category != nil {
		record.Category = *req.Category
		changes["category"] = record.Category
		rerate = true
	}
	if req.BaseAmount != nil {
		record.BaseAmount = req.BaseAmount.Round(2)
		changes["base_amount"] = record.BaseAmount
		rerate = true
	}

	switch {
	case req.CommissionAmount != nil:
		record.CommissionAmount = req.CommissionAmount.Round(2)
		changes["commission_amount"] = record.CommissionAmount
	case rerate:
		model, err := findEffectiveModel(tx, record.Category, record.TransactionDate)
		if err != nil {
			if isNotFound(err) {
				return nil, validationError(op, entityCommission, "cannot be re-rated: "+reasonOf(err), nil)
			}
			return nil, err
		}
		if model.ModelType != record.CommissionType {
			return nil, validationError(op, entityCommission,
				"effective "+string(model.ModelType)+" model does not match commission_type "+string(record.CommissionType), nil)
		}
		rating := CalculateCommission(model, record.Category, record.BaseAmount)
		record.CommissionAmount = rating.Amount
		record.AppliedRate = rating.Rate
		record.RevenueModelID = &model.ID
		changes["commission_amount"] = record.CommissionAmount
		changes["applied_rate"] = record.AppliedRate
		changes["revenue_model_id"] = model.ID
	}

	if err := applyStatusChange(op, &record, req.Status, req.PaymentStatus, changes); err != nil {
		return nil, err
	}

	if len(changes) == 0 {
		return &record, nil
	}

	if err := tx.Model(&record).Updates(changes).Error; err != nil {
		return nil, persistenceError(op, entityCommission, id.String(), err)
	}

	if err := recordAudit(tx, actor, "commission.update", entityCommission, record.ID, oldValues, models.JSONB(changes)); err != nil {
		return nil, persistenceError(op, entityCommission, id.String(), err)
	}
	return &record, nil
}

// applyStatusChange validates the requested transitions and records them in changes.
// Paying a record moves both status and payment_status to paid.
func applyStatusChange(op string, record *models.CommissionRecord, status *models.CommissionStatus, payment *models.PaymentStatus, changes map[string]interface{}) error {
	id := record.ID.String()

	markPaid := (status != nil && *status == models.CommissionStatusPaid) ||
		(payment != nil && *payment == models.PaymentStatusPaid)

	if status != nil && *status != record.Status && *status != models.CommissionStatusPaid {
		if !record.Status.CanTransitionTo(*status) {
			return conflictError(op, entityCommission, id,
				"cannot move commission from "+string(record.Status)+" to "+string(*status))
		}
		record.Status = *status
		changes["status"] = record.Status
	}

	if markPaid {
		if record.Status != models.CommissionStatusApproved {
			return conflictError(op, entityCommission, id, "only approved commissions can be paid")
		}
		paidAt := normalizeTime(timeNow())
		record.Status = models.CommissionStatusPaid
		record.PaymentStatus = models.PaymentStatusPaid
		record.PaidAt = &paidAt
		changes["status"] = record.Status
		changes["payment_status"] = record.PaymentStatus
		changes["paid_at"] = paidAt
	}
	return nil
}

// DeleteCommission soft-deletes a record. Paid records stay in the ledger.
func (s *CommissionService) DeleteCommission(ctx context.Context, actor string, id uuid.UUID) error {
	const op = "DeleteCommission"

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var record models.CommissionRecord
		if err := forUpdate(tx).Where("id = ?", id).First(&record).Error; err != nil {
			return persistenceError(op, entityCommission, id.String(), err)
		}
		if record.IsLocked() {
			return conflictError(op, entityCommission, id.String(), "paid commissions cannot be deleted")
		}
		if err := tx.Delete(&record).Error; err != nil {
			return persistenceError(op, entityCommission, id.String(), err)
		}
		return recordAudit(tx, actor, "commission.delete", entityCommission, record.ID, models.JSONB{
			"vendor_id":         record.VendorID,
			"status":            record.Status,
			"commission_amount": record.CommissionAmount,
		}, nil)
	})
	if err != nil {
		return persistenceError(op, entityCommission, id.String(), err)
	}

	invalidateDashboard(ctx, s.cache)
	logrus.WithFields(logrus.Fields{"commission_id": id, "actor": actor}).Info("Commission deleted")
	return nil
}

func wrapBulkError(op string, err error) error {
	var itemErr *ItemError
	if errors.As(err, &itemErr) {
		kind := KindOf(itemErr.Err)
		if kind == "" {
			kind = KindPersistence
		}
		return &Error{Op: op, Kind: kind, Entity: entityCommission, Reason: "bulk request rejected", Err: itemErr}
	}
	return persistenceError(op, entityCommission, "", err)
}
