// internal/services/adjustment_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/metrics"
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/utils"
)

const entityAdjustment = "adjustment"

// AdjustmentService owns commission adjustments and is the only writer of an
// approved adjustment's effect on the parent commission.
type AdjustmentService struct {
	store
	notificationService *NotificationService
	cache               StatsCache
	metrics             *metrics.Metrics
}

type CreateAdjustmentRequest struct {
	CommissionID    uuid.UUID             `json:"commission_id" validate:"required"`
	AdjustmentType  models.AdjustmentType `json:"adjustment_type" validate:"required"`
	ProposedDelta   *decimal.Decimal      `json:"proposed_delta,omitempty"`
	CorrectedAmount *decimal.Decimal      `json:"corrected_amount,omitempty" validate:"omitempty,gte=0"`
	Reason          string                `json:"reason" validate:"max=2000"`
}

type RejectAdjustmentRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

type AdjustmentFilter struct {
	utils.PaginationParams
	CommissionID   *uuid.UUID
	Status         models.AdjustmentStatus
	AdjustmentType models.AdjustmentType
}

func NewAdjustmentService(db *gorm.DB, cfg *config.Config, notificationService *NotificationService, cache StatsCache, m *metrics.Metrics) *AdjustmentService {
	return &AdjustmentService{
		store:               newStore(db, cfg.Database.QueryTimeout),
		notificationService: notificationService,
		cache:               cache,
		metrics:             m,
	}
}

func (s *AdjustmentService) CreateAdjustment(ctx context.Context, actor string, req *CreateAdjustmentRequest) (*models.CommissionAdjustment, error) {
	var (
		adjustment   *models.CommissionAdjustment
		notification *models.AdminNotification
	)
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		adjustment, notification, err = s.createTx(tx, actor, req, nil)
		return err
	})
	if err != nil {
		return nil, persistenceError("CreateAdjustment", entityAdjustment, "", err)
	}

	s.notificationService.Dispatch(notification)

	logrus.WithFields(logrus.Fields{
		"adjustment_id": adjustment.ID,
		"commission_id": adjustment.CommissionID,
		"type":          adjustment.AdjustmentType,
	}).Info("Adjustment created")
	return adjustment, nil
}

// createTx inserts a pending adjustment. Disputes call it to spawn resolution adjustments.
func (s *AdjustmentService) createTx(tx *gorm.DB, actor string, req *CreateAdjustmentRequest, disputeID *uuid.UUID) (*models.CommissionAdjustment, *models.AdminNotification, error) {
	const op = "CreateAdjustment"

	if err := validateRequest(op, entityAdjustment, req); err != nil {
		return nil, nil, err
	}
	if req.CommissionID == uuid.Nil {
		return nil, nil, validationError(op, entityAdjustment, "commission_id is required", nil)
	}
	if !req.AdjustmentType.Valid() {
		return nil, nil, validationError(op, entityAdjustment, "unknown adjustment_type "+string(req.AdjustmentType), nil)
	}
	if (req.ProposedDelta == nil) == (req.CorrectedAmount == nil) {
		return nil, nil, validationError(op, entityAdjustment, "exactly one of proposed_delta and corrected_amount is required", nil)
	}

	var count int64
	if err := tx.Model(&models.CommissionRecord{}).Where("id = ?", req.CommissionID).Count(&count).Error; err != nil {
		return nil, nil, persistenceError(op, entityCommission, req.CommissionID.String(), err)
	}
	if count == 0 {
		return nil, nil, validationError(op, entityAdjustment, "commission_id does not reference an existing commission", nil)
	}

	var pending int64
	err := tx.Model(&models.CommissionAdjustment{}).
		Where("commission_id = ? AND status = ?", req.CommissionID, models.AdjustmentStatusPending).
		Count(&pending).Error
	if err != nil {
		return nil, nil, persistenceError(op, entityAdjustment, "", err)
	}
	if pending > 0 {
		return nil, nil, conflictError(op, entityCommission, req.CommissionID.String(), "commission already has a pending adjustment")
	}

	adjustment := &models.CommissionAdjustment{
		CommissionID:   req.CommissionID,
		AdjustmentType: req.AdjustmentType,
		Reason:         req.Reason,
		Status:         models.AdjustmentStatusPending,
		RequestedBy:    actor,
		DisputeID:      disputeID,
	}
	if req.ProposedDelta != nil {
		adjustment.ProposedDelta = decimal.NewNullDecimal(req.ProposedDelta.Round(2))
	} else {
		adjustment.CorrectedAmount = decimal.NewNullDecimal(req.CorrectedAmount.Round(2))
	}

	if err := tx.Create(adjustment).Error; err != nil {
		return nil, nil, persistenceError(op, entityAdjustment, "", err)
	}
	if err := recordAudit(tx, actor, "adjustment.create", entityAdjustment, adjustment.ID, nil, models.JSONB{
		"commission_id":    adjustment.CommissionID,
		"adjustment_type":  adjustment.AdjustmentType,
		"proposed_delta":   adjustment.ProposedDelta,
		"corrected_amount": adjustment.CorrectedAmount,
	}); err != nil {
		return nil, nil, persistenceError(op, entityAdjustment, adjustment.ID.String(), err)
	}

	notification, err := s.notificationService.Record(tx, Notification{
		Type:         "adjustment_pending",
		Title:        "Commission adjustment awaiting approval",
		Message:      fmt.Sprintf("A %s adjustment was requested for commission %s", adjustment.AdjustmentType, adjustment.CommissionID),
		ResourceType: entityAdjustment,
		ResourceID:   adjustment.ID,
	})
	if err != nil {
		return nil, nil, err
	}
	return adjustment, notification, nil
}

// ApproveAdjustment marks a pending adjustment approved and applies its effect to the
// parent commission in the same transaction.
func (s *AdjustmentService) ApproveAdjustment(ctx context.Context, id uuid.UUID, approvedBy string) (*models.CommissionAdjustment, error) {
	const op = "ApproveAdjustment"

	var adjustment models.CommissionAdjustment
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", id).First(&adjustment).Error; err != nil {
			return persistenceError(op, entityAdjustment, id.String(), err)
		}
		if adjustment.Status != models.AdjustmentStatusPending {
			return conflictError(op, entityAdjustment, id.String(), "adjustment is already "+string(adjustment.Status))
		}

		var record models.CommissionRecord
		if err := forUpdate(tx).Where("id = ?", adjustment.CommissionID).First(&record).Error; err != nil {
			return persistenceError(op, entityCommission, adjustment.CommissionID.String(), err)
		}

		previous := record.CommissionAmount
		resulting := adjustment.Apply(previous).Round(2)
		if resulting.IsNegative() {
			return conflictError(op, entityAdjustment, id.String(), "adjustment would make commission_amount negative")
		}

		now := normalizeTime(timeNow())
		res := tx.Model(&models.CommissionAdjustment{}).
			Where("id = ? AND status = ?", id, models.AdjustmentStatusPending).
			Updates(map[string]interface{}{
				"status":           models.AdjustmentStatusApproved,
				"approved_by":      approvedBy,
				"approved_at":      now,
				"previous_amount":  previous,
				"resulting_amount": resulting,
				"updated_at":       now,
			})
		if res.Error != nil {
			return persistenceError(op, entityAdjustment, id.String(), res.Error)
		}
		if res.RowsAffected == 0 {
			return conflictError(op, entityAdjustment, id.String(), "adjustment is no longer pending")
		}

		if err := tx.Model(&record).Update("commission_amount", resulting).Error; err != nil {
			return persistenceError(op, entityCommission, record.ID.String(), err)
		}

		adjustment.Status = models.AdjustmentStatusApproved
		adjustment.ApprovedBy = approvedBy
		adjustment.ApprovedAt = &now
		adjustment.PreviousAmount = decimal.NewNullDecimal(previous)
		adjustment.ResultingAmount = decimal.NewNullDecimal(resulting)
		adjustment.UpdatedAt = now

		if err := recordAudit(tx, approvedBy, "adjustment.approve", entityAdjustment, adjustment.ID,
			models.JSONB{"status": models.AdjustmentStatusPending},
			models.JSONB{"status": models.AdjustmentStatusApproved}); err != nil {
			return err
		}
		return recordAudit(tx, approvedBy, "commission.adjust", entityCommission, record.ID,
			models.JSONB{"commission_amount": previous},
			models.JSONB{"commission_amount": resulting, "adjustment_id": adjustment.ID})
	})
	if err != nil {
		return nil, persistenceError(op, entityAdjustment, id.String(), err)
	}

	s.metrics.AdjustmentDecided(string(models.AdjustmentStatusApproved))
	invalidateDashboard(ctx, s.cache)

	logrus.WithFields(logrus.Fields{
		"adjustment_id":    adjustment.ID,
		"commission_id":    adjustment.CommissionID,
		"approved_by":      approvedBy,
		"resulting_amount": adjustment.ResultingAmount.Decimal.String(),
	}).Info("Adjustment approved")
	return &adjustment, nil
}

// RejectAdjustment closes a pending adjustment without touching the parent commission.
func (s *AdjustmentService) RejectAdjustment(ctx context.Context, id uuid.UUID, rejectedBy string, req *RejectAdjustmentRequest) (*models.CommissionAdjustment, error) {
	const op = "RejectAdjustment"

	if req == nil {
		req = &RejectAdjustmentRequest{}
	}
	if err := validateRequest(op, entityAdjustment, req); err != nil {
		return nil, err
	}

	var adjustment models.CommissionAdjustment
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", id).First(&adjustment).Error; err != nil {
			return persistenceError(op, entityAdjustment, id.String(), err)
		}
		if adjustment.Status != models.AdjustmentStatusPending {
			return conflictError(op, entityAdjustment, id.String(), "adjustment is already "+string(adjustment.Status))
		}

		now := normalizeTime(timeNow())
		res := tx.Model(&models.CommissionAdjustment{}).
			Where("id = ? AND status = ?", id, models.AdjustmentStatusPending).
			Updates(map[string]interface{}{
				"status":           models.AdjustmentStatusRejected,
				"rejected_by":      rejectedBy,
				"rejected_at":      now,
				"rejection_reason": req.Reason,
				"updated_at":       now,
			})
		if res.Error != nil {
			return persistenceError(op, entityAdjustment, id.String(), res.Error)
		}
		if res.RowsAffected == 0 {
			return conflictError(op, entityAdjustment, id.String(), "adjustment is no longer pending")
		}

		adjustment.Status = models.AdjustmentStatusRejected
		adjustment.RejectedBy = rejectedBy
		adjustment.RejectedAt = &now
		adjustment.RejectionReason = req.Reason
		adjustment.UpdatedAt = now

		return recordAudit(tx, rejectedBy, "adjustment.reject", entityAdjustment, adjustment.ID,
			models.JSONB{"status": models.AdjustmentStatusPending},
			models.JSONB{"status": models.AdjustmentStatusRejected, "reason": req.Reason})
	})
	if err != nil {
		return nil, persistenceError(op, entityAdjustment, id.String(), err)
	}

	s.metrics.AdjustmentDecided(string(models.AdjustmentStatusRejected))

	logrus.WithFields(logrus.Fields{
		"adjustment_id": adjustment.ID,
		"rejected_by":   rejectedBy,
	}).Info("Adjustment rejected")
	return &adjustment, nil
}

func (s *AdjustmentService) GetAdjustment(ctx context.Context, id uuid.UUID) (*models.CommissionAdjustment, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var adjustment models.CommissionAdjustment
	if err := db.Where("id = ?", id).First(&adjustment).Error; err != nil {
		return nil, persistenceError("GetAdjustment", entityAdjustment, id.String(), err)
	}
	return &adjustment, nil
}

func (s *AdjustmentService) GetAdjustments(ctx context.Context, filter AdjustmentFilter) ([]models.CommissionAdjustment, int64, error) {
	const op = "GetAdjustments"

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, validationError(op, entityAdjustment, "unknown status "+string(filter.Status), nil)
	}
	if filter.AdjustmentType != "" && !filter.AdjustmentType.Valid() {
		return nil, 0, validationError(op, entityAdjustment, "unknown adjustment_type "+string(filter.AdjustmentType), nil)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	query := db.Model(&models.CommissionAdjustment{})
	if filter.CommissionID != nil {
		query = query.Where("commission_id = ?", *filter.CommissionID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AdjustmentType != "" {
		query = query.Where("adjustment_type = ?", filter.AdjustmentType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError(op, entityAdjustment, "", err)
	}

	var adjustments []models.CommissionAdjustment
	err := utils.ApplyPagination(query, filter.PaginationParams).
		Order("created_at DESC").Order("id DESC").
		Find(&adjustments).Error
	if err != nil {
		return nil, 0, persistenceError(op, entityAdjustment, "", err)
	}
	return adjustments, total, nil
}
