// internal/services/dispute_service.go
package services

import (
	"context"
	"errors"
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

const entityDispute = "dispute"

type DisputeService struct {
	store
	adjustmentService   *AdjustmentService
	notificationService *NotificationService
	metrics             *metrics.Metrics
}

type CreateDisputeRequest struct {
	VendorID      string                 `json:"vendor_id" validate:"required,vendor_id"`
	CommissionID  *uuid.UUID             `json:"commission_id,omitempty"`
	DisputeType   string                 `json:"dispute_type" validate:"required,max=50"`
	Description   string                 `json:"description" validate:"max=5000"`
	DisputeAmount *decimal.Decimal       `json:"dispute_amount" validate:"required,gte=0"`
	ClaimedAmount *decimal.Decimal       `json:"claimed_amount" validate:"required,gte=0"`
	PriorityLevel models.DisputePriority `json:"priority_level,omitempty"`
}

type AssignDisputeRequest struct {
	AssignedTo string `json:"assigned_to" validate:"required,max=64"`
}

type ResolveDisputeRequest struct {
	ResolutionAmount *decimal.Decimal `json:"resolution_amount" validate:"required"`
	ResolutionNotes  string           `json:"resolution_notes" validate:"max=5000"`
	// CreateAdjustment spawns a pending dispute_resolution adjustment of ResolutionAmount.
	CreateAdjustment bool `json:"create_adjustment"`
}

type RejectDisputeRequest struct {
	ResolutionNotes string `json:"resolution_notes" validate:"max=5000"`
}

type DisputeFilter struct {
	utils.PaginationParams
	VendorID      string
	Status        models.DisputeStatus
	PriorityLevel models.DisputePriority
	AssignedTo    string
}

func NewDisputeService(db *gorm.DB, cfg *config.Config, adjustmentService *AdjustmentService, notificationService *NotificationService, m *metrics.Metrics) *DisputeService {
	return &DisputeService{
		store:               newStore(db, cfg.Database.QueryTimeout),
		adjustmentService:   adjustmentService,
		notificationService: notificationService,
		metrics:             m,
	}
}

func (s *DisputeService) CreateDispute(ctx context.Context, actor string, req *CreateDisputeRequest) (*models.RevenueDispute, error) {
	const op = "CreateDispute"

	if err := validateRequest(op, entityDispute, req); err != nil {
		return nil, err
	}
	priority := req.PriorityLevel
	if priority == "" {
		priority = models.DisputePriorityMedium
	}
	if !priority.Valid() {
		return nil, validationError(op, entityDispute, "unknown priority_level "+string(priority), nil)
	}

	number, err := generateDisputeNumber()
	if err != nil {
		return nil, &Error{Op: op, Kind: KindPersistence, Entity: entityDispute, Reason: "failed to generate dispute number", Err: err}
	}

	dispute := &models.RevenueDispute{
		DisputeNumber: number,
		VendorID:      req.VendorID,
		CommissionID:  req.CommissionID,
		DisputeType:   req.DisputeType,
		Description:   req.Description,
		DisputeAmount: req.DisputeAmount.Round(2),
		ClaimedAmount: req.ClaimedAmount.Round(2),
		Status:        models.DisputeStatusOpen,
		PriorityLevel: priority,
	}

	var notification *models.AdminNotification
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if req.CommissionID != nil {
			var record models.CommissionRecord
			if err := tx.Where("id = ?", *req.CommissionID).First(&record).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return validationError(op, entityDispute, "commission_id does not reference an existing commission", nil)
				}
				return persistenceError(op, entityCommission, req.CommissionID.String(), err)
			}
			if record.VendorID != req.VendorID {
				return validationError(op, entityDispute, "commission does not belong to the disputing vendor", nil)
			}
		}

		if err := tx.Create(dispute).Error; err != nil {
			return persistenceError(op, entityDispute, "", err)
		}
		if err := recordAudit(tx, actor, "dispute.create", entityDispute, dispute.ID, nil, models.JSONB{
			"dispute_number": dispute.DisputeNumber,
			"vendor_id":      dispute.VendorID,
			"claimed_amount": dispute.ClaimedAmount,
		}); err != nil {
			return err
		}

		var err error
		notification, err = s.notificationService.Record(tx, Notification{
			Type:         "dispute_opened",
			Title:        "Revenue dispute " + dispute.DisputeNumber + " opened",
			Message:      fmt.Sprintf("Vendor %s disputes %s (claimed %s)", dispute.VendorID, dispute.DisputeAmount.StringFixed(2), dispute.ClaimedAmount.StringFixed(2)),
			Priority:     string(dispute.PriorityLevel),
			ResourceType: entityDispute,
			ResourceID:   dispute.ID,
		})
		return err
	})
	if err != nil {
		return nil, persistenceError(op, entityDispute, "", err)
	}

	s.notificationService.Dispatch(notification)
	s.metrics.DisputeTransitioned(string(models.DisputeStatusOpen))

	logrus.WithFields(logrus.Fields{
		"dispute_id":     dispute.ID,
		"dispute_number": dispute.DisputeNumber,
		"vendor_id":      dispute.VendorID,
	}).Info("Dispute opened")
	return dispute, nil
}

func generateDisputeNumber() (string, error) {
	suffix, err := utils.GenerateRandomString(6)
	if err != nil {
		return "", err
	}
	return "DSP-" + timeNow().UTC().Format("20060102") + "-" + suffix, nil
}

func (s *DisputeService) GetDispute(ctx context.Context, id uuid.UUID) (*models.RevenueDispute, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var dispute models.RevenueDispute
	if err := db.Where("id = ?", id).First(&dispute).Error; err != nil {
		return nil, persistenceError("GetDispute", entityDispute, id.String(), err)
	}
	return &dispute, nil
}

func (s *DisputeService) ListDisputes(ctx context.Context, filter DisputeFilter) ([]models.RevenueDispute, int64, error) {
	const op = "ListDisputes"

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, validationError(op, entityDispute, "unknown status "+string(filter.Status), nil)
	}
	if filter.PriorityLevel != "" && !filter.PriorityLevel.Valid() {
		return nil, 0, validationError(op, entityDispute, "unknown priority_level "+string(filter.PriorityLevel), nil)
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	query := db.Model(&models.RevenueDispute{})
	if filter.VendorID != "" {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PriorityLevel != "" {
		query = query.Where("priority_level = ?", filter.PriorityLevel)
	}
	if filter.AssignedTo != "" {
		query = query.Where("assigned_to = ?", filter.AssignedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError(op, entityDispute, "", err)
	}

	var disputes []models.RevenueDispute
	err := utils.ApplyPagination(query, filter.PaginationParams).
		Order("created_at DESC").Order("id DESC").
		Find(&disputes).Error
	if err != nil {
		return nil, 0, persistenceError(op, entityDispute, "", err)
	}
	return disputes, total, nil
}

func (s *DisputeService) AssignDispute(ctx context.Context, actor string, id uuid.UUID, req *AssignDisputeRequest) (*models.RevenueDispute, error) {
	const op = "AssignDispute"

	if err := validateRequest(op, entityDispute, req); err != nil {
		return nil, err
	}

	return s.mutate(ctx, op, actor, id, func(tx *gorm.DB, d *models.RevenueDispute) (map[string]interface{}, error) {
		if d.Status.IsTerminal() {
			return nil, conflictError(op, entityDispute, id.String(), "dispute is already "+string(d.Status))
		}
		d.AssignedTo = req.AssignedTo
		return map[string]interface{}{"assigned_to": req.AssignedTo}, nil
	})
}

func (s *DisputeService) StartReview(ctx context.Context, actor string, id uuid.UUID) (*models.RevenueDispute, error) {
	const op = "StartReview"

	return s.mutate(ctx, op, actor, id, func(tx *gorm.DB, d *models.RevenueDispute) (map[string]interface{}, error) {
		if err := transitionDispute(op, d, models.DisputeStatusUnderReview); err != nil {
			return nil, err
		}
		changes := map[string]interface{}{"status": d.Status}
		if d.AssignedTo == "" {
			d.AssignedTo = actor
			changes["assigned_to"] = actor
		}
		return changes, nil
	})
}

// EscalateDispute raises the escalation level and notifies admins.
func (s *DisputeService) EscalateDispute(ctx context.Context, actor string, id uuid.UUID) (*models.RevenueDispute, error) {
	const op = "EscalateDispute"

	var notification *models.AdminNotification
	dispute, err := s.mutate(ctx, op, actor, id, func(tx *gorm.DB, d *models.RevenueDispute) (map[string]interface{}, error) {
		if err := transitionDispute(op, d, models.DisputeStatusEscalated); err != nil {
			return nil, err
		}
		d.EscalationLevel++

		var err error
		notification, err = s.notificationService.Record(tx, Notification{
			Type:         "dispute_escalated",
			Title:        "Revenue dispute " + d.DisputeNumber + " escalated",
			Message:      fmt.Sprintf("Dispute %s reached escalation level %d", d.DisputeNumber, d.EscalationLevel),
			Priority:     "high",
			ResourceType: entityDispute,
			ResourceID:   d.ID,
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"status":           d.Status,
			"escalation_level": d.EscalationLevel,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notificationService.Dispatch(notification)
	return dispute, nil
}

// ResolveDispute closes the dispute with a resolution amount. When requested, a pending
// dispute_resolution adjustment for that amount is created against the disputed commission.
func (s *DisputeService) ResolveDispute(ctx context.Context, actor string, id uuid.UUID, req *ResolveDisputeRequest) (*models.RevenueDispute, error) {
	const op = "ResolveDispute"

	if err := validateRequest(op, entityDispute, req); err != nil {
		return nil, err
	}

	var notification *models.AdminNotification
	dispute, err := s.mutate(ctx, op, actor, id, func(tx *gorm.DB, d *models.RevenueDispute) (map[string]interface{}, error) {
		if err := transitionDispute(op, d, models.DisputeStatusResolved); err != nil {
			return nil, err
		}

		now := normalizeTime(timeNow())
		amount := req.ResolutionAmount.Round(2)
		d.ResolutionAmount = decimal.NewNullDecimal(amount)
		d.ResolutionNotes = req.ResolutionNotes
		d.ResolvedAt = &now
		d.ResolvedBy = actor

		changes := map[string]interface{}{
			"status":            d.Status,
			"resolution_amount": d.ResolutionAmount,
			"resolution_notes":  d.ResolutionNotes,
			"resolved_at":       now,
			"resolved_by":       actor,
		}

		if req.CreateAdjustment {
			if d.CommissionID == nil {
				return nil, validationError(op, entityDispute, "an adjustment needs a dispute with a commission_id", nil)
			}
			adjustment, n, err := s.adjustmentService.createTx(tx, actor, &CreateAdjustmentRequest{
				CommissionID:   *d.CommissionID,
				AdjustmentType: models.AdjustmentTypeDisputeResolution,
				ProposedDelta:  &amount,
				Reason:         "Resolution of dispute " + d.DisputeNumber,
			}, &d.ID)
			if err != nil {
				return nil, err
			}
			notification = n
			d.AdjustmentID = &adjustment.ID
			changes["adjustment_id"] = adjustment.ID
		}
		return changes, nil
	})
	if err != nil {
		return nil, err
	}

	s.notificationService.Dispatch(notification)
	return dispute, nil
}

func (s *DisputeService) RejectDispute(ctx context.Context, actor string, id uuid.UUID, req *RejectDisputeRequest) (*models.RevenueDispute, error) {
	const op = "RejectDispute"

	if req == nil {
		req = &RejectDisputeRequest{}
	}
	if err := validateRequest(op, entityDispute, req); err != nil {
		return nil, err
	}

	return s.mutate(ctx, op, actor, id, func(tx *gorm.DB, d *models.RevenueDispute) (map[string]interface{}, error) {
		if err := transitionDispute(op, d, models.DisputeStatusRejected); err != nil {
			return nil, err
		}
		d.ResolutionNotes = req.ResolutionNotes
		return map[string]interface{}{
			"status":           d.Status,
			"resolution_notes": d.ResolutionNotes,
		}, nil
	})
}

// mutate locks the dispute, applies fn and persists the returned column changes with an audit row.
func (s *DisputeService) mutate(ctx context.Context, op, actor string, id uuid.UUID, fn func(tx *gorm.DB, d *models.RevenueDispute) (map[string]interface{}, error)) (*models.RevenueDispute, error) {
	var (
		dispute   models.RevenueDispute
		oldStatus models.DisputeStatus
	)
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", id).First(&dispute).Error; err != nil {
			return persistenceError(op, entityDispute, id.String(), err)
		}
		oldStatus = dispute.Status

		changes, err := fn(tx, &dispute)
		if err != nil {
			return err
		}
		if err := tx.Model(&dispute).Updates(changes).Error; err != nil {
			return persistenceError(op, entityDispute, id.String(), err)
		}
		return recordAudit(tx, actor, "dispute."+auditVerb(op), entityDispute, dispute.ID,
			models.JSONB{"status": oldStatus}, models.JSONB(changes))
	})
	if err != nil {
		return nil, persistenceError(op, entityDispute, id.String(), err)
	}

	if dispute.Status != oldStatus || dispute.Status == models.DisputeStatusEscalated {
		s.metrics.DisputeTransitioned(string(dispute.Status))
	}
	logrus.WithFields(logrus.Fields{
		"dispute_id": dispute.ID,
		"from":       oldStatus,
		"to":         dispute.Status,
		"actor":      actor,
	}).Info(op)
	return &dispute, nil
}

func transitionDispute(op string, d *models.RevenueDispute, next models.DisputeStatus) error {
	if !d.Status.CanTransitionTo(next) {
		return conflictError(op, entityDispute, d.ID.String(),
			"cannot move dispute from "+string(d.Status)+" to "+string(next))
	}
	d.Status = next
	return nil
}

func auditVerb(op string) string {
	switch op {
	case "AssignDispute":
		return "assign"
	case "StartReview":
		return "review"
	case "EscalateDispute":
		return "escalate"
	case "ResolveDispute":
		return "resolve"
	case "RejectDispute":
		return "reject"
	}
	return "update"
}
