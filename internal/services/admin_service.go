// internal/services/admin_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/utils"
)

const entityAuditLog = "audit_log"

// AdminService exposes the audit trail written by every ledger mutation.
type AdminService struct {
	store
}

type AuditLogFilter struct {
	utils.PaginationParams
	ActorID       string
	Action        string
	ResourceType  string
	ResourceID    *uuid.UUID
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func NewAdminService(db *gorm.DB, cfg *config.Config) *AdminService {
	return &AdminService{store: newStore(db, cfg.Database.QueryTimeout)}
}

func (s *AdminService) GetAuditLogs(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, int64, error) {
	const op = "GetAuditLogs"

	db, cancel := s.conn(ctx)
	defer cancel()

	query := db.Model(&models.AuditLog{})
	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != nil {
		query = query.Where("resource_id = ?", *filter.ResourceID)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", normalizeTime(*filter.CreatedAfter))
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", normalizeTime(*filter.CreatedBefore))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError(op, entityAuditLog, "", err)
	}

	var logs []models.AuditLog
	err := utils.ApplyPagination(query, filter.PaginationParams).
		Order("created_at DESC").Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, 0, persistenceError(op, entityAuditLog, "", err)
	}
	return logs, total, nil
}
