// internal/services/store.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/commission-engine/internal/database"
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/utils"
)

const (
	dashboardStatsKey      = "commission:dashboard_stats"
	dashboardGenerationKey = "commission:dashboard_stats:generation"
)

// timeNow is the clock used for approval, payout and resolution stamps.
var timeNow = time.Now

// StatsCache is the subset of the redis cache the services rely on.
type StatsCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
	SetJSONIfCounter(ctx context.Context, counterKey string, expected int64, key string, value interface{}, ttl time.Duration) (bool, error)
}

// store carries the injected persistence client and the per-call deadline.
type store struct {
	db      *gorm.DB
	timeout time.Duration
}

func newStore(db *gorm.DB, timeout time.Duration) store {
	return store{db: db, timeout: timeout}
}

// conn returns a handle bound to ctx with the configured deadline applied.
func (s store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if s.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		return s.db.WithContext(ctx), cancel
	}
	return s.db.WithContext(ctx), func() {}
}

func (s store) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return database.WithTransaction(ctx, s.db, fn)
}

// forUpdate takes a row lock on dialects that support it.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func recordAudit(tx *gorm.DB, actor, action, resourceType string, resourceID uuid.UUID, oldValues, newValues models.JSONB) error {
	id := resourceID
	entry := &models.AuditLog{
		ActorID:      actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   &id,
		OldValues:    oldValues,
		NewValues:    newValues,
	}
	return tx.Create(entry).Error
}

// invalidateDashboard bumps the generation before dropping the snapshot so a
// scan that started before this write cannot store its result afterwards.
func invalidateDashboard(ctx context.Context, cache StatsCache) {
	if cache == nil {
		return
	}
	if _, err := cache.Incr(ctx, dashboardGenerationKey); err != nil {
		logrus.WithError(err).Warn("Failed to bump dashboard stats generation")
	}
	if err := cache.Delete(ctx, dashboardStatsKey); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate dashboard stats cache")
	}
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func validateRequest(op, entity string, req interface{}) error {
	if err := utils.ValidateStruct(req); err != nil {
		return validationError(op, entity, "invalid request", err)
	}
	return nil
}
