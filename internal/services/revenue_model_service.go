// internal/services/revenue_model_service.go
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
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/utils"
)

const entityRevenueModel = "revenue_model"

type RevenueModelService struct {
	store
}

type CreateRevenueModelRequest struct {
	ModelName        string                `json:"model_name" validate:"required,max=150"`
	ModelType        models.CommissionType `json:"model_type" validate:"required"`
	Category         string                `json:"category" validate:"max=100"`
	BaseRate         decimal.Decimal       `json:"base_rate" validate:"gte=0,lte=100"`
	FlatFee          decimal.Decimal       `json:"flat_fee" validate:"gte=0"`
	TierStructure    models.TierStructure  `json:"tier_structure,omitempty"`
	MinimumThreshold decimal.Decimal       `json:"minimum_threshold" validate:"gte=0"`
	MaximumThreshold decimal.Decimal       `json:"maximum_threshold" validate:"gte=0"`
	CategoryRates    models.CategoryRates  `json:"category_rates,omitempty"`
	EffectiveFrom    time.Time             `json:"effective_from"`
	EffectiveTo      *time.Time            `json:"effective_to,omitempty"`
	IsActive         *bool                 `json:"is_active,omitempty"`
}

type CloseRevenueModelRequest struct {
	EffectiveTo time.Time `json:"effective_to"`
}

type RevenueModelFilter struct {
	utils.PaginationParams
	Category *string
	Active   *bool
}

func NewRevenueModelService(db *gorm.DB, cfg *config.Config) *RevenueModelService {
	return &RevenueModelService{store: newStore(db, cfg.Database.QueryTimeout)}
}

func (s *RevenueModelService) CreateRevenueModel(ctx context.Context, actor string, req *CreateRevenueModelRequest) (*models.RevenueModel, error) {
	const op = "CreateRevenueModel"

	if err := validateRequest(op, entityRevenueModel, req); err != nil {
		return nil, err
	}
	if err := checkRevenueModelRequest(op, req); err != nil {
		return nil, err
	}

	model := &models.RevenueModel{
		ModelName:        req.ModelName,
		ModelType:        req.ModelType,
		Category:         req.Category,
		BaseRate:         req.BaseRate,
		FlatFee:          req.FlatFee,
		TierStructure:    req.TierStructure.Sorted(),
		MinimumThreshold: req.MinimumThreshold,
		MaximumThreshold: req.MaximumThreshold,
		CategoryRates:    req.CategoryRates,
		EffectiveFrom:    normalizeTime(req.EffectiveFrom),
		IsActive:         req.IsActive == nil || *req.IsActive,
	}
	if req.EffectiveTo != nil {
		to := normalizeTime(*req.EffectiveTo)
		model.EffectiveTo = &to
	}

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if model.IsActive {
			var existing []models.RevenueModel
			if err := tx.Where("category = ? AND is_active = ?", model.Category, true).Find(&existing).Error; err != nil {
				return persistenceError(op, entityRevenueModel, "", err)
			}
			for i := range existing {
				if existing[i].Overlaps(model) {
					return conflictError(op, entityRevenueModel, existing[i].ID.String(),
						"effective window overlaps an active model for the same category")
				}
			}
		}

		if err := tx.Create(model).Error; err != nil {
			return persistenceError(op, entityRevenueModel, "", err)
		}
		return recordAudit(tx, actor, "revenue_model.create", entityRevenueModel, model.ID, nil, models.JSONB{
			"model_name":     model.ModelName,
			"model_type":     model.ModelType,
			"category":       model.Category,
			"effective_from": model.EffectiveFrom,
		})
	})
	if err != nil {
		return nil, persistenceError(op, entityRevenueModel, "", err)
	}

	logrus.WithFields(logrus.Fields{
		"revenue_model_id": model.ID,
		"model_type":       model.ModelType,
		"category":         model.Category,
	}).Info("Revenue model created")

	return model, nil
}

func checkRevenueModelRequest(op string, req *CreateRevenueModelRequest) error {
	if !req.ModelType.Valid() {
		return validationError(op, entityRevenueModel, "model_type must be one of percentage, tiered, flat_fee, hybrid", nil)
	}
	if req.EffectiveFrom.IsZero() {
		return validationError(op, entityRevenueModel, "effective_from is required", nil)
	}
	if req.EffectiveTo != nil && !req.EffectiveTo.After(req.EffectiveFrom) {
		return validationError(op, entityRevenueModel, "effective_to must be after effective_from", nil)
	}
	if req.MaximumThreshold.IsPositive() && req.MaximumThreshold.LessThan(req.MinimumThreshold) {
		return validationError(op, entityRevenueModel, "maximum_threshold must not be below minimum_threshold", nil)
	}
	if req.ModelType == models.CommissionTypeTiered && len(req.TierStructure) == 0 {
		return validationError(op, entityRevenueModel, "tiered models need at least one tier", nil)
	}

	seen := make(map[string]bool, len(req.TierStructure))
	for _, tier := range req.TierStructure {
		if tier.Threshold.IsNegative() || tier.Rate.IsNegative() || tier.Rate.GreaterThan(hundred) {
			return validationError(op, entityRevenueModel, "tier thresholds must be >= 0 and rates within 0..100", nil)
		}
		key := tier.Threshold.String()
		if seen[key] {
			return validationError(op, entityRevenueModel, "tier thresholds must be unique", nil)
		}
		seen[key] = true
	}
	for category, rate := range req.CategoryRates {
		if category == "" || rate.IsNegative() {
			return validationError(op, entityRevenueModel, "category_rates needs non-empty categories and non-negative values", nil)
		}
	}
	return nil
}

func (s *RevenueModelService) GetRevenueModel(ctx context.Context, id uuid.UUID) (*models.RevenueModel, error) {
	const op = "GetRevenueModel"

	db, cancel := s.conn(ctx)
	defer cancel()

	var model models.RevenueModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		return nil, persistenceError(op, entityRevenueModel, id.String(), err)
	}
	return &model, nil
}

func (s *RevenueModelService) ListRevenueModels(ctx context.Context, filter RevenueModelFilter) ([]models.RevenueModel, int64, error) {
	const op = "ListRevenueModels"

	db, cancel := s.conn(ctx)
	defer cancel()

	query := db.Model(&models.RevenueModel{})
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError(op, entityRevenueModel, "", err)
	}

	var result []models.RevenueModel
	err := utils.ApplyPagination(query, filter.PaginationParams).
		Order("effective_from DESC").Order("id DESC").
		Find(&result).Error
	if err != nil {
		return nil, 0, persistenceError(op, entityRevenueModel, "", err)
	}
	return result, total, nil
}

// CloseRevenueModel ends a model's window at effectiveTo. Closed versions stay for historical rating.
func (s *RevenueModelService) CloseRevenueModel(ctx context.Context, actor string, id uuid.UUID, effectiveTo time.Time) (*models.RevenueModel, error) {
	const op = "CloseRevenueModel"

	if effectiveTo.IsZero() {
		return nil, validationError(op, entityRevenueModel, "effective_to is required", nil)
	}
	effectiveTo = normalizeTime(effectiveTo)

	var model models.RevenueModel
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", id).First(&model).Error; err != nil {
			return persistenceError(op, entityRevenueModel, id.String(), err)
		}
		if model.EffectiveTo != nil {
			return conflictError(op, entityRevenueModel, id.String(), "model is already closed")
		}
		if !effectiveTo.After(model.EffectiveFrom) {
			return conflictError(op, entityRevenueModel, id.String(), "effective_to must be after effective_from")
		}

		model.EffectiveTo = &effectiveTo
		if err := tx.Model(&model).Update("effective_to", effectiveTo).Error; err != nil {
			return persistenceError(op, entityRevenueModel, id.String(), err)
		}
		return recordAudit(tx, actor, "revenue_model.close", entityRevenueModel, model.ID, nil,
			models.JSONB{"effective_to": effectiveTo})
	})
	if err != nil {
		return nil, persistenceError(op, entityRevenueModel, id.String(), err)
	}
	return &model, nil
}

func (s *RevenueModelService) DeactivateRevenueModel(ctx context.Context, actor string, id uuid.UUID) (*models.RevenueModel, error) {
	const op = "DeactivateRevenueModel"

	var model models.RevenueModel
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", id).First(&model).Error; err != nil {
			return persistenceError(op, entityRevenueModel, id.String(), err)
		}
		if !model.IsActive {
			return nil
		}

		model.IsActive = false
		if err := tx.Model(&model).Update("is_active", false).Error; err != nil {
			return persistenceError(op, entityRevenueModel, id.String(), err)
		}
		return recordAudit(tx, actor, "revenue_model.deactivate", entityRevenueModel, model.ID,
			models.JSONB{"is_active": true}, models.JSONB{"is_active": false})
	})
	if err != nil {
		return nil, persistenceError(op, entityRevenueModel, id.String(), err)
	}
	return &model, nil
}

// FindEffectiveModel returns the active model that rates category at the given instant.
// A model for the exact category beats a catch-all one; ties go to the latest effective_from.
func (s *RevenueModelService) FindEffectiveModel(ctx context.Context, category string, at time.Time) (*models.RevenueModel, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	return findEffectiveModel(db, category, at)
}

func findEffectiveModel(tx *gorm.DB, category string, at time.Time) (*models.RevenueModel, error) {
	const op = "FindEffectiveModel"

	at = normalizeTime(at)

	var candidates []models.RevenueModel
	err := tx.Where("is_active = ? AND (category = ? OR category = ?) AND effective_from <= ?", true, category, "", at).
		Find(&candidates).Error
	if err != nil {
		return nil, persistenceError(op, entityRevenueModel, "", err)
	}

	var best *models.RevenueModel
	for i := range candidates {
		c := &candidates[i]
		if !c.EffectiveAt(at) {
			continue
		}
		if best == nil || betterMatch(c, best, category) {
			best = c
		}
	}
	if best == nil {
		return nil, &Error{Op: op, Kind: KindNotFound, Entity: entityRevenueModel,
			Reason: "no active revenue model for category " + quoteCategory(category)}
	}
	return best, nil
}

func betterMatch(candidate, current *models.RevenueModel, category string) bool {
	candidateExact := candidate.Category == category
	currentExact := current.Category == category
	if candidateExact != currentExact {
		return candidateExact
	}
	return candidate.EffectiveFrom.After(current.EffectiveFrom)
}

func quoteCategory(category string) string {
	if category == "" {
		return "(any)"
	}
	return "'" + category + "'"
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
