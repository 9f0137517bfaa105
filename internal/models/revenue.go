// internal/models/revenue.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RateTier struct {
	Threshold decimal.Decimal `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
}

// TierStructure is kept sorted by ascending threshold.
type TierStructure []RateTier

func (t TierStructure) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

func (t *TierStructure) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, t)
}

// Sorted returns a copy ordered by threshold.
func (t TierStructure) Sorted() TierStructure {
	out := make(TierStructure, len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Threshold.LessThan(out[j].Threshold)
	})
	return out
}

// CategoryRates maps a product category to an override rate.
type CategoryRates map[string]decimal.Decimal

func (c CategoryRates) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func (c *CategoryRates) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, c)
}

// RevenueModel is the rate schedule used to rate a transaction into a commission amount.
// Rates are percentages (10 means 10%). An empty Category applies to every category.
type RevenueModel struct {
	BaseModel
	ModelName        string          `json:"model_name" gorm:"size:150;not null"`
	ModelType        CommissionType  `json:"model_type" gorm:"type:varchar(20);not null;index"`
	Category         string          `json:"category" gorm:"size:100;index"`
	BaseRate         decimal.Decimal `json:"base_rate" gorm:"type:decimal(9,4);not null"`
	FlatFee          decimal.Decimal `json:"flat_fee" gorm:"type:decimal(14,2);not null"`
	TierStructure    TierStructure   `json:"tier_structure" gorm:"type:jsonb"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold" gorm:"type:decimal(14,2);not null"`
	MaximumThreshold decimal.Decimal `json:"maximum_threshold" gorm:"type:decimal(14,2);not null"`
	CategoryRates    CategoryRates   `json:"category_rates" gorm:"type:jsonb"`
	EffectiveFrom    time.Time       `json:"effective_from" gorm:"not null;index"`
	EffectiveTo      *time.Time      `json:"effective_to,omitempty" gorm:"index"`
	IsActive         bool            `json:"is_active" gorm:"not null;index"`
}

func (RevenueModel) TableName() string {
	return "revenue_models"
}

// EffectiveAt reports whether the model's window covers t. EffectiveTo is exclusive.
func (m *RevenueModel) EffectiveAt(t time.Time) bool {
	if t.Before(m.EffectiveFrom) {
		return false
	}
	return m.EffectiveTo == nil || t.Before(*m.EffectiveTo)
}

// Overlaps reports whether two models' windows intersect.
func (m *RevenueModel) Overlaps(other *RevenueModel) bool {
	if m.EffectiveTo != nil && !other.EffectiveFrom.Before(*m.EffectiveTo) {
		return false
	}
	if other.EffectiveTo != nil && !m.EffectiveFrom.Before(*other.EffectiveTo) {
		return false
	}
	return true
}

type RevenueDispute struct {
	BaseModel
	DisputeNumber    string              `json:"dispute_number" gorm:"size:32;not null;uniqueIndex"`
	VendorID         string              `json:"vendor_id" gorm:"size:64;not null;index"`
	CommissionID     *uuid.UUID          `json:"commission_id,omitempty" gorm:"type:uuid;index"`
	DisputeType      string              `json:"dispute_type" gorm:"size:50;not null"`
	Description      string              `json:"description" gorm:"type:text"`
	DisputeAmount    decimal.Decimal     `json:"dispute_amount" gorm:"type:decimal(14,2);not null"`
	ClaimedAmount    decimal.Decimal     `json:"claimed_amount" gorm:"type:decimal(14,2);not null"`
	Status           DisputeStatus       `json:"status" gorm:"type:varchar(20);not null;default:'open';index"`
	PriorityLevel    DisputePriority     `json:"priority_level" gorm:"type:varchar(20);not null;default:'medium';index"`
	AssignedTo       string              `json:"assigned_to,omitempty" gorm:"size:64;index"`
	ResolutionAmount decimal.NullDecimal `json:"resolution_amount" gorm:"type:decimal(14,2)"`
	ResolutionNotes  string              `json:"resolution_notes,omitempty" gorm:"type:text"`
	ResolvedAt       *time.Time          `json:"resolved_at,omitempty"`
	ResolvedBy       string              `json:"resolved_by,omitempty" gorm:"size:64"`
	EscalationLevel  int                 `json:"escalation_level" gorm:"not null;default:0"`
	AdjustmentID     *uuid.UUID          `json:"adjustment_id,omitempty" gorm:"type:uuid"`
}

func (RevenueDispute) TableName() string {
	return "revenue_disputes"
}

// PaymentTermsConfig governs payout cadence. An empty VendorID is the platform default.
type PaymentTermsConfig struct {
	BaseModel
	VendorID        string          `json:"vendor_id" gorm:"size:64;index"`
	PayoutFrequency PayoutFrequency `json:"payout_frequency" gorm:"type:varchar(20);not null;default:'monthly'"`
	MinimumPayout   decimal.Decimal `json:"minimum_payout" gorm:"type:decimal(14,2);not null"`
	PayoutDelayDays int             `json:"payout_delay_days" gorm:"not null;default:0"`
	Currency        string          `json:"currency" gorm:"size:3;not null;default:'USD'"`
	IsActive        bool            `json:"is_active" gorm:"not null"`
}

func (PaymentTermsConfig) TableName() string {
	return "payment_terms_config"
}

type IncentiveProgram struct {
	BaseModel
	ProgramName    string          `json:"program_name" gorm:"size:150;not null"`
	Category       string          `json:"category" gorm:"size:100;index"`
	MinSalesAmount decimal.Decimal `json:"min_sales_amount" gorm:"type:decimal(14,2);not null"`
	BonusRate      decimal.Decimal `json:"bonus_rate" gorm:"type:decimal(9,4);not null"`
	StartDate      time.Time       `json:"start_date" gorm:"not null"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	IsActive       bool            `json:"is_active" gorm:"not null;index"`
}

func (IncentiveProgram) TableName() string {
	return "incentive_programs"
}

// ActiveAt reports whether the program runs at t.
func (p *IncentiveProgram) ActiveAt(t time.Time) bool {
	if !p.IsActive || t.Before(p.StartDate) {
		return false
	}
	return p.EndDate == nil || t.Before(*p.EndDate)
}
