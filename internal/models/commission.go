// internal/models/commission.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionRecord is one rated vendor earning tied to a transaction.
type CommissionRecord struct {
	BaseModel
	VendorID         string           `json:"vendor_id" gorm:"size:64;not null;index"`
	OrderReference   string           `json:"order_reference" gorm:"size:128;index"`
	TransactionDate  time.Time        `json:"transaction_date" gorm:"not null;index"`
	Category         string           `json:"category" gorm:"size:100;index"`
	CommissionType   CommissionType   `json:"commission_type" gorm:"type:varchar(20);not null"`
	BaseAmount       decimal.Decimal  `json:"base_amount" gorm:"type:decimal(14,2);not null"`
	CommissionAmount decimal.Decimal  `json:"commission_amount" gorm:"type:decimal(14,2);not null"`
	AppliedRate      decimal.Decimal  `json:"applied_rate" gorm:"type:decimal(9,4);not null;default:0"`
	RevenueModelID   *uuid.UUID       `json:"revenue_model_id,omitempty" gorm:"type:uuid;index"`
	Currency         string           `json:"currency" gorm:"size:3;not null;default:'USD'"`
	Status           CommissionStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus    PaymentStatus    `json:"payment_status" gorm:"type:varchar(20);not null;default:'unpaid';index"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	Notes            string           `json:"notes,omitempty" gorm:"type:text"`

	// Relationships
	RevenueModel *RevenueModel `json:"revenue_model,omitempty" gorm:"foreignKey:RevenueModelID"`
}

func (CommissionRecord) TableName() string {
	return "vendor_commissions"
}

// IsLocked reports whether the record reached the paid terminal state.
func (c *CommissionRecord) IsLocked() bool {
	return c.Status == CommissionStatusPaid || c.PaymentStatus == PaymentStatusPaid
}

// CommissionAdjustment is a proposed correction to a commission record's amount.
// Exactly one of ProposedDelta and CorrectedAmount is set.
type CommissionAdjustment struct {
	BaseModel
	CommissionID    uuid.UUID           `json:"commission_id" gorm:"type:uuid;not null;index"`
	AdjustmentType  AdjustmentType      `json:"adjustment_type" gorm:"type:varchar(30);not null;index"`
	ProposedDelta   decimal.NullDecimal `json:"proposed_delta" gorm:"type:decimal(14,2)"`
	CorrectedAmount decimal.NullDecimal `json:"corrected_amount" gorm:"type:decimal(14,2)"`
	Reason          string              `json:"reason" gorm:"type:text"`
	Status          AdjustmentStatus    `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	RequestedBy     string              `json:"requested_by" gorm:"size:64"`
	ApprovedBy      string              `json:"approved_by,omitempty" gorm:"size:64"`
	ApprovedAt      *time.Time          `json:"approved_at,omitempty"`
	RejectedBy      string              `json:"rejected_by,omitempty" gorm:"size:64"`
	RejectedAt      *time.Time          `json:"rejected_at,omitempty"`
	RejectionReason string              `json:"rejection_reason,omitempty" gorm:"type:text"`
	PreviousAmount  decimal.NullDecimal `json:"previous_amount" gorm:"type:decimal(14,2)"`
	ResultingAmount decimal.NullDecimal `json:"resulting_amount" gorm:"type:decimal(14,2)"`
	DisputeID       *uuid.UUID          `json:"dispute_id,omitempty" gorm:"type:uuid;index"`
}

func (CommissionAdjustment) TableName() string {
	return "commission_adjustments"
}

// Apply returns the commission amount that results from applying the adjustment to current.
func (a *CommissionAdjustment) Apply(current decimal.Decimal) decimal.Decimal {
	if a.CorrectedAmount.Valid {
		return a.CorrectedAmount.Decimal
	}
	return current.Add(a.ProposedDelta.Decimal)
}

// CommissionAnalytics is a precomputed daily rollup of one vendor's ledger.
type CommissionAnalytics struct {
	BaseModel
	VendorID          string          `json:"vendor_id" gorm:"size:64;not null;uniqueIndex:idx_commission_analytics_vendor_date"`
	AnalyticsDate     time.Time       `json:"analytics_date" gorm:"type:date;not null;uniqueIndex:idx_commission_analytics_vendor_date"`
	TotalTransactions int64           `json:"total_transactions" gorm:"not null;default:0"`
	TotalBaseAmount   decimal.Decimal `json:"total_base_amount" gorm:"type:decimal(16,2);not null"`
	TotalCommission   decimal.Decimal `json:"total_commission" gorm:"type:decimal(16,2);not null"`
	AverageCommission decimal.Decimal `json:"average_commission" gorm:"type:decimal(16,2);not null"`
	PendingCount      int64           `json:"pending_count" gorm:"not null;default:0"`
	ApprovedCount     int64           `json:"approved_count" gorm:"not null;default:0"`
	RejectedCount     int64           `json:"rejected_count" gorm:"not null;default:0"`
	PaidCount         int64           `json:"paid_count" gorm:"not null;default:0"`
	AdjustmentCount   int64           `json:"adjustment_count" gorm:"not null;default:0"`
	AdjustmentTotal   decimal.Decimal `json:"adjustment_total" gorm:"type:decimal(16,2);not null"`
}

func (CommissionAnalytics) TableName() string {
	return "commission_analytics"
}
