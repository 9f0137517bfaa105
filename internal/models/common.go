// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the primary key on the client so ids do not depend on a database extension.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}

	return json.Unmarshal(bytes, j)
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported JSON column value")
	}
}

// Enums

type CommissionType string

const (
	CommissionTypePercentage CommissionType = "percentage"
	CommissionTypeTiered     CommissionType = "tiered"
	CommissionTypeFlatFee    CommissionType = "flat_fee"
	CommissionTypeHybrid     CommissionType = "hybrid"
)

func (t CommissionType) Valid() bool {
	switch t {
	case CommissionTypePercentage, CommissionTypeTiered, CommissionTypeFlatFee, CommissionTypeHybrid:
		return true
	}
	return false
}

type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "pending"
	CommissionStatusApproved CommissionStatus = "approved"
	CommissionStatusRejected CommissionStatus = "rejected"
	CommissionStatusPaid     CommissionStatus = "paid"
)

func (s CommissionStatus) Valid() bool {
	switch s {
	case CommissionStatusPending, CommissionStatusApproved, CommissionStatusRejected, CommissionStatusPaid:
		return true
	}
	return false
}

// CanTransitionTo reports whether the ledger allows moving from s to next.
func (s CommissionStatus) CanTransitionTo(next CommissionStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case CommissionStatusPending:
		return next == CommissionStatusApproved || next == CommissionStatusRejected
	case CommissionStatusApproved:
		return next == CommissionStatusPaid || next == CommissionStatusPending
	case CommissionStatusRejected:
		return next == CommissionStatusPending
	case CommissionStatusPaid:
		return false
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid:
		return true
	}
	return false
}

type AdjustmentType string

const (
	AdjustmentTypeCorrection        AdjustmentType = "correction"
	AdjustmentTypeBonus             AdjustmentType = "bonus"
	AdjustmentTypePenalty           AdjustmentType = "penalty"
	AdjustmentTypeRefund            AdjustmentType = "refund"
	AdjustmentTypeDisputeResolution AdjustmentType = "dispute_resolution"
)

func (t AdjustmentType) Valid() bool {
	switch t {
	case AdjustmentTypeCorrection, AdjustmentTypeBonus, AdjustmentTypePenalty,
		AdjustmentTypeRefund, AdjustmentTypeDisputeResolution:
		return true
	}
	return false
}

type AdjustmentStatus string

const (
	AdjustmentStatusPending  AdjustmentStatus = "pending"
	AdjustmentStatusApproved AdjustmentStatus = "approved"
	AdjustmentStatusRejected AdjustmentStatus = "rejected"
)

func (s AdjustmentStatus) Valid() bool {
	switch s {
	case AdjustmentStatusPending, AdjustmentStatusApproved, AdjustmentStatusRejected:
		return true
	}
	return false
}

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusRejected    DisputeStatus = "rejected"
	DisputeStatusEscalated   DisputeStatus = "escalated"
)

func (s DisputeStatus) Valid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusUnderReview, DisputeStatusResolved,
		DisputeStatusRejected, DisputeStatusEscalated:
		return true
	}
	return false
}

// IsTerminal reports whether the dispute has been closed.
func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusRejected
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	switch s {
	case DisputeStatusOpen:
		return next == DisputeStatusUnderReview || next == DisputeStatusEscalated ||
			next == DisputeStatusRejected || next == DisputeStatusResolved
	case DisputeStatusUnderReview:
		return next == DisputeStatusResolved || next == DisputeStatusRejected || next == DisputeStatusEscalated
	case DisputeStatusEscalated:
		return next == DisputeStatusUnderReview || next == DisputeStatusResolved ||
			next == DisputeStatusRejected || next == DisputeStatusEscalated
	case DisputeStatusResolved, DisputeStatusRejected:
		return false
	}
	return false
}

type DisputePriority string

const (
	DisputePriorityLow      DisputePriority = "low"
	DisputePriorityMedium   DisputePriority = "medium"
	DisputePriorityHigh     DisputePriority = "high"
	DisputePriorityCritical DisputePriority = "critical"
)

func (p DisputePriority) Valid() bool {
	switch p {
	case DisputePriorityLow, DisputePriorityMedium, DisputePriorityHigh, DisputePriorityCritical:
		return true
	}
	return false
}

type PayoutFrequency string

const (
	PayoutFrequencyWeekly   PayoutFrequency = "weekly"
	PayoutFrequencyBiweekly PayoutFrequency = "biweekly"
	PayoutFrequencyMonthly  PayoutFrequency = "monthly"
)

func (f PayoutFrequency) Valid() bool {
	switch f {
	case PayoutFrequencyWeekly, PayoutFrequencyBiweekly, PayoutFrequencyMonthly:
		return true
	}
	return false
}

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleFinance UserRole = "finance"
	UserRoleVendor  UserRole = "vendor"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleFinance, UserRoleVendor:
		return true
	}
	return false
}
