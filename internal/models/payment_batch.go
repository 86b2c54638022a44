package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

type PaymentBatch struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         string          `gorm:"size:20;uniqueIndex;not null" json:"code"` // PB-YYYYMMDD-NNN
	PeriodStart  time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd    time.Time       `gorm:"not null" json:"period_end"`
	TotalVendors int             `gorm:"not null" json:"total_vendors"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	Status       BatchStatus     `gorm:"size:20;index;not null" json:"status"`
	Notes        string          `gorm:"size:500" json:"notes"`
	CreatedBy    uint            `gorm:"not null" json:"created_by"`
	CompletedAt  *time.Time      `json:"completed_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Commissions []Commission `json:"-"`
}
