package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionType string

const (
	CommissionTypeFixed      CommissionType = "fixed"
	CommissionTypePercentage CommissionType = "percentage"
)

// Product carries the commission policy applied when a sale of it is approved.
type Product struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:150;not null;uniqueIndex" json:"name"`
	Brand           string          `gorm:"size:100" json:"brand"`
	Model           string          `gorm:"size:100" json:"model"`
	CommissionType  CommissionType  `gorm:"size:20;not null" json:"commission_type"`
	CommissionValue decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"commission_value"`
	IsActive        bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
