package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionStatus string

const (
	CommissionStatusPending    CommissionStatus = "pending"
	CommissionStatusProcessing CommissionStatus = "processing"
	CommissionStatusPaid       CommissionStatus = "paid"
)

// Commission is created together with its sale's approval and is never
// written outside the sale and payout packages.
type Commission struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	SaleID           uint             `gorm:"uniqueIndex;not null" json:"sale_id"`
	Sale             *Sale            `json:"-"`
	VendorID         uint             `gorm:"index;not null" json:"vendor_id"`
	Vendor           *Vendor          `json:"-"`
	ProductID        uint             `gorm:"index;not null" json:"product_id"`
	BaseAmount       decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"base_amount"`
	CommissionAmount decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"commission_amount"`
	Status           CommissionStatus `gorm:"size:20;index;not null" json:"status"`
	PaymentBatchID   *uint            `gorm:"index" json:"payment_batch_id"`
	PaidAt           *time.Time       `json:"paid_at"`
	CreatedAt        time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
