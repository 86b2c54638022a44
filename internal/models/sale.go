package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleStatus string

const (
	SaleStatusPending  SaleStatus = "pending"
	SaleStatusApproved SaleStatus = "approved"
	SaleStatusRejected SaleStatus = "rejected"
)

func (s SaleStatus) IsTerminal() bool {
	return s == SaleStatusApproved || s == SaleStatusRejected
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type SaleChannel string

const (
	ChannelStore       SaleChannel = "store"
	ChannelOnline      SaleChannel = "online"
	ChannelMarketplace SaleChannel = "marketplace"
	ChannelOther       SaleChannel = "other"
)

func (c SaleChannel) Valid() bool {
	switch c {
	case ChannelStore, ChannelOnline, ChannelMarketplace, ChannelOther:
		return true
	}
	return false
}

type Sale struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         string          `gorm:"size:20;uniqueIndex;not null" json:"code"` // VT-YYYYMMDD-NNN
	VendorID     uint            `gorm:"index;not null" json:"vendor_id"`
	Vendor       *Vendor         `json:"-"`
	ProductID    uint            `gorm:"index;not null" json:"product_id"`
	Product      *Product        `json:"-"`
	IMEI         string          `gorm:"column:imei;size:15;index;not null" json:"imei"`
	SalePrice    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"sale_price"`
	Channel      SaleChannel     `gorm:"size:20;not null" json:"channel"`
	RiskLevel    *RiskLevel      `gorm:"size:10" json:"risk_level"`
	RiskScore    *int            `json:"risk_score"`
	RiskDegraded bool            `gorm:"not null;default:false" json:"risk_degraded"`
	Status       SaleStatus      `gorm:"size:20;index;not null" json:"status"`
	EvidenceRef  string          `gorm:"size:255" json:"evidence_ref"`

	// Set only when rejected.
	RejectionReason *string `gorm:"size:500" json:"rejection_reason"`

	// Set only once the sale leaves pending.
	ValidatedBy *uint      `json:"validated_by"`
	ValidatedAt *time.Time `json:"validated_at"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
