package models

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionApprove AuditAction = "approve"
	AuditActionReject  AuditAction = "reject"
	AuditActionClaim   AuditAction = "claim"
	AuditActionAnomaly AuditAction = "anomaly"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	VendorID *uint `gorm:"index" json:"vendor_id"`

	// Zero for system-initiated entries.
	UserID   uint   `gorm:"index" json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"`

	// e.g. "sale", "commission", "payment_batch", "product"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20;index" json:"action"`
	Description string      `gorm:"size:500" json:"description"`

	BeforeData string `gorm:"type:text" json:"before_data"`
	AfterData  string `gorm:"type:text" json:"after_data"`

	RequestID string `gorm:"size:64" json:"request_id"`
	IPAddress string `gorm:"size:64" json:"ip_address"`
}
