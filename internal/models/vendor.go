package models

import "time"

// Vendor is an independent reseller submitting device sales.
type Vendor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:20;uniqueIndex;not null" json:"code"` // VND-NNN
	Name      string    `gorm:"size:150;not null" json:"name"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Address   string    `gorm:"size:255" json:"address"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Users        []User        `json:"-"`
	BankAccounts []BankAccount `json:"-"`
}
