package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleVendor UserRole = "vendor"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	VendorID     *uint     `gorm:"index" json:"vendor_id"`
	Vendor       *Vendor   `json:"-"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         UserRole  `gorm:"size:20;not null" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
