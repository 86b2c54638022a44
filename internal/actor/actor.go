// Package actor carries the caller identity that core operations consume.
// It is built once by the auth middleware and never re-derived downstream.
package actor

import (
	"vendorsales-backend/internal/apperr"
	"vendorsales-backend/internal/models"
)

type Actor struct {
	UserID    uint
	Name      string
	Role      models.UserRole
	VendorID  *uint
	RequestID string
	IP        string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) IsVendor() bool {
	return a.Role == models.RoleVendor && a.VendorID != nil
}

func (a Actor) RequireAdmin() error {
	if !a.IsAdmin() {
		return apperr.Forbidden("admin role required")
	}
	return nil
}

// VendorScope returns the vendor a vendor actor is confined to. Admins get nil
// and see every vendor.
func (a Actor) VendorScope() *uint {
	if a.IsAdmin() {
		return nil
	}
	if a.VendorID == nil {
		// vendor users without a vendor must match nothing
		none := uint(0)
		return &none
	}
	return a.VendorID
}

// CanAccessVendor reports whether the actor may read data owned by vendorID.
func (a Actor) CanAccessVendor(vendorID uint) bool {
	if a.IsAdmin() {
		return true
	}
	return a.VendorID != nil && *a.VendorID == vendorID
}

// System is used for entries no user initiated.
var System = Actor{Name: "system"}
