package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vendorsales-backend/internal/models"
)

func Vendor(t testing.TB, db *gorm.DB, name string) models.Vendor {
	t.Helper()
	var n int64
	db.Model(&models.Vendor{}).Count(&n)
	v := models.Vendor{Code: fmt.Sprintf("VND-%03d", n+1), Name: name, IsActive: true}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	return v
}

func Product(t testing.TB, db *gorm.DB, name string, typ models.CommissionType, value string) models.Product {
	t.Helper()
	p := models.Product{
		Name:            name,
		CommissionType:  typ,
		CommissionValue: decimal.RequireFromString(value),
		IsActive:        true,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// Sale inserts a sale directly, bypassing submission.
func Sale(t testing.TB, db *gorm.DB, vendorID, productID uint, imei, price string, status models.SaleStatus) models.Sale {
	t.Helper()
	var n int64
	db.Model(&models.Sale{}).Count(&n)
	s := models.Sale{
		Code:      fmt.Sprintf("VT-20240101-%03d", n+1),
		VendorID:  vendorID,
		ProductID: productID,
		IMEI:      imei,
		SalePrice: decimal.RequireFromString(price),
		Channel:   models.ChannelStore,
		Status:    status,
	}
	if status != models.SaleStatusPending {
		by := uint(1)
		at := time.Now()
		s.ValidatedBy = &by
		s.ValidatedAt = &at
	}
	if status == models.SaleStatusRejected {
		reason := "fixture"
		s.RejectionReason = &reason
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return s
}

// Commission inserts an approved sale and its pending commission.
func Commission(t testing.TB, db *gorm.DB, vendorID, productID uint, imei, price, amount string) models.Commission {
	t.Helper()
	s := Sale(t, db, vendorID, productID, imei, price, models.SaleStatusApproved)
	c := models.Commission{
		SaleID:           s.ID,
		VendorID:         vendorID,
		ProductID:        productID,
		BaseAmount:       s.SalePrice,
		CommissionAmount: decimal.RequireFromString(amount),
		Status:           models.CommissionStatusPending,
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create commission: %v", err)
	}
	return c
}
