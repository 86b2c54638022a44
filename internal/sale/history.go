package sale

import (
	"context"
	"time"

	"gorm.io/gorm"

	"vendorsales-backend/internal/models"
)

// History answers the risk scorer's questions from the sales table.
type History struct {
	db *gorm.DB
}

func NewHistory(db *gorm.DB) *History {
	return &History{db: db}
}

func (h *History) base(ctx context.Context, exclude uint) *gorm.DB {
	q := h.db.WithContext(ctx).Model(&models.Sale{})
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	return q
}

func (h *History) CountByIMEI(ctx context.Context, imei string, exclude uint) (int64, error) {
	var n int64
	err := h.base(ctx, exclude).Where("imei = ?", imei).Count(&n).Error
	return n, err
}

func (h *History) VendorSaleStats(ctx context.Context, vendorID uint, since time.Time, exclude uint) (int64, int64, error) {
	var row struct {
		Total    int64
		Rejected int64
	}
	err := h.base(ctx, exclude).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS rejected", models.SaleStatusRejected).
		Where("vendor_id = ? AND created_at >= ?", vendorID, since).
		Scan(&row).Error
	return row.Total, row.Rejected, err
}

func (h *History) CountVendorSalesSince(ctx context.Context, vendorID uint, since time.Time, exclude uint) (int64, error) {
	var n int64
	err := h.base(ctx, exclude).
		Where("vendor_id = ? AND created_at >= ?", vendorID, since).
		Count(&n).Error
	return n, err
}
