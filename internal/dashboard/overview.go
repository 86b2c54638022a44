package dashboard

import (
	"context"
	"fmt"

	"vendorsales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Overview is the admin review queue at a glance.
type Overview struct {
	PendingSales      int64           `json:"pending_sales"`
	HighRiskPending   int64           `json:"high_risk_pending"`
	DegradedPending   int64           `json:"degraded_pending"`
	UnclaimedCount    int64           `json:"unclaimed_commissions"`
	UnclaimedTotal    decimal.Decimal `json:"unclaimed_total"`
	OpenBatches       int64           `json:"open_batches"`
	ProcessingBatches int64           `json:"processing_batches"`
}

func LoadOverview(ctx context.Context, db *gorm.DB) (*Overview, error) {
	db = db.WithContext(ctx)
	o := &Overview{UnclaimedTotal: decimal.Zero}

	pending := func() *gorm.DB {
		return db.Model(&models.Sale{}).Where("status = ?", models.SaleStatusPending)
	}
	if err := pending().Count(&o.PendingSales).Error; err != nil {
		return nil, fmt.Errorf("count pending sales: %w", err)
	}
	if err := pending().Where("risk_level = ?", models.RiskHigh).Count(&o.HighRiskPending).Error; err != nil {
		return nil, fmt.Errorf("count high risk sales: %w", err)
	}
	if err := pending().Where("risk_degraded = ?", true).Count(&o.DegradedPending).Error; err != nil {
		return nil, fmt.Errorf("count degraded sales: %w", err)
	}

	var unclaimed []models.Commission
	err := db.Select("id", "commission_amount").
		Where("status = ? AND payment_batch_id IS NULL", models.CommissionStatusPending).
		Find(&unclaimed).Error
	if err != nil {
		return nil, fmt.Errorf("load unclaimed commissions: %w", err)
	}
	o.UnclaimedCount = int64(len(unclaimed))
	for _, c := range unclaimed {
		o.UnclaimedTotal = o.UnclaimedTotal.Add(c.CommissionAmount)
	}

	if err := db.Model(&models.PaymentBatch{}).Where("status = ?", models.BatchStatusPending).
		Count(&o.OpenBatches).Error; err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}
	if err := db.Model(&models.PaymentBatch{}).Where("status = ?", models.BatchStatusProcessing).
		Count(&o.ProcessingBatches).Error; err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}
	return o, nil
}

// GET /api/admin/dashboard/overview
func OverviewHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := LoadOverview(c.UserContext(), db)
		if err != nil {
			return err
		}
		return c.JSON(o)
	}
}
