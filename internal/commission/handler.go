package commission

import (
	"time"

	"vendorsales-backend/internal/auth"
	"vendorsales-backend/internal/httpx"
	"vendorsales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/commissions?status=pending&vendor_id=1&batch_id=2&from=2024-01-01&to=2024-01-31
func ListCommissionsHandler(l *Ledger, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var f ListFilter
		if f.VendorID, err = httpx.QueryID(c, "vendor_id"); err != nil {
			return err
		}
		if f.BatchID, err = httpx.QueryID(c, "batch_id"); err != nil {
			return err
		}
		if f.From, f.To, err = httpx.QueryDateRange(c, loc); err != nil {
			return err
		}
		f.Status = models.CommissionStatus(c.Query("status"))

		rows, err := l.List(c.UserContext(), a, f)
		if err != nil {
			return err
		}
		return c.JSON(rows)
	}
}

// GET /api/commissions/summary
// Vendors always get their own totals; admins pass ?vendor_id=.
func CommissionSummaryHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		vendorID := a.VendorScope()
		if vendorID == nil {
			if vendorID, err = httpx.QueryID(c, "vendor_id"); err != nil {
				return err
			}
			if vendorID == nil {
				return fiber.NewError(fiber.StatusBadRequest, "vendor_id is required")
			}
		}

		sum, err := l.Summary(c.UserContext(), *vendorID)
		if err != nil {
			return err
		}
		return c.JSON(sum)
	}
}

// GET /api/admin/commissions/unclaimed
func UnclaimedCommissionsHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payouts, err := l.Unclaimed(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(payouts)
	}
}
