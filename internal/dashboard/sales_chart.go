// Package dashboard aggregates sales and commissions for the review screens.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/apperr"
	"vendorsales-backend/internal/auth"
	"vendorsales-backend/internal/httpx"
	"vendorsales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ChartPoint struct {
	Label      string          `json:"label"` // bucket start, YYYY-MM-DD
	Submitted  int             `json:"submitted"`
	Approved   int             `json:"approved"`
	Rejected   int             `json:"rejected"`
	Commission decimal.Decimal `json:"commission"`
}

type ChartTotals struct {
	Submitted  int             `json:"submitted"`
	Approved   int             `json:"approved"`
	Rejected   int             `json:"rejected"`
	Commission decimal.Decimal `json:"commission"`
}

type ChartResponse struct {
	VendorID *uint        `json:"vendor_id"`
	Period   string       `json:"period"` // daily | weekly | monthly
	From     string       `json:"from"`
	To       string       `json:"to"` // exclusive
	Points   []ChartPoint `json:"points"`
	Totals   ChartTotals  `json:"totals"`
}

type ChartQuery struct {
	VendorID *uint
	Period   string
	Count    int
	Now      time.Time
	Loc      *time.Location
}

func defaultCount(period string) int {
	switch period {
	case "weekly":
		return 8
	case "monthly":
		return 12
	}
	return 7
}

// bucketStart truncates t to the start of its day, ISO week or month in loc.
func bucketStart(period string, t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	switch period {
	case "weekly":
		offset := (int(day.Weekday()) + 6) % 7 // monday = 0
		return day.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	}
	return day
}

func step(period string, t time.Time, n int) time.Time {
	switch period {
	case "weekly":
		return t.AddDate(0, 0, 7*n)
	case "monthly":
		return t.AddDate(0, n, 0)
	}
	return t.AddDate(0, 0, n)
}

// BuildChart counts submissions and decisions per bucket, and sums the
// commissions created in each bucket. Empty buckets are kept so the series is
// always q.Count points long.
func BuildChart(ctx context.Context, db *gorm.DB, a actor.Actor, q ChartQuery) (*ChartResponse, error) {
	if scope := a.VendorScope(); scope != nil {
		q.VendorID = scope
	}
	if q.Loc == nil {
		q.Loc = time.UTC
	}
	switch q.Period {
	case "daily", "weekly", "monthly":
	case "":
		q.Period = "daily"
	default:
		return nil, apperr.Validation("period must be daily, weekly or monthly")
	}
	if q.Count <= 0 {
		q.Count = defaultCount(q.Period)
	}
	if q.Count > 366 {
		return nil, apperr.Validation("count must be at most 366")
	}

	last := bucketStart(q.Period, q.Now, q.Loc)
	start := step(q.Period, last, -(q.Count - 1))
	end := step(q.Period, last, 1)

	points := make([]ChartPoint, q.Count)
	index := make(map[string]int, q.Count)
	for i := range points {
		label := step(q.Period, start, i).Format("2006-01-02")
		points[i] = ChartPoint{Label: label, Commission: decimal.Zero}
		index[label] = i
	}

	scoped := func(model any) *gorm.DB {
		tx := db.WithContext(ctx).Model(model).Where("created_at >= ? AND created_at < ?", start, end)
		if q.VendorID != nil {
			tx = tx.Where("vendor_id = ?", *q.VendorID)
		}
		return tx
	}

	var sales []models.Sale
	if err := scoped(&models.Sale{}).Select("id", "status", "created_at").Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	var commissions []models.Commission
	if err := scoped(&models.Commission{}).Select("id", "commission_amount", "created_at").Find(&commissions).Error; err != nil {
		return nil, fmt.Errorf("load commissions: %w", err)
	}

	resp := &ChartResponse{
		VendorID: q.VendorID,
		Period:   q.Period,
		From:     start.Format("2006-01-02"),
		To:       end.Format("2006-01-02"),
		Points:   points,
		Totals:   ChartTotals{Commission: decimal.Zero},
	}

	for _, s := range sales {
		i, ok := index[bucketStart(q.Period, s.CreatedAt, q.Loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		points[i].Submitted++
		resp.Totals.Submitted++
		switch s.Status {
		case models.SaleStatusApproved:
			points[i].Approved++
			resp.Totals.Approved++
		case models.SaleStatusRejected:
			points[i].Rejected++
			resp.Totals.Rejected++
		}
	}
	for _, c := range commissions {
		i, ok := index[bucketStart(q.Period, c.CreatedAt, q.Loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		points[i].Commission = points[i].Commission.Add(c.CommissionAmount)
		resp.Totals.Commission = resp.Totals.Commission.Add(c.CommissionAmount)
	}
	return resp, nil
}

// GET /api/dashboard/sales-chart?period=daily&count=7&vendor_id=1
func SalesChartHandler(db *gorm.DB, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		vendorID, err := httpx.QueryID(c, "vendor_id")
		if err != nil {
			return err
		}

		resp, err := BuildChart(c.UserContext(), db, a, ChartQuery{
			VendorID: vendorID,
			Period:   c.Query("period", "daily"),
			Count:    c.QueryInt("count", 0),
			Now:      time.Now(),
			Loc:      loc,
		})
		if err != nil {
			return err
		}
		return c.JSON(resp)
	}
}
