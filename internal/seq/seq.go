// Package seq issues the human-readable codes: VT-YYYYMMDD-NNN for sales,
// PB-YYYYMMDD-NNN for payment batches and VND-NNN for vendors.
package seq

import (
	"fmt"
	"time"

	"vendorsales-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ScopeSale   = "sale"
	ScopeBatch  = "payment_batch"
	ScopeVendor = "vendor"
)

type Generator struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{loc: loc, now: time.Now}
}

// WithClock returns a copy of g reading the current time from now.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	cp := *g
	cp.now = now
	return &cp
}

func (g *Generator) SaleCode(tx *gorm.DB) (string, error) {
	return g.daily(tx, ScopeSale, "VT")
}

func (g *Generator) BatchCode(tx *gorm.DB) (string, error) {
	return g.daily(tx, ScopeBatch, "PB")
}

func (g *Generator) VendorCode(tx *gorm.DB) (string, error) {
	n, err := Next(tx, ScopeVendor, "")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("VND-%03d", n), nil
}

func (g *Generator) daily(tx *gorm.DB, scope, prefix string) (string, error) {
	day := g.now().In(g.loc).Format("20060102")
	n, err := Next(tx, scope, day)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%03d", prefix, day, n), nil
}

// Next increments and returns the counter for (scope, day). The increment is a
// single upsert so concurrent callers inside their own transactions never
// receive the same value.
func Next(tx *gorm.DB, scope, day string) (int, error) {
	row := models.DailySequence{Scope: scope, Day: day, LastValue: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_value": gorm.Expr("daily_sequences.last_value + 1"),
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, fmt.Errorf("sequence %s/%s: %w", scope, day, err)
	}

	var cur models.DailySequence
	if err := tx.Where("scope = ? AND day = ?", scope, day).First(&cur).Error; err != nil {
		return 0, fmt.Errorf("sequence %s/%s read: %w", scope, day, err)
	}
	return cur.LastValue, nil
}
