// Package commission derives commission amounts from product policy and keeps
// the per-vendor ledger views over commission rows.
package commission

import (
	"github.com/shopspring/decimal"

	"vendorsales-backend/internal/models"
)

// Policy is the part of a product that decides its commission.
type Policy struct {
	Type  models.CommissionType
	Value decimal.Decimal
}

func PolicyOf(p models.Product) Policy {
	return Policy{Type: p.CommissionType, Value: p.CommissionValue}
}

// Calculate returns the commission owed on a sale at price. Fixed policies
// ignore the price; percentage policies return price*value/100 unrounded.
// An unknown type yields zero and ok=false; callers must record that as an
// anomaly because it means the product row is corrupt.
func Calculate(p Policy, price decimal.Decimal) (amount decimal.Decimal, ok bool) {
	switch p.Type {
	case models.CommissionTypeFixed:
		return p.Value, true
	case models.CommissionTypePercentage:
		// shifting by two places divides by 100 exactly
		return price.Mul(p.Value).Shift(-2), true
	default:
		return decimal.Zero, false
	}
}

// ValidPolicy reports whether p can be stored on a product.
func ValidPolicy(p Policy) bool {
	switch p.Type {
	case models.CommissionTypeFixed:
		return !p.Value.IsNegative()
	case models.CommissionTypePercentage:
		return !p.Value.IsNegative() && p.Value.LessThanOrEqual(decimal.NewFromInt(100))
	}
	return false
}
