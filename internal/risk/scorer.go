// Package risk scores a candidate sale from its history and identity signals.
//
// Every factor is evaluated on every call so the reason list is complete.
// A factor whose history query fails contributes nothing when the scorer is
// fail-open; the assessment is then marked Degraded and the failure listed.
package risk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vendorsales-backend/internal/inventory"
	"vendorsales-backend/internal/logger"
	"vendorsales-backend/internal/models"
)

const (
	PenaltyInventoryMismatch = 60
	PenaltyDuplicateIMEI     = 30
	PenaltyRejectionHigh     = 40 // rejection rate above 50%
	PenaltyRejectionElevated = 20 // rejection rate above 30%
	PenaltyFrequency         = 15

	HighThreshold   = 50
	MediumThreshold = 25

	RejectionWindow = 30 * 24 * time.Hour
	FrequencyWindow = 24 * time.Hour
	FrequencyLimit  = 10
)

const (
	FactorInventoryMismatch = "inventory_mismatch"
	FactorDuplicateIMEI     = "duplicate_imei"
	FactorRejectionRate     = "rejection_rate"
	FactorFrequency         = "frequency"
)

// History is the read-only view of past sales the scorer needs. excludeSaleID
// removes one sale from every count (0 excludes nothing); rescoring uses it so
// a sale is not counted against itself.
type History interface {
	CountByIMEI(ctx context.Context, imei string, excludeSaleID uint) (int64, error)
	VendorSaleStats(ctx context.Context, vendorID uint, since time.Time, excludeSaleID uint) (total, rejected int64, err error)
	CountVendorSalesSince(ctx context.Context, vendorID uint, since time.Time, excludeSaleID uint) (int64, error)
}

type Input struct {
	IMEI          string
	VendorID      uint
	IP            string
	Inventory     *inventory.Device
	Product       *models.Product
	ExcludeSaleID uint

	// InventoryErr is the inventory lookup failure, if any. It is handled like
	// any other failed factor.
	InventoryErr error

	// ChecksumFailed is set when the IMEI is well-formed but fails Luhn. It is
	// reported as a reason and carries no penalty.
	ChecksumFailed bool

	Now time.Time
}

type Factors struct {
	InventoryMismatch int `json:"inventory_mismatch"`
	DuplicateIMEI     int `json:"duplicate_imei"`
	RejectionRate     int `json:"rejection_rate"`
	Frequency         int `json:"frequency"`
}

func (f Factors) Total() int {
	return f.InventoryMismatch + f.DuplicateIMEI + f.RejectionRate + f.Frequency
}

type Assessment struct {
	Score    int              `json:"score"`
	Level    models.RiskLevel `json:"level"`
	Reasons  []string         `json:"reasons"`
	Factors  Factors          `json:"factors"`
	Degraded bool             `json:"degraded"`
	Failures []string         `json:"failures,omitempty"`
}

type Scorer struct {
	history  History
	failOpen bool
	log      logrus.FieldLogger
}

func NewScorer(history History, failOpen bool, log logrus.FieldLogger) *Scorer {
	if log == nil {
		log = logger.Get()
	}
	return &Scorer{history: history, failOpen: failOpen, log: log}
}

// LevelFor maps a score onto a level.
func LevelFor(score int) models.RiskLevel {
	switch {
	case score >= HighThreshold:
		return models.RiskHigh
	case score >= MediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Assess scores in. With fail-open disabled a failed factor query is returned
// as an error after every factor has run.
func (s *Scorer) Assess(ctx context.Context, in Input) (Assessment, error) {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	var a Assessment
	var firstErr error
	fail := func(factor string, err error) {
		a.Degraded = true
		a.Failures = append(a.Failures, factor+": "+err.Error())
		if firstErr == nil {
			firstErr = fmt.Errorf("risk factor %s: %w", factor, err)
		}
		logger.LogAnomaly(s.log, "risk", "risk_factor_failed", logrus.Fields{
			"factor":    factor,
			"vendor_id": in.VendorID,
		}, err.Error())
	}

	if in.InventoryErr != nil {
		fail(FactorInventoryMismatch, in.InventoryErr)
	} else if p, reason := inventoryMismatch(in.Inventory, in.Product); p > 0 {
		a.Factors.InventoryMismatch = p
		a.Reasons = append(a.Reasons, reason)
	}

	if n, err := s.history.CountByIMEI(ctx, in.IMEI, in.ExcludeSaleID); err != nil {
		fail(FactorDuplicateIMEI, err)
	} else if n > 0 {
		a.Factors.DuplicateIMEI = PenaltyDuplicateIMEI
		a.Reasons = append(a.Reasons, fmt.Sprintf("IMEI already recorded on %d previous sale(s)", n))
	}

	if total, rejected, err := s.history.VendorSaleStats(ctx, in.VendorID, in.Now.Add(-RejectionWindow), in.ExcludeSaleID); err != nil {
		fail(FactorRejectionRate, err)
	} else if p := rejectionPenalty(total, rejected); p > 0 {
		a.Factors.RejectionRate = p
		a.Reasons = append(a.Reasons, fmt.Sprintf("vendor rejection rate %d/%d (%.0f%%) over the last 30 days",
			rejected, total, float64(rejected)*100/float64(total)))
	}

	if n, err := s.history.CountVendorSalesSince(ctx, in.VendorID, in.Now.Add(-FrequencyWindow), in.ExcludeSaleID); err != nil {
		fail(FactorFrequency, err)
	} else if n > FrequencyLimit {
		a.Factors.Frequency = PenaltyFrequency
		a.Reasons = append(a.Reasons, fmt.Sprintf("%d sales submitted in the last 24 hours", n))
	}

	if in.ChecksumFailed {
		a.Reasons = append(a.Reasons, "IMEI checksum mismatch")
	}

	a.Score = a.Factors.Total()
	a.Level = LevelFor(a.Score)

	if firstErr != nil && !s.failOpen {
		return a, firstErr
	}
	return a, nil
}

// inventoryMismatch flags a sale whose selected product and inventory model
// share no case-insensitive substring relation.
func inventoryMismatch(dev *inventory.Device, product *models.Product) (int, string) {
	if dev == nil || product == nil {
		return 0, ""
	}
	name := strings.ToLower(strings.TrimSpace(product.Name))
	model := strings.ToLower(strings.TrimSpace(dev.Model))
	if strings.Contains(name, model) || strings.Contains(model, name) {
		return 0, ""
	}
	return PenaltyInventoryMismatch, fmt.Sprintf("IMEI model mismatch: selected %q, inventory has %q", product.Name, dev.Model)
}

func rejectionPenalty(total, rejected int64) int {
	if total == 0 {
		return 0
	}
	switch {
	case rejected*2 > total:
		return PenaltyRejectionHigh
	case rejected*10 > total*3:
		return PenaltyRejectionElevated
	default:
		return 0
	}
}
