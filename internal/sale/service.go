// Package sale owns the sale lifecycle: submission with risk scoring, and the
// single terminal admin decision that either approves (creating the
// commission) or rejects it.
package sale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/apperr"
	"vendorsales-backend/internal/audit"
	"vendorsales-backend/internal/commission"
	"vendorsales-backend/internal/imei"
	"vendorsales-backend/internal/inventory"
	"vendorsales-backend/internal/logger"
	"vendorsales-backend/internal/models"
	"vendorsales-backend/internal/risk"
	"vendorsales-backend/internal/seq"
)

const (
	moduleName      = "sale"
	entitySale      = "sale"
	maxReasonLength = 500
)

type Service struct {
	db              *gorm.DB
	scorer          *risk.Scorer
	inventory       inventory.Lookup
	codes           *seq.Generator
	requireChecksum bool
	log             logrus.FieldLogger
	now             func() time.Time
}

func NewService(db *gorm.DB, scorer *risk.Scorer, inv inventory.Lookup, codes *seq.Generator, requireChecksum bool, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logger.Get()
	}
	return &Service{
		db:              db,
		scorer:          scorer,
		inventory:       inv,
		codes:           codes,
		requireChecksum: requireChecksum,
		log:             log,
		now:             time.Now,
	}
}

type SubmitInput struct {
	// VendorID is only honoured for admins submitting on a vendor's behalf.
	VendorID    *uint
	ProductID   uint
	IMEI        string
	SalePrice   decimal.Decimal
	Channel     models.SaleChannel
	EvidenceRef string
}

type Result struct {
	Sale       models.Sale        `json:"sale"`
	Assessment *risk.Assessment   `json:"risk,omitempty"`
	Commission *models.Commission `json:"commission,omitempty"`
}

// Submit validates the IMEI, scores the sale and stores it as pending. Risk
// never rejects a sale by itself.
func (s *Service) Submit(ctx context.Context, a actor.Actor, in SubmitInput) (*Result, error) {
	vendorID, err := submittingVendor(a, in.VendorID)
	if err != nil {
		return nil, err
	}

	check := imei.Validate(in.IMEI)
	if errors.Is(check.Err, imei.ErrFormat) {
		return nil, apperr.Validation("invalid IMEI %s: %s", imei.Mask(in.IMEI), imei.ErrFormat)
	}
	checksumFailed := errors.Is(check.Err, imei.ErrChecksum)
	if checksumFailed && s.requireChecksum {
		return nil, apperr.Validation("invalid IMEI %s: %s", imei.Mask(in.IMEI), imei.ErrChecksum)
	}
	cleaned := imei.Clean(in.IMEI)

	if !in.SalePrice.IsPositive() {
		return nil, ErrInvalidPrice
	}
	channel := in.Channel
	if channel == "" {
		channel = models.ChannelStore
	}
	if !channel.Valid() {
		return nil, ErrInvalidChannel
	}

	db := s.db.WithContext(ctx)

	var vendor models.Vendor
	if err := db.First(&vendor, vendorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	if !vendor.IsActive {
		return nil, ErrVendorInactive
	}

	var product models.Product
	if err := db.First(&product, in.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	assessment, err := s.assess(ctx, a, cleaned, vendorID, &product, 0, checksumFailed)
	if err != nil {
		return nil, err
	}

	level := assessment.Level
	score := assessment.Score
	sale := models.Sale{
		VendorID:     vendorID,
		ProductID:    product.ID,
		IMEI:         cleaned,
		SalePrice:    in.SalePrice,
		Channel:      channel,
		RiskLevel:    &level,
		RiskScore:    &score,
		RiskDegraded: assessment.Degraded,
		Status:       models.SaleStatusPending,
		EvidenceRef:  strings.TrimSpace(in.EvidenceRef),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		code, err := s.codes.SaleCode(tx)
		if err != nil {
			return err
		}
		sale.Code = code

		if err := tx.Create(&sale).Error; err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		if err := audit.WriteLog(tx, audit.LogOptions{
			Actor:      a,
			VendorID:   &sale.VendorID,
			EntityType: entitySale,
			EntityID:   sale.ID,
			Action:     models.AuditActionCreate,
			Description: fmt.Sprintf("sale %s submitted for IMEI %s, risk %s (%d)",
				sale.Code, imei.Mask(sale.IMEI), level, score),
			After: snapshot(sale),
		}); err != nil {
			return err
		}

		if assessment.Degraded {
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       a,
				VendorID:    &sale.VendorID,
				EntityType:  entitySale,
				EntityID:    sale.ID,
				Action:      models.AuditActionAnomaly,
				Description: "risk assessment degraded: " + strings.Join(assessment.Failures, "; "),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"sale_id":    sale.ID,
		"code":       sale.Code,
		"vendor_id":  sale.VendorID,
		"risk_level": level,
		"risk_score": score,
		"imei":       imei.Mask(sale.IMEI),
	}).Info("sale submitted")

	return &Result{Sale: sale, Assessment: &assessment}, nil
}

// Approve moves a pending sale to approved and creates its commission in the
// same transaction.
func (s *Service) Approve(ctx context.Context, a actor.Actor, saleID uint) (*Result, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}

	var out Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		if err := transition(tx, saleID, map[string]any{
			"status":       models.SaleStatusApproved,
			"validated_by": a.UserID,
			"validated_at": now,
		}); err != nil {
			return err
		}

		var sale models.Sale
		if err := tx.First(&sale, saleID).Error; err != nil {
			return err
		}

		var product models.Product
		if err := tx.First(&product, sale.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		amount, ok := commission.Calculate(commission.PolicyOf(product), sale.SalePrice)
		if !ok {
			logger.LogAnomaly(s.log, moduleName, "unknown_commission_type", logrus.Fields{
				"product_id":      product.ID,
				"commission_type": product.CommissionType,
				"sale_id":         sale.ID,
			}, "unknown commission type, commission recorded as zero")
			if err := audit.WriteLog(tx, audit.LogOptions{
				Actor:       a,
				VendorID:    &sale.VendorID,
				EntityType:  "product",
				EntityID:    product.ID,
				Action:      models.AuditActionAnomaly,
				Description: fmt.Sprintf("unknown commission type %q while approving %s", product.CommissionType, sale.Code),
			}); err != nil {
				return err
			}
		}

		c := models.Commission{
			SaleID:           sale.ID,
			VendorID:         sale.VendorID,
			ProductID:        sale.ProductID,
			BaseAmount:       sale.SalePrice,
			CommissionAmount: amount,
			Status:           models.CommissionStatusPending,
		}
		if err := tx.Create(&c).Error; err != nil {
			return fmt.Errorf("create commission: %w", err)
		}

		if err := audit.WriteLog(tx, audit.LogOptions{
			Actor:       a,
			VendorID:    &sale.VendorID,
			EntityType:  entitySale,
			EntityID:    sale.ID,
			Action:      models.AuditActionApprove,
			Description: fmt.Sprintf("sale %s approved, commission %s", sale.Code, amount.StringFixed(2)),
			Before:      map[string]any{"status": models.SaleStatusPending},
			After:       map[string]any{"status": sale.Status, "commission_id": c.ID, "commission_amount": amount},
		}); err != nil {
			return err
		}

		out.Sale = sale
		out.Commission = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"sale_id":       out.Sale.ID,
		"code":          out.Sale.Code,
		"commission_id": out.Commission.ID,
		"admin_id":      a.UserID,
	}).Info("sale approved")
	return &out, nil
}

// Reject moves a pending sale to rejected. A reason is required.
func (s *Service) Reject(ctx context.Context, a actor.Actor, saleID uint, reason string) (*Result, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, ErrReasonTooLong
	}

	var out Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transition(tx, saleID, map[string]any{
			"status":           models.SaleStatusRejected,
			"rejection_reason": reason,
			"validated_by":     a.UserID,
			"validated_at":     s.now(),
		}); err != nil {
			return err
		}

		if err := tx.First(&out.Sale, saleID).Error; err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       a,
			VendorID:    &out.Sale.VendorID,
			EntityType:  entitySale,
			EntityID:    out.Sale.ID,
			Action:      models.AuditActionReject,
			Description: fmt.Sprintf("sale %s rejected: %s", out.Sale.Code, reason),
			Before:      map[string]any{"status": models.SaleStatusPending},
			After:       map[string]any{"status": out.Sale.Status, "rejection_reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"sale_id":  out.Sale.ID,
		"code":     out.Sale.Code,
		"admin_id": a.UserID,
	}).Info("sale rejected")
	return &out, nil
}

// Rescore re-runs risk scoring for a pending sale. Decided sales are never
// touched.
func (s *Service) Rescore(ctx context.Context, a actor.Actor, saleID uint) (*Result, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var sale models.Sale
	if err := db.First(&sale, saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	if sale.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is already %s", ErrAlreadyDecided, sale.Code, sale.Status)
	}

	var product models.Product
	if err := db.First(&product, sale.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	assessment, err := s.assess(ctx, a, sale.IMEI, sale.VendorID, &product, sale.ID, !imei.Luhn(sale.IMEI))
	if err != nil {
		return nil, err
	}

	before := snapshot(sale)
	level := assessment.Level
	score := assessment.Score

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sale{}).
			Where("id = ? AND status = ?", sale.ID, models.SaleStatusPending).
			Updates(map[string]any{
				"risk_level":    level,
				"risk_score":    score,
				"risk_degraded": assessment.Degraded,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// decided between the read above and this write
			return fmt.Errorf("%w: %s", ErrAlreadyDecided, sale.Code)
		}

		if err := tx.First(&sale, sale.ID).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       a,
			VendorID:    &sale.VendorID,
			EntityType:  entitySale,
			EntityID:    sale.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("sale %s rescored: %s (%d)", sale.Code, level, score),
			Before:      before,
			After:       snapshot(sale),
		})
	})
	if err != nil {
		return nil, err
	}
	return &Result{Sale: sale, Assessment: &assessment}, nil
}

func (s *Service) Get(ctx context.Context, a actor.Actor, saleID uint) (*models.Sale, error) {
	var sale models.Sale
	if err := s.db.WithContext(ctx).First(&sale, saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	// other vendors' sales do not exist as far as a vendor can tell
	if !a.CanAccessVendor(sale.VendorID) {
		return nil, ErrSaleNotFound
	}
	return &sale, nil
}

type ListFilter struct {
	VendorID  *uint
	Status    models.SaleStatus
	RiskLevel models.RiskLevel
	From      *time.Time
	To        *time.Time
	Limit     int
}

const defaultListLimit = 500

// List returns sales newest first. Vendor actors only ever see their own.
func (s *Service) List(ctx context.Context, a actor.Actor, f ListFilter) ([]models.Sale, error) {
	if scope := a.VendorScope(); scope != nil {
		f.VendorID = scope
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, ErrInvalidDateRange
	}

	q := s.db.WithContext(ctx).Model(&models.Sale{})
	if f.VendorID != nil {
		q = q.Where("vendor_id = ?", *f.VendorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.RiskLevel != "" {
		q = q.Where("risk_level = ?", f.RiskLevel)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	limit := f.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	var sales []models.Sale
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

type IMEICheck struct {
	IMEI          string `json:"imei"` // masked
	FormatValid   bool   `json:"format_valid"`
	ChecksumValid bool   `json:"checksum_valid"`
	Error         string `json:"error,omitempty"`
	Duplicate     bool   `json:"duplicate"`
	PreviousSales int64  `json:"previous_sales"`
}

// CheckIMEI probes an IMEI before submission without storing anything.
func (s *Service) CheckIMEI(ctx context.Context, raw string) (*IMEICheck, error) {
	res := imei.Validate(raw)
	out := &IMEICheck{
		IMEI:          imei.Mask(raw),
		FormatValid:   imei.IsFormat(raw),
		ChecksumValid: res.Valid,
		Error:         res.ErrorMessage(),
	}
	if !out.FormatValid {
		return out, nil
	}

	n, err := NewHistory(s.db).CountByIMEI(ctx, imei.Clean(raw), 0)
	if err != nil {
		return nil, fmt.Errorf("count imei: %w", err)
	}
	out.PreviousSales = n
	out.Duplicate = n > 0
	return out, nil
}

func (s *Service) assess(ctx context.Context, a actor.Actor, cleaned string, vendorID uint, product *models.Product, exclude uint, checksumFailed bool) (risk.Assessment, error) {
	dev, invErr := s.inventory.Lookup(ctx, cleaned)
	assessment, err := s.scorer.Assess(ctx, risk.Input{
		IMEI:           cleaned,
		VendorID:       vendorID,
		IP:             a.IP,
		Inventory:      dev,
		InventoryErr:   invErr,
		Product:        product,
		ExcludeSaleID:  exclude,
		ChecksumFailed: checksumFailed,
		Now:            s.now(),
	})
	if err != nil {
		logger.LogError(s.log, moduleName, "assess", "risk scoring failed", logrus.Fields{
			"vendor_id": vendorID,
			"imei":      imei.Mask(cleaned),
		}, err)
		return assessment, ErrRiskUnavailable
	}
	return assessment, nil
}

// transition applies updates to a pending sale. Zero affected rows means the
// sale is missing or already decided; both are reported precisely.
func transition(tx *gorm.DB, saleID uint, updates map[string]any) error {
	res := tx.Model(&models.Sale{}).
		Where("id = ? AND status = ?", saleID, models.SaleStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var cur models.Sale
	if err := tx.Select("id", "code", "status").First(&cur, saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSaleNotFound
		}
		return err
	}
	return fmt.Errorf("%w: %s is already %s", ErrAlreadyDecided, cur.Code, cur.Status)
}

func submittingVendor(a actor.Actor, requested *uint) (uint, error) {
	switch {
	case a.IsAdmin():
		if requested == nil || *requested == 0 {
			return 0, ErrVendorRequired
		}
		return *requested, nil
	case a.IsVendor():
		return *a.VendorID, nil
	default:
		return 0, ErrSubmitForbidden
	}
}

func snapshot(s models.Sale) map[string]any {
	m := map[string]any{
		"code":       s.Code,
		"vendor_id":  s.VendorID,
		"product_id": s.ProductID,
		"imei":       imei.Mask(s.IMEI),
		"sale_price": s.SalePrice,
		"channel":    s.Channel,
		"status":     s.Status,
	}
	if s.RiskLevel != nil {
		m["risk_level"] = *s.RiskLevel
	}
	if s.RiskScore != nil {
		m["risk_score"] = *s.RiskScore
	}
	return m
}
