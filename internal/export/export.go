package export

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/commission"
	"vendorsales-backend/internal/imei"
	"vendorsales-backend/internal/models"
	"vendorsales-backend/internal/sale"
)

var (
	CommissionHeader = []string{
		"commission_id", "sale_code", "vendor_code", "vendor_name", "product",
		"sale_price", "commission_amount", "status", "batch_code", "created_at", "paid_at",
	}
	SaleHeader = []string{
		"sale_code", "vendor_code", "vendor_name", "product", "imei", "sale_price",
		"channel", "status", "risk_score", "risk_level", "rejection_reason", "created_at", "validated_at",
	}
)

const timeLayout = "2006-01-02 15:04:05"

// CommissionRow is the flattened JSON shape of one exported commission.
type CommissionRow struct {
	CommissionID     uint   `json:"commission_id"`
	SaleCode         string `json:"sale_code"`
	VendorCode       string `json:"vendor_code"`
	VendorName       string `json:"vendor_name"`
	Product          string `json:"product"`
	SalePrice        string `json:"sale_price"`
	CommissionAmount string `json:"commission_amount"`
	Status           string `json:"status"`
	BatchCode        string `json:"batch_code"`
	CreatedAt        string `json:"created_at"`
	PaidAt           string `json:"paid_at"`
}

func (r CommissionRow) fields() []string {
	return []string{
		strconv.FormatUint(uint64(r.CommissionID), 10), r.SaleCode, r.VendorCode, r.VendorName, r.Product,
		r.SalePrice, r.CommissionAmount, r.Status, r.BatchCode, r.CreatedAt, r.PaidAt,
	}
}

// SaleRow is the flattened JSON shape of one exported sale. The IMEI is masked.
type SaleRow struct {
	SaleCode        string `json:"sale_code"`
	VendorCode      string `json:"vendor_code"`
	VendorName      string `json:"vendor_name"`
	Product         string `json:"product"`
	IMEI            string `json:"imei"`
	SalePrice       string `json:"sale_price"`
	Channel         string `json:"channel"`
	Status          string `json:"status"`
	RiskScore       string `json:"risk_score"`
	RiskLevel       string `json:"risk_level"`
	RejectionReason string `json:"rejection_reason"`
	CreatedAt       string `json:"created_at"`
	ValidatedAt     string `json:"validated_at"`
}

func (r SaleRow) fields() []string {
	return []string{
		r.SaleCode, r.VendorCode, r.VendorName, r.Product, r.IMEI, r.SalePrice,
		r.Channel, r.Status, r.RiskScore, r.RiskLevel, r.RejectionReason, r.CreatedAt, r.ValidatedAt,
	}
}

type CommissionLister interface {
	List(ctx context.Context, a actor.Actor, f commission.ListFilter) ([]models.Commission, error)
}

type SaleLister interface {
	List(ctx context.Context, a actor.Actor, f sale.ListFilter) ([]models.Sale, error)
}

// Exporter resolves codes and names for listings. Vendor scoping is left to
// the listers, so a vendor actor only ever exports its own rows.
type Exporter struct {
	db          *gorm.DB
	commissions CommissionLister
	sales       SaleLister
	loc         *time.Location
}

func NewExporter(db *gorm.DB, commissions CommissionLister, sales SaleLister, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{db: db, commissions: commissions, sales: sales, loc: loc}
}

func (e *Exporter) Commissions(ctx context.Context, a actor.Actor, f commission.ListFilter) ([]CommissionRow, error) {
	rows, err := e.commissions.List(ctx, a, f)
	if err != nil {
		return nil, err
	}

	db := e.db.WithContext(ctx)
	saleIDs := make([]uint, 0, len(rows))
	vendorIDs := make([]uint, 0, len(rows))
	productIDs := make([]uint, 0, len(rows))
	batchIDs := make([]uint, 0)
	for _, c := range rows {
		saleIDs = append(saleIDs, c.SaleID)
		vendorIDs = append(vendorIDs, c.VendorID)
		productIDs = append(productIDs, c.ProductID)
		if c.PaymentBatchID != nil {
			batchIDs = append(batchIDs, *c.PaymentBatchID)
		}
	}

	sales, err := loadByID[models.Sale](db, saleIDs, func(s models.Sale) uint { return s.ID })
	if err != nil {
		return nil, err
	}
	vendors, err := loadByID[models.Vendor](db, vendorIDs, func(v models.Vendor) uint { return v.ID })
	if err != nil {
		return nil, err
	}
	products, err := loadByID[models.Product](db, productIDs, func(p models.Product) uint { return p.ID })
	if err != nil {
		return nil, err
	}
	batches, err := loadByID[models.PaymentBatch](db, batchIDs, func(b models.PaymentBatch) uint { return b.ID })
	if err != nil {
		return nil, err
	}

	out := make([]CommissionRow, 0, len(rows))
	for _, c := range rows {
		r := CommissionRow{
			CommissionID:     c.ID,
			SaleCode:         sales[c.SaleID].Code,
			VendorCode:       vendors[c.VendorID].Code,
			VendorName:       vendors[c.VendorID].Name,
			Product:          products[c.ProductID].Name,
			SalePrice:        c.BaseAmount.StringFixed(2),
			CommissionAmount: c.CommissionAmount.StringFixed(2),
			Status:           string(c.Status),
			CreatedAt:        e.format(&c.CreatedAt),
			PaidAt:           e.format(c.PaidAt),
		}
		if c.PaymentBatchID != nil {
			r.BatchCode = batches[*c.PaymentBatchID].Code
		}
		out = append(out, r)
	}
	return out, nil
}

func (e *Exporter) Sales(ctx context.Context, a actor.Actor, f sale.ListFilter) ([]SaleRow, error) {
	rows, err := e.sales.List(ctx, a, f)
	if err != nil {
		return nil, err
	}

	db := e.db.WithContext(ctx)
	vendorIDs := make([]uint, 0, len(rows))
	productIDs := make([]uint, 0, len(rows))
	for _, s := range rows {
		vendorIDs = append(vendorIDs, s.VendorID)
		productIDs = append(productIDs, s.ProductID)
	}
	vendors, err := loadByID[models.Vendor](db, vendorIDs, func(v models.Vendor) uint { return v.ID })
	if err != nil {
		return nil, err
	}
	products, err := loadByID[models.Product](db, productIDs, func(p models.Product) uint { return p.ID })
	if err != nil {
		return nil, err
	}

	out := make([]SaleRow, 0, len(rows))
	for _, s := range rows {
		r := SaleRow{
			SaleCode:    s.Code,
			VendorCode:  vendors[s.VendorID].Code,
			VendorName:  vendors[s.VendorID].Name,
			Product:     products[s.ProductID].Name,
			IMEI:        imei.Mask(s.IMEI),
			SalePrice:   s.SalePrice.StringFixed(2),
			Channel:     string(s.Channel),
			Status:      string(s.Status),
			CreatedAt:   e.format(&s.CreatedAt),
			ValidatedAt: e.format(s.ValidatedAt),
		}
		if s.RiskScore != nil {
			r.RiskScore = strconv.Itoa(*s.RiskScore)
		}
		if s.RiskLevel != nil {
			r.RiskLevel = string(*s.RiskLevel)
		}
		if s.RejectionReason != nil {
			r.RejectionReason = *s.RejectionReason
		}
		out = append(out, r)
	}
	return out, nil
}

func CommissionTable(rows []CommissionRow) Table {
	t := Table{Header: CommissionHeader, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.fields())
	}
	return t
}

func SaleTable(rows []SaleRow) Table {
	t := Table{Header: SaleHeader, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.fields())
	}
	return t
}

func (e *Exporter) format(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(e.loc).Format(timeLayout)
}

func loadByID[T any](db *gorm.DB, ids []uint, key func(T) uint) (map[uint]T, error) {
	out := make(map[uint]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []T
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %T: %w", rows, err)
	}
	for _, r := range rows {
		out[key(r)] = r
	}
	return out, nil
}
