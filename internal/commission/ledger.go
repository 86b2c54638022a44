package commission

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/models"
)

// VendorInfo is the vendor metadata attached to an unclaimed group.
type VendorInfo struct {
	Name          string
	Code          string
	BankReference string
}

// VendorPayout is one vendor's share of the unclaimed commissions.
type VendorPayout struct {
	VendorID      uint            `json:"vendor_id"`
	VendorName    string          `json:"vendor_name"`
	VendorCode    string          `json:"vendor_code"`
	BankReference string          `json:"bank_reference"`
	CommissionIDs []uint          `json:"commission_ids"`
	Count         int             `json:"count"`
	Total         decimal.Decimal `json:"total"`
}

type Summary struct {
	PendingTotal    decimal.Decimal `json:"pending_total"`
	ProcessingTotal decimal.Decimal `json:"processing_total"`
	PaidTotal       decimal.Decimal `json:"paid_total"`
	Count           int             `json:"count"`
}

// GroupByVendor folds rows into one record per vendor, ordered by vendor id
// with commission ids ascending. Decimal addition is exact, so the totals do
// not depend on the order of rows.
func GroupByVendor(rows []models.Commission, vendors map[uint]VendorInfo) []VendorPayout {
	groups := make(map[uint]*VendorPayout)
	for _, c := range rows {
		g, ok := groups[c.VendorID]
		if !ok {
			info := vendors[c.VendorID]
			g = &VendorPayout{
				VendorID:      c.VendorID,
				VendorName:    info.Name,
				VendorCode:    info.Code,
				BankReference: info.BankReference,
				Total:         decimal.Zero,
			}
			groups[c.VendorID] = g
		}
		g.CommissionIDs = append(g.CommissionIDs, c.ID)
		g.Count++
		g.Total = g.Total.Add(c.CommissionAmount)
	}

	out := make([]VendorPayout, 0, len(groups))
	for _, g := range groups {
		sort.Slice(g.CommissionIDs, func(i, j int) bool { return g.CommissionIDs[i] < g.CommissionIDs[j] })
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorID < out[j].VendorID })
	return out
}

// Summarize totals rows by status in one pass.
func Summarize(rows []models.Commission) Summary {
	s := Summary{PendingTotal: decimal.Zero, ProcessingTotal: decimal.Zero, PaidTotal: decimal.Zero}
	for _, c := range rows {
		s.Count++
		switch c.Status {
		case models.CommissionStatusPending:
			s.PendingTotal = s.PendingTotal.Add(c.CommissionAmount)
		case models.CommissionStatusProcessing:
			s.ProcessingTotal = s.ProcessingTotal.Add(c.CommissionAmount)
		case models.CommissionStatusPaid:
			s.PaidTotal = s.PaidTotal.Add(c.CommissionAmount)
		}
	}
	return s
}

// Sum is the exact total of the rows' commission amounts.
func Sum(rows []models.Commission) decimal.Decimal {
	total := decimal.Zero
	for _, c := range rows {
		total = total.Add(c.CommissionAmount)
	}
	return total
}

// Ledger reads commission rows. It never writes them.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

type ListFilter struct {
	VendorID *uint
	Status   models.CommissionStatus
	BatchID  *uint
	From     *time.Time
	To       *time.Time
}

// ListByVendor returns a vendor's commissions newest first.
func (l *Ledger) ListByVendor(ctx context.Context, vendorID uint) ([]models.Commission, error) {
	var rows []models.Commission
	err := l.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	return rows, nil
}

// List applies f within what a may see. Vendor actors are always confined to
// their own vendor whatever f asks for.
func (l *Ledger) List(ctx context.Context, a actor.Actor, f ListFilter) ([]models.Commission, error) {
	if scope := a.VendorScope(); scope != nil {
		f.VendorID = scope
	}

	q := l.db.WithContext(ctx).Model(&models.Commission{})
	if f.VendorID != nil {
		q = q.Where("vendor_id = ?", *f.VendorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.BatchID != nil {
		q = q.Where("payment_batch_id = ?", *f.BatchID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var rows []models.Commission
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	return rows, nil
}

// Unclaimed groups every pending commission not yet assigned to a batch.
func (l *Ledger) Unclaimed(ctx context.Context) ([]VendorPayout, error) {
	db := l.db.WithContext(ctx)

	var rows []models.Commission
	err := db.Where("status = ? AND payment_batch_id IS NULL", models.CommissionStatusPending).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load unclaimed commissions: %w", err)
	}
	if len(rows) == 0 {
		return []VendorPayout{}, nil
	}

	info, err := VendorDirectory(db, vendorIDs(rows))
	if err != nil {
		return nil, err
	}
	return GroupByVendor(rows, info), nil
}

func (l *Ledger) Summary(ctx context.Context, vendorID uint) (Summary, error) {
	var rows []models.Commission
	err := l.db.WithContext(ctx).
		Select("id", "status", "commission_amount").
		Where("vendor_id = ?", vendorID).
		Find(&rows).Error
	if err != nil {
		return Summary{}, fmt.Errorf("load commissions: %w", err)
	}
	return Summarize(rows), nil
}

// VendorDirectory loads names, codes and the preferred bank reference for ids.
// The preferred account is the active primary one, else the oldest active one.
func VendorDirectory(db *gorm.DB, ids []uint) (map[uint]VendorInfo, error) {
	out := make(map[uint]VendorInfo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var vendors []models.Vendor
	if err := db.Where("id IN ?", ids).Find(&vendors).Error; err != nil {
		return nil, fmt.Errorf("load vendors: %w", err)
	}
	for _, v := range vendors {
		out[v.ID] = VendorInfo{Name: v.Name, Code: v.Code}
	}

	var accounts []models.BankAccount
	err := db.Where("vendor_id IN ? AND is_active = ?", ids, true).
		Order("is_primary DESC, id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("load bank accounts: %w", err)
	}
	for _, acc := range accounts {
		info := out[acc.VendorID]
		if info.BankReference == "" {
			info.BankReference = acc.Reference()
			out[acc.VendorID] = info
		}
	}
	return out, nil
}

func vendorIDs(rows []models.Commission) []uint {
	seen := make(map[uint]struct{}, len(rows))
	ids := make([]uint, 0, len(rows))
	for _, c := range rows {
		if _, ok := seen[c.VendorID]; ok {
			continue
		}
		seen[c.VendorID] = struct{}{}
		ids = append(ids, c.VendorID)
	}
	return ids
}
