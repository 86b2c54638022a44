// Package payout settles pending commissions into payment batches.
//
// Claiming is one transaction: the batch row and the conditional update that
// moves every selected commission to processing commit together or not at
// all. A commission already claimed by someone else is never overwritten.
package payout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/audit"
	"vendorsales-backend/internal/commission"
	"vendorsales-backend/internal/logger"
	"vendorsales-backend/internal/models"
	"vendorsales-backend/internal/seq"
)

const (
	moduleName  = "payout"
	entityBatch = "payment_batch"
)

// RecalcTolerance is the smallest change Recalculate writes back.
var RecalcTolerance = decimal.RequireFromString("0.01")

type Service struct {
	db     *gorm.DB
	codes  *seq.Generator
	locker *redislock.Client
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewService accepts a nil locker; batches are then protected only by the
// database.
func NewService(db *gorm.DB, codes *seq.Generator, locker *redislock.Client, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logger.Get()
	}
	return &Service{db: db, codes: codes, locker: locker, log: log, now: time.Now}
}

type CreateBatchInput struct {
	CommissionIDs []uint
	// Zero values default to the oldest and newest selected commission.
	PeriodStart time.Time
	PeriodEnd   time.Time
	Notes       string
}

// Rejection explains why a selected commission was left out of a batch.
type Rejection struct {
	CommissionID   uint                    `json:"commission_id"`
	Status         models.CommissionStatus `json:"status"`
	PaymentBatchID *uint                   `json:"payment_batch_id"`
	Reason         string                  `json:"reason"`
}

type BatchResult struct {
	Batch       models.PaymentBatch `json:"batch"`
	Commissions []models.Commission `json:"commissions"`
	Rejected    []Rejection         `json:"rejected"`
}

// CreateBatch claims the selected pending commissions into a new batch.
// Selected commissions that are already claimed are reported in Rejected and
// left untouched; an unknown id aborts the whole call.
func (s *Service) CreateBatch(ctx context.Context, a actor.Actor, in CreateBatchInput) (*BatchResult, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}
	ids := uniqueIDs(in.CommissionIDs)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	if !in.PeriodStart.IsZero() && !in.PeriodEnd.IsZero() && in.PeriodEnd.Before(in.PeriodStart) {
		return nil, ErrInvalidPeriod
	}

	release := s.obtainLock(ctx, batchLockKey)
	defer release()

	out := &BatchResult{Rejected: []Rejection{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.Commission
		if err := tx.Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
			return fmt.Errorf("load commissions: %w", err)
		}
		if missing := missingIDs(ids, rows); len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrCommissionNotFound, joinIDs(missing))
		}

		var eligible []models.Commission
		for _, c := range rows {
			if c.Status == models.CommissionStatusPending && c.PaymentBatchID == nil {
				eligible = append(eligible, c)
				continue
			}
			out.Rejected = append(out.Rejected, rejectionFor(c))
		}
		if len(eligible) == 0 {
			return ErrNothingToClaim
		}

		code, err := s.codes.BatchCode(tx)
		if err != nil {
			return err
		}

		start, end := period(in, eligible)
		batch := models.PaymentBatch{
			Code:         code,
			PeriodStart:  start,
			PeriodEnd:    end,
			TotalVendors: countVendors(eligible),
			TotalAmount:  commission.Sum(eligible),
			Status:       models.BatchStatusPending,
			Notes:        strings.TrimSpace(in.Notes),
			CreatedBy:    a.UserID,
		}
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("create batch: %w", err)
		}

		eligibleIDs := make([]uint, len(eligible))
		for i, c := range eligible {
			eligibleIDs[i] = c.ID
		}
		res := tx.Model(&models.Commission{}).
			Where("id IN ? AND status = ? AND payment_batch_id IS NULL", eligibleIDs, models.CommissionStatusPending).
			Updates(map[string]any{
				"status":           models.CommissionStatusProcessing,
				"payment_batch_id": batch.ID,
			})
		if res.Error != nil {
			return fmt.Errorf("claim commissions: %w", res.Error)
		}
		if res.RowsAffected != int64(len(eligible)) {
			return ErrConcurrentClaim
		}

		var claimed []models.Commission
		if err := tx.Where("payment_batch_id = ?", batch.ID).Order("id ASC").Find(&claimed).Error; err != nil {
			return fmt.Errorf("reload claimed commissions: %w", err)
		}
		if got := commission.Sum(claimed); !got.Equal(batch.TotalAmount) {
			return fmt.Errorf("batch %s total drifted: recorded %s, claimed %s", batch.Code, batch.TotalAmount, got)
		}

		if err := audit.WriteLog(tx, audit.LogOptions{
			Actor:      a,
			EntityType: entityBatch,
			EntityID:   batch.ID,
			Action:     models.AuditActionClaim,
			Description: fmt.Sprintf("batch %s claimed %d commission(s) for %d vendor(s), total %s",
				batch.Code, len(claimed), batch.TotalVendors, batch.TotalAmount.StringFixed(2)),
			After: map[string]any{
				"commission_ids": eligibleIDs,
				"total_amount":   batch.TotalAmount,
				"rejected":       out.Rejected,
			},
		}); err != nil {
			return err
		}

		out.Batch = batch
		out.Commissions = claimed
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNothingToClaim) {
			return nil, fmt.Errorf("%w: %s", ErrNothingToClaim, describeRejections(out.Rejected))
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"batch_id":     out.Batch.ID,
		"code":         out.Batch.Code,
		"commissions":  len(out.Commissions),
		"rejected":     len(out.Rejected),
		"total_amount": out.Batch.TotalAmount.String(),
	}).Info("payment batch created")
	return out, nil
}

type RecalcChange struct {
	CommissionID uint            `json:"commission_id"`
	SaleID       uint            `json:"sale_id"`
	OldAmount    decimal.Decimal `json:"old_amount"`
	NewAmount    decimal.Decimal `json:"new_amount"`
}

type RecalcResult struct {
	Checked   int            `json:"checked"`
	Updated   int            `json:"updated"`
	Skipped   int            `json:"skipped"`
	Anomalies int            `json:"anomalies"`
	Changes   []RecalcChange `json:"changes"`
}

// Recalculate re-derives unclaimed commission amounts from current product
// policy and each sale's original price. Only differences above
// RecalcTolerance are written, so a second run right after the first updates
// nothing. Claimed commissions are frozen with their batch and never revisited.
func (s *Service) Recalculate(ctx context.Context, a actor.Actor) (*RecalcResult, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}

	release := s.obtainLock(ctx, batchLockKey)
	defer release()

	out := &RecalcResult{Changes: []RecalcChange{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.Commission
		err := tx.Where("status = ? AND payment_batch_id IS NULL", models.CommissionStatusPending).
			Order("id ASC").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("load commissions: %w", err)
		}
		out.Checked = len(rows)
		if len(rows) == 0 {
			return nil
		}

		sales, products, err := loadSources(tx, rows)
		if err != nil {
			return err
		}

		for _, c := range rows {
			sale, okSale := sales[c.SaleID]
			product, okProduct := products[c.ProductID]
			if !okSale || !okProduct {
				out.Anomalies++
				logger.LogAnomaly(s.log, moduleName, "commission_source_missing", logrus.Fields{
					"commission_id": c.ID,
					"sale_found":    okSale,
					"product_found": okProduct,
				}, "commission references a missing sale or product, left unchanged")
				continue
			}

			amount, ok := commission.Calculate(commission.PolicyOf(product), sale.SalePrice)
			if !ok {
				out.Anomalies++
				logger.LogAnomaly(s.log, moduleName, "unknown_commission_type", logrus.Fields{
					"commission_id":   c.ID,
					"product_id":      product.ID,
					"commission_type": product.CommissionType,
				}, "unknown commission type, commission left unchanged")
				continue
			}

			if amount.Sub(c.CommissionAmount).Abs().LessThanOrEqual(RecalcTolerance) {
				continue
			}

			res := tx.Model(&models.Commission{}).
				Where("id = ? AND status = ? AND payment_batch_id IS NULL", c.ID, models.CommissionStatusPending).
				Updates(map[string]any{
					"commission_amount": amount,
					"base_amount":       sale.SalePrice,
				})
			if res.Error != nil {
				return fmt.Errorf("update commission %d: %w", c.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				out.Skipped++
				continue
			}

			out.Updated++
			out.Changes = append(out.Changes, RecalcChange{
				CommissionID: c.ID,
				SaleID:       c.SaleID,
				OldAmount:    c.CommissionAmount,
				NewAmount:    amount,
			})
		}

		if out.Updated == 0 {
			return nil
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       a,
			EntityType:  "commission",
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("recalculated %d of %d unclaimed commission(s)", out.Updated, out.Checked),
			After:       out.Changes,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"checked":   out.Checked,
		"updated":   out.Updated,
		"anomalies": out.Anomalies,
	}).Info("commissions recalculated")
	return out, nil
}

// MarkProcessing records that the batch was handed to the payment provider.
func (s *Service) MarkProcessing(ctx context.Context, a actor.Actor, batchID uint) (*models.PaymentBatch, error) {
	return s.moveBatch(ctx, a, batchID, models.BatchStatusProcessing, "", []models.BatchStatus{models.BatchStatusPending})
}

// Complete closes the batch and marks every commission in it paid.
func (s *Service) Complete(ctx context.Context, a actor.Actor, batchID uint) (*models.PaymentBatch, error) {
	return s.moveBatch(ctx, a, batchID, models.BatchStatusCompleted, "",
		[]models.BatchStatus{models.BatchStatusPending, models.BatchStatusProcessing})
}

// Fail closes the batch as failed. Its commissions stay assigned to it so the
// payout can be followed up manually.
func (s *Service) Fail(ctx context.Context, a actor.Actor, batchID uint, reason string) (*models.PaymentBatch, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrFailReasonRequired
	}
	return s.moveBatch(ctx, a, batchID, models.BatchStatusFailed, reason,
		[]models.BatchStatus{models.BatchStatusPending, models.BatchStatusProcessing})
}

func (s *Service) moveBatch(ctx context.Context, a actor.Actor, batchID uint, to models.BatchStatus, note string, from []models.BatchStatus) (*models.PaymentBatch, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}

	var batch models.PaymentBatch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before models.PaymentBatch
		if err := tx.First(&before, batchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBatchNotFound
			}
			return err
		}

		now := s.now()
		updates := map[string]any{"status": to}
		if to == models.BatchStatusCompleted || to == models.BatchStatusFailed {
			updates["completed_at"] = now
		}
		if note != "" {
			updates["notes"] = strings.TrimSpace(strings.TrimSpace(before.Notes) + "\n" + note)
		}

		res := tx.Model(&models.PaymentBatch{}).
			Where("id = ? AND status IN ?", batchID, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s is %s", ErrBatchState, before.Code, before.Status)
		}

		if to == models.BatchStatusCompleted {
			res := tx.Model(&models.Commission{}).
				Where("payment_batch_id = ? AND status = ?", batchID, models.CommissionStatusProcessing).
				Updates(map[string]any{
					"status":  models.CommissionStatusPaid,
					"paid_at": now,
				})
			if res.Error != nil {
				return fmt.Errorf("mark commissions paid: %w", res.Error)
			}
		}

		if err := tx.First(&batch, batchID).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       a,
			EntityType:  entityBatch,
			EntityID:    batch.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("batch %s %s -> %s", batch.Code, before.Status, batch.Status),
			Before:      map[string]any{"status": before.Status},
			After:       map[string]any{"status": batch.Status, "note": note},
		})
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// Get returns the batch with its commissions.
func (s *Service) Get(ctx context.Context, batchID uint) (*BatchResult, error) {
	var batch models.PaymentBatch
	err := s.db.WithContext(ctx).
		Preload("Commissions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&batch, batchID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	out := &BatchResult{Batch: batch, Commissions: batch.Commissions, Rejected: []Rejection{}}
	out.Batch.Commissions = nil
	return out, nil
}

func (s *Service) List(ctx context.Context, status models.BatchStatus) ([]models.PaymentBatch, error) {
	q := s.db.WithContext(ctx).Model(&models.PaymentBatch{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var batches []models.PaymentBatch
	if err := q.Order("created_at DESC, id DESC").Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

func loadSources(tx *gorm.DB, rows []models.Commission) (map[uint]models.Sale, map[uint]models.Product, error) {
	saleIDs := make([]uint, 0, len(rows))
	productIDs := make([]uint, 0, len(rows))
	for _, c := range rows {
		saleIDs = append(saleIDs, c.SaleID)
		productIDs = append(productIDs, c.ProductID)
	}

	var sales []models.Sale
	if err := tx.Select("id", "sale_price").Where("id IN ?", uniqueIDs(saleIDs)).Find(&sales).Error; err != nil {
		return nil, nil, fmt.Errorf("load sales: %w", err)
	}
	var products []models.Product
	if err := tx.Where("id IN ?", uniqueIDs(productIDs)).Find(&products).Error; err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}

	saleMap := make(map[uint]models.Sale, len(sales))
	for _, s := range sales {
		saleMap[s.ID] = s
	}
	productMap := make(map[uint]models.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	return saleMap, productMap, nil
}

func rejectionFor(c models.Commission) Rejection {
	r := Rejection{CommissionID: c.ID, Status: c.Status, PaymentBatchID: c.PaymentBatchID}
	switch {
	case c.PaymentBatchID != nil:
		r.Reason = fmt.Sprintf("already claimed by batch #%d", *c.PaymentBatchID)
	default:
		r.Reason = fmt.Sprintf("status is %s", c.Status)
	}
	return r
}

func describeRejections(rs []Rejection) string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, fmt.Sprintf("#%d %s", r.CommissionID, r.Reason))
	}
	return strings.Join(parts, "; ")
}

func period(in CreateBatchInput, rows []models.Commission) (time.Time, time.Time) {
	start, end := in.PeriodStart, in.PeriodEnd
	for _, c := range rows {
		if in.PeriodStart.IsZero() && (start.IsZero() || c.CreatedAt.Before(start)) {
			start = c.CreatedAt
		}
		if in.PeriodEnd.IsZero() && c.CreatedAt.After(end) {
			end = c.CreatedAt
		}
	}
	return start, end
}

func countVendors(rows []models.Commission) int {
	seen := make(map[uint]struct{})
	for _, c := range rows {
		seen[c.VendorID] = struct{}{}
	}
	return len(seen)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func missingIDs(want []uint, rows []models.Commission) []uint {
	found := make(map[uint]struct{}, len(rows))
	for _, c := range rows {
		found[c.ID] = struct{}{}
	}
	var missing []uint
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, ", ")
}
