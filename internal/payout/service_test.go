package payout

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/apperr"
	"vendorsales-backend/internal/audit"
	"vendorsales-backend/internal/database/dbtest"
	"vendorsales-backend/internal/models"
	"vendorsales-backend/internal/seq"
)

var admin = actor.Actor{UserID: 1, Name: "Admin", Role: models.RoleAdmin}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewService(db, seq.New(time.UTC), nil, l), db
}

type ledgerFixture struct {
	v1, v2  models.Vendor
	product models.Product
	c       []models.Commission
}

// seed creates three pending commissions of 100.00, 250.50 and 49.50 over two
// vendors, plus a fourth of 75.00 for the first vendor.
func seed(t *testing.T, db *gorm.DB) ledgerFixture {
	t.Helper()
	f := ledgerFixture{
		v1:      dbtest.Vendor(t, db, "Toko A"),
		v2:      dbtest.Vendor(t, db, "Toko B"),
		product: dbtest.Product(t, db, "Galaxy A15", models.CommissionTypePercentage, "10"),
	}
	f.c = []models.Commission{
		dbtest.Commission(t, db, f.v1.ID, f.product.ID, "490154203237518", "1000", "100.00"),
		dbtest.Commission(t, db, f.v1.ID, f.product.ID, "356938035643809", "2505", "250.50"),
		dbtest.Commission(t, db, f.v2.ID, f.product.ID, "353918058195583", "495", "49.50"),
		dbtest.Commission(t, db, f.v1.ID, f.product.ID, "867565021234566", "750", "75.00"),
	}
	return f
}

func TestCreateBatchTotalsAndRejectsClaimedCommission(t *testing.T) {
	svc, db := newService(t)
	f := seed(t, db)
	ctx := context.Background()

	first, err := svc.CreateBatch(ctx, admin, CreateBatchInput{CommissionIDs: []uint{f.c[3].ID}})
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.CreateBatch(ctx, admin, CreateBatchInput{
		CommissionIDs: []uint{f.c[0].ID, f.c[1].ID, f.c[2].ID, f.c[3].ID},
	})
	if err != nil {
		t.Fatalf("partial conflict must not fail the batch: %v", err)
	}

	b := res.Batch
	if !b.TotalAmount.Equal(d("400.00")) {
		t.Fatalf("expected total 400.00 got %s", b.TotalAmount)
	}
	if b.TotalVendors != 2 || b.Status != models.BatchStatusPending || b.Code != "PB-"+time.Now().UTC().Format("20060102")+"-002" {
		t.Fatalf("unexpected batch %+v", b)
	}
	if len(res.Commissions) != 3 {
		t.Fatalf("expected 3 claimed commissions got %d", len(res.Commissions))
	}
	for _, c := range res.Commissions {
		if c.Status != models.CommissionStatusProcessing || c.PaymentBatchID == nil || *c.PaymentBatchID != b.ID {
			t.Fatalf("commission not claimed: %+v", c)
		}
	}

	if len(res.Rejected) != 1 || res.Rejected[0].CommissionID != f.c[3].ID {
		t.Fatalf("expected the fourth commission rejected, got %+v", res.Rejected)
	}
	var fourth models.Commission
	db.First(&fourth, f.c[3].ID)
	if fourth.PaymentBatchID == nil || *fourth.PaymentBatchID != first.Batch.ID || fourth.Status != models.CommissionStatusProcessing {
		t.Fatalf("already claimed commission was touched: %+v", fourth)
	}

	var stored models.PaymentBatch
	db.First(&stored, b.ID)
	var sum []models.Commission
	db.Where("payment_batch_id = ?", b.ID).Find(&sum)
	total := decimal.Zero
	for _, c := range sum {
		total = total.Add(c.CommissionAmount)
	}
	if !stored.TotalAmount.Equal(total) {
		t.Fatalf("stored total %s drifted from claimed sum %s", stored.TotalAmount, total)
	}

	logs, _ := audit.List(db, audit.Filter{Action: models.AuditActionClaim})
	if len(logs) != 2 {
		t.Fatalf("expected a claim audit entry per batch, got %d", len(logs))
	}
}

func TestCreateBatchValidation(t *testing.T) {
	svc, db := newService(t)
	f := seed(t, db)
	ctx := context.Background()

	if _, err := svc.CreateBatch(ctx, admin, CreateBatchInput{}); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected empty selection error, got %v", err)
	}

	_, err := svc.CreateBatch(ctx, admin, CreateBatchInput{CommissionIDs: []uint{f.c[0].ID, 9999}})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var claimed int64
	db.Model(&models.Commission{}).Where("payment_batch_id IS NOT NULL").Count(&claimed)
	var batches int64
	db.Model(&models.PaymentBatch{}).Count(&batches)
	if claimed != 0 || batches != 0 {
		t.Fatalf("unknown id must leave no trace: %d claimed, %d batches", claimed, batches)
	}

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.CreateBatch(ctx, admin, CreateBatchInput{
		CommissionIDs: []uint{f.c[0].ID},
		PeriodStart:   start,
		PeriodEnd:     start.AddDate(0, 0, -1),
	})
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected invalid period, got %v", err)
	}

	vid := f.v1.ID
	vendor := actor.Actor{UserID: 2, Role: models.RoleVendor, VendorID: &vid}
	if _, err := svc.CreateBatch(ctx, vendor, CreateBatchInput{CommissionIDs: []uint{f.c[0].ID}}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateBatchWithNothingEligibleConflicts(t *testing.T) {
	svc, db := newService(t)
	f := seed(t, db)
	ctx := context.Background()

	if _, err := svc.CreateBatch(ctx, admin, CreateBatchInput{CommissionIDs: []uint{f.c[0].ID}}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateBatch(ctx, admin, CreateBatchInput{CommissionIDs: []uint{f.c[0].ID}})
	if !errors.Is(err, ErrNothingToClaim) || !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestOverlappingBatchesNeverShareCommissions(t *testing.T) {
	svc, db := newService(t)
	f := seed(t, db)
	ids := []uint{f.c[0].ID, f.c[1].ID, f.c[2].ID}

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBatch(context.Background(), admin, CreateBatchInput{CommissionIDs: ids})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		if !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("loser must see a conflict, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected one winning batch, got %d", wins)
	}

	var batches []models.PaymentBatch
	db.Find(&batches)
	if len(batches) != 1 || !batches[0].TotalAmount.Equal(d("400.00")) {
		t.Fatalf("unexpected batches %+v", batches)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	svc, db := newService(t)
	f := seed(t, db)
	ctx := context.Background()

	res, err := svc.Recalculate(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if res.Checked != 4 || res.Updated != 0 {
		t.Fatalf("amounts already match policy, got %+v", res)
	}

	// claim one so it is frozen, then change the policy
	if _, err := svc.CreateBatch(ctx, admin, CreateBatchInput{CommissionIDs: []uint{f.c[2].ID}}); err != nil {
		t.Fatal(err)
	}
	if err := db.Model(&models.Product{}).Where("id = ?", f.product.ID).Update("commission_value", d("12")).Error; err != nil {
		t.Fatal(err)
	}

	res, err = svc.Recalculate(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if res.Checked != 3 || res.Updated != 3 {
		t.Fatalf("expected 3 updates, got %+v", res)
	}
	var c0 models.Commission
	db.First(&c0, f.c[0].ID)
	if !c0.CommissionAmount.Equal(d("120")) {
		t.Fatalf("expected 12%% of 1000, got %s", c0.CommissionAmount)
	}
	var frozen models.Commission
	db.First(&frozen, f.c[2].ID)
	if !frozen.CommissionAmount.Equal(d("49.50")) {
		t.Fatalf("claimed commission was recalculated: %s", frozen.CommissionAmount)
	}

	res, err = svc.Recalculate(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 0 {
		t.Fatalf("second run must update nothing, got %+v", res)
	}
}

func TestRecalculateIgnoresSubCentNoise(t *testing.T) {
	svc, db := newService(t)
	v := dbtest.Vendor(t, db, "Toko A")
	p := dbtest.Product(t, db, "Galaxy A15", models.CommissionTypePercentage, "8")
	// exact value is 319.92
	dbtest.Commission(t, db, v.ID, p.ID, "490154203237518", "3999", "319.915")

	res, err := svc.Recalculate(context.Background(), admin)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 0 {
		t.Fatalf("difference within tolerance must not be written, got %+v", res)
	}
}

func TestBatchLifecycle(t *testing.T) {
	svc, db := newService(t)
	f := seed(t, db)
	ctx := context.Background()

	res, err := svc.CreateBatch(ctx, admin, CreateBatchInput{CommissionIDs: []uint{f.c[0].ID, f.c[1].ID}})
	if err != nil {
		t.Fatal(err)
	}
	id := res.Batch.ID

	b, err := svc.MarkProcessing(ctx, admin, id)
	if err != nil || b.Status != models.BatchStatusProcessing {
		t.Fatalf("mark processing: %+v %v", b, err)
	}
	if _, err := svc.MarkProcessing(ctx, admin, id); !errors.Is(err, ErrBatchState) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	b, err = svc.Complete(ctx, admin, id)
	if err != nil || b.Status != models.BatchStatusCompleted || b.CompletedAt == nil {
		t.Fatalf("complete: %+v %v", b, err)
	}

	got, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Commissions) != 2 {
		t.Fatalf("expected 2 commissions, got %d", len(got.Commissions))
	}
	for _, c := range got.Commissions {
		if c.Status != models.CommissionStatusPaid || c.PaidAt == nil || *c.PaymentBatchID != id {
			t.Fatalf("commission not paid: %+v", c)
		}
	}

	if _, err := svc.Fail(ctx, admin, id, "bank rejected transfer"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("completed batch cannot fail, got %v", err)
	}
	if _, err := svc.Get(ctx, 9999); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFailKeepsCommissionsAssigned(t *testing.T) {
	svc, db := newService(t)
	f := seed(t, db)
	ctx := context.Background()

	res, err := svc.CreateBatch(ctx, admin, CreateBatchInput{CommissionIDs: []uint{f.c[0].ID}, Notes: "february"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Fail(ctx, admin, res.Batch.ID, "  "); !errors.Is(err, ErrFailReasonRequired) {
		t.Fatalf("expected reason required, got %v", err)
	}

	b, err := svc.Fail(ctx, admin, res.Batch.ID, "bank rejected transfer")
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != models.BatchStatusFailed || b.Notes != "february\nbank rejected transfer" {
		t.Fatalf("unexpected failed batch %+v", b)
	}

	var c models.Commission
	db.First(&c, f.c[0].ID)
	if c.Status != models.CommissionStatusProcessing || c.PaymentBatchID == nil || *c.PaymentBatchID != b.ID {
		t.Fatalf("commission should stay with the failed batch: %+v", c)
	}

	list, err := svc.List(ctx, models.BatchStatusFailed)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one failed batch, got %d %v", len(list), err)
	}
}
