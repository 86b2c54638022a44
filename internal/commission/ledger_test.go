package commission

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/database/dbtest"
	"vendorsales-backend/internal/models"
)

func TestGroupByVendorIsOrderIndependent(t *testing.T) {
	rows := []models.Commission{
		{ID: 1, VendorID: 2, CommissionAmount: d("0.10")},
		{ID: 2, VendorID: 1, CommissionAmount: d("100.00")},
		{ID: 3, VendorID: 2, CommissionAmount: d("0.20")},
		{ID: 4, VendorID: 1, CommissionAmount: d("250.50")},
		{ID: 5, VendorID: 2, CommissionAmount: d("49.50")},
		{ID: 6, VendorID: 3, CommissionAmount: d("0.30")},
	}
	vendors := map[uint]VendorInfo{1: {Name: "Toko A", Code: "VND-001"}}

	want := GroupByVendor(rows, vendors)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Commission(nil), rows...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := GroupByVendor(shuffled, vendors)
		if len(got) != len(want) {
			t.Fatalf("group count differs")
		}
		for j := range got {
			if got[j].VendorID != want[j].VendorID || !got[j].Total.Equal(want[j].Total) || got[j].Count != want[j].Count {
				t.Fatalf("shuffle %d: group %d differs: %+v vs %+v", i, j, got[j], want[j])
			}
			for k := range got[j].CommissionIDs {
				if got[j].CommissionIDs[k] != want[j].CommissionIDs[k] {
					t.Fatalf("commission ids not normalized")
				}
			}
		}
	}

	if want[0].VendorID != 1 || want[0].VendorName != "Toko A" || !want[0].Total.Equal(d("350.50")) {
		t.Fatalf("unexpected first group %+v", want[0])
	}
	if !want[1].Total.Equal(d("49.80")) {
		t.Fatalf("expected exact 49.80 got %s", want[1].Total)
	}
}

func TestSumAvoidsFloatDrift(t *testing.T) {
	rows := make([]models.Commission, 1000)
	for i := range rows {
		rows[i].CommissionAmount = d("0.1")
	}
	if got := Sum(rows); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected exactly 100 got %s", got)
	}
}

func TestSummarize(t *testing.T) {
	rows := []models.Commission{
		{Status: models.CommissionStatusPending, CommissionAmount: d("10")},
		{Status: models.CommissionStatusPending, CommissionAmount: d("5.5")},
		{Status: models.CommissionStatusProcessing, CommissionAmount: d("7")},
		{Status: models.CommissionStatusPaid, CommissionAmount: d("100")},
	}
	s := Summarize(rows)
	if !s.PendingTotal.Equal(d("15.5")) || !s.ProcessingTotal.Equal(d("7")) || !s.PaidTotal.Equal(d("100")) || s.Count != 4 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestLedgerQueries(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	v1 := dbtest.Vendor(t, db, "Toko A")
	v2 := dbtest.Vendor(t, db, "Toko B")
	p := dbtest.Product(t, db, "Galaxy A15", models.CommissionTypeFixed, "100")

	c1 := dbtest.Commission(t, db, v1.ID, p.ID, "490154203237518", "1000", "100.00")
	c2 := dbtest.Commission(t, db, v1.ID, p.ID, "356938035643809", "2000", "250.50")
	c3 := dbtest.Commission(t, db, v2.ID, p.ID, "353918058195583", "500", "49.50")

	batchID := uint(99)
	if err := db.Model(&models.Commission{}).Where("id = ?", c3.ID).
		Updates(map[string]any{"status": models.CommissionStatusPaid, "payment_batch_id": batchID}).Error; err != nil {
		t.Fatal(err)
	}

	primary := models.BankAccount{VendorID: v1.ID, Type: models.AccountTypeBank, BankName: "BCA",
		AccountName: "Toko A", AccountNumber: "1234567890", IsPrimary: true, IsActive: true}
	other := models.BankAccount{VendorID: v1.ID, Type: models.AccountTypeEWallet, BankName: "OVO",
		AccountName: "Toko A", AccountNumber: "0812", IsActive: true}
	db.Create(&other)
	db.Create(&primary)

	l := NewLedger(db)

	list, err := l.ListByVendor(ctx, v1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != c2.ID || list[1].ID != c1.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	groups, err := l.Unclaimed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected only vendor 1 unclaimed, got %+v", groups)
	}
	g := groups[0]
	if g.VendorCode != v1.Code || g.Count != 2 || !g.Total.Equal(d("350.50")) {
		t.Fatalf("unexpected group %+v", g)
	}
	if g.BankReference != "BCA 1234567890 a.n. Toko A" {
		t.Fatalf("expected primary bank account, got %q", g.BankReference)
	}

	sum, err := l.Summary(ctx, v2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.PaidTotal.Equal(d("49.50")) || !sum.PendingTotal.IsZero() || sum.Count != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	vid := v2.ID
	scoped, err := l.List(ctx, actor.Actor{Role: models.RoleVendor, VendorID: &vid}, ListFilter{VendorID: &v1.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 1 || scoped[0].VendorID != v2.ID {
		t.Fatalf("vendor actor escaped its scope: %+v", scoped)
	}
}
