package seq

import (
	"testing"
	"time"

	"vendorsales-backend/internal/database/dbtest"
)

func TestDailyCodesIncrementPerDay(t *testing.T) {
	db := dbtest.Open(t)
	day := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	g := New(time.UTC).WithClock(func() time.Time { return day })

	for i, want := range []string{"VT-20240305-001", "VT-20240305-002", "VT-20240305-003"} {
		got, err := g.SaleCode(db)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("call %d: expected %s got %s", i, want, got)
		}
	}

	// batches count separately
	if got, _ := g.BatchCode(db); got != "PB-20240305-001" {
		t.Fatalf("expected first batch code, got %s", got)
	}

	next := g.WithClock(func() time.Time { return day.Add(24 * time.Hour) })
	if got, _ := next.SaleCode(db); got != "VT-20240306-001" {
		t.Fatalf("expected counter reset on a new day, got %s", got)
	}
}

func TestDayUsesConfiguredLocation(t *testing.T) {
	db := dbtest.Open(t)
	loc := time.FixedZone("UTC+7", 7*3600)
	// 20:00 UTC on the 5th is already the 6th at UTC+7
	g := New(loc).WithClock(func() time.Time { return time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC) })

	got, err := g.SaleCode(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != "VT-20240306-001" {
		t.Fatalf("expected local day, got %s", got)
	}
}

func TestVendorCodeIsGlobal(t *testing.T) {
	db := dbtest.Open(t)
	g := New(time.UTC)

	a, _ := g.VendorCode(db)
	b, _ := g.VendorCode(db)
	if a != "VND-001" || b != "VND-002" {
		t.Fatalf("unexpected vendor codes %s %s", a, b)
	}
}
