package product

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/apperr"
	"vendorsales-backend/internal/auth"
	"vendorsales-backend/internal/database/dbtest"
	"vendorsales-backend/internal/httpx"
	"vendorsales-backend/internal/models"
)

var admin = actor.Actor{UserID: 1, Name: "Admin", Role: models.RoleAdmin}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateValidatesPolicy(t *testing.T) {
	cat := NewCatalog(dbtest.Open(t))
	ctx := context.Background()

	p, err := cat.Create(ctx, admin, CreateInput{Name: "Galaxy A15", CommissionType: models.CommissionTypePercentage, CommissionValue: d("10")})
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsActive || p.ID == 0 {
		t.Fatalf("unexpected product %+v", p)
	}

	cases := []CreateInput{
		{Name: "A", CommissionType: models.CommissionTypePercentage, CommissionValue: d("100.01")},
		{Name: "B", CommissionType: models.CommissionTypeFixed, CommissionValue: d("-1")},
		{Name: "C", CommissionType: "tiered", CommissionValue: d("5")},
	}
	for _, in := range cases {
		if _, err := cat.Create(ctx, admin, in); !errors.Is(err, ErrInvalidPolicy) {
			t.Fatalf("%s: expected ErrInvalidPolicy, got %v", in.Name, err)
		}
	}

	_, err = cat.Create(ctx, admin, CreateInput{Name: "galaxy a15", CommissionType: models.CommissionTypeFixed, CommissionValue: d("1")})
	if !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}

	vid := uint(1)
	seller := actor.Actor{UserID: 2, Role: models.RoleVendor, VendorID: &vid}
	if _, err := cat.Create(ctx, seller, CreateInput{Name: "X", CommissionType: models.CommissionTypeFixed}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestPolicyChangeIsNotRetroactive(t *testing.T) {
	db := dbtest.Open(t)
	cat := NewCatalog(db)
	ctx := context.Background()

	v := dbtest.Vendor(t, db, "Toko A")
	p, err := cat.Create(ctx, admin, CreateInput{Name: "Galaxy A15", CommissionType: models.CommissionTypeFixed, CommissionValue: d("100")})
	if err != nil {
		t.Fatal(err)
	}
	c := dbtest.Commission(t, db, v.ID, p.ID, "490154203237518", "1000", "100")

	typ := models.CommissionTypePercentage
	val := d("15")
	updated, err := cat.Update(ctx, admin, p.ID, UpdateInput{CommissionType: &typ, CommissionValue: &val})
	if err != nil {
		t.Fatal(err)
	}
	if updated.CommissionType != typ || !updated.CommissionValue.Equal(val) {
		t.Fatalf("policy not updated %+v", updated)
	}

	var after models.Commission
	db.First(&after, c.ID)
	if !after.CommissionAmount.Equal(d("100")) {
		t.Fatalf("existing commission changed to %s", after.CommissionAmount)
	}

	var entry models.AuditLog
	if err := db.Where("entity_type = ? AND action = ?", "product", models.AuditActionUpdate).First(&entry).Error; err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(entry.Description, "commission changed from fixed 100 to percentage 15") {
		t.Fatalf("unexpected audit description %q", entry.Description)
	}

	tooHigh := d("150")
	if _, err := cat.Update(ctx, admin, p.ID, UpdateInput{CommissionValue: &tooHigh}); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
	if _, err := cat.Update(ctx, admin, 999, UpdateInput{CommissionValue: &val}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestListHidesInactiveProducts(t *testing.T) {
	db := dbtest.Open(t)
	cat := NewCatalog(db)
	ctx := context.Background()

	a, _ := cat.Create(ctx, admin, CreateInput{Name: "Alpha", CommissionType: models.CommissionTypeFixed, CommissionValue: d("1")})
	if _, err := cat.Create(ctx, admin, CreateInput{Name: "Beta", CommissionType: models.CommissionTypeFixed, CommissionValue: d("1")}); err != nil {
		t.Fatal(err)
	}
	off := false
	if _, err := cat.Update(ctx, admin, a.ID, UpdateInput{IsActive: &off}); err != nil {
		t.Fatal(err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxActorKey, admin)
		return c.Next()
	})
	app.Get("/products", ListProductsHandler(cat))
	app.Put("/products/:id", UpdateProductHandler(cat))

	get := func(path string) string {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(resp.Body)
		return string(b)
	}
	if body := get("/products"); strings.Contains(body, "Alpha") || !strings.Contains(body, "Beta") {
		t.Fatalf("inactive product listed: %s", body)
	}
	if body := get("/products?include_inactive=true"); !strings.Contains(body, "Alpha") {
		t.Fatalf("include_inactive ignored: %s", body)
	}

	req := httptest.NewRequest("PUT", "/products/abc", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 got %d", resp.StatusCode)
	}
}
