package sale

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/auth"
	"vendorsales-backend/internal/httpx"
)

func handlerApp(f *fixture, as actor.Actor) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxActorKey, as)
		return c.Next()
	})
	app.Post("/sales", SubmitSaleHandler(f.svc))
	app.Get("/sales", ListSalesHandler(f.svc, nil))
	app.Get("/sales/check-imei", CheckIMEIHandler(f.svc))
	app.Get("/sales/:id", GetSaleHandler(f.svc))
	app.Post("/admin/sales/:id/approve", ApproveSaleHandler(f.svc))
	app.Post("/admin/sales/:id/reject", RejectSaleHandler(f.svc))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestSaleEndpoints(t *testing.T) {
	f := setup(t, nil)
	vendorApp := handlerApp(f, f.seller)
	adminApp := handlerApp(f, f.admin)

	code, body := do(t, vendorApp, "POST", "/sales",
		fmt.Sprintf(`{"product_id":%d,"imei":"490154203237518","sale_price":"2999000","channel":"online"}`, f.fixed.ID))
	if code != 201 {
		t.Fatalf("expected 201 got %d: %s", code, body)
	}
	var created Result
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		t.Fatal(err)
	}

	code, body = do(t, vendorApp, "POST", "/sales",
		fmt.Sprintf(`{"product_id":%d,"imei":"4901542032375","sale_price":"1000"}`, f.fixed.ID))
	if code != 400 || strings.Contains(body, "4901542032375") {
		t.Fatalf("expected masked 400, got %d: %s", code, body)
	}

	code, body = do(t, vendorApp, "GET", "/sales/check-imei?imei=490154203237518", "")
	if code != 200 || !strings.Contains(body, `"duplicate":true`) {
		t.Fatalf("unexpected check-imei response %d: %s", code, body)
	}

	code, _ = do(t, vendorApp, "POST", fmt.Sprintf("/admin/sales/%d/approve", created.Sale.ID), "")
	if code != 403 {
		t.Fatalf("vendor approval should be forbidden, got %d", code)
	}

	code, body = do(t, adminApp, "POST", fmt.Sprintf("/admin/sales/%d/reject", created.Sale.ID), `{"reason":"  "}`)
	if code != 400 || !strings.Contains(body, "rejection reason is required") {
		t.Fatalf("expected reason error, got %d: %s", code, body)
	}

	code, body = do(t, adminApp, "POST", fmt.Sprintf("/admin/sales/%d/approve", created.Sale.ID), "")
	if code != 200 || !strings.Contains(body, `"commission"`) {
		t.Fatalf("expected approval, got %d: %s", code, body)
	}

	code, body = do(t, adminApp, "POST", fmt.Sprintf("/admin/sales/%d/approve", created.Sale.ID), "")
	if code != 409 {
		t.Fatalf("expected 409 on second approval, got %d: %s", code, body)
	}

	code, _ = do(t, adminApp, "GET", "/sales/9999", "")
	if code != 404 {
		t.Fatalf("expected 404 got %d", code)
	}

	code, body = do(t, vendorApp, "GET", "/sales?status=approved", "")
	if code != 200 || !strings.Contains(body, created.Sale.Code) {
		t.Fatalf("unexpected list %d: %s", code, body)
	}

	code, _ = do(t, vendorApp, "GET", "/sales?from=yesterday", "")
	if code != 400 {
		t.Fatalf("expected 400 for bad date, got %d", code)
	}
}
