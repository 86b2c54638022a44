package auth

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"vendorsales-backend/internal/config"
	"vendorsales-backend/internal/database/dbtest"
	"vendorsales-backend/internal/httpx"
	"vendorsales-backend/internal/models"
)

func testApp(db *gorm.DB) (*fiber.App, *config.Config) {
	cfg := &config.Config{JWTSecret: "0123456789abcdef0123456789abcdef"}
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler})
	app.Post("/auth/register-admin", RegisterAdminHandler(db))
	app.Post("/auth/login", LoginHandler(cfg, db))

	protected := app.Group("", JWTMiddleware(cfg))
	protected.Get("/auth/me", MeHandler(db))
	protected.Get("/admin/ping", RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		a, err := ActorFrom(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"name": a.Name})
	})
	return app, cfg
}

func post(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func get(t *testing.T, app *fiber.App, path, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestRegisterLoginMe(t *testing.T) {
	db := dbtest.Open(t)
	app, _ := testApp(db)

	code, _ := post(t, app, "/auth/register-admin", `{"name":"Root","email":"Root@Example.com","password":"supersecret"}`)
	if code != 201 {
		t.Fatalf("expected 201 got %d", code)
	}

	code, _ = post(t, app, "/auth/register-admin", `{"name":"Second","email":"b@example.com","password":"supersecret"}`)
	if code != 403 {
		t.Fatalf("second admin should be refused, got %d", code)
	}

	code, _ = post(t, app, "/auth/login", `{"email":"root@example.com","password":"wrong-password"}`)
	if code != 401 {
		t.Fatalf("expected 401 got %d", code)
	}

	code, body := post(t, app, "/auth/login", `{"email":"root@example.com","password":"supersecret"}`)
	if code != 200 {
		t.Fatalf("expected 200 got %d", code)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("missing token")
	}

	code, me := get(t, app, "/auth/me", token)
	if code != 200 || me["email"] != "root@example.com" || me["role"] != "admin" {
		t.Fatalf("unexpected me response %d %+v", code, me)
	}

	code, ping := get(t, app, "/admin/ping", token)
	if code != 200 || ping["name"] != "Root" {
		t.Fatalf("admin route failed %d %+v", code, ping)
	}
}

func TestVendorTokenCannotReachAdminRoutes(t *testing.T) {
	db := dbtest.Open(t)
	app, cfg := testApp(db)

	v := dbtest.Vendor(t, db, "Toko A")
	vid := v.ID
	user := models.User{ID: 5, Name: "Vendor", Email: "v@example.com", Role: models.RoleVendor, VendorID: &vid}
	token, err := GenerateToken(cfg.JWTSecret, &user)
	if err != nil {
		t.Fatal(err)
	}

	if code, _ := get(t, app, "/admin/ping", token); code != 403 {
		t.Fatalf("expected 403 got %d", code)
	}
	if code, _ := get(t, app, "/auth/me", ""); code != 401 {
		t.Fatalf("expected 401 without token got %d", code)
	}
	if code, _ := get(t, app, "/auth/me", token+"x"); code != 401 {
		t.Fatalf("expected 401 for tampered token got %d", code)
	}
}
