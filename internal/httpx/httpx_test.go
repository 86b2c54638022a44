package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"vendorsales-backend/internal/apperr"
)

type createReq struct {
	Name  string `json:"name" validate:"required"`
	Price string `json:"price" validate:"required,numeric"`
}

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/items", func(c *fiber.Ctx) error {
		var body createReq
		if err := ParseAndValidate(c, &body); err != nil {
			return err
		}
		return c.JSON(body)
	})
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := ParamID(c, "id")
		if err != nil {
			return err
		}
		switch id {
		case 404:
			return apperr.NotFound("item not found")
		case 409:
			return apperr.Conflict("item already settled")
		case 500:
			return errors.New("pq: connection refused")
		}
		return c.JSON(fiber.Map{"id": id})
	})
	return app
}

func errorBody(t *testing.T, body io.Reader) string {
	t.Helper()
	var out map[string]string
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out["error"]
}

func TestValidationErrors(t *testing.T) {
	app := newApp()
	req := httptest.NewRequest("POST", "/items", strings.NewReader(`{"name":"","price":"abc"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 got %d", resp.StatusCode)
	}
	if msg := errorBody(t, resp.Body); msg != "invalid fields: name: required, price: numeric" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	app := newApp()
	cases := map[string]int{
		"/items/404": 404,
		"/items/409": 409,
		"/items/500": 500,
		"/items/abc": 400,
		"/items/7":   200,
	}
	for path, want := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d got %d", path, want, resp.StatusCode)
		}
		if want == 500 {
			if msg := errorBody(t, resp.Body); msg != "internal server error" {
				t.Fatalf("internal error leaked: %q", msg)
			}
		}
	}
}
