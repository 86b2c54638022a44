package product

import (
	"vendorsales-backend/internal/auth"
	"vendorsales-backend/internal/httpx"
	"vendorsales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name            string                `json:"name" validate:"required,max=150"`
	Brand           string                `json:"brand" validate:"max=100"`
	Model           string                `json:"model" validate:"max=100"`
	CommissionType  models.CommissionType `json:"commission_type" validate:"required"`
	CommissionValue decimal.Decimal       `json:"commission_value"`
}

type UpdateProductRequest struct {
	Name            *string                `json:"name" validate:"omitempty,max=150"`
	Brand           *string                `json:"brand" validate:"omitempty,max=100"`
	Model           *string                `json:"model" validate:"omitempty,max=100"`
	CommissionType  *models.CommissionType `json:"commission_type"`
	CommissionValue *decimal.Decimal       `json:"commission_value"`
	IsActive        *bool                  `json:"is_active"`
}

// GET /api/products?include_inactive=true (inactive only listed for admins)
func ListProductsHandler(cat *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		all := a.IsAdmin() && c.QueryBool("include_inactive", false)

		products, err := cat.List(c.UserContext(), all)
		if err != nil {
			return err
		}
		return c.JSON(products)
	}
}

// POST /api/admin/products
func CreateProductHandler(cat *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		var body CreateProductRequest
		if err := httpx.ParseAndValidate(c, &body); err != nil {
			return err
		}

		p, err := cat.Create(c.UserContext(), a, CreateInput{
			Name:            body.Name,
			Brand:           body.Brand,
			Model:           body.Model,
			CommissionType:  body.CommissionType,
			CommissionValue: body.CommissionValue,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/admin/products/:id
func UpdateProductHandler(cat *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateProductRequest
		if err := httpx.ParseAndValidate(c, &body); err != nil {
			return err
		}

		p, err := cat.Update(c.UserContext(), a, id, UpdateInput{
			Name:            body.Name,
			Brand:           body.Brand,
			Model:           body.Model,
			CommissionType:  body.CommissionType,
			CommissionValue: body.CommissionValue,
			IsActive:        body.IsActive,
		})
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}
