package sale

import (
	"time"

	"vendorsales-backend/internal/auth"
	"vendorsales-backend/internal/httpx"
	"vendorsales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SubmitSaleRequest struct {
	VendorID    *uint              `json:"vendor_id"`
	ProductID   uint               `json:"product_id" validate:"required"`
	IMEI        string             `json:"imei" validate:"required"`
	SalePrice   decimal.Decimal    `json:"sale_price"`
	Channel     models.SaleChannel `json:"channel"`
	EvidenceRef string             `json:"evidence_ref" validate:"max=255"`
}

type RejectSaleRequest struct {
	Reason string `json:"reason"`
}

// POST /api/sales
func SubmitSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var body SubmitSaleRequest
		if err := httpx.ParseAndValidate(c, &body); err != nil {
			return err
		}

		res, err := svc.Submit(c.UserContext(), a, SubmitInput{
			VendorID:    body.VendorID,
			ProductID:   body.ProductID,
			IMEI:        body.IMEI,
			SalePrice:   body.SalePrice,
			Channel:     body.Channel,
			EvidenceRef: body.EvidenceRef,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GET /api/sales?status=pending&vendor_id=1&risk_level=high&from=2024-01-01&to=2024-01-31
func ListSalesHandler(svc *Service, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var f ListFilter
		if f.VendorID, err = httpx.QueryID(c, "vendor_id"); err != nil {
			return err
		}
		if f.From, f.To, err = httpx.QueryDateRange(c, loc); err != nil {
			return err
		}
		f.Status = models.SaleStatus(c.Query("status"))
		f.RiskLevel = models.RiskLevel(c.Query("risk_level"))
		f.Limit = c.QueryInt("limit", defaultListLimit)

		sales, err := svc.List(c.UserContext(), a, f)
		if err != nil {
			return err
		}
		return c.JSON(sales)
	}
}

// GET /api/sales/:id
func GetSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		sale, err := svc.Get(c.UserContext(), a, id)
		if err != nil {
			return err
		}
		return c.JSON(sale)
	}
}

// GET /api/sales/check-imei?imei=490154203237518
func CheckIMEIHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("imei")
		if raw == "" {
			return fiber.NewError(fiber.StatusBadRequest, "imei is required")
		}
		res, err := svc.CheckIMEI(c.UserContext(), raw)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// POST /api/admin/sales/:id/approve
func ApproveSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		res, err := svc.Approve(c.UserContext(), a, id)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// POST /api/admin/sales/:id/reject
func RejectSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		// the service owns the reason rules so an empty body gets the same message
		var body RejectSaleRequest
		if err := httpx.ParseAndValidate(c, &body); err != nil {
			return err
		}

		res, err := svc.Reject(c.UserContext(), a, id, body.Reason)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// POST /api/admin/sales/:id/rescore
func RescoreSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		res, err := svc.Rescore(c.UserContext(), a, id)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}
