package payout

import (
	"time"

	"vendorsales-backend/internal/auth"
	"vendorsales-backend/internal/httpx"
	"vendorsales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateBatchRequest struct {
	CommissionIDs []uint `json:"commission_ids"`
	PeriodStart   string `json:"period_start" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd     string `json:"period_end" validate:"omitempty,datetime=2006-01-02"`
	Notes         string `json:"notes" validate:"max=500"`
}

type FailBatchRequest struct {
	Reason string `json:"reason"`
}

// POST /api/admin/payment-batches
func CreateBatchHandler(svc *Service, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var body CreateBatchRequest
		if err := httpx.ParseAndValidate(c, &body); err != nil {
			return err
		}

		in := CreateBatchInput{CommissionIDs: body.CommissionIDs, Notes: body.Notes}
		if body.PeriodStart != "" {
			in.PeriodStart, _ = time.ParseInLocation("2006-01-02", body.PeriodStart, loc)
		}
		if body.PeriodEnd != "" {
			in.PeriodEnd, _ = time.ParseInLocation("2006-01-02", body.PeriodEnd, loc)
		}

		res, err := svc.CreateBatch(c.UserContext(), a, in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GET /api/admin/payment-batches?status=pending
func ListBatchesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		batches, err := svc.List(c.UserContext(), models.BatchStatus(c.Query("status")))
		if err != nil {
			return err
		}
		return c.JSON(batches)
	}
}

// GET /api/admin/payment-batches/:id
func GetBatchHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		res, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// POST /api/admin/payment-batches/:id/process
func MarkProcessingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		batch, err := svc.MarkProcessing(c.UserContext(), a, id)
		if err != nil {
			return err
		}
		return c.JSON(batch)
	}
}

// POST /api/admin/payment-batches/:id/complete
func CompleteBatchHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		batch, err := svc.Complete(c.UserContext(), a, id)
		if err != nil {
			return err
		}
		return c.JSON(batch)
	}
}

// POST /api/admin/payment-batches/:id/fail
func FailBatchHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body FailBatchRequest
		if err := httpx.ParseAndValidate(c, &body); err != nil {
			return err
		}
		batch, err := svc.Fail(c.UserContext(), a, id, body.Reason)
		if err != nil {
			return err
		}
		return c.JSON(batch)
	}
}

// POST /api/admin/commissions/recalculate
func RecalculateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		res, err := svc.Recalculate(c.UserContext(), a)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}
