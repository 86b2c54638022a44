// Package httpx holds request parsing and error mapping shared by handlers.
package httpx

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"vendorsales-backend/internal/apperr"
	"vendorsales-backend/internal/logger"
)

var validate = validator.New()

// ParseAndValidate decodes the body into out and runs its `validate` tags.
func ParseAndValidate(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return apperr.Validation("%s", ValidationMessage(err))
	}
	return nil
}

// ValidationMessage flattens validator errors into "field: tag" pairs.
func ValidationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err.Error()
	}
	parts := make([]string, 0, len(ves))
	for _, ve := range ves {
		parts = append(parts, strings.ToLower(ve.Field())+": "+ve.Tag())
	}
	sort.Strings(parts)
	return "invalid fields: " + strings.Join(parts, ", ")
}

// ParamID reads a positive integer route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// QueryID reads an optional positive integer query parameter.
func QueryID(c *fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, apperr.Validation("invalid %s", name)
	}
	v := uint(id)
	return &v, nil
}

func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {"error": msg}. fiber errors keep their
// code; apperr kinds map onto 400/403/404/409/503; anything else is a logged 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	code := StatusOf(err)
	if code == fiber.StatusInternalServerError {
		logger.LogError(logger.Get(), "http", "ErrorHandler", fmt.Sprintf("%s %s", c.Method(), c.Path()), nil, err)
	}
	return c.Status(code).JSON(fiber.Map{"error": apperr.Message(err)})
}

const dateLayout = "2006-01-02"

// QueryDateRange reads optional from/to dates (YYYY-MM-DD) in loc. The
// returned upper bound is exclusive: the day after `to`.
func QueryDateRange(c *fiber.Ctx, loc *time.Location) (from, to *time.Time, err error) {
	if loc == nil {
		loc = time.UTC
	}
	if raw := c.Query("from"); raw != "" {
		t, perr := time.ParseInLocation(dateLayout, raw, loc)
		if perr != nil {
			return nil, nil, apperr.Validation("from must be a date like 2024-01-31")
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, perr := time.ParseInLocation(dateLayout, raw, loc)
		if perr != nil {
			return nil, nil, apperr.Validation("to must be a date like 2024-01-31")
		}
		t = t.AddDate(0, 0, 1)
		to = &t
	}
	return from, to, nil
}
