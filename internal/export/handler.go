package export

import (
	"bytes"
	"fmt"
	"time"

	"vendorsales-backend/internal/auth"
	"vendorsales-backend/internal/commission"
	"vendorsales-backend/internal/httpx"
	"vendorsales-backend/internal/models"
	"vendorsales-backend/internal/sale"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/exports/commissions?format=csv&status=pending&vendor_id=1&from=2024-01-01&to=2024-01-31
func ExportCommissionsHandler(e *Exporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		format, ok := ParseFormat(c.Query("format"))
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "format must be json, csv or xlsx")
		}

		var f commission.ListFilter
		if f.VendorID, err = httpx.QueryID(c, "vendor_id"); err != nil {
			return err
		}
		if f.BatchID, err = httpx.QueryID(c, "batch_id"); err != nil {
			return err
		}
		if f.From, f.To, err = httpx.QueryDateRange(c, e.loc); err != nil {
			return err
		}
		f.Status = models.CommissionStatus(c.Query("status"))

		rows, err := e.Commissions(c.UserContext(), a, f)
		if err != nil {
			return err
		}
		if format == FormatJSON {
			return c.JSON(rows)
		}
		return send(c, format, "commissions", CommissionTable(rows))
	}
}

// GET /api/exports/sales?format=xlsx&status=approved&risk_level=high
func ExportSalesHandler(e *Exporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		format, ok := ParseFormat(c.Query("format"))
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "format must be json, csv or xlsx")
		}

		var f sale.ListFilter
		if f.VendorID, err = httpx.QueryID(c, "vendor_id"); err != nil {
			return err
		}
		if f.From, f.To, err = httpx.QueryDateRange(c, e.loc); err != nil {
			return err
		}
		f.Status = models.SaleStatus(c.Query("status"))
		f.RiskLevel = models.RiskLevel(c.Query("risk_level"))

		rows, err := e.Sales(c.UserContext(), a, f)
		if err != nil {
			return err
		}
		if format == FormatJSON {
			return c.JSON(rows)
		}
		return send(c, format, "sales", SaleTable(rows))
	}
}

func send(c *fiber.Ctx, format Format, name string, t Table) error {
	var buf bytes.Buffer
	filename := fmt.Sprintf("%s-%s.%s", name, time.Now().Format("20060102"), format)

	switch format {
	case FormatCSV:
		if err := t.WriteCSV(&buf); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	case FormatXLSX:
		if err := t.WriteXLSX(&buf, name); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, xlsxContentType)
	}
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}
