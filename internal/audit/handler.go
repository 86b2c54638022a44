package audit

import (
	"vendorsales-backend/internal/httpx"
	"vendorsales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	VendorID    *uint              `json:"vendor_id"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	RequestID   string             `json:"request_id"`
}

// GET /api/admin/audit-logs?entity_type=sale&entity_id=1&vendor_id=1&action=approve
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var f Filter
		var err error
		if f.VendorID, err = httpx.QueryID(c, "vendor_id"); err != nil {
			return err
		}
		if f.UserID, err = httpx.QueryID(c, "user_id"); err != nil {
			return err
		}
		if f.EntityID, err = httpx.QueryID(c, "entity_id"); err != nil {
			return err
		}
		f.EntityType = c.Query("entity_type")
		f.Action = models.AuditAction(c.Query("action"))
		f.Limit = c.QueryInt("limit", defaultLimit)

		logs, err := List(db.WithContext(c.UserContext()), f)
		if err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format("2006-01-02 15:04:05"),
				VendorID:    log.VendorID,
				UserID:      log.UserID,
				UserName:    log.UserName,
				EntityType:  log.EntityType,
				EntityID:    log.EntityID,
				Action:      log.Action,
				Description: log.Description,
				RequestID:   log.RequestID,
			})
		}

		return c.JSON(resp)
	}
}
