package auth

import (
	"errors"
	"strings"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/config"
	"vendorsales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxVendorIDKey = "vendor_id"
	CtxActorKey    = "actor"

	// matches the requestid middleware's default context key
	CtxRequestIDKey = "requestid"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "could not read token claims")
		}

		reqID, _ := c.Locals(CtxRequestIDKey).(string)

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxVendorIDKey, claims.VendorID)
		c.Locals(CtxActorKey, actor.Actor{
			UserID:    claims.UserID,
			Name:      claims.Name,
			Role:      claims.Role,
			VendorID:  claims.VendorID,
			RequestID: reqID,
			IP:        c.IP(),
		})

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "role unavailable")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "you are not allowed to do this")
	}
}

// ActorFrom returns the identity JWTMiddleware attached to c.
func ActorFrom(c *fiber.Ctx) (actor.Actor, error) {
	a, ok := c.Locals(CtxActorKey).(actor.Actor)
	if !ok {
		return actor.Actor{}, fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}
	return a, nil
}
