package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RoleAdmin is the only role allowed to edit the catalog.
const RoleAdmin = "ADMIN"

// RequireRole rejects with 403 any request whose role, as stored by
// JWTAuth, is not one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
