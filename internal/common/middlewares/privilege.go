package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequirePrivilege memeriksa apakah klaim JWT memiliki privilege yang dibutuhkan.
func RequirePrivilege(requiredPriv int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"status":  http.StatusUnauthorized,
					"message": "Missing or invalid JWT claims",
					"data":    nil,
				})
			}
			if !claims.HasPrivilege(requiredPriv) {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"status":  http.StatusForbidden,
					"message": "Anda tidak memiliki hak akses",
					"data":    nil,
				})
			}
			return next(c)
		}
	}
}
