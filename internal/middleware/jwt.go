package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/newsroom-rundown/internal/service"
	"github.com/iliyamo/newsroom-rundown/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxStationID = "station_id"
	// CtxError holds an internal error a handler answered with 500, for
	// the access log.
	CtxError = "handler_error"
)

// JWTAuth validates a Bearer access token and stores the user's id, role
// and station in the echo context.  The user id is also recorded on the
// request context so change events name the actor.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxStationID, claims.StationID)
			req := c.Request()
			c.SetRequest(req.WithContext(service.WithActor(req.Context(), claims.UserID)))
			return next(c)
		}
	}
}
