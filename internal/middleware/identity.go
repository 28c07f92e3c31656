package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id, if any.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id > 0
}

// StationID returns the station of the authenticated user, or 0.
func StationID(c echo.Context) uint64 {
	id, _ := c.Get(CtxStationID).(uint64)
	return id
}

// subject names the caller for rate limit keys: the user id when
// authenticated, otherwise the client IP.
func subject(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return "user:" + strconv.FormatUint(id, 10)
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
