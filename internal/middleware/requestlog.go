package middleware

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/newsroom-rundown/internal/metrics"
)

// RequestLogger tags each request with an X-Request-ID (kept when the
// client sent one), writes one access log line and records the HTTP
// metrics.  Routes are labelled by their pattern, not the raw path.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)
			metrics.HTTPRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(elapsed.Seconds())

			entry := log.WithFields(logrus.Fields{
				"request_id": rid,
				"method":     req.Method,
				"route":      route,
				"path":       req.URL.Path,
				"status":     status,
				"latency_ms": elapsed.Milliseconds(),
				"remote_ip":  c.RealIP(),
			})
			if id, ok := UserID(c); ok {
				entry = entry.WithField("user_id", id)
			}
			if err == nil {
				err, _ = c.Get(CtxError).(error)
			}
			switch {
			case status >= 500:
				entry.WithError(err).Error("request failed")
			case status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
			return nil
		}
	}
}
