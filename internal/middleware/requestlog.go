package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one entry per request with its method, route, status
// and latency. Server errors log at error level, client errors at warn.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo's error handler write the response so the
				// logged status matches what the client saw.
				c.Error(err)
			}

			status := c.Response().Status
			entry := log.WithFields(logrus.Fields{
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
				"route":      c.Path(),
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"ip":         c.RealIP(),
			})
			switch {
			case status >= 500:
				if err != nil {
					entry = entry.WithError(err)
				}
				entry.Error("request failed")
			case status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
			return nil
		}
	}
}
