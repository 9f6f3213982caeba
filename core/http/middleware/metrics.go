package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mudler/LocalDiffusion/core/services"
)

// MetricsMiddleware records the duration of every API call. Requests for the
// metrics endpoint itself and for paths under skipPrefixes are not recorded.
func MetricsMiddleware(metrics *services.MetricsService, skipPrefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if shouldSkipMetrics(path, skipPrefixes) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			elapsed := float64(time.Since(start)) / float64(time.Second)

			// the route pattern keeps the label set bounded
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveAPICall(c.Request().Method, route, elapsed)
			return err
		}
	}
}

func shouldSkipMetrics(path string, skipPrefixes []string) bool {
	if path == "/metrics" {
		return true
	}
	for _, prefix := range skipPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
