package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// DenyHiddenFiles answers 404 for any path under prefix with a segment
// starting with a dot. The artifact store keeps its in-flight temporary files
// under such names.
func DenyHiddenFiles(prefix string) echo.MiddlewareFunc {
	prefix = "/" + strings.Trim(prefix, "/")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := c.Request().URL.Path
			if p != prefix && !strings.HasPrefix(p, prefix+"/") {
				return next(c)
			}
			for _, segment := range strings.Split(strings.TrimPrefix(p, prefix), "/") {
				if strings.HasPrefix(segment, ".") {
					return echo.ErrNotFound
				}
			}
			return next(c)
		}
	}
}
