package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpMiddleware "github.com/mudler/LocalDiffusion/core/http/middleware"
	"github.com/mudler/LocalDiffusion/core/http/routes"

	"github.com/mudler/LocalDiffusion/core/application"
	"github.com/mudler/LocalDiffusion/core/schema"

	"github.com/mudler/xlog"
)

// @title LocalDiffusion API
// @version 1.0.0
// @description Text to image and image to image generation over HTTP.
// @BasePath /

func API(application *application.Application) (*echo.Echo, error) {
	e := echo.New()
	appConfig := application.ApplicationConfig()

	// Set body limit
	if appConfig.UploadLimitMB > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", appConfig.UploadLimitMB)))
	}

	// Set error handler
	if !appConfig.OpaqueErrors {
		e.HTTPErrorHandler = func(err error, c echo.Context) {
			if c.Response().Committed {
				return
			}
			code := http.StatusInternalServerError
			message := err.Error()
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
				message = fmt.Sprint(he.Message)
			}
			if code >= http.StatusInternalServerError {
				xlog.Error("request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "status", code, "error", err)
			}

			c.JSON(code, schema.ErrorResponse{
				Error: &schema.APIError{Message: message, Code: code, Type: errorType(code)},
			})
		}
	} else {
		e.HTTPErrorHandler = func(err error, c echo.Context) {
			if c.Response().Committed {
				return
			}
			code := http.StatusInternalServerError
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			}
			c.NoContent(code)
		}
	}

	// Hide banner
	e.HideBanner = true
	e.HidePort = true

	// Custom logger middleware using xlog
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			err := next(c)
			status := res.Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}
			xlog.Info("HTTP request", "method", req.Method, "path", req.URL.Path, "status", status)
			return err
		}
	})

	// Recover middleware
	if !appConfig.Debug {
		e.Use(middleware.Recover())
	}

	// Metrics middleware
	if metricsService := application.MetricsService(); metricsService != nil {
		e.Use(httpMiddleware.MetricsMiddleware(metricsService, appConfig.OutputsURL))
		e.GET("/metrics", echo.WrapHandler(metricsService.Handler()))
	}

	// CORS middleware
	if appConfig.CORS {
		corsConfig := middleware.CORSConfig{
			AllowCredentials: true,
		}
		if appConfig.CORSAllowOrigins != "" {
			corsConfig.AllowOrigins = strings.Split(appConfig.CORSAllowOrigins, ",")
		}
		e.Use(middleware.CORSWithConfig(corsConfig))
	}

	routes.HealthRoutes(e, application.ModelHandle())

	// Generated images
	e.Use(httpMiddleware.DenyHiddenFiles(application.ArtifactStore().URL("")))
	e.Static(application.ArtifactStore().URL(""), application.ArtifactStore().Dir())

	routes.RegisterDiffusionRoutes(e, application)

	e.Server.RegisterOnShutdown(func() {
		xlog.Info("LocalDiffusion API server shutting down")
	})

	return e, nil
}

func errorType(code int) string {
	switch {
	case code == http.StatusServiceUnavailable:
		return "service_unavailable"
	case code == http.StatusNotFound:
		return "not_found"
	case code >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "invalid_request_error"
	}
}
