package diffusion

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mudler/LocalDiffusion/core/schema"
	"github.com/mudler/LocalDiffusion/internal"
	"github.com/mudler/LocalDiffusion/pkg/model"
)

func status(h *model.Handle) schema.StatusResponse {
	return schema.StatusResponse{
		ModelLoaded: h.Ready(),
		Device:      h.Device(),
		Model:       h.Model(),
		Backend:     h.Backend(),
		ModelState:  h.State().String(),
	}
}

// WelcomeEndpoint describes the service
// @Summary Service status
// @Success 200 {object} schema.StatusResponse
// @Router / [get]
func WelcomeEndpoint(h *model.Handle) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := status(h)
		resp.Message = "Image Generation API"
		resp.Status = "running"
		resp.Version = internal.PrintableVersion()
		return c.JSON(http.StatusOK, resp)
	}
}

// HealthEndpoint reports whether the process is up and whether the model is loaded
// @Summary Health check
// @Success 200 {object} schema.StatusResponse
// @Router /health [get]
func HealthEndpoint(h *model.Handle) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := status(h)
		resp.Status = "healthy"
		return c.JSON(http.StatusOK, resp)
	}
}
