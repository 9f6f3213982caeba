package diffusion

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mudler/LocalDiffusion/core/schema"
	"github.com/mudler/LocalDiffusion/core/services"
	"github.com/mudler/xlog"
)

// GenerateEndpoint generates an image from a text prompt
// @Summary Text to image
// @Accept json
// @Param request body schema.GenerateRequest true "query params"
// @Success 200 {object} schema.GenerateResponse
// @Failure 400 {object} schema.ErrorResponse
// @Failure 503 {object} schema.ErrorResponse
// @Router /generate [post]
func GenerateEndpoint(svc *services.ImageService) echo.HandlerFunc {
	return func(c echo.Context) error {
		input := schema.NewGenerateRequest()
		if err := c.Bind(input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
		}

		xlog.Debug("Text to image request", "prompt", input.Prompt, "steps", input.NumInferenceSteps, "size", []int{input.Width, input.Height})

		a, err := svc.TextToImage(c.Request().Context(), input)
		if err != nil {
			return httpError(err)
		}

		return c.JSON(http.StatusOK, schema.GenerateResponse{
			Success:  true,
			ImageURL: a.URL,
			Filename: a.Filename,
		})
	}
}
