package diffusion

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mudler/LocalDiffusion/core/schema"
	"github.com/mudler/LocalDiffusion/pkg/artifact"
	"github.com/mudler/LocalDiffusion/pkg/model"
)

// httpError maps service errors to HTTP errors. Unknown errors are returned
// as they are and end up as 500s.
func httpError(err error) error {
	var ve *schema.ValidationError
	var ie *model.InferenceError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error()).SetInternal(err)
	case errors.Is(err, model.ErrModelUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Model not loaded").SetInternal(err)
	case errors.As(err, &ie):
		return echo.NewHTTPError(http.StatusInternalServerError, ie.Error()).SetInternal(err)
	case errors.Is(err, artifact.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Image not found").SetInternal(err)
	case errors.Is(err, artifact.ErrInvalidName):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid image name").SetInternal(err)
	}
	return err
}
