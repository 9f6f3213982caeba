package diffusion

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mudler/LocalDiffusion/core/schema"
	"github.com/mudler/LocalDiffusion/core/services"
)

// GalleryEndpoint lists the generated images, newest first
// @Summary List generated images
// @Success 200 {object} schema.GalleryResponse
// @Router /gallery [get]
func GalleryEndpoint(svc *services.ImageService) echo.HandlerFunc {
	return func(c echo.Context) error {
		images, err := svc.Gallery(c.Request().Context())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, schema.GalleryResponse{Images: images})
	}
}

// ImageEndpoint describes one generated image
// @Summary Describe a generated image
// @Param filename path string true "Image file name"
// @Success 200 {object} schema.GalleryImage
// @Failure 404 {object} schema.ErrorResponse
// @Router /gallery/{filename} [get]
func ImageEndpoint(svc *services.ImageService) echo.HandlerFunc {
	return func(c echo.Context) error {
		img, err := svc.Image(c.Request().Context(), c.Param("filename"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, img)
	}
}

// DeleteEndpoint removes a generated image
// @Summary Delete a generated image
// @Param filename path string true "Image file name"
// @Success 200 {object} schema.DeleteResponse
// @Failure 404 {object} schema.ErrorResponse
// @Router /delete/{filename} [delete]
func DeleteEndpoint(svc *services.ImageService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.Delete(c.Request().Context(), c.Param("filename")); err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, schema.DeleteResponse{
			Success: true,
			Message: "Image deleted",
		})
	}
}
