package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/mudler/LocalDiffusion/core/application"
	"github.com/mudler/LocalDiffusion/core/http/endpoints/diffusion"
)

func RegisterDiffusionRoutes(e *echo.Echo, application *application.Application) {
	handle := application.ModelHandle()
	images := application.ImageService()

	e.GET("/", diffusion.WelcomeEndpoint(handle))
	e.GET("/health", diffusion.HealthEndpoint(handle))

	e.POST("/generate", diffusion.GenerateEndpoint(images))
	e.POST("/img2img", diffusion.ImageToImageEndpoint(images))

	e.GET("/gallery", diffusion.GalleryEndpoint(images))
	e.GET("/gallery/:filename", diffusion.ImageEndpoint(images))
	e.DELETE("/delete/:filename", diffusion.DeleteEndpoint(images))
}
