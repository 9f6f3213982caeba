package diffusion

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mudler/LocalDiffusion/core/schema"
	"github.com/mudler/LocalDiffusion/core/services"
	"github.com/mudler/xlog"
)

// ImageToImageEndpoint transforms an uploaded image following a prompt
// @Summary Image to image
// @Accept multipart/form-data
// @Param file formData file true "Source image"
// @Param prompt formData string true "Prompt"
// @Param negative_prompt formData string false "Negative prompt"
// @Param strength formData number false "Denoising strength (default 0.75)"
// @Param guidance_scale formData number false "Guidance scale (default 7.5)"
// @Param num_inference_steps formData int false "Inference steps (default 30)"
// @Success 200 {object} schema.GenerateResponse
// @Failure 400 {object} schema.ErrorResponse
// @Failure 503 {object} schema.ErrorResponse
// @Router /img2img [post]
func ImageToImageEndpoint(svc *services.ImageService) echo.HandlerFunc {
	return func(c echo.Context) error {
		input := schema.NewImageToImageRequest()
		input.Prompt = c.FormValue("prompt")
		input.NegativePrompt = c.FormValue("negative_prompt")

		var err error
		if input.Strength, err = formFloat(c, "strength", input.Strength); err != nil {
			return httpError(err)
		}
		if input.GuidanceScale, err = formFloat(c, "guidance_scale", input.GuidanceScale); err != nil {
			return httpError(err)
		}
		if input.NumInferenceSteps, err = formInt(c, "num_inference_steps", input.NumInferenceSteps); err != nil {
			return httpError(err)
		}

		file, err := c.FormFile("file")
		if err != nil {
			xlog.Debug("Image to image request without a file", "error", err)
			return httpError(&schema.ValidationError{Field: "file", Message: "an image file is required"})
		}
		src, err := file.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		if input.Image, err = io.ReadAll(src); err != nil {
			return err
		}

		xlog.Debug("Image to image request", "prompt", input.Prompt, "file", file.Filename, "size", file.Size, "strength", input.Strength)

		a, err := svc.ImageToImage(c.Request().Context(), input)
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

func formFloat(c echo.Context, field string, def float64) (float64, error) {
	v := c.FormValue(field)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &schema.ValidationError{Field: field, Message: fmt.Sprintf("%q is not a number", v)}
	}
	return f, nil
}

func formInt(c echo.Context, field string, def int) (int, error) {
	v := c.FormValue(field)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, &schema.ValidationError{Field: field, Message: fmt.Sprintf("%q is not an integer", v)}
	}
	return i, nil
}
