package schema

const (
	DefaultSteps         = 30
	DefaultGuidanceScale = 7.5
	DefaultWidth         = 512
	DefaultHeight        = 512
	DefaultStrength      = 0.75
)

// @Description Text to image request body
type GenerateRequest struct {
	Prompt            string  `json:"prompt" yaml:"prompt"`
	NegativePrompt    string  `json:"negative_prompt" yaml:"negative_prompt"`
	NumInferenceSteps int     `json:"num_inference_steps" yaml:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale" yaml:"guidance_scale"`
	Width             int     `json:"width" yaml:"width"`
	Height            int     `json:"height" yaml:"height"`
}

// NewGenerateRequest returns a request holding the defaults. Decoding a body
// into it only overrides the fields the client sent.
func NewGenerateRequest() *GenerateRequest {
	return &GenerateRequest{
		NumInferenceSteps: DefaultSteps,
		GuidanceScale:     DefaultGuidanceScale,
		Width:             DefaultWidth,
		Height:            DefaultHeight,
	}
}

// @Description Image to image request, sent as multipart form fields next to the "file" part
type ImageToImageRequest struct {
	Prompt            string  `json:"prompt" form:"prompt"`
	NegativePrompt    string  `json:"negative_prompt" form:"negative_prompt"`
	Strength          float64 `json:"strength" form:"strength"`
	GuidanceScale     float64 `json:"guidance_scale" form:"guidance_scale"`
	NumInferenceSteps int     `json:"num_inference_steps" form:"num_inference_steps"`

	// Image holds the uploaded source image
	Image []byte `json:"-" form:"-"`
}

func NewImageToImageRequest() *ImageToImageRequest {
	return &ImageToImageRequest{
		Strength:          DefaultStrength,
		GuidanceScale:     DefaultGuidanceScale,
		NumInferenceSteps: DefaultSteps,
	}
}

type GenerateResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"image_url"`
	Filename string `json:"filename"`
}

type GalleryImage struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	// Created is the creation time in seconds since the epoch
	Created float64 `json:"created"`

	Kind           string `json:"kind,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type GalleryResponse struct {
	Images []GalleryImage `json:"images"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Message     string `json:"message,omitempty"`
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
	Model       string `json:"model"`
	Backend     string `json:"backend"`
	ModelState  string `json:"model_state"`
	Version     string `json:"version,omitempty"`
}
