// Package localai drives an OpenAI compatible image generation API, such as
// the one exposed by LocalAI.
package localai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mudler/LocalDiffusion/pkg/model"
	"github.com/mudler/LocalDiffusion/pkg/utils"
	"github.com/mudler/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Img2ImgMode is the LocalAI diffusers mode for image to image generation.
const Img2ImgMode = 2

type Pipeline struct {
	client openai.Client
	model  string
}

// Load checks that the model is served by the endpoint and returns a
// pipeline bound to it.
func Load(ctx context.Context, o model.LoadOptions) (model.Pipeline, error) {
	if o.Endpoint == "" {
		return nil, errors.New("localai: no endpoint configured")
	}

	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimSuffix(o.Endpoint, "/") + "/v1/"),
		option.WithMaxRetries(0),
	}
	if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	} else {
		// the client refuses to send requests without a key
		opts = append(opts, option.WithAPIKey("sk-local"))
	}
	if o.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(o.Timeout))
	}

	p := &Pipeline{
		client: openai.NewClient(opts...),
		model:  o.Model,
	}

	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("localai: failed to list models: %w", err)
	}
	found := false
	for _, m := range page.Data {
		if m.ID == o.Model {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("localai: model %q is not available at %s", o.Model, o.Endpoint)
	}

	xlog.Debug("localai pipeline ready", "model", o.Model, "endpoint", o.Endpoint, "device", o.Device)
	return p, nil
}

// Prompt joins positive and negative prompts the way LocalAI splits them.
func Prompt(positive, negative string) string {
	if negative == "" {
		return positive
	}
	return positive + "|" + negative
}

func (p *Pipeline) TextToImage(ctx context.Context, params model.TextToImageParams) ([]byte, error) {
	return p.generate(ctx, openai.ImageGenerateParams{
		Prompt:         Prompt(params.Prompt, params.NegativePrompt),
		Model:          openai.ImageModel(p.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(fmt.Sprintf("%dx%d", params.Width, params.Height)),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	},
		option.WithJSONSet("step", params.Steps),
		option.WithJSONSet("cfg_scale", params.GuidanceScale),
	)
}

func (p *Pipeline) ImageToImage(ctx context.Context, params model.ImageToImageParams) ([]byte, error) {
	return p.generate(ctx, openai.ImageGenerateParams{
		Prompt:         Prompt(params.Prompt, params.NegativePrompt),
		Model:          openai.ImageModel(p.model),
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	},
		option.WithJSONSet("file", utils.EncodeBase64Image(params.Source)),
		option.WithJSONSet("mode", Img2ImgMode),
		option.WithJSONSet("step", params.Steps),
		option.WithJSONSet("cfg_scale", params.GuidanceScale),
		option.WithJSONSet("strength", params.Strength),
	)
}

func (p *Pipeline) generate(ctx context.Context, params openai.ImageGenerateParams, opts ...option.RequestOption) ([]byte, error) {
	resp, err := p.client.Images.Generate(ctx, params, opts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("no image returned")
	}
	return utils.DecodeBase64Image(resp.Data[0].B64JSON)
}
