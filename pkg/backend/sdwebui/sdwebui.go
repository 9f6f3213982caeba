// Package sdwebui drives the sdapi HTTP API of stable-diffusion-webui.
package sdwebui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/mudler/LocalDiffusion/pkg/model"
	"github.com/mudler/LocalDiffusion/pkg/utils"
	"github.com/mudler/xlog"
)

type SDModel struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
	Hash      string `json:"hash,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

type Options struct {
	SDModelCheckpoint          string `json:"sd_model_checkpoint,omitempty"`
	CrossAttentionOptimization string `json:"cross_attention_optimization,omitempty"`
}

type Txt2ImgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Steps          int     `json:"steps"`
	CfgScale       float64 `json:"cfg_scale"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	BatchSize      int     `json:"batch_size"`
	NIter          int     `json:"n_iter"`
}

type Img2ImgRequest struct {
	InitImages        []string `json:"init_images"`
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt"`
	DenoisingStrength float64  `json:"denoising_strength"`
	Steps             int      `json:"steps"`
	CfgScale          float64  `json:"cfg_scale"`
	Width             int      `json:"width,omitempty"`
	Height            int      `json:"height,omitempty"`
	BatchSize         int      `json:"batch_size"`
	NIter             int      `json:"n_iter"`
}

type ImagesResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info,omitempty"`
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) Models(ctx context.Context) ([]SDModel, error) {
	var models []SDModel
	err := c.do(ctx, http.MethodGet, "/sdapi/v1/sd-models", nil, &models)
	return models, err
}

func (c *Client) SetOptions(ctx context.Context, o Options) error {
	return c.do(ctx, http.MethodPost, "/sdapi/v1/options", o, nil)
}

func (c *Client) Txt2Img(ctx context.Context, req Txt2ImgRequest) (*ImagesResponse, error) {
	resp := &ImagesResponse{}
	if err := c.do(ctx, http.MethodPost, "/sdapi/v1/txt2img", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Img2Img(ctx context.Context, req Img2ImgRequest) (*ImagesResponse, error) {
	resp := &ImagesResponse{}
	if err := c.do(ctx, http.MethodPost, "/sdapi/v1/img2img", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sdwebui: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sdwebui: %s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sdwebui: failed to decode %s response: %w", path, err)
	}
	return nil
}

type Pipeline struct {
	client *Client
}

// Load selects the configured checkpoint on the webui and returns a pipeline
// for it. The model may be given as either its title or its short name.
func Load(ctx context.Context, o model.LoadOptions) (model.Pipeline, error) {
	if o.Endpoint == "" {
		return nil, errors.New("sdwebui: no endpoint configured")
	}
	c := NewClient(o.Endpoint, &http.Client{Timeout: o.Timeout})

	models, err := c.Models(ctx)
	if err != nil {
		return nil, err
	}
	checkpoint := ""
	for _, m := range models {
		if m.Title == o.Model || m.ModelName == o.Model {
			checkpoint = m.Title
			break
		}
	}
	if checkpoint == "" {
		return nil, fmt.Errorf("sdwebui: checkpoint %q not found", o.Model)
	}

	opts := Options{SDModelCheckpoint: checkpoint}
	if o.AttentionSlicing {
		opts.CrossAttentionOptimization = "sub-quadratic"
	}
	if err := c.SetOptions(ctx, opts); err != nil {
		return nil, err
	}

	xlog.Debug("sdwebui pipeline ready", "checkpoint", checkpoint, "endpoint", o.Endpoint, "device", o.Device)
	return &Pipeline{client: c}, nil
}

func (p *Pipeline) TextToImage(ctx context.Context, params model.TextToImageParams) ([]byte, error) {
	resp, err := p.client.Txt2Img(ctx, Txt2ImgRequest{
		Prompt:         params.Prompt,
		NegativePrompt: params.NegativePrompt,
		Steps:          params.Steps,
		CfgScale:       params.GuidanceScale,
		Width:          params.Width,
		Height:         params.Height,
		BatchSize:      1,
		NIter:          1,
	})
	if err != nil {
		return nil, err
	}
	return firstImage(resp)
}

func (p *Pipeline) ImageToImage(ctx context.Context, params model.ImageToImageParams) ([]byte, error) {
	// the webui renders at 512x512 unless told otherwise, keep the source size
	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(params.Source)); err == nil {
		width, height = cfg.Width/8*8, cfg.Height/8*8
	}

	resp, err := p.client.Img2Img(ctx, Img2ImgRequest{
		InitImages:        []string{utils.EncodeBase64Image(params.Source)},
		Prompt:            params.Prompt,
		NegativePrompt:    params.NegativePrompt,
		DenoisingStrength: params.Strength,
		Steps:             params.Steps,
		CfgScale:          params.GuidanceScale,
		Width:             width,
		Height:            height,
		BatchSize:         1,
		NIter:             1,
	})
	if err != nil {
		return nil, err
	}
	return firstImage(resp)
}

func firstImage(resp *ImagesResponse) ([]byte, error) {
	if len(resp.Images) == 0 {
		return nil, errors.New("sdwebui: no image returned")
	}
	return utils.DecodeBase64Image(resp.Images[0])
}
