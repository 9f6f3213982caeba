package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mudler/LocalDiffusion/core/backend"
	cliContext "github.com/mudler/LocalDiffusion/core/cli/context"
	"github.com/mudler/LocalDiffusion/core/config"
	"github.com/mudler/LocalDiffusion/core/schema"
	"github.com/mudler/LocalDiffusion/pkg/model"
	"github.com/mudler/LocalDiffusion/pkg/utils"
	"github.com/mudler/xlog"
	"gopkg.in/yaml.v3"
)

type GenerateCMD struct {
	Prompt []string `arg:"" optional:""`
	Batch  string   `type:"existingfile" help:"YAML file with a list of requests to generate, one image each. Files are named after --output-file with the request index appended"`

	NegativePrompt string  `short:"n" help:"What the image should not contain"`
	Steps          int     `short:"s" default:"30" help:"Number of inference steps"`
	GuidanceScale  float64 `short:"g" default:"7.5" help:"How closely the image follows the prompt"`
	Width          int     `default:"512" help:"Image width, a multiple of 8"`
	Height         int     `default:"512" help:"Image height, a multiple of 8"`
	OutputFile     string  `short:"o" type:"path" default:"output.png" help:"The path to write the generated png"`

	Backend         string        `env:"LOCALDIFFUSION_BACKEND,BACKEND" short:"b" default:"localai" enum:"localai,sdwebui" help:"Inference backend serving the diffusion model [${enum}]"`
	BackendEndpoint string        `env:"LOCALDIFFUSION_BACKEND_ENDPOINT,BACKEND_ENDPOINT" default:"http://127.0.0.1:8080" help:"Base URL of the inference backend"`
	BackendAPIKey   string        `env:"LOCALDIFFUSION_BACKEND_API_KEY,BACKEND_API_KEY" help:"API key sent to the inference backend"`
	Model           string        `env:"LOCALDIFFUSION_MODEL,MODEL" short:"m" default:"runwayml/stable-diffusion-v1-5" help:"Model identifier to load"`
	Device          string        `env:"LOCALDIFFUSION_DEVICE,DEVICE" default:"auto" enum:"auto,cpu,cuda,rocm,mps" help:"Accelerator the model runs on [${enum}]"`
	Timeout         time.Duration `env:"LOCALDIFFUSION_GENERATION_TIMEOUT,GENERATION_TIMEOUT" default:"0" help:"Abort the generation after this long (0 = no timeout)"`
}

func (g *GenerateCMD) request() *schema.GenerateRequest {
	req := schema.NewGenerateRequest()
	req.Prompt = strings.Join(g.Prompt, " ")
	req.NegativePrompt = g.NegativePrompt
	req.NumInferenceSteps = g.Steps
	req.GuidanceScale = g.GuidanceScale
	req.Width = g.Width
	req.Height = g.Height
	return req
}

// batch reads the requests listed in a YAML file. Fields missing from an
// entry take the usual defaults.
func (g *GenerateCMD) batch() ([]*schema.GenerateRequest, error) {
	data, err := os.ReadFile(g.Batch)
	if err != nil {
		return nil, err
	}
	var entries []yaml.Node
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", g.Batch, err)
	}
	requests := make([]*schema.GenerateRequest, 0, len(entries))
	for i := range entries {
		req := schema.NewGenerateRequest()
		if err := entries[i].Decode(req); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

type generateJob struct {
	file    string
	request *schema.GenerateRequest
}

// jobs pairs every request with the file it is written to, in the order the
// requests were given.
func (g *GenerateCMD) jobs() ([]generateJob, error) {
	if g.Batch == "" {
		if len(g.Prompt) == 0 {
			return nil, fmt.Errorf("a prompt or a --batch file is required")
		}
		return []generateJob{{file: g.OutputFile, request: g.request()}}, nil
	}

	requests, err := g.batch()
	if err != nil {
		return nil, err
	}
	ext := filepath.Ext(g.OutputFile)
	base := strings.TrimSuffix(g.OutputFile, ext)
	jobs := make([]generateJob, 0, len(requests))
	for i, req := range requests {
		jobs = append(jobs, generateJob{file: fmt.Sprintf("%s-%d%s", base, i, ext), request: req})
	}
	return jobs, nil
}

func (g *GenerateCMD) Run(ctx *cliContext.Context) error {
	jobs, err := g.jobs()
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := job.request.Validate(schema.DefaultLimits); err != nil {
			return fmt.Errorf("%s: %w", job.file, err)
		}
	}

	appConfig := config.NewApplicationConfig(
		config.WithContext(context.Background()),
		config.WithBackend(g.Backend),
		config.WithBackendEndpoint(g.BackendEndpoint),
		config.WithBackendAPIKey(g.BackendAPIKey),
		config.WithModel(g.Model),
		config.WithDevice(g.Device),
		config.WithGenerationTimeout(g.Timeout),
	)

	handle, err := backend.NewModelHandle(appConfig)
	if err != nil {
		return err
	}
	if err := handle.Load(appConfig.Context); err != nil {
		return fmt.Errorf("failed to load model %q: %w", g.Model, err)
	}

	for _, job := range jobs {
		if err := g.generate(appConfig.Context, handle, job.request, job.file); err != nil {
			return err
		}
	}
	return nil
}

func (g *GenerateCMD) generate(ctx context.Context, handle *model.Handle, req *schema.GenerateRequest, file string) error {
	start := time.Now()
	out, err := handle.TextToImage(ctx, model.TextToImageParams{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Steps:          req.NumInferenceSteps,
		GuidanceScale:  req.GuidanceScale,
		Width:          req.Width,
		Height:         req.Height,
	})
	if err != nil {
		return err
	}
	out, err = utils.EnsurePNG(out)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return err
	}
	if err := os.WriteFile(file, out, 0644); err != nil {
		return err
	}
	xlog.Debug("Generation finished", "prompt", req.Prompt, "duration", time.Since(start))
	fmt.Printf("Generated file %q\n", file)
	return nil
}
