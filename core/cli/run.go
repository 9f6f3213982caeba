package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mudler/LocalDiffusion/core/application"
	cliContext "github.com/mudler/LocalDiffusion/core/cli/context"
	"github.com/mudler/LocalDiffusion/core/config"
	httpAPI "github.com/mudler/LocalDiffusion/core/http"
	"github.com/mudler/LocalDiffusion/internal"
	"github.com/mudler/LocalDiffusion/pkg/signals"
	"github.com/mudler/xlog"
)

type RunCMD struct {
	OutputsPath     string `env:"LOCALDIFFUSION_OUTPUTS_PATH,OUTPUTS_PATH" type:"path" default:"${basepath}/outputs" help:"Directory where generated images are stored" group:"storage"`
	OutputsURL      string `env:"LOCALDIFFUSION_OUTPUTS_URL,OUTPUTS_URL" default:"/outputs" help:"URL prefix the generated images are served under" group:"storage"`
	HistoryDatabase string `env:"LOCALDIFFUSION_HISTORY_DATABASE,HISTORY_DATABASE" type:"path" help:"SQLite database used to remember the prompt of every image. Disabled when empty" group:"storage"`
	S3Bucket        string `env:"LOCALDIFFUSION_S3_BUCKET,S3_BUCKET" help:"Mirror generated images to this S3 bucket. Credentials are read from the standard AWS environment" group:"storage"`
	S3Prefix        string `env:"LOCALDIFFUSION_S3_PREFIX,S3_PREFIX" help:"Key prefix of the mirrored images" group:"storage"`

	Backend             string        `env:"LOCALDIFFUSION_BACKEND,BACKEND" default:"localai" enum:"localai,sdwebui" help:"Inference backend serving the diffusion model [${enum}]" group:"model"`
	BackendEndpoint     string        `env:"LOCALDIFFUSION_BACKEND_ENDPOINT,BACKEND_ENDPOINT" default:"http://127.0.0.1:8080" help:"Base URL of the inference backend" group:"model"`
	BackendAPIKey       string        `env:"LOCALDIFFUSION_BACKEND_API_KEY,BACKEND_API_KEY" help:"API key sent to the inference backend" group:"model"`
	Model               string        `env:"LOCALDIFFUSION_MODEL,MODEL" default:"runwayml/stable-diffusion-v1-5" help:"Model identifier to load" group:"model"`
	Device              string        `env:"LOCALDIFFUSION_DEVICE,DEVICE" default:"auto" enum:"auto,cpu,cuda,rocm,mps" help:"Accelerator the model runs on, auto picks the first available [${enum}]" group:"model"`
	WaitForModel        bool          `env:"LOCALDIFFUSION_WAIT_FOR_MODEL,WAIT_FOR_MODEL" help:"Load the model before the API starts listening instead of in the background" group:"model"`
	ParallelGenerations int           `env:"LOCALDIFFUSION_PARALLEL_GENERATIONS,PARALLEL_GENERATIONS" default:"1" help:"Maximum number of generations running at once (0 = unlimited)" group:"performance"`
	GenerationTimeout   time.Duration `env:"LOCALDIFFUSION_GENERATION_TIMEOUT,GENERATION_TIMEOUT" default:"0" help:"Abort a generation running longer than this (0 = no timeout)" group:"performance"`

	MaxSteps           int     `env:"LOCALDIFFUSION_MAX_STEPS,MAX_STEPS" default:"150" help:"Largest accepted num_inference_steps" group:"limits"`
	MaxGuidanceScale   float64 `env:"LOCALDIFFUSION_MAX_GUIDANCE_SCALE,MAX_GUIDANCE_SCALE" default:"30" help:"Largest accepted guidance_scale" group:"limits"`
	MaxWidth           int     `env:"LOCALDIFFUSION_MAX_WIDTH,MAX_WIDTH" default:"2048" help:"Largest accepted image width" group:"limits"`
	MaxHeight          int     `env:"LOCALDIFFUSION_MAX_HEIGHT,MAX_HEIGHT" default:"2048" help:"Largest accepted image height" group:"limits"`
	MaxSourceDimension int     `env:"LOCALDIFFUSION_MAX_SOURCE_DIMENSION,MAX_SOURCE_DIMENSION" default:"768" help:"Uploaded images are scaled down to fit this size before image to image generation" group:"limits"`

	Address                string `env:"LOCALDIFFUSION_ADDRESS,ADDRESS" default:":8000" help:"Bind address for the API server" group:"api"`
	CORS                   bool   `env:"LOCALDIFFUSION_CORS,CORS" default:"true" negatable:"" help:"Enable CORS" group:"api"`
	CORSAllowOrigins       string `env:"LOCALDIFFUSION_CORS_ALLOW_ORIGINS,CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:3001" help:"Comma separated list of origins allowed by CORS" group:"api"`
	UploadLimit            int    `env:"LOCALDIFFUSION_UPLOAD_LIMIT,UPLOAD_LIMIT" default:"15" help:"Default upload-limit in MB" group:"api"`
	DisableMetricsEndpoint bool   `env:"LOCALDIFFUSION_DISABLE_METRICS_ENDPOINT,DISABLE_METRICS_ENDPOINT" default:"false" help:"Disable the /metrics endpoint" group:"api"`
	OpaqueErrors           bool   `env:"LOCALDIFFUSION_OPAQUE_ERRORS" default:"false" help:"If true, error responses are replaced with blank bodies. This is intended only for hardening against information leaks" group:"hardening"`

	Version bool
}

func (r *RunCMD) appOptions(ctx context.Context, cliCtx *cliContext.Context) []config.AppOption {
	opts := []config.AppOption{
		config.WithContext(ctx),
		config.WithDebug(cliCtx.Debug || (cliCtx.LogLevel != nil && *cliCtx.LogLevel == "debug")),
		config.WithOutputsDir(r.OutputsPath),
		config.WithOutputsURL(r.OutputsURL),
		config.WithHistoryDatabase(r.HistoryDatabase),
		config.WithBackend(r.Backend),
		config.WithBackendEndpoint(r.BackendEndpoint),
		config.WithBackendAPIKey(r.BackendAPIKey),
		config.WithModel(r.Model),
		config.WithDevice(r.Device),
		config.WithParallelGenerations(r.ParallelGenerations),
		config.WithGenerationTimeout(r.GenerationTimeout),
		config.WithMaxSteps(r.MaxSteps),
		config.WithMaxGuidanceScale(r.MaxGuidanceScale),
		config.WithMaxImageSize(r.MaxWidth, r.MaxHeight),
		config.WithMaxSourceDimension(r.MaxSourceDimension),
		config.WithUploadLimitMB(r.UploadLimit),
		config.WithCors(r.CORS),
		config.WithCorsAllowOrigins(r.CORSAllowOrigins),
		config.WithOpaqueErrors(r.OpaqueErrors),
	}

	if r.S3Bucket != "" {
		opts = append(opts, config.WithS3Mirror(r.S3Bucket, r.S3Prefix))
	}
	if r.WaitForModel {
		opts = append(opts, config.EnableWaitForModel)
	}
	if r.DisableMetricsEndpoint {
		opts = append(opts, config.DisableMetricsEndpoint)
	}
	return opts
}

func (r *RunCMD) Run(ctx *cliContext.Context) error {
	if r.Version {
		fmt.Println(internal.PrintableVersion())
		return nil
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := application.New(r.appOptions(appCtx, ctx)...)
	if err != nil {
		return fmt.Errorf("failed basic startup tasks with error %s", err.Error())
	}

	appHTTP, err := httpAPI.API(app)
	if err != nil {
		xlog.Error("error during HTTP App construction", "error", err)
		return err
	}

	xlog.Info("LocalDiffusion is started and running", "address", r.Address)

	signals.RegisterGracefulTerminationHandler(func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := appHTTP.Shutdown(shutdownCtx); err != nil {
			xlog.Error("error while stopping the API server", "error", err)
		}
	})
	signals.RegisterGracefulTerminationHandler(func() {
		cancel()
		if err := app.Shutdown(); err != nil {
			xlog.Error("error while shutting down", "error", err)
		}
	})

	if err := appHTTP.Start(r.Address); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		<-signals.Terminated()
	}
	return nil
}
