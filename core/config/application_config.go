package config

import (
	"context"
	"time"

	"github.com/mudler/LocalDiffusion/core/schema"
	"github.com/mudler/LocalDiffusion/pkg/model"
)

type ApplicationConfig struct {
	Context context.Context

	// Artifact store
	OutputsDir string
	OutputsURL string
	S3Bucket   string
	S3Prefix   string

	// Model gateway
	Backend             string
	BackendEndpoint     string
	BackendAPIKey       string
	Model               string
	Device              string
	ParallelGenerations int
	GenerationTimeout   time.Duration
	WaitForModel        bool
	// ModelLoader replaces the loader registered for Backend
	ModelLoader model.Loader

	// Request limits
	MaxSteps           int
	MaxGuidanceScale   float64
	MaxWidth           int
	MaxHeight          int
	MaxSourceDimension int

	HistoryDatabase string

	// API
	UploadLimitMB    int
	CORS             bool
	CORSAllowOrigins string
	DisableMetrics   bool
	OpaqueErrors     bool
	Debug            bool
}

type AppOption func(*ApplicationConfig)

func NewApplicationConfig(o ...AppOption) *ApplicationConfig {
	opt := &ApplicationConfig{
		Context:             context.Background(),
		OutputsDir:          "outputs",
		OutputsURL:          "/outputs",
		Backend:             "localai",
		Device:              "auto",
		ParallelGenerations: 1,
		MaxSteps:            schema.DefaultLimits.MaxSteps,
		MaxGuidanceScale:    schema.DefaultLimits.MaxGuidanceScale,
		MaxWidth:            schema.DefaultLimits.MaxWidth,
		MaxHeight:           schema.DefaultLimits.MaxHeight,
		MaxSourceDimension:  768,
		UploadLimitMB:       15,
	}
	for _, oo := range o {
		oo(opt)
	}
	return opt
}

// Limits returns the bounds applied to generation requests.
func (o *ApplicationConfig) Limits() schema.Limits {
	return schema.Limits{
		MaxSteps:         o.MaxSteps,
		MaxGuidanceScale: o.MaxGuidanceScale,
		MaxWidth:         o.MaxWidth,
		MaxHeight:        o.MaxHeight,
	}
}

func WithContext(ctx context.Context) AppOption {
	return func(o *ApplicationConfig) {
		o.Context = ctx
	}
}

func WithOutputsDir(dir string) AppOption {
	return func(o *ApplicationConfig) {
		o.OutputsDir = dir
	}
}

func WithOutputsURL(prefix string) AppOption {
	return func(o *ApplicationConfig) {
		o.OutputsURL = prefix
	}
}

func WithS3Mirror(bucket, prefix string) AppOption {
	return func(o *ApplicationConfig) {
		o.S3Bucket = bucket
		o.S3Prefix = prefix
	}
}

func WithBackend(backend string) AppOption {
	return func(o *ApplicationConfig) {
		o.Backend = backend
	}
}

func WithBackendEndpoint(endpoint string) AppOption {
	return func(o *ApplicationConfig) {
		o.BackendEndpoint = endpoint
	}
}

func WithBackendAPIKey(key string) AppOption {
	return func(o *ApplicationConfig) {
		o.BackendAPIKey = key
	}
}

func WithModel(name string) AppOption {
	return func(o *ApplicationConfig) {
		o.Model = name
	}
}

func WithDevice(device string) AppOption {
	return func(o *ApplicationConfig) {
		o.Device = device
	}
}

func WithModelLoader(l model.Loader) AppOption {
	return func(o *ApplicationConfig) {
		o.ModelLoader = l
	}
}

func WithParallelGenerations(n int) AppOption {
	return func(o *ApplicationConfig) {
		if n >= 0 {
			o.ParallelGenerations = n
		}
	}
}

func WithGenerationTimeout(t time.Duration) AppOption {
	return func(o *ApplicationConfig) {
		o.GenerationTimeout = t
	}
}

var EnableWaitForModel = func(o *ApplicationConfig) {
	o.WaitForModel = true
}

func WithMaxSteps(n int) AppOption {
	return func(o *ApplicationConfig) {
		o.MaxSteps = n
	}
}

func WithMaxGuidanceScale(g float64) AppOption {
	return func(o *ApplicationConfig) {
		o.MaxGuidanceScale = g
	}
}

func WithMaxImageSize(width, height int) AppOption {
	return func(o *ApplicationConfig) {
		o.MaxWidth = width
		o.MaxHeight = height
	}
}

func WithMaxSourceDimension(n int) AppOption {
	return func(o *ApplicationConfig) {
		o.MaxSourceDimension = n
	}
}

func WithHistoryDatabase(path string) AppOption {
	return func(o *ApplicationConfig) {
		o.HistoryDatabase = path
	}
}

func WithUploadLimitMB(limit int) AppOption {
	return func(o *ApplicationConfig) {
		o.UploadLimitMB = limit
	}
}

func WithCors(b bool) AppOption {
	return func(o *ApplicationConfig) {
		o.CORS = b
	}
}

func WithCorsAllowOrigins(b string) AppOption {
	return func(o *ApplicationConfig) {
		o.CORSAllowOrigins = b
	}
}

var DisableMetricsEndpoint AppOption = func(o *ApplicationConfig) {
	o.DisableMetrics = true
}

func WithOpaqueErrors(opaque bool) AppOption {
	return func(o *ApplicationConfig) {
		o.OpaqueErrors = opaque
	}
}

func WithDebug(debug bool) AppOption {
	return func(o *ApplicationConfig) {
		o.Debug = debug
	}
}
