package model

import "time"

type Options struct {
	backendString string
	modelName     string
	device        string
	endpoint      string
	apiKey        string
	parallelism   int
	timeout       time.Duration
	loader        Loader
}

type Option func(*Options)

var defaultOptions = Options{
	backendString: "localai",
	device:        "cpu",
	parallelism:   1,
}

func WithBackendString(backend string) Option {
	return func(o *Options) {
		o.backendString = backend
	}
}

func WithModel(name string) Option {
	return func(o *Options) {
		o.modelName = name
	}
}

func WithDevice(device string) Option {
	return func(o *Options) {
		o.device = device
	}
}

func WithEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.endpoint = endpoint
	}
}

func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.apiKey = key
	}
}

// WithParallelism caps the number of inference calls running at once.
// Zero means no cap.
func WithParallelism(n int) Option {
	return func(o *Options) {
		o.parallelism = n
	}
}

// WithTimeout bounds each inference call. Zero disables the bound.
func WithTimeout(t time.Duration) Option {
	return func(o *Options) {
		o.timeout = t
	}
}

func WithLoader(l Loader) Option {
	return func(o *Options) {
		o.loader = l
	}
}

func NewOptions(opts ...Option) *Options {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &o
}
