package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrModelUnavailable is returned by a Handle that is not ready to serve
// inference, either because loading has not finished or because it failed.
var ErrModelUnavailable = errors.New("model not loaded")

// InferenceError wraps a failure that happened inside the backend while
// running a pipeline.
type InferenceError struct {
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

type TextToImageParams struct {
	Prompt         string
	NegativePrompt string
	Steps          int
	GuidanceScale  float64
	Width          int
	Height         int
}

type ImageToImageParams struct {
	// Source is a PNG encoded image
	Source         []byte
	Prompt         string
	NegativePrompt string
	Strength       float64
	Steps          int
	GuidanceScale  float64
}

// Pipeline is a loaded diffusion model. Implementations return encoded image
// bytes, usually PNG.
type Pipeline interface {
	TextToImage(ctx context.Context, p TextToImageParams) ([]byte, error)
	ImageToImage(ctx context.Context, p ImageToImageParams) ([]byte, error)
}

// LoadOptions is what a backend receives when asked to prepare a model.
type LoadOptions struct {
	Model            string
	Device           string
	AttentionSlicing bool
	Endpoint         string
	APIKey           string
	Timeout          time.Duration
}

// Loader prepares a Pipeline for the given options. It is called at most once
// per Handle.
type Loader func(ctx context.Context, o LoadOptions) (Pipeline, error)
