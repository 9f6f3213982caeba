package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mudler/xlog"
	"golang.org/x/sync/semaphore"
)

type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Handle owns the single loaded pipeline of the process. The pipeline is
// published once, together with StateReady, and never replaced.
type Handle struct {
	opts *Options

	state    atomic.Int32
	pipeline Pipeline
	loadErr  error
	once     sync.Once

	sem *semaphore.Weighted
}

func NewHandle(opts ...Option) *Handle {
	o := NewOptions(opts...)
	h := &Handle{opts: o}
	if o.parallelism > 0 {
		h.sem = semaphore.NewWeighted(int64(o.parallelism))
	}
	return h
}

// Load prepares the pipeline. Only the first call does any work: a failed
// load leaves the handle failed for the lifetime of the process.
func (h *Handle) Load(ctx context.Context) error {
	h.once.Do(func() {
		h.state.Store(int32(StateLoading))
		xlog.Info("Loading model", "model", h.opts.modelName, "backend", h.opts.backendString, "device", h.opts.device)

		if h.opts.loader == nil {
			h.fail(fmt.Errorf("no loader configured for backend %q", h.opts.backendString))
			return
		}

		p, err := h.opts.loader(ctx, LoadOptions{
			Model:            h.opts.modelName,
			Device:           h.opts.device,
			AttentionSlicing: h.opts.device != "cpu",
			Endpoint:         h.opts.endpoint,
			APIKey:           h.opts.apiKey,
			Timeout:          h.opts.timeout,
		})
		if err == nil && p == nil {
			err = errors.New("backend returned no pipeline")
		}
		if err != nil {
			h.fail(err)
			return
		}

		h.pipeline = p
		h.state.Store(int32(StateReady))
		xlog.Info("Model loaded", "model", h.opts.modelName, "device", h.opts.device)
	})
	return h.Err()
}

func (h *Handle) fail(err error) {
	h.loadErr = err
	h.state.Store(int32(StateFailed))
	xlog.Error("Failed to load model", "model", h.opts.modelName, "backend", h.opts.backendString, "error", err)
}

func (h *Handle) State() State {
	return State(h.state.Load())
}

func (h *Handle) Ready() bool {
	return h.State() == StateReady
}

// Err returns the load error, if loading failed.
func (h *Handle) Err() error {
	if h.State() != StateFailed {
		return nil
	}
	return h.loadErr
}

func (h *Handle) Model() string   { return h.opts.modelName }
func (h *Handle) Backend() string { return h.opts.backendString }
func (h *Handle) Device() string  { return h.opts.device }

func (h *Handle) TextToImage(ctx context.Context, p TextToImageParams) ([]byte, error) {
	return h.run(ctx, "text-to-image", func(ctx context.Context, pl Pipeline) ([]byte, error) {
		return pl.TextToImage(ctx, p)
	})
}

func (h *Handle) ImageToImage(ctx context.Context, p ImageToImageParams) ([]byte, error) {
	return h.run(ctx, "image-to-image", func(ctx context.Context, pl Pipeline) ([]byte, error) {
		return pl.ImageToImage(ctx, p)
	})
}

func (h *Handle) run(ctx context.Context, op string, fn func(context.Context, Pipeline) ([]byte, error)) ([]byte, error) {
	if s := h.State(); s != StateReady {
		return nil, fmt.Errorf("%w (state: %s)", ErrModelUnavailable, s)
	}

	if h.sem != nil {
		if err := h.sem.Acquire(ctx, 1); err != nil {
			return nil, &InferenceError{Op: op, Err: err}
		}
		defer h.sem.Release(1)
	}

	if h.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.timeout)
		defer cancel()
	}

	out, err := fn(ctx, h.pipeline)
	if err != nil {
		return nil, &InferenceError{Op: op, Err: err}
	}
	if len(out) == 0 {
		return nil, &InferenceError{Op: op, Err: errors.New("backend returned an empty image")}
	}
	return out, nil
}
