package application

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/mudler/LocalDiffusion/core/backend"
	"github.com/mudler/LocalDiffusion/core/config"
	"github.com/mudler/LocalDiffusion/core/history"
	"github.com/mudler/LocalDiffusion/core/services"
	"github.com/mudler/LocalDiffusion/internal"
	"github.com/mudler/LocalDiffusion/pkg/artifact"
	"github.com/mudler/LocalDiffusion/pkg/xsysinfo"
	"github.com/mudler/xlog"
)

// A Stable Diffusion 1.x pipeline needs a few GB of RAM on top of its weights.
const lowMemoryThreshold = 4 << 30

// New wires the application together and starts loading the model. Unless
// WaitForModel is set the model loads in the background and the returned
// application answers 503 to generation requests until it is ready.
func New(opts ...config.AppOption) (*Application, error) {
	options := config.NewApplicationConfig(opts...)

	xlog.Info("Starting LocalDiffusion", "backend", options.Backend, "model", options.Model, "outputs", options.OutputsDir)
	xlog.Info("LocalDiffusion version", "version", internal.PrintableVersion())

	caps, err := xsysinfo.CPUCapabilities()
	if err == nil {
		xlog.Debug("CPU capabilities", "capabilities", caps)
	}
	xlog.Debug("CPU", "brand", xsysinfo.CPUBrand(), "physicalCores", xsysinfo.CPUPhysicalCores(), "arch", runtime.GOARCH)
	gpus, err := xsysinfo.GPUs()
	if err == nil {
		xlog.Debug("GPU count", "count", len(gpus))
		for _, gpu := range gpus {
			xlog.Debug("GPU", "gpu", gpu.String())
		}
	}

	ram := xsysinfo.GetSystemRAMInfo()
	if ram.Total > 0 && ram.Available < lowMemoryThreshold {
		xlog.Warn("Little system memory available, loading the model may fail", "available", ram.Available, "total", ram.Total)
	}

	if options.OutputsDir == "" {
		return nil, fmt.Errorf("outputs path cannot be empty")
	}

	var storeOpts []artifact.StoreOption
	if options.S3Bucket != "" {
		mirror, err := artifact.NewS3Mirror(options.Context, options.S3Bucket, options.S3Prefix)
		if err != nil {
			return nil, err
		}
		xlog.Info("Mirroring images to S3", "bucket", options.S3Bucket, "prefix", options.S3Prefix)
		storeOpts = append(storeOpts, artifact.WithMirror(mirror))
	}
	store, err := artifact.NewStore(options.OutputsDir, options.OutputsURL, storeOpts...)
	if err != nil {
		return nil, err
	}

	handle, err := backend.NewModelHandle(options)
	if err != nil {
		return nil, err
	}

	application := &Application{
		applicationConfig: options,
		modelHandle:       handle,
		artifactStore:     store,
	}

	var serviceOpts []services.ImageServiceOption
	if options.HistoryDatabase != "" {
		h, err := history.Open(options.HistoryDatabase)
		if err != nil {
			return nil, err
		}
		application.historyStore = h
		serviceOpts = append(serviceOpts, services.WithHistory(h))
	}
	if !options.DisableMetrics {
		m, err := services.NewMetricsService()
		if err != nil {
			application.Shutdown()
			return nil, err
		}
		application.metricsService = m
		serviceOpts = append(serviceOpts, services.WithMetrics(m))
	}

	application.imageService = services.NewImageService(options, handle, store, serviceOpts...)

	if options.WaitForModel {
		if err := handle.Load(options.Context); err != nil {
			xlog.Warn("Model failed to load, generation requests will be refused", "error", err)
		}
	} else {
		go handle.Load(options.Context)
	}

	go func() {
		<-options.Context.Done()
		xlog.Debug("Context canceled, shutting down")
		if err := application.Shutdown(); err != nil {
			xlog.Error("error while shutting down", "error", err)
		}
	}()

	xlog.Info("core/startup process completed!")
	return application, nil
}

// Shutdown releases the resources held by the application. It is safe to
// call more than once.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		var errs []error
		if a.historyStore != nil {
			errs = append(errs, a.historyStore.Close())
		}
		if a.metricsService != nil {
			errs = append(errs, a.metricsService.Shutdown())
		}
		a.shutdownErr = errors.Join(errs...)
	})
	return a.shutdownErr
}
