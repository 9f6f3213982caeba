package backend

import (
	"fmt"
	"slices"
	"sort"

	"github.com/mudler/LocalDiffusion/core/config"
	"github.com/mudler/LocalDiffusion/pkg/backend/localai"
	"github.com/mudler/LocalDiffusion/pkg/backend/sdwebui"
	"github.com/mudler/LocalDiffusion/pkg/model"
	"github.com/mudler/LocalDiffusion/pkg/xsysinfo"
)

const (
	LocalAIBackend = "localai"
	SDWebUIBackend = "sdwebui"
)

var loaders = map[string]model.Loader{
	LocalAIBackend: localai.Load,
	SDWebUIBackend: sdwebui.Load,
}

// Backends lists the names of the built in backends.
func Backends() []string {
	names := make([]string, 0, len(loaders))
	for n := range loaders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func Loader(name string) (model.Loader, error) {
	l, ok := loaders[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q, expected one of %v", name, Backends())
	}
	return l, nil
}

// NewModelHandle builds the (not yet loaded) model handle described by the
// application configuration.
func NewModelHandle(appConfig *config.ApplicationConfig) (*model.Handle, error) {
	loader := appConfig.ModelLoader
	if loader == nil {
		var err error
		loader, err = Loader(appConfig.Backend)
		if err != nil {
			return nil, err
		}
	}
	if appConfig.Model == "" {
		return nil, fmt.Errorf("no model configured")
	}

	device := xsysinfo.AcceleratorDevice(appConfig.Device)
	if !slices.Contains([]string{xsysinfo.DeviceCPU, xsysinfo.DeviceCUDA, xsysinfo.DeviceROCm, xsysinfo.DeviceMPS}, device) {
		return nil, fmt.Errorf("unknown device %q", device)
	}

	return model.NewHandle(
		model.WithLoader(loader),
		model.WithBackendString(appConfig.Backend),
		model.WithModel(appConfig.Model),
		model.WithDevice(device),
		model.WithEndpoint(appConfig.BackendEndpoint),
		model.WithAPIKey(appConfig.BackendAPIKey),
		model.WithParallelism(appConfig.ParallelGenerations),
		model.WithTimeout(appConfig.GenerationTimeout),
	), nil
}
