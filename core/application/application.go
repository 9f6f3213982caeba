package application

import (
	"sync"

	"github.com/mudler/LocalDiffusion/core/config"
	"github.com/mudler/LocalDiffusion/core/history"
	"github.com/mudler/LocalDiffusion/core/services"
	"github.com/mudler/LocalDiffusion/pkg/artifact"
	"github.com/mudler/LocalDiffusion/pkg/model"
)

type Application struct {
	applicationConfig *config.ApplicationConfig
	modelHandle       *model.Handle
	artifactStore     *artifact.Store
	historyStore      *history.Store
	metricsService    *services.MetricsService
	imageService      *services.ImageService

	shutdownOnce sync.Once
	shutdownErr  error
}

func (a *Application) ApplicationConfig() *config.ApplicationConfig {
	return a.applicationConfig
}

func (a *Application) ModelHandle() *model.Handle {
	return a.modelHandle
}

func (a *Application) ArtifactStore() *artifact.Store {
	return a.artifactStore
}

// HistoryStore is nil when no history database is configured.
func (a *Application) HistoryStore() *history.Store {
	return a.historyStore
}

// MetricsService is nil when metrics are disabled.
func (a *Application) MetricsService() *services.MetricsService {
	return a.metricsService
}

func (a *Application) ImageService() *services.ImageService {
	return a.imageService
}
