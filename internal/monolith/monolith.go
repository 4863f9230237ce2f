// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fd1az/debt-rebalancer/internal/asset"
	"github.com/fd1az/debt-rebalancer/internal/config"
	"github.com/fd1az/debt-rebalancer/internal/di"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

// Global service names registered by New.
const (
	ConfigService        = "config"
	LoggerService        = "logger"
	AssetRegistryService = "assetRegistry"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry

	// OnClose registers a resource released by Close, in reverse order.
	OnClose(c io.Closer)
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// App implements the Monolith interface.
type App struct {
	config        *config.Config
	logger        logger.LoggerInterface
	assetRegistry *asset.Registry
	container     di.Container

	mu      sync.Mutex
	closers []io.Closer
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface) *App {
	// Use default asset registry (pre-populated with common assets)
	assetRegistry := asset.DefaultRegistry()

	container := di.NewContainer()

	// Register global services
	container.Register(ConfigService, cfg)
	container.Register(LoggerService, log)
	container.Register(AssetRegistryService, assetRegistry)

	return &App{
		config:        cfg,
		logger:        log,
		assetRegistry: assetRegistry,
		container:     container,
	}
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *App) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *App) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *App) Container() di.Container {
	return a.container
}

func (a *App) OnClose(c io.Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, c)
}

// RegisterModules registers all provided modules.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules. A panic raised while a module
// resolves its services is returned as an error.
func (a *App) StartModules(ctx context.Context, modules ...Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module startup: %v", r)
		}
	}()

	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close releases registered resources, last registered first.
func (a *App) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
