// Package market implements the lending market bounded context: market
// listings, rate history and collateral prices.
package market

import (
	"context"
	"fmt"

	"github.com/fd1az/debt-rebalancer/business/market/app"
	marketDI "github.com/fd1az/debt-rebalancer/business/market/di"
	"github.com/fd1az/debt-rebalancer/business/market/infra/httpapi"
	"github.com/fd1az/debt-rebalancer/business/market/infra/snapshot"
	"github.com/fd1az/debt-rebalancer/internal/config"
	"github.com/fd1az/debt-rebalancer/internal/di"
	"github.com/fd1az/debt-rebalancer/internal/logger"
	"github.com/fd1az/debt-rebalancer/internal/monolith"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register MarketDataProvider - private dependency
	di.RegisterToken(c, marketDI.DataProvider, func(sr di.ServiceRegistry) app.MarketDataProvider {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		provider, err := newProvider(cfg.Provider, log)
		if err != nil {
			panic("failed to create market data provider: " + err.Error())
		}
		return provider
	})

	// Register MarketService (public - exposed to other modules)
	di.RegisterToken(c, marketDI.MarketService, func(sr di.ServiceRegistry) *app.MarketService {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		svc, err := app.NewMarketService(marketDI.GetDataProvider(sr), ServiceConfig(cfg.Provider), log)
		if err != nil {
			panic("failed to create market service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup builds the market service and ties its caches to the app lifetime.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := marketDI.GetMarketService(mono.Services())
	mono.OnClose(closerFunc(func() error {
		svc.Close()
		return nil
	}))

	mono.Logger().Info(ctx, "market module started", "provider", mono.Config().Provider.Kind)
	return nil
}

// ServiceConfig maps provider settings onto the market service.
func ServiceConfig(cfg config.ProviderConfig) app.ServiceConfig {
	out := app.DefaultServiceConfig()
	if cfg.FetchConcurrency > 0 {
		out.FetchConcurrency = cfg.FetchConcurrency
	}
	out.RequestsPerMinute = cfg.RequestsPerMinute
	if cfg.CacheTTL > 0 {
		out.CacheTTL = cfg.CacheTTL
	}
	if cfg.CacheMaxEntries > 0 {
		out.CacheMaxEntries = cfg.CacheMaxEntries
	}
	return out
}

func newProvider(cfg config.ProviderConfig, log logger.LoggerInterface) (app.MarketDataProvider, error) {
	switch cfg.Kind {
	case config.ProviderSnapshot:
		return snapshot.Load(cfg.SnapshotPath)
	case config.ProviderHTTP:
		return httpapi.NewProvider(httpapi.Config{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Timeout: cfg.Timeout}, log)
	}
	return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
