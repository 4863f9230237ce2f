// Package rebalancing implements the debt rebalancing bounded context:
// market analysis, allocation, simulation and result persistence.
package rebalancing

import (
	"context"
	"fmt"

	marketDI "github.com/fd1az/debt-rebalancer/business/market/di"
	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/app"
	rebalancingDI "github.com/fd1az/debt-rebalancer/business/rebalancing/di"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/infra"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/infra/rest"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/infra/sqlite"
	"github.com/fd1az/debt-rebalancer/internal/asset"
	"github.com/fd1az/debt-rebalancer/internal/config"
	"github.com/fd1az/debt-rebalancer/internal/di"
	"github.com/fd1az/debt-rebalancer/internal/logger"
	"github.com/fd1az/debt-rebalancer/internal/monolith"
)

// Module implements the rebalancing bounded context.
type Module struct{}

// RegisterServices registers all rebalancing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register RunConfig - the optimizer input built from application config
	di.RegisterToken(c, rebalancingDI.RunConfig, func(sr di.ServiceRegistry) domain.RebalancingConfig {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)

		runCfg, err := RunConfig(cfg.Rebalancing)
		if err != nil {
			panic("invalid rebalancing config: " + err.Error())
		}
		return runCfg
	})

	// Register Store - private dependency, nil when persistence is disabled
	di.RegisterToken(c, rebalancingDI.Store, func(sr di.ServiceRegistry) *sqlite.Store {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		if !cfg.Storage.Enabled {
			return nil
		}

		store, err := sqlite.Open(context.Background(), cfg.Storage.Path)
		if err != nil {
			panic("failed to open result store: " + err.Error())
		}
		return store
	})

	// Register Optimizer (public)
	di.RegisterToken(c, rebalancingDI.Optimizer, func(sr di.ServiceRegistry) *app.Optimizer {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)
		assets := sr.Get(monolith.AssetRegistryService).(*asset.Registry)

		optimizer, err := app.NewOptimizer(
			marketDI.GetMarketService(sr),
			assets,
			rebalancingDI.GetResultStore(sr),
			app.OptimizerConfig{MarketLimit: cfg.Provider.MarketLimit},
			log,
		)
		if err != nil {
			panic("failed to create optimizer: " + err.Error())
		}
		return optimizer
	})

	di.RegisterToken(c, rebalancingDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		return infra.NewConsoleReporter()
	})

	di.RegisterToken(c, rebalancingDI.OptimizeJob, func(sr di.ServiceRegistry) *app.OptimizeJob {
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)
		return app.NewOptimizeJob(rebalancingDI.GetOptimizer(sr), rebalancingDI.GetRunConfig(sr), nil, log)
	})

	di.RegisterToken(c, rebalancingDI.ResultsHandler, func(sr di.ServiceRegistry) *rest.ResultsHandler {
		return rest.NewResultsHandler(rebalancingDI.GetResultStore(sr), rebalancingDI.GetOptimizeJob(sr).Latest)
	})

	return nil
}

// Startup validates the run config and opens the result store.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	runCfg := rebalancingDI.GetRunConfig(mono.Services())
	if _, err := runCfg.Resolve(); err != nil {
		return err
	}

	if store := di.GetToken(mono.Services(), rebalancingDI.Store); store != nil {
		mono.OnClose(store)
	}

	mono.Logger().Info(ctx, "rebalancing module started",
		"pair", runCfg.Pair(),
		"mode", runCfg.Mode,
		"storage", mono.Config().Storage.Enabled,
	)
	return nil
}

// RunConfig converts application settings into an optimizer input.
func RunConfig(cfg config.RebalancingConfig) (domain.RebalancingConfig, error) {
	mode, err := domain.ParseMode(cfg.Mode)
	if err != nil {
		return domain.RebalancingConfig{}, domain.ConfigurationError(err.Error())
	}
	interval, err := marketDomain.ParseInterval(cfg.SimulationInterval)
	if err != nil {
		return domain.RebalancingConfig{}, domain.ConfigurationError(err.Error())
	}
	if cfg.LookbackPeriods <= 0 || cfg.SimulationDays <= 0 {
		return domain.RebalancingConfig{}, domain.ConfigurationError(
			fmt.Sprintf("lookback_periods and simulation_days must be positive, got %d and %d",
				cfg.LookbackPeriods, cfg.SimulationDays))
	}

	return domain.RebalancingConfig{
		CollateralAsset:           cfg.CollateralAsset,
		BorrowAsset:               cfg.BorrowAsset,
		CollateralAmount:          cfg.CollateralAmountDecimal(),
		InitialLTV:                cfg.InitialLTVDecimal(),
		TargetLeverage:            cfg.TargetLeverageDecimal(),
		TotalDebt:                 cfg.TotalDebtDecimal(),
		Protocol:                  cfg.Protocol,
		Mode:                      mode,
		RateThresholdBps:          cfg.RateThresholdBpsDecimal(),
		MinAllocationPct:          cfg.MinAllocationPctDecimal(),
		MaxAllocationPct:          cfg.MaxAllocationPctDecimal(),
		UtilizationAlertThreshold: cfg.UtilizationAlertThresholdDecimal(),
		MinSavingsToRebalance:     cfg.MinSavingsToRebalanceDecimal(),
		LookbackPeriods:           cfg.LookbackPeriods,
		MinHealthFactor:           cfg.MinHealthFactorDecimal(),
		MarginCallThreshold:       cfg.MarginCallThresholdDecimal(),
		GasCostUSD:                cfg.GasCostUSDDecimal(),
		SlippageBps:               cfg.SlippageBpsDecimal(),
		SimulationDays:            cfg.SimulationDays,
		SimulationInterval:        interval,
		AbortOnLiquidation:        cfg.AbortOnLiquidation,
	}, nil
}
