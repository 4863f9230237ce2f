package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	marketApp "github.com/fd1az/debt-rebalancer/business/market/app"
	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/internal/asset"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

const (
	tracerName = "github.com/fd1az/debt-rebalancer/business/rebalancing/app"
	meterName  = "github.com/fd1az/debt-rebalancer/business/rebalancing/app"
)

// OptimizerConfig holds settings that are not part of a single run's intent.
type OptimizerConfig struct {
	MarketLimit int // markets requested from the source, 0 = provider default
}

type optimizerMetrics struct {
	runs       metric.Int64Counter
	rebalances metric.Int64Counter
	duration   metric.Float64Histogram
}

// Optimizer runs the full pipeline: discover, analyze, allocate, detect
// opportunities, simulate, aggregate and summarize.
type Optimizer struct {
	markets MarketSource
	assets  *asset.Registry
	store   ResultStore
	config  OptimizerConfig
	logger  logger.LoggerInterface

	discovery  *MarketDiscovery
	analyzer   *MarketAnalyzer
	planner    *AllocationPlanner
	detector   *OpportunityDetector
	simulator  *RebalancingSimulator
	aggregator *MetricsAggregator
	summarizer *PositionSummarizer

	tracer  trace.Tracer
	metrics *optimizerMetrics
}

// NewOptimizer creates a new Optimizer. assets and store may be nil.
func NewOptimizer(
	markets MarketSource,
	assets *asset.Registry,
	store ResultStore,
	config OptimizerConfig,
	log logger.LoggerInterface,
) (*Optimizer, error) {
	planner := NewAllocationPlanner(log)
	o := &Optimizer{
		markets:    markets,
		assets:     assets,
		store:      store,
		config:     config,
		logger:     log,
		discovery:  NewMarketDiscovery(log),
		analyzer:   NewMarketAnalyzer(log),
		planner:    planner,
		detector:   NewOpportunityDetector(),
		simulator:  NewRebalancingSimulator(planner),
		aggregator: NewMetricsAggregator(),
		summarizer: NewPositionSummarizer(),
		tracer:     otel.Tracer(tracerName),
	}
	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return o, nil
}

func (o *Optimizer) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &optimizerMetrics{}

	o.metrics.runs, err = meter.Int64Counter(
		"rebalancing_runs_total",
		metric.WithDescription("Optimizer runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return err
	}

	o.metrics.rebalances, err = meter.Int64Counter(
		"rebalancing_simulated_rebalances_total",
		metric.WithDescription("Rebalances executed by simulated strategies"),
		metric.WithUnit("{rebalance}"),
	)
	if err != nil {
		return err
	}

	o.metrics.duration, err = meter.Float64Histogram(
		"rebalancing_run_duration_seconds",
		metric.WithDescription("Optimizer run duration"),
		metric.WithUnit("s"),
	)
	return err
}

// Optimize runs the pipeline for cfg. The error is non-nil only when cfg is
// invalid; every other failure is reported on the result with Success false.
func (o *Optimizer) Optimize(ctx context.Context, cfg domain.RebalancingConfig) (*domain.RebalancingResult, error) {
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "rebalancing.optimize",
		trace.WithAttributes(
			attribute.String("pair", cfg.Pair()),
			attribute.String("mode", string(cfg.Mode)),
		))
	defer span.End()

	resolved, err := cfg.Resolve()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &domain.RebalancingResult{
		ID:        uuid.NewString(),
		CreatedAt: start.UTC(),
		Config:    resolved,
	}

	if err := o.run(ctx, resolved, result); err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn(ctx, "optimization failed", "pair", resolved.Pair(), "error", err)
	} else {
		result.Success = true
		o.logger.Info(ctx, "optimization complete",
			"id", result.ID,
			"pair", resolved.Pair(),
			"markets", len(result.AvailableMarkets),
			"rebalances", result.Metrics.RebalanceCount,
			"net_savings", result.Metrics.NetSavings.StringFixed(6),
		)
	}

	outcome := attribute.Bool("success", result.Success)
	o.metrics.runs.Add(ctx, 1, metric.WithAttributes(outcome))
	o.metrics.rebalances.Add(ctx, int64(result.Metrics.RebalanceCount))
	o.metrics.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(outcome))

	if o.store != nil {
		if err := o.store.Save(ctx, result); err != nil {
			o.logger.Error(ctx, "failed to save result", "id", result.ID, "error", err)
		}
	}

	return result, nil
}

func (o *Optimizer) run(ctx context.Context, cfg domain.RebalancingConfig, result *domain.RebalancingResult) error {
	var (
		markets []marketDomain.Market
		history *marketApp.History
		infos   []domain.MarketDebtInfo
		alloc   *Allocation
		sim     *SimulationOutput
	)

	err := o.phase(ctx, "discover", func(ctx context.Context) error {
		universe, err := o.markets.Markets(ctx, cfg.Protocol, o.config.MarketLimit)
		if err != nil {
			return err
		}

		pair := o.resolvePair(ctx, cfg)
		markets = o.discovery.Discover(ctx, universe, pair)
		if len(markets) == 0 && pair.Mode == MatchByAddress && !cfg.UsesAddressMatching() {
			o.logger.Info(ctx, "no markets for registry addresses, retrying by symbol", "pair", cfg.Pair())
			markets = o.discovery.Discover(ctx, universe, symbolPair(cfg))
		}
		if len(markets) == 0 {
			return domain.NoMarketsFoundError(cfg.CollateralAsset, cfg.BorrowAsset)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = o.phase(ctx, "analyze", func(ctx context.Context) error {
		var err error
		history, err = o.markets.History(ctx, cfg.Protocol, markets, cfg.SimulationInterval, cfg.SimulationDays)
		if err != nil {
			return err
		}
		infos = o.analyzer.Analyze(ctx, markets, history.Timeseries, cfg)
		if len(infos) == 0 {
			return domain.NoMarketsFoundError(cfg.CollateralAsset, cfg.BorrowAsset)
		}
		result.AvailableMarkets = infos
		return nil
	})
	if err != nil {
		return err
	}

	err = o.phase(ctx, "allocate", func(ctx context.Context) error {
		var err error
		alloc, err = o.planner.Allocate(ctx, infos, cfg)
		if err != nil {
			return err
		}
		result.OptimalAllocation = alloc.Amounts
		result.OptimalPositions = alloc.Positions
		return nil
	})
	if err != nil {
		return err
	}

	_ = o.phase(ctx, "opportunities", func(ctx context.Context) error {
		result.Opportunities = o.detector.Detect(infos, alloc.Positions, cfg)
		return nil
	})

	err = o.phase(ctx, "simulate", func(ctx context.Context) error {
		series := make(map[string][]marketDomain.TimeseriesPoint, len(infos))
		for _, m := range infos {
			series[m.MarketID] = history.Timeseries[m.MarketID]
		}

		var err error
		sim, err = o.simulator.Run(ctx, SimulationInput{
			Config:           cfg,
			Markets:          infos,
			Timeseries:       series,
			Prices:           history.Prices,
			InitialPositions: alloc.Positions,
		})
		if err != nil {
			return err
		}
		if sim.Aborted {
			o.logger.Warn(ctx, "simulation aborted on liquidation", "snapshots", len(sim.Strategy))
		}

		result.Snapshots = sim.Strategy
		result.BenchmarkSnapshots = sim.Benchmark
		result.StartTime = sim.Strategy[0].Timestamp
		result.EndTime = sim.Strategy[len(sim.Strategy)-1].Timestamp
		return nil
	})
	if err != nil {
		return err
	}

	return o.phase(ctx, "metrics", func(ctx context.Context) error {
		result.Metrics = o.aggregator.Aggregate(sim.Strategy, sim.Benchmark)
		result.PositionSummary = o.summarizer.Summarize(alloc.Positions, infos, alloc.Prices.CollateralInLoan(), cfg)
		return nil
	})
}

// phase runs fn inside a "rebalancing.<name>" span.
func (o *Optimizer) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "rebalancing."+name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// resolvePair prefers address matching: configured addresses first, then
// registry lookups of the configured symbols, then symbol substrings.
func (o *Optimizer) resolvePair(ctx context.Context, cfg domain.RebalancingConfig) AssetPair {
	if cfg.UsesAddressMatching() {
		return AssetPair{Collateral: cfg.CollateralAsset, Loan: cfg.BorrowAsset, Mode: MatchByAddress}
	}
	if o.assets != nil {
		if coll, loan, ok := o.assets.ResolvePair(cfg.CollateralAsset, cfg.BorrowAsset); ok {
			o.logger.Debug(ctx, "resolved pair through asset registry",
				"collateral", coll.Hex(), "loan", loan.Hex())
			return AssetPair{Collateral: coll.Hex(), Loan: loan.Hex(), Mode: MatchByAddress}
		}
	}
	return symbolPair(cfg)
}

func symbolPair(cfg domain.RebalancingConfig) AssetPair {
	return AssetPair{Collateral: cfg.CollateralAsset, Loan: cfg.BorrowAsset, Mode: MatchBySymbol}
}
