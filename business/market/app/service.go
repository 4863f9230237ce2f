package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/internal/apperror"
	"github.com/fd1az/debt-rebalancer/internal/cache"
	"github.com/fd1az/debt-rebalancer/internal/circuitbreaker"
	"github.com/fd1az/debt-rebalancer/internal/logger"
	"github.com/fd1az/debt-rebalancer/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/debt-rebalancer/business/market/app"
	meterName  = "github.com/fd1az/debt-rebalancer/business/market/app"
)

// ServiceConfig holds data acquisition settings.
type ServiceConfig struct {
	FetchConcurrency  int           // parallel history fetches
	RequestsPerMinute int           // provider call budget, 0 = unlimited
	CacheTTL          time.Duration // market cache TTL
	CacheMaxEntries   int           // market cache size cap
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		FetchConcurrency:  4,
		RequestsPerMinute: 0,
		CacheTTL:          300 * time.Second,
		CacheMaxEntries:   512,
	}
}

// History is the materialized history of a set of markets.
type History struct {
	Timeseries map[string][]domain.TimeseriesPoint
	Prices     map[string][]domain.PricePoint
}

// serviceMetrics holds OTEL metric instruments.
type serviceMetrics struct {
	fetches     metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// MarketService fronts a MarketDataProvider with caching, rate limiting,
// circuit breaking and bounded concurrent history fetches.
type MarketService struct {
	provider MarketDataProvider
	config   ServiceConfig
	logger   logger.LoggerInterface
	limiter  *ratelimit.Limiter

	markets *cache.Cache[string, domain.Market]
	lists   *cache.Cache[string, []domain.Market]

	listCB   *circuitbreaker.CircuitBreaker[[]domain.Market]
	marketCB *circuitbreaker.CircuitBreaker[*domain.Market]
	seriesCB *circuitbreaker.CircuitBreaker[[]domain.TimeseriesPoint]
	pricesCB *circuitbreaker.CircuitBreaker[[]domain.PricePoint]

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewMarketService creates a new MarketService.
func NewMarketService(provider MarketDataProvider, cfg ServiceConfig, log logger.LoggerInterface) (*MarketService, error) {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultServiceConfig().CacheTTL
	}

	s := &MarketService{
		provider: provider,
		config:   cfg,
		logger:   log,
		limiter:  ratelimit.New("market-provider", cfg.RequestsPerMinute),
		markets:  cache.New[string, domain.Market](cfg.CacheTTL, cache.WithMaxEntries(cfg.CacheMaxEntries)),
		lists:    cache.New[string, []domain.Market](cfg.CacheTTL, cache.WithMaxEntries(16)),
		tracer:   otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	s.initCircuitBreakers()

	return s, nil
}

// initMetrics initializes OTEL metric instruments.
func (s *MarketService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.fetches, err = meter.Int64Counter(
		"market_data_fetches_total",
		metric.WithDescription("Provider calls by operation and outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	s.metrics.cacheHits, err = meter.Int64Counter(
		"market_cache_hits_total",
		metric.WithDescription("Market cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	s.metrics.cacheMisses, err = meter.Int64Counter(
		"market_cache_misses_total",
		metric.WithDescription("Market cache misses"),
		metric.WithUnit("{miss}"),
	)
	return err
}

// initCircuitBreakers builds one breaker per provider operation.
func (s *MarketService) initCircuitBreakers() {
	onChange := func(name string, from, to gobreaker.State) {
		s.logger.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	listCfg := circuitbreaker.DefaultConfig("market-list")
	listCfg.OnStateChange = onChange
	s.listCB = circuitbreaker.New[[]domain.Market](listCfg)

	marketCfg := circuitbreaker.DefaultConfig("market-get")
	marketCfg.OnStateChange = onChange
	s.marketCB = circuitbreaker.New[*domain.Market](marketCfg)

	seriesCfg := circuitbreaker.DefaultConfig("market-timeseries")
	seriesCfg.OnStateChange = onChange
	s.seriesCB = circuitbreaker.New[[]domain.TimeseriesPoint](seriesCfg)

	pricesCfg := circuitbreaker.DefaultConfig("market-prices")
	pricesCfg.OnStateChange = onChange
	s.pricesCB = circuitbreaker.New[[]domain.PricePoint](pricesCfg)
}

// Markets returns the protocol's market universe, served from cache when fresh.
func (s *MarketService) Markets(ctx context.Context, protocol string, first int) ([]domain.Market, error) {
	ctx, span := s.tracer.Start(ctx, "market.list",
		trace.WithAttributes(attribute.String("protocol", protocol), attribute.Int("first", first)),
	)
	defer span.End()

	key := fmt.Sprintf("%s:%d", protocol, first)
	if markets, found := s.lists.Get(ctx, key); found {
		s.metrics.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "list")))
		span.AddEvent("cache_hit")
		return markets, nil
	}
	s.metrics.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "list")))

	if err := s.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	markets, err := s.listCB.Execute(func() ([]domain.Market, error) {
		return s.provider.GetMarkets(ctx, protocol, first)
	})
	s.recordFetch(ctx, "list", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, fetchError(err, fmt.Sprintf("list %s markets", protocol))
	}

	s.lists.Set(ctx, key, markets, 0)
	for _, m := range markets {
		s.markets.Set(ctx, s.marketKey(protocol, m.ID), m, 0)
	}

	span.SetAttributes(attribute.Int("markets", len(markets)))
	span.SetStatus(codes.Ok, "listed")
	return markets, nil
}

// Market returns one market, served from cache when fresh.
func (s *MarketService) Market(ctx context.Context, protocol, marketID string) (*domain.Market, error) {
	ctx, span := s.tracer.Start(ctx, "market.get",
		trace.WithAttributes(attribute.String("market_id", marketID)),
	)
	defer span.End()

	key := s.marketKey(protocol, marketID)
	if m, found := s.markets.Get(ctx, key); found {
		s.metrics.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "market")))
		return &m, nil
	}
	s.metrics.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "market")))

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	m, err := s.marketCB.Execute(func() (*domain.Market, error) {
		return s.provider.GetMarket(ctx, protocol, marketID)
	})
	s.recordFetch(ctx, "get", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get failed")
		return nil, fetchError(err, "market "+marketID)
	}
	if m == nil {
		return nil, apperror.NotFound(apperror.CodeMarketNotFound, marketID)
	}

	s.markets.Set(ctx, key, *m, 0)
	return m, nil
}

// History fetches timeseries and price history for every market with bounded
// concurrency. A market whose fetch fails is logged and left out; only
// cancellation of ctx fails the whole call.
func (s *MarketService) History(ctx context.Context, protocol string, markets []domain.Market, interval domain.Interval, days int) (*History, error) {
	ctx, span := s.tracer.Start(ctx, "market.history",
		trace.WithAttributes(
			attribute.Int("markets", len(markets)),
			attribute.String("interval", interval.String()),
			attribute.Int("days", days),
		),
	)
	defer span.End()

	h := &History{
		Timeseries: make(map[string][]domain.TimeseriesPoint, len(markets)),
		Prices:     make(map[string][]domain.PricePoint, len(markets)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.FetchConcurrency)

	for _, m := range markets {
		g.Go(func() error {
			series, prices, err := s.fetchMarketHistory(gctx, protocol, m.ID, interval, days)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn(gctx, "skipping market history", "market_id", m.ID, "error", err)
				return nil
			}

			mu.Lock()
			h.Timeseries[m.ID] = series
			h.Prices[m.ID] = prices
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	}

	span.SetAttributes(attribute.Int("markets_with_history", len(h.Timeseries)))
	span.SetStatus(codes.Ok, "fetched")
	return h, nil
}

func (s *MarketService) fetchMarketHistory(ctx context.Context, protocol, marketID string, interval domain.Interval, days int) ([]domain.TimeseriesPoint, []domain.PricePoint, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	series, err := s.seriesCB.Execute(func() ([]domain.TimeseriesPoint, error) {
		return s.provider.GetMarketTimeseries(ctx, protocol, marketID, interval, days)
	})
	s.recordFetch(ctx, "timeseries", err)
	if err != nil {
		return nil, nil, fetchError(err, "timeseries "+marketID)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	prices, err := s.pricesCB.Execute(func() ([]domain.PricePoint, error) {
		return s.provider.GetPriceHistory(ctx, protocol, marketID, interval, days)
	})
	s.recordFetch(ctx, "prices", err)
	if err != nil {
		s.logger.Debug(ctx, "price history unavailable, deriving from timeseries", "market_id", marketID, "error", err)
		prices = nil
	}
	if len(prices) == 0 {
		prices = domain.PriceSeriesFromTimeseries(series, "timeseries")
	}

	return series, prices, nil
}

func (s *MarketService) marketKey(protocol, marketID string) string {
	return protocol + ":" + marketID
}

func (s *MarketService) recordFetch(ctx context.Context, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.fetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

// Close releases cached entries.
func (s *MarketService) Close() {
	s.markets.Close()
	s.lists.Close()
}

func fetchError(err error, what string) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.External(apperror.CodeMarketDataFetchFailed, what, err)
}
