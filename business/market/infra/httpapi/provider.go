// Package httpapi implements MarketDataProvider over a JSON HTTP API.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/internal/apperror"
	"github.com/fd1az/debt-rebalancer/internal/httpclient"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

const (
	tracerName = "github.com/fd1az/debt-rebalancer/business/market/infra/httpapi"

	marketsEndpoint = "/markets"

	defaultTimeout = 15 * time.Second
)

// Config holds configuration for the HTTP provider.
type Config struct {
	BaseURL string
	APIKey  string // sent as a bearer token when set
	Timeout time.Duration
}

// Provider fetches lending market data from a JSON API:
//
//	GET /markets?protocol=&first=
//	GET /markets/{id}?protocol=
//	GET /markets/{id}/timeseries?protocol=&interval=&days=
//	GET /markets/{id}/prices?protocol=&interval=&days=
type Provider struct {
	client httpclient.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewProvider creates a new HTTP market data provider.
func NewProvider(cfg Config, log logger.LoggerInterface, opts ...httpclient.ClientOption) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("provider base_url is required for the http provider"))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tracer := otel.Tracer(tracerName)

	headers := map[string]string{"Accept": "application/json"}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	clientOpts := append([]httpclient.ClientOption{
		httpclient.WithProviderName("market-api"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer, false),
		httpclient.WithHeaders(headers),
	}, opts...)

	client, err := httpclient.NewInstrumentedClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Provider{client: client, logger: log, tracer: tracer}, nil
}

type marketsResponse struct {
	Markets []domain.Market `json:"markets"`
}

type timeseriesResponse struct {
	Points []domain.TimeseriesPoint `json:"points"`
}

type pricesResponse struct {
	Prices []domain.PricePoint `json:"prices"`
}

// GetMarkets lists up to first markets of the protocol.
func (p *Provider) GetMarkets(ctx context.Context, protocol string, first int) ([]domain.Market, error) {
	ctx, span := p.tracer.Start(ctx, "httpapi.get_markets",
		trace.WithAttributes(attribute.String("protocol", protocol), attribute.Int("first", first)),
	)
	defer span.End()

	var out marketsResponse
	_, err := p.client.NewRequest(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "markets")),
		httpclient.WithResponseErrorHandler(statusError),
	).
		SetQueryParam("protocol", protocol).
		SetQueryParam("first", strconv.Itoa(first)).
		SetResult(&out).
		Get(ctx, marketsEndpoint)
	if err != nil {
		span.RecordError(err)
		return nil, wrap(err, "list markets")
	}

	p.logger.Debug(ctx, "fetched markets", "protocol", protocol, "count", len(out.Markets))
	return out.Markets, nil
}

// GetMarket returns one market, or nil when the API answers 404.
func (p *Provider) GetMarket(ctx context.Context, protocol, marketID string) (*domain.Market, error) {
	ctx, span := p.tracer.Start(ctx, "httpapi.get_market",
		trace.WithAttributes(attribute.String("market_id", marketID)),
	)
	defer span.End()

	var out domain.Market
	resp, err := p.client.NewRequest(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "market")),
		httpclient.WithResponseErrorHandler(func(status int, body []byte) error {
			if status == http.StatusNotFound {
				return nil
			}
			return statusError(status, body)
		}),
	).
		SetQueryParam("protocol", protocol).
		SetResult(&out).
		Get(ctx, marketPath(marketID, ""))
	if err != nil {
		span.RecordError(err)
		return nil, wrap(err, "market "+marketID)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	return &out, nil
}

// GetMarketTimeseries returns the market's rate and state history.
func (p *Provider) GetMarketTimeseries(ctx context.Context, protocol, marketID string, interval domain.Interval, days int) ([]domain.TimeseriesPoint, error) {
	ctx, span := p.tracer.Start(ctx, "httpapi.get_timeseries",
		trace.WithAttributes(attribute.String("market_id", marketID), attribute.Int("days", days)),
	)
	defer span.End()

	var out timeseriesResponse
	_, err := p.historyRequest("timeseries", protocol, interval, days).
		SetResult(&out).
		Get(ctx, marketPath(marketID, "timeseries"))
	if err != nil {
		span.RecordError(err)
		return nil, wrap(err, "timeseries "+marketID)
	}

	span.SetAttributes(attribute.Int("points", len(out.Points)))
	return out.Points, nil
}

// GetPriceHistory returns collateral prices in loan-asset units.
func (p *Provider) GetPriceHistory(ctx context.Context, protocol, marketID string, interval domain.Interval, days int) ([]domain.PricePoint, error) {
	ctx, span := p.tracer.Start(ctx, "httpapi.get_prices",
		trace.WithAttributes(attribute.String("market_id", marketID), attribute.Int("days", days)),
	)
	defer span.End()

	var out pricesResponse
	_, err := p.historyRequest("prices", protocol, interval, days).
		SetResult(&out).
		Get(ctx, marketPath(marketID, "prices"))
	if err != nil {
		span.RecordError(err)
		return nil, wrap(err, "prices "+marketID)
	}
	return out.Prices, nil
}

func (p *Provider) historyRequest(endpoint, protocol string, interval domain.Interval, days int) httpclient.Request {
	return p.client.NewRequest(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", endpoint)),
		httpclient.WithResponseErrorHandler(statusError),
	).
		SetQueryParam("protocol", protocol).
		SetQueryParam("interval", interval.String()).
		SetQueryParam("days", strconv.Itoa(days))
}

func marketPath(marketID, sub string) string {
	path := marketsEndpoint + "/" + url.PathEscape(marketID)
	if sub != "" {
		path += "/" + sub
	}
	return path
}

func statusError(status int, body []byte) error {
	if status < 400 {
		return nil
	}
	msg := string(body)
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return apperror.New(apperror.CodeMarketDataFetchFailed,
		apperror.WithContext(fmt.Sprintf("HTTP %d: %s", status, msg)))
}

func wrap(err error, what string) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.External(apperror.CodeMarketDataFetchFailed, what, err)
}
