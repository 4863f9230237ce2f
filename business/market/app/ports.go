// Package app contains application services and port definitions for the lending market context.
package app

import (
	"context"

	"github.com/fd1az/debt-rebalancer/business/market/domain"
)

// MarketDataProvider supplies market state and history for one lending protocol.
type MarketDataProvider interface {
	// GetMarkets lists up to first markets of the protocol.
	GetMarkets(ctx context.Context, protocol string, first int) ([]domain.Market, error)

	// GetMarket returns a single market, or nil when it does not exist.
	GetMarket(ctx context.Context, protocol, marketID string) (*domain.Market, error)

	// GetMarketTimeseries returns observations ascending by timestamp.
	// Series may contain gaps and duplicate timestamps.
	GetMarketTimeseries(ctx context.Context, protocol, marketID string, interval domain.Interval, days int) ([]domain.TimeseriesPoint, error)

	// GetPriceHistory returns collateral prices in loan-asset units, ascending by timestamp.
	GetPriceHistory(ctx context.Context, protocol, marketID string, interval domain.Interval, days int) ([]domain.PricePoint, error)
}
