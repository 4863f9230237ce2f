// Package app contains application services and port definitions for the debt rebalancing context.
package app

import (
	"context"

	marketApp "github.com/fd1az/debt-rebalancer/business/market/app"
	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

// MarketSource supplies the market universe and materialized history.
type MarketSource interface {
	Markets(ctx context.Context, protocol string, first int) ([]marketDomain.Market, error)
	History(ctx context.Context, protocol string, markets []marketDomain.Market, interval marketDomain.Interval, days int) (*marketApp.History, error)
}

// ResultStore persists optimizer results.
type ResultStore interface {
	Save(ctx context.Context, result *domain.RebalancingResult) error

	// Get returns a NotFound AppError with CodeResultNotFound when id is unknown.
	Get(ctx context.Context, id string) (*domain.RebalancingResult, error)

	// List returns summaries, newest first.
	List(ctx context.Context, limit int) ([]domain.ResultSummary, error)

	Delete(ctx context.Context, id string) error
}

// Reporter renders a result for a human.
type Reporter interface {
	Report(ctx context.Context, result *domain.RebalancingResult) error
}
