package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RebalancingResult is the full output of one optimizer run.
type RebalancingResult struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Config    RebalancingConfig `json:"config"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`

	AvailableMarkets  []MarketDebtInfo           `json:"available_markets"`
	OptimalAllocation map[string]decimal.Decimal `json:"optimal_allocation"`
	OptimalPositions  []DebtPosition             `json:"optimal_positions"`
	Opportunities     []RebalancingOpportunity   `json:"opportunities"`

	Snapshots          []RebalancingSnapshot `json:"snapshots"`
	BenchmarkSnapshots []RebalancingSnapshot `json:"benchmark_snapshots"`

	Metrics         RebalancingMetrics `json:"metrics"`
	PositionSummary *PositionSummary   `json:"position_summary,omitempty"`

	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// SeriesPoint is one value of a derived time series.
type SeriesPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// DurationDays is the simulated span in fractional days.
func (r *RebalancingResult) DurationDays() float64 {
	if len(r.Snapshots) < 2 {
		return 0
	}
	first, last := r.Snapshots[0].Timestamp, r.Snapshots[len(r.Snapshots)-1].Timestamp
	return last.Sub(first).Hours() / 24
}

func series(snaps []RebalancingSnapshot, value func(RebalancingSnapshot) decimal.Decimal) []SeriesPoint {
	out := make([]SeriesPoint, len(snaps))
	for i, s := range snaps {
		out[i] = SeriesPoint{Timestamp: s.Timestamp, Value: value(s)}
	}
	return out
}

// BorrowAPYSeries is the strategy's weighted borrow rate over time.
func (r *RebalancingResult) BorrowAPYSeries() []SeriesPoint {
	return series(r.Snapshots, func(s RebalancingSnapshot) decimal.Decimal { return s.WeightedBorrowAPY })
}

// BenchmarkAPYSeries is the benchmark's borrow rate over time.
func (r *RebalancingResult) BenchmarkAPYSeries() []SeriesPoint {
	return series(r.BenchmarkSnapshots, func(s RebalancingSnapshot) decimal.Decimal { return s.WeightedBorrowAPY })
}

// CumulativeInterestSeries is the strategy's accrued interest over time.
func (r *RebalancingResult) CumulativeInterestSeries() []SeriesPoint {
	return series(r.Snapshots, func(s RebalancingSnapshot) decimal.Decimal { return s.CumulativeInterest })
}

// HealthFactorSeries is the strategy's aggregate health factor over time.
func (r *RebalancingResult) HealthFactorSeries() []SeriesPoint {
	return series(r.Snapshots, func(s RebalancingSnapshot) decimal.Decimal { return s.HealthFactor })
}

// CollateralPriceSeries is the simulated collateral price over time.
func (r *RebalancingResult) CollateralPriceSeries() []SeriesPoint {
	return series(r.Snapshots, func(s RebalancingSnapshot) decimal.Decimal { return s.CollateralPrice })
}

// MarginCallCount counts strategy snapshots with the margin call flag set.
func (r *RebalancingResult) MarginCallCount() int {
	return CountMarginCalls(r.Snapshots)
}

// CountMarginCalls counts snapshots with the margin call flag set.
func CountMarginCalls(snaps []RebalancingSnapshot) int {
	n := 0
	for _, s := range snaps {
		if s.MarginCallTriggered {
			n++
		}
	}
	return n
}

// ResultSummary is the listing view of a stored result.
type ResultSummary struct {
	ID                   string          `json:"id"`
	CreatedAt            time.Time       `json:"created_at"`
	Pair                 string          `json:"pair"`
	Mode                 Mode            `json:"mode"`
	Success              bool            `json:"success"`
	RebalanceCount       int             `json:"rebalance_count"`
	NetSavings           decimal.Decimal `json:"net_savings"`
	AnnualizedNetSavings decimal.Decimal `json:"annualized_net_savings"`
}

// Summary returns the listing view of r.
func (r *RebalancingResult) Summary() ResultSummary {
	return ResultSummary{
		ID:                   r.ID,
		CreatedAt:            r.CreatedAt,
		Pair:                 r.Config.Pair(),
		Mode:                 r.Config.Mode,
		Success:              r.Success,
		RebalanceCount:       r.Metrics.RebalanceCount,
		NetSavings:           r.Metrics.NetSavings,
		AnnualizedNetSavings: r.Metrics.AnnualizedNetSavings,
	}
}
