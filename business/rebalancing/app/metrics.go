package app

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

// MetricsAggregator folds the strategy and benchmark paths into run metrics.
type MetricsAggregator struct{}

// NewMetricsAggregator creates a new MetricsAggregator.
func NewMetricsAggregator() *MetricsAggregator {
	return &MetricsAggregator{}
}

// Aggregate compares strategy with benchmark. An empty strategy path yields
// zeroed metrics.
func (a *MetricsAggregator) Aggregate(strategy, benchmark []domain.RebalancingSnapshot) domain.RebalancingMetrics {
	m := domain.RebalancingMetrics{
		TotalInterestPaid:     decimal.Zero,
		BenchmarkInterestPaid: decimal.Zero,
		InterestSavings:       decimal.Zero,
		InterestSavingsPct:    decimal.Zero,
		AvgBorrowAPY:          decimal.Zero,
		MinBorrowAPY:          decimal.Zero,
		MaxBorrowAPY:          decimal.Zero,
		BenchmarkAvgBorrowAPY: decimal.Zero,
		TotalRebalanceCost:    decimal.Zero,
		AvgRateDiffTriggerBps: decimal.Zero,
		NetSavings:            decimal.Zero,
		AnnualizedNetSavings:  decimal.Zero,
	}
	if len(strategy) == 0 {
		return m
	}

	last := strategy[len(strategy)-1]
	m.TotalInterestPaid = last.CumulativeInterest
	m.TotalRebalanceCost = last.CumulativeRebalanceCost
	if len(benchmark) > 0 {
		m.BenchmarkInterestPaid = benchmark[len(benchmark)-1].CumulativeInterest
	}

	m.InterestSavings = m.BenchmarkInterestPaid.Sub(m.TotalInterestPaid)
	if m.BenchmarkInterestPaid.IsPositive() {
		m.InterestSavingsPct = m.InterestSavings.Div(m.BenchmarkInterestPaid).Mul(decimal.NewFromInt(100))
	}

	apys := make([]decimal.Decimal, len(strategy))
	var triggerSpreads []decimal.Decimal
	for i, s := range strategy {
		apys[i] = s.WeightedBorrowAPY
		if s.Rebalanced {
			m.RebalanceCount++
			triggerSpreads = append(triggerSpreads, s.RateSpreadBps)
		}
	}
	m.AvgBorrowAPY = mean(apys)
	m.MinBorrowAPY = decimal.Min(apys[0], apys[1:]...)
	m.MaxBorrowAPY = decimal.Max(apys[0], apys[1:]...)
	m.AvgRateDiffTriggerBps = mean(triggerSpreads)

	benchAPYs := make([]decimal.Decimal, len(benchmark))
	for i, s := range benchmark {
		benchAPYs[i] = s.WeightedBorrowAPY
	}
	m.BenchmarkAvgBorrowAPY = mean(benchAPYs)

	m.NetSavings = m.InterestSavings.Sub(m.TotalRebalanceCost)

	days := int(last.Timestamp.Sub(strategy[0].Timestamp).Hours() / 24)
	m.SimulationDays = days
	m.AnnualizedNetSavings = m.NetSavings.Mul(daysPerYear).Div(decimal.NewFromInt(int64(max(1, days))))

	m.DataPoints = len(strategy)
	m.MarginCallCount = domain.CountMarginCalls(strategy)
	m.BenchmarkMarginCallCount = domain.CountMarginCalls(benchmark)
	return m
}
