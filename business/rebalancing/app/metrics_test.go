package app

import (
	"testing"
	"time"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

func snap(hours int, apy, interest, cost string) domain.RebalancingSnapshot {
	return domain.RebalancingSnapshot{
		Timestamp:               t0.Add(time.Duration(hours) * time.Hour),
		WeightedBorrowAPY:       d(apy),
		CumulativeInterest:      d(interest),
		CumulativeRebalanceCost: d(cost),
		HealthFactor:            d("2"),
	}
}

func TestMetricsAggregator_Aggregate(t *testing.T) {
	strategy := []domain.RebalancingSnapshot{
		snap(0, "0.03", "0", "0"),
		snap(24, "0.04", "1", "5"),
		snap(48, "0.05", "2", "5"),
	}
	strategy[1].Rebalanced = true
	strategy[1].RateSpreadBps = d("200")
	strategy[2].MarginCallTriggered = true

	benchmark := []domain.RebalancingSnapshot{
		snap(0, "0.05", "0", "0"),
		snap(24, "0.05", "2", "0"),
		snap(48, "0.05", "4", "0"),
	}

	m := NewMetricsAggregator().Aggregate(strategy, benchmark)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"interest", m.TotalInterestPaid.String(), "2"},
		{"benchmark interest", m.BenchmarkInterestPaid.String(), "4"},
		{"savings", m.InterestSavings.String(), "2"},
		{"savings pct", m.InterestSavingsPct.String(), "50"},
		{"avg apy", m.AvgBorrowAPY.String(), "0.04"},
		{"min apy", m.MinBorrowAPY.String(), "0.03"},
		{"max apy", m.MaxBorrowAPY.String(), "0.05"},
		{"benchmark avg apy", m.BenchmarkAvgBorrowAPY.String(), "0.05"},
		{"cost", m.TotalRebalanceCost.String(), "5"},
		{"avg trigger spread", m.AvgRateDiffTriggerBps.String(), "200"},
		{"net", m.NetSavings.String(), "-3"},
		{"annualized", m.AnnualizedNetSavings.String(), "-547.5"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %s, want %s", tt.name, tt.got, tt.want)
		}
	}

	if m.RebalanceCount != 1 || m.SimulationDays != 2 || m.DataPoints != 3 {
		t.Errorf("counts = %d rebalances, %d days, %d points, want 1, 2, 3", m.RebalanceCount, m.SimulationDays, m.DataPoints)
	}
	if m.MarginCallCount != 1 || m.BenchmarkMarginCallCount != 0 {
		t.Errorf("margin calls = %d / %d, want 1 / 0", m.MarginCallCount, m.BenchmarkMarginCallCount)
	}
}

func TestMetricsAggregator_ShortRunAnnualizesOverOneDay(t *testing.T) {
	strategy := []domain.RebalancingSnapshot{snap(0, "0.03", "0", "0"), snap(5, "0.03", "1", "0")}
	benchmark := []domain.RebalancingSnapshot{snap(0, "0.05", "0", "0"), snap(5, "0.05", "2", "0")}

	m := NewMetricsAggregator().Aggregate(strategy, benchmark)
	if m.SimulationDays != 0 {
		t.Errorf("SimulationDays = %d, want 0", m.SimulationDays)
	}
	if !m.AnnualizedNetSavings.Equal(d("365")) {
		t.Errorf("AnnualizedNetSavings = %s, want 365", m.AnnualizedNetSavings)
	}
}

func TestMetricsAggregator_Empty(t *testing.T) {
	m := NewMetricsAggregator().Aggregate(nil, nil)
	if m.DataPoints != 0 || !m.NetSavings.IsZero() || !m.AvgBorrowAPY.IsZero() {
		t.Errorf("Aggregate(nil) = %+v, want zeroed metrics", m)
	}
}
