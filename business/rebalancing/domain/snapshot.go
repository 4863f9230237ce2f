package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RebalancingSnapshot is the full state after one simulation step.
type RebalancingSnapshot struct {
	Timestamp               time.Time       `json:"timestamp"`
	Positions               []DebtPosition  `json:"positions"`
	TotalDebt               decimal.Decimal `json:"total_debt"`
	TotalCollateral         decimal.Decimal `json:"total_collateral"`
	WeightedBorrowAPY       decimal.Decimal `json:"weighted_borrow_apy"`
	CumulativeInterest      decimal.Decimal `json:"cumulative_interest"`
	CumulativeRebalanceCost decimal.Decimal `json:"cumulative_rebalance_cost"`
	RateSpreadBps           decimal.Decimal `json:"rate_spread_bps"`
	Rebalanced              bool            `json:"rebalanced"`
	Trigger                 Trigger         `json:"trigger,omitempty"`
	CollateralPrice         decimal.Decimal `json:"collateral_price"`
	HealthFactor            decimal.Decimal `json:"health_factor"`
	MarginCallTriggered     bool            `json:"margin_call_triggered"`
}

// Liquidated reports an aggregate HF below 1.
func (s RebalancingSnapshot) Liquidated() bool {
	return s.HealthFactor.LessThan(one)
}

// RebalancingMetrics compares the strategy run with the benchmark.
type RebalancingMetrics struct {
	TotalInterestPaid     decimal.Decimal `json:"total_interest_paid"`
	BenchmarkInterestPaid decimal.Decimal `json:"benchmark_interest_paid"`
	InterestSavings       decimal.Decimal `json:"interest_savings"`
	InterestSavingsPct    decimal.Decimal `json:"interest_savings_pct"`

	AvgBorrowAPY          decimal.Decimal `json:"avg_borrow_apy"`
	MinBorrowAPY          decimal.Decimal `json:"min_borrow_apy"`
	MaxBorrowAPY          decimal.Decimal `json:"max_borrow_apy"`
	BenchmarkAvgBorrowAPY decimal.Decimal `json:"benchmark_avg_borrow_apy"`

	RebalanceCount        int             `json:"rebalance_count"`
	TotalRebalanceCost    decimal.Decimal `json:"total_rebalance_cost"`
	AvgRateDiffTriggerBps decimal.Decimal `json:"avg_rate_diff_trigger_bps"`

	NetSavings           decimal.Decimal `json:"net_savings"`
	AnnualizedNetSavings decimal.Decimal `json:"annualized_net_savings"`

	SimulationDays           int `json:"simulation_days"`
	DataPoints               int `json:"data_points"`
	MarginCallCount          int `json:"margin_call_count"`
	BenchmarkMarginCallCount int `json:"benchmark_margin_call_count"`
}

// RiskSnapshot is the aggregate position evaluated under one price move.
type RiskSnapshot struct {
	PriceChangePct  decimal.Decimal `json:"price_change_pct"`
	CollateralPrice decimal.Decimal `json:"collateral_price"`
	HealthFactor    decimal.Decimal `json:"health_factor"`
	LTV             decimal.Decimal `json:"ltv"`
	IsLiquidated    bool            `json:"is_liquidated"`
	IsMarginCall    bool            `json:"is_margin_call"`
}

// PositionSummary is the human-facing risk report for an allocation.
type PositionSummary struct {
	PositionCount            int             `json:"position_count"`
	TotalCollateral          decimal.Decimal `json:"total_collateral"`
	TotalDebt                decimal.Decimal `json:"total_debt"`
	CollateralPrice          decimal.Decimal `json:"collateral_price"`
	CollateralValue          decimal.Decimal `json:"collateral_value"` // loan-asset units
	WeightedLLTV             decimal.Decimal `json:"weighted_lltv"`
	WeightedBorrowAPY        decimal.Decimal `json:"weighted_borrow_apy"`
	HealthFactor             decimal.Decimal `json:"health_factor"`
	LiquidationPrice         decimal.Decimal `json:"liquidation_price"`
	MarginCallPrice          decimal.Decimal `json:"margin_call_price"`
	CurrentLTV               decimal.Decimal `json:"current_ltv"`
	DistanceToLiquidationPct decimal.Decimal `json:"distance_to_liquidation_pct"`

	EstimatedDailyInterest   decimal.Decimal `json:"estimated_daily_interest"`
	EstimatedMonthlyInterest decimal.Decimal `json:"estimated_monthly_interest"`
	EstimatedAnnualInterest  decimal.Decimal `json:"estimated_annual_interest"`

	Scenarios []RiskSnapshot `json:"scenarios"`
	Alerts    []string       `json:"alerts"`
}
