package domain

import "github.com/shopspring/decimal"

// Trigger names what caused a rebalance.
type Trigger string

const (
	TriggerNone            Trigger = ""
	TriggerRateDiff        Trigger = "rate_diff"
	TriggerUtilization     Trigger = "utilization"
	TriggerRateTrend       Trigger = "rate_trend"
	TriggerOpportunityCost Trigger = "opportunity_cost"
	TriggerHealthFactor    Trigger = "health_factor"
)

// RebalancingOpportunity is a candidate move of one position's debt to another market.
type RebalancingOpportunity struct {
	FromMarketID     string          `json:"from_market_id"`
	FromMarketName   string          `json:"from_market_name"`
	ToMarketID       string          `json:"to_market_id"`
	ToMarketName     string          `json:"to_market_name"`
	Trigger          Trigger         `json:"trigger"`
	DebtAmount       decimal.Decimal `json:"debt_amount"`
	CollateralAmount decimal.Decimal `json:"collateral_amount"`
	FromRate         decimal.Decimal `json:"from_rate"`
	ToRate           decimal.Decimal `json:"to_rate"`
	RateDiffBps      decimal.Decimal `json:"rate_diff_bps"`

	GasCost      decimal.Decimal `json:"gas_cost"`
	SlippageCost decimal.Decimal `json:"slippage_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`

	AnnualSavings    decimal.Decimal `json:"annual_savings"`
	MonthlySavings   decimal.Decimal `json:"monthly_savings"`
	DailySavings     decimal.Decimal `json:"daily_savings"`
	BreakevenDays    decimal.Decimal `json:"breakeven_days"`
	NetBenefit30d    decimal.Decimal `json:"net_benefit_30d"`
	OpportunityScore decimal.Decimal `json:"opportunity_score"`
}

// IsProfitable30d reports a positive net benefit over 30 days.
func (o RebalancingOpportunity) IsProfitable30d() bool {
	return o.NetBenefit30d.IsPositive()
}
