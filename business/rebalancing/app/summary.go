package app

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

// ScenarioPriceChanges are the collateral price moves, in percent, that a
// position summary is stress-tested against.
var ScenarioPriceChanges = []decimal.Decimal{
	decimal.NewFromInt(-20),
	decimal.NewFromInt(-15),
	decimal.NewFromInt(-10),
	decimal.NewFromInt(-5),
	decimal.Zero,
	decimal.NewFromInt(5),
	decimal.NewFromInt(10),
}

// PositionSummarizer builds the risk report for an allocation.
type PositionSummarizer struct{}

// NewPositionSummarizer creates a new PositionSummarizer.
func NewPositionSummarizer() *PositionSummarizer {
	return &PositionSummarizer{}
}

// Summarize aggregates positions at price, runs the price scenarios and
// collects alerts.
func (s *PositionSummarizer) Summarize(positions []domain.DebtPosition, markets []domain.MarketDebtInfo, price decimal.Decimal, cfg domain.RebalancingConfig) *domain.PositionSummary {
	coll := domain.TotalCollateral(positions)
	debt := domain.TotalDebt(positions)
	lltv := domain.WeightedLLTV(positions)
	apy := domain.WeightedBorrowAPY(positions)

	sum := &domain.PositionSummary{
		PositionCount:     len(positions),
		TotalCollateral:   coll,
		TotalDebt:         debt,
		CollateralPrice:   price,
		CollateralValue:   coll.Mul(price),
		WeightedLLTV:      lltv,
		WeightedBorrowAPY: apy,
		HealthFactor:      domain.HealthFactor(coll, price, debt, lltv),
		LiquidationPrice:  domain.LiquidationPrice(coll, debt, lltv),
	}
	sum.MarginCallPrice = sum.LiquidationPrice.Mul(cfg.MarginCallThreshold)
	if sum.CollateralValue.IsPositive() {
		sum.CurrentLTV = debt.Div(sum.CollateralValue)
	}
	if price.IsPositive() {
		sum.DistanceToLiquidationPct = price.Sub(sum.LiquidationPrice).Div(price).Mul(decimal.NewFromInt(100))
	}

	annual := debt.Mul(apy)
	sum.EstimatedAnnualInterest = annual
	sum.EstimatedMonthlyInterest = annual.Div(monthsPerYr)
	sum.EstimatedDailyInterest = annual.Div(daysPerYear)

	sum.Scenarios = scenarios(coll, debt, lltv, price, cfg.MarginCallThreshold)
	sum.Alerts = alerts(sum, positions, markets, cfg)
	return sum
}

func scenarios(coll, debt, lltv, price, marginCall decimal.Decimal) []domain.RiskSnapshot {
	out := make([]domain.RiskSnapshot, 0, len(ScenarioPriceChanges))
	for _, pct := range ScenarioPriceChanges {
		p := price.Mul(one.Add(pct.Div(decimal.NewFromInt(100))))
		hf := domain.HealthFactor(coll, p, debt, lltv)

		ltv := decimal.Zero
		if value := coll.Mul(p); value.IsPositive() {
			ltv = debt.Div(value)
		}
		out = append(out, domain.RiskSnapshot{
			PriceChangePct:  pct,
			CollateralPrice: p,
			HealthFactor:    hf,
			LTV:             ltv,
			IsLiquidated:    hf.LessThan(one),
			IsMarginCall:    hf.LessThan(marginCall),
		})
	}
	return out
}

func alerts(sum *domain.PositionSummary, positions []domain.DebtPosition, markets []domain.MarketDebtInfo, cfg domain.RebalancingConfig) []string {
	var out []string

	if sum.HealthFactor.LessThan(cfg.MinHealthFactor) {
		out = append(out, fmt.Sprintf("Health factor %s is below minimum %s",
			sum.HealthFactor.StringFixed(3), cfg.MinHealthFactor.String()))
	}
	if sum.HealthFactor.LessThan(cfg.MarginCallThreshold) {
		out = append(out, fmt.Sprintf("Health factor %s is below margin call threshold %s",
			sum.HealthFactor.StringFixed(3), cfg.MarginCallThreshold.String()))
	}
	for _, sc := range sum.Scenarios {
		if sc.IsLiquidated {
			out = append(out, fmt.Sprintf("Position is liquidated at a %s%% price move", sc.PriceChangePct.String()))
			break
		}
	}

	byID := make(map[string]domain.MarketDebtInfo, len(markets))
	for _, m := range markets {
		byID[m.MarketID] = m
	}
	for _, p := range positions {
		if m, ok := byID[p.MarketID]; ok && m.Utilization.GreaterThan(cfg.UtilizationAlertThreshold) {
			out = append(out, fmt.Sprintf("Market %s utilization %s%% exceeds %s%%",
				p.MarketName,
				m.Utilization.Mul(decimal.NewFromInt(100)).StringFixed(1),
				cfg.UtilizationAlertThreshold.Mul(decimal.NewFromInt(100)).StringFixed(1)))
		}
		if p.AllocationWeight.GreaterThan(cfg.MaxAllocationPct) {
			out = append(out, fmt.Sprintf("Market %s holds %s%% of debt, above max allocation %s%%",
				p.MarketName,
				p.AllocationWeight.Mul(decimal.NewFromInt(100)).StringFixed(1),
				cfg.MaxAllocationPct.Mul(decimal.NewFromInt(100)).StringFixed(1)))
		}
	}
	return out
}
