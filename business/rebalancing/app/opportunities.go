package app

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

var (
	bpsScale     = decimal.NewFromInt(10000)
	daysPerYear  = decimal.NewFromInt(365)
	monthsPerYr  = decimal.NewFromInt(12)
	breakevenCap = decimal.NewFromInt(999)
	thirty       = decimal.NewFromInt(30)
)

// MoveEconomics is the cost and savings of moving debt between two rates.
type MoveEconomics struct {
	GasCost        decimal.Decimal
	SlippageCost   decimal.Decimal
	TotalCost      decimal.Decimal
	AnnualSavings  decimal.Decimal
	MonthlySavings decimal.Decimal
	DailySavings   decimal.Decimal
	BreakevenDays  decimal.Decimal
	NetBenefit30d  decimal.Decimal
}

// EvaluateMove prices moving debt whose rate drops by rateDiff.
func EvaluateMove(debt, rateDiff decimal.Decimal, cfg domain.RebalancingConfig) MoveEconomics {
	e := MoveEconomics{
		GasCost:      cfg.GasCostUSD,
		SlippageCost: debt.Mul(cfg.SlippageBps).Div(bpsScale),
	}
	e.TotalCost = e.GasCost.Add(e.SlippageCost)

	e.AnnualSavings = debt.Mul(rateDiff)
	e.MonthlySavings = e.AnnualSavings.Div(monthsPerYr)
	e.DailySavings = e.AnnualSavings.Div(daysPerYear)

	if e.DailySavings.IsPositive() {
		e.BreakevenDays = e.TotalCost.Div(e.DailySavings)
	} else {
		e.BreakevenDays = breakevenCap
	}
	e.NetBenefit30d = e.MonthlySavings.Sub(e.TotalCost)
	return e
}

// OpportunityDetector lists profitable moves from held positions to other markets.
type OpportunityDetector struct{}

// NewOpportunityDetector creates a new OpportunityDetector.
func NewOpportunityDetector() *OpportunityDetector {
	return &OpportunityDetector{}
}

// Detect returns opportunities by score descending. Positions are not modified.
func (d *OpportunityDetector) Detect(markets []domain.MarketDebtInfo, positions []domain.DebtPosition, cfg domain.RebalancingConfig) []domain.RebalancingOpportunity {
	var out []domain.RebalancingOpportunity

	for _, pos := range positions {
		for _, m := range markets {
			if m.MarketID == pos.MarketID {
				continue
			}
			diff := pos.BorrowAPY.Sub(m.BorrowAPY)
			diffBps := diff.Mul(bpsScale)
			if diffBps.LessThan(cfg.RateThresholdBps) {
				continue
			}
			if m.AvailableLiquidity.LessThan(pos.BorrowAmount) {
				continue
			}

			e := EvaluateMove(pos.BorrowAmount, diff, cfg)
			score := decimal.Zero
			if cfg.TotalDebt.IsPositive() {
				score = e.NetBenefit30d.Div(cfg.TotalDebt).Mul(bpsScale)
			}

			out = append(out, domain.RebalancingOpportunity{
				FromMarketID:     pos.MarketID,
				FromMarketName:   pos.MarketName,
				ToMarketID:       m.MarketID,
				ToMarketName:     m.MarketName,
				Trigger:          domain.TriggerRateDiff,
				DebtAmount:       pos.BorrowAmount,
				CollateralAmount: pos.CollateralAmount,
				FromRate:         pos.BorrowAPY,
				ToRate:           m.BorrowAPY,
				RateDiffBps:      diffBps,
				GasCost:          e.GasCost,
				SlippageCost:     e.SlippageCost,
				TotalCost:        e.TotalCost,
				AnnualSavings:    e.AnnualSavings,
				MonthlySavings:   e.MonthlySavings,
				DailySavings:     e.DailySavings,
				BreakevenDays:    e.BreakevenDays,
				NetBenefit30d:    e.NetBenefit30d,
				OpportunityScore: score,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpportunityScore.GreaterThan(out[j].OpportunityScore)
	})
	return out
}
