package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DebtPosition is the debt held in one market.
type DebtPosition struct {
	MarketID         string          `json:"market_id"`
	MarketName       string          `json:"market_name"`
	CollateralAmount decimal.Decimal `json:"collateral_amount"`
	BorrowAmount     decimal.Decimal `json:"borrow_amount"`
	BorrowAPY        decimal.Decimal `json:"borrow_apy"`
	LLTV             decimal.Decimal `json:"lltv"`
	AllocationWeight decimal.Decimal `json:"allocation_weight"`

	HealthFactor             decimal.Decimal `json:"health_factor"`
	LiquidationPrice         decimal.Decimal `json:"liquidation_price"`
	MarginCallPrice          decimal.Decimal `json:"margin_call_price"`
	CurrentLTV               decimal.Decimal `json:"current_ltv"`
	DistanceToLiquidationPct decimal.Decimal `json:"distance_to_liquidation_pct"`

	EstimatedDailyInterest   decimal.Decimal `json:"estimated_daily_interest"`
	EstimatedMonthlyInterest decimal.Decimal `json:"estimated_monthly_interest"`
	EstimatedAnnualInterest  decimal.Decimal `json:"estimated_annual_interest"`
}

// Refresh recomputes the price-dependent risk fields at price.
func (p *DebtPosition) Refresh(price, marginCallThreshold decimal.Decimal) {
	p.HealthFactor = HealthFactor(p.CollateralAmount, price, p.BorrowAmount, p.LLTV)
	p.LiquidationPrice = LiquidationPrice(p.CollateralAmount, p.BorrowAmount, p.LLTV)
	p.MarginCallPrice = p.LiquidationPrice.Mul(marginCallThreshold)

	value := p.CollateralAmount.Mul(price)
	if value.IsPositive() {
		p.CurrentLTV = p.BorrowAmount.Div(value)
	} else {
		p.CurrentLTV = decimal.Zero
	}
	if price.IsPositive() {
		p.DistanceToLiquidationPct = price.Sub(p.LiquidationPrice).Div(price).Mul(hundred)
	} else {
		p.DistanceToLiquidationPct = decimal.Zero
	}
}

// RefreshInterest recomputes the interest estimates from the current debt and rate.
func (p *DebtPosition) RefreshInterest() {
	annual := p.BorrowAmount.Mul(p.BorrowAPY)
	p.EstimatedAnnualInterest = annual
	p.EstimatedMonthlyInterest = annual.Div(decimal.NewFromInt(12))
	p.EstimatedDailyInterest = annual.Div(decimal.NewFromInt(365))
}

// IsLiquidatable reports HF < 1.
func (p DebtPosition) IsLiquidatable() bool {
	return p.HealthFactor.LessThan(one)
}

// TotalDebt sums borrow amounts.
func TotalDebt(positions []DebtPosition) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.BorrowAmount)
	}
	return total
}

// TotalCollateral sums collateral amounts.
func TotalCollateral(positions []DebtPosition) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.CollateralAmount)
	}
	return total
}

// WeightedBorrowAPY is the debt-weighted average borrow rate.
func WeightedBorrowAPY(positions []DebtPosition) decimal.Decimal {
	debt := TotalDebt(positions)
	if !debt.IsPositive() {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, p := range positions {
		sum = sum.Add(p.BorrowAmount.Mul(p.BorrowAPY))
	}
	return sum.Div(debt)
}

// WeightedLLTV is the debt-weighted average LLTV, used as a single proxy LLTV
// for the aggregate position.
func WeightedLLTV(positions []DebtPosition) decimal.Decimal {
	debt := TotalDebt(positions)
	if !debt.IsPositive() {
		if len(positions) == 0 {
			return decimal.Zero
		}
		sum := decimal.Zero
		for _, p := range positions {
			sum = sum.Add(p.LLTV)
		}
		return sum.Div(decimal.NewFromInt(int64(len(positions))))
	}
	sum := decimal.Zero
	for _, p := range positions {
		sum = sum.Add(p.BorrowAmount.Mul(p.LLTV))
	}
	return sum.Div(debt)
}

// AggregateHealthFactor is the health factor of all positions taken together at price.
func AggregateHealthFactor(positions []DebtPosition, price decimal.Decimal) decimal.Decimal {
	return HealthFactor(TotalCollateral(positions), price, TotalDebt(positions), WeightedLLTV(positions))
}

// ClonePositions deep-copies a position slice.
func ClonePositions(positions []DebtPosition) []DebtPosition {
	if positions == nil {
		return nil
	}
	out := make([]DebtPosition, len(positions))
	copy(out, positions)
	return out
}
