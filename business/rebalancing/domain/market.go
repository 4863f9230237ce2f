package domain

import "github.com/shopspring/decimal"

// MarketDebtInfo is a discovered market enriched with risk, rate statistics and a ranking score.
type MarketDebtInfo struct {
	MarketID          string `json:"market_id"`
	MarketName        string `json:"market_name"`
	CollateralSymbol  string `json:"collateral_symbol"`
	LoanSymbol        string `json:"loan_symbol"`
	CollateralAddress string `json:"collateral_address,omitempty"`
	LoanAddress       string `json:"loan_address,omitempty"`

	LLTV               decimal.Decimal `json:"lltv"`
	BorrowAPY          decimal.Decimal `json:"borrow_apy"`
	SupplyAPY          decimal.Decimal `json:"supply_apy"`
	Utilization        decimal.Decimal `json:"utilization"`
	AvailableLiquidity decimal.Decimal `json:"available_liquidity"` // loan-asset units
	TotalBorrow        decimal.Decimal `json:"total_borrow"`
	TVL                decimal.Decimal `json:"tvl"`
	CollateralPriceUSD decimal.Decimal `json:"collateral_price_usd"`
	LoanPriceUSD       decimal.Decimal `json:"loan_price_usd"`

	EffectiveMaxLeverage decimal.Decimal `json:"effective_max_leverage"`
	SafeLeverage         decimal.Decimal `json:"safe_leverage"`

	RateVolatility  decimal.Decimal `json:"rate_volatility"`
	RateTrend       decimal.Decimal `json:"rate_trend"`
	PredictedRate1d decimal.Decimal `json:"predicted_rate_1d"`
	PredictedRate7d decimal.Decimal `json:"predicted_rate_7d"`

	RateScore      decimal.Decimal `json:"rate_score"`
	RiskScore      decimal.Decimal `json:"risk_score"`
	LiquidityScore decimal.Decimal `json:"liquidity_score"`
	Score          decimal.Decimal `json:"score"` // lower is better
}

// HasPrices reports whether both USD prices are known.
func (m MarketDebtInfo) HasPrices() bool {
	return m.CollateralPriceUSD.IsPositive() && m.LoanPriceUSD.IsPositive()
}

// CollateralPrice returns the collateral price in loan-asset units.
func (m MarketDebtInfo) CollateralPrice() (decimal.Decimal, bool) {
	if !m.HasPrices() {
		return decimal.Zero, false
	}
	return m.CollateralPriceUSD.Div(m.LoanPriceUSD), true
}
