// Package domain contains the core domain types for the lending market context.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetInfo describes one side of a market.
type AssetInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// MarketState holds the market's supply and borrow totals in raw base units.
type MarketState struct {
	SupplyAssets decimal.Decimal `json:"supply_assets"`
	BorrowAssets decimal.Decimal `json:"borrow_assets"`
}

// Market is a lending market for one collateral/loan pair.
type Market struct {
	ID                 string          `json:"id"`
	LoanAsset          AssetInfo       `json:"loan_asset"`
	CollateralAsset    AssetInfo       `json:"collateral_asset"`
	LLTV               decimal.Decimal `json:"lltv"` // e.g. 0.945
	Oracle             string          `json:"oracle,omitempty"`
	IRM                string          `json:"irm,omitempty"`
	SupplyAPY          decimal.Decimal `json:"supply_apy"`
	BorrowAPY          decimal.Decimal `json:"borrow_apy"`
	RateAtTarget       decimal.Decimal `json:"rate_at_target"`
	CollateralPriceUSD decimal.Decimal `json:"collateral_price_usd"`
	LoanPriceUSD       decimal.Decimal `json:"loan_price_usd"`
	State              *MarketState    `json:"state,omitempty"`
}

// Name returns a display name such as "wstETH/WETH (94.5%)".
func (m Market) Name() string {
	return fmt.Sprintf("%s/%s (%s%%)",
		m.CollateralAsset.Symbol,
		m.LoanAsset.Symbol,
		m.LLTV.Mul(decimal.NewFromInt(100)).String())
}

// SupplyTokens returns total supply in loan-asset units.
func (m Market) SupplyTokens() decimal.Decimal {
	if m.State == nil {
		return decimal.Zero
	}
	return m.State.SupplyAssets.Shift(-m.LoanAsset.Decimals)
}

// BorrowTokens returns total borrow in loan-asset units.
func (m Market) BorrowTokens() decimal.Decimal {
	if m.State == nil {
		return decimal.Zero
	}
	return m.State.BorrowAssets.Shift(-m.LoanAsset.Decimals)
}

// Utilization is borrow / supply, zero for an empty market.
func (m Market) Utilization() decimal.Decimal {
	if m.State == nil || !m.State.SupplyAssets.IsPositive() {
		return decimal.Zero
	}
	return m.State.BorrowAssets.Div(m.State.SupplyAssets)
}

// AvailableLiquidity is supply - borrow in loan-asset units, floored at zero.
func (m Market) AvailableLiquidity() decimal.Decimal {
	avail := m.SupplyTokens().Sub(m.BorrowTokens())
	if avail.IsNegative() {
		return decimal.Zero
	}
	return avail
}

// HasPrices reports whether both USD prices are known.
func (m Market) HasPrices() bool {
	return m.CollateralPriceUSD.IsPositive() && m.LoanPriceUSD.IsPositive()
}

// CollateralPrice returns the collateral price in loan-asset units.
func (m Market) CollateralPrice() (decimal.Decimal, bool) {
	if !m.HasPrices() {
		return decimal.Zero, false
	}
	return m.CollateralPriceUSD.Div(m.LoanPriceUSD), true
}

// TVL returns supplied value in USD, or in loan-asset units when the loan asset is unpriced.
func (m Market) TVL() decimal.Decimal {
	return m.valueOf(m.SupplyTokens())
}

// AvailableLiquidityValue returns available liquidity in the same units as TVL.
func (m Market) AvailableLiquidityValue() decimal.Decimal {
	return m.valueOf(m.AvailableLiquidity())
}

func (m Market) valueOf(tokens decimal.Decimal) decimal.Decimal {
	if m.LoanPriceUSD.IsPositive() {
		return tokens.Mul(m.LoanPriceUSD)
	}
	return tokens
}

// MatchesAddresses compares both asset addresses case-insensitively.
func (m Market) MatchesAddresses(collateral, loan string) bool {
	return strings.EqualFold(m.CollateralAsset.Address, collateral) &&
		strings.EqualFold(m.LoanAsset.Address, loan)
}

// MatchesSymbols checks that each configured symbol is a case-insensitive substring of the market's.
func (m Market) MatchesSymbols(collateral, loan string) bool {
	return containsFold(m.CollateralAsset.Symbol, collateral) &&
		containsFold(m.LoanAsset.Symbol, loan)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToUpper(s), strings.ToUpper(sub))
}

// TimeseriesPoint is one historical observation of a market.
type TimeseriesPoint struct {
	Timestamp          time.Time       `json:"timestamp"`
	SupplyAPY          decimal.Decimal `json:"supply_apy"`
	BorrowAPY          decimal.Decimal `json:"borrow_apy"`
	Utilization        decimal.Decimal `json:"utilization"`
	RateAtTarget       decimal.Decimal `json:"rate_at_target"`
	SupplyAssets       decimal.Decimal `json:"supply_assets"`
	BorrowAssets       decimal.Decimal `json:"borrow_assets"`
	CollateralPriceUSD decimal.Decimal `json:"collateral_price_usd"`
	LoanPriceUSD       decimal.Decimal `json:"loan_price_usd"`
}

// PricePoint is a collateral price, in loan-asset units, at a point in time.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Source    string          `json:"source,omitempty"`
}

// PriceSeriesFromTimeseries derives collateral prices from the USD prices carried by a timeseries.
// Points without both prices are skipped.
func PriceSeriesFromTimeseries(points []TimeseriesPoint, source string) []PricePoint {
	out := make([]PricePoint, 0, len(points))
	for _, p := range points {
		if !p.CollateralPriceUSD.IsPositive() || !p.LoanPriceUSD.IsPositive() {
			continue
		}
		out = append(out, PricePoint{
			Timestamp: p.Timestamp,
			Price:     p.CollateralPriceUSD.Div(p.LoanPriceUSD),
			Source:    source,
		})
	}
	return out
}
