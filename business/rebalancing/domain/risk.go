package domain

import "github.com/shopspring/decimal"

// SentinelHealthFactor stands in for an infinite health factor (no debt).
var SentinelHealthFactor = decimal.NewFromInt(999)

var (
	one         = decimal.NewFromInt(1)
	leverageCap = decimal.RequireFromString("0.9")
)

// HealthFactor returns collateral*price*lltv / borrow, or the sentinel when borrow is zero.
func HealthFactor(collateral, price, borrow, lltv decimal.Decimal) decimal.Decimal {
	if !borrow.IsPositive() {
		return SentinelHealthFactor
	}
	return collateral.Mul(price).Mul(lltv).Div(borrow)
}

// LiquidationPrice is the collateral price at which HF reaches 1.
// Returns zero when collateral or lltv is zero.
func LiquidationPrice(collateral, borrow, lltv decimal.Decimal) decimal.Decimal {
	if collateral.IsZero() || lltv.IsZero() {
		return decimal.Zero
	}
	return borrow.Div(collateral.Mul(lltv))
}

// MaxBorrow is the largest borrow that keeps HF at targetHF.
func MaxBorrow(collateral, price, lltv, targetHF decimal.Decimal) decimal.Decimal {
	if !targetHF.IsPositive() {
		return decimal.Zero
	}
	return collateral.Mul(price).Mul(lltv).Div(targetHF)
}

// RequiredCollateral is the collateral needed to hold borrow at targetHF.
func RequiredCollateral(borrow, price, lltv, targetHF decimal.Decimal) decimal.Decimal {
	if price.IsZero() || lltv.IsZero() {
		return decimal.Zero
	}
	return borrow.Mul(targetHF).Div(price.Mul(lltv))
}

// LeverageFromHF inverts HF = L*lltv/(L-1): L = HF/(HF-lltv).
// Returns the sentinel when HF <= lltv.
func LeverageFromHF(hf, lltv decimal.Decimal) decimal.Decimal {
	denom := hf.Sub(lltv)
	if !denom.IsPositive() {
		return SentinelHealthFactor
	}
	return hf.Div(denom)
}

// HFFromLeverage returns L*lltv/(L-1), or the sentinel when L <= 1.
func HFFromLeverage(leverage, lltv decimal.Decimal) decimal.Decimal {
	if leverage.LessThanOrEqual(one) {
		return SentinelHealthFactor
	}
	return leverage.Mul(lltv).Div(leverage.Sub(one))
}

// MaxLeverage is 1/(1-lltv), the leverage at which HF reaches 1.
func MaxLeverage(lltv decimal.Decimal) decimal.Decimal {
	if lltv.GreaterThanOrEqual(one) {
		return SentinelHealthFactor
	}
	return one.Div(one.Sub(lltv))
}

// LeveragedPosition is the result of looping capital up to a leverage.
type LeveragedPosition struct {
	Leverage        decimal.Decimal `json:"leverage"`
	TotalCollateral decimal.Decimal `json:"total_collateral"`
	TotalBorrow     decimal.Decimal `json:"total_borrow"` // loan-asset units
	HealthFactor    decimal.Decimal `json:"health_factor"`
}

// LeverageLoop builds the position reached by looping capital (collateral units)
// to the requested leverage. Leverage that would open below HF 1 is clamped to
// 90% of the way to the maximum.
func LeverageLoop(capital, leverage, price, lltv decimal.Decimal) LeveragedPosition {
	if leverage.LessThan(one) {
		leverage = one
	}
	maxLev := MaxLeverage(lltv)
	if leverage.GreaterThanOrEqual(maxLev) {
		leverage = one.Add(maxLev.Sub(one).Mul(leverageCap))
	}

	collateral := capital.Mul(leverage)
	borrow := capital.Mul(leverage.Sub(one)).Mul(price)

	return LeveragedPosition{
		Leverage:        leverage,
		TotalCollateral: collateral,
		TotalBorrow:     borrow,
		HealthFactor:    HealthFactor(collateral, price, borrow, lltv),
	}
}
