// Package domain contains the core domain types for the debt rebalancing context.
package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
)

// Mode selects the rebalancing trigger policy.
type Mode string

const (
	ModeStaticThreshold Mode = "static_threshold"
	ModeDynamicRate     Mode = "dynamic_rate"
	ModePredictive      Mode = "predictive"
	ModeOpportunityCost Mode = "opportunity_cost"
)

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown rebalancing mode %q", s)
	}
	return m, nil
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeStaticThreshold, ModeDynamicRate, ModePredictive, ModeOpportunityCost:
		return true
	}
	return false
}

func (m Mode) String() string {
	return strings.ToUpper(string(m))
}

// RebalancingConfig is the optimizer input for one run.
type RebalancingConfig struct {
	CollateralAsset  string          `json:"collateral_asset"` // symbol or 0x address
	BorrowAsset      string          `json:"borrow_asset"`
	CollateralAmount decimal.Decimal `json:"collateral_amount"`
	InitialLTV       decimal.Decimal `json:"initial_ltv"`
	TargetLeverage   decimal.Decimal `json:"target_leverage"` // zero = unset
	TotalDebt        decimal.Decimal `json:"total_debt"`      // zero = collateral_amount*initial_ltv
	Protocol         string          `json:"protocol"`

	Mode                      Mode            `json:"mode"`
	RateThresholdBps          decimal.Decimal `json:"rate_threshold_bps"`
	MinAllocationPct          decimal.Decimal `json:"min_allocation_pct"`
	MaxAllocationPct          decimal.Decimal `json:"max_allocation_pct"`
	UtilizationAlertThreshold decimal.Decimal `json:"utilization_alert_threshold"`
	MinSavingsToRebalance     decimal.Decimal `json:"min_savings_to_rebalance"`
	LookbackPeriods           int             `json:"lookback_periods"`

	MinHealthFactor     decimal.Decimal `json:"min_health_factor"`
	MarginCallThreshold decimal.Decimal `json:"margin_call_threshold"`

	GasCostUSD  decimal.Decimal `json:"gas_cost_usd"`
	SlippageBps decimal.Decimal `json:"slippage_bps"`

	SimulationDays     int                   `json:"simulation_days"`
	SimulationInterval marketDomain.Interval `json:"simulation_interval"`
	AbortOnLiquidation bool                  `json:"abort_on_liquidation"`
}

// DefaultRebalancingConfig returns a config with every tunable at its default.
// Asset pair and collateral amount are left for the caller.
func DefaultRebalancingConfig() RebalancingConfig {
	return RebalancingConfig{
		Protocol:                  "morpho",
		Mode:                      ModeDynamicRate,
		RateThresholdBps:          decimal.NewFromInt(10),
		MinAllocationPct:          decimal.RequireFromString("0.05"),
		MaxAllocationPct:          decimal.RequireFromString("0.80"),
		UtilizationAlertThreshold: decimal.RequireFromString("0.90"),
		MinSavingsToRebalance:     decimal.NewFromInt(10),
		LookbackPeriods:           24,
		MinHealthFactor:           decimal.RequireFromString("1.2"),
		MarginCallThreshold:       decimal.RequireFromString("1.15"),
		GasCostUSD:                decimal.NewFromInt(5),
		SlippageBps:               decimal.NewFromInt(5),
		SimulationDays:            30,
		SimulationInterval:        marketDomain.IntervalHour,
	}
}

// TargetLTV is the loan-to-value the run opens positions at.
func (c RebalancingConfig) TargetLTV() decimal.Decimal {
	return c.InitialLTV
}

// UsesAddressMatching reports whether both assets are given as addresses.
func (c RebalancingConfig) UsesAddressMatching() bool {
	return strings.HasPrefix(c.CollateralAsset, "0x") && strings.HasPrefix(c.BorrowAsset, "0x")
}

// Pair returns "COLLATERAL/BORROW".
func (c RebalancingConfig) Pair() string {
	return c.CollateralAsset + "/" + c.BorrowAsset
}

// Resolve validates c and fills derived fields: InitialLTV from TargetLeverage
// when unset, and TotalDebt from CollateralAmount*InitialLTV when unset.
// Any violation is a ConfigurationError.
func (c RebalancingConfig) Resolve() (RebalancingConfig, error) {
	if strings.TrimSpace(c.CollateralAsset) == "" || strings.TrimSpace(c.BorrowAsset) == "" {
		return c, ConfigurationError("collateral and borrow assets are required")
	}
	for _, a := range []string{c.CollateralAsset, c.BorrowAsset} {
		if strings.HasPrefix(a, "0x") && !common.IsHexAddress(a) {
			return c, ConfigurationError("malformed asset address: " + a)
		}
	}
	if !c.CollateralAmount.IsPositive() {
		return c, ConfigurationError("collateral_amount must be positive")
	}

	one := decimal.NewFromInt(1)
	if !c.TargetLeverage.IsZero() && c.TargetLeverage.LessThanOrEqual(one) {
		return c, ConfigurationError(fmt.Sprintf("target_leverage must be greater than 1, got %s", c.TargetLeverage))
	}
	if c.InitialLTV.IsZero() && !c.TargetLeverage.IsZero() {
		c.InitialLTV = one.Sub(one.Div(c.TargetLeverage))
	}
	if !c.InitialLTV.IsPositive() || c.InitialLTV.GreaterThanOrEqual(one) {
		return c, ConfigurationError(fmt.Sprintf("initial_ltv must be in (0, 1), got %s", c.InitialLTV))
	}

	if c.TotalDebt.IsZero() {
		c.TotalDebt = c.CollateralAmount.Mul(c.InitialLTV)
	}
	if !c.TotalDebt.IsPositive() {
		return c, ConfigurationError("total_debt must be positive")
	}

	if c.MinAllocationPct.IsNegative() || c.MaxAllocationPct.GreaterThan(one) || !c.MaxAllocationPct.IsPositive() {
		return c, ConfigurationError("allocation bounds must lie in [0, 1]")
	}
	if c.MinAllocationPct.GreaterThan(c.MaxAllocationPct) {
		return c, ConfigurationError("min_allocation_pct exceeds max_allocation_pct")
	}
	if c.GasCostUSD.IsNegative() || c.SlippageBps.IsNegative() || c.RateThresholdBps.IsNegative() {
		return c, ConfigurationError("costs and thresholds must not be negative")
	}
	if c.SimulationDays <= 0 {
		return c, ConfigurationError("simulation_days must be positive")
	}
	if !c.Mode.Valid() {
		return c, ConfigurationError(fmt.Sprintf("unknown rebalancing mode %q", string(c.Mode)))
	}
	interval, err := marketDomain.ParseInterval(string(c.SimulationInterval))
	if err != nil {
		return c, ConfigurationError(err.Error())
	}
	c.SimulationInterval = interval
	if c.LookbackPeriods <= 0 {
		c.LookbackPeriods = 24
	}
	return c, nil
}
