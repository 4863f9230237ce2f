package app

import (
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

const trendPeriods = 6

var (
	maxVolatilityScale = decimal.NewFromInt(2)
	trendRise          = decimal.RequireFromString("1.05")
	predictiveUtil     = decimal.RequireFromString("0.85")
)

// StepState is what a trigger policy sees at one simulation step.
type StepState struct {
	Config      domain.RebalancingConfig
	Positions   []domain.DebtPosition
	Rates       map[string]decimal.Decimal   // current rate of every market known at this step
	Utilization map[string]decimal.Decimal   // current utilization of every market known at this step
	RateHistory map[string][]decimal.Decimal // rates observed so far, oldest first, current included
	SpreadBps   decimal.Decimal              // max held rate - min known rate, in bps
}

// bestRate is the lowest known rate.
func (s *StepState) bestRate() (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, r := range s.Rates {
		if !found || r.LessThan(best) {
			best, found = r, true
		}
	}
	return best, found
}

// betterExists reports whether some market is strictly cheaper than rate.
func (s *StepState) betterExists(rate decimal.Decimal) bool {
	best, ok := s.bestRate()
	return ok && best.LessThan(rate)
}

// RateSpreadBps is max(held rates) - min(known rates), in bps, floored at zero.
func RateSpreadBps(positions []domain.DebtPosition, known map[string]decimal.Decimal) decimal.Decimal {
	if len(positions) == 0 || len(known) == 0 {
		return decimal.Zero
	}
	maxHeld := positions[0].BorrowAPY
	for _, p := range positions[1:] {
		maxHeld = decimal.Max(maxHeld, p.BorrowAPY)
	}
	var minKnown decimal.Decimal
	first := true
	for _, r := range known {
		if first || r.LessThan(minKnown) {
			minKnown, first = r, false
		}
	}
	spread := maxHeld.Sub(minKnown).Mul(bpsScale)
	if spread.IsNegative() {
		return decimal.Zero
	}
	return spread
}

// TriggerPolicy decides whether to rebalance at a step.
type TriggerPolicy interface {
	Mode() domain.Mode
	ShouldRebalance(s *StepState) (bool, domain.Trigger)
}

// NewTriggerPolicy returns the policy for mode.
func NewTriggerPolicy(mode domain.Mode) (TriggerPolicy, error) {
	switch mode {
	case domain.ModeStaticThreshold:
		return StaticThresholdPolicy{}, nil
	case domain.ModeDynamicRate:
		return DynamicRatePolicy{}, nil
	case domain.ModePredictive:
		return PredictivePolicy{}, nil
	case domain.ModeOpportunityCost:
		return OpportunityCostPolicy{}, nil
	}
	return nil, domain.ConfigurationError("unknown rebalancing mode " + string(mode))
}

// StaticThresholdPolicy fires when the rate spread reaches the threshold.
type StaticThresholdPolicy struct{}

func (StaticThresholdPolicy) Mode() domain.Mode { return domain.ModeStaticThreshold }

func (StaticThresholdPolicy) ShouldRebalance(s *StepState) (bool, domain.Trigger) {
	if s.SpreadBps.GreaterThanOrEqual(s.Config.RateThresholdBps) {
		return true, domain.TriggerRateDiff
	}
	return false, domain.TriggerNone
}

// DynamicRatePolicy scales the threshold by recent volatility and also fires
// on high utilization in a held market.
type DynamicRatePolicy struct{}

func (DynamicRatePolicy) Mode() domain.Mode { return domain.ModeDynamicRate }

func (DynamicRatePolicy) ShouldRebalance(s *StepState) (bool, domain.Trigger) {
	scale := one.Add(decimal.Min(maxVolatilityScale, averageVolatility(s).Mul(decimal.NewFromInt(100))))
	if s.SpreadBps.GreaterThanOrEqual(s.Config.RateThresholdBps.Mul(scale)) {
		return true, domain.TriggerRateDiff
	}
	for _, p := range s.Positions {
		if u, ok := s.Utilization[p.MarketID]; ok && u.GreaterThan(s.Config.UtilizationAlertThreshold) {
			return true, domain.TriggerUtilization
		}
	}
	return false, domain.TriggerNone
}

// averageVolatility is the mean, across known markets, of the rate stdev over
// the trailing lookback window.
func averageVolatility(s *StepState) decimal.Decimal {
	lookback := s.Config.LookbackPeriods
	ids := make([]string, 0, len(s.Rates))
	for id := range s.Rates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sum float64
	var n int
	for _, id := range ids {
		hist := s.RateHistory[id]
		if lookback > 0 && len(hist) > lookback {
			hist = hist[len(hist)-lookback:]
		}
		if len(hist) < 2 {
			continue
		}
		sum += stat.StdDev(toFloats(hist), nil)
		n++
	}
	if n == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(sum / float64(n))
}

// PredictivePolicy fires on a rising held rate or stressed utilization, when a
// strictly cheaper market exists.
type PredictivePolicy struct{}

func (PredictivePolicy) Mode() domain.Mode { return domain.ModePredictive }

func (PredictivePolicy) ShouldRebalance(s *StepState) (bool, domain.Trigger) {
	for _, p := range s.Positions {
		if !s.betterExists(p.BorrowAPY) {
			continue
		}
		hist := s.RateHistory[p.MarketID]
		if len(hist) > trendPeriods {
			recent := mean(hist[len(hist)-trendPeriods:])
			earlier := mean(hist[:len(hist)-trendPeriods])
			if earlier.IsPositive() && recent.GreaterThan(earlier.Mul(trendRise)) {
				return true, domain.TriggerRateTrend
			}
		}
		if u, ok := s.Utilization[p.MarketID]; ok && u.GreaterThan(predictiveUtil) {
			return true, domain.TriggerUtilization
		}
	}
	return false, domain.TriggerNone
}

// OpportunityCostPolicy fires when moving every held position to the cheapest
// market pays back within 30 days and saves more than the configured minimum per year.
type OpportunityCostPolicy struct{}

func (OpportunityCostPolicy) Mode() domain.Mode { return domain.ModeOpportunityCost }

func (OpportunityCostPolicy) ShouldRebalance(s *StepState) (bool, domain.Trigger) {
	best, ok := s.bestRate()
	if !ok {
		return false, domain.TriggerNone
	}

	annual, slippage := decimal.Zero, decimal.Zero
	for _, p := range s.Positions {
		diff := p.BorrowAPY.Sub(best)
		if !diff.IsPositive() {
			continue
		}
		annual = annual.Add(p.BorrowAmount.Mul(diff))
		slippage = slippage.Add(p.BorrowAmount.Mul(s.Config.SlippageBps).Div(bpsScale))
	}
	daily := annual.Div(daysPerYear)
	if !daily.IsPositive() {
		return false, domain.TriggerNone
	}

	breakeven := s.Config.GasCostUSD.Add(slippage).Div(daily)
	if breakeven.LessThanOrEqual(thirty) && annual.GreaterThan(s.Config.MinSavingsToRebalance) {
		return true, domain.TriggerOpportunityCost
	}
	return false, domain.TriggerNone
}

// healthOverride is the mode-independent safety trigger.
func healthOverride(hf decimal.Decimal, cfg domain.RebalancingConfig) (bool, domain.Trigger) {
	if hf.LessThan(cfg.MinHealthFactor) {
		return true, domain.TriggerHealthFactor
	}
	return false, domain.TriggerNone
}

func toFloats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.InexactFloat64()
	}
	return out
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}
