package app

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

// MinHistoryPoints is the least history a market needs to be analyzed.
const MinHistoryPoints = 2

const trendWindow = 24 * time.Hour

// Score weights and heuristic constants.
var (
	rateWeight      = decimal.RequireFromString("0.6")
	riskWeight      = decimal.RequireFromString("0.25")
	liquidityWeight = decimal.RequireFromString("0.15")

	safeLeverageFactor = decimal.RequireFromString("0.85")
	highUtilization    = decimal.RequireFromString("0.8")
	criticalUtil       = decimal.RequireFromString("0.9")
	trendBand          = decimal.RequireFromString("0.05")

	ten    = decimal.NewFromInt(10)
	twenty = decimal.NewFromInt(20)
	one    = decimal.NewFromInt(1)
)

// MarketAnalyzer scores discovered markets from their current state and recent history.
type MarketAnalyzer struct {
	logger logger.LoggerInterface
}

// NewMarketAnalyzer creates a new MarketAnalyzer.
func NewMarketAnalyzer(log logger.LoggerInterface) *MarketAnalyzer {
	return &MarketAnalyzer{logger: log}
}

// Analyze enriches each market and returns them by score ascending.
// Markets without enough history are logged and skipped.
func (a *MarketAnalyzer) Analyze(ctx context.Context, markets []marketDomain.Market, history map[string][]marketDomain.TimeseriesPoint, cfg domain.RebalancingConfig) []domain.MarketDebtInfo {
	out := make([]domain.MarketDebtInfo, 0, len(markets))
	for _, m := range markets {
		info, err := a.AnalyzeMarket(m, history[m.ID], cfg)
		if err != nil {
			a.logger.Warn(ctx, "skipping market", "market_id", m.ID, "error", err)
			continue
		}
		out = append(out, info)
	}
	SortByScore(out)
	return out
}

// AnalyzeMarket scores one market. It fails with InsufficientHistoryError
// when fewer than MinHistoryPoints observations are available.
func (a *MarketAnalyzer) AnalyzeMarket(m marketDomain.Market, history []marketDomain.TimeseriesPoint, cfg domain.RebalancingConfig) (domain.MarketDebtInfo, error) {
	if len(history) < MinHistoryPoints {
		return domain.MarketDebtInfo{}, domain.InsufficientHistoryError(m.ID, len(history), MinHistoryPoints)
	}

	utilization := m.Utilization()
	if m.State == nil {
		utilization = history[len(history)-1].Utilization
	}

	info := domain.MarketDebtInfo{
		MarketID:           m.ID,
		MarketName:         m.Name(),
		CollateralSymbol:   m.CollateralAsset.Symbol,
		LoanSymbol:         m.LoanAsset.Symbol,
		CollateralAddress:  m.CollateralAsset.Address,
		LoanAddress:        m.LoanAsset.Address,
		LLTV:               m.LLTV,
		BorrowAPY:          m.BorrowAPY,
		SupplyAPY:          m.SupplyAPY,
		Utilization:        utilization,
		AvailableLiquidity: m.AvailableLiquidity(),
		TotalBorrow:        m.BorrowTokens(),
		TVL:                m.TVL(),
		CollateralPriceUSD: m.CollateralPriceUSD,
		LoanPriceUSD:       m.LoanPriceUSD,
	}

	info.EffectiveMaxLeverage = domain.MaxLeverage(m.LLTV)
	info.SafeLeverage = info.EffectiveMaxLeverage.Mul(safeLeverageFactor)

	info.RateVolatility = rateVolatility(history, cfg.LookbackPeriods)
	info.RateTrend = rateTrend(history, cfg.LookbackPeriods)
	info.PredictedRate1d, info.PredictedRate7d = predictRates(m.BorrowAPY, utilization, info.RateTrend)

	Rescore(&info, cfg.TotalDebt)
	return info, nil
}

// SortByScore orders markets by score ascending, ties broken by market id.
func SortByScore(markets []domain.MarketDebtInfo) {
	sort.SliceStable(markets, func(i, j int) bool {
		if c := markets[i].Score.Cmp(markets[j].Score); c != 0 {
			return c < 0
		}
		return markets[i].MarketID < markets[j].MarketID
	})
}

func rates(points []marketDomain.TimeseriesPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.BorrowAPY.InexactFloat64()
	}
	return out
}

// lookbackWindow is the last lookback points of history, or all of it when
// lookback is not positive.
func lookbackWindow(history []marketDomain.TimeseriesPoint, lookback int) []marketDomain.TimeseriesPoint {
	if lookback > 0 && len(history) > lookback {
		return history[len(history)-lookback:]
	}
	return history
}

// rateVolatility is the sample stdev of borrow APY over the last lookback points.
func rateVolatility(history []marketDomain.TimeseriesPoint, lookback int) decimal.Decimal {
	window := lookbackWindow(history, lookback)
	if len(window) < 2 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(stat.StdDev(rates(window), nil))
}

// rateTrend compares the mean rate of the last 24h with the mean of the
// earlier points inside the lookback window.
func rateTrend(history []marketDomain.TimeseriesPoint, lookback int) decimal.Decimal {
	window := lookbackWindow(history, lookback)
	if len(window) == 0 {
		return decimal.Zero
	}
	cutoff := window[len(window)-1].Timestamp.Add(-trendWindow)

	var recent, earlier []marketDomain.TimeseriesPoint
	for _, p := range window {
		if p.Timestamp.After(cutoff) {
			recent = append(recent, p)
		} else {
			earlier = append(earlier, p)
		}
	}
	if len(recent) == 0 || len(earlier) == 0 {
		return decimal.Zero
	}

	earlierMean := stat.Mean(rates(earlier), nil)
	if earlierMean == 0 {
		return decimal.Zero
	}
	recentMean := stat.Mean(rates(recent), nil)
	return decimal.NewFromFloat((recentMean - earlierMean) / earlierMean)
}

// predictRates applies utilization and trend bumps to the current rate.
func predictRates(apy, utilization, trend decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	m1, m7 := one, one
	switch {
	case utilization.GreaterThan(criticalUtil):
		m1, m7 = decimal.RequireFromString("1.05"), decimal.RequireFromString("1.15")
	case utilization.GreaterThan(highUtilization):
		m1, m7 = decimal.RequireFromString("1.02"), decimal.RequireFromString("1.05")
	}
	switch {
	case trend.GreaterThan(trendBand):
		m1 = m1.Mul(decimal.RequireFromString("1.01"))
		m7 = m7.Mul(decimal.RequireFromString("1.03"))
	case trend.LessThan(trendBand.Neg()):
		m1 = m1.Mul(decimal.RequireFromString("0.99"))
		m7 = m7.Mul(decimal.RequireFromString("0.97"))
	}
	return apy.Mul(m1), apy.Mul(m7)
}

func subScores(info domain.MarketDebtInfo, totalDebt decimal.Decimal) (rate, risk, liquidity decimal.Decimal) {
	rate = info.BorrowAPY.Mul(decimal.NewFromInt(100))

	utilPenalty := decimal.Max(decimal.Zero, info.Utilization.Sub(highUtilization))
	risk = one.Sub(info.LLTV).Mul(ten).Add(utilPenalty.Mul(twenty))

	coverage := one
	if totalDebt.IsPositive() {
		coverage = decimal.Min(one, info.AvailableLiquidity.Div(totalDebt))
	}
	liquidity = one.Sub(coverage).Mul(ten)
	return rate, risk, liquidity
}

// Rescore recomputes the sub-scores and composite score of info, for use
// after its rate or utilization changed.
func Rescore(info *domain.MarketDebtInfo, totalDebt decimal.Decimal) {
	info.RateScore, info.RiskScore, info.LiquidityScore = subScores(*info, totalDebt)
	info.Score = info.RateScore.Mul(rateWeight).
		Add(info.RiskScore.Mul(riskWeight)).
		Add(info.LiquidityScore.Mul(liquidityWeight))
}
