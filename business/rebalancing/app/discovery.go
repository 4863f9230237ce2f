package app

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

// Discovery filter thresholds.
var (
	MinMarketTVL       = decimal.NewFromInt(100_000)
	MinMarketLiquidity = decimal.NewFromInt(10_000)
	MaxSaneBorrowAPY   = decimal.RequireFromString("0.5")
	MinSaneLLTV        = decimal.RequireFromString("0.5")
	MaxSaneLLTV        = decimal.RequireFromString("0.99")
)

// MatchMode tells how a pair was matched against markets.
type MatchMode string

const (
	MatchByAddress MatchMode = "address"
	MatchBySymbol  MatchMode = "symbol"
)

// AssetPair is the collateral/loan pair to look for.
type AssetPair struct {
	Collateral string
	Loan       string
	Mode       MatchMode
}

func (p AssetPair) matches(m marketDomain.Market) bool {
	if p.Mode == MatchByAddress {
		return m.MatchesAddresses(p.Collateral, p.Loan)
	}
	return m.MatchesSymbols(p.Collateral, p.Loan)
}

// MarketDiscovery narrows a market universe to the usable markets for one pair.
type MarketDiscovery struct {
	logger logger.LoggerInterface
}

// NewMarketDiscovery creates a new MarketDiscovery.
func NewMarketDiscovery(log logger.LoggerInterface) *MarketDiscovery {
	return &MarketDiscovery{logger: log}
}

// Discover returns the matching markets that pass the sanity filters, by TVL descending.
// An empty result is not an error here; the caller decides.
func (d *MarketDiscovery) Discover(ctx context.Context, universe []marketDomain.Market, pair AssetPair) []marketDomain.Market {
	if pair.Mode == MatchBySymbol {
		d.logger.Info(ctx, "matching markets by symbol substring", "collateral", pair.Collateral, "loan", pair.Loan)
	}

	var out []marketDomain.Market
	var matched int
	for _, m := range universe {
		if !pair.matches(m) {
			continue
		}
		matched++
		if reason := rejectReason(m); reason != "" {
			d.logger.Debug(ctx, "market filtered", "market_id", m.ID, "reason", reason)
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TVL().GreaterThan(out[j].TVL())
	})

	d.logger.Info(ctx, "markets discovered",
		"universe", len(universe),
		"matched", matched,
		"usable", len(out),
		"mode", string(pair.Mode))
	return out
}

func rejectReason(m marketDomain.Market) string {
	switch {
	case m.TVL().LessThan(MinMarketTVL):
		return "tvl"
	case m.AvailableLiquidityValue().LessThan(MinMarketLiquidity):
		return "liquidity"
	case m.BorrowAPY.GreaterThan(MaxSaneBorrowAPY):
		return "borrow_apy"
	case m.LLTV.LessThan(MinSaneLLTV), m.LLTV.GreaterThan(MaxSaneLLTV):
		return "lltv"
	}
	return ""
}
