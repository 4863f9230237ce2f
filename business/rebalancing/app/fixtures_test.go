package app

import (
	"time"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
)

const (
	addrWstETH = "0x7f39C581F595B53c5cb19bD0b3f8dA6c935E2Ca0"
	addrWETH   = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testMarket is a wstETH/WETH market with 1000 WETH supplied and 500 borrowed.
func testMarket(id, apy, lltv string) marketDomain.Market {
	return marketDomain.Market{
		ID:                 id,
		LoanAsset:          marketDomain.AssetInfo{Address: addrWETH, Symbol: "WETH", Decimals: 18},
		CollateralAsset:    marketDomain.AssetInfo{Address: addrWstETH, Symbol: "wstETH", Decimals: 18},
		LLTV:               d(lltv),
		BorrowAPY:          d(apy),
		SupplyAPY:          d(apy).Div(decimal.NewFromInt(2)),
		CollateralPriceUSD: d("3300"),
		LoanPriceUSD:       d("3000"),
		State: &marketDomain.MarketState{
			SupplyAssets: decimal.New(1000, 18),
			BorrowAssets: decimal.New(500, 18),
		},
	}
}

// flatSeries is hourly points at a constant rate starting at t0.
func flatSeries(hours int, apy, utilization string) []marketDomain.TimeseriesPoint {
	out := make([]marketDomain.TimeseriesPoint, hours)
	for i := range out {
		out[i] = marketDomain.TimeseriesPoint{
			Timestamp:   t0.Add(time.Duration(i) * time.Hour),
			BorrowAPY:   d(apy),
			Utilization: d(utilization),
		}
	}
	return out
}

// testConfig is 10 wstETH at 2x leverage: LTV 0.5, total debt 5.
func testConfig(mode domain.Mode) domain.RebalancingConfig {
	cfg := domain.DefaultRebalancingConfig()
	cfg.CollateralAsset = "wstETH"
	cfg.BorrowAsset = "WETH"
	cfg.CollateralAmount = d("10")
	cfg.TargetLeverage = d("2")
	cfg.Mode = mode
	resolved, err := cfg.Resolve()
	if err != nil {
		panic(err)
	}
	return resolved
}

var epsilon = d("0.000000001")

func approx(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(epsilon)
}

// debtInfo is an analyzed market with the given score and available liquidity.
func debtInfo(id, apy, lltv, available, score string) domain.MarketDebtInfo {
	return domain.MarketDebtInfo{
		MarketID:           id,
		MarketName:         id,
		LLTV:               d(lltv),
		BorrowAPY:          d(apy),
		Utilization:        d("0.5"),
		AvailableLiquidity: d(available),
		CollateralPriceUSD: d("3300"),
		LoanPriceUSD:       d("3000"),
		Score:              d(score),
	}
}
