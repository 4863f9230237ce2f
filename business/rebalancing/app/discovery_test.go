package app

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/debt-rebalancer/business/market/domain"
	"github.com/fd1az/debt-rebalancer/internal/logger"
)

func TestMarketDiscovery_Filters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *marketDomain.Market)
		want   bool
	}{
		{"healthy", func(m *marketDomain.Market) {}, true},
		{"tiny tvl", func(m *marketDomain.Market) {
			m.State.SupplyAssets = decimal.New(10, 18)
			m.State.BorrowAssets = decimal.New(5, 18)
		}, false},
		{"fully borrowed", func(m *marketDomain.Market) {
			m.State.BorrowAssets = m.State.SupplyAssets
		}, false},
		{"insane apy", func(m *marketDomain.Market) { m.BorrowAPY = d("0.75") }, false},
		{"lltv too low", func(m *marketDomain.Market) { m.LLTV = d("0.3") }, false},
		{"lltv too high", func(m *marketDomain.Market) { m.LLTV = d("0.995") }, false},
		{"other loan asset", func(m *marketDomain.Market) {
			m.LoanAsset = marketDomain.AssetInfo{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6}
		}, false},
	}

	disc := NewMarketDiscovery(logger.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMarket("m1", "0.03", "0.86")
			tt.mutate(&m)

			got := disc.Discover(context.Background(), []marketDomain.Market{m}, AssetPair{Collateral: "wstETH", Loan: "WETH", Mode: MatchBySymbol})
			if (len(got) == 1) != tt.want {
				t.Errorf("Discover() kept %d markets, want kept=%v", len(got), tt.want)
			}
		})
	}
}

func TestMarketDiscovery_AddressMatchAndOrder(t *testing.T) {
	small := testMarket("small", "0.03", "0.86")
	small.State.SupplyAssets = decimal.New(200, 18)
	small.State.BorrowAssets = decimal.New(100, 18)
	large := testMarket("large", "0.04", "0.86")
	other := testMarket("other", "0.02", "0.86")
	other.CollateralAsset.Address = "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"

	disc := NewMarketDiscovery(logger.NewNop())
	got := disc.Discover(context.Background(),
		[]marketDomain.Market{small, other, large},
		AssetPair{Collateral: "0x7f39c581f595b53c5cb19bd0b3f8da6c935e2ca0", Loan: addrWETH, Mode: MatchByAddress})

	if len(got) != 2 {
		t.Fatalf("Discover() returned %d markets, want 2", len(got))
	}
	if got[0].ID != "large" || got[1].ID != "small" {
		t.Errorf("Discover() order = [%s %s], want [large small]", got[0].ID, got[1].ID)
	}
}
